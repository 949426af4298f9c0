package resource

import "testing"

func TestNewVirtual(t *testing.T) {
	r := NewVirtual("/docs/empty.txt")
	if r.Tier != TierVirtual {
		t.Errorf("Tier = %v, want TierVirtual", r.Tier)
	}
	if r.Size != 0 {
		t.Errorf("Size = %d, want 0", r.Size)
	}
	if r.Name != "empty.txt" {
		t.Errorf("Name = %q, want empty.txt", r.Name)
	}
}

func TestNewDisk(t *testing.T) {
	r := NewDisk("/docs/scratch.tmp", 42, 1, "tempid123")
	if r.Tier != TierDisk {
		t.Errorf("Tier = %v, want TierDisk", r.Tier)
	}
	if r.TempDiskID != "tempid123" {
		t.Errorf("TempDiskID = %q, want tempid123", r.TempDiskID)
	}
	if r.Size != 42 {
		t.Errorf("Size = %d, want 42", r.Size)
	}
}

func TestURL(t *testing.T) {
	dir := &Resource{Kind: KindDirectory, Path: "/docs"}
	if got := dir.URL(); got != "/docs/" {
		t.Errorf("dir URL = %q, want /docs/", got)
	}

	root := &Resource{Kind: KindDirectory, Path: "/"}
	if got := root.URL(); got != "/" {
		t.Errorf("root URL = %q, want /", got)
	}

	file := &Resource{Kind: KindFile, Path: "/docs/a.txt"}
	if got := file.URL(); got != "/docs/a.txt" {
		t.Errorf("file URL = %q, want /docs/a.txt", got)
	}
}

func TestIsDir(t *testing.T) {
	if (&Resource{Kind: KindFile}).IsDir() {
		t.Error("file reported as dir")
	}
	if !(&Resource{Kind: KindDirectory}).IsDir() {
		t.Error("dir reported as file")
	}
}

func TestMimeByName(t *testing.T) {
	if got := MimeByName("report.txt"); got == "" {
		t.Error("expected a non-empty mime type for .txt")
	}
	if got := MimeByName("noext"); got != "application/octet-stream" {
		t.Errorf("MimeByName(noext) = %q, want application/octet-stream", got)
	}
}
