package scratch

import "testing"

func TestMatches(t *testing.T) {
	patterns := []string{".DS_Store", "Thumbs.db", "*.tmp"}
	if !Matches(patterns, "/some/dir/.DS_Store") {
		t.Error("expected .DS_Store to match")
	}
	if !Matches(patterns, "/some/dir/upload.tmp") {
		t.Error("expected *.tmp to match")
	}
	if Matches(patterns, "/some/dir/real-file.txt") {
		t.Error("did not expect real-file.txt to match")
	}
}

func TestTempDiskIDIsStableAndSanitized(t *testing.T) {
	a := TempDiskID("alice", "/docs/report.txt")
	b := TempDiskID("alice", "/docs/report.txt")
	if a != b {
		t.Error("expected TempDiskID to be deterministic")
	}
	c := TempDiskID("bob", "/docs/report.txt")
	if a == c {
		t.Error("expected different usernames to produce different ids")
	}
}

func TestSanitizeStripsReservedAndControlChars(t *testing.T) {
	if got := Sanitize("CON"); got != "_CON" {
		t.Errorf("Sanitize(CON) = %q, want _CON", got)
	}
	if got := Sanitize("a\x00b"); got != "ab" {
		t.Errorf("Sanitize(a\\x00b) = %q, want ab", got)
	}
	if got := Sanitize("a:b/c"); got != "a_b_c" {
		t.Errorf("Sanitize(a:b/c) = %q, want a_b_c", got)
	}
	if got := Sanitize(""); got != "_" {
		t.Errorf("Sanitize(\"\") = %q, want _", got)
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	got := Sanitize(string(long))
	if len(got) != 255 {
		t.Errorf("Sanitize truncated length = %d, want 255", len(got))
	}
}
