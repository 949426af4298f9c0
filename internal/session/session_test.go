package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/resource"
)

type stubStore struct{}

func (stubStore) Stat(ctx context.Context, p string) (*backend.Stat, error) { return nil, backend.ErrNotFound }
func (stubStore) ReadDir(ctx context.Context, p string) ([]string, error)   { return nil, nil }
func (stubStore) Mkdir(ctx context.Context, p string) error                 { return nil }
func (stubStore) Rename(ctx context.Context, from, to string) error         { return nil }
func (stubStore) Copy(ctx context.Context, from, to string) error           { return nil }
func (stubStore) Unlink(ctx context.Context, p string, permanent bool) error { return nil }
func (stubStore) StatFS(ctx context.Context) (backend.Quota, error)         { return backend.Quota{}, nil }
func (stubStore) UploadStream(ctx context.Context, parentUUID, name string, body io.Reader) (*backend.UploadResult, error) {
	return nil, nil
}
func (stubStore) DownloadStream(ctx context.Context, uuid string, start, end int64) (io.ReadCloser, error) {
	return nil, nil
}
func (stubStore) EditFileMetadata(ctx context.Context, uuid string, patch backend.MetadataPatch) error {
	return nil
}
func (stubStore) RemoveItem(ctx context.Context, p string) error       { return nil }
func (stubStore) AddItem(ctx context.Context, p string, st *backend.Stat) error { return nil }
func (stubStore) Login(ctx context.Context, email, password, twoFactorCode string) (backend.Session, error) {
	return nil, nil
}

func TestTTLCache(t *testing.T) {
	c := newTTLCache()
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}
	c.Set("k", 42, 50*time.Millisecond)
	if v, ok := c.Get("k"); !ok || v.(int) != 42 {
		t.Errorf("Get(k) = %v, %v; want 42, true", v, ok)
	}
	time.Sleep(75 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestStateVirtualDiskOverlayAreMutuallyExclusive(t *testing.T) {
	st := NewState("alice", stubStore{}, afero.NewMemMapFs())

	st.PutVirtual("/f", resource.NewVirtual("/f"))
	if _, ok := st.Virtual("/f"); !ok {
		t.Fatal("expected virtual entry to be present")
	}

	st.PutDisk("/f", resource.NewDisk("/f", 10, 1, "id"))
	if _, ok := st.Virtual("/f"); ok {
		t.Error("expected PutDisk to purge the virtual entry at the same path")
	}
	if _, ok := st.Disk("/f"); !ok {
		t.Error("expected disk entry to be present")
	}
}

func TestStateChildrenUnder(t *testing.T) {
	st := NewState("alice", stubStore{}, afero.NewMemMapFs())
	st.PutVirtual("/dir/a", resource.NewVirtual("/dir/a"))
	st.PutDisk("/dir/b", resource.NewDisk("/dir/b", 1, 1, "id"))
	st.PutVirtual("/other/c", resource.NewVirtual("/other/c"))

	children := st.ChildrenUnder("/dir")
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}
}

func TestStatePathMutexIsStablePerPath(t *testing.T) {
	st := NewState("alice", stubStore{}, afero.NewMemMapFs())
	a := st.PathMutex("/x")
	b := st.PathMutex("/x")
	if a != b {
		t.Error("expected the same mutex for the same path")
	}
}

func TestCachedStatFS(t *testing.T) {
	st := NewState("alice", stubStore{}, afero.NewMemMapFs())
	if _, ok := st.CachedStatFS(); ok {
		t.Error("expected no cached statfs initially")
	}
	st.CacheStatFS(backend.Quota{Used: 1, Max: 2})
	q, ok := st.CachedStatFS()
	if !ok || q.Max != 2 {
		t.Errorf("CachedStatFS = %+v, %v", q, ok)
	}
}
