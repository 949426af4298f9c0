package resolver

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/atlasdrive/webdav/internal/session"
)

type fakeStore struct {
	stat *backend.Stat
}

func (f fakeStore) Stat(ctx context.Context, p string) (*backend.Stat, error) {
	if f.stat == nil {
		return nil, backend.ErrNotFound
	}
	return f.stat, nil
}
func (fakeStore) ReadDir(ctx context.Context, p string) ([]string, error)    { return nil, nil }
func (fakeStore) Mkdir(ctx context.Context, p string) error                  { return nil }
func (fakeStore) Rename(ctx context.Context, from, to string) error          { return nil }
func (fakeStore) Copy(ctx context.Context, from, to string) error            { return nil }
func (fakeStore) Unlink(ctx context.Context, p string, permanent bool) error { return nil }
func (fakeStore) StatFS(ctx context.Context) (backend.Quota, error)          { return backend.Quota{}, nil }
func (fakeStore) UploadStream(ctx context.Context, parentUUID, name string, body io.Reader) (*backend.UploadResult, error) {
	return nil, nil
}
func (fakeStore) DownloadStream(ctx context.Context, uuid string, start, end int64) (io.ReadCloser, error) {
	return nil, nil
}
func (fakeStore) EditFileMetadata(ctx context.Context, uuid string, patch backend.MetadataPatch) error {
	return nil
}
func (fakeStore) RemoveItem(ctx context.Context, p string) error               { return nil }
func (fakeStore) AddItem(ctx context.Context, p string, st *backend.Stat) error { return nil }
func (fakeStore) Login(ctx context.Context, email, password, twoFactorCode string) (backend.Session, error) {
	return nil, nil
}

func TestResolvePrefersVirtualOverBackend(t *testing.T) {
	st := session.NewState("alice", fakeStore{stat: &backend.Stat{Kind: resource.KindFile}}, afero.NewMemMapFs())
	st.PutVirtual("/f", resource.NewVirtual("/f"))

	r, err := Resolve(context.Background(), st, "/f")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Tier != resource.TierVirtual {
		t.Errorf("Tier = %v, want TierVirtual", r.Tier)
	}
}

func TestResolveFallsBackToBackend(t *testing.T) {
	st := session.NewState("alice", fakeStore{stat: &backend.Stat{Kind: resource.KindFile, Name: "f"}}, afero.NewMemMapFs())

	r, err := Resolve(context.Background(), st, "/f")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r == nil || r.Tier != resource.TierBackend {
		t.Errorf("Resolve = %+v, want a TierBackend resource", r)
	}
}

func TestResolveNotFoundIsNilNil(t *testing.T) {
	st := session.NewState("alice", fakeStore{}, afero.NewMemMapFs())

	r, err := Resolve(context.Background(), st, "/missing")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r != nil {
		t.Errorf("Resolve = %+v, want nil", r)
	}
}
