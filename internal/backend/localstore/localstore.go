// Package localstore is a disk-backed reference implementation of
// backend.Store. It stands in for the real encrypting cloud SDK (spec §6
// treats that SDK as an external collaborator) so the gateway can run and
// be tested end-to-end without a live backend. It is grounded on the
// teacher's internal/storage.DiskDriver: a root path plus plain os file
// operations, generalized to the richer Store contract (rename, copy,
// unlink-to-trash, statfs, and an explicit metadata index mirroring the
// SDK's _removeItem/_addItem cache).
package localstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/resource"
)

// Store implements backend.Store over a directory on the local filesystem.
// A parallel in-memory index (keyed by logical path) mirrors the real SDK's
// metadata cache so PUT/PROPPATCH can rewrite it without re-walking disk.
type Store struct {
	root  string
	trash string

	mu    sync.RWMutex
	index map[string]*backend.Stat
}

var _ backend.Store = (*Store)(nil)

// New creates a Store rooted at dir, creating dir and a sibling .trash
// directory (used by soft-delete Unlink) if they do not exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	trash := filepath.Join(dir, ".trash")
	if err := os.MkdirAll(trash, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: dir, trash: trash, index: make(map[string]*backend.Stat)}, nil
}

func (s *Store) real(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

func (s *Store) Stat(ctx context.Context, p string) (*backend.Stat, error) {
	s.mu.RLock()
	if st, ok := s.index[p]; ok {
		cp := *st
		s.mu.RUnlock()
		return &cp, nil
	}
	s.mu.RUnlock()

	info, err := os.Stat(s.real(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}

	kind := resource.KindFile
	if info.IsDir() {
		kind = resource.KindDirectory
	}
	st := &backend.Stat{
		UUID:        deterministicUUID(p),
		Kind:        kind,
		Name:        path.Base(p),
		Size:        info.Size(),
		MtimeMs:     info.ModTime().UnixMilli(),
		BirthtimeMs: info.ModTime().UnixMilli(),
		Mime:        resource.MimeByName(p),
		Version:     1,
		Chunks:      1,
	}
	s.mu.Lock()
	s.index[p] = st
	s.mu.Unlock()
	cp := *st
	return &cp, nil
}

func (s *Store) ReadDir(ctx context.Context, p string) ([]string, error) {
	entries, err := os.ReadDir(s.real(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name() == ".trash" && p == "/" {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *Store) Mkdir(ctx context.Context, p string) error {
	if err := os.MkdirAll(s.real(p), 0o755); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.index, p)
	s.mu.Unlock()
	return nil
}

func (s *Store) Rename(ctx context.Context, from, to string) error {
	if err := os.Rename(s.real(from), s.real(to)); err != nil {
		if os.IsNotExist(err) {
			return backend.ErrNotFound
		}
		return err
	}
	s.mu.Lock()
	if st, ok := s.index[from]; ok {
		st.Name = path.Base(to)
		s.index[to] = st
		delete(s.index, from)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Copy(ctx context.Context, from, to string) error {
	src, err := os.Open(s.real(from))
	if err != nil {
		if os.IsNotExist(err) {
			return backend.ErrNotFound
		}
		return err
	}
	defer src.Close()

	dst, err := os.Create(s.real(to))
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.index, to)
	s.mu.Unlock()
	return nil
}

// Unlink removes p. permanent=false moves the file into the trash
// directory (spec's soft-delete); permanent=true deletes it outright.
func (s *Store) Unlink(ctx context.Context, p string, permanent bool) error {
	real := s.real(p)
	if permanent {
		if err := os.RemoveAll(real); err != nil {
			return err
		}
	} else {
		dest := filepath.Join(s.trash, fmt.Sprintf("%d-%s", uuidCounter(), filepath.Base(real)))
		if err := os.Rename(real, dest); err != nil {
			if os.IsNotExist(err) {
				return backend.ErrNotFound
			}
			return err
		}
	}
	s.mu.Lock()
	delete(s.index, p)
	s.mu.Unlock()
	return nil
}

// defaultMax is the advertised quota when the host filesystem's real
// capacity can't be determined (spec §4.6 statfs).
const defaultMax = 100 * 1024 * 1024 * 1024 // 100GiB

func (s *Store) StatFS(ctx context.Context) (backend.Quota, error) {
	used := getDirUsedBytes(s.root)
	max, ok := statfsMax(s.root)
	if !ok || max < used {
		max = defaultMax
	}
	return backend.Quota{Used: used, Max: max}, nil
}

// getDirUsedBytes sums the size of every file under dir, generalizing the
// teacher's internal/server getDirUsedBytes to report space used by the
// reference store's content rather than the whole host disk.
func getDirUsedBytes(dir string) uint64 {
	var total uint64
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

func (s *Store) UploadStream(ctx context.Context, parentUUID, name string, body io.Reader) (*backend.UploadResult, error) {
	// The reference store keys files by path, not uuid, so parentUUID is
	// expected to be the parent's logical path (callers in this repo pass
	// it that way; a real cloud SDK would resolve the uuid itself).
	p := path.Join(parentUUID, name)
	f, err := os.Create(s.real(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	res := &backend.UploadResult{
		UUID:         deterministicUUID(p),
		Kind:         resource.KindFile,
		Size:         n,
		LastModified: info.ModTime().UnixMilli(),
		Creation:     info.ModTime().UnixMilli(),
		Version:      1,
		Chunks:       1,
		Mime:         resource.MimeByName(name),
	}
	return res, nil
}

func (s *Store) DownloadStream(ctx context.Context, id string, start, end int64) (io.ReadCloser, error) {
	p, ok := s.pathForUUID(id)
	if !ok {
		return nil, backend.ErrNotFound
	}
	f, err := os.Open(s.real(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
	}
	if end < 0 {
		return f, nil
	}
	return &limitedReadCloser{r: io.LimitReader(f, end-start+1), c: f}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }

func (s *Store) EditFileMetadata(ctx context.Context, id string, patch backend.MetadataPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, st := range s.index {
		if st.UUID == id {
			if patch.Name != "" {
				st.Name = patch.Name
			}
			if patch.Mime != "" {
				st.Mime = patch.Mime
			}
			if patch.LastModified > 0 {
				st.MtimeMs = patch.LastModified
			}
			if patch.Creation > 0 {
				st.BirthtimeMs = patch.Creation
			}
			if patch.Size > 0 {
				st.Size = patch.Size
			}
			s.index[p] = st
			return nil
		}
	}
	return backend.ErrNotFound
}

func (s *Store) RemoveItem(ctx context.Context, p string) error {
	s.mu.Lock()
	delete(s.index, p)
	s.mu.Unlock()
	return nil
}

func (s *Store) AddItem(ctx context.Context, p string, st *backend.Stat) error {
	s.mu.Lock()
	cp := *st
	s.index[p] = &cp
	s.mu.Unlock()
	return nil
}

// Login is a stub suitable for tests and single-tenant deployments backed
// by the local reference store: it always succeeds and never reports a
// password change.
func (s *Store) Login(ctx context.Context, email, password, twoFactorCode string) (backend.Session, error) {
	return &staticSession{}, nil
}

type staticSession struct{}

func (staticSession) PasswordChanged() <-chan struct{} { return nil }
func (staticSession) Close() error                     { return nil }

func (s *Store) pathForUUID(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p, st := range s.index {
		if st.UUID == id {
			return p, true
		}
	}
	return "", false
}

// deterministicUUID derives a stable uuid from a logical path so repeated
// Stat calls on the same file (before it's been cached in the index)
// return the same identity, matching the real SDK's persistent uuids.
func deterministicUUID(p string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("atlasdrive:"+p)).String()
}

var trashSeq struct {
	sync.Mutex
	n uint64
}

func uuidCounter() uint64 {
	trashSeq.Lock()
	defer trashSeq.Unlock()
	trashSeq.n++
	return trashSeq.n
}
