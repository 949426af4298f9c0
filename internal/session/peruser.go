// Package session holds PerUserState (spec §3, §4.6): everything the
// gateway remembers about one authenticated username between requests —
// the backend session handle, the virtual and disk-scratch tier maps, a
// per-path mutex table, and the small statfs TTL cache. The map/mutex
// shape is grounded on the teacher's pkg/user.Store (a sync.RWMutex
// guarding a map, with Add/Delete/List-style accessors), generalized from
// "persisted bcrypt users" to "live per-user overlay state".
package session

import (
	"sync"
	"time"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/resource"
	"github.com/spf13/afero"
)

// State is the per-user overlay described in spec §3.
type State struct {
	Username string

	Backend backend.Store
	session backend.Session

	// VirtualFS is an in-memory afero.MemMapFs created with each State.
	// The virtual tier itself (spec §3) is kept in virtualMeta: a
	// zero-byte placeholder PUT records its Resource there and writes
	// nothing to VirtualFS.
	VirtualFS afero.Fs
	// DiskFS roots the scratch tier for this user. Manager roots it at a
	// per-user subdirectory of the scratch directory; entries inside it are
	// named by TempDiskID (spec §6).
	DiskFS afero.Fs

	mu          sync.RWMutex
	virtualMeta map[string]*resource.Resource // path -> resource, tier=TierVirtual
	diskMeta    map[string]*resource.Resource // path -> resource, tier=TierDisk

	pathMu sync.Mutex
	paths  map[string]*sync.Mutex

	cache *ttlCache

	// AuthedPassword is the raw credential presented at first successful
	// proxy-mode login, compared byte-for-byte on subsequent requests so a
	// repeat login does not re-hit the backend (spec §4.2).
	AuthedPassword string
}

// NewState constructs a fresh per-user overlay. diskFS should already be
// rooted at this user's portion of the scratch directory.
func NewState(username string, store backend.Store, diskFS afero.Fs) *State {
	return &State{
		Username:    username,
		Backend:     store,
		VirtualFS:   afero.NewMemMapFs(),
		DiskFS:      diskFS,
		virtualMeta: make(map[string]*resource.Resource),
		diskMeta:    make(map[string]*resource.Resource),
		paths:       make(map[string]*sync.Mutex),
		cache:       newTTLCache(),
	}
}

// SetSession attaches the backend.Session obtained from a proxy-mode
// Login, so the caller can later select on PasswordChanged() (spec §3
// "Proxy mode" lifecycle).
func (s *State) SetSession(sess backend.Session) { s.session = sess }

// Session returns the backend session handle, if any.
func (s *State) Session() backend.Session { return s.session }

// PathMutex returns the pairwise mutex for path, creating it on first
// access (spec §4.6: "created on first acquisition; never garbage
// collected in the simple design").
func (s *State) PathMutex(path string) *sync.Mutex {
	s.pathMu.Lock()
	defer s.pathMu.Unlock()
	m, ok := s.paths[path]
	if !ok {
		m = &sync.Mutex{}
		s.paths[path] = m
	}
	return m
}

// Virtual returns the virtual-tier resource at path, if any.
func (s *State) Virtual(path string) (*resource.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.virtualMeta[path]
	return r, ok
}

// PutVirtual stores r as the virtual-tier resource at path, purging any
// disk-tier entry at the same path (spec §4.4 PUT step 3: "purge
// diskFiles[username][path]").
func (s *State) PutVirtual(path string, r *resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.virtualMeta[path] = r
	delete(s.diskMeta, path)
}

// RemoveVirtual deletes the virtual-tier entry at path.
func (s *State) RemoveVirtual(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.virtualMeta, path)
}

// Disk returns the disk-tier resource at path, if any.
func (s *State) Disk(path string) (*resource.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.diskMeta[path]
	return r, ok
}

// PutDisk stores r as the disk-tier resource at path, purging any
// virtual-tier entry at the same path (spec §4.4 PUT step 4).
func (s *State) PutDisk(path string, r *resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diskMeta[path] = r
	delete(s.virtualMeta, path)
}

// RemoveDisk deletes the disk-tier entry at path.
func (s *State) RemoveDisk(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.diskMeta, path)
}

// ChildrenUnder returns the virtual- and disk-tier resources whose parent
// path equals dir, for PROPFIND's directory listing (spec §4.4 PROPFIND).
func (s *State) ChildrenUnder(dir string) []*resource.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*resource.Resource
	for p, r := range s.virtualMeta {
		if parentOf(p) == dir {
			out = append(out, r)
		}
	}
	for p, r := range s.diskMeta {
		if parentOf(p) == dir {
			out = append(out, r)
		}
	}
	return out
}

func parentOf(p string) string {
	if p == "/" {
		return "/"
	}
	i := len(p) - 1
	for i > 0 && p[i] != '/' {
		i--
	}
	if i == 0 {
		return "/"
	}
	return p[:i]
}

// CachedStatFS returns the statfs result cached within the last 60s, if any.
func (s *State) CachedStatFS() (backend.Quota, bool) {
	v, ok := s.cache.Get("statfs")
	if !ok {
		return backend.Quota{}, false
	}
	return v.(backend.Quota), true
}

// CacheStatFS stores q under the "statfs" key for 60 seconds (spec §4.6).
func (s *State) CacheStatFS(q backend.Quota) {
	s.cache.Set("statfs", q, 60*time.Second)
}

// Close releases the backend session, if any.
func (s *State) Close() error {
	if s.session != nil {
		return s.session.Close()
	}
	return nil
}
