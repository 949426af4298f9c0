package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/spf13/afero"
)

// Manager owns every authenticated user's PerUserState. In single-tenant
// mode it holds exactly one entry created at startup; in proxy mode
// entries are created lazily on first successful login and evicted when
// the backend reports the account's password changed (spec §3 Lifecycle).
type Manager struct {
	scratchRoot string

	loginMu sync.Mutex           // guards byUser
	byUser  map[string]*userLock // per-username locks that serialize first login (spec §4.2)

	mu     sync.RWMutex
	states map[string]*State
}

type userLock struct {
	mu sync.Mutex
}

// NewManager creates a Manager rooted at scratchRoot, the directory each
// user's disk-scratch tier is namespaced under.
func NewManager(scratchRoot string) *Manager {
	return &Manager{
		scratchRoot: scratchRoot,
		byUser:      make(map[string]*userLock),
		states:      make(map[string]*State),
	}
}

// Get returns the existing state for username, if any, without creating one.
func (m *Manager) Get(username string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[username]
	return s, ok
}

// Bootstrap installs the single-tenant PerUserState at startup, backed by
// store, with no login step required.
func (m *Manager) Bootstrap(username string, store backend.Store) *State {
	st := NewState(username, store, m.diskFSFor(username))
	m.mu.Lock()
	m.states[username] = st
	m.mu.Unlock()
	return st
}

func (m *Manager) diskFSFor(username string) afero.Fs {
	root := filepath.Join(m.scratchRoot, sanitizeDir(username))
	return afero.NewBasePathFs(afero.NewOsFs(), root)
}

func sanitizeDir(username string) string {
	return filepath.Base(filepath.Clean("/" + username))
}

func (m *Manager) lockFor(username string) *sync.Mutex {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()
	l, ok := m.byUser[username]
	if !ok {
		l = &userLock{}
		m.byUser[username] = l
	}
	return &l.mu
}

// LoginOrReuse implements the proxy-mode authentication flow of spec §4.2:
// if a PerUserState already exists and rawPassword matches AuthedPassword
// byte-for-byte, it is reused with no backend round-trip; otherwise a new
// backend.Login is performed, serialized per-username so concurrent first
// logins from the same user don't race.
func (m *Manager) LoginOrReuse(ctx context.Context, store backend.Store, username, rawPassword, secret, otp string) (*State, error) {
	lock := m.lockFor(username)
	lock.Lock()
	defer lock.Unlock()

	if st, ok := m.Get(username); ok {
		if subtleEqual(st.AuthedPassword, rawPassword) {
			return st, nil
		}
	}

	sess, err := store.Login(ctx, username, secret, otp)
	if err != nil {
		m.mu.Lock()
		delete(m.states, username)
		m.mu.Unlock()
		return nil, fmt.Errorf("login %s: %w", username, err)
	}

	st := NewState(username, store, m.diskFSFor(username))
	st.AuthedPassword = rawPassword
	st.SetSession(sess)

	m.mu.Lock()
	m.states[username] = st
	m.mu.Unlock()

	if ch := sess.PasswordChanged(); ch != nil {
		go m.watchPasswordChange(username, ch)
	}

	return st, nil
}

func (m *Manager) watchPasswordChange(username string, ch <-chan struct{}) {
	<-ch
	m.Evict(username)
}

// Evict drops username's PerUserState, closing its backend session (spec
// §3: "discarded on receipt of a 'password changed' backend event").
func (m *Manager) Evict(username string) {
	m.mu.Lock()
	st, ok := m.states[username]
	delete(m.states, username)
	m.mu.Unlock()
	if ok {
		_ = st.Close()
	}
}

// subtleEqual is a constant-time byte comparison (spec §4.2, §9: compare
// the raw cached credential "by constant-time equality").
func subtleEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
