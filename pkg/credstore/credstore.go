// Package credstore persists the single-tenant Basic-mode credential to
// disk as a bcrypt hash, repurposing the teacher's multi-user pkg/user
// store for this gateway's one-user-per-process model (spec §4.2, §6
// Configuration "user"). Digest mode cannot be backed by this store: HA1
// requires the plaintext password, which a bcrypt hash cannot recover, so
// digest-mode credentials stay as plaintext config (spec §4.2, §9
// "credential confidentiality").
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// entry is the on-disk record for the configured user.
type entry struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// Store manages the single persisted Basic-mode credential.
type Store struct {
	mu       sync.RWMutex
	filePath string
	entry    *entry
}

// Open loads path if it exists, or returns an empty Store ready for Set.
func Open(path string) (*Store, error) {
	s := &Store{filePath: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("credstore: parse %s: %w", path, err)
	}
	s.entry = &e
	return s, nil
}

// Set hashes password and persists it as the configured user, replacing
// any prior credential.
func (s *Store) Set(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entry = &entry{Username: username, PasswordHash: string(hash)}
	e := s.entry
	s.mu.Unlock()

	return s.save(e)
}

func (s *Store) save(e *entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(s.filePath, data, 0o600)
}

// Clear removes the configured credential, on disk and in memory.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Username returns the configured username, if any.
func (s *Store) Username() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return "", false
	}
	return s.entry.Username, true
}

// Authenticate reports whether username/password matches the stored
// bcrypt hash.
func (s *Store) Authenticate(username, password string) bool {
	s.mu.RLock()
	e := s.entry
	s.mu.RUnlock()
	if e == nil || e.Username != username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)) == nil
}
