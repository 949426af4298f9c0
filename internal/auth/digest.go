package auth

import (
	"net/http"

	"github.com/atlasdrive/webdav/internal/daverr"
	"github.com/atlasdrive/webdav/internal/session"
)

// authenticateDigest delegates nonce/opaque generation and the
// HA1:nonce:nc:cnonce:qop:HA2 comparison (spec §4.2) to go-http-auth, whose
// SecretProvider (wired in New) returns MD5(username:realm:password) — the
// HA1 the spec prescribes.
func (a *Authenticator) authenticateDigest(w http.ResponseWriter, r *http.Request) (*session.State, error) {
	username := a.digest.CheckAuth(r)
	if username == "" {
		a.digest.RequireAuth(w, r)
		return nil, daverr.New("AUTH", daverr.Unauthenticated, nil)
	}

	st, ok := a.Manager.Get(username)
	if !ok {
		st = a.Manager.Bootstrap(username, a.Store)
	}
	return st, nil
}
