// Package auth implements Authenticator (spec §4.2): Basic (single-tenant
// or proxy) and Digest (single-tenant only) authentication, binding a
// username onto each request and driving PerUserState construction via
// session.Manager.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	httpauth "github.com/abbot/go-http-auth"

	"github.com/atlasdrive/webdav/internal/backend"
	"github.com/atlasdrive/webdav/internal/daverr"
	"github.com/atlasdrive/webdav/internal/session"
	"github.com/atlasdrive/webdav/pkg/credstore"
)

// Mode selects the authentication scheme (spec §4.2).
type Mode string

const (
	ModeBasic  Mode = "basic"
	ModeDigest Mode = "digest"
)

// Realm is the fixed realm string spec §4.2 uses in every WWW-Authenticate
// challenge.
const Realm = "Default realm"

// Credential is a configured single-tenant username/password pair (spec
// §6 Configuration: `user = {username, password, ...}`).
type Credential struct {
	Username string
	Password string
}

// Authenticator dispatches to the configured mode and returns the
// PerUserState bound to the request.
type Authenticator struct {
	Mode       Mode
	SingleUser *Credential // nil in proxy mode
	ProxyMode  bool

	Store   backend.Store
	Manager *session.Manager

	// CredStore backs single-tenant Basic auth with a bcrypt-hashed
	// credential persisted via `atlas credentials` when SingleUser itself
	// isn't configured with a plaintext password (spec §4.2, §6).
	CredStore *credstore.Store

	digest *httpauth.DigestAuth
}

// New validates the mode/credential combination (spec §6: "authMode=digest
// requires user to be set"; spec §4.2: "proxy+digest is refused at
// construction") and builds an Authenticator.
func New(mode Mode, single *Credential, proxyMode bool, store backend.Store, mgr *session.Manager) (*Authenticator, error) {
	if mode == ModeDigest && proxyMode {
		return nil, errors.New("auth: digest mode does not support proxy (multi-tenant) operation")
	}
	if mode == ModeDigest && single == nil {
		return nil, errors.New("auth: digest mode requires a configured user")
	}

	a := &Authenticator{Mode: mode, SingleUser: single, ProxyMode: proxyMode, Store: store, Manager: mgr}

	if mode == ModeDigest {
		secret := func(user, realm string) string {
			if single == nil || user != single.Username || realm != Realm {
				return ""
			}
			return httpauth.MD5(fmt.Sprintf("%s:%s:%s", user, realm, single.Password))
		}
		a.digest = httpauth.NewDigestAuthenticator(Realm, secret)
	}

	return a, nil
}

// Authenticate validates r's credentials and returns the bound
// PerUserState, or a *daverr.Error (Kind=Unauthenticated) on failure.
func (a *Authenticator) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.State, error) {
	switch a.Mode {
	case ModeDigest:
		return a.authenticateDigest(w, r)
	default:
		if a.ProxyMode {
			return a.authenticateProxyBasic(ctx, r)
		}
		return a.authenticateSingleBasic(w, r)
	}
}

func (a *Authenticator) authenticateSingleBasic(w http.ResponseWriter, r *http.Request) (*session.State, error) {
	username, password, ok := r.BasicAuth()
	if !ok || !a.verifySingle(username, password) {
		challengeBasic(w)
		return nil, daverr.New("AUTH", daverr.Unauthenticated, nil)
	}
	st, stateOk := a.Manager.Get(username)
	if !stateOk {
		st = a.Manager.Bootstrap(username, a.Store)
	}
	return st, nil
}

// verifySingle checks username/password against the configured plaintext
// credential when present, falling back to the bcrypt-hashed CredStore
// entry (spec §4.2, §6: either form may configure single-tenant Basic).
func (a *Authenticator) verifySingle(username, password string) bool {
	if a.SingleUser != nil {
		return constantTimeEqual(username, a.SingleUser.Username) && constantTimeEqual(password, a.SingleUser.Password)
	}
	if a.CredStore != nil {
		return a.CredStore.Authenticate(username, password)
	}
	return false
}

func challengeBasic(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q, charset="UTF-8"`, Realm))
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RateLimitKey returns the key rate limiting should bucket by: the client
// IP, or (when configured) the username parsed from the Authorization
// header without performing a full authentication (spec §4.2 "Rate-limit
// keying").
func RateLimitKey(r *http.Request, byUsername bool) string {
	if !byUsername {
		return clientIP(r)
	}
	if u, _, ok := r.BasicAuth(); ok {
		if i := strings.IndexByte(u, '@'); i >= 0 {
			return u
		}
		return u
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	if i := strings.LastIndexByte(r.RemoteAddr, ':'); i >= 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
