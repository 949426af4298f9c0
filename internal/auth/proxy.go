package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/atlasdrive/webdav/internal/daverr"
	"github.com/atlasdrive/webdav/internal/session"
)

// authenticateProxyBasic implements spec §4.2 "Basic, proxy": the password
// is itself a small encoded payload, `password=<secret>[&twoFactorAuthentication=<otp>]`,
// carrying the real backend credential. A per-username mutex (inside
// session.Manager.LoginOrReuse) serializes first login.
func (a *Authenticator) authenticateProxyBasic(ctx context.Context, r *http.Request) (*session.State, error) {
	username, rawPassword, ok := r.BasicAuth()
	if !ok || !strings.Contains(username, "@") || !strings.HasPrefix(rawPassword, "password=") {
		return nil, daverr.New("AUTH", daverr.Unauthenticated, nil)
	}

	secret, otp := parseProxyPassword(rawPassword)

	st, err := a.Manager.LoginOrReuse(ctx, a.Store, username, rawPassword, secret, otp)
	if err != nil {
		a.Manager.Evict(username)
		return nil, daverr.New("AUTH", daverr.Unauthenticated, err)
	}
	return st, nil
}

// parseProxyPassword splits `password=<secret>&twoFactorAuthentication=<otp>`
// into its two parts (spec §4.2).
func parseProxyPassword(raw string) (secret, otp string) {
	raw = strings.TrimPrefix(raw, "password=")
	parts := strings.SplitN(raw, "&", 2)
	secret = parts[0]
	if len(parts) == 2 && strings.HasPrefix(parts[1], "twoFactorAuthentication=") {
		otp = strings.TrimPrefix(parts[1], "twoFactorAuthentication=")
	}
	return secret, otp
}
