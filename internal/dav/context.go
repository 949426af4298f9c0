package dav

import (
	"context"
	"net/http"

	"github.com/atlasdrive/webdav/internal/session"
)

type ctxKey int

const (
	ctxKeyState ctxKey = iota
	ctxKeyPath
)

func withState(r *http.Request, st *session.State) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKeyState, st))
}

// StateFromContext returns the PerUserState the auth middleware bound to
// this request.
func StateFromContext(r *http.Request) *session.State {
	st, _ := r.Context().Value(ctxKeyState).(*session.State)
	return st
}

func withPath(r *http.Request, p string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKeyPath, p))
}

// PathFromContext returns the canonicalized request path computed by the
// body-framing middleware (spec §9 "Path canonicalization").
func PathFromContext(r *http.Request) string {
	p, _ := r.Context().Value(ctxKeyPath).(string)
	return p
}
