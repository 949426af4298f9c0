package dav

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/atlasdrive/webdav/internal/auth"
	"github.com/atlasdrive/webdav/internal/backend/localstore"
	"github.com/atlasdrive/webdav/internal/config"
	"github.com/atlasdrive/webdav/internal/session"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("localstore.New: %v", err)
	}
	mgr := session.NewManager(t.TempDir())
	mgr.Bootstrap("alice", store)

	authenticator, err := auth.New(auth.ModeBasic, &auth.Credential{Username: "alice", Password: "secret"}, false, store, mgr)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}

	cfg := config.Default()
	cfg.RateLimit.Limit = 1000
	cfg.RateLimit.WindowMs = 1000

	log := logrus.New()
	log.SetOutput(noopWriter{})

	handlers := &Handlers{Log: log}
	return NewRouter(cfg, authenticator, handlers, log)
}

func TestRouterRejectsUnauthenticatedRequest(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/f.txt", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Code = %d, want 401", rec.Code)
	}
}

func TestRouterAuthenticatedOptionsSucceeds(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.SetBasicAuth("alice", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, want 200: body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("DAV") != "1, 2" {
		t.Errorf("DAV header = %q, want 1, 2", rec.Header().Get("DAV"))
	}
}

func TestRouterAuthenticatedMkcolAndPropfind(t *testing.T) {
	r := newTestRouter(t)

	mkReq := httptest.NewRequest("MKCOL", "/dir", nil)
	mkReq.SetBasicAuth("alice", "secret")
	mkRec := httptest.NewRecorder()
	r.ServeHTTP(mkRec, mkReq)
	if mkRec.Code != http.StatusCreated {
		t.Fatalf("MKCOL Code = %d, want 201: body=%s", mkRec.Code, mkRec.Body.String())
	}

	pfReq := httptest.NewRequest("PROPFIND", "/dir", nil)
	pfReq.SetBasicAuth("alice", "secret")
	pfRec := httptest.NewRecorder()
	r.ServeHTTP(pfRec, pfReq)
	if pfRec.Code != http.StatusMultiStatus {
		t.Fatalf("PROPFIND Code = %d, want 207: body=%s", pfRec.Code, pfRec.Body.String())
	}
}
