package dav

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func noopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDAVHeadersSetsAllowAndDAV(t *testing.T) {
	h := DAVHeaders(noopHandler())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Header().Get("DAV") != "1, 2" {
		t.Errorf("DAV header = %q, want 1, 2", rec.Header().Get("DAV"))
	}
	if rec.Header().Get("Allow") == "" {
		t.Error("expected a non-empty Allow header")
	}
}

func TestCanonicalizePathStripsTrailingSlash(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PathFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
	h := CanonicalizePath(next)
	r := httptest.NewRequest(http.MethodGet, "/a/b/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if got != "/a/b" {
		t.Errorf("canonicalized path = %q, want /a/b", got)
	}
}

func TestCanonicalizePathDecodesPercentEscapes(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PathFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
	h := CanonicalizePath(next)
	r := httptest.NewRequest(http.MethodGet, "/a%20b", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if got != "/a b" {
		t.Errorf("canonicalized path = %q, want /a b", got)
	}
}

func TestRecoverConvertsPanicTo500(t *testing.T) {
	log := logrus.New()
	log.SetOutput(noopWriter{})
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := Recover(log)(panicking)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500 after a recovered panic", rec.Code)
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRateLimitBlocksBeyondBurst(t *testing.T) {
	h := RateLimit(1000, 1, false)(noopHandler())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1"

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, r)
	if rec1.Code != http.StatusOK {
		t.Fatalf("first request Code = %d, want 200", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, r)
	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("second request Code = %d, want 429", rec2.Code)
	}
}
