package dav

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/atlasdrive/webdav/internal/auth"
	"github.com/atlasdrive/webdav/internal/pathutil"
	"github.com/sirupsen/logrus"
)

// DAVHeaders sets the common response headers spec §6 requires on every
// response, mirroring the teacher's Allow/DAV/Server header block.
func DAVHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Allow", "OPTIONS, GET, HEAD, PUT, DELETE, PROPFIND, PROPPATCH, MKCOL, COPY, MOVE")
		h.Set("DAV", "1, 2")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Expose-Headers", "DAV, content-length, Allow")
		h.Set("MS-Author-Via", "DAV")
		h.Set("Server", "Filen WebDAV")
		h.Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// CanonicalizePath decodes and normalizes r.URL.Path once per request
// (spec §9), storing the result in the request context for every
// downstream handler.
func CanonicalizePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := pathutil.Canonicalize(r.URL.Path)
		if err != nil {
			NewResponseBuilder(w).Empty(http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, withPath(r, p))
	})
}

// Recover converts a panic into a 500 if headers have not been sent yet
// (spec §4.4 "Any unhandled exception yields 500 ... and is logged";
// spec §7 "only if headers have not been sent").
func Recover(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rb := NewResponseBuilder(w)
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logrus.Fields{
						"method": r.Method,
						"path":   r.URL.Path,
						"panic":  rec,
					}).Error(string(debug.Stack()))
					rb.Empty(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate runs the configured Authenticator and binds the resulting
// PerUserState to the request context, or answers 401 (spec §4.2).
func Authenticate(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, err := a.Authenticate(r.Context(), w, r)
			if err != nil {
				NewResponseBuilder(w).Empty(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, withState(r, st))
		})
	}
}

// limiterSet buckets independent token-bucket limiters per rate-limit key
// (spec §6 rateLimit.key, §4.2 "Rate-limit keying").
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newLimiterSet(windowMs, limit int) *limiterSet {
	window := time.Duration(windowMs) * time.Millisecond
	perSecond := float64(limit) / window.Seconds()
	return &limiterSet{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(perSecond),
		burst:    limit,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.r, s.burst)
		s.limiters[key] = l
	}
	s.mu.Unlock()
	return l.Allow()
}

// RateLimit implements the windowMs/limit/key rate limiter of spec §6,
// built on golang.org/x/time/rate token buckets keyed per spec §4.2.
func RateLimit(windowMs, limit int, byUsername bool) func(http.Handler) http.Handler {
	set := newLimiterSet(windowMs, limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.RateLimitKey(r, byUsername)
			if !set.allow(key) {
				NewResponseBuilder(w).Empty(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog writes one structured log line per request after it completes
// (ambient stack: generalizes the teacher's log.Printf Logger callback).
func AccessLog(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusCapture{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			fields := logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			}
			if st := StateFromContext(r); st != nil {
				fields["username"] = st.Username
			}
			log.WithFields(fields).Info(fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		})
	}
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (s *statusCapture) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
