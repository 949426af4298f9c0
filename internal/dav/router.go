package dav

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/atlasdrive/webdav/internal/auth"
	"github.com/atlasdrive/webdav/internal/config"
)

// NewRouter assembles the full middleware chain and verb dispatch spec §2
// describes: rate limit -> authenticate -> DAV headers -> canonicalize path
// -> recover -> access log -> method handler.
func NewRouter(cfg *config.Config, authenticator *auth.Authenticator, handlers *Handlers, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	byUsername := cfg.RateLimit.Key == config.RateLimitKeyUsername
	r.Use(RateLimit(cfg.RateLimit.WindowMs, cfg.RateLimit.Limit, byUsername))
	r.Use(Authenticate(authenticator))
	r.Use(DAVHeaders)
	r.Use(CanonicalizePath)
	r.Use(Recover(log))
	r.Use(AccessLog(log))

	r.MethodFunc(http.MethodOptions, "/*", handlers.Options)
	r.MethodFunc(http.MethodHead, "/*", handlers.Head)
	r.MethodFunc(http.MethodGet, "/*", handlers.Get)
	r.MethodFunc(http.MethodPut, "/*", handlers.Put)
	r.MethodFunc(http.MethodPost, "/*", handlers.Put)
	r.MethodFunc(http.MethodDelete, "/*", handlers.Delete)
	r.MethodFunc("PROPFIND", "/*", handlers.Propfind)
	r.MethodFunc("PROPPATCH", "/*", handlers.Proppatch)
	r.MethodFunc("MKCOL", "/*", handlers.Mkcol)
	r.MethodFunc("COPY", "/*", handlers.Copy)
	r.MethodFunc("MOVE", "/*", handlers.Move)
	r.MethodFunc("LOCK", "/*", handlers.Lock)
	r.MethodFunc("UNLOCK", "/*", handlers.Unlock)

	return r
}
