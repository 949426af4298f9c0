package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/atlasdrive/webdav/internal/auth"
	"github.com/atlasdrive/webdav/internal/config"
	"github.com/atlasdrive/webdav/internal/dav"
)

// Server wraps the dav router behind an http.Server, mirroring the
// teacher's internal/server.Server Start/Shutdown lifecycle (spec §5, §6),
// plus the live-connection registry spec §2/§5(c) call for: every accepted
// net.Conn is tracked by uuid via http.Server.ConnState so Stop(terminate)
// can destroy sockets a graceful Shutdown would otherwise wait on.
type Server struct {
	cfg *config.Config
	log *logrus.Logger

	httpServer *http.Server

	connsMu sync.Mutex
	conns   map[string]net.Conn // connection id -> live socket, spec §5(c)
	byConn  map[net.Conn]string
}

// New builds a Server bound to cfg, wiring authenticator and handlers into
// the dav router (spec §2 control flow).
func New(cfg *config.Config, authenticator *auth.Authenticator, handlers *dav.Handlers, log *logrus.Logger) *Server {
	router := dav.NewRouter(cfg, authenticator, handlers, log)
	s := &Server{
		cfg:    cfg,
		log:    log,
		conns:  make(map[string]net.Conn),
		byConn: make(map[net.Conn]string),
	}
	s.httpServer = &http.Server{
		Addr:      cfg.Addr(),
		Handler:   router,
		ConnState: s.trackConnState,
	}
	return s
}

// trackConnState registers or deregisters conn in the live-connection
// registry as net/http reports state transitions (spec §5(c): "the
// listener keeps a registry of live connections by uuid, used by
// stop(terminate=true) to destroy sockets and force drain").
func (s *Server) trackConnState(conn net.Conn, state http.ConnState) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	switch state {
	case http.StateNew:
		id := uuid.NewString()
		s.conns[id] = conn
		s.byConn[conn] = id
	case http.StateClosed, http.StateHijacked:
		if id, ok := s.byConn[conn]; ok {
			delete(s.conns, id)
			delete(s.byConn, conn)
		}
	}
}

// Start begins serving, blocking until Shutdown is called or the listener
// fails. When cfg.HTTPS is set it loads (or mints) the self-signed
// certificate described in spec §6 before listening.
func (s *Server) Start() error {
	if s.cfg.HTTPS {
		cert, err := loadOrGenerateCert(s.cfg.ConfigDir)
		if err != nil {
			return fmt.Errorf("gateway: load TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		s.log.WithField("addr", s.cfg.Addr()).Info("webdav gateway listening (https)")
		if err := s.httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}

	s.log.WithField("addr", s.cfg.Addr()).Info("webdav gateway listening (http)")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests (spec §5 "cluster worker
// lifecycle") without destroying any live socket; it is Stop(ctx, false).
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Stop(ctx, false)
}

// Stop implements the full shutdown contract of spec §5: stop accepting new
// connections, wait for in-flight handlers to finish, and, when terminate
// is set, destroy every still-live socket in the registry instead of
// waiting for it to go idle (spec §5 "if terminate is set, destroy all
// live sockets").
func (s *Server) Stop(ctx context.Context, terminate bool) error {
	if !terminate {
		return s.httpServer.Shutdown(ctx)
	}

	err := s.httpServer.Close()

	s.connsMu.Lock()
	for id, conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, id)
		delete(s.byConn, conn)
	}
	s.connsMu.Unlock()

	return err
}

// LiveConnections returns the number of sockets currently tracked in the
// registry, for diagnostics and tests.
func (s *Server) LiveConnections() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}
