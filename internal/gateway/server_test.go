package gateway

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atlasdrive/webdav/internal/auth"
	"github.com/atlasdrive/webdav/internal/backend/localstore"
	"github.com/atlasdrive/webdav/internal/config"
	"github.com/atlasdrive/webdav/internal/dav"
	"github.com/atlasdrive/webdav/internal/session"
)

// freePort asks the OS for an ephemeral port and immediately releases it,
// so the real gateway.Server can bind the same number a moment later.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("localstore.New: %v", err)
	}
	mgr := session.NewManager(t.TempDir())
	authenticator, err := auth.New(auth.ModeBasic, &auth.Credential{Username: "alice", Password: "secret"}, false, store, mgr)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}

	cfg := config.Default()
	cfg.Hostname = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.User = &auth.Credential{Username: "alice", Password: "secret"}

	handlers := &dav.Handlers{Log: logrus.New()}
	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(cfg, authenticator, handlers, log)
}

// TestServerTracksLiveConnections verifies the ConnState-driven registry
// spec §2/§5(c) requires: every accepted socket is tracked until it closes.
func TestServerTracksLiveConnections(t *testing.T) {
	srv := newTestServer(t)

	go srv.Start()
	waitForListen(t, srv.cfg.Addr())

	conn, err := net.Dial("tcp", srv.cfg.Addr())
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return srv.LiveConnections() == 1 })

	conn.Close()

	waitFor(t, func() bool { return srv.LiveConnections() == 0 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(ctx, false); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// TestServerStopTerminateDestroysLiveSockets verifies spec §5's hard-drain
// path: Stop(ctx, true) closes every registry-tracked connection instead of
// waiting for it to go idle.
func TestServerStopTerminateDestroysLiveSockets(t *testing.T) {
	srv := newTestServer(t)

	go srv.Start()
	waitForListen(t, srv.cfg.Addr())

	conn, err := net.Dial("tcp", srv.cfg.Addr())
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return srv.LiveConnections() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(ctx, true); err != nil {
		t.Fatalf("Stop(terminate): %v", err)
	}

	if got := srv.LiveConnections(); got != 0 {
		t.Errorf("LiveConnections() = %d, want 0 after terminate", got)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected the socket to be closed by Stop(ctx, true)")
	}
}

func waitForListen(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
