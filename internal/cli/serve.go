package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atlasdrive/webdav/internal/auth"
	"github.com/atlasdrive/webdav/internal/backend/localstore"
	"github.com/atlasdrive/webdav/internal/config"
	"github.com/atlasdrive/webdav/internal/dav"
	"github.com/atlasdrive/webdav/internal/gateway"
	"github.com/atlasdrive/webdav/internal/scratch"
	"github.com/atlasdrive/webdav/internal/session"
	"github.com/atlasdrive/webdav/internal/telemetry"
	"github.com/atlasdrive/webdav/pkg/credstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebDAV gateway",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("hostname", "127.0.0.1", "address to listen on")
	flags.Int("port", 1900, "port to listen on")
	flags.String("auth-mode", "basic", `authentication mode: "basic" or "digest"`)
	flags.Bool("https", false, "serve over HTTPS with a self-signed certificate")
	flags.String("user", "", "single-tenant username")
	flags.String("password", "", "single-tenant password (plaintext; required for digest mode)")
	flags.Bool("proxy-mode", false, "multi-tenant mode: Basic credentials carry backend login details")
	flags.Int("rate-limit-window-ms", 1000, "rate limit window, in milliseconds")
	flags.Int("rate-limit", 1000, "requests allowed per rate limit window")
	flags.String("rate-limit-key", "username", `rate limit bucket key: "ip" or "username"`)
	flags.StringSlice("temp-files-to-store-on-disk", nil, "glob patterns routed to the local disk-scratch tier instead of the backend")
	flags.Bool("disable-logging", false, "silence all logging")
	flags.Int("threads", 1, "cluster worker count")
	flags.String("data-dir", "data", "local reference backend root (quickstart/tests)")
	flags.String("config-dir", "", "directory for certs, logs, and the credentials file (default: OS config dir)")

	for _, name := range []string{
		"hostname", "port", "auth-mode", "https", "user", "password", "proxy-mode",
		"rate-limit-window-ms", "rate-limit", "rate-limit-key",
		"temp-files-to-store-on-disk", "disable-logging", "threads", "data-dir", "config-dir",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := telemetry.New(cfg.ConfigDir, cfg.DisableLogging)

	store, err := localstore.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open local backend: %w", err)
	}

	mgr := session.NewManager(cfg.ScratchDir)

	var credStore *credstore.Store
	if cfg.CredentialsFile != "" {
		credStore, err = credstore.Open(cfg.CredentialsFile)
		if err != nil {
			return fmt.Errorf("open credentials file: %w", err)
		}
	}

	authenticator, err := auth.New(cfg.AuthMode, cfg.User, cfg.ProxyMode, store, mgr)
	if err != nil {
		return err
	}
	authenticator.CredStore = credStore

	if !cfg.ProxyMode {
		username := ""
		if cfg.User != nil {
			username = cfg.User.Username
		} else if credStore != nil {
			username, _ = credStore.Username()
		}
		if username != "" {
			mgr.Bootstrap(username, store)
		}
	}

	watcher, err := scratch.Watch(cfg.ScratchDir, log)
	if err != nil {
		log.WithError(err).Warn("scratch tier watch disabled")
	} else {
		defer watcher.Close()
	}

	handlers := &dav.Handlers{TempFileGlobs: cfg.TempFilesToStoreOnDisk, Log: log}
	srv := gateway.New(cfg, authenticator, handlers, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func buildConfig() (*config.Config, error) {
	cfg := config.Default()

	cfg.Hostname = viper.GetString("hostname")
	cfg.Port = viper.GetInt("port")
	if mode := viper.GetString("auth-mode"); mode == string(auth.ModeDigest) {
		cfg.AuthMode = auth.ModeDigest
	} else {
		cfg.AuthMode = auth.ModeBasic
	}
	cfg.HTTPS = viper.GetBool("https")
	cfg.ProxyMode = viper.GetBool("proxy-mode")

	if username := viper.GetString("user"); username != "" {
		cfg.User = &auth.Credential{Username: username, Password: viper.GetString("password")}
	}

	cfg.RateLimit = config.RateLimit{
		WindowMs: viper.GetInt("rate-limit-window-ms"),
		Limit:    viper.GetInt("rate-limit"),
		Key:      config.RateLimitKey(viper.GetString("rate-limit-key")),
	}
	cfg.TempFilesToStoreOnDisk = viper.GetStringSlice("temp-files-to-store-on-disk")
	cfg.DisableLogging = viper.GetBool("disable-logging")
	cfg.Threads = viper.GetInt("threads")
	cfg.DataDir = viper.GetString("data-dir")

	configDir := viper.GetString("config-dir")
	if configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		configDir = filepath.Join(base, "@filen", "webdav")
	}
	cfg.ConfigDir = configDir
	cfg.ScratchDir = filepath.Join(configDir, "tempDiskFiles")
	if cfg.User == nil && !cfg.ProxyMode {
		cfg.CredentialsFile = filepath.Join(configDir, "credentials.json")
	}

	return cfg, nil
}
