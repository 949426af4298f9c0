// Package config defines the strongly-typed settle-point that the serve
// command fills field by field from viper settings (spec §6
// Configuration), gathering the teacher's ad-hoc viper.GetString calls in
// internal/cli/server.go into one validated struct.
package config

import (
	"fmt"

	"github.com/atlasdrive/webdav/internal/auth"
)

// RateLimitKey selects what a rate-limit bucket is keyed by.
type RateLimitKey string

const (
	RateLimitKeyIP       RateLimitKey = "ip"
	RateLimitKeyUsername RateLimitKey = "username"
)

// RateLimit mirrors spec §6's `rateLimit = {windowMs, limit, key}`.
type RateLimit struct {
	WindowMs int
	Limit    int
	Key      RateLimitKey
}

// Config is every knob spec §6 names.
type Config struct {
	Hostname string
	Port     int

	AuthMode auth.Mode
	HTTPS    bool

	User *auth.Credential // nil unless configured; required for digest mode

	// CredentialsFile, when set, backs single-tenant Basic auth with a
	// bcrypt-hashed credential persisted via `atlas credentials` instead of
	// a plaintext User (spec §4.2, §6).
	CredentialsFile string

	ProxyMode bool // multi-tenant: Basic passwords carry backend credentials (spec §4.2)

	RateLimit RateLimit

	TempFilesToStoreOnDisk []string // glob patterns (spec §3, §6)

	DisableLogging bool

	Threads int // cluster worker count (spec §5)

	DataDir     string // local reference backend root (quickstart/tests)
	ScratchDir  string // disk-scratch tier root (spec §6)
	ConfigDir   string // platform config dir for certs/logs (spec §6)
}

// Default returns the configuration defaults spec §6 specifies.
func Default() *Config {
	return &Config{
		Hostname: "127.0.0.1",
		Port:     1900,
		AuthMode: auth.ModeBasic,
		RateLimit: RateLimit{
			WindowMs: 1000,
			Limit:    1000,
			Key:      RateLimitKeyUsername,
		},
		Threads: 1,
	}
}

// Validate enforces the cross-field constraints spec §4.2 and §6 describe.
func (c *Config) Validate() error {
	if c.AuthMode == auth.ModeDigest {
		if c.User == nil {
			return fmt.Errorf("config: authMode=digest requires a configured user")
		}
		if c.ProxyMode {
			return fmt.Errorf("config: digest mode does not support proxy operation")
		}
	}
	if !c.ProxyMode && c.User == nil && c.CredentialsFile == "" {
		return fmt.Errorf("config: single-tenant mode requires a configured user or credentials file")
	}
	if c.RateLimit.Key != RateLimitKeyIP && c.RateLimit.Key != RateLimitKeyUsername {
		return fmt.Errorf("config: rateLimit.key must be %q or %q", RateLimitKeyIP, RateLimitKeyUsername)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}
