// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the homevault server.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP(S) endpoint.
//   - StorageDir: root under which every user gets a directory.
//   - CredentialsFile: pipe-delimited username|hash file, used when DatabaseDSN is empty.
//   - DatabaseDSN: PostgreSQL DSN (pgx); when set, credentials come from the database.
//   - SecretKey: HMAC secret for session tokens. Empty means a random key per process.
//   - SessionTTL: lifetime of the session cookie and its token.
//   - RateLimit / RateInterval: requests allowed per client per window.
//   - RateLimiterCapacity: number of client addresses the limiter tracks.
//   - PagesDir / StaticDir: login and index pages, static assets.
//   - CertificateFile: certificate offered on /certificate.
//   - TLSCertFile / TLSKeyFile: serve HTTPS when both are set.
//   - TrustProxy: take client addresses from proxy headers.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddr        string
	StorageDir          string
	CredentialsFile     string
	DatabaseDSN         string
	SecretKey           string
	SessionTTL          time.Duration
	RateLimit           int
	RateInterval        time.Duration
	RateLimiterCapacity int
	PagesDir            string
	StaticDir           string
	CertificateFile     string
	TLSCertFile         string
	TLSKeyFile          string
	TrustProxy          bool
	LogLevel            string
}

// LoadDefaults populates Config with the values the server runs with when
// nothing else is configured.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8000"
	c.StorageDir = "directory"
	c.CredentialsFile = "users.csv"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.SessionTTL = 45 * time.Minute
	c.RateLimit = 10
	c.RateInterval = 60 * time.Second
	c.RateLimiterCapacity = 10_000
	c.PagesDir = "pages"
	c.StaticDir = "static"
	c.CertificateFile = "ssl/certificate.cer"
	c.TLSCertFile = ""
	c.TLSKeyFile = ""
	c.TrustProxy = false
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. args are
// the command-line arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.EndpointAddr == "":
		return fmt.Errorf("config: endpoint address is empty")
	case c.StorageDir == "":
		return fmt.Errorf("config: storage directory is empty")
	case c.DatabaseDSN == "" && c.CredentialsFile == "":
		return fmt.Errorf("config: neither credentials file nor database DSN is set")
	case c.SessionTTL <= 0:
		return fmt.Errorf("config: session ttl must be positive, got %s", c.SessionTTL)
	case c.RateLimit <= 0:
		return fmt.Errorf("config: rate limit must be positive, got %d", c.RateLimit)
	case c.RateInterval <= 0:
		return fmt.Errorf("config: rate interval must be positive, got %s", c.RateInterval)
	case c.RateLimiterCapacity <= 0:
		return fmt.Errorf("config: rate limiter capacity must be positive, got %d", c.RateLimiterCapacity)
	case (c.TLSCertFile == "") != (c.TLSKeyFile == ""):
		return fmt.Errorf("config: TLS needs both certificate and key file")
	}
	return nil
}
