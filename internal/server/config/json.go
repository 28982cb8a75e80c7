package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/homevault/internal/flagx"
	"github.com/dmitrijs2005/homevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// Pointer fields tell "absent" apart from the zero value, so a file only
// overrides what it mentions.
type JsonConfig struct {
	EndpointAddr        *string         `json:"endpoint_addr"`
	StorageDir          *string         `json:"storage_dir"`
	CredentialsFile     *string         `json:"credentials_file"`
	DatabaseDSN         *string         `json:"database_dsn"`
	SecretKey           *string         `json:"secret_key"`
	SessionTTL          *timex.Duration `json:"session_ttl"`
	RateLimit           *int            `json:"rate_limit"`
	RateInterval        *timex.Duration `json:"rate_interval"`
	RateLimiterCapacity *int            `json:"rate_limiter_capacity"`
	PagesDir            *string         `json:"pages_dir"`
	StaticDir           *string         `json:"static_dir"`
	CertificateFile     *string         `json:"certificate_file"`
	TLSCertFile         *string         `json:"tls_cert_file"`
	TLSKeyFile          *string         `json:"tls_key_file"`
	TrustProxy          *bool           `json:"trust_proxy"`
	LogLevel            *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag in args into config. Without the flag nothing happens.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.StorageDir, c.StorageDir)
	setString(&config.CredentialsFile, c.CredentialsFile)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.PagesDir, c.PagesDir)
	setString(&config.StaticDir, c.StaticDir)
	setString(&config.CertificateFile, c.CertificateFile)
	setString(&config.TLSCertFile, c.TLSCertFile)
	setString(&config.TLSKeyFile, c.TLSKeyFile)
	setString(&config.LogLevel, c.LogLevel)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.RateInterval != nil {
		config.RateInterval = c.RateInterval.Duration
	}
	if c.RateLimit != nil {
		config.RateLimit = *c.RateLimit
	}
	if c.RateLimiterCapacity != nil {
		config.RateLimiterCapacity = *c.RateLimiterCapacity
	}
	if c.TrustProxy != nil {
		config.TrustProxy = *c.TrustProxy
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
