package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8000", c.EndpointAddr)
	assert.Equal(t, "directory", c.StorageDir)
	assert.Equal(t, "users.csv", c.CredentialsFile)
	assert.Empty(t, c.DatabaseDSN)
	assert.Empty(t, c.SecretKey)
	assert.Equal(t, 45*time.Minute, c.SessionTTL)
	assert.Equal(t, 10, c.RateLimit)
	assert.Equal(t, 60*time.Second, c.RateInterval)
	assert.Equal(t, 10_000, c.RateLimiterCapacity)
	assert.Equal(t, "pages", c.PagesDir)
	assert.Equal(t, "static", c.StaticDir)
	assert.Equal(t, "ssl/certificate.cer", c.CertificateFile)
	assert.False(t, c.TrustProxy)
	assert.Equal(t, "info", c.LogLevel)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_NoArgsGivesDefaults(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr": ":9000",
		"storage_dir":   "/srv/json",
		"session_ttl":   "90s",
	})

	c, err := LoadConfig([]string{"-c", path, "-f", "/srv/flags"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.EndpointAddr)
	assert.Equal(t, "/srv/flags", c.StorageDir)
	assert.Equal(t, 90*time.Second, c.SessionTTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig([]string{"-l", "0"})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"-c", "/does/not/exist.json"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty address", func(c *Config) { c.EndpointAddr = "" }},
		{"empty storage", func(c *Config) { c.StorageDir = "" }},
		{"no credential source", func(c *Config) { c.CredentialsFile = "" }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"zero limit", func(c *Config) { c.RateLimit = 0 }},
		{"zero interval", func(c *Config) { c.RateInterval = 0 }},
		{"zero capacity", func(c *Config) { c.RateLimiterCapacity = 0 }},
		{"cert without key", func(c *Config) { c.TLSCertFile = "cert.pem" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	var c Config
	c.LoadDefaults()
	c.CredentialsFile = ""
	c.DatabaseDSN = "postgres://localhost/homevault"
	assert.NoError(t, c.Validate())
}
