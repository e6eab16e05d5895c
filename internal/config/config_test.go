package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:        "8375",
		Env:         "development",
		DataBackend: BackendPostgres,
		DBPassword:  "password",
		DBSSLMode:   "disable",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown backend", func(c *Config) { c.DataBackend = "mongo" }, true},
		{"sqlite backend", func(c *Config) { c.DataBackend = BackendSQLite }, false},
		{"rest backend without url", func(c *Config) {
			c.DataBackend = BackendREST
			c.RESTAPIKey = "anon"
		}, true},
		{"rest backend without key", func(c *Config) {
			c.DataBackend = BackendREST
			c.RESTURL = "https://example.supabase.co"
		}, true},
		{"rest backend complete", func(c *Config) {
			c.DataBackend = BackendREST
			c.RESTURL = "https://example.supabase.co"
			c.RESTAPIKey = "anon"
		}, false},
		{"negative rate limit", func(c *Config) { c.RateLimitWrites = -1 }, true},
		{"production with default password", func(c *Config) { c.Env = "production" }, true},
		{"production with strong password", func(c *Config) {
			c.Env = "prod"
			c.DBPassword = "a-much-better-password"
		}, false},
		{"production on rest ignores db password", func(c *Config) {
			c.Env = "production"
			c.DataBackend = BackendREST
			c.RESTURL = "https://example.supabase.co"
			c.RESTAPIKey = "anon"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9100")
	t.Setenv("DATA_BACKEND", BackendSQLite)
	t.Setenv("SQLITE_PATH", ":memory:")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, BackendSQLite, cfg.DataBackend)
	assert.Equal(t, ":memory:", cfg.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 30, cfg.RateLimitWrites)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_RejectsInvalidBackend(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATA_BACKEND", "mongo")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_BACKEND")
}
