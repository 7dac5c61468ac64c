package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment:        "development",
		Timezone:           "Asia/Kolkata",
		BackendURL:         "https://hr.example.com/api",
		BackendTimeout:     5 * time.Second,
		CacheTTL:           time.Minute,
		CacheStaleTTL:      time.Hour,
		ExportDir:          "exports",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://hr.example.com")
	t.Setenv("BACKEND_RETRIES", "2")
	t.Setenv("CACHE_TTL", "not-a-duration")
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.BackendRetries != 2 {
		t.Fatalf("expected 2 retries, got %d", cfg.BackendRetries)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("expected fallback cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.Timezone != "Asia/Kolkata" {
		t.Fatalf("expected IST default, got %q", cfg.Timezone)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing backend", mutate: func(c *Config) { c.BackendURL = "" }, wantErr: true},
		{name: "relative backend", mutate: func(c *Config) { c.BackendURL = "/api" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "production needs secrets", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "production with secrets", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s3cret"
			c.DataEncryptionKey = "k"
		}},
		{name: "negative retries", mutate: func(c *Config) { c.BackendRetries = -1 }, wantErr: true},
		{name: "stale shorter than fresh", mutate: func(c *Config) { c.CacheStaleTTL = time.Second }, wantErr: true},
		{name: "small body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
