// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PALISADE_SECURITY_JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8443 {
		t.Errorf("port = %d, want 8443", cfg.Server.Port)
	}
	if cfg.Security.SessionTTL != 8*time.Hour {
		t.Errorf("session ttl = %v", cfg.Security.SessionTTL)
	}
	if cfg.Audit.Store != "badger" {
		t.Errorf("audit store = %q", cfg.Audit.Store)
	}
	if cfg.Server.Addr() != "0.0.0.0:8443" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Fatal("missing JWT secret must fail validation")
	}
	t.Setenv("PALISADE_SECURITY_JWT_SECRET", "short")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "at least") {
		t.Fatalf("short JWT secret: got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PALISADE_SECURITY_JWT_SECRET", testSecret)
	t.Setenv("PALISADE_SERVER_PORT", "9000")
	t.Setenv("PALISADE_SECURITY_SESSION_TTL", "30m")
	t.Setenv("PALISADE_DIRECTORY_IN_MEMORY", "true")
	t.Setenv("PALISADE_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Security.SessionTTL != 30*time.Minute {
		t.Errorf("session ttl = %v", cfg.Security.SessionTTL)
	}
	if !cfg.Directory.InMemory {
		t.Error("in_memory override lost")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSAllowedOrigins) != 2 ||
		cfg.Server.CORSAllowedOrigins[0] != want[0] ||
		cfg.Server.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSAllowedOrigins, want)
	}
}

func TestConfigFileLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  port: 7070\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PALISADE_SECURITY_JWT_SECRET", testSecret)
	// Env still outranks the file.
	t.Setenv("PALISADE_LOGGING_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070 from file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want env to win", cfg.Logging.Level)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"PALISADE_SERVER_PORT", "server.port"},
		{"PALISADE_SECURITY_JWT_SECRET", "security.jwt_secret"},
		{"PALISADE_AUDIT_MEMORY_CAPACITY", "audit.memory_capacity"},
		{"PALISADE_LOGGING_LEVEL", "logging.level"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		c := defaultConfig()
		c.Security.JWTSecret = testSecret
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no directory path", func(c *Config) { c.Directory.Path = ""; c.Directory.InMemory = false }},
		{"bad gc ratio", func(c *Config) { c.Directory.GCDiscardRatio = 1.5 }},
		{"zero session ttl", func(c *Config) { c.Security.SessionTTL = 0 }},
		{"bad bcrypt cost", func(c *Config) { c.Security.BcryptCost = 99 }},
		{"bad audit store", func(c *Config) { c.Audit.Store = "postgres" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}
