// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/palisade/config.yaml",
	"/etc/palisade/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix namespaces every environment override, e.g.
// PALISADE_SERVER_PORT or PALISADE_SECURITY_JWT_SECRET.
const EnvPrefix = "PALISADE_"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Directory DirectoryConfig `koanf:"directory"`
	Security  SecurityConfig  `koanf:"security"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSAllowedOrigins is comma-separated in env form.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero
	// disables the limiter.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// DirectoryConfig holds persistence settings for the identity store.
type DirectoryConfig struct {
	Path string `koanf:"path"`

	// InMemory runs Badger without a disk backing. Intended for tests
	// and demos; all state is lost on exit.
	InMemory bool `koanf:"in_memory"`

	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`
}

// SecurityConfig holds authentication and session settings.
type SecurityConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	JWTIssuer string `koanf:"jwt_issuer"`

	SessionTTL      time.Duration `koanf:"session_ttl"`
	SessionJanitor  time.Duration `koanf:"session_janitor_interval"`
	SessionInMemory bool          `koanf:"session_in_memory"`

	BcryptCost int `koanf:"bcrypt_cost"`

	LockoutMaxAttempts int           `koanf:"lockout_max_attempts"`
	LockoutDuration    time.Duration `koanf:"lockout_duration"`
	LockoutBackoff     bool          `koanf:"lockout_backoff"`
	LockoutMaxDuration time.Duration `koanf:"lockout_max_duration"`

	// LoginRate is sustained authentications per second per user;
	// LoginBurst is the burst allowance. Zero rate disables throttling.
	LoginRate  float64 `koanf:"login_rate"`
	LoginBurst int     `koanf:"login_burst"`

	// BootstrapAdmin and BootstrapPassword seed a first operator user
	// holding the super role when the directory is empty. Ignored once
	// any user exists.
	BootstrapAdmin    string `koanf:"bootstrap_admin"`
	BootstrapPassword string `koanf:"bootstrap_password"`
}

// AuditConfig holds decision-trail settings.
type AuditConfig struct {
	// Store selects the audit backend: "memory" or "badger".
	Store string `koanf:"store"`

	// Buffer is the in-flight event channel depth.
	Buffer int64 `koanf:"buffer"`

	// MemoryCapacity bounds the memory store's ring.
	MemoryCapacity int `koanf:"memory_capacity"`

	// Retention is the TTL applied to persisted events. Zero keeps
	// events until Badger GC would otherwise reclaim them.
	Retention time.Duration `koanf:"retention"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8443,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			CORSAllowedOrigins: nil,
			RateLimitRequests:  300,
			RateLimitWindow:    time.Minute,
		},
		Directory: DirectoryConfig{
			Path:           "/data/palisade",
			InMemory:       false,
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Security: SecurityConfig{
			JWTSecret:          "",
			JWTIssuer:          "palisade",
			SessionTTL:         8 * time.Hour,
			SessionJanitor:     time.Minute,
			SessionInMemory:    false,
			BcryptCost:         12,
			LockoutMaxAttempts: 5,
			LockoutDuration:    15 * time.Minute,
			LockoutBackoff:     true,
			LockoutMaxDuration: 24 * time.Hour,
			LoginRate:          1,
			LoginBurst:         5,
		},
		Audit: AuditConfig{
			Store:          "badger",
			Buffer:         1024,
			MemoryCapacity: 10000,
			Retention:      90 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources, lowest priority
// first: built-in defaults, an optional YAML file, then PALISADE_*
// environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps PALISADE_SECTION_KEY_NAME to section.key_name.
// Only the first underscore after the prefix becomes a dot, because
// every config section is a single word.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	return parts[0] + "." + parts[1]
}

// sliceFields lists keys whose env form is a comma-separated string.
var sliceFields = []string{
	"server.cors_allowed_origins",
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, key := range sliceFields {
		raw := k.Get(key)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var values []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		if err := k.Set(key, values); err != nil {
			return fmt.Errorf("split %s: %w", key, err)
		}
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
