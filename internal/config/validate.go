// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDirectory(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PALISADE_SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server read and write timeouts must be positive")
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("PALISADE_SERVER_RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("PALISADE_SERVER_RATE_LIMIT_WINDOW must be positive when rate limiting is on")
	}
	return nil
}

func (c *Config) validateDirectory() error {
	if !c.Directory.InMemory && c.Directory.Path == "" {
		return fmt.Errorf("PALISADE_DIRECTORY_PATH is required unless PALISADE_DIRECTORY_IN_MEMORY=true")
	}
	if c.Directory.GCDiscardRatio <= 0 || c.Directory.GCDiscardRatio >= 1 {
		return fmt.Errorf("PALISADE_DIRECTORY_GC_DISCARD_RATIO must be in (0, 1), got %g", c.Directory.GCDiscardRatio)
	}
	return nil
}

// minJWTSecretLen matches the HS256 key size recommendation.
const minJWTSecretLen = 32

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("PALISADE_SECURITY_JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("PALISADE_SECURITY_JWT_SECRET must be at least %d bytes, got %d", minJWTSecretLen, len(c.Security.JWTSecret))
	}
	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("PALISADE_SECURITY_SESSION_TTL must be positive")
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("PALISADE_SECURITY_BCRYPT_COST must be %d-%d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Security.BcryptCost)
	}
	if c.Security.LockoutMaxAttempts < 0 {
		return fmt.Errorf("PALISADE_SECURITY_LOCKOUT_MAX_ATTEMPTS must not be negative")
	}
	if c.Security.LoginRate < 0 {
		return fmt.Errorf("PALISADE_SECURITY_LOGIN_RATE must not be negative")
	}
	if c.Security.BootstrapAdmin != "" && len(c.Security.BootstrapPassword) < 8 {
		return fmt.Errorf("PALISADE_SECURITY_BOOTSTRAP_PASSWORD must be at least 8 characters")
	}
	return nil
}

func (c *Config) validateAudit() error {
	switch c.Audit.Store {
	case "memory", "badger":
	default:
		return fmt.Errorf("PALISADE_AUDIT_STORE must be \"memory\" or \"badger\", got %q", c.Audit.Store)
	}
	if c.Audit.Buffer <= 0 {
		return fmt.Errorf("PALISADE_AUDIT_BUFFER must be positive")
	}
	if c.Audit.Store == "memory" && c.Audit.MemoryCapacity <= 0 {
		return fmt.Errorf("PALISADE_AUDIT_MEMORY_CAPACITY must be positive")
	}
	if c.Audit.Retention < 0 {
		return fmt.Errorf("PALISADE_AUDIT_RETENTION must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("PALISADE_LOGGING_LEVEL must be a zerolog level, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("PALISADE_LOGGING_FORMAT must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	return nil
}
