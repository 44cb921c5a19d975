// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"net/http"
)

// handleGetConfig reports the effective runtime configuration. Secrets
// (JWT secret, bootstrap credentials) are never included; the view is
// rebuilt field by field so a new config key cannot leak by default.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.Config == nil {
		NewResponseWriter(w, r).NotFound("configuration not available")
		return
	}
	cfg := s.Config
	view := map[string]interface{}{
		"server": map[string]interface{}{
			"addr":                 cfg.Server.Addr(),
			"read_timeout":         cfg.Server.ReadTimeout.String(),
			"write_timeout":        cfg.Server.WriteTimeout.String(),
			"idle_timeout":         cfg.Server.IdleTimeout.String(),
			"shutdown_timeout":     cfg.Server.ShutdownTimeout.String(),
			"cors_allowed_origins": cfg.Server.CORSAllowedOrigins,
			"rate_limit_requests":  cfg.Server.RateLimitRequests,
			"rate_limit_window":    cfg.Server.RateLimitWindow.String(),
		},
		"directory": map[string]interface{}{
			"path":             cfg.Directory.Path,
			"in_memory":        cfg.Directory.InMemory,
			"gc_interval":      cfg.Directory.GCInterval.String(),
			"gc_discard_ratio": cfg.Directory.GCDiscardRatio,
		},
		"security": map[string]interface{}{
			"jwt_issuer":               cfg.Security.JWTIssuer,
			"session_ttl":              cfg.Security.SessionTTL.String(),
			"session_janitor_interval": cfg.Security.SessionJanitor.String(),
			"session_in_memory":        cfg.Security.SessionInMemory,
			"bcrypt_cost":              cfg.Security.BcryptCost,
			"lockout_max_attempts":     cfg.Security.LockoutMaxAttempts,
			"lockout_duration":         cfg.Security.LockoutDuration.String(),
			"login_rate":               cfg.Security.LoginRate,
			"login_burst":              cfg.Security.LoginBurst,
		},
		"audit": map[string]interface{}{
			"store":           cfg.Audit.Store,
			"buffer":          cfg.Audit.Buffer,
			"memory_capacity": cfg.Audit.MemoryCapacity,
			"retention":       cfg.Audit.Retention.String(),
		},
		"logging": map[string]interface{}{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"caller": cfg.Logging.Caller,
		},
	}
	NewResponseWriter(w, r).Success(view)
}
