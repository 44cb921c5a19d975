// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/authz"
	"github.com/tomtom215/palisade/internal/logging"
	"github.com/tomtom215/palisade/internal/metrics"
	"github.com/tomtom215/palisade/internal/models"
)

type sessionKey struct{}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*models.Session)
	return session, ok
}

// ContextWithSession attaches a session. Exposed for handler tests.
func ContextWithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// RequestIDWithLogging stamps a request ID and a fresh correlation ID
// into the context so every log line and audit event from the request
// can be tied together.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecurityHeaders adds the standard hardening headers. CSP is omitted
// since the service serves no HTML.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Instrument records request counts, latency, and the in-flight gauge.
func Instrument() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.TrackActiveRequest(true)
			defer metrics.TrackActiveRequest(false)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// The matched pattern keeps label cardinality bounded;
			// unmatched requests fall back to the raw path.
			endpoint := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					endpoint = pattern
				}
			}
			metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}

// MiddlewareConfig tunes the CORS and rate limiting factories.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
}

// Middleware bundles the chi ecosystem middleware for the router.
type Middleware struct {
	config MiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewMiddleware builds the middleware factory.
func NewMiddleware(config MiddlewareConfig) *Middleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
	return &Middleware{config: config, cors: corsHandler}
}

// CORS returns the configured CORS middleware.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP limiter. Zero requests disables
// it.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.config.RateLimitRequests <= 0 {
		return passthrough
	}
	return httprate.Limit(
		m.config.RateLimitRequests,
		m.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
}

// RateLimitLogin is the strict limiter on the credential endpoint.
func (m *Middleware) RateLimitLogin() func(http.Handler) http.Handler {
	return httprate.Limit(
		10, 5*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
}

func passthrough(next http.Handler) http.Handler { return next }

func rateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
	NewResponseWriter(w, r).TooManyRequests("rate limit exceeded")
}

// SessionResolver is the slice of the access controller the
// authentication middleware needs.
type SessionResolver interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// Authenticate validates the bearer token, resolves the live session,
// and stamps the session and audit actor into the context. Requests
// without a valid token and session stop here.
func Authenticate(tokens *TokenManager, sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				NewResponseWriter(w, r).Unauthorized("missing bearer token")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				NewResponseWriter(w, r).Unauthorized("invalid token")
				return
			}

			session, err := sessions.GetSession(r.Context(), claims.SessionID)
			if err != nil {
				respondError(w, r, err)
				return
			}
			if session.UserID != claims.UserID {
				NewResponseWriter(w, r).Unauthorized("token does not match session")
				return
			}

			ctx := ContextWithSession(r.Context(), session)
			ctx = audit.ContextWithActor(ctx, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSurface gates a route group behind the operator-role policy.
// The caller's active RBAC role names are the Casbin subjects.
func RequireSurface(enforcer *authz.Enforcer, object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				NewResponseWriter(w, r).Unauthorized("authentication required")
				return
			}

			allowed, err := enforcer.EnforceAny(session.ActiveRoleNames(), object, action)
			if err != nil {
				respondError(w, r, err)
				return
			}
			if !allowed {
				logging.CtxWarn(r.Context()).
					Str("user_id", session.UserID).
					Str("object", object).
					Str("action", action).
					Msg("Operator surface denied")
				NewResponseWriter(w, r).Forbidden("operator role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
