// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package metrics registers the Prometheus instrumentation for the
// service: API latency, authentication outcomes, session lifecycle,
// access decisions, and the audit pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "palisade_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palisade_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Authentication metrics.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_auth_attempts_total",
			Help: "Authentication attempts by result",
		},
		[]string{"result"}, // success, invalid, locked, throttled
	)

	// Session metrics.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palisade_sessions_created_total",
			Help: "Total sessions created",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palisade_sessions_active",
			Help: "Current number of live sessions",
		},
	)

	RoleActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_role_activations_total",
			Help: "Role activation attempts within sessions",
		},
		[]string{"outcome"}, // activated, denied
	)

	// Decision metrics.
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_access_checks_total",
			Help: "checkAccess decisions",
		},
		[]string{"decision"}, // permit, deny
	)

	AdminOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_admin_operations_total",
			Help: "Administrative mutations by operation and outcome",
		},
		[]string{"operation", "outcome"}, // accepted, rejected
	)

	DelegatedChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_delegated_checks_total",
			Help: "ARBAC delegation checks",
		},
		[]string{"decision"}, // permit, deny
	)

	SDViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_sd_violations_total",
			Help: "Separation of duty rejections by kind",
		},
		[]string{"kind"}, // static, dynamic
	)

	// Audit pipeline metrics.
	AuditEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palisade_audit_events_published_total",
			Help: "Audit events accepted onto the bus",
		},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palisade_audit_events_dropped_total",
			Help: "Audit events lost before persistence",
		},
	)

	AuditEventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palisade_audit_events_persisted_total",
			Help: "Audit events written to the store",
		},
	)

	// Store metrics.
	BadgerGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palisade_badger_gc_runs_total",
			Help: "Badger value-log GC attempts",
		},
		[]string{"result"}, // reclaimed, noop, error
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuthAttempt records an authentication outcome.
func RecordAuthAttempt(result string) {
	AuthAttempts.WithLabelValues(result).Inc()
}

// RecordAccessCheck records a checkAccess decision.
func RecordAccessCheck(permitted bool) {
	if permitted {
		AccessChecks.WithLabelValues("permit").Inc()
	} else {
		AccessChecks.WithLabelValues("deny").Inc()
	}
}

// RecordAdminOperation records an administrative mutation outcome.
func RecordAdminOperation(operation string, err error) {
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	AdminOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordDelegatedCheck records an ARBAC delegation decision.
func RecordDelegatedCheck(permitted bool) {
	if permitted {
		DelegatedChecks.WithLabelValues("permit").Inc()
	} else {
		DelegatedChecks.WithLabelValues("deny").Inc()
	}
}

// RecordRoleActivation records a role activation attempt.
func RecordRoleActivation(activated bool) {
	if activated {
		RoleActivations.WithLabelValues("activated").Inc()
	} else {
		RoleActivations.WithLabelValues("denied").Inc()
	}
}

// RecordSDViolation records a separation of duty rejection.
func RecordSDViolation(kind string) {
	SDViolations.WithLabelValues(kind).Inc()
}

// UpdateActiveSessions sets the live session gauge.
func UpdateActiveSessions(n int) {
	SessionsActive.Set(float64(n))
}
