// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package audit records every accept/reject decision made by the
// separation-of-duty engine, the delegation resolver, and the session
// activation controller, plus all administrative mutations.
//
// Events flow through an in-process Watermill pub/sub bus so persistence
// never sits on the decision path: engines publish fire-and-forget, and a
// supervised subscriber drains the bus into the store.
package audit

import (
	"time"
)

// Outcome indicates whether a decision accepted or rejected the action.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// Event is one audited decision. Format concerns (serialization,
// retention) belong to this package alone; the engines only supply the
// fields.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Name is the operation name (e.g. "assignUser", "createSession",
	// "canAssign").
	Name string `json:"name"`

	// Outcome of the decision.
	Outcome Outcome `json:"outcome"`

	// Timestamp when the decision was made.
	Timestamp time.Time `json:"timestamp"`

	// Actor is the identity that requested the action: the admin user for
	// administrative operations, the subject user for session operations.
	Actor string `json:"actor"`

	// Target names what was acted upon (role, user, permission key).
	Target string `json:"target,omitempty"`

	// Reason carries the rejection cause, empty on accept.
	Reason string `json:"reason,omitempty"`

	// CorrelationID links the event to the originating request.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// QueryFilter selects events from the store. Zero fields match all.
type QueryFilter struct {
	Name    string
	Actor   string
	Outcome Outcome
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Matches reports whether the event passes the filter.
func (f *QueryFilter) Matches(e *Event) bool {
	if f.Name != "" && e.Name != f.Name {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}
