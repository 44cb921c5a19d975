// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/palisade/internal/access"
	"github.com/tomtom215/palisade/internal/admin"
	"github.com/tomtom215/palisade/internal/arbac"
	"github.com/tomtom215/palisade/internal/auth"
	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/logging"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/sod"
	"github.com/tomtom215/palisade/internal/temporal"
)

// respondError translates a domain error into the HTTP envelope. The
// mapping is deliberately coarse: the envelope carries the error text,
// the status code groups errors by what the client should do next.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	switch {
	// Missing things.
	case errors.Is(err, directory.ErrNotFound),
		errors.Is(err, hierarchy.ErrNotFound),
		errors.Is(err, sod.ErrSetNotFound),
		errors.Is(err, access.ErrSessionNotFound):
		rw.NotFound(err.Error())

	// Things that already exist or conflict with current state.
	case errors.Is(err, directory.ErrAlreadyExists),
		errors.Is(err, hierarchy.ErrAlreadyExists),
		errors.Is(err, hierarchy.ErrAlreadyRelated),
		errors.Is(err, sod.ErrSetExists),
		errors.Is(err, admin.ErrAlreadyAssigned),
		errors.Is(err, admin.ErrAlreadyGranted),
		errors.Is(err, access.ErrRoleAlreadyActive),
		errors.Is(err, sod.ErrViolation):
		rw.Conflict(err.Error())

	// Malformed or inconsistent requests.
	case errors.Is(err, hierarchy.ErrCycleDetected),
		errors.Is(err, hierarchy.ErrNotRelated),
		errors.Is(err, sod.ErrInvalidCardinality),
		errors.Is(err, sod.ErrCardinalityTooHigh),
		errors.Is(err, sod.ErrRoleNotFound),
		errors.Is(err, models.ErrInvalidConstraint),
		errors.Is(err, admin.ErrInvalidRange),
		errors.Is(err, admin.ErrOrgUnitInUse),
		errors.Is(err, admin.ErrNotAssigned),
		errors.Is(err, admin.ErrNotGranted),
		errors.Is(err, access.ErrRoleNotActive):
		rw.BadRequest(err.Error())

	// Authentication failures.
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, access.ErrSessionExpired):
		rw.Unauthorized(err.Error())

	case errors.Is(err, auth.ErrLockedOut):
		rw.Error(http.StatusForbidden, ErrCodeLocked, err.Error())

	case errors.Is(err, auth.ErrThrottled):
		rw.TooManyRequests(err.Error())

	// Policy denials.
	case errors.Is(err, temporal.ErrViolation),
		errors.Is(err, access.ErrUserDisabled),
		errors.Is(err, access.ErrUserLocked),
		errors.Is(err, access.ErrRoleNotAssigned),
		errors.Is(err, arbac.ErrSessionInvalid),
		errors.Is(err, arbac.ErrOutOfRange):
		rw.Forbidden(err.Error())

	default:
		logging.CtxErr(r.Context(), err).Str("path", r.URL.Path).Msg("Unhandled error")
		rw.InternalError("internal error")
	}
}
