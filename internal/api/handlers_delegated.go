// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/palisade/internal/metrics"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/validation"
)

// Delegated operations authorize against the caller's active admin
// roles, so the session itself travels into the resolver.

func (s *Server) handleDelegatedAssign(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	var req assignRoleRequest
	if !bind(w, r, &req) {
		return
	}
	assignment := models.UserRole{Name: req.Name, Constraint: req.Constraint}
	err := s.Delegated.AssignUser(r.Context(), session, chi.URLParam(r, "userID"), assignment)
	metrics.RecordAdminOperation("delegatedAssignUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDelegatedDeassign(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	err := s.Delegated.DeassignUser(r.Context(), session, chi.URLParam(r, "userID"), chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("delegatedDeassignUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDelegatedGrant(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	var req grantRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Delegated.GrantPermission(r.Context(), session, req.ObjName, req.OpName, req.ObjID, req.Role)
	metrics.RecordAdminOperation("delegatedGrantPermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDelegatedRevoke(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	var req grantRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Delegated.RevokePermission(r.Context(), session, req.ObjName, req.OpName, req.ObjID, req.Role)
	metrics.RecordAdminOperation("delegatedRevokePermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleCanAssign(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	userID := nameParam(r, "user")
	roleName := nameParam(r, "role")
	if !validation.ValidEntityName(userID) || !validation.ValidEntityName(roleName) {
		NewResponseWriter(w, r).BadRequest("user and role query parameters are required")
		return
	}
	allowed, err := s.Delegated.CanAssign(r.Context(), session, userID, roleName)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordDelegatedCheck(allowed)
	NewResponseWriter(w, r).Success(map[string]bool{"can_assign": allowed})
}

func (s *Server) handleCanGrant(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	objName := nameParam(r, "obj")
	roleName := nameParam(r, "role")
	if !validation.ValidEntityName(objName) || !validation.ValidEntityName(roleName) {
		NewResponseWriter(w, r).BadRequest("obj and role query parameters are required")
		return
	}
	allowed, err := s.Delegated.CanGrant(r.Context(), session, objName, roleName)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordDelegatedCheck(allowed)
	NewResponseWriter(w, r).Success(map[string]bool{"can_grant": allowed})
}
