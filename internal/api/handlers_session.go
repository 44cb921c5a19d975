// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/palisade/internal/auth"
	"github.com/tomtom215/palisade/internal/metrics"
)

type loginRequest struct {
	UserID     string   `json:"user_id" validate:"required,entname"`
	Password   string   `json:"password" validate:"required"`
	Roles      []string `json:"roles" validate:"omitempty,dive,entname"`
	AdminRoles []string `json:"admin_roles" validate:"omitempty,dive,entname"`
}

type sessionResponse struct {
	Token   string      `json:"token,omitempty"`
	Session interface{} `json:"session"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, &req) {
		return
	}

	if _, err := s.Auth.Authenticate(r.Context(), req.UserID, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrLockedOut):
			metrics.RecordAuthAttempt("locked")
		case errors.Is(err, auth.ErrThrottled):
			metrics.RecordAuthAttempt("throttled")
		default:
			metrics.RecordAuthAttempt("invalid")
		}
		respondError(w, r, err)
		return
	}
	metrics.RecordAuthAttempt("success")

	session, err := s.Access.CreateSession(r.Context(), req.UserID, req.Roles, req.AdminRoles, false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.SessionsCreated.Inc()

	token, err := s.Tokens.Issue(session)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(sessionResponse{Token: token, Session: session})
}

type createSessionRequest struct {
	UserID     string   `json:"user_id" validate:"required,entname"`
	Roles      []string `json:"roles" validate:"omitempty,dive,entname"`
	AdminRoles []string `json:"admin_roles" validate:"omitempty,dive,entname"`
}

// handleCreateSessionTrusted creates a session without credential
// verification. Gated behind the access operator surface.
func (s *Server) handleCreateSessionTrusted(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !bind(w, r, &req) {
		return
	}

	session, err := s.Access.CreateSession(r.Context(), req.UserID, req.Roles, req.AdminRoles, true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.SessionsCreated.Inc()

	token, err := s.Tokens.Issue(session)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(sessionResponse{Token: token, Session: session})
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	NewResponseWriter(w, r).Success(session)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	if err := s.Access.Logout(r.Context(), session.ID); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleSessionRoles(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	roles, err := s.Access.SessionRoles(r.Context(), session.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	adminRoles, err := s.Access.SessionAdminRoles(r.Context(), session.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"roles":       roles,
		"admin_roles": adminRoles,
	})
}

type activateRoleRequest struct {
	Name string `json:"name" validate:"required,entname"`
}

func (s *Server) handleAddActiveRole(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	var req activateRoleRequest
	if !bind(w, r, &req) {
		return
	}
	if err := s.Access.AddActiveRole(r.Context(), session.ID, req.Name); err != nil {
		metrics.RecordRoleActivation(false)
		respondError(w, r, err)
		return
	}
	metrics.RecordRoleActivation(true)
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDropActiveRole(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	if err := s.Access.DropActiveRole(r.Context(), session.ID, chi.URLParam(r, "name")); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleAddActiveAdminRole(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	var req activateRoleRequest
	if !bind(w, r, &req) {
		return
	}
	if err := s.Access.AddActiveAdminRole(r.Context(), session.ID, req.Name); err != nil {
		metrics.RecordRoleActivation(false)
		respondError(w, r, err)
		return
	}
	metrics.RecordRoleActivation(true)
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDropActiveAdminRole(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	if err := s.Access.DropActiveAdminRole(r.Context(), session.ID, chi.URLParam(r, "name")); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleSessionPermissions(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	perms, err := s.Access.SessionPermissions(r.Context(), session.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(perms, len(perms))
}

type checkAccessRequest struct {
	ObjName string `json:"obj_name" validate:"required,entname"`
	OpName  string `json:"op_name" validate:"required,entname"`
	ObjID   string `json:"obj_id" validate:"omitempty,entname"`
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	var req checkAccessRequest
	if !bind(w, r, &req) {
		return
	}
	permitted, err := s.Access.CheckAccess(r.Context(), session.ID, req.ObjName, req.OpName, req.ObjID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordAccessCheck(permitted)
	NewResponseWriter(w, r).Success(map[string]bool{"permitted": permitted})
}

func (s *Server) handleIsUserInRole(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	inRole, err := s.Access.IsUserInRole(r.Context(), session.ID, chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]bool{"in_role": inRole})
}

func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	count, err := s.Access.RevokeUserSessions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]int{"revoked": count})
}
