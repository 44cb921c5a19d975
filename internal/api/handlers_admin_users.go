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
)

type userRequest struct {
	UserID      string            `json:"user_id" validate:"required,entname"`
	OU          string            `json:"ou" validate:"required,entname"`
	Description string            `json:"description" validate:"omitempty,max=256"`
	Password    string            `json:"password" validate:"omitempty,min=8,max=128"`
	Constraint  models.Constraint `json:"constraint"`
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !bind(w, r, &req) {
		return
	}
	user := models.User{
		UserID:      req.UserID,
		OU:          req.OU,
		Description: req.Description,
		Constraint:  req.Constraint,
	}
	err := s.Admin.AddUser(r.Context(), user, req.Password)
	metrics.RecordAdminOperation("addUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user.PasswordHash = ""
	NewResponseWriter(w, r).Created(user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !bind(w, r, &req) {
		return
	}
	user := models.User{
		UserID:      chi.URLParam(r, "userID"),
		OU:          req.OU,
		Description: req.Description,
		Constraint:  req.Constraint,
	}
	err := s.Admin.UpdateUser(r.Context(), user)
	metrics.RecordAdminOperation("updateUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DeleteUser(r.Context(), chi.URLParam(r, "userID"))
	metrics.RecordAdminOperation("deleteUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDisableUser(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DisableUser(r.Context(), chi.URLParam(r, "userID"))
	metrics.RecordAdminOperation("disableUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleEnableUser(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.EnableUser(r.Context(), chi.URLParam(r, "userID"))
	metrics.RecordAdminOperation("enableUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleLockUser(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.LockUser(r.Context(), chi.URLParam(r, "userID"))
	metrics.RecordAdminOperation("lockUserAccount", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleUnlockUser(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.UnlockUser(r.Context(), chi.URLParam(r, "userID"))
	metrics.RecordAdminOperation("unlockUserAccount", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.ChangePassword(r.Context(), chi.URLParam(r, "userID"), req.Password)
	metrics.RecordAdminOperation("changePassword", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type assignRoleRequest struct {
	Name       string             `json:"name" validate:"required,entname"`
	Constraint *models.Constraint `json:"constraint,omitempty"`
}

func (s *Server) handleAssignUser(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if !bind(w, r, &req) {
		return
	}
	assignment := models.UserRole{Name: req.Name, Constraint: req.Constraint}
	err := s.Admin.AssignUser(r.Context(), chi.URLParam(r, "userID"), assignment)
	metrics.RecordAdminOperation("assignUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDeassignUser(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DeassignUser(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deassignUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleAssignUserAdminRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if !bind(w, r, &req) {
		return
	}
	assignment := models.UserAdminRole{Name: req.Name, Constraint: req.Constraint}
	err := s.Admin.AssignUserAdminRole(r.Context(), chi.URLParam(r, "userID"), assignment)
	metrics.RecordAdminOperation("assignUserAdminRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDeassignUserAdminRole(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DeassignUserAdminRole(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deassignUserAdminRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
