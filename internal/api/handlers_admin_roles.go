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

type roleRequest struct {
	Name        string            `json:"name" validate:"required,entname"`
	Description string            `json:"description" validate:"omitempty,max=256"`
	Constraint  models.Constraint `json:"constraint"`
}

func (req *roleRequest) toRole() models.Role {
	return models.Role{Name: req.Name, Description: req.Description, Constraint: req.Constraint}
}

func (s *Server) handleAddRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddRole(r.Context(), req.toRole())
	metrics.RecordAdminOperation("addRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(req.toRole())
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !bind(w, r, &req) {
		return
	}
	role := req.toRole()
	role.Name = chi.URLParam(r, "name")
	err := s.Admin.UpdateRole(r.Context(), role)
	metrics.RecordAdminOperation("updateRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DeleteRole(r.Context(), chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deleteRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// handleAddDescendantRole creates the role in the body as a junior of
// the role in the path.
func (s *Server) handleAddDescendantRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddDescendantRole(r.Context(), chi.URLParam(r, "name"), req.toRole())
	metrics.RecordAdminOperation("addDescendant", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(req.toRole())
}

// handleAddAscendantRole creates the role in the body as a senior of
// the role in the path.
func (s *Server) handleAddAscendantRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddAscendantRole(r.Context(), chi.URLParam(r, "name"), req.toRole())
	metrics.RecordAdminOperation("addAscendant", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(req.toRole())
}

type inheritanceRequest struct {
	Parent string `json:"parent" validate:"required,entname"`
	Child  string `json:"child" validate:"required,entname"`
}

func (s *Server) handleAddInheritance(w http.ResponseWriter, r *http.Request) {
	var req inheritanceRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddInheritance(r.Context(), req.Parent, req.Child)
	metrics.RecordAdminOperation("addInheritance", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDeleteInheritance(w http.ResponseWriter, r *http.Request) {
	parent, child := nameParam(r, "parent"), nameParam(r, "child")
	if parent == "" || child == "" {
		NewResponseWriter(w, r).BadRequest("parent and child query parameters are required")
		return
	}
	err := s.Admin.DeleteInheritance(r.Context(), parent, child)
	metrics.RecordAdminOperation("deleteInheritance", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type adminRoleRequest struct {
	Name           string            `json:"name" validate:"required,entname"`
	Description    string            `json:"description" validate:"omitempty,max=256"`
	Constraint     models.Constraint `json:"constraint"`
	BeginRange     string            `json:"begin_range" validate:"omitempty,entname"`
	EndRange       string            `json:"end_range" validate:"omitempty,entname"`
	BeginInclusive bool              `json:"begin_inclusive"`
	EndInclusive   bool              `json:"end_inclusive"`
	OSUs           []string          `json:"os_us" validate:"omitempty,dive,entname"`
	OSPs           []string          `json:"os_ps" validate:"omitempty,dive,entname"`
}

func (req *adminRoleRequest) toAdminRole() models.AdminRole {
	return models.AdminRole{
		Role: models.Role{
			Name:        req.Name,
			Description: req.Description,
			Constraint:  req.Constraint,
		},
		BeginRange:     req.BeginRange,
		EndRange:       req.EndRange,
		BeginInclusive: req.BeginInclusive,
		EndInclusive:   req.EndInclusive,
		OSUs:           req.OSUs,
		OSPs:           req.OSPs,
	}
}

func (s *Server) handleAddAdminRole(w http.ResponseWriter, r *http.Request) {
	var req adminRoleRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddAdminRole(r.Context(), req.toAdminRole())
	metrics.RecordAdminOperation("addAdminRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(req.toAdminRole())
}

func (s *Server) handleUpdateAdminRole(w http.ResponseWriter, r *http.Request) {
	var req adminRoleRequest
	if !bind(w, r, &req) {
		return
	}
	role := req.toAdminRole()
	role.Name = chi.URLParam(r, "name")
	err := s.Admin.UpdateAdminRole(r.Context(), role)
	metrics.RecordAdminOperation("updateAdminRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(role)
}

func (s *Server) handleDeleteAdminRole(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DeleteAdminRole(r.Context(), chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deleteAdminRole", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleAddDescendantAdminRole(w http.ResponseWriter, r *http.Request) {
	var req adminRoleRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddDescendantAdminRole(r.Context(), chi.URLParam(r, "name"), req.toAdminRole())
	metrics.RecordAdminOperation("addAdminDescendant", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(req.toAdminRole())
}

func (s *Server) handleAddAscendantAdminRole(w http.ResponseWriter, r *http.Request) {
	var req adminRoleRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddAscendantAdminRole(r.Context(), chi.URLParam(r, "name"), req.toAdminRole())
	metrics.RecordAdminOperation("addAdminAscendant", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(req.toAdminRole())
}

func (s *Server) handleAddAdminInheritance(w http.ResponseWriter, r *http.Request) {
	var req inheritanceRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.AddAdminInheritance(r.Context(), req.Parent, req.Child)
	metrics.RecordAdminOperation("addAdminInheritance", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDeleteAdminInheritance(w http.ResponseWriter, r *http.Request) {
	parent, child := nameParam(r, "parent"), nameParam(r, "child")
	if parent == "" || child == "" {
		NewResponseWriter(w, r).BadRequest("parent and child query parameters are required")
		return
	}
	err := s.Admin.DeleteAdminInheritance(r.Context(), parent, child)
	metrics.RecordAdminOperation("deleteAdminInheritance", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type orgUnitRequest struct {
	Name        string `json:"name" validate:"required,entname"`
	Type        string `json:"type" validate:"required,oneof=USER PERM"`
	Description string `json:"description" validate:"omitempty,max=256"`
}

func (s *Server) handleAddOrgUnit(w http.ResponseWriter, r *http.Request) {
	var req orgUnitRequest
	if !bind(w, r, &req) {
		return
	}
	ou := models.OrgUnit{Name: req.Name, Type: models.OrgUnitType(req.Type), Description: req.Description}
	err := s.Admin.AddOrgUnit(r.Context(), ou)
	metrics.RecordAdminOperation("addOrgUnit", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(ou)
}

func (s *Server) handleUpdateOrgUnit(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req struct {
		Description string `json:"description" validate:"omitempty,max=256"`
	}
	if !bind(w, r, &req) {
		return
	}
	ou := models.OrgUnit{Name: chi.URLParam(r, "name"), Type: typ, Description: req.Description}
	err = s.Admin.UpdateOrgUnit(r.Context(), ou)
	metrics.RecordAdminOperation("updateOrgUnit", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(ou)
}

func (s *Server) handleDeleteOrgUnit(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	err = s.Admin.DeleteOrgUnit(r.Context(), typ, chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deleteOrgUnit", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleAddDescendantOrgUnit(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req struct {
		Name        string `json:"name" validate:"required,entname"`
		Description string `json:"description" validate:"omitempty,max=256"`
	}
	if !bind(w, r, &req) {
		return
	}
	child := models.OrgUnit{Name: req.Name, Type: typ, Description: req.Description}
	err = s.Admin.AddDescendantOrgUnit(r.Context(), chi.URLParam(r, "name"), child)
	metrics.RecordAdminOperation("addOrgUnitDescendant", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(child)
}

func (s *Server) handleAddAscendantOrgUnit(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req struct {
		Name        string `json:"name" validate:"required,entname"`
		Description string `json:"description" validate:"omitempty,max=256"`
	}
	if !bind(w, r, &req) {
		return
	}
	parent := models.OrgUnit{Name: req.Name, Type: typ, Description: req.Description}
	err = s.Admin.AddAscendantOrgUnit(r.Context(), chi.URLParam(r, "name"), parent)
	metrics.RecordAdminOperation("addOrgUnitAscendant", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(parent)
}

func (s *Server) handleAddOrgUnitInheritance(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req inheritanceRequest
	if !bind(w, r, &req) {
		return
	}
	err = s.Admin.AddOrgUnitInheritance(r.Context(), typ, req.Parent, req.Child)
	metrics.RecordAdminOperation("addOrgUnitInheritance", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDeleteOrgUnitInheritance(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	parent, child := nameParam(r, "parent"), nameParam(r, "child")
	if parent == "" || child == "" {
		NewResponseWriter(w, r).BadRequest("parent and child query parameters are required")
		return
	}
	err = s.Admin.DeleteOrgUnitInheritance(r.Context(), typ, parent, child)
	metrics.RecordAdminOperation("deleteOrgUnitInheritance", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
