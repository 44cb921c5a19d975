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

type permObjRequest struct {
	ObjName     string `json:"obj_name" validate:"required,entname"`
	OU          string `json:"ou" validate:"required,entname"`
	Description string `json:"description" validate:"omitempty,max=256"`
}

func (s *Server) handleAddPermObj(w http.ResponseWriter, r *http.Request) {
	var req permObjRequest
	if !bind(w, r, &req) {
		return
	}
	obj := models.PermObj{ObjName: req.ObjName, OU: req.OU, Description: req.Description}
	err := s.Admin.AddPermObj(r.Context(), obj)
	metrics.RecordAdminOperation("addPermObj", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(obj)
}

func (s *Server) handleUpdatePermObj(w http.ResponseWriter, r *http.Request) {
	var req permObjRequest
	if !bind(w, r, &req) {
		return
	}
	obj := models.PermObj{ObjName: chi.URLParam(r, "name"), OU: req.OU, Description: req.Description}
	err := s.Admin.UpdatePermObj(r.Context(), obj)
	metrics.RecordAdminOperation("updatePermObj", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(obj)
}

func (s *Server) handleDeletePermObj(w http.ResponseWriter, r *http.Request) {
	err := s.Admin.DeletePermObj(r.Context(), chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deletePermObj", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type permissionRequest struct {
	ObjName     string `json:"obj_name" validate:"required,entname"`
	OpName      string `json:"op_name" validate:"required,entname"`
	ObjID       string `json:"obj_id" validate:"omitempty,entname"`
	Description string `json:"description" validate:"omitempty,max=256"`
}

func (s *Server) handleAddPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !bind(w, r, &req) {
		return
	}
	perm := models.Permission{
		ObjName:     req.ObjName,
		OpName:      req.OpName,
		ObjID:       req.ObjID,
		Description: req.Description,
	}
	err := s.Admin.AddPermission(r.Context(), perm)
	metrics.RecordAdminOperation("addPermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(perm)
}

func (s *Server) handleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !bind(w, r, &req) {
		return
	}
	perm := models.Permission{
		ObjName:     req.ObjName,
		OpName:      req.OpName,
		ObjID:       req.ObjID,
		Description: req.Description,
	}
	err := s.Admin.UpdatePermission(r.Context(), perm)
	metrics.RecordAdminOperation("updatePermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(perm)
}

func (s *Server) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	objName, opName, objID, err := permQuery(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	err = s.Admin.DeletePermission(r.Context(), objName, opName, objID)
	metrics.RecordAdminOperation("deletePermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type grantRequest struct {
	ObjName string `json:"obj_name" validate:"required,entname"`
	OpName  string `json:"op_name" validate:"required,entname"`
	ObjID   string `json:"obj_id" validate:"omitempty,entname"`
	Role    string `json:"role" validate:"required,entname"`
}

func (s *Server) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.GrantPermission(r.Context(), req.ObjName, req.OpName, req.ObjID, req.Role)
	metrics.RecordAdminOperation("grantPermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.RevokePermission(r.Context(), req.ObjName, req.OpName, req.ObjID, req.Role)
	metrics.RecordAdminOperation("revokePermission", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type grantUserRequest struct {
	ObjName string `json:"obj_name" validate:"required,entname"`
	OpName  string `json:"op_name" validate:"required,entname"`
	ObjID   string `json:"obj_id" validate:"omitempty,entname"`
	UserID  string `json:"user_id" validate:"required,entname"`
}

func (s *Server) handleGrantPermissionUser(w http.ResponseWriter, r *http.Request) {
	var req grantUserRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.GrantPermissionUser(r.Context(), req.ObjName, req.OpName, req.ObjID, req.UserID)
	metrics.RecordAdminOperation("grantPermissionUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleRevokePermissionUser(w http.ResponseWriter, r *http.Request) {
	var req grantUserRequest
	if !bind(w, r, &req) {
		return
	}
	err := s.Admin.RevokePermissionUser(r.Context(), req.ObjName, req.OpName, req.ObjID, req.UserID)
	metrics.RecordAdminOperation("revokePermissionUser", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type sdSetRequest struct {
	Kind        string   `json:"kind" validate:"required,oneof=SSD DSD"`
	Name        string   `json:"name" validate:"required,entname"`
	Members     []string `json:"members" validate:"required,min=2,dive,entname"`
	Cardinality int      `json:"cardinality" validate:"required,gte=2"`
	Description string   `json:"description" validate:"omitempty,max=256"`
}

func (s *Server) handleCreateSDSet(w http.ResponseWriter, r *http.Request) {
	var req sdSetRequest
	if !bind(w, r, &req) {
		return
	}
	set := models.SDSet{
		Kind:        models.SDKind(req.Kind),
		Name:        req.Name,
		Members:     req.Members,
		Cardinality: req.Cardinality,
		Description: req.Description,
	}
	err := s.Admin.CreateSDSet(r.Context(), set)
	metrics.RecordAdminOperation("createSdSet", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(set)
}

func (s *Server) handleUpdateSDSet(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req struct {
		Description string `json:"description" validate:"omitempty,max=256"`
		Cardinality int    `json:"cardinality" validate:"required,gte=2"`
	}
	if !bind(w, r, &req) {
		return
	}
	err = s.Admin.UpdateSDSet(r.Context(), kind, chi.URLParam(r, "name"), req.Description, req.Cardinality)
	metrics.RecordAdminOperation("updateSdSet", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleDeleteSDSet(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	err = s.Admin.DeleteSDSet(r.Context(), kind, chi.URLParam(r, "name"))
	metrics.RecordAdminOperation("deleteSdSet", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleAddSDSetMember(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req struct {
		Role string `json:"role" validate:"required,entname"`
	}
	if !bind(w, r, &req) {
		return
	}
	err = s.Admin.AddSDSetMember(r.Context(), kind, chi.URLParam(r, "name"), req.Role)
	metrics.RecordAdminOperation("addSdSetMember", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleRemoveSDSetMember(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	err = s.Admin.RemoveSDSetMember(r.Context(), kind, chi.URLParam(r, "name"), chi.URLParam(r, "role"))
	metrics.RecordAdminOperation("removeSdSetMember", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

func (s *Server) handleSetSDSetCardinality(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	var req struct {
		Cardinality int `json:"cardinality" validate:"required,gte=2"`
	}
	if !bind(w, r, &req) {
		return
	}
	err = s.Admin.SetSDSetCardinality(r.Context(), kind, chi.URLParam(r, "name"), req.Cardinality)
	metrics.RecordAdminOperation("setSdSetCardinality", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
