// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleFindUsers(w http.ResponseWriter, r *http.Request) {
	users := s.Review.FindUsers(r.URL.Query().Get("pattern"))
	NewResponseWriter(w, r).SuccessWithCount(users, len(users))
}

func (s *Server) handleReadUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.Review.ReadUser(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(user)
}

func (s *Server) handleAssignedRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.Review.AssignedRoles(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handleAssignedAdminRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.Review.AssignedAdminRoles(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handleAuthorizedRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.Review.AuthorizedRoles(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handleUserPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.Review.UserPermissions(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(perms, len(perms))
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles := s.Review.FindRoles(r.URL.Query().Get("pattern"))
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handleReadRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.Review.ReadRole(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(role)
}

func (s *Server) handleAssignedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Review.AssignedUsers(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(users, len(users))
}

func (s *Server) handleAuthorizedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Review.AuthorizedUsers(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(users, len(users))
}

func (s *Server) handleRolePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.Review.RolePermissions(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(perms, len(perms))
}

func (s *Server) handleRoleDescendants(w http.ResponseWriter, r *http.Request) {
	names, err := s.Review.RoleDescendants(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(names, len(names))
}

func (s *Server) handleRoleAscendants(w http.ResponseWriter, r *http.Request) {
	names, err := s.Review.RoleAscendants(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(names, len(names))
}

func (s *Server) handleFindPermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perms := s.Review.FindPermissions(q.Get("obj"), q.Get("op"))
	NewResponseWriter(w, r).SuccessWithCount(perms, len(perms))
}

func (s *Server) handleReadPermission(w http.ResponseWriter, r *http.Request) {
	objName, opName, objID, err := permQuery(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	perm, err := s.Review.ReadPermission(objName, opName, objID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(perm)
}

func (s *Server) handlePermissionRoles(w http.ResponseWriter, r *http.Request) {
	objName, opName, objID, err := permQuery(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	roles, err := s.Review.PermissionRoles(objName, opName, objID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handleAuthorizedPermissionRoles(w http.ResponseWriter, r *http.Request) {
	objName, opName, objID, err := permQuery(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	roles, err := s.Review.AuthorizedPermissionRoles(objName, opName, objID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handlePermissionUsers(w http.ResponseWriter, r *http.Request) {
	objName, opName, objID, err := permQuery(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	users, err := s.Review.PermissionUsers(objName, opName, objID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(users, len(users))
}

func (s *Server) handleListPermObjs(w http.ResponseWriter, r *http.Request) {
	objs := s.Review.ListPermObjs()
	NewResponseWriter(w, r).SuccessWithCount(objs, len(objs))
}

func (s *Server) handleReadPermObj(w http.ResponseWriter, r *http.Request) {
	obj, err := s.Review.ReadPermObj(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(obj)
}

func (s *Server) handleObjPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.Review.ObjPermissions(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(perms, len(perms))
}

func (s *Server) handleListSDSets(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	sets, err := s.Review.SDSets(kind)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(sets, len(sets))
}

func (s *Server) handleReadSDSet(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	set, err := s.Review.SDSet(kind, chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(set)
}

func (s *Server) handleSDSetsContaining(w http.ResponseWriter, r *http.Request) {
	kind, err := sdKind(chi.URLParam(r, "kind"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	sets, err := s.Review.SDSetsContaining(kind, chi.URLParam(r, "role"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(sets, len(sets))
}

func (s *Server) handleListOrgUnits(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	ous, err := s.Review.SearchOrgUnits(typ, r.URL.Query().Get("pattern"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(ous, len(ous))
}

func (s *Server) handleReadOrgUnit(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	ou, err := s.Review.ReadOrgUnit(typ, chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(ou)
}

func (s *Server) handleOrgUnitDescendants(w http.ResponseWriter, r *http.Request) {
	typ, err := ouType(chi.URLParam(r, "type"))
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	names, err := s.Review.OrgUnitDescendants(typ, chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(names, len(names))
}

func (s *Server) handleListAdminRoles(w http.ResponseWriter, r *http.Request) {
	roles := s.Review.FindAdminRoles(r.URL.Query().Get("pattern"))
	NewResponseWriter(w, r).SuccessWithCount(roles, len(roles))
}

func (s *Server) handleReadAdminRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.Review.ReadAdminRole(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(role)
}

func (s *Server) handleAssignedAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Review.AssignedAdminUsers(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(users, len(users))
}
