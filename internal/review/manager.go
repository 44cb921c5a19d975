// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package review answers the interrogation side of the identity model:
// who holds what, who is authorized for what, and how the pieces relate.
// It never mutates anything, so every query runs concurrently with
// others and with reads elsewhere.
//
// "Assigned" queries report direct relations only. "Authorized" queries
// fold in the hierarchy the same way checkAccess does: a role's
// authorization closure is itself plus its ascendants, since permissions
// inherit downward.
package review

import (
	"sort"
	"strings"

	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/sod"
)

// Manager serves read-only queries over the shared state.
type Manager struct {
	dir        *directory.Store
	roles      *hierarchy.Graph[models.Role]
	adminRoles *hierarchy.Graph[models.AdminRole]
	userOUs    *hierarchy.Graph[models.OrgUnit]
	permOUs    *hierarchy.Graph[models.OrgUnit]
	sd         *sod.Engine
}

// Config wires the manager's sources.
type Config struct {
	Dir        *directory.Store
	Roles      *hierarchy.Graph[models.Role]
	AdminRoles *hierarchy.Graph[models.AdminRole]
	UserOUs    *hierarchy.Graph[models.OrgUnit]
	PermOUs    *hierarchy.Graph[models.OrgUnit]
	SD         *sod.Engine
}

// NewManager creates the review manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		dir:        cfg.Dir,
		roles:      cfg.Roles,
		adminRoles: cfg.AdminRoles,
		userOUs:    cfg.UserOUs,
		permOUs:    cfg.PermOUs,
		sd:         cfg.SD,
	}
}

// ReadUser returns one user with the credential hash stripped.
func (m *Manager) ReadUser(userID string) (models.User, error) {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// FindUsers returns users whose ID contains the pattern, hashes
// stripped. An empty pattern returns everyone.
func (m *Manager) FindUsers(pattern string) []models.User {
	users := m.dir.ListUsers(pattern)
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users
}

// AssignedRoles returns the user's direct role assignments.
func (m *Manager) AssignedRoles(userID string) ([]models.UserRole, error) {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

// AssignedUsers returns the IDs of users directly assigned the role.
func (m *Manager) AssignedUsers(roleName string) ([]string, error) {
	if !m.roles.Contains(roleName) {
		return nil, hierarchy.ErrNotFound
	}
	var out []string
	for _, user := range m.dir.UsersWithRole(roleName) {
		out = append(out, user.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// AuthorizedRoles returns every role the user may exercise permissions
// of: the assigned roles plus each one's ascendant closure.
func (m *Manager) AuthorizedRoles(userID string) ([]string, error) {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, assignment := range user.Roles {
		seen[assignment.Name] = struct{}{}
		ascendants, err := m.roles.Ascendants(assignment.Name)
		if err != nil {
			continue
		}
		for _, name := range ascendants {
			seen[name] = struct{}{}
		}
	}
	return sortedNames(seen), nil
}

// AuthorizedUsers returns users who can reach the role's permissions:
// those assigned the role itself or any of its descendants.
func (m *Manager) AuthorizedUsers(roleName string) ([]string, error) {
	descendants, err := m.roles.Descendants(roleName)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, name := range append(descendants, roleName) {
		for _, user := range m.dir.UsersWithRole(name) {
			seen[user.UserID] = struct{}{}
		}
	}
	return sortedNames(seen), nil
}

// ReadRole returns one role.
func (m *Manager) ReadRole(name string) (models.Role, error) {
	return m.roles.Get(name)
}

// ListRoles returns every role, sorted by name.
func (m *Manager) ListRoles() []models.Role {
	names := m.roles.Names()
	out := make([]models.Role, 0, len(names))
	for _, name := range names {
		role, err := m.roles.Get(name)
		if err != nil {
			continue
		}
		out = append(out, role)
	}
	return out
}

// FindRoles returns roles whose name contains the pattern, sorted by
// name. An empty pattern returns everything.
func (m *Manager) FindRoles(pattern string) []models.Role {
	var out []models.Role
	for _, role := range m.ListRoles() {
		if pattern == "" || strings.Contains(role.Name, pattern) {
			out = append(out, role)
		}
	}
	return out
}

// FindPermissions returns permissions whose object and operation names
// contain the given patterns. Empty patterns match everything.
func (m *Manager) FindPermissions(objPattern, opPattern string) []models.Permission {
	var out []models.Permission
	for _, perm := range m.dir.ListPermissions() {
		if objPattern != "" && !strings.Contains(perm.ObjName, objPattern) {
			continue
		}
		if opPattern != "" && !strings.Contains(perm.OpName, opPattern) {
			continue
		}
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// RolePermissions returns the permissions the role can exercise: those
// granted to it directly or to any of its ascendants.
func (m *Manager) RolePermissions(roleName string) ([]models.Permission, error) {
	if !m.roles.Contains(roleName) {
		return nil, hierarchy.ErrNotFound
	}
	closure := map[string]struct{}{roleName: {}}
	ascendants, err := m.roles.Ascendants(roleName)
	if err != nil {
		return nil, err
	}
	for _, name := range ascendants {
		closure[name] = struct{}{}
	}

	var out []models.Permission
	for _, perm := range m.dir.ListPermissions() {
		for _, grantee := range perm.Roles {
			if _, ok := closure[grantee]; ok {
				out = append(out, perm)
				break
			}
		}
	}
	return out, nil
}

// UserPermissions returns every permission the user could exercise with
// all assigned roles active, plus direct user grants.
func (m *Manager) UserPermissions(userID string) ([]models.Permission, error) {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return nil, err
	}
	closure := make(map[string]struct{})
	for _, assignment := range user.Roles {
		closure[assignment.Name] = struct{}{}
		ascendants, err := m.roles.Ascendants(assignment.Name)
		if err != nil {
			continue
		}
		for _, name := range ascendants {
			closure[name] = struct{}{}
		}
	}

	var out []models.Permission
	for _, perm := range m.dir.ListPermissions() {
		if perm.GrantedToUser(userID) {
			out = append(out, perm)
			continue
		}
		for _, grantee := range perm.Roles {
			if _, ok := closure[grantee]; ok {
				out = append(out, perm)
				break
			}
		}
	}
	return out, nil
}

// ReadPermission returns one permission.
func (m *Manager) ReadPermission(objName, opName, objID string) (models.Permission, error) {
	return m.dir.GetPermission(objName, opName, objID)
}

// PermissionRoles returns the direct role grantees.
func (m *Manager) PermissionRoles(objName, opName, objID string) ([]string, error) {
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return nil, err
	}
	return perm.Roles, nil
}

// AuthorizedPermissionRoles returns every role that can exercise the
// permission: the grantees plus their descendants.
func (m *Manager) AuthorizedPermissionRoles(objName, opName, objID string) ([]string, error) {
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, grantee := range perm.Roles {
		seen[grantee] = struct{}{}
		descendants, err := m.roles.Descendants(grantee)
		if err != nil {
			continue
		}
		for _, name := range descendants {
			seen[name] = struct{}{}
		}
	}
	return sortedNames(seen), nil
}

// PermissionUsers returns the direct user grantees.
func (m *Manager) PermissionUsers(objName, opName, objID string) ([]string, error) {
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return nil, err
	}
	return perm.Users, nil
}

// ReadPermObj returns one permission object.
func (m *Manager) ReadPermObj(objName string) (models.PermObj, error) {
	return m.dir.GetPermObj(objName)
}

// ListPermObjs returns every permission object.
func (m *Manager) ListPermObjs() []models.PermObj {
	return m.dir.ListPermObjs()
}

// ObjPermissions returns all operations under an object.
func (m *Manager) ObjPermissions(objName string) ([]models.Permission, error) {
	if _, err := m.dir.GetPermObj(objName); err != nil {
		return nil, err
	}
	return m.dir.PermissionsOfObj(objName), nil
}

// SDSet returns one separation-of-duty set.
func (m *Manager) SDSet(kind models.SDKind, name string) (models.SDSet, error) {
	return m.sd.Get(kind, name)
}

// SDSets returns every set of the kind.
func (m *Manager) SDSets(kind models.SDKind) ([]models.SDSet, error) {
	return m.sd.List(kind)
}

// SDSetsContaining returns the sets of the kind holding the role.
func (m *Manager) SDSetsContaining(kind models.SDKind, roleName string) ([]models.SDSet, error) {
	return m.sd.SetsContaining(kind, roleName)
}

// ReadOrgUnit returns one org unit of the given type.
func (m *Manager) ReadOrgUnit(typ models.OrgUnitType, name string) (models.OrgUnit, error) {
	graph, err := m.ouGraph(typ)
	if err != nil {
		return models.OrgUnit{}, err
	}
	return graph.Get(name)
}

// ListOrgUnits returns every org unit of the given type.
func (m *Manager) ListOrgUnits(typ models.OrgUnitType) ([]models.OrgUnit, error) {
	graph, err := m.ouGraph(typ)
	if err != nil {
		return nil, err
	}
	names := graph.Names()
	out := make([]models.OrgUnit, 0, len(names))
	for _, name := range names {
		ou, err := graph.Get(name)
		if err != nil {
			continue
		}
		out = append(out, ou)
	}
	return out, nil
}

// SearchOrgUnits returns org units of the given type whose name
// contains the pattern. An empty pattern returns everything.
func (m *Manager) SearchOrgUnits(typ models.OrgUnitType, pattern string) ([]models.OrgUnit, error) {
	all, err := m.ListOrgUnits(typ)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return all, nil
	}
	var out []models.OrgUnit
	for _, ou := range all {
		if strings.Contains(ou.Name, pattern) {
			out = append(out, ou)
		}
	}
	return out, nil
}

// OrgUnitDescendants returns the transitive children of an org unit.
func (m *Manager) OrgUnitDescendants(typ models.OrgUnitType, name string) ([]string, error) {
	graph, err := m.ouGraph(typ)
	if err != nil {
		return nil, err
	}
	return graph.Descendants(name)
}

func (m *Manager) ouGraph(typ models.OrgUnitType) (*hierarchy.Graph[models.OrgUnit], error) {
	switch typ {
	case models.OrgUnitUser:
		return m.userOUs, nil
	case models.OrgUnitPerm:
		return m.permOUs, nil
	default:
		return nil, hierarchy.ErrNotFound
	}
}

// ReadAdminRole returns one admin role.
func (m *Manager) ReadAdminRole(name string) (models.AdminRole, error) {
	return m.adminRoles.Get(name)
}

// ListAdminRoles returns every admin role.
func (m *Manager) ListAdminRoles() []models.AdminRole {
	names := m.adminRoles.Names()
	out := make([]models.AdminRole, 0, len(names))
	for _, name := range names {
		role, err := m.adminRoles.Get(name)
		if err != nil {
			continue
		}
		out = append(out, role)
	}
	return out
}

// FindAdminRoles returns admin roles whose name contains the pattern.
// An empty pattern returns everything.
func (m *Manager) FindAdminRoles(pattern string) []models.AdminRole {
	var out []models.AdminRole
	for _, role := range m.ListAdminRoles() {
		if pattern == "" || strings.Contains(role.Name, pattern) {
			out = append(out, role)
		}
	}
	return out
}

// AssignedAdminRoles returns the user's direct admin-role assignments.
func (m *Manager) AssignedAdminRoles(userID string) ([]models.UserAdminRole, error) {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return nil, err
	}
	return user.AdminRoles, nil
}

// AssignedAdminUsers returns the IDs of users directly assigned the
// admin role.
func (m *Manager) AssignedAdminUsers(roleName string) ([]string, error) {
	if !m.adminRoles.Contains(roleName) {
		return nil, hierarchy.ErrNotFound
	}
	var out []string
	for _, user := range m.dir.UsersWithAdminRole(roleName) {
		out = append(out, user.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// RoleDescendants returns the transitive children of a role.
func (m *Manager) RoleDescendants(name string) ([]string, error) {
	return m.roles.Descendants(name)
}

// RoleAscendants returns the transitive parents of a role.
func (m *Manager) RoleAscendants(name string) ([]string, error) {
	return m.roles.Ascendants(name)
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
