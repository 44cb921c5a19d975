// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package models defines the RBAC and ARBAC entity types shared by the
// decision engines, the directory store, and the transport layer.
//
// Entities:
//   - Role / AdminRole: hierarchy members with temporal constraints
//   - User: role and admin-role assignments with optional overrides
//   - SDSet: static/dynamic separation-of-duty role sets
//   - OrgUnit: USER and PERM scoping containers
//   - PermObj / Permission: protected objects and their operations
//   - Session: ephemeral activated-role state for one authenticated user
//
// The hierarchy edge sets themselves live in internal/hierarchy; models
// holds only the vertex payloads and record shapes persisted by the
// directory store.
package models

import (
	"strings"
	"time"
)

// Role is an RBAC role: the unit of permission assignment and the vertex
// payload of the RBAC role hierarchy.
type Role struct {
	// Name uniquely identifies the role. Comparison is case-sensitive and
	// names are trimmed at the transport edge.
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Constraint  Constraint `json:"constraint"`
}

// AdminRole is an administrative role. It carries everything a Role does
// plus the delegation scope: a range over the RBAC role hierarchy and the
// organizational units whose users/permissions it may administer.
type AdminRole struct {
	Role

	// BeginRange and EndRange name RBAC roles bounding the controlled
	// slice of the role hierarchy. Empty ranges authorize no roles.
	BeginRange     string `json:"begin_range,omitempty"`
	EndRange       string `json:"end_range,omitempty"`
	BeginInclusive bool   `json:"begin_inclusive"`
	EndInclusive   bool   `json:"end_inclusive"`

	// OSUs lists USER-type OrgUnits this admin role may administer
	// (including their descendants in the USER OU hierarchy).
	OSUs []string `json:"os_us,omitempty"`

	// OSPs lists PERM-type OrgUnits whose permission objects this admin
	// role may grant and revoke against.
	OSPs []string `json:"os_ps,omitempty"`
}

// UserRole is one role assignment on a User, optionally narrowing the
// role's own temporal constraint with a per-assignment override.
type UserRole struct {
	Name       string      `json:"name"`
	Constraint *Constraint `json:"constraint,omitempty"`
}

// UserAdminRole is one admin-role assignment on a User.
type UserAdminRole struct {
	Name       string      `json:"name"`
	Constraint *Constraint `json:"constraint,omitempty"`
}

// User is a directory subject that may authenticate, hold role and
// admin-role assignments, and create sessions.
type User struct {
	UserID      string `json:"user_id"`
	OU          string `json:"ou"`
	Description string `json:"description,omitempty"`

	// PasswordHash is the bcrypt hash consumed by the authentication
	// collaborator. The decision engines never read it.
	PasswordHash string `json:"password_hash,omitempty"`

	Constraint Constraint      `json:"constraint"`
	Roles      []UserRole      `json:"roles,omitempty"`
	AdminRoles []UserAdminRole `json:"admin_roles,omitempty"`

	// Disabled blocks session creation without deleting the record.
	Disabled bool `json:"disabled,omitempty"`
	// Locked is the administrative account lock (lockUserAccount), distinct
	// from the failed-login lockout tracked by the authenticator.
	Locked bool `json:"locked,omitempty"`
}

// AssignedRole returns the assignment entry for the named role, if present.
func (u *User) AssignedRole(name string) (UserRole, bool) {
	for _, r := range u.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return UserRole{}, false
}

// AssignedAdminRole returns the admin-role assignment entry, if present.
func (u *User) AssignedAdminRole(name string) (UserAdminRole, bool) {
	for _, r := range u.AdminRoles {
		if r.Name == name {
			return r, true
		}
	}
	return UserAdminRole{}, false
}

// AssignedRoleNames returns the names of all assigned RBAC roles.
func (u *User) AssignedRoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}
	return names
}

// SDKind distinguishes static from dynamic separation-of-duty sets.
type SDKind string

const (
	// SSD sets constrain simultaneous *assignment* of conflicting roles.
	SSD SDKind = "SSD"
	// DSD sets constrain simultaneous *activation* within one session.
	DSD SDKind = "DSD"
)

// SDSet is a named separation-of-duty constraint: holding (SSD) or
// activating (DSD) Cardinality or more roles from Members is a violation.
type SDSet struct {
	Kind        SDKind   `json:"kind"`
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	Cardinality int      `json:"cardinality"`
	Description string   `json:"description,omitempty"`
}

// HasMember reports whether the named role belongs to the set.
func (s *SDSet) HasMember(role string) bool {
	for _, m := range s.Members {
		if m == role {
			return true
		}
	}
	return false
}

// OrgUnitType partitions the two independent OrgUnit hierarchies.
type OrgUnitType string

const (
	// OrgUnitUser scopes users (checked by canAssign/canDeassign).
	OrgUnitUser OrgUnitType = "USER"
	// OrgUnitPerm scopes permission objects (checked by canGrant/canRevoke).
	OrgUnitPerm OrgUnitType = "PERM"
)

// OrgUnit is a scoping container in one of the two OU hierarchies.
type OrgUnit struct {
	Name        string      `json:"name"`
	Type        OrgUnitType `json:"type"`
	Description string      `json:"description,omitempty"`
}

// PermObj is the one-to-many parent container for Permission operations.
// Its OU places it in the PERM OrgUnit hierarchy for ARBAC scoping.
type PermObj struct {
	ObjName     string `json:"obj_name"`
	OU          string `json:"ou"`
	Description string `json:"description,omitempty"`
}

// Permission is an (object, operation) pair, optionally narrowed by an
// object instance ID, with its direct grantee sets.
type Permission struct {
	ObjName     string `json:"obj_name"`
	OpName      string `json:"op_name"`
	ObjID       string `json:"obj_id,omitempty"`
	Description string `json:"description,omitempty"`

	// Roles and Users are direct grants. Role grants inherit downward
	// through the role hierarchy; user grants do not inherit.
	Roles []string `json:"roles,omitempty"`
	Users []string `json:"users,omitempty"`
}

// Key returns the composite lookup key for the permission.
func (p *Permission) Key() string {
	return PermKey(p.ObjName, p.OpName, p.ObjID)
}

// PermKey builds the composite permission key from its parts.
func PermKey(objName, opName, objID string) string {
	if objID == "" {
		return objName + "::" + opName
	}
	return objName + "::" + opName + "::" + objID
}

// GrantedToRole reports whether the role is a direct grantee.
func (p *Permission) GrantedToRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GrantedToUser reports whether the user is a direct grantee.
func (p *Permission) GrantedToUser(userID string) bool {
	for _, u := range p.Users {
		if u == userID {
			return true
		}
	}
	return false
}

// Warning is a non-fatal verdict carried from the password-policy and
// temporal subsystems into the created session.
type Warning struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Name string `json:"name,omitempty"`
}

// Password-policy and activation warning codes surfaced on sessions.
const (
	WarnPasswordExpiring = 100
	WarnAccountIdle      = 101
	WarnRoleNotActivated = 102
)

// Session is the ephemeral activated-role state for one authenticated
// user. It is owned by the request context that created it; no other
// session may mutate it. Sessions are never persisted beyond expiry.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// OU snapshots the user's org unit at creation time.
	OU string `json:"ou"`

	ActiveRoles      []UserRole      `json:"active_roles,omitempty"`
	ActiveAdminRoles []UserAdminRole `json:"active_admin_roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Trusted marks sessions created without credential verification
	// (createSessionTrusted), available only to the access operator role.
	Trusted bool `json:"trusted,omitempty"`

	Warnings []Warning `json:"warnings,omitempty"`
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// ActiveRoleNames returns the names of all active RBAC roles.
func (s *Session) ActiveRoleNames() []string {
	names := make([]string, len(s.ActiveRoles))
	for i, r := range s.ActiveRoles {
		names[i] = r.Name
	}
	return names
}

// HasActiveRole reports whether the named RBAC role is active.
func (s *Session) HasActiveRole(name string) bool {
	for _, r := range s.ActiveRoles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasActiveAdminRole reports whether the named admin role is active.
func (s *Session) HasActiveAdminRole(name string) bool {
	for _, r := range s.ActiveAdminRoles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// NormalizeName trims surrounding whitespace from an entity name.
// Applied once at the transport edge so engine code compares verbatim.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
