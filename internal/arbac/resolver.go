// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package arbac decides whether an admin session's active AdminRoles
// authorize an administrative action, per the ARBAC02-style can-assign,
// can-deassign, can-grant, and can-revoke predicates.
//
// An AdminRole controls a slice of the RBAC role hierarchy bounded by
// beginRange and endRange, with per-endpoint inclusivity flags, and a set
// of organizational units (osUs for users, osPs for permission objects)
// including each scoped OU's descendants. Both the range check and the OU
// check must pass; the resolver never defaults to permit and never
// mutates hierarchy state.
package arbac

import (
	"errors"
	"fmt"

	"github.com/tomtom215/palisade/internal/models"
)

// Decision errors.
var (
	// ErrSessionInvalid means no active admin role was presented.
	ErrSessionInvalid = errors.New("session holds no active admin role")
	// ErrOutOfRange means no active admin role covers the target role
	// and organizational unit.
	ErrOutOfRange = errors.New("target outside administrative range")
)

// RoleGraph is the view of the RBAC role hierarchy the resolver needs.
// Satisfied by *hierarchy.Graph[models.Role].
type RoleGraph interface {
	Contains(name string) bool
	Ascendants(name string) ([]string, error)
	Descendants(name string) ([]string, error)
}

// OUGraph is the view of one OrgUnit hierarchy.
// Satisfied by *hierarchy.Graph[models.OrgUnit].
type OUGraph interface {
	Contains(name string) bool
	IsDescendant(ancestor, candidate string) bool
}

// AdminRoleSource resolves admin role names to their payloads.
// Satisfied by *hierarchy.Graph[models.AdminRole].
type AdminRoleSource interface {
	Get(name string) (models.AdminRole, error)
}

// Resolver evaluates delegation predicates. It is read-only over the
// graphs and safe for concurrent use.
type Resolver struct {
	adminRoles AdminRoleSource
	roles      RoleGraph
	userOUs    OUGraph
	permOUs    OUGraph
}

// NewResolver wires the resolver to the shared hierarchy graphs.
func NewResolver(adminRoles AdminRoleSource, roles RoleGraph, userOUs, permOUs OUGraph) *Resolver {
	return &Resolver{
		adminRoles: adminRoles,
		roles:      roles,
		userOUs:    userOUs,
		permOUs:    permOUs,
	}
}

// RoleRange computes the set of RBAC roles the admin role controls: the
// roles lying between beginRange and endRange in the hierarchy, endpoints
// included per the inclusivity flags. An admin role with no range
// configured controls no roles.
func (r *Resolver) RoleRange(ar models.AdminRole) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if ar.BeginRange == "" || ar.EndRange == "" {
		return out, nil
	}
	if !r.roles.Contains(ar.BeginRange) || !r.roles.Contains(ar.EndRange) {
		return out, fmt.Errorf("%w: range endpoints %q..%q not in role hierarchy",
			ErrOutOfRange, ar.BeginRange, ar.EndRange)
	}

	// Everything reachable upward from the bottom endpoint...
	up := map[string]struct{}{ar.BeginRange: {}}
	asc, err := r.roles.Ascendants(ar.BeginRange)
	if err != nil {
		return nil, err
	}
	for _, name := range asc {
		up[name] = struct{}{}
	}

	// ...intersected with everything reachable downward from the top.
	down := map[string]struct{}{ar.EndRange: {}}
	desc, err := r.roles.Descendants(ar.EndRange)
	if err != nil {
		return nil, err
	}
	for _, name := range desc {
		down[name] = struct{}{}
	}

	for name := range up {
		if _, ok := down[name]; ok {
			out[name] = struct{}{}
		}
	}
	if !ar.BeginInclusive {
		delete(out, ar.BeginRange)
	}
	if !ar.EndInclusive {
		delete(out, ar.EndRange)
	}
	return out, nil
}

// CanAssign reports whether the session may assign targetRole to
// targetUser: some active admin role must cover targetRole in its range
// AND the user's OU in its osUs scope.
func (r *Resolver) CanAssign(session *models.Session, targetUser *models.User, targetRole string) error {
	return r.checkRoleTarget(session, targetRole, func(ar models.AdminRole) bool {
		return r.inScope(ar.OSUs, targetUser.OU, r.userOUs)
	})
}

// CanDeassign mirrors CanAssign for role removal.
func (r *Resolver) CanDeassign(session *models.Session, targetUser *models.User, targetRole string) error {
	return r.CanAssign(session, targetUser, targetRole)
}

// CanGrant reports whether the session may grant a permission under obj
// to targetRole: range check on the role plus osPs scope on the
// permission object's OU.
func (r *Resolver) CanGrant(session *models.Session, obj *models.PermObj, targetRole string) error {
	return r.checkRoleTarget(session, targetRole, func(ar models.AdminRole) bool {
		return r.inScope(ar.OSPs, obj.OU, r.permOUs)
	})
}

// CanRevoke mirrors CanGrant for permission revocation.
func (r *Resolver) CanRevoke(session *models.Session, obj *models.PermObj, targetRole string) error {
	return r.CanGrant(session, obj, targetRole)
}

// checkRoleTarget runs the shared predicate: for each active admin role,
// the target role must fall in its controlled range and ouCheck must pass
// for the same admin role. The first satisfying admin role permits.
func (r *Resolver) checkRoleTarget(session *models.Session, targetRole string, ouCheck func(models.AdminRole) bool) error {
	if session == nil || len(session.ActiveAdminRoles) == 0 {
		return ErrSessionInvalid
	}
	var lastErr error
	for _, active := range session.ActiveAdminRoles {
		ar, err := r.adminRoles.Get(active.Name)
		if err != nil {
			lastErr = err
			continue
		}
		rng, err := r.RoleRange(ar)
		if err != nil {
			lastErr = err
			continue
		}
		if _, ok := rng[targetRole]; !ok {
			continue
		}
		if !ouCheck(ar) {
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: role %q (last error: %v)", ErrOutOfRange, targetRole, lastErr)
	}
	return fmt.Errorf("%w: role %q", ErrOutOfRange, targetRole)
}

// inScope reports whether target equals a scoped OU or descends from one
// in the given OU hierarchy.
func (r *Resolver) inScope(scoped []string, target string, graph OUGraph) bool {
	for _, ou := range scoped {
		if ou == target {
			return true
		}
		if graph.IsDescendant(ou, target) {
			return true
		}
	}
	return false
}
