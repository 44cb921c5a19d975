// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package admin

import (
	"context"

	"github.com/tomtom215/palisade/internal/arbac"
	"github.com/tomtom215/palisade/internal/models"
)

// Delegated wraps the manager's assignment and grant operations behind
// the ARBAC delegation resolver: the acting admin session must hold an
// active admin role whose range covers the target role and whose OU
// scope covers the target user or permission object.
type Delegated struct {
	mgr      *Manager
	resolver *arbac.Resolver
}

// NewDelegated wires the delegated manager.
func NewDelegated(mgr *Manager, resolver *arbac.Resolver) *Delegated {
	return &Delegated{mgr: mgr, resolver: resolver}
}

// AssignUser assigns a role after canAssign clears the acting session.
func (d *Delegated) AssignUser(ctx context.Context, session *models.Session, userID string, assignment models.UserRole) error {
	user, err := d.mgr.dir.GetUser(userID)
	if err != nil {
		return d.mgr.rejected(ctx, "canAssign", userID+":"+assignment.Name, err)
	}
	if err := d.resolver.CanAssign(session, &user, assignment.Name); err != nil {
		return d.mgr.rejected(ctx, "canAssign", userID+":"+assignment.Name, err)
	}
	return d.mgr.AssignUser(ctx, userID, assignment)
}

// DeassignUser removes a role after canDeassign clears the session.
func (d *Delegated) DeassignUser(ctx context.Context, session *models.Session, userID, roleName string) error {
	user, err := d.mgr.dir.GetUser(userID)
	if err != nil {
		return d.mgr.rejected(ctx, "canDeassign", userID+":"+roleName, err)
	}
	if err := d.resolver.CanDeassign(session, &user, roleName); err != nil {
		return d.mgr.rejected(ctx, "canDeassign", userID+":"+roleName, err)
	}
	return d.mgr.DeassignUser(ctx, userID, roleName)
}

// GrantPermission grants after canGrant clears the session.
func (d *Delegated) GrantPermission(ctx context.Context, session *models.Session, objName, opName, objID, roleName string) error {
	target := models.PermKey(objName, opName, objID) + ":" + roleName
	obj, err := d.mgr.dir.GetPermObj(objName)
	if err != nil {
		return d.mgr.rejected(ctx, "canGrant", target, err)
	}
	if err := d.resolver.CanGrant(session, &obj, roleName); err != nil {
		return d.mgr.rejected(ctx, "canGrant", target, err)
	}
	return d.mgr.GrantPermission(ctx, objName, opName, objID, roleName)
}

// RevokePermission revokes after canRevoke clears the session.
func (d *Delegated) RevokePermission(ctx context.Context, session *models.Session, objName, opName, objID, roleName string) error {
	target := models.PermKey(objName, opName, objID) + ":" + roleName
	obj, err := d.mgr.dir.GetPermObj(objName)
	if err != nil {
		return d.mgr.rejected(ctx, "canRevoke", target, err)
	}
	if err := d.resolver.CanRevoke(session, &obj, roleName); err != nil {
		return d.mgr.rejected(ctx, "canRevoke", target, err)
	}
	return d.mgr.RevokePermission(ctx, objName, opName, objID, roleName)
}

// CanAssign answers the predicate without mutating anything.
func (d *Delegated) CanAssign(_ context.Context, session *models.Session, userID, roleName string) (bool, error) {
	user, err := d.mgr.dir.GetUser(userID)
	if err != nil {
		return false, err
	}
	if err := d.resolver.CanAssign(session, &user, roleName); err != nil {
		return false, nil
	}
	return true, nil
}

// CanGrant answers the predicate without mutating anything.
func (d *Delegated) CanGrant(_ context.Context, session *models.Session, objName, roleName string) (bool, error) {
	obj, err := d.mgr.dir.GetPermObj(objName)
	if err != nil {
		return false, err
	}
	if err := d.resolver.CanGrant(session, &obj, roleName); err != nil {
		return false, nil
	}
	return true, nil
}
