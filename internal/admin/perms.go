// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package admin

import (
	"context"
	"fmt"

	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
)

// AddPermObj creates a permission object container. Its OU must exist in
// the PERM org hierarchy.
func (m *Manager) AddPermObj(ctx context.Context, obj models.PermObj) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj.OU == "" || !m.permOUs.Contains(obj.OU) {
		return m.rejected(ctx, "addPermObj", obj.ObjName,
			fmt.Errorf("perm org unit %q: %w", obj.OU, hierarchy.ErrNotFound))
	}
	if err := m.dir.CreatePermObj(obj); err != nil {
		return m.rejected(ctx, "addPermObj", obj.ObjName, err)
	}
	m.accepted(ctx, "addPermObj", obj.ObjName)
	return nil
}

// UpdatePermObj replaces a permission object's OU and description.
func (m *Manager) UpdatePermObj(ctx context.Context, obj models.PermObj) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj.OU == "" || !m.permOUs.Contains(obj.OU) {
		return m.rejected(ctx, "updatePermObj", obj.ObjName,
			fmt.Errorf("perm org unit %q: %w", obj.OU, hierarchy.ErrNotFound))
	}
	if _, err := m.dir.GetPermObj(obj.ObjName); err != nil {
		return m.rejected(ctx, "updatePermObj", obj.ObjName, err)
	}
	if err := m.dir.PutPermObj(obj); err != nil {
		return err
	}
	m.accepted(ctx, "updatePermObj", obj.ObjName)
	return nil
}

// DeletePermObj removes the object and every permission under it.
func (m *Manager) DeletePermObj(ctx context.Context, objName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dir.DeletePermObj(objName); err != nil {
		return m.rejected(ctx, "deletePermObj", objName, err)
	}
	m.accepted(ctx, "deletePermObj", objName)
	return nil
}

// AddPermission creates an operation under an existing object. Grantee
// lists start empty; use GrantPermission.
func (m *Manager) AddPermission(ctx context.Context, perm models.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	perm.Roles = nil
	perm.Users = nil
	if err := m.dir.CreatePermission(perm); err != nil {
		return m.rejected(ctx, "addPermission", perm.Key(), err)
	}
	m.accepted(ctx, "addPermission", perm.Key())
	return nil
}

// UpdatePermission replaces the permission's description. Grantee lists
// are preserved; use Grant/Revoke to change them.
func (m *Manager) UpdatePermission(ctx context.Context, perm models.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.dir.GetPermission(perm.ObjName, perm.OpName, perm.ObjID)
	if err != nil {
		return m.rejected(ctx, "updatePermission", perm.Key(), err)
	}
	stored.Description = perm.Description
	if err := m.dir.PutPermission(stored); err != nil {
		return err
	}
	m.accepted(ctx, "updatePermission", perm.Key())
	return nil
}

// DeletePermission removes one operation.
func (m *Manager) DeletePermission(ctx context.Context, objName, opName, objID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dir.DeletePermission(objName, opName, objID); err != nil {
		return m.rejected(ctx, "deletePermission", models.PermKey(objName, opName, objID), err)
	}
	m.accepted(ctx, "deletePermission", models.PermKey(objName, opName, objID))
	return nil
}

// GrantPermission adds a role to the permission's grantee list.
func (m *Manager) GrantPermission(ctx context.Context, objName, opName, objID, roleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.grantPermissionLocked(objName, opName, objID, roleName); err != nil {
		return m.rejected(ctx, "grantPermission", models.PermKey(objName, opName, objID)+":"+roleName, err)
	}
	m.accepted(ctx, "grantPermission", models.PermKey(objName, opName, objID)+":"+roleName)
	return nil
}

func (m *Manager) grantPermissionLocked(objName, opName, objID, roleName string) error {
	if !m.roles.Contains(roleName) {
		return fmt.Errorf("role %q: %w", roleName, hierarchy.ErrNotFound)
	}
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return err
	}
	if perm.GrantedToRole(roleName) {
		return fmt.Errorf("%w: role %q", ErrAlreadyGranted, roleName)
	}
	perm.Roles = append(perm.Roles, roleName)
	return m.dir.PutPermission(perm)
}

// RevokePermission removes a role from the permission's grantee list.
func (m *Manager) RevokePermission(ctx context.Context, objName, opName, objID, roleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.revokePermissionLocked(objName, opName, objID, roleName); err != nil {
		return m.rejected(ctx, "revokePermission", models.PermKey(objName, opName, objID)+":"+roleName, err)
	}
	m.accepted(ctx, "revokePermission", models.PermKey(objName, opName, objID)+":"+roleName)
	return nil
}

func (m *Manager) revokePermissionLocked(objName, opName, objID, roleName string) error {
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return err
	}
	if !perm.GrantedToRole(roleName) {
		return fmt.Errorf("%w: role %q", ErrNotGranted, roleName)
	}
	kept := perm.Roles[:0]
	for _, r := range perm.Roles {
		if r != roleName {
			kept = append(kept, r)
		}
	}
	perm.Roles = kept
	return m.dir.PutPermission(perm)
}

// GrantPermissionUser adds a direct user grant, bypassing roles.
func (m *Manager) GrantPermissionUser(ctx context.Context, objName, opName, objID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := models.PermKey(objName, opName, objID) + ":" + userID
	if _, err := m.dir.GetUser(userID); err != nil {
		return m.rejected(ctx, "grantPermissionUser", target, err)
	}
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return m.rejected(ctx, "grantPermissionUser", target, err)
	}
	if perm.GrantedToUser(userID) {
		return m.rejected(ctx, "grantPermissionUser", target,
			fmt.Errorf("%w: user %q", ErrAlreadyGranted, userID))
	}
	perm.Users = append(perm.Users, userID)
	if err := m.dir.PutPermission(perm); err != nil {
		return err
	}
	m.accepted(ctx, "grantPermissionUser", target)
	return nil
}

// RevokePermissionUser removes a direct user grant.
func (m *Manager) RevokePermissionUser(ctx context.Context, objName, opName, objID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := models.PermKey(objName, opName, objID) + ":" + userID
	perm, err := m.dir.GetPermission(objName, opName, objID)
	if err != nil {
		return m.rejected(ctx, "revokePermissionUser", target, err)
	}
	if !perm.GrantedToUser(userID) {
		return m.rejected(ctx, "revokePermissionUser", target,
			fmt.Errorf("%w: user %q", ErrNotGranted, userID))
	}
	kept := perm.Users[:0]
	for _, u := range perm.Users {
		if u != userID {
			kept = append(kept, u)
		}
	}
	perm.Users = kept
	if err := m.dir.PutPermission(perm); err != nil {
		return err
	}
	m.accepted(ctx, "revokePermissionUser", target)
	return nil
}
