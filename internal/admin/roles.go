// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package admin

import (
	"context"
	"fmt"

	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
)

// AddRole creates a role with no hierarchy relations.
func (m *Manager) AddRole(ctx context.Context, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := role.Constraint.Validate(); err != nil {
		return m.rejected(ctx, "addRole", role.Name, err)
	}
	if err := m.roles.Add(role.Name, role); err != nil {
		return m.rejected(ctx, "addRole", role.Name, err)
	}
	if err := m.dir.SaveRole(role); err != nil {
		return err
	}
	m.accepted(ctx, "addRole", role.Name)
	return nil
}

// UpdateRole replaces a role's description and constraint. The name and
// hierarchy relations are immutable.
func (m *Manager) UpdateRole(ctx context.Context, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := role.Constraint.Validate(); err != nil {
		return m.rejected(ctx, "updateRole", role.Name, err)
	}
	if err := m.roles.Update(role.Name, role); err != nil {
		return m.rejected(ctx, "updateRole", role.Name, err)
	}
	if err := m.dir.SaveRole(role); err != nil {
		return err
	}
	m.accepted(ctx, "updateRole", role.Name)
	return nil
}

// DeleteRole removes a role. The deletion cascades: the role is
// deassigned from every user, withdrawn from every SD set (sets left
// below two members dissolve), and struck from every permission's
// grantee list. Hierarchy edges through the role are unlinked so no
// dangling edge survives.
func (m *Manager) DeleteRole(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.roles.Contains(name) {
		return m.rejected(ctx, "deleteRole", name, fmt.Errorf("role %q: %w", name, hierarchy.ErrNotFound))
	}

	for _, user := range m.dir.UsersWithRole(name) {
		if err := m.deassignUserLocked(user.UserID, name); err != nil {
			return fmt.Errorf("deassign %q: %w", user.UserID, err)
		}
	}

	// Snapshot the affected SD sets first so dissolved ones can have
	// their records removed.
	if err := m.removeRoleFromSDSets(name); err != nil {
		return err
	}

	for _, perm := range m.dir.ListPermissions() {
		if !perm.GrantedToRole(name) {
			continue
		}
		kept := perm.Roles[:0]
		for _, r := range perm.Roles {
			if r != name {
				kept = append(kept, r)
			}
		}
		perm.Roles = kept
		if err := m.dir.PutPermission(perm); err != nil {
			return err
		}
	}

	if err := m.roles.Delete(name); err != nil {
		return m.rejected(ctx, "deleteRole", name, err)
	}
	if err := m.dir.DeleteRoleRecord(name); err != nil {
		return err
	}
	if err := m.saveRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "deleteRole", name)
	return nil
}

func (m *Manager) removeRoleFromSDSets(name string) error {
	var affected []models.SDSet
	for _, kind := range []models.SDKind{models.SSD, models.DSD} {
		sets, err := m.sd.SetsContaining(kind, name)
		if err != nil {
			return err
		}
		affected = append(affected, sets...)
	}

	m.sd.RemoveRoleEverywhere(name)

	for _, before := range affected {
		after, err := m.sd.Get(before.Kind, before.Name)
		if err != nil {
			// The set dissolved below two members.
			if err := m.dir.DeleteSDSetRecord(before.Kind, before.Name); err != nil {
				return err
			}
			continue
		}
		if err := m.dir.SaveSDSet(after); err != nil {
			return err
		}
	}
	return nil
}

// AddDescendantRole creates a new role as an immediate child of parent.
func (m *Manager) AddDescendantRole(ctx context.Context, parent string, child models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := child.Constraint.Validate(); err != nil {
		return m.rejected(ctx, "addDescendantRole", child.Name, err)
	}
	if err := m.roles.AddDescendant(parent, child.Name, child); err != nil {
		return m.rejected(ctx, "addDescendantRole", child.Name, err)
	}
	if err := m.dir.SaveRole(child); err != nil {
		return err
	}
	if err := m.saveRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "addDescendantRole", parent+">"+child.Name)
	return nil
}

// AddAscendantRole creates a new role as an immediate parent of child.
func (m *Manager) AddAscendantRole(ctx context.Context, child string, parent models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := parent.Constraint.Validate(); err != nil {
		return m.rejected(ctx, "addAscendantRole", parent.Name, err)
	}
	if err := m.roles.AddAscendant(child, parent.Name, parent); err != nil {
		return m.rejected(ctx, "addAscendantRole", parent.Name, err)
	}
	if err := m.dir.SaveRole(parent); err != nil {
		return err
	}
	if err := m.saveRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "addAscendantRole", parent.Name+">"+child)
	return nil
}

// AddInheritance links two existing roles parent over child, subject to
// the graph's cycle prevention.
func (m *Manager) AddInheritance(ctx context.Context, parent, child string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.roles.AddInheritance(parent, child); err != nil {
		return m.rejected(ctx, "addInheritance", parent+">"+child, err)
	}
	if err := m.saveRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "addInheritance", parent+">"+child)
	return nil
}

// DeleteInheritance removes the immediate edge parent over child.
func (m *Manager) DeleteInheritance(ctx context.Context, parent, child string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.roles.DeleteInheritance(parent, child); err != nil {
		return m.rejected(ctx, "deleteInheritance", parent+">"+child, err)
	}
	if err := m.saveRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "deleteInheritance", parent+">"+child)
	return nil
}

func (m *Manager) saveRoleEdges() error {
	return m.dir.SaveEdges(directory.GraphRoles, edgeMap(m.roles))
}

// AddAdminRole creates an admin role. Range endpoints must both be set
// or both be empty; when set they must exist in the RBAC hierarchy. OU
// scopes must exist in their respective org hierarchies.
func (m *Manager) AddAdminRole(ctx context.Context, role models.AdminRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateAdminRole(&role); err != nil {
		return m.rejected(ctx, "addAdminRole", role.Name, err)
	}
	if err := m.adminRoles.Add(role.Name, role); err != nil {
		return m.rejected(ctx, "addAdminRole", role.Name, err)
	}
	if err := m.dir.SaveAdminRole(role); err != nil {
		return err
	}
	m.accepted(ctx, "addAdminRole", role.Name)
	return nil
}

// UpdateAdminRole replaces an admin role's payload, including its range
// and OU scopes.
func (m *Manager) UpdateAdminRole(ctx context.Context, role models.AdminRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateAdminRole(&role); err != nil {
		return m.rejected(ctx, "updateAdminRole", role.Name, err)
	}
	if err := m.adminRoles.Update(role.Name, role); err != nil {
		return m.rejected(ctx, "updateAdminRole", role.Name, err)
	}
	if err := m.dir.SaveAdminRole(role); err != nil {
		return err
	}
	m.accepted(ctx, "updateAdminRole", role.Name)
	return nil
}

func (m *Manager) validateAdminRole(role *models.AdminRole) error {
	if err := role.Constraint.Validate(); err != nil {
		return err
	}
	if (role.BeginRange == "") != (role.EndRange == "") {
		return fmt.Errorf("%w: endpoints must both be set or both empty", ErrInvalidRange)
	}
	if role.BeginRange != "" {
		if !m.roles.Contains(role.BeginRange) {
			return fmt.Errorf("%w: begin %q not in role hierarchy", ErrInvalidRange, role.BeginRange)
		}
		if !m.roles.Contains(role.EndRange) {
			return fmt.Errorf("%w: end %q not in role hierarchy", ErrInvalidRange, role.EndRange)
		}
	}
	for _, ou := range role.OSUs {
		if !m.userOUs.Contains(ou) {
			return fmt.Errorf("user org unit %q: %w", ou, hierarchy.ErrNotFound)
		}
	}
	for _, ou := range role.OSPs {
		if !m.permOUs.Contains(ou) {
			return fmt.Errorf("perm org unit %q: %w", ou, hierarchy.ErrNotFound)
		}
	}
	return nil
}

// DeleteAdminRole removes an admin role, deassigning it from every user.
func (m *Manager) DeleteAdminRole(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.adminRoles.Contains(name) {
		return m.rejected(ctx, "deleteAdminRole", name, fmt.Errorf("admin role %q: %w", name, hierarchy.ErrNotFound))
	}

	for _, user := range m.dir.UsersWithAdminRole(name) {
		kept := user.AdminRoles[:0]
		for _, r := range user.AdminRoles {
			if r.Name != name {
				kept = append(kept, r)
			}
		}
		user.AdminRoles = kept
		if err := m.dir.PutUser(user); err != nil {
			return err
		}
	}

	if err := m.adminRoles.Delete(name); err != nil {
		return m.rejected(ctx, "deleteAdminRole", name, err)
	}
	if err := m.dir.DeleteAdminRoleRecord(name); err != nil {
		return err
	}
	if err := m.saveAdminRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "deleteAdminRole", name)
	return nil
}

// AddDescendantAdminRole creates a new admin role below parent.
func (m *Manager) AddDescendantAdminRole(ctx context.Context, parent string, child models.AdminRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateAdminRole(&child); err != nil {
		return m.rejected(ctx, "addDescendantAdminRole", child.Name, err)
	}
	if err := m.adminRoles.AddDescendant(parent, child.Name, child); err != nil {
		return m.rejected(ctx, "addDescendantAdminRole", child.Name, err)
	}
	if err := m.dir.SaveAdminRole(child); err != nil {
		return err
	}
	if err := m.saveAdminRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "addDescendantAdminRole", parent+">"+child.Name)
	return nil
}

// AddAscendantAdminRole creates a new admin role above child.
func (m *Manager) AddAscendantAdminRole(ctx context.Context, child string, parent models.AdminRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateAdminRole(&parent); err != nil {
		return m.rejected(ctx, "addAscendantAdminRole", parent.Name, err)
	}
	if err := m.adminRoles.AddAscendant(child, parent.Name, parent); err != nil {
		return m.rejected(ctx, "addAscendantAdminRole", parent.Name, err)
	}
	if err := m.dir.SaveAdminRole(parent); err != nil {
		return err
	}
	if err := m.saveAdminRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "addAscendantAdminRole", parent.Name+">"+child)
	return nil
}

// AddAdminInheritance links two existing admin roles.
func (m *Manager) AddAdminInheritance(ctx context.Context, parent, child string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.adminRoles.AddInheritance(parent, child); err != nil {
		return m.rejected(ctx, "addAdminInheritance", parent+">"+child, err)
	}
	if err := m.saveAdminRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "addAdminInheritance", parent+">"+child)
	return nil
}

// DeleteAdminInheritance removes an immediate admin-role edge.
func (m *Manager) DeleteAdminInheritance(ctx context.Context, parent, child string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.adminRoles.DeleteInheritance(parent, child); err != nil {
		return m.rejected(ctx, "deleteAdminInheritance", parent+">"+child, err)
	}
	if err := m.saveAdminRoleEdges(); err != nil {
		return err
	}
	m.accepted(ctx, "deleteAdminInheritance", parent+">"+child)
	return nil
}

func (m *Manager) saveAdminRoleEdges() error {
	return m.dir.SaveEdges(directory.GraphAdminRoles, edgeMap(m.adminRoles))
}
