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

func (m *Manager) ouGraph(typ models.OrgUnitType) (*hierarchy.Graph[models.OrgUnit], string, error) {
	switch typ {
	case models.OrgUnitUser:
		return m.userOUs, directory.GraphUserOUs, nil
	case models.OrgUnitPerm:
		return m.permOUs, directory.GraphPermOUs, nil
	default:
		return nil, "", fmt.Errorf("unknown org unit type %q", typ)
	}
}

// AddOrgUnit creates an org unit in the hierarchy selected by its type.
func (m *Manager) AddOrgUnit(ctx context.Context, ou models.OrgUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, _, err := m.ouGraph(ou.Type)
	if err != nil {
		return m.rejected(ctx, "addOrgUnit", ou.Name, err)
	}
	if err := graph.Add(ou.Name, ou); err != nil {
		return m.rejected(ctx, "addOrgUnit", ou.Name, err)
	}
	if err := m.dir.SaveOrgUnit(ou); err != nil {
		return err
	}
	m.accepted(ctx, "addOrgUnit", string(ou.Type)+":"+ou.Name)
	return nil
}

// UpdateOrgUnit replaces an org unit's description.
func (m *Manager) UpdateOrgUnit(ctx context.Context, ou models.OrgUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, _, err := m.ouGraph(ou.Type)
	if err != nil {
		return m.rejected(ctx, "updateOrgUnit", ou.Name, err)
	}
	if err := graph.Update(ou.Name, ou); err != nil {
		return m.rejected(ctx, "updateOrgUnit", ou.Name, err)
	}
	if err := m.dir.SaveOrgUnit(ou); err != nil {
		return err
	}
	m.accepted(ctx, "updateOrgUnit", string(ou.Type)+":"+ou.Name)
	return nil
}

// DeleteOrgUnit removes an org unit. It fails while the unit still has
// hierarchy children, or while any user (USER type) or permission object
// (PERM type) belongs to it.
func (m *Manager) DeleteOrgUnit(ctx context.Context, typ models.OrgUnitType, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, graphID, err := m.ouGraph(typ)
	if err != nil {
		return m.rejected(ctx, "deleteOrgUnit", name, err)
	}
	children, err := graph.Children(name)
	if err != nil {
		return m.rejected(ctx, "deleteOrgUnit", name, err)
	}
	if len(children) > 0 {
		return m.rejected(ctx, "deleteOrgUnit", name,
			fmt.Errorf("%w: %d descendants remain", ErrOrgUnitInUse, len(children)))
	}
	if err := m.ouReferenced(typ, name); err != nil {
		return m.rejected(ctx, "deleteOrgUnit", name, err)
	}

	if err := graph.Delete(name); err != nil {
		return m.rejected(ctx, "deleteOrgUnit", name, err)
	}
	if err := m.dir.DeleteOrgUnitRecord(typ, name); err != nil {
		return err
	}
	if err := m.dir.SaveEdges(graphID, edgeMap(graph)); err != nil {
		return err
	}
	m.accepted(ctx, "deleteOrgUnit", string(typ)+":"+name)
	return nil
}

func (m *Manager) ouReferenced(typ models.OrgUnitType, name string) error {
	switch typ {
	case models.OrgUnitUser:
		for _, user := range m.dir.ListUsers("") {
			if user.OU == name {
				return fmt.Errorf("%w: user %q belongs to it", ErrOrgUnitInUse, user.UserID)
			}
		}
	case models.OrgUnitPerm:
		for _, obj := range m.dir.ListPermObjs() {
			if obj.OU == name {
				return fmt.Errorf("%w: object %q belongs to it", ErrOrgUnitInUse, obj.ObjName)
			}
		}
	}
	return nil
}

// AddDescendantOrgUnit creates a new org unit below parent.
func (m *Manager) AddDescendantOrgUnit(ctx context.Context, parent string, child models.OrgUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, graphID, err := m.ouGraph(child.Type)
	if err != nil {
		return m.rejected(ctx, "addDescendantOrgUnit", child.Name, err)
	}
	if err := graph.AddDescendant(parent, child.Name, child); err != nil {
		return m.rejected(ctx, "addDescendantOrgUnit", child.Name, err)
	}
	if err := m.dir.SaveOrgUnit(child); err != nil {
		return err
	}
	if err := m.dir.SaveEdges(graphID, edgeMap(graph)); err != nil {
		return err
	}
	m.accepted(ctx, "addDescendantOrgUnit", parent+">"+child.Name)
	return nil
}

// AddAscendantOrgUnit creates a new org unit above child.
func (m *Manager) AddAscendantOrgUnit(ctx context.Context, child string, parent models.OrgUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, graphID, err := m.ouGraph(parent.Type)
	if err != nil {
		return m.rejected(ctx, "addAscendantOrgUnit", parent.Name, err)
	}
	if err := graph.AddAscendant(child, parent.Name, parent); err != nil {
		return m.rejected(ctx, "addAscendantOrgUnit", parent.Name, err)
	}
	if err := m.dir.SaveOrgUnit(parent); err != nil {
		return err
	}
	if err := m.dir.SaveEdges(graphID, edgeMap(graph)); err != nil {
		return err
	}
	m.accepted(ctx, "addAscendantOrgUnit", parent.Name+">"+child)
	return nil
}

// AddOrgUnitInheritance links two existing org units of the same type.
func (m *Manager) AddOrgUnitInheritance(ctx context.Context, typ models.OrgUnitType, parent, child string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, graphID, err := m.ouGraph(typ)
	if err != nil {
		return m.rejected(ctx, "addOrgUnitInheritance", parent+">"+child, err)
	}
	if err := graph.AddInheritance(parent, child); err != nil {
		return m.rejected(ctx, "addOrgUnitInheritance", parent+">"+child, err)
	}
	if err := m.dir.SaveEdges(graphID, edgeMap(graph)); err != nil {
		return err
	}
	m.accepted(ctx, "addOrgUnitInheritance", parent+">"+child)
	return nil
}

// DeleteOrgUnitInheritance removes an immediate org-unit edge.
func (m *Manager) DeleteOrgUnitInheritance(ctx context.Context, typ models.OrgUnitType, parent, child string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	graph, graphID, err := m.ouGraph(typ)
	if err != nil {
		return m.rejected(ctx, "deleteOrgUnitInheritance", parent+">"+child, err)
	}
	if err := graph.DeleteInheritance(parent, child); err != nil {
		return m.rejected(ctx, "deleteOrgUnitInheritance", parent+">"+child, err)
	}
	if err := m.dir.SaveEdges(graphID, edgeMap(graph)); err != nil {
		return err
	}
	m.accepted(ctx, "deleteOrgUnitInheritance", parent+">"+child)
	return nil
}
