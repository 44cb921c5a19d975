// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package admin

import (
	"context"

	"github.com/tomtom215/palisade/internal/models"
)

// CreateSDSet registers a separation-of-duty set of either kind.
func (m *Manager) CreateSDSet(ctx context.Context, set models.SDSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sd.CreateSet(set); err != nil {
		return m.rejected(ctx, "createSDSet", sdTarget(set.Kind, set.Name), err)
	}
	if err := m.persistSDSet(set.Kind, set.Name); err != nil {
		return err
	}
	m.accepted(ctx, "createSDSet", sdTarget(set.Kind, set.Name))
	return nil
}

// UpdateSDSet replaces a set's description and cardinality.
func (m *Manager) UpdateSDSet(ctx context.Context, kind models.SDKind, name, description string, cardinality int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sd.UpdateSet(kind, name, description, cardinality); err != nil {
		return m.rejected(ctx, "updateSDSet", sdTarget(kind, name), err)
	}
	if err := m.persistSDSet(kind, name); err != nil {
		return err
	}
	m.accepted(ctx, "updateSDSet", sdTarget(kind, name))
	return nil
}

// DeleteSDSet removes a set entirely.
func (m *Manager) DeleteSDSet(ctx context.Context, kind models.SDKind, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sd.DeleteSet(kind, name); err != nil {
		return m.rejected(ctx, "deleteSDSet", sdTarget(kind, name), err)
	}
	if err := m.dir.DeleteSDSetRecord(kind, name); err != nil {
		return err
	}
	m.accepted(ctx, "deleteSDSet", sdTarget(kind, name))
	return nil
}

// AddSDSetMember adds a role to a set's member list.
func (m *Manager) AddSDSetMember(ctx context.Context, kind models.SDKind, name, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sd.AddMember(kind, name, role); err != nil {
		return m.rejected(ctx, "addSDSetMember", sdTarget(kind, name)+":"+role, err)
	}
	if err := m.persistSDSet(kind, name); err != nil {
		return err
	}
	m.accepted(ctx, "addSDSetMember", sdTarget(kind, name)+":"+role)
	return nil
}

// RemoveSDSetMember removes a role from a set's member list, subject to
// the cardinality floor.
func (m *Manager) RemoveSDSetMember(ctx context.Context, kind models.SDKind, name, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sd.RemoveMember(kind, name, role); err != nil {
		return m.rejected(ctx, "removeSDSetMember", sdTarget(kind, name)+":"+role, err)
	}
	if err := m.persistSDSet(kind, name); err != nil {
		return err
	}
	m.accepted(ctx, "removeSDSetMember", sdTarget(kind, name)+":"+role)
	return nil
}

// SetSDSetCardinality adjusts a set's cardinality within its bounds.
func (m *Manager) SetSDSetCardinality(ctx context.Context, kind models.SDKind, name string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sd.SetCardinality(kind, name, n); err != nil {
		return m.rejected(ctx, "setSDSetCardinality", sdTarget(kind, name), err)
	}
	if err := m.persistSDSet(kind, name); err != nil {
		return err
	}
	m.accepted(ctx, "setSDSetCardinality", sdTarget(kind, name))
	return nil
}

func (m *Manager) persistSDSet(kind models.SDKind, name string) error {
	set, err := m.sd.Get(kind, name)
	if err != nil {
		return err
	}
	return m.dir.SaveSDSet(set)
}

func sdTarget(kind models.SDKind, name string) string {
	return string(kind) + ":" + name
}
