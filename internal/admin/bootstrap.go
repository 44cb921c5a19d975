// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package admin

import (
	"fmt"

	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/sod"
)

// Bootstrap rebuilds the in-memory engines from the persisted snapshot:
// node payloads first, then edges, then SD sets. Called once at startup
// before any request is served.
func Bootstrap(dir *directory.Store, roles *hierarchy.Graph[models.Role],
	adminRoles *hierarchy.Graph[models.AdminRole],
	userOUs, permOUs *hierarchy.Graph[models.OrgUnit], sd *sod.Engine) error {

	snap, err := dir.LoadAll()
	if err != nil {
		return fmt.Errorf("load directory: %w", err)
	}

	for _, r := range snap.Roles {
		if err := roles.Add(r.Name, r); err != nil {
			return fmt.Errorf("role %q: %w", r.Name, err)
		}
	}
	for _, r := range snap.AdminRoles {
		if err := adminRoles.Add(r.Name, r); err != nil {
			return fmt.Errorf("admin role %q: %w", r.Name, err)
		}
	}
	for _, ou := range snap.OrgUnits {
		graph := userOUs
		if ou.Type == models.OrgUnitPerm {
			graph = permOUs
		}
		if err := graph.Add(ou.Name, ou); err != nil {
			return fmt.Errorf("org unit %q: %w", ou.Name, err)
		}
	}

	graphs := map[string]interface{ AddInheritance(parent, child string) error }{
		directory.GraphRoles:      roles,
		directory.GraphAdminRoles: adminRoles,
		directory.GraphUserOUs:    userOUs,
		directory.GraphPermOUs:    permOUs,
	}
	for graphID, edges := range snap.Edges {
		graph, ok := graphs[graphID]
		if !ok {
			return fmt.Errorf("unknown graph %q in edge records", graphID)
		}
		for parent, children := range edges {
			for _, child := range children {
				if err := graph.AddInheritance(parent, child); err != nil {
					return fmt.Errorf("edge %s>%s in %s: %w", parent, child, graphID, err)
				}
			}
		}
	}

	for _, set := range snap.SDSets {
		sd.Load(set)
	}
	return nil
}
