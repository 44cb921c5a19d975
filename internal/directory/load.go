// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package directory

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/palisade/internal/models"
)

// Snapshot is everything needed to rebuild the in-memory engines at boot.
type Snapshot struct {
	Users      []models.User
	Roles      []models.Role
	AdminRoles []models.AdminRole
	OrgUnits   []models.OrgUnit
	SDSets     []models.SDSet
	PermObjs   []models.PermObj
	Perms      []models.Permission

	// Edges maps graph identifier -> parent -> children.
	Edges map[string]map[string][]string
}

// LoadAll scans the badger keyspace, fills the in-memory mirror, and
// returns the snapshot the caller uses to rebuild hierarchy graphs and
// the SD engine. A memory-only store returns an empty snapshot.
func (s *Store) LoadAll() (*Snapshot, error) {
	snap := &Snapshot{Edges: make(map[string]map[string][]string)}
	if s.db == nil {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				return s.loadRecord(snap, key, val)
			}); err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// loadRecord dispatches one persisted record by key prefix. Requires
// s.mu held.
func (s *Store) loadRecord(snap *Snapshot, key string, val []byte) error {
	switch {
	case strings.HasPrefix(key, userKeyPrefix):
		var u models.User
		if err := json.Unmarshal(val, &u); err != nil {
			return err
		}
		s.users[u.UserID] = u
		snap.Users = append(snap.Users, u)

	case strings.HasPrefix(key, roleKeyPrefix):
		var r models.Role
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		snap.Roles = append(snap.Roles, r)

	case strings.HasPrefix(key, adminRoleKeyPrefix):
		var r models.AdminRole
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		snap.AdminRoles = append(snap.AdminRoles, r)

	case strings.HasPrefix(key, orgUnitKeyPrefix):
		var o models.OrgUnit
		if err := json.Unmarshal(val, &o); err != nil {
			return err
		}
		snap.OrgUnits = append(snap.OrgUnits, o)

	case strings.HasPrefix(key, sdSetKeyPrefix):
		var set models.SDSet
		if err := json.Unmarshal(val, &set); err != nil {
			return err
		}
		snap.SDSets = append(snap.SDSets, set)

	case strings.HasPrefix(key, permObjKeyPrefix):
		var o models.PermObj
		if err := json.Unmarshal(val, &o); err != nil {
			return err
		}
		s.permObjs[o.ObjName] = o
		snap.PermObjs = append(snap.PermObjs, o)

	case strings.HasPrefix(key, permKeyPrefix):
		var p models.Permission
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		s.perms[p.Key()] = p
		snap.Perms = append(snap.Perms, p)

	case strings.HasPrefix(key, edgesKeyPrefix):
		var edges map[string][]string
		if err := json.Unmarshal(val, &edges); err != nil {
			return err
		}
		snap.Edges[strings.TrimPrefix(key, edgesKeyPrefix)] = edges
	}
	return nil
}
