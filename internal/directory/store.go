// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package directory is the durable record store behind the decision
// engines: Users, Roles, AdminRoles, OrgUnits, SDSets, PermObjs, and
// Permissions, persisted in BadgerDB with an authoritative in-memory
// mirror for Users and Permissions.
//
// The engines treat this package as a queryable record store, not a
// storage engine to design: hierarchy edges and SD sets live in their own
// components and are written through here only for crash recovery
// (LoadAll rebuilds them at boot). Mutations are write-through: the
// in-memory mirror and BadgerDB are updated under one lock, so no reader
// observes a partially applied record change.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/palisade/internal/models"
)

// Record errors.
var (
	ErrNotFound      = errors.New("directory record not found")
	ErrAlreadyExists = errors.New("directory record already exists")
)

// Key prefixes for BadgerDB storage.
const (
	userKeyPrefix      = "user:"
	roleKeyPrefix      = "role:"
	adminRoleKeyPrefix = "adminrole:"
	orgUnitKeyPrefix   = "orgunit:" // orgunit:<type>:<name>
	sdSetKeyPrefix     = "sdset:"   // sdset:<kind>:<name>
	permObjKeyPrefix   = "permobj:"
	permKeyPrefix      = "perm:"
	edgesKeyPrefix     = "edges:" // edges:<graph> -> parent->children map
)

// Graph identifiers for persisted edge sets.
const (
	GraphRoles      = "roles"
	GraphAdminRoles = "adminroles"
	GraphUserOUs    = "orgunits-user"
	GraphPermOUs    = "orgunits-perm"
)

// Store is the directory store. A nil badger handle runs memory-only,
// which the tests and ephemeral deployments use.
type Store struct {
	db *badger.DB

	mu       sync.RWMutex
	users    map[string]models.User
	permObjs map[string]models.PermObj
	perms    map[string]models.Permission
}

// Open creates a store over an already-opened BadgerDB handle.
func Open(db *badger.DB) *Store {
	return &Store{
		db:       db,
		users:    make(map[string]models.User),
		permObjs: make(map[string]models.PermObj),
		perms:    make(map[string]models.Permission),
	}
}

// OpenMemory creates a store with no durable backing.
func OpenMemory() *Store {
	return Open(nil)
}

// ---- Users ----

// PutUser inserts or replaces a user record.
func (s *Store) PutUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(userKeyPrefix+u.UserID, u); err != nil {
		return err
	}
	s.users[u.UserID] = u
	return nil
}

// CreateUser inserts a user, failing if the ID is taken.
func (s *Store) CreateUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.UserID]; ok {
		return fmt.Errorf("%w: user %q", ErrAlreadyExists, u.UserID)
	}
	if err := s.persist(userKeyPrefix+u.UserID, u); err != nil {
		return err
	}
	s.users[u.UserID] = u
	return nil
}

// GetUser returns a user record by ID.
func (s *Store) GetUser(userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}
	return u, nil
}

// DeleteUser removes a user record.
func (s *Store) DeleteUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}
	if err := s.remove(userKeyPrefix + userID); err != nil {
		return err
	}
	delete(s.users, userID)
	return nil
}

// ListUsers returns all users sorted by ID. An empty pattern matches all;
// otherwise the pattern is a case-insensitive ID prefix.
func (s *Store) ListUsers(pattern string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if pattern == "" || strings.HasPrefix(strings.ToLower(u.UserID), strings.ToLower(pattern)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// UsersWithRole returns the users directly assigned the named RBAC role.
func (s *Store) UsersWithRole(role string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.User
	for _, u := range s.users {
		if _, ok := u.AssignedRole(role); ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// UsersWithAdminRole returns the users directly assigned the admin role.
func (s *Store) UsersWithAdminRole(role string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.User
	for _, u := range s.users {
		if _, ok := u.AssignedAdminRole(role); ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ---- PermObjs ----

// CreatePermObj inserts a permission object container.
func (s *Store) CreatePermObj(o models.PermObj) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permObjs[o.ObjName]; ok {
		return fmt.Errorf("%w: perm object %q", ErrAlreadyExists, o.ObjName)
	}
	if err := s.persist(permObjKeyPrefix+o.ObjName, o); err != nil {
		return err
	}
	s.permObjs[o.ObjName] = o
	return nil
}

// PutPermObj inserts or replaces a permission object container.
func (s *Store) PutPermObj(o models.PermObj) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(permObjKeyPrefix+o.ObjName, o); err != nil {
		return err
	}
	s.permObjs[o.ObjName] = o
	return nil
}

// GetPermObj returns the permission object container.
func (s *Store) GetPermObj(objName string) (models.PermObj, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.permObjs[objName]
	if !ok {
		return models.PermObj{}, fmt.Errorf("%w: perm object %q", ErrNotFound, objName)
	}
	return o, nil
}

// DeletePermObj removes the container and every permission under it
// (PermObj is the one-to-many parent of Permission).
func (s *Store) DeletePermObj(objName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permObjs[objName]; !ok {
		return fmt.Errorf("%w: perm object %q", ErrNotFound, objName)
	}
	for key, p := range s.perms {
		if p.ObjName == objName {
			if err := s.remove(permKeyPrefix + key); err != nil {
				return err
			}
			delete(s.perms, key)
		}
	}
	if err := s.remove(permObjKeyPrefix + objName); err != nil {
		return err
	}
	delete(s.permObjs, objName)
	return nil
}

// ListPermObjs returns all containers sorted by name.
func (s *Store) ListPermObjs() []models.PermObj {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PermObj, 0, len(s.permObjs))
	for _, o := range s.permObjs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjName < out[j].ObjName })
	return out
}

// ---- Permissions ----

// CreatePermission inserts a permission; its PermObj must exist.
func (s *Store) CreatePermission(p models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permObjs[p.ObjName]; !ok {
		return fmt.Errorf("%w: perm object %q", ErrNotFound, p.ObjName)
	}
	key := p.Key()
	if _, ok := s.perms[key]; ok {
		return fmt.Errorf("%w: permission %q", ErrAlreadyExists, key)
	}
	if err := s.persist(permKeyPrefix+key, p); err != nil {
		return err
	}
	s.perms[key] = p
	return nil
}

// PutPermission inserts or replaces a permission.
func (s *Store) PutPermission(p models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.Key()
	if err := s.persist(permKeyPrefix+key, p); err != nil {
		return err
	}
	s.perms[key] = p
	return nil
}

// GetPermission looks up a permission by its composite key parts.
func (s *Store) GetPermission(objName, opName, objID string) (models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.perms[models.PermKey(objName, opName, objID)]
	if !ok {
		return models.Permission{}, fmt.Errorf("%w: permission %q",
			ErrNotFound, models.PermKey(objName, opName, objID))
	}
	return p, nil
}

// DeletePermission removes a permission.
func (s *Store) DeletePermission(objName, opName, objID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.PermKey(objName, opName, objID)
	if _, ok := s.perms[key]; !ok {
		return fmt.Errorf("%w: permission %q", ErrNotFound, key)
	}
	if err := s.remove(permKeyPrefix + key); err != nil {
		return err
	}
	delete(s.perms, key)
	return nil
}

// ListPermissions returns every permission sorted by key.
func (s *Store) ListPermissions() []models.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// PermissionsOfObj returns the permissions under one container.
func (s *Store) PermissionsOfObj(objName string) []models.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Permission
	for _, p := range s.perms {
		if p.ObjName == objName {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ---- Write-through records for the other components ----

// SaveRole persists a role payload for crash recovery.
func (s *Store) SaveRole(r models.Role) error {
	return s.persistLocked(roleKeyPrefix+r.Name, r)
}

// DeleteRoleRecord removes a persisted role payload.
func (s *Store) DeleteRoleRecord(name string) error {
	return s.removeLocked(roleKeyPrefix + name)
}

// SaveAdminRole persists an admin role payload.
func (s *Store) SaveAdminRole(r models.AdminRole) error {
	return s.persistLocked(adminRoleKeyPrefix+r.Name, r)
}

// DeleteAdminRoleRecord removes a persisted admin role payload.
func (s *Store) DeleteAdminRoleRecord(name string) error {
	return s.removeLocked(adminRoleKeyPrefix + name)
}

// SaveOrgUnit persists an org unit payload.
func (s *Store) SaveOrgUnit(o models.OrgUnit) error {
	return s.persistLocked(orgUnitKeyPrefix+string(o.Type)+":"+o.Name, o)
}

// DeleteOrgUnitRecord removes a persisted org unit payload.
func (s *Store) DeleteOrgUnitRecord(typ models.OrgUnitType, name string) error {
	return s.removeLocked(orgUnitKeyPrefix + string(typ) + ":" + name)
}

// SaveSDSet persists a separation-of-duty set.
func (s *Store) SaveSDSet(set models.SDSet) error {
	return s.persistLocked(sdSetKeyPrefix+string(set.Kind)+":"+set.Name, set)
}

// DeleteSDSetRecord removes a persisted SD set.
func (s *Store) DeleteSDSetRecord(kind models.SDKind, name string) error {
	return s.removeLocked(sdSetKeyPrefix + string(kind) + ":" + name)
}

// SaveEdges persists the full parent->children edge map of one graph.
// Edge sets are small relative to record counts, so whole-map writes keep
// recovery trivial.
func (s *Store) SaveEdges(graph string, edges map[string][]string) error {
	return s.persistLocked(edgesKeyPrefix+graph, edges)
}

func (s *Store) persistLocked(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(key, v)
}

func (s *Store) removeLocked(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(key)
}

// persist writes one record to badger. Requires s.mu held.
func (s *Store) persist(key string, v any) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// remove deletes one record from badger. Requires s.mu held.
func (s *Store) remove(key string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
