// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package sod maintains the named separation-of-duty role sets and
// enforces their cardinality bounds.
//
// The SSD/DSD dichotomy is the central invariant: SSD sets are checked
// when a role is *assigned* to a user, against the user's currently
// assigned roles; DSD sets are checked when a role is *activated* in a
// session, against the session's currently active roles. The two checks
// must never be conflated.
package sod

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/palisade/internal/models"
)

// Engine errors.
var (
	ErrSetNotFound        = errors.New("sd set not found")
	ErrSetExists          = errors.New("sd set already exists")
	ErrRoleNotFound       = errors.New("sd member role not found in role hierarchy")
	ErrInvalidCardinality = errors.New("cardinality must be between 2 and the member count")
	ErrCardinalityTooHigh = errors.New("member removal would leave fewer members than cardinality")
	ErrViolation          = errors.New("separation-of-duty violation")
)

// RoleChecker answers whether a role exists in the RBAC role hierarchy.
// Satisfied by *hierarchy.Graph[models.Role].
type RoleChecker interface {
	Contains(name string) bool
}

// Engine holds the SSD and DSD set collections. Set names are unique per
// kind. All methods are safe for concurrent use; mutations are serialized
// by the internal lock so a check never interleaves with a membership
// change.
type Engine struct {
	mu    sync.RWMutex
	sets  map[models.SDKind]map[string]models.SDSet
	roles RoleChecker
}

// NewEngine creates an empty engine backed by the given role hierarchy.
func NewEngine(roles RoleChecker) *Engine {
	return &Engine{
		sets: map[models.SDKind]map[string]models.SDSet{
			models.SSD: make(map[string]models.SDSet),
			models.DSD: make(map[string]models.SDSet),
		},
		roles: roles,
	}
}

// CreateSet registers a new SD set after validating cardinality bounds and
// member existence.
func (e *Engine) CreateSet(set models.SDSet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	kind, err := e.kindOf(set.Kind)
	if err != nil {
		return err
	}
	if _, ok := kind[set.Name]; ok {
		return fmt.Errorf("%w: %s set %q", ErrSetExists, set.Kind, set.Name)
	}
	if err := validCardinality(set.Cardinality, len(set.Members)); err != nil {
		return err
	}
	for _, member := range set.Members {
		if !e.roles.Contains(member) {
			return fmt.Errorf("%w: %q", ErrRoleNotFound, member)
		}
	}

	set.Members = dedupe(set.Members)
	kind[set.Name] = set
	return nil
}

// UpdateSet replaces description and (when non-zero) cardinality of an
// existing set. Membership changes go through AddMember/RemoveMember.
func (e *Engine) UpdateSet(kind models.SDKind, name, description string, cardinality int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return err
	}
	set, ok := sets[name]
	if !ok {
		return fmt.Errorf("%w: %s set %q", ErrSetNotFound, kind, name)
	}
	if cardinality != 0 {
		if err := validCardinality(cardinality, len(set.Members)); err != nil {
			return err
		}
		set.Cardinality = cardinality
	}
	set.Description = description
	sets[name] = set
	return nil
}

// DeleteSet removes a set entirely.
func (e *Engine) DeleteSet(kind models.SDKind, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return err
	}
	if _, ok := sets[name]; !ok {
		return fmt.Errorf("%w: %s set %q", ErrSetNotFound, kind, name)
	}
	delete(sets, name)
	return nil
}

// AddMember adds a role to an existing set.
func (e *Engine) AddMember(kind models.SDKind, name, role string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return err
	}
	set, ok := sets[name]
	if !ok {
		return fmt.Errorf("%w: %s set %q", ErrSetNotFound, kind, name)
	}
	if !e.roles.Contains(role) {
		return fmt.Errorf("%w: %q", ErrRoleNotFound, role)
	}
	if set.HasMember(role) {
		return nil // idempotent
	}
	set.Members = append(append([]string(nil), set.Members...), role)
	sort.Strings(set.Members)
	sets[name] = set
	return nil
}

// RemoveMember removes a role from a set. Removal that would leave fewer
// members than the cardinality is rejected; lower the cardinality first.
func (e *Engine) RemoveMember(kind models.SDKind, name, role string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return err
	}
	set, ok := sets[name]
	if !ok {
		return fmt.Errorf("%w: %s set %q", ErrSetNotFound, kind, name)
	}
	if !set.HasMember(role) {
		return fmt.Errorf("%w: %q not a member of %q", ErrRoleNotFound, role, name)
	}
	if len(set.Members)-1 < set.Cardinality {
		return fmt.Errorf("%w: set %q cardinality %d", ErrCardinalityTooHigh, name, set.Cardinality)
	}
	members := make([]string, 0, len(set.Members)-1)
	for _, m := range set.Members {
		if m != role {
			members = append(members, m)
		}
	}
	set.Members = members
	sets[name] = set
	return nil
}

// SetCardinality changes the violation threshold of a set.
func (e *Engine) SetCardinality(kind models.SDKind, name string, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return err
	}
	set, ok := sets[name]
	if !ok {
		return fmt.Errorf("%w: %s set %q", ErrSetNotFound, kind, name)
	}
	if err := validCardinality(n, len(set.Members)); err != nil {
		return err
	}
	set.Cardinality = n
	sets[name] = set
	return nil
}

// Get returns one set by kind and name.
func (e *Engine) Get(kind models.SDKind, name string) (models.SDSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return models.SDSet{}, err
	}
	set, ok := sets[name]
	if !ok {
		return models.SDSet{}, fmt.Errorf("%w: %s set %q", ErrSetNotFound, kind, name)
	}
	return set, nil
}

// List returns every set of a kind, sorted by name.
func (e *Engine) List(kind models.SDKind) ([]models.SDSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return nil, err
	}
	out := make([]models.SDSet, 0, len(sets))
	for _, s := range sets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetsContaining returns every set of a kind that has the role as a member,
// sorted by name. Used by the review queries (ssdRoleSets/dsdRoleSets) and
// by RemoveRoleEverywhere.
func (e *Engine) SetsContaining(kind models.SDKind, role string) ([]models.SDSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets, err := e.kindOf(kind)
	if err != nil {
		return nil, err
	}
	var out []models.SDSet
	for _, s := range sets {
		if s.HasMember(role) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CheckAssignment enforces SSD: adding candidate to the user's assigned
// roles must not reach any SSD set's cardinality. The assigned slice is
// the user's currently assigned role names, candidate excluded.
func (e *Engine) CheckAssignment(assigned []string, candidate string) error {
	return e.check(models.SSD, assigned, candidate)
}

// CheckActivation enforces DSD: activating candidate in a session must not
// reach any DSD set's cardinality against the already-active roles.
func (e *Engine) CheckActivation(active []string, candidate string) error {
	return e.check(models.DSD, active, candidate)
}

func (e *Engine) check(kind models.SDKind, held []string, candidate string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, set := range e.sets[kind] {
		if !set.HasMember(candidate) {
			continue
		}
		count := 1 // the candidate itself
		for _, h := range held {
			if h != candidate && set.HasMember(h) {
				count++
			}
		}
		if count >= set.Cardinality {
			return fmt.Errorf("%w: %s set %q cardinality %d reached by %q",
				ErrViolation, kind, set.Name, set.Cardinality, candidate)
		}
	}
	return nil
}

// RemoveRoleEverywhere strips a deleted role from every set of both kinds,
// part of the deleteRole cascade. Sets shrinking below their cardinality
// have the cardinality lowered to the member count; sets shrinking below
// two members are dropped, since a one-member exclusion constrains nothing.
func (e *Engine) RemoveRoleEverywhere(role string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sets := range e.sets {
		for name, set := range sets {
			if !set.HasMember(role) {
				continue
			}
			members := make([]string, 0, len(set.Members)-1)
			for _, m := range set.Members {
				if m != role {
					members = append(members, m)
				}
			}
			if len(members) < 2 {
				delete(sets, name)
				continue
			}
			set.Members = members
			if set.Cardinality > len(members) {
				set.Cardinality = len(members)
			}
			sets[name] = set
		}
	}
}

// Load installs a persisted set without validation, used when rebuilding
// state from the directory at startup.
func (e *Engine) Load(set models.SDSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sets[set.Kind]; ok {
		e.sets[set.Kind][set.Name] = set
	}
}

func (e *Engine) kindOf(kind models.SDKind) (map[string]models.SDSet, error) {
	sets, ok := e.sets[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrSetNotFound, kind)
	}
	return sets, nil
}

func validCardinality(n, members int) error {
	if n < 2 || n > members {
		return fmt.Errorf("%w: got %d with %d members", ErrInvalidCardinality, n, members)
	}
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
