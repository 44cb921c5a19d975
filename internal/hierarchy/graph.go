// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package hierarchy maintains the directed acyclic inheritance graphs used
// by the RBAC role hierarchy, the AdminRole hierarchy, and the two OrgUnit
// hierarchies. One generic Graph is instantiated per hierarchy; instances
// are never cross-linked.
//
// Edges run parent -> child. Ascendants of a vertex are reached by walking
// parent edges upward; descendants by walking child edges downward. Both
// closures are recomputed by traversal on every query, so results are
// always consistent with the current edge set and deterministic regardless
// of insertion order (returned sorted).
//
// Every mutating operation performs its structural check and its commit
// under one write lock, so cycle prevention is evaluated against a graph
// that cannot change between check and commit.
package hierarchy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Structural errors. The transport layer maps these onto the
// StructuralViolation / NotFound / AlreadyExists taxonomy.
var (
	ErrNotFound       = errors.New("vertex not found")
	ErrAlreadyExists  = errors.New("vertex already exists")
	ErrCycleDetected  = errors.New("inheritance would create a cycle")
	ErrAlreadyRelated = errors.New("vertices already directly related")
	ErrNotRelated     = errors.New("vertices not directly related")
)

// Graph is a labeled DAG with payloads of type T keyed by vertex name.
// The zero value is not usable; construct with New.
type Graph[T any] struct {
	mu       sync.RWMutex
	payloads map[string]T
	children map[string]map[string]struct{}
	parents  map[string]map[string]struct{}
}

// New returns an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		payloads: make(map[string]T),
		children: make(map[string]map[string]struct{}),
		parents:  make(map[string]map[string]struct{}),
	}
}

// Add inserts an unconnected vertex.
func (g *Graph[T]) Add(name string, payload T) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	g.insert(name, payload)
	return nil
}

// AddDescendant creates child with the given payload and the edge
// parent -> child. The parent must exist; the child must not.
func (g *Graph[T]) AddDescendant(parent, child string, payload T) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[parent]; !ok {
		return fmt.Errorf("%w: parent %q", ErrNotFound, parent)
	}
	if _, ok := g.payloads[child]; ok {
		return fmt.Errorf("%w: child %q", ErrAlreadyExists, child)
	}
	g.insert(child, payload)
	g.link(parent, child)
	return nil
}

// AddAscendant creates parent with the given payload and the edge
// parent -> child. The child must exist; the parent must not.
func (g *Graph[T]) AddAscendant(child, parent string, payload T) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[child]; !ok {
		return fmt.Errorf("%w: child %q", ErrNotFound, child)
	}
	if _, ok := g.payloads[parent]; ok {
		return fmt.Errorf("%w: parent %q", ErrAlreadyExists, parent)
	}
	g.insert(parent, payload)
	g.link(parent, child)
	return nil
}

// AddInheritance adds the edge parent -> child between two existing
// vertices. It fails with ErrCycleDetected when parent is already a
// descendant of child, and ErrAlreadyRelated when the edge already exists.
func (g *Graph[T]) AddInheritance(parent, child string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[parent]; !ok {
		return fmt.Errorf("%w: parent %q", ErrNotFound, parent)
	}
	if _, ok := g.payloads[child]; !ok {
		return fmt.Errorf("%w: child %q", ErrNotFound, child)
	}
	if parent == child {
		return fmt.Errorf("%w: %q onto itself", ErrCycleDetected, parent)
	}
	if _, ok := g.children[parent][child]; ok {
		return fmt.Errorf("%w: %q -> %q", ErrAlreadyRelated, parent, child)
	}
	// Reject if parent is reachable downward from child: the new edge
	// would close a cycle.
	if g.reachable(child, parent) {
		return fmt.Errorf("%w: %q is a descendant of %q", ErrCycleDetected, parent, child)
	}
	g.link(parent, child)
	return nil
}

// DeleteInheritance removes the edge parent -> child. Both vertices
// survive; dependent closures are simply recomputed on the next query.
func (g *Graph[T]) DeleteInheritance(parent, child string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[parent]; !ok {
		return fmt.Errorf("%w: parent %q", ErrNotFound, parent)
	}
	if _, ok := g.payloads[child]; !ok {
		return fmt.Errorf("%w: child %q", ErrNotFound, child)
	}
	if _, ok := g.children[parent][child]; !ok {
		return fmt.Errorf("%w: %q -> %q", ErrNotRelated, parent, child)
	}
	delete(g.children[parent], child)
	delete(g.parents[child], parent)
	return nil
}

// Delete removes a vertex and every edge touching it. Cascade policy
// (deassigning users, stripping SDSet membership) is the caller's duty.
func (g *Graph[T]) Delete(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	for child := range g.children[name] {
		delete(g.parents[child], name)
	}
	for parent := range g.parents[name] {
		delete(g.children[parent], name)
	}
	delete(g.children, name)
	delete(g.parents, name)
	delete(g.payloads, name)
	return nil
}

// Update replaces the payload of an existing vertex.
func (g *Graph[T]) Update(name string, payload T) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payloads[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	g.payloads[name] = payload
	return nil
}

// Get returns the payload for a vertex.
func (g *Graph[T]) Get(name string) (T, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	payload, ok := g.payloads[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return payload, nil
}

// Contains reports whether the vertex exists.
func (g *Graph[T]) Contains(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.payloads[name]
	return ok
}

// Names returns every vertex name, sorted.
func (g *Graph[T]) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.payloads))
	for name := range g.payloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the vertex count.
func (g *Graph[T]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.payloads)
}

// Children returns the immediate children of a vertex, sorted.
func (g *Graph[T]) Children(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.payloads[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return sortedKeys(g.children[name]), nil
}

// Parents returns the immediate parents of a vertex, sorted.
func (g *Graph[T]) Parents(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.payloads[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return sortedKeys(g.parents[name]), nil
}

// Descendants returns the transitive closure below the vertex (excluding
// the vertex itself), sorted. BFS over child edges.
func (g *Graph[T]) Descendants(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.payloads[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return g.closure(name, g.children), nil
}

// Ascendants returns the transitive closure above the vertex (excluding
// the vertex itself), sorted. BFS over parent edges.
func (g *Graph[T]) Ascendants(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.payloads[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return g.closure(name, g.parents), nil
}

// IsDescendant reports whether candidate is in the descendant closure of
// ancestor. Missing vertices report false.
func (g *Graph[T]) IsDescendant(ancestor, candidate string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reachable(ancestor, candidate)
}

// insert, link, reachable, and closure require g.mu held.

func (g *Graph[T]) insert(name string, payload T) {
	g.payloads[name] = payload
	g.children[name] = make(map[string]struct{})
	g.parents[name] = make(map[string]struct{})
}

func (g *Graph[T]) link(parent, child string) {
	g.children[parent][child] = struct{}{}
	g.parents[child][parent] = struct{}{}
}

// reachable reports whether target is reachable from start via child edges.
func (g *Graph[T]) reachable(start, target string) bool {
	if start == target {
		return false
	}
	seen := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for next := range g.children[current] {
			if next == target {
				return true
			}
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return false
}

func (g *Graph[T]) closure(start string, edges map[string]map[string]struct{}) []string {
	seen := map[string]struct{}{start: {}}
	queue := []string{start}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for next := range edges[current] {
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				result = append(result, next)
				queue = append(queue, next)
			}
		}
	}
	sort.Strings(result)
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
