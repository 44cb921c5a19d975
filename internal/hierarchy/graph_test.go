// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package hierarchy

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

// chain builds R1 -> R2 -> ... -> Rn with R1 as the topmost parent.
func chain(t *testing.T, names ...string) *Graph[string] {
	t.Helper()
	g := New[string]()
	if err := g.Add(names[0], names[0]); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(names); i++ {
		if err := g.AddDescendant(names[i-1], names[i], names[i]); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestAddAndDuplicates(t *testing.T) {
	g := New[string]()
	if err := g.Add("R1", "payload"); err != nil {
		t.Fatal(err)
	}
	if err := g.Add("R1", "other"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate Add: got %v, want ErrAlreadyExists", err)
	}
	if !g.Contains("R1") || g.Contains("R2") {
		t.Error("Contains mismatch")
	}
}

func TestAddDescendantAndAscendant(t *testing.T) {
	g := New[string]()
	if err := g.AddDescendant("missing", "child", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("absent parent: got %v, want ErrNotFound", err)
	}

	mustAdd(t, g, "R1")
	if err := g.AddDescendant("R1", "R2", "r2"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddDescendant("R1", "R2", "r2"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("existing child: got %v, want ErrAlreadyExists", err)
	}

	if err := g.AddAscendant("R2", "R0", "r0"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddAscendant("nope", "R9", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("absent child: got %v, want ErrNotFound", err)
	}
	if err := g.AddAscendant("R2", "R1", ""); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("existing parent: got %v, want ErrAlreadyExists", err)
	}

	parents, err := g.Parents("R2")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(parents, []string{"R0", "R1"}) {
		t.Errorf("Parents(R2) = %v", parents)
	}
}

// Scenario: create R1, addDescendant(R1, R2), then addInheritance(R2, R1)
// must fail with a cycle error and leave the graph unchanged.
func TestInheritanceCyclePrevention(t *testing.T) {
	g := chain(t, "R1", "R2")

	if err := g.AddInheritance("R2", "R1"); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("cycle edge: got %v, want ErrCycleDetected", err)
	}

	// Graph unchanged: R1 still has exactly one child.
	children, _ := g.Children("R1")
	if !reflect.DeepEqual(children, []string{"R2"}) {
		t.Errorf("graph mutated by rejected edge: %v", children)
	}

	// Deep cycle through intermediates.
	g2 := chain(t, "A", "B", "C", "D")
	if err := g2.AddInheritance("D", "A"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("transitive cycle: got %v, want ErrCycleDetected", err)
	}
	if err := g2.AddInheritance("A", "A"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("self edge: got %v, want ErrCycleDetected", err)
	}
}

func TestInheritanceAlreadyAndNotRelated(t *testing.T) {
	g := chain(t, "R1", "R2")

	if err := g.AddInheritance("R1", "R2"); !errors.Is(err, ErrAlreadyRelated) {
		t.Errorf("duplicate edge: got %v, want ErrAlreadyRelated", err)
	}
	if err := g.DeleteInheritance("R2", "R1"); !errors.Is(err, ErrNotRelated) {
		t.Errorf("reverse edge delete: got %v, want ErrNotRelated", err)
	}
	if err := g.DeleteInheritance("R1", "R2"); err != nil {
		t.Fatal(err)
	}
	// Now legal in the other direction since the edge is gone.
	if err := g.AddInheritance("R2", "R1"); err != nil {
		t.Errorf("edge after delete: %v", err)
	}
}

func TestClosures(t *testing.T) {
	// Diamond: top -> {left, right} -> bottom.
	g := New[string]()
	mustAdd(t, g, "top")
	mustAdd(t, g, "left")
	mustAdd(t, g, "right")
	mustAdd(t, g, "bottom")
	for _, e := range [][2]string{{"top", "left"}, {"top", "right"}, {"left", "bottom"}, {"right", "bottom"}} {
		if err := g.AddInheritance(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	desc, err := g.Descendants("top")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(desc, []string{"bottom", "left", "right"}) {
		t.Errorf("Descendants(top) = %v", desc)
	}

	asc, err := g.Ascendants("bottom")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(asc, []string{"left", "right", "top"}) {
		t.Errorf("Ascendants(bottom) = %v", asc)
	}

	if !g.IsDescendant("top", "bottom") || g.IsDescendant("bottom", "top") {
		t.Error("IsDescendant mismatch")
	}
}

// Re-querying without intervening mutation returns an identical set
// regardless of call count.
func TestClosureIdempotence(t *testing.T) {
	g := chain(t, "R1", "R2", "R3", "R4", "R5")
	first, err := g.Descendants("R1")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := g.Descendants("R1")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("closure not idempotent: %v vs %v", first, again)
		}
	}
}

func TestDeleteVertex(t *testing.T) {
	g := chain(t, "R1", "R2", "R3")
	if err := g.Delete("R2"); err != nil {
		t.Fatal(err)
	}
	if g.Contains("R2") {
		t.Error("R2 still present")
	}
	// Edges through R2 are gone; R3 is now disconnected from R1.
	desc, _ := g.Descendants("R1")
	if len(desc) != 0 {
		t.Errorf("dangling edges after delete: %v", desc)
	}
	if err := g.Delete("R2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestUpdatePayload(t *testing.T) {
	g := New[string]()
	mustAdd(t, g, "R1")
	if err := g.Update("R1", "new payload"); err != nil {
		t.Fatal(err)
	}
	got, err := g.Get("R1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "new payload" {
		t.Errorf("Get after Update = %q", got)
	}
	if err := g.Update("missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: got %v", err)
	}
}

// Concurrent readers against a writer must not observe a partially applied
// mutation; the race detector backs this test up.
func TestConcurrentAccess(t *testing.T) {
	g := chain(t, "R1", "R2", "R3")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := g.Descendants("R1"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_ = g.AddInheritance("R1", "R3")
			_ = g.DeleteInheritance("R1", "R3")
		}
	}()
	wg.Wait()
}

func mustAdd(t *testing.T, g *Graph[string], name string) {
	t.Helper()
	if err := g.Add(name, name); err != nil {
		t.Fatal(err)
	}
}
