// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package sod

import (
	"errors"
	"testing"

	"github.com/tomtom215/palisade/internal/models"
)

// fakeRoles is a RoleChecker backed by a fixed set.
type fakeRoles map[string]struct{}

func (f fakeRoles) Contains(name string) bool {
	_, ok := f[name]
	return ok
}

func roles(names ...string) fakeRoles {
	f := make(fakeRoles, len(names))
	for _, n := range names {
		f[n] = struct{}{}
	}
	return f
}

func newSSD(t *testing.T, e *Engine, name string, cardinality int, members ...string) {
	t.Helper()
	err := e.CreateSet(models.SDSet{Kind: models.SSD, Name: name, Members: members, Cardinality: cardinality})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateSetValidation(t *testing.T) {
	e := NewEngine(roles("A", "B", "C"))

	tests := []struct {
		name    string
		set     models.SDSet
		wantErr error
	}{
		{"valid", models.SDSet{Kind: models.SSD, Name: "S1", Members: []string{"A", "B", "C"}, Cardinality: 2}, nil},
		{"duplicate name", models.SDSet{Kind: models.SSD, Name: "S1", Members: []string{"A", "B"}, Cardinality: 2}, ErrSetExists},
		{"same name other kind ok", models.SDSet{Kind: models.DSD, Name: "S1", Members: []string{"A", "B"}, Cardinality: 2}, nil},
		{"cardinality too low", models.SDSet{Kind: models.SSD, Name: "S2", Members: []string{"A", "B"}, Cardinality: 1}, ErrInvalidCardinality},
		{"cardinality above members", models.SDSet{Kind: models.SSD, Name: "S3", Members: []string{"A", "B"}, Cardinality: 3}, ErrInvalidCardinality},
		{"unknown member", models.SDSet{Kind: models.SSD, Name: "S4", Members: []string{"A", "Z"}, Cardinality: 2}, ErrRoleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CreateSet(tt.set)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateSet() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Scenario: SSD set {A,B,C} cardinality 2; a user already assigned A must
// be refused assignment of B.
func TestCheckAssignmentSSD(t *testing.T) {
	e := NewEngine(roles("A", "B", "C", "D"))
	newSSD(t, e, "S1", 2, "A", "B", "C")

	if err := e.CheckAssignment(nil, "A"); err != nil {
		t.Errorf("first conflicting role is legal: %v", err)
	}
	if err := e.CheckAssignment([]string{"A"}, "B"); !errors.Is(err, ErrViolation) {
		t.Errorf("second conflicting role: got %v, want ErrViolation", err)
	}
	if err := e.CheckAssignment([]string{"A"}, "D"); err != nil {
		t.Errorf("non-member role unaffected: %v", err)
	}
	// Re-assigning a role the user already holds counts it once.
	if err := e.CheckAssignment([]string{"A"}, "A"); err != nil {
		t.Errorf("candidate already held must not double count: %v", err)
	}
}

func TestCheckAssignmentCardinalityThree(t *testing.T) {
	e := NewEngine(roles("A", "B", "C"))
	newSSD(t, e, "S1", 3, "A", "B", "C")

	if err := e.CheckAssignment([]string{"A"}, "B"); err != nil {
		t.Errorf("two of three is below cardinality 3: %v", err)
	}
	if err := e.CheckAssignment([]string{"A", "B"}, "C"); !errors.Is(err, ErrViolation) {
		t.Errorf("third role reaches cardinality: got %v", err)
	}
}

// DSD is evaluated against active roles only; holding both assignments is
// legal, activating both is not.
func TestCheckActivationDSD(t *testing.T) {
	e := NewEngine(roles("X", "Y"))
	err := e.CreateSet(models.SDSet{Kind: models.DSD, Name: "D1", Members: []string{"X", "Y"}, Cardinality: 2})
	if err != nil {
		t.Fatal(err)
	}

	// Assignment side is untouched by DSD sets.
	if err := e.CheckAssignment([]string{"X"}, "Y"); err != nil {
		t.Errorf("DSD set must not constrain assignment: %v", err)
	}

	if err := e.CheckActivation(nil, "X"); err != nil {
		t.Errorf("first activation legal: %v", err)
	}
	if err := e.CheckActivation([]string{"X"}, "Y"); !errors.Is(err, ErrViolation) {
		t.Errorf("second activation: got %v, want ErrViolation", err)
	}
}

func TestMembershipMutation(t *testing.T) {
	e := NewEngine(roles("A", "B", "C", "D"))
	newSSD(t, e, "S1", 2, "A", "B")

	if err := e.AddMember(models.SSD, "S1", "C"); err != nil {
		t.Fatal(err)
	}
	if err := e.AddMember(models.SSD, "S1", "Z"); !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("unknown role member: got %v", err)
	}
	if err := e.AddMember(models.SSD, "missing", "A"); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("unknown set: got %v", err)
	}

	// |members|=3, cardinality=2: one removal is fine, the next would
	// leave 1 < 2 and must be refused.
	if err := e.RemoveMember(models.SSD, "S1", "C"); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveMember(models.SSD, "S1", "B"); !errors.Is(err, ErrCardinalityTooHigh) {
		t.Errorf("removal below cardinality: got %v, want ErrCardinalityTooHigh", err)
	}

	set, err := e.Get(models.SSD, "S1")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Members) != 2 {
		t.Errorf("members = %v", set.Members)
	}
}

func TestSetCardinality(t *testing.T) {
	e := NewEngine(roles("A", "B", "C"))
	newSSD(t, e, "S1", 2, "A", "B", "C")

	if err := e.SetCardinality(models.SSD, "S1", 3); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCardinality(models.SSD, "S1", 4); !errors.Is(err, ErrInvalidCardinality) {
		t.Errorf("cardinality above members: got %v", err)
	}
	if err := e.SetCardinality(models.SSD, "S1", 1); !errors.Is(err, ErrInvalidCardinality) {
		t.Errorf("cardinality below 2: got %v", err)
	}
}

func TestSetsContainingAndList(t *testing.T) {
	e := NewEngine(roles("A", "B", "C"))
	newSSD(t, e, "S1", 2, "A", "B")
	newSSD(t, e, "S2", 2, "B", "C")

	sets, err := e.SetsContaining(models.SSD, "B")
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 || sets[0].Name != "S1" || sets[1].Name != "S2" {
		t.Errorf("SetsContaining(B) = %v", sets)
	}

	sets, err = e.SetsContaining(models.SSD, "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 || sets[0].Name != "S1" {
		t.Errorf("SetsContaining(A) = %v", sets)
	}

	all, err := e.List(models.SSD)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("List = %v", all)
	}
}

func TestRemoveRoleEverywhere(t *testing.T) {
	e := NewEngine(roles("A", "B", "C"))
	newSSD(t, e, "S1", 3, "A", "B", "C")
	newSSD(t, e, "S2", 2, "A", "B")

	e.RemoveRoleEverywhere("C")

	// S1 shrank to 2 members; cardinality clamped to 2.
	set, err := e.Get(models.SSD, "S1")
	if err != nil {
		t.Fatal(err)
	}
	if set.Cardinality != 2 || len(set.Members) != 2 {
		t.Errorf("S1 after cascade = %+v", set)
	}

	e.RemoveRoleEverywhere("B")

	// Both sets fall below two members and are dropped.
	if _, err := e.Get(models.SSD, "S1"); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("S1 should be dropped, got %v", err)
	}
	if _, err := e.Get(models.SSD, "S2"); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("S2 should be dropped, got %v", err)
	}
}

func TestDeleteSet(t *testing.T) {
	e := NewEngine(roles("A", "B"))
	newSSD(t, e, "S1", 2, "A", "B")
	if err := e.DeleteSet(models.SSD, "S1"); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteSet(models.SSD, "S1"); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("double delete: got %v", err)
	}
}
