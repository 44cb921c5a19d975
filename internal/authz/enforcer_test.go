// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package authz

import (
	"testing"
	"time"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(&EnforcerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEmbeddedPolicy(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		subject string
		object  string
		action  string
		want    bool
	}{
		{RoleAdmin, ObjectAdmin, ActionWrite, true},
		{RoleAdmin, ObjectAdmin, ActionRead, true},
		{RoleAdmin, ObjectReview, ActionRead, true},
		{RoleAdmin, ObjectAudit, ActionRead, false},
		{RoleReview, ObjectReview, ActionRead, true},
		{RoleReview, ObjectAdmin, ActionWrite, false},
		{RoleAccess, ObjectAccess, ActionWrite, true},
		{RoleDelAdmin, ObjectDelegated, ActionWrite, true},
		{RoleDelReview, ObjectDelegated, ActionWrite, false},
		{RoleDelReview, ObjectDelegated, ActionRead, true},
		{RoleAudit, ObjectAudit, ActionRead, true},
		{RoleAudit, ObjectAudit, ActionWrite, false},
		{RoleConfig, ObjectConfig, ActionWrite, true},
		{"stranger", ObjectReview, ActionRead, false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.subject, tt.object, tt.action)
		if err != nil {
			t.Fatalf("%s/%s/%s: %v", tt.subject, tt.object, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.subject, tt.object, tt.action, got, tt.want)
		}
	}
}

func TestSuperInheritsEverything(t *testing.T) {
	e := newTestEnforcer(t)

	objects := []struct {
		object string
		action string
	}{
		{ObjectAdmin, ActionWrite},
		{ObjectAccess, ActionWrite},
		{ObjectDelegated, ActionWrite},
		{ObjectAudit, ActionRead},
		{ObjectConfig, ActionWrite},
		{ObjectReview, ActionRead},
	}
	for _, tt := range objects {
		ok, err := e.Enforce(RoleSuper, tt.object, tt.action)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("super must reach %s/%s", tt.object, tt.action)
		}
	}
}

func TestEnforceAny(t *testing.T) {
	e := newTestEnforcer(t)

	ok, err := e.EnforceAny([]string{"engineer", RoleReview}, ObjectReview, ActionRead)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("one qualifying role must suffice")
	}

	ok, err = e.EnforceAny([]string{"engineer", "clerk"}, ObjectAdmin, ActionWrite)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("no qualifying role must deny")
	}

	ok, err = e.EnforceAny(nil, ObjectReview, ActionRead)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("empty role list must deny")
	}
}

func TestDecisionCache(t *testing.T) {
	e, err := NewEnforcer(&EnforcerConfig{CacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	for i := 0; i < 3; i++ {
		ok, err := e.Enforce(RoleReview, ObjectReview, ActionRead)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("iteration %d: denied", i)
		}
	}
	if _, hit := e.cache.get(RoleReview, ObjectReview, ActionRead); !hit {
		t.Error("decision must be cached after first enforcement")
	}
}
