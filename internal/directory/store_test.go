// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package directory

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/palisade/internal/models"
)

func openBadger(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserCRUD(t *testing.T) {
	s := OpenMemory()

	u := models.User{UserID: "alice", OU: "engineering"}
	if err := s.CreateUser(u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(u); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v", err)
	}

	got, err := s.GetUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.OU != "engineering" {
		t.Errorf("OU = %q", got.OU)
	}

	u.Roles = []models.UserRole{{Name: "clerk"}}
	if err := s.PutUser(u); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetUser("alice")
	if len(got.Roles) != 1 {
		t.Errorf("roles after update = %v", got.Roles)
	}

	if err := s.DeleteUser("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetUser("alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: got %v", err)
	}
}

func TestListAndFilterUsers(t *testing.T) {
	s := OpenMemory()
	for _, id := range []string{"alice", "albert", "bob"} {
		if err := s.CreateUser(models.User{UserID: id}); err != nil {
			t.Fatal(err)
		}
	}

	all := s.ListUsers("")
	if len(all) != 3 || all[0].UserID != "albert" {
		t.Errorf("ListUsers = %v", all)
	}
	als := s.ListUsers("AL")
	if len(als) != 2 {
		t.Errorf("prefix filter = %v", als)
	}
}

func TestUsersWithRole(t *testing.T) {
	s := OpenMemory()
	_ = s.CreateUser(models.User{UserID: "u1", Roles: []models.UserRole{{Name: "clerk"}}})
	_ = s.CreateUser(models.User{UserID: "u2", Roles: []models.UserRole{{Name: "teller"}}})
	_ = s.CreateUser(models.User{UserID: "u3", AdminRoles: []models.UserAdminRole{{Name: "helpdesk"}}})

	withClerk := s.UsersWithRole("clerk")
	if len(withClerk) != 1 || withClerk[0].UserID != "u1" {
		t.Errorf("UsersWithRole = %v", withClerk)
	}
	withAdmin := s.UsersWithAdminRole("helpdesk")
	if len(withAdmin) != 1 || withAdmin[0].UserID != "u3" {
		t.Errorf("UsersWithAdminRole = %v", withAdmin)
	}
}

func TestPermissionLifecycle(t *testing.T) {
	s := OpenMemory()

	p := models.Permission{ObjName: "ledger", OpName: "post"}
	if err := s.CreatePermission(p); !errors.Is(err, ErrNotFound) {
		t.Fatalf("permission without container: got %v", err)
	}

	if err := s.CreatePermObj(models.PermObj{ObjName: "ledger", OU: "accounting"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePermission(p); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePermission(p); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate permission: got %v", err)
	}

	got, err := s.GetPermission("ledger", "post", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Key() != "ledger::post" {
		t.Errorf("key = %q", got.Key())
	}

	// Deleting the container cascades to its permissions.
	if err := s.DeletePermObj("ledger"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPermission("ledger", "post", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("permission after container delete: got %v", err)
	}
}

func TestPermissionsOfObj(t *testing.T) {
	s := OpenMemory()
	_ = s.CreatePermObj(models.PermObj{ObjName: "ledger"})
	_ = s.CreatePermObj(models.PermObj{ObjName: "vault"})
	_ = s.CreatePermission(models.Permission{ObjName: "ledger", OpName: "post"})
	_ = s.CreatePermission(models.Permission{ObjName: "ledger", OpName: "read"})
	_ = s.CreatePermission(models.Permission{ObjName: "vault", OpName: "open"})

	perms := s.PermissionsOfObj("ledger")
	if len(perms) != 2 {
		t.Errorf("PermissionsOfObj = %v", perms)
	}
}

// Records written through a badger-backed store must survive a reopen.
func TestPersistenceRoundTrip(t *testing.T) {
	db := openBadger(t)

	s := Open(db)
	if err := s.CreateUser(models.User{UserID: "alice", OU: "eng"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRole(models.Role{Name: "clerk", Description: "posts entries"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSDSet(models.SDSet{Kind: models.SSD, Name: "S1", Members: []string{"a", "b"}, Cardinality: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveEdges(GraphRoles, map[string][]string{"clerk": {"junior-clerk"}}); err != nil {
		t.Fatal(err)
	}

	// Fresh store over the same handle simulates restart.
	reopened := Open(db)
	snap, err := reopened.LoadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.Users) != 1 || snap.Users[0].UserID != "alice" {
		t.Errorf("users = %v", snap.Users)
	}
	if len(snap.Roles) != 1 || snap.Roles[0].Name != "clerk" {
		t.Errorf("roles = %v", snap.Roles)
	}
	if len(snap.SDSets) != 1 || snap.SDSets[0].Cardinality != 2 {
		t.Errorf("sdsets = %v", snap.SDSets)
	}
	if got := snap.Edges[GraphRoles]["clerk"]; len(got) != 1 || got[0] != "junior-clerk" {
		t.Errorf("edges = %v", snap.Edges)
	}

	// Mirror is also rebuilt.
	if _, err := reopened.GetUser("alice"); err != nil {
		t.Errorf("mirror after LoadAll: %v", err)
	}
}
