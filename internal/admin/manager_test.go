// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/palisade/internal/arbac"
	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/sod"
)

type env struct {
	dir        *directory.Store
	roles      *hierarchy.Graph[models.Role]
	adminRoles *hierarchy.Graph[models.AdminRole]
	userOUs    *hierarchy.Graph[models.OrgUnit]
	permOUs    *hierarchy.Graph[models.OrgUnit]
	sd         *sod.Engine
	mgr        *Manager
}

func newEnv(t *testing.T, dir *directory.Store) *env {
	t.Helper()

	e := &env{
		dir:        dir,
		roles:      hierarchy.New[models.Role](),
		adminRoles: hierarchy.New[models.AdminRole](),
		userOUs:    hierarchy.New[models.OrgUnit](),
		permOUs:    hierarchy.New[models.OrgUnit](),
	}
	e.sd = sod.NewEngine(e.roles)
	e.mgr = NewManager(Config{
		Dir:        e.dir,
		Roles:      e.roles,
		AdminRoles: e.adminRoles,
		UserOUs:    e.userOUs,
		PermOUs:    e.permOUs,
		SD:         e.sd,
	})
	return e
}

func newMemEnv(t *testing.T) *env {
	return newEnv(t, directory.OpenMemory())
}

func (e *env) seedOUs(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, ou := range []models.OrgUnit{
		{Name: "eng", Type: models.OrgUnitUser},
		{Name: "apps", Type: models.OrgUnitPerm},
	} {
		if err := e.mgr.AddOrgUnit(ctx, ou); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAddUser(t *testing.T) {
	e := newMemEnv(t)
	e.seedOUs(t)
	ctx := context.Background()

	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1", OU: "eng"}, "hunter22"); err != nil {
		t.Fatal(err)
	}
	user, err := e.dir.GetUser("u1")
	if err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")); err != nil {
		t.Error("password hash does not verify")
	}

	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1"}, ""); !errors.Is(err, directory.ErrAlreadyExists) {
		t.Errorf("duplicate: got %v", err)
	}
	if err := e.mgr.AddUser(ctx, models.User{UserID: "u2", OU: "ghost"}, ""); !errors.Is(err, hierarchy.ErrNotFound) {
		t.Errorf("unknown OU: got %v", err)
	}
}

func TestAssignUserStaticSeparationOfDuty(t *testing.T) {
	e := newMemEnv(t)
	ctx := context.Background()

	for _, name := range []string{"billing", "audit", "treasury"} {
		if err := e.mgr.AddRole(ctx, models.Role{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.mgr.CreateSDSet(ctx, models.SDSet{
		Kind: models.SSD, Name: "finance",
		Members: []string{"billing", "audit", "treasury"}, Cardinality: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1"}, ""); err != nil {
		t.Fatal(err)
	}

	// First member is fine; a second from the same set trips cardinality 2.
	if err := e.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "billing"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "audit"}); !errors.Is(err, sod.ErrViolation) {
		t.Fatalf("second member: got %v, want sod.ErrViolation", err)
	}

	// Deassigning frees the slot again.
	if err := e.mgr.DeassignUser(ctx, "u1", "billing"); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "audit"}); err != nil {
		t.Fatal(err)
	}

	if err := e.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "audit"}); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("re-assign: got %v", err)
	}
	if err := e.mgr.DeassignUser(ctx, "u1", "billing"); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("deassign unheld: got %v", err)
	}
	if err := e.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "ghost"}); !errors.Is(err, hierarchy.ErrNotFound) {
		t.Errorf("unknown role: got %v", err)
	}
}

func TestDeleteRoleCascades(t *testing.T) {
	e := newMemEnv(t)
	e.seedOUs(t)
	ctx := context.Background()

	for _, name := range []string{"payer", "approver"} {
		if err := e.mgr.AddRole(ctx, models.Role{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.mgr.AddDescendantRole(ctx, "payer", models.Role{Name: "payer-jr"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.CreateSDSet(ctx, models.SDSet{
		Kind: models.DSD, Name: "payments", Members: []string{"payer", "approver"}, Cardinality: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "payer"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermObj(ctx, models.PermObj{ObjName: "ledger", OU: "apps"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermission(ctx, models.Permission{ObjName: "ledger", OpName: "post"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.GrantPermission(ctx, "ledger", "post", "", "payer"); err != nil {
		t.Fatal(err)
	}

	if err := e.mgr.DeleteRole(ctx, "payer"); err != nil {
		t.Fatal(err)
	}

	user, err := e.dir.GetUser("u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := user.AssignedRole("payer"); ok {
		t.Error("assignment must cascade away")
	}
	// The two-member DSD set dissolves when one member is removed.
	if _, err := e.sd.Get(models.DSD, "payments"); !errors.Is(err, sod.ErrSetNotFound) {
		t.Errorf("sd set: got %v, want dissolved", err)
	}
	perm, err := e.dir.GetPermission("ledger", "post", "")
	if err != nil {
		t.Fatal(err)
	}
	if perm.GrantedToRole("payer") {
		t.Error("grantee must cascade away")
	}
	if e.roles.Contains("payer") {
		t.Error("role must be gone from the hierarchy")
	}
	// The former child survives, unlinked.
	parents, err := e.roles.Parents("payer-jr")
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 0 {
		t.Errorf("dangling edge: %v", parents)
	}
}

func TestAdminRoleValidation(t *testing.T) {
	e := newMemEnv(t)
	e.seedOUs(t)
	ctx := context.Background()

	if err := e.mgr.AddRole(ctx, models.Role{Name: "R1"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		role models.AdminRole
		want error
	}{
		{"one-sided range", models.AdminRole{Role: models.Role{Name: "a"}, BeginRange: "R1"}, ErrInvalidRange},
		{"unknown endpoint", models.AdminRole{Role: models.Role{Name: "a"}, BeginRange: "R1", EndRange: "ghost"}, ErrInvalidRange},
		{"unknown user OU", models.AdminRole{Role: models.Role{Name: "a"}, OSUs: []string{"ghost"}}, hierarchy.ErrNotFound},
		{"unknown perm OU", models.AdminRole{Role: models.Role{Name: "a"}, OSPs: []string{"ghost"}}, hierarchy.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.mgr.AddAdminRole(ctx, tt.role); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	ok := models.AdminRole{
		Role: models.Role{Name: "user-admin"}, BeginRange: "R1", EndRange: "R1",
		BeginInclusive: true, EndInclusive: true, OSUs: []string{"eng"},
	}
	if err := e.mgr.AddAdminRole(ctx, ok); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AssignUserAdminRole(ctx, "ghost", models.UserAdminRole{Name: "user-admin"}); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestDeleteOrgUnitInUse(t *testing.T) {
	e := newMemEnv(t)
	e.seedOUs(t)
	ctx := context.Background()

	if err := e.mgr.AddDescendantOrgUnit(ctx, "eng", models.OrgUnit{Name: "eng-be", Type: models.OrgUnitUser}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.DeleteOrgUnit(ctx, models.OrgUnitUser, "eng"); !errors.Is(err, ErrOrgUnitInUse) {
		t.Errorf("children remain: got %v", err)
	}

	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1", OU: "eng-be"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.DeleteOrgUnit(ctx, models.OrgUnitUser, "eng-be"); !errors.Is(err, ErrOrgUnitInUse) {
		t.Errorf("member remains: got %v", err)
	}

	if err := e.mgr.DeleteUser(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.DeleteOrgUnit(ctx, models.OrgUnitUser, "eng-be"); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.DeleteOrgUnit(ctx, models.OrgUnitUser, "eng"); err != nil {
		t.Fatal(err)
	}
}

func TestPermissionGrants(t *testing.T) {
	e := newMemEnv(t)
	e.seedOUs(t)
	ctx := context.Background()

	if err := e.mgr.AddRole(ctx, models.Role{Name: "reader"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermObj(ctx, models.PermObj{ObjName: "ledger", OU: "apps"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermObj(ctx, models.PermObj{ObjName: "orphan", OU: "ghost"}); !errors.Is(err, hierarchy.ErrNotFound) {
		t.Errorf("unknown perm OU: got %v", err)
	}
	if err := e.mgr.AddPermission(ctx, models.Permission{ObjName: "ledger", OpName: "read"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermission(ctx, models.Permission{ObjName: "ghost", OpName: "read"}); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("missing container: got %v", err)
	}

	if err := e.mgr.GrantPermission(ctx, "ledger", "read", "", "reader"); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.GrantPermission(ctx, "ledger", "read", "", "reader"); !errors.Is(err, ErrAlreadyGranted) {
		t.Errorf("double grant: got %v", err)
	}
	if err := e.mgr.RevokePermission(ctx, "ledger", "read", "", "reader"); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.RevokePermission(ctx, "ledger", "read", "", "reader"); !errors.Is(err, ErrNotGranted) {
		t.Errorf("double revoke: got %v", err)
	}

	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.GrantPermissionUser(ctx, "ledger", "read", "", "u1"); err != nil {
		t.Fatal(err)
	}
	perm, err := e.dir.GetPermission("ledger", "read", "")
	if err != nil {
		t.Fatal(err)
	}
	if !perm.GrantedToUser("u1") {
		t.Error("direct user grant missing")
	}
	if err := e.mgr.RevokePermissionUser(ctx, "ledger", "read", "", "u1"); err != nil {
		t.Fatal(err)
	}

	if err := e.mgr.GrantPermission(ctx, "ledger", "read", "", "reader"); err != nil {
		t.Fatal(err)
	}
	update := models.Permission{ObjName: "ledger", OpName: "read", Description: "ledger read access"}
	if err := e.mgr.UpdatePermission(ctx, update); err != nil {
		t.Fatal(err)
	}
	perm, err = e.dir.GetPermission("ledger", "read", "")
	if err != nil {
		t.Fatal(err)
	}
	if perm.Description != "ledger read access" {
		t.Errorf("description = %q", perm.Description)
	}
	if !perm.GrantedToRole("reader") {
		t.Error("update must preserve grantee lists")
	}
	if err := e.mgr.UpdatePermission(ctx, models.Permission{ObjName: "ghost", OpName: "read"}); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("update of missing permission: got %v", err)
	}
}

func TestDelegatedOperations(t *testing.T) {
	e := newMemEnv(t)
	e.seedOUs(t)
	ctx := context.Background()

	if err := e.mgr.AddRole(ctx, models.Role{Name: "R1"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddDescendantRole(ctx, "R1", models.Role{Name: "R0"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddAdminRole(ctx, models.AdminRole{
		Role: models.Role{Name: "eng-admin"}, BeginRange: "R0", EndRange: "R1",
		BeginInclusive: true, EndInclusive: false,
		OSUs: []string{"eng"}, OSPs: []string{"apps"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1", OU: "eng"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermObj(ctx, models.PermObj{ObjName: "ledger", OU: "apps"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddPermission(ctx, models.Permission{ObjName: "ledger", OpName: "read"}); err != nil {
		t.Fatal(err)
	}

	resolver := arbac.NewResolver(e.adminRoles, e.roles, e.userOUs, e.permOUs)
	delegated := NewDelegated(e.mgr, resolver)
	session := &models.Session{
		ID: "s1", UserID: "admin1",
		ActiveAdminRoles: []models.UserAdminRole{{Name: "eng-admin"}},
	}

	// R0 is inside the range; R1 is excluded by the end flag.
	if err := delegated.AssignUser(ctx, session, "u1", models.UserRole{Name: "R0"}); err != nil {
		t.Fatal(err)
	}
	if err := delegated.AssignUser(ctx, session, "u1", models.UserRole{Name: "R1"}); !errors.Is(err, arbac.ErrOutOfRange) {
		t.Fatalf("excluded endpoint: got %v", err)
	}
	if err := delegated.DeassignUser(ctx, session, "u1", "R0"); err != nil {
		t.Fatal(err)
	}

	if err := delegated.GrantPermission(ctx, session, "ledger", "read", "", "R0"); err != nil {
		t.Fatal(err)
	}
	if err := delegated.RevokePermission(ctx, session, "ledger", "read", "", "R0"); err != nil {
		t.Fatal(err)
	}

	ok, err := delegated.CanAssign(ctx, session, "u1", "R0")
	if err != nil || !ok {
		t.Errorf("CanAssign(R0) = %v, %v", ok, err)
	}
	ok, err = delegated.CanAssign(ctx, session, "u1", "R1")
	if err != nil || ok {
		t.Errorf("CanAssign(R1) = %v, %v", ok, err)
	}

	// No active admin role: everything denied.
	bare := &models.Session{ID: "s2", UserID: "nobody"}
	if err := delegated.AssignUser(ctx, bare, "u1", models.UserRole{Name: "R0"}); !errors.Is(err, arbac.ErrSessionInvalid) {
		t.Errorf("bare session: got %v", err)
	}
}

func TestBootstrapRestoresState(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	e := newEnv(t, directory.Open(db))
	ctx := context.Background()

	for _, ou := range []models.OrgUnit{
		{Name: "eng", Type: models.OrgUnitUser},
		{Name: "apps", Type: models.OrgUnitPerm},
	} {
		if err := e.mgr.AddOrgUnit(ctx, ou); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.mgr.AddRole(ctx, models.Role{Name: "manager"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddDescendantRole(ctx, "manager", models.Role{Name: "clerk"}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddAdminRole(ctx, models.AdminRole{
		Role: models.Role{Name: "user-admin"}, BeginRange: "clerk", EndRange: "manager",
		BeginInclusive: true, EndInclusive: true, OSUs: []string{"eng"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.CreateSDSet(ctx, models.SDSet{
		Kind: models.SSD, Name: "split", Members: []string{"manager", "clerk"}, Cardinality: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.mgr.AddUser(ctx, models.User{UserID: "u1", OU: "eng"}, "pw"); err != nil {
		t.Fatal(err)
	}

	// Fresh engines over the same database.
	restored := newEnv(t, directory.Open(db))
	if err := Bootstrap(restored.dir, restored.roles, restored.adminRoles,
		restored.userOUs, restored.permOUs, restored.sd); err != nil {
		t.Fatal(err)
	}

	if !restored.roles.Contains("manager") || !restored.roles.Contains("clerk") {
		t.Fatal("roles not restored")
	}
	desc, err := restored.roles.Descendants("manager")
	if err != nil {
		t.Fatal(err)
	}
	if len(desc) != 1 || desc[0] != "clerk" {
		t.Errorf("edges not restored: %v", desc)
	}
	if !restored.adminRoles.Contains("user-admin") {
		t.Error("admin role not restored")
	}
	if !restored.userOUs.Contains("eng") || !restored.permOUs.Contains("apps") {
		t.Error("org units not restored")
	}
	set, err := restored.sd.Get(models.SSD, "split")
	if err != nil {
		t.Fatal(err)
	}
	if set.Cardinality != 2 || len(set.Members) != 2 {
		t.Errorf("sd set not restored: %+v", set)
	}
	if _, err := restored.dir.GetUser("u1"); err != nil {
		t.Errorf("user not restored: %v", err)
	}

	// SSD still enforced through the restored engine.
	if err := restored.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "manager"}); err != nil {
		t.Fatal(err)
	}
	if err := restored.mgr.AssignUser(ctx, "u1", models.UserRole{Name: "clerk"}); !errors.Is(err, sod.ErrViolation) {
		t.Errorf("restored SSD: got %v", err)
	}
}
