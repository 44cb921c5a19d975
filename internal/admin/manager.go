// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package admin is the administrative manager: all structural mutations
// of the identity model go through it. It owns the serialization
// discipline the engines rely on: every mutation runs under one
// process-wide lock, so cycle checks, separation-of-duty checks, and
// cascades are evaluated against a graph that cannot change between
// check and commit. Reads through the engines stay concurrent.
//
// Mutations are written through to the directory store before the call
// returns, so a restart reloads the exact committed state.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/sod"
)

// Mutation errors.
var (
	// ErrAlreadyAssigned means the user already holds the role.
	ErrAlreadyAssigned = errors.New("role already assigned to user")
	// ErrNotAssigned means the user does not hold the role.
	ErrNotAssigned = errors.New("role not assigned to user")
	// ErrAlreadyGranted means the permission already lists the grantee.
	ErrAlreadyGranted = errors.New("permission already granted")
	// ErrNotGranted means the permission does not list the grantee.
	ErrNotGranted = errors.New("permission not granted")
	// ErrOrgUnitInUse means the org unit still has children or members.
	ErrOrgUnitInUse = errors.New("org unit still in use")
	// ErrInvalidRange means an admin role's range is malformed.
	ErrInvalidRange = errors.New("invalid admin role range")
)

// SessionRevoker destroys a user's sessions when the account is locked,
// disabled, or deleted. Satisfied by *access.Controller.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) (int, error)
}

// Config wires the manager's collaborators.
type Config struct {
	Dir        *directory.Store
	Roles      *hierarchy.Graph[models.Role]
	AdminRoles *hierarchy.Graph[models.AdminRole]
	UserOUs    *hierarchy.Graph[models.OrgUnit]
	PermOUs    *hierarchy.Graph[models.OrgUnit]
	SD         *sod.Engine

	// Sessions is optional; nil skips session revocation on account
	// lock, disable, and delete.
	Sessions SessionRevoker

	// Bus receives decision events; nil disables auditing.
	Bus *audit.Bus

	// BcryptCost tunes password hashing. Zero takes bcrypt's default.
	BcryptCost int
}

// Manager applies administrative mutations.
type Manager struct {
	// mu serializes all structural mutations.
	mu sync.Mutex

	dir        *directory.Store
	roles      *hierarchy.Graph[models.Role]
	adminRoles *hierarchy.Graph[models.AdminRole]
	userOUs    *hierarchy.Graph[models.OrgUnit]
	permOUs    *hierarchy.Graph[models.OrgUnit]
	sd         *sod.Engine
	sessions   SessionRevoker
	bus        *audit.Bus
	bcryptCost int
}

// NewManager creates the administrative manager.
func NewManager(cfg Config) *Manager {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Manager{
		dir:        cfg.Dir,
		roles:      cfg.Roles,
		adminRoles: cfg.AdminRoles,
		userOUs:    cfg.UserOUs,
		permOUs:    cfg.PermOUs,
		sd:         cfg.SD,
		sessions:   cfg.Sessions,
		bus:        cfg.Bus,
		bcryptCost: cost,
	}
}

// AddUser creates a user. The password is hashed before storage; an
// empty password creates an account that cannot authenticate until
// ChangePassword. A non-empty OU must exist in the USER org hierarchy.
func (m *Manager) AddUser(ctx context.Context, user models.User, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateUser(&user); err != nil {
		return m.rejected(ctx, "addUser", user.UserID, err)
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if err := m.dir.CreateUser(user); err != nil {
		return m.rejected(ctx, "addUser", user.UserID, err)
	}
	m.accepted(ctx, "addUser", user.UserID)
	return nil
}

// UpdateUser replaces the user's OU, description, and constraint. Role
// assignments and credentials are untouched.
func (m *Manager) UpdateUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.dir.GetUser(user.UserID)
	if err != nil {
		return m.rejected(ctx, "updateUser", user.UserID, err)
	}
	if err := m.validateUser(&user); err != nil {
		return m.rejected(ctx, "updateUser", user.UserID, err)
	}
	existing.OU = user.OU
	existing.Description = user.Description
	existing.Constraint = user.Constraint
	if err := m.dir.PutUser(existing); err != nil {
		return err
	}
	m.accepted(ctx, "updateUser", user.UserID)
	return nil
}

func (m *Manager) validateUser(user *models.User) error {
	if user.OU != "" && !m.userOUs.Contains(user.OU) {
		return fmt.Errorf("user org unit %q: %w", user.OU, hierarchy.ErrNotFound)
	}
	if err := user.Constraint.Validate(); err != nil {
		return err
	}
	return nil
}

// DeleteUser removes the user and destroys their sessions.
func (m *Manager) DeleteUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dir.DeleteUser(userID); err != nil {
		return m.rejected(ctx, "deleteUser", userID, err)
	}
	m.revokeSessions(ctx, userID)
	m.accepted(ctx, "deleteUser", userID)
	return nil
}

// DisableUser soft-deletes the account: it stays in the directory but
// cannot create sessions. Existing sessions are destroyed.
func (m *Manager) DisableUser(ctx context.Context, userID string) error {
	return m.setUserFlag(ctx, "disableUser", userID, func(u *models.User) { u.Disabled = true }, true)
}

// EnableUser reverses DisableUser.
func (m *Manager) EnableUser(ctx context.Context, userID string) error {
	return m.setUserFlag(ctx, "enableUser", userID, func(u *models.User) { u.Disabled = false }, false)
}

// LockUser locks the account and destroys its sessions.
func (m *Manager) LockUser(ctx context.Context, userID string) error {
	return m.setUserFlag(ctx, "lockUser", userID, func(u *models.User) { u.Locked = true }, true)
}

// UnlockUser reverses LockUser.
func (m *Manager) UnlockUser(ctx context.Context, userID string) error {
	return m.setUserFlag(ctx, "unlockUser", userID, func(u *models.User) { u.Locked = false }, false)
}

func (m *Manager) setUserFlag(ctx context.Context, op, userID string, apply func(*models.User), revoke bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.dir.GetUser(userID)
	if err != nil {
		return m.rejected(ctx, op, userID, err)
	}
	apply(&user)
	if err := m.dir.PutUser(user); err != nil {
		return err
	}
	if revoke {
		m.revokeSessions(ctx, userID)
	}
	m.accepted(ctx, op, userID)
	return nil
}

// ChangePassword replaces the user's credential.
func (m *Manager) ChangePassword(ctx context.Context, userID, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.dir.GetUser(userID)
	if err != nil {
		return m.rejected(ctx, "changePassword", userID, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := m.dir.PutUser(user); err != nil {
		return err
	}
	m.accepted(ctx, "changePassword", userID)
	return nil
}

// AssignUser grants a role assignment after static separation-of-duty
// clears it. The optional per-assignment constraint narrows the role's
// own window.
func (m *Manager) AssignUser(ctx context.Context, userID string, assignment models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.assignUserLocked(userID, assignment)
	if err != nil {
		return m.rejected(ctx, "assignUser", userID+":"+assignment.Name, err)
	}
	m.accepted(ctx, "assignUser", userID+":"+assignment.Name)
	return nil
}

func (m *Manager) assignUserLocked(userID string, assignment models.UserRole) error {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return err
	}
	if !m.roles.Contains(assignment.Name) {
		return fmt.Errorf("role %q: %w", assignment.Name, hierarchy.ErrNotFound)
	}
	if _, ok := user.AssignedRole(assignment.Name); ok {
		return fmt.Errorf("%w: %q", ErrAlreadyAssigned, assignment.Name)
	}
	if assignment.Constraint != nil {
		if err := assignment.Constraint.Validate(); err != nil {
			return err
		}
	}
	if err := m.sd.CheckAssignment(user.AssignedRoleNames(), assignment.Name); err != nil {
		return err
	}
	user.Roles = append(user.Roles, assignment)
	return m.dir.PutUser(user)
}

// DeassignUser removes a role assignment.
func (m *Manager) DeassignUser(ctx context.Context, userID, roleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deassignUserLocked(userID, roleName); err != nil {
		return m.rejected(ctx, "deassignUser", userID+":"+roleName, err)
	}
	m.accepted(ctx, "deassignUser", userID+":"+roleName)
	return nil
}

func (m *Manager) deassignUserLocked(userID, roleName string) error {
	user, err := m.dir.GetUser(userID)
	if err != nil {
		return err
	}
	if _, ok := user.AssignedRole(roleName); !ok {
		return fmt.Errorf("%w: %q", ErrNotAssigned, roleName)
	}
	kept := user.Roles[:0]
	for _, r := range user.Roles {
		if r.Name != roleName {
			kept = append(kept, r)
		}
	}
	user.Roles = kept
	return m.dir.PutUser(user)
}

// AssignUserAdminRole grants an admin-role assignment. Admin roles are
// outside SSD scope.
func (m *Manager) AssignUserAdminRole(ctx context.Context, userID string, assignment models.UserAdminRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.dir.GetUser(userID)
	if err != nil {
		return m.rejected(ctx, "assignUserAdminRole", userID+":"+assignment.Name, err)
	}
	if !m.adminRoles.Contains(assignment.Name) {
		return m.rejected(ctx, "assignUserAdminRole", userID+":"+assignment.Name,
			fmt.Errorf("admin role %q: %w", assignment.Name, hierarchy.ErrNotFound))
	}
	if _, ok := user.AssignedAdminRole(assignment.Name); ok {
		return m.rejected(ctx, "assignUserAdminRole", userID+":"+assignment.Name,
			fmt.Errorf("%w: %q", ErrAlreadyAssigned, assignment.Name))
	}
	if assignment.Constraint != nil {
		if err := assignment.Constraint.Validate(); err != nil {
			return m.rejected(ctx, "assignUserAdminRole", userID+":"+assignment.Name, err)
		}
	}
	user.AdminRoles = append(user.AdminRoles, assignment)
	if err := m.dir.PutUser(user); err != nil {
		return err
	}
	m.accepted(ctx, "assignUserAdminRole", userID+":"+assignment.Name)
	return nil
}

// DeassignUserAdminRole removes an admin-role assignment.
func (m *Manager) DeassignUserAdminRole(ctx context.Context, userID, roleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.dir.GetUser(userID)
	if err != nil {
		return m.rejected(ctx, "deassignUserAdminRole", userID+":"+roleName, err)
	}
	if _, ok := user.AssignedAdminRole(roleName); !ok {
		return m.rejected(ctx, "deassignUserAdminRole", userID+":"+roleName,
			fmt.Errorf("%w: %q", ErrNotAssigned, roleName))
	}
	kept := user.AdminRoles[:0]
	for _, r := range user.AdminRoles {
		if r.Name != roleName {
			kept = append(kept, r)
		}
	}
	user.AdminRoles = kept
	if err := m.dir.PutUser(user); err != nil {
		return err
	}
	m.accepted(ctx, "deassignUserAdminRole", userID+":"+roleName)
	return nil
}

func (m *Manager) revokeSessions(ctx context.Context, userID string) {
	if m.sessions != nil {
		if _, err := m.sessions.RevokeUserSessions(ctx, userID); err != nil {
			// Sessions also expire on their own, so revocation failure
			// does not fail the account mutation.
			m.rejectedQuiet(ctx, "revokeUserSessions", userID, err)
		}
	}
}

func (m *Manager) accepted(ctx context.Context, op, target string) {
	if m.bus != nil {
		m.bus.Accept(ctx, op, audit.ActorFromContext(ctx), target)
	}
}

// rejected audits the failure and returns the error unchanged.
func (m *Manager) rejected(ctx context.Context, op, target string, err error) error {
	m.rejectedQuiet(ctx, op, target, err)
	return err
}

func (m *Manager) rejectedQuiet(ctx context.Context, op, target string, err error) {
	if m.bus != nil {
		m.bus.Reject(ctx, op, audit.ActorFromContext(ctx), target, err)
	}
}

// edgeMap flattens a hierarchy graph to its parent-to-children edge map
// for persistence.
func edgeMap[T any](g *hierarchy.Graph[T]) map[string][]string {
	out := make(map[string][]string)
	for _, name := range g.Names() {
		children, err := g.Children(name)
		if err != nil {
			continue
		}
		out[name] = children
	}
	return out
}
