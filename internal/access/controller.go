// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package access is the session activation controller: it creates
// sessions, activates and drops roles within them, and answers
// checkAccess.
//
// Every activation passes the same gauntlet: the assignment must exist,
// the temporal evaluator must accept the role's window (narrowed by any
// per-assignment override), and dynamic separation-of-duty must hold
// against the roles already active. createSession is atomic over its
// requested role list: one failed activation fails the whole call and no
// session is created.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/temporal"
)

// Activation errors.
var (
	// ErrUserDisabled means the subject account is administratively disabled.
	ErrUserDisabled = errors.New("user is disabled")
	// ErrUserLocked means the subject account is locked out.
	ErrUserLocked = errors.New("user is locked")
	// ErrRoleNotAssigned means the user does not hold the requested role.
	ErrRoleNotAssigned = errors.New("role not assigned to user")
	// ErrRoleAlreadyActive means the role is already active in the session.
	ErrRoleAlreadyActive = errors.New("role already active in session")
	// ErrRoleNotActive means the role is not active in the session.
	ErrRoleNotActive = errors.New("role not active in session")
)

// UserSource resolves user IDs. Satisfied by *directory.Store.
type UserSource interface {
	GetUser(userID string) (models.User, error)
}

// PermissionSource resolves permissions. Satisfied by *directory.Store.
type PermissionSource interface {
	GetPermission(objName, opName, objID string) (models.Permission, error)
	ListPermissions() []models.Permission
}

// RoleSource is the view of the role hierarchy the controller needs.
// Satisfied by *hierarchy.Graph[models.Role].
type RoleSource interface {
	Get(name string) (models.Role, error)
	Ascendants(name string) ([]string, error)
}

// AdminRoleSource resolves admin role payloads.
// Satisfied by *hierarchy.Graph[models.AdminRole].
type AdminRoleSource interface {
	Get(name string) (models.AdminRole, error)
}

// DSDChecker enforces dynamic separation of duty at activation time.
// Satisfied by *sod.Engine.
type DSDChecker interface {
	CheckActivation(active []string, candidate string) error
}

// Config wires the controller's collaborators.
type Config struct {
	Users      UserSource
	Roles      RoleSource
	AdminRoles AdminRoleSource
	Perms      PermissionSource
	DSD        DSDChecker
	Sessions   SessionStore

	// Bus receives decision events; nil disables auditing.
	Bus *audit.Bus

	// TTL is the session lifetime. Defaults to 30 minutes.
	TTL time.Duration
}

// Controller activates roles into sessions and answers access checks.
// Safe for concurrent use; sessions are per-caller state held in the
// session store.
type Controller struct {
	users      UserSource
	roles      RoleSource
	adminRoles AdminRoleSource
	perms      PermissionSource
	dsd        DSDChecker
	sessions   SessionStore
	bus        *audit.Bus
	ttl        time.Duration

	now func() time.Time
}

// NewController creates the session activation controller.
func NewController(cfg Config) *Controller {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Controller{
		users:      cfg.Users,
		roles:      cfg.Roles,
		adminRoles: cfg.AdminRoles,
		perms:      cfg.Perms,
		dsd:        cfg.DSD,
		sessions:   cfg.Sessions,
		bus:        cfg.Bus,
		ttl:        ttl,
		now:        time.Now,
	}
}

// CreateSession activates roles for an authenticated user and returns
// the new session. A nil or empty requestedRoles activates every
// assigned role. The call is atomic: any role that fails its temporal
// window or a DSD constraint fails the whole operation. The same holds
// for an explicit requestedAdminRoles list; when it is empty every
// assigned admin role activates opportunistically instead, skipping
// those outside their window with a warning.
//
// Credential verification happens before this call; trusted marks
// sessions created without it.
func (c *Controller) CreateSession(ctx context.Context, userID string, requestedRoles, requestedAdminRoles []string, trusted bool) (*models.Session, error) {
	session, err := c.buildSession(userID, requestedRoles, requestedAdminRoles, trusted)
	if err != nil {
		c.reject(ctx, "createSession", userID, "", err)
		return nil, err
	}
	if err := c.sessions.Create(ctx, session); err != nil {
		c.reject(ctx, "createSession", userID, "", err)
		return nil, fmt.Errorf("store session: %w", err)
	}
	c.accept(ctx, "createSession", userID, session.ID)
	return session, nil
}

func (c *Controller) buildSession(userID string, requestedRoles, requestedAdminRoles []string, trusted bool) (*models.Session, error) {
	user, err := c.users.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}
	if user.Locked {
		return nil, ErrUserLocked
	}

	at := c.now()
	if err := temporal.Evaluate(user.Constraint, at); err != nil {
		return nil, fmt.Errorf("user %q: %w", userID, err)
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.UserID,
		OU:        user.OU,
		CreatedAt: at,
		ExpiresAt: at.Add(c.ttl),
		Trusted:   trusted,
	}

	names := requestedRoles
	if len(names) == 0 {
		names = user.AssignedRoleNames()
	}
	var active []string
	for _, name := range names {
		assignment, ok := user.AssignedRole(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrRoleNotAssigned, name)
		}
		role, err := c.roles.Get(name)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		if err := temporal.EvaluateAssignment(role.Constraint, assignment.Constraint, at); err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		if err := c.dsd.CheckActivation(active, name); err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		active = append(active, name)
		session.ActiveRoles = append(session.ActiveRoles, assignment)
	}

	// An explicitly requested admin role list is atomic like the RBAC
	// list above.
	if len(requestedAdminRoles) > 0 {
		for _, name := range requestedAdminRoles {
			assignment, ok := user.AssignedAdminRole(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrRoleNotAssigned, name)
			}
			ar, err := c.adminRoles.Get(name)
			if err != nil {
				return nil, fmt.Errorf("admin role %q: %w", name, err)
			}
			if err := temporal.EvaluateAssignment(ar.Constraint, assignment.Constraint, at); err != nil {
				return nil, fmt.Errorf("admin role %q: %w", name, err)
			}
			session.ActiveAdminRoles = append(session.ActiveAdminRoles, assignment)
		}
		return session, nil
	}

	// With no request, admin roles activate opportunistically: one
	// outside its window is skipped with a warning rather than failing
	// the session.
	for _, assignment := range user.AdminRoles {
		ar, err := c.adminRoles.Get(assignment.Name)
		if err != nil {
			continue
		}
		if err := temporal.EvaluateAssignment(ar.Constraint, assignment.Constraint, at); err != nil {
			session.Warnings = append(session.Warnings, models.Warning{
				Code: models.WarnRoleNotActivated,
				Msg:  fmt.Sprintf("admin role not activated: %v", err),
				Name: assignment.Name,
			})
			continue
		}
		session.ActiveAdminRoles = append(session.ActiveAdminRoles, assignment)
	}

	return session, nil
}

// AddActiveRole activates one more role in an existing session, subject
// to assignment, temporal, and DSD checks.
func (c *Controller) AddActiveRole(ctx context.Context, sessionID, roleName string) error {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		c.reject(ctx, "addActiveRole", "", roleName, err)
		return err
	}
	if err := c.activateRole(session, roleName); err != nil {
		c.reject(ctx, "addActiveRole", session.UserID, roleName, err)
		return err
	}
	if err := c.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.accept(ctx, "addActiveRole", session.UserID, roleName)
	return nil
}

func (c *Controller) activateRole(session *models.Session, roleName string) error {
	if session.HasActiveRole(roleName) {
		return fmt.Errorf("%w: %q", ErrRoleAlreadyActive, roleName)
	}
	user, err := c.users.GetUser(session.UserID)
	if err != nil {
		return err
	}
	assignment, ok := user.AssignedRole(roleName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoleNotAssigned, roleName)
	}
	role, err := c.roles.Get(roleName)
	if err != nil {
		return fmt.Errorf("role %q: %w", roleName, err)
	}
	at := c.now()
	if err := temporal.EvaluateAssignment(role.Constraint, assignment.Constraint, at); err != nil {
		return fmt.Errorf("role %q: %w", roleName, err)
	}
	if err := c.dsd.CheckActivation(session.ActiveRoleNames(), roleName); err != nil {
		return fmt.Errorf("role %q: %w", roleName, err)
	}
	session.ActiveRoles = append(session.ActiveRoles, assignment)
	return nil
}

// DropActiveRole deactivates a role in an existing session.
func (c *Controller) DropActiveRole(ctx context.Context, sessionID, roleName string) error {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.HasActiveRole(roleName) {
		return fmt.Errorf("%w: %q", ErrRoleNotActive, roleName)
	}
	kept := session.ActiveRoles[:0]
	for _, r := range session.ActiveRoles {
		if r.Name != roleName {
			kept = append(kept, r)
		}
	}
	session.ActiveRoles = kept
	if err := c.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.accept(ctx, "dropActiveRole", session.UserID, roleName)
	return nil
}

// AddActiveAdminRole activates an admin role in an existing session.
// Admin roles observe temporal constraints but not DSD.
func (c *Controller) AddActiveAdminRole(ctx context.Context, sessionID, roleName string) error {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		c.reject(ctx, "addActiveAdminRole", "", roleName, err)
		return err
	}
	if session.HasActiveAdminRole(roleName) {
		err := fmt.Errorf("%w: %q", ErrRoleAlreadyActive, roleName)
		c.reject(ctx, "addActiveAdminRole", session.UserID, roleName, err)
		return err
	}
	user, err := c.users.GetUser(session.UserID)
	if err != nil {
		return err
	}
	assignment, ok := user.AssignedAdminRole(roleName)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrRoleNotAssigned, roleName)
		c.reject(ctx, "addActiveAdminRole", session.UserID, roleName, err)
		return err
	}
	ar, err := c.adminRoles.Get(roleName)
	if err != nil {
		return fmt.Errorf("admin role %q: %w", roleName, err)
	}
	if err := temporal.EvaluateAssignment(ar.Constraint, assignment.Constraint, c.now()); err != nil {
		err = fmt.Errorf("admin role %q: %w", roleName, err)
		c.reject(ctx, "addActiveAdminRole", session.UserID, roleName, err)
		return err
	}
	session.ActiveAdminRoles = append(session.ActiveAdminRoles, assignment)
	if err := c.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.accept(ctx, "addActiveAdminRole", session.UserID, roleName)
	return nil
}

// DropActiveAdminRole deactivates an admin role in an existing session.
func (c *Controller) DropActiveAdminRole(ctx context.Context, sessionID, roleName string) error {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.HasActiveAdminRole(roleName) {
		return fmt.Errorf("%w: %q", ErrRoleNotActive, roleName)
	}
	kept := session.ActiveAdminRoles[:0]
	for _, r := range session.ActiveAdminRoles {
		if r.Name != roleName {
			kept = append(kept, r)
		}
	}
	session.ActiveAdminRoles = kept
	if err := c.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.accept(ctx, "dropActiveAdminRole", session.UserID, roleName)
	return nil
}

// CheckAccess reports whether the session may perform the operation on
// the object. Access is granted when the user holds a direct grant, or
// when any active role or one of its ascendants is a grantee of the
// permission; permissions inherit downward through the hierarchy.
func (c *Controller) CheckAccess(ctx context.Context, sessionID, objName, opName, objID string) (bool, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	perm, err := c.perms.GetPermission(objName, opName, objID)
	if err != nil {
		c.reject(ctx, "checkAccess", session.UserID, models.PermKey(objName, opName, objID), err)
		return false, err
	}

	granted, err := c.permitted(session, &perm)
	if err != nil {
		return false, err
	}
	if granted {
		c.accept(ctx, "checkAccess", session.UserID, perm.Key())
	} else {
		c.reject(ctx, "checkAccess", session.UserID, perm.Key(), nil)
	}
	return granted, nil
}

func (c *Controller) permitted(session *models.Session, perm *models.Permission) (bool, error) {
	if perm.GrantedToUser(session.UserID) {
		return true, nil
	}
	for _, active := range session.ActiveRoles {
		if perm.GrantedToRole(active.Name) {
			return true, nil
		}
		ascendants, err := c.roles.Ascendants(active.Name)
		if err != nil {
			return false, fmt.Errorf("role %q: %w", active.Name, err)
		}
		for _, name := range ascendants {
			if perm.GrantedToRole(name) {
				return true, nil
			}
		}
	}
	return false, nil
}

// SessionPermissions returns every permission the session may exercise,
// via direct user grants or the active-role closure.
func (c *Controller) SessionPermissions(ctx context.Context, sessionID string) ([]models.Permission, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var out []models.Permission
	for _, perm := range c.perms.ListPermissions() {
		granted, err := c.permitted(session, &perm)
		if err != nil {
			return nil, err
		}
		if granted {
			out = append(out, perm)
		}
	}
	return out, nil
}

// SessionRoles returns the session's active RBAC role assignments.
func (c *Controller) SessionRoles(ctx context.Context, sessionID string) ([]models.UserRole, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.ActiveRoles, nil
}

// SessionAdminRoles returns the session's active admin role assignments.
func (c *Controller) SessionAdminRoles(ctx context.Context, sessionID string) ([]models.UserAdminRole, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.ActiveAdminRoles, nil
}

// IsUserInRole reports whether the named role is active in the session.
func (c *Controller) IsUserInRole(ctx context.Context, sessionID, roleName string) (bool, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.HasActiveRole(roleName), nil
}

// GetSession returns the stored session.
func (c *Controller) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return c.sessions.Get(ctx, sessionID)
}

// Logout destroys the session.
func (c *Controller) Logout(ctx context.Context, sessionID string) error {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		// Expired or unknown sessions log out without complaint.
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return c.sessions.Delete(ctx, sessionID)
		}
		return err
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	c.accept(ctx, "logout", session.UserID, sessionID)
	return nil
}

// RevokeUserSessions destroys every session belonging to a user. Called
// when an account is locked, disabled, or deleted.
func (c *Controller) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	count, err := c.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		c.accept(ctx, "revokeUserSessions", userID, fmt.Sprintf("%d sessions", count))
	}
	return count, nil
}

func (c *Controller) accept(ctx context.Context, name, actor, target string) {
	if c.bus != nil {
		c.bus.Accept(ctx, name, actor, target)
	}
}

func (c *Controller) reject(ctx context.Context, name, actor, target string, cause error) {
	if c.bus != nil {
		c.bus.Reject(ctx, name, actor, target, cause)
	}
}
