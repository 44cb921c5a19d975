// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/palisade/internal/access"
	"github.com/tomtom215/palisade/internal/admin"
	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/auth"
	"github.com/tomtom215/palisade/internal/authz"
	"github.com/tomtom215/palisade/internal/config"
	"github.com/tomtom215/palisade/internal/review"
)

// Server wires the managers to the HTTP surface.
type Server struct {
	Admin     *admin.Manager
	Delegated *admin.Delegated
	Review    *review.Manager
	Access    *access.Controller
	Auth      *auth.Authenticator
	Audit     audit.Store
	Enforcer  *authz.Enforcer
	Tokens    *TokenManager
	MW        *Middleware

	// Config backs the read-only configuration surface; optional.
	Config *config.Config
}

// Router builds the chi route tree.
//
// The operator-role gates mirror the Casbin policy objects: admin,
// review, access, delegated, password, audit. Session-scoped routes
// under /v1/session need only a valid session.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(SecurityHeaders())
	r.Use(Instrument())
	r.Use(s.MW.CORS())
	r.Use(s.MW.RateLimit())

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(s.MW.RateLimitLogin()).Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.Tokens, s.Access))

			// Session self-service.
			r.Route("/session", func(r chi.Router) {
				r.Get("/", s.handleCurrentSession)
				r.Delete("/", s.handleLogout)
				r.Get("/roles", s.handleSessionRoles)
				r.Post("/roles", s.handleAddActiveRole)
				r.Delete("/roles/{name}", s.handleDropActiveRole)
				r.Post("/admin-roles", s.handleAddActiveAdminRole)
				r.Delete("/admin-roles/{name}", s.handleDropActiveAdminRole)
				r.Get("/permissions", s.handleSessionPermissions)
				r.Post("/check", s.handleCheckAccess)
				r.Get("/in-role/{name}", s.handleIsUserInRole)
			})

			// Session administration.
			r.Route("/access", func(r chi.Router) {
				r.Use(RequireSurface(s.Enforcer, authz.ObjectAccess, authz.ActionWrite))
				r.Post("/sessions", s.handleCreateSessionTrusted)
				r.Delete("/users/{userID}/sessions", s.handleRevokeUserSessions)
			})

			// Administrative mutations.
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireSurface(s.Enforcer, authz.ObjectAdmin, authz.ActionWrite))
				s.mountAdminRoutes(r)
			})

			// Password management.
			r.Route("/password", func(r chi.Router) {
				r.Use(RequireSurface(s.Enforcer, authz.ObjectPassword, authz.ActionWrite))
				r.Post("/users/{userID}", s.handleChangePassword)
			})

			// Read-only review queries.
			r.Route("/review", func(r chi.Router) {
				r.Use(RequireSurface(s.Enforcer, authz.ObjectReview, authz.ActionRead))
				s.mountReviewRoutes(r)
			})

			// Delegated administration.
			r.Route("/delegated", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(RequireSurface(s.Enforcer, authz.ObjectDelegated, authz.ActionWrite))
					r.Post("/users/{userID}/roles", s.handleDelegatedAssign)
					r.Delete("/users/{userID}/roles/{name}", s.handleDelegatedDeassign)
					r.Post("/permissions/grant", s.handleDelegatedGrant)
					r.Post("/permissions/revoke", s.handleDelegatedRevoke)
				})
				r.Group(func(r chi.Router) {
					r.Use(RequireSurface(s.Enforcer, authz.ObjectDelegated, authz.ActionRead))
					r.Get("/can-assign", s.handleCanAssign)
					r.Get("/can-grant", s.handleCanGrant)
				})
			})

			// Decision trail.
			r.Route("/audit", func(r chi.Router) {
				r.Use(RequireSurface(s.Enforcer, authz.ObjectAudit, authz.ActionRead))
				r.Get("/events", s.handleAuditQuery)
			})

			// Effective configuration, secrets excluded.
			r.Route("/config", func(r chi.Router) {
				r.Use(RequireSurface(s.Enforcer, authz.ObjectConfig, authz.ActionRead))
				r.Get("/", s.handleGetConfig)
			})
		})
	})

	return r
}

func (s *Server) mountAdminRoutes(r chi.Router) {
	// Users.
	r.Post("/users", s.handleAddUser)
	r.Put("/users/{userID}", s.handleUpdateUser)
	r.Delete("/users/{userID}", s.handleDeleteUser)
	r.Post("/users/{userID}/disable", s.handleDisableUser)
	r.Post("/users/{userID}/enable", s.handleEnableUser)
	r.Post("/users/{userID}/lock", s.handleLockUser)
	r.Post("/users/{userID}/unlock", s.handleUnlockUser)
	r.Post("/users/{userID}/roles", s.handleAssignUser)
	r.Delete("/users/{userID}/roles/{name}", s.handleDeassignUser)
	r.Post("/users/{userID}/admin-roles", s.handleAssignUserAdminRole)
	r.Delete("/users/{userID}/admin-roles/{name}", s.handleDeassignUserAdminRole)

	// Roles and the role hierarchy.
	r.Post("/roles", s.handleAddRole)
	r.Put("/roles/{name}", s.handleUpdateRole)
	r.Delete("/roles/{name}", s.handleDeleteRole)
	r.Post("/roles/{name}/descendants", s.handleAddDescendantRole)
	r.Post("/roles/{name}/ascendants", s.handleAddAscendantRole)
	r.Post("/roles/inheritance", s.handleAddInheritance)
	r.Delete("/roles/inheritance", s.handleDeleteInheritance)

	// Admin roles.
	r.Post("/admin-roles", s.handleAddAdminRole)
	r.Put("/admin-roles/{name}", s.handleUpdateAdminRole)
	r.Delete("/admin-roles/{name}", s.handleDeleteAdminRole)
	r.Post("/admin-roles/{name}/descendants", s.handleAddDescendantAdminRole)
	r.Post("/admin-roles/{name}/ascendants", s.handleAddAscendantAdminRole)
	r.Post("/admin-roles/inheritance", s.handleAddAdminInheritance)
	r.Delete("/admin-roles/inheritance", s.handleDeleteAdminInheritance)

	// Org units.
	r.Post("/orgunits", s.handleAddOrgUnit)
	r.Put("/orgunits/{type}/{name}", s.handleUpdateOrgUnit)
	r.Delete("/orgunits/{type}/{name}", s.handleDeleteOrgUnit)
	r.Post("/orgunits/{type}/{name}/descendants", s.handleAddDescendantOrgUnit)
	r.Post("/orgunits/{type}/{name}/ascendants", s.handleAddAscendantOrgUnit)
	r.Post("/orgunits/{type}/inheritance", s.handleAddOrgUnitInheritance)
	r.Delete("/orgunits/{type}/inheritance", s.handleDeleteOrgUnitInheritance)

	// Permission objects and permissions.
	r.Post("/objects", s.handleAddPermObj)
	r.Put("/objects/{name}", s.handleUpdatePermObj)
	r.Delete("/objects/{name}", s.handleDeletePermObj)
	r.Post("/permissions", s.handleAddPermission)
	r.Put("/permissions", s.handleUpdatePermission)
	r.Delete("/permissions", s.handleDeletePermission)
	r.Post("/permissions/grant", s.handleGrantPermission)
	r.Post("/permissions/revoke", s.handleRevokePermission)
	r.Post("/permissions/grant-user", s.handleGrantPermissionUser)
	r.Post("/permissions/revoke-user", s.handleRevokePermissionUser)

	// Separation of duty sets.
	r.Post("/sdsets", s.handleCreateSDSet)
	r.Put("/sdsets/{kind}/{name}", s.handleUpdateSDSet)
	r.Delete("/sdsets/{kind}/{name}", s.handleDeleteSDSet)
	r.Post("/sdsets/{kind}/{name}/members", s.handleAddSDSetMember)
	r.Delete("/sdsets/{kind}/{name}/members/{role}", s.handleRemoveSDSetMember)
	r.Put("/sdsets/{kind}/{name}/cardinality", s.handleSetSDSetCardinality)
}

func (s *Server) mountReviewRoutes(r chi.Router) {
	r.Get("/users", s.handleFindUsers)
	r.Get("/users/{userID}", s.handleReadUser)
	r.Get("/users/{userID}/roles", s.handleAssignedRoles)
	r.Get("/users/{userID}/admin-roles", s.handleAssignedAdminRoles)
	r.Get("/users/{userID}/authorized-roles", s.handleAuthorizedRoles)
	r.Get("/users/{userID}/permissions", s.handleUserPermissions)

	r.Get("/roles", s.handleListRoles)
	r.Get("/roles/{name}", s.handleReadRole)
	r.Get("/roles/{name}/users", s.handleAssignedUsers)
	r.Get("/roles/{name}/authorized-users", s.handleAuthorizedUsers)
	r.Get("/roles/{name}/permissions", s.handleRolePermissions)
	r.Get("/roles/{name}/descendants", s.handleRoleDescendants)
	r.Get("/roles/{name}/ascendants", s.handleRoleAscendants)

	r.Get("/permissions", s.handleReadPermission)
	r.Get("/permissions/search", s.handleFindPermissions)
	r.Get("/permissions/roles", s.handlePermissionRoles)
	r.Get("/permissions/authorized-roles", s.handleAuthorizedPermissionRoles)
	r.Get("/permissions/users", s.handlePermissionUsers)

	r.Get("/objects", s.handleListPermObjs)
	r.Get("/objects/{name}", s.handleReadPermObj)
	r.Get("/objects/{name}/permissions", s.handleObjPermissions)

	r.Get("/sdsets/{kind}", s.handleListSDSets)
	r.Get("/sdsets/{kind}/{name}", s.handleReadSDSet)
	r.Get("/sdsets/{kind}/containing/{role}", s.handleSDSetsContaining)

	r.Get("/orgunits/{type}", s.handleListOrgUnits)
	r.Get("/orgunits/{type}/{name}", s.handleReadOrgUnit)
	r.Get("/orgunits/{type}/{name}/descendants", s.handleOrgUnitDescendants)

	r.Get("/admin-roles", s.handleListAdminRoles)
	r.Get("/admin-roles/{name}", s.handleReadAdminRole)
	r.Get("/admin-roles/{name}/users", s.handleAssignedAdminUsers)
}
