// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package main is the entry point for the Palisade server.
//
// Palisade is a role-based access control service: it maintains the
// role hierarchy, separation-of-duty constraints, temporal activation
// windows, and delegated (ARBAC) administration ranges, and answers
// access checks for activated sessions over a REST API.
//
// The server initializes in this order:
//
//  1. Configuration: koanf v2 layers (defaults, YAML file, PALISADE_* env)
//  2. Badger: the persistent directory store (or in-memory for demos)
//  3. Engines: role graphs, SD engine, ARBAC resolver, rebuilt from the
//     persisted snapshot
//  4. Managers: admin, review, delegated, access controller, authenticator
//  5. Supervisor tree: HTTP server, audit drainer, session janitor, and
//     Badger GC under suture
//
// A fresh install seeds a first operator when PALISADE_SECURITY_BOOTSTRAP_ADMIN
// and PALISADE_SECURITY_BOOTSTRAP_PASSWORD are set; the seeded user holds
// the palisade-super operator role and can create everything else.
//
// The server shuts down gracefully on SIGINT and SIGTERM: the listener
// drains in-flight requests, then the storage services stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/palisade/internal/access"
	"github.com/tomtom215/palisade/internal/admin"
	"github.com/tomtom215/palisade/internal/api"
	"github.com/tomtom215/palisade/internal/arbac"
	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/auth"
	"github.com/tomtom215/palisade/internal/authz"
	"github.com/tomtom215/palisade/internal/config"
	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/logging"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/review"
	"github.com/tomtom215/palisade/internal/sod"
	"github.com/tomtom215/palisade/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("in_memory", cfg.Directory.InMemory).
		Str("audit_store", cfg.Audit.Store).
		Msg("Starting Palisade")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited")
	}
	logging.Info().Msg("Shutdown complete")
}

func run(cfg *config.Config) error {
	opts := badger.DefaultOptions(cfg.Directory.Path)
	if cfg.Directory.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger at %s: %w", cfg.Directory.Path, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing badger")
		}
	}()

	// Rebuild the in-memory engines from the persisted snapshot.
	dir := directory.Open(db)
	roles := hierarchy.New[models.Role]()
	adminRoles := hierarchy.New[models.AdminRole]()
	userOUs := hierarchy.New[models.OrgUnit]()
	permOUs := hierarchy.New[models.OrgUnit]()
	sd := sod.NewEngine(roles)
	if err := admin.Bootstrap(dir, roles, adminRoles, userOUs, permOUs, sd); err != nil {
		return fmt.Errorf("rebuild engines: %w", err)
	}

	bus := audit.NewBus(cfg.Audit.Buffer)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit bus")
		}
	}()

	var auditStore audit.Store
	if cfg.Audit.Store == "memory" {
		auditStore = audit.NewMemoryStore(cfg.Audit.MemoryCapacity)
	} else {
		auditStore = audit.NewBadgerStore(db, cfg.Audit.Retention)
	}

	var sessions access.SessionStore
	var badgerSessions *access.BadgerSessionStore
	if cfg.Security.SessionInMemory {
		sessions = access.NewMemorySessionStore()
	} else {
		badgerSessions = access.NewBadgerSessionStore(db)
		sessions = badgerSessions
	}

	controller := access.NewController(access.Config{
		Users:      dir,
		Roles:      roles,
		AdminRoles: adminRoles,
		Perms:      dir,
		DSD:        sd,
		Sessions:   sessions,
		Bus:        bus,
		TTL:        cfg.Security.SessionTTL,
	})

	manager := admin.NewManager(admin.Config{
		Dir:        dir,
		Roles:      roles,
		AdminRoles: adminRoles,
		UserOUs:    userOUs,
		PermOUs:    permOUs,
		SD:         sd,
		Sessions:   controller,
		Bus:        bus,
		BcryptCost: cfg.Security.BcryptCost,
	})
	resolver := arbac.NewResolver(adminRoles, roles, userOUs, permOUs)
	delegated := admin.NewDelegated(manager, resolver)
	reviewer := review.NewManager(review.Config{
		Dir:        dir,
		Roles:      roles,
		AdminRoles: adminRoles,
		UserOUs:    userOUs,
		PermOUs:    permOUs,
		SD:         sd,
	})

	authenticator := auth.NewAuthenticator(auth.Config{
		Users: dir,
		Lockout: auth.LockoutConfig{
			MaxAttempts:        cfg.Security.LockoutMaxAttempts,
			LockoutDuration:    cfg.Security.LockoutDuration,
			ExponentialBackoff: cfg.Security.LockoutBackoff,
			MaxLockoutDuration: cfg.Security.LockoutMaxDuration,
		},
		LoginRate:  cfg.Security.LoginRate,
		LoginBurst: cfg.Security.LoginBurst,
		Bus:        bus,
	})

	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		return fmt.Errorf("create enforcer: %w", err)
	}
	tokens, err := api.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}

	if err := seedBootstrapOperator(cfg, dir, manager); err != nil {
		return fmt.Errorf("seed bootstrap operator: %w", err)
	}

	server := &api.Server{
		Admin:     manager,
		Delegated: delegated,
		Review:    reviewer,
		Access:    controller,
		Auth:      authenticator,
		Audit:     auditStore,
		Enforcer:  enforcer,
		Tokens:    tokens,
		Config:    cfg,
		MW: api.NewMiddleware(api.MiddlewareConfig{
			CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
			RateLimitRequests:  cfg.Server.RateLimitRequests,
			RateLimitWindow:    cfg.Server.RateLimitWindow,
		}),
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)

	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))
	tree.AddStorageService(supervisor.NewRunnerService("audit-drainer", audit.NewDrainer(bus, auditStore)))
	if badgerSessions != nil {
		janitor := access.NewJanitor(badgerSessions, cfg.Security.SessionJanitor)
		tree.AddStorageService(supervisor.NewRunnerService("session-janitor", janitor))
	}
	if !cfg.Directory.InMemory {
		tree.AddStorageService(supervisor.NewBadgerGCService(db, cfg.Directory.GCInterval, cfg.Directory.GCDiscardRatio))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// seedBootstrapOperator creates the first operator on an empty
// directory. Existing installs are never touched.
func seedBootstrapOperator(cfg *config.Config, dir *directory.Store, manager *admin.Manager) error {
	if cfg.Security.BootstrapAdmin == "" {
		return nil
	}
	if len(dir.ListUsers("")) > 0 {
		return nil
	}
	ctx := context.Background()

	role := models.Role{Name: authz.RoleSuper, Description: "Bootstrap operator role"}
	if err := manager.AddRole(ctx, role); err != nil && !errors.Is(err, directory.ErrAlreadyExists) {
		return err
	}
	user := models.User{UserID: cfg.Security.BootstrapAdmin, Description: "Bootstrap operator"}
	if err := manager.AddUser(ctx, user, cfg.Security.BootstrapPassword); err != nil {
		return err
	}
	assignment := models.UserRole{Name: authz.RoleSuper}
	if err := manager.AssignUser(ctx, cfg.Security.BootstrapAdmin, assignment); err != nil {
		return err
	}
	logging.Info().Str("user_id", cfg.Security.BootstrapAdmin).Msg("Bootstrap operator created")
	return nil
}
