// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package auth verifies credentials ahead of session creation. It knows
// nothing about roles: a successful authentication only proves the
// caller is the directory user, after which the access controller takes
// over.
//
// Failed attempts feed an in-memory lockout with exponential backoff,
// and the whole login path sits behind a token-bucket limiter so
// credential stuffing cannot saturate bcrypt.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/models"
)

// Authentication errors.
var (
	// ErrInvalidCredentials covers unknown users and wrong passwords
	// alike; callers never learn which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockedOut means too many failed attempts.
	ErrLockedOut = errors.New("account locked out")
	// ErrThrottled means the login path is over its global rate.
	ErrThrottled = errors.New("authentication rate exceeded")
)

// UserSource resolves user IDs. Satisfied by *directory.Store.
type UserSource interface {
	GetUser(userID string) (models.User, error)
}

// Config tunes the authenticator.
type Config struct {
	Users   UserSource
	Lockout LockoutConfig

	// LoginRate is the global sustained logins per second; LoginBurst
	// the bucket size. Zero values disable throttling.
	LoginRate  float64
	LoginBurst int

	// Bus receives decision events; nil disables auditing.
	Bus *audit.Bus
}

// Authenticator verifies passwords against the directory.
type Authenticator struct {
	users   UserSource
	lockout *Lockout
	limiter *rate.Limiter
	bus     *audit.Bus
}

// NewAuthenticator creates the authenticator.
func NewAuthenticator(cfg Config) *Authenticator {
	var limiter *rate.Limiter
	if cfg.LoginRate > 0 {
		burst := cfg.LoginBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.LoginRate), burst)
	}
	return &Authenticator{
		users:   cfg.Users,
		lockout: NewLockout(cfg.Lockout),
		limiter: limiter,
		bus:     cfg.Bus,
	}
}

// Authenticate verifies the password and returns the user on success.
// Disabled and locked accounts, lockouts, and wrong passwords all
// surface as errors; only the lockout error is distinguishable, so an
// attacker cannot probe for valid user IDs.
func (a *Authenticator) Authenticate(ctx context.Context, userID, password string) (models.User, error) {
	if a.limiter != nil && !a.limiter.Allow() {
		return models.User{}, ErrThrottled
	}

	if until := a.lockout.LockedUntil(userID); !until.IsZero() {
		err := fmt.Errorf("%w until %s", ErrLockedOut, until.Format("15:04:05"))
		a.reject(ctx, userID, err)
		return models.User{}, err
	}

	user, err := a.users.GetUser(userID)
	if err != nil {
		// Burn a bcrypt comparison anyway so unknown users cost the
		// same as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password))
		return models.User{}, a.failed(ctx, userID)
	}
	if user.PasswordHash == "" {
		return models.User{}, a.failed(ctx, userID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, a.failed(ctx, userID)
	}
	if user.Disabled || user.Locked {
		err := ErrInvalidCredentials
		a.reject(ctx, userID, err)
		return models.User{}, err
	}

	a.lockout.Clear(userID)
	if a.bus != nil {
		a.bus.Accept(ctx, "authenticate", userID, "")
	}
	return user, nil
}

func (a *Authenticator) failed(ctx context.Context, userID string) error {
	locked := a.lockout.RecordFailure(userID)
	err := ErrInvalidCredentials
	if locked {
		err = ErrLockedOut
	}
	a.reject(ctx, userID, err)
	return err
}

func (a *Authenticator) reject(ctx context.Context, userID string, cause error) {
	if a.bus != nil {
		a.bus.Reject(ctx, "authenticate", userID, "", cause)
	}
}

// HashPassword produces the storable credential hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
