// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/models"
)

func seedUser(t *testing.T, dir *directory.Store, userID, password string) {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.CreateUser(models.User{UserID: userID, PasswordHash: hash}); err != nil {
		t.Fatal(err)
	}
}

func TestAuthenticate(t *testing.T) {
	dir := directory.OpenMemory()
	seedUser(t, dir, "u1", "correct horse")
	a := NewAuthenticator(Config{Users: dir})
	ctx := context.Background()

	user, err := a.Authenticate(ctx, "u1", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if user.UserID != "u1" {
		t.Errorf("user = %q", user.UserID)
	}

	// Wrong password and unknown user are indistinguishable.
	if _, err := a.Authenticate(ctx, "u1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := a.Authenticate(ctx, "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestAuthenticateRejectsDisabledAndEmptyHash(t *testing.T) {
	dir := directory.OpenMemory()
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.CreateUser(models.User{UserID: "off", PasswordHash: hash, Disabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := dir.CreateUser(models.User{UserID: "nohash"}); err != nil {
		t.Fatal(err)
	}
	a := NewAuthenticator(Config{Users: dir})
	ctx := context.Background()

	if _, err := a.Authenticate(ctx, "off", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("disabled: got %v", err)
	}
	// An account with no credential can never authenticate, even with
	// an empty password.
	if _, err := a.Authenticate(ctx, "nohash", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty hash: got %v", err)
	}
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	dir := directory.OpenMemory()
	seedUser(t, dir, "u1", "pw")
	a := NewAuthenticator(Config{
		Users:   dir,
		Lockout: LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Hour},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := a.Authenticate(ctx, "u1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	// Third failure trips the lockout.
	if _, err := a.Authenticate(ctx, "u1", "wrong"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("third failure: got %v", err)
	}
	// Even the right password is refused while locked.
	if _, err := a.Authenticate(ctx, "u1", "pw"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("while locked: got %v", err)
	}
}

func TestLockoutClearsOnSuccess(t *testing.T) {
	dir := directory.OpenMemory()
	seedUser(t, dir, "u1", "pw")
	a := NewAuthenticator(Config{
		Users:   dir,
		Lockout: LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Hour},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = a.Authenticate(ctx, "u1", "wrong")
	}
	if _, err := a.Authenticate(ctx, "u1", "pw"); err != nil {
		t.Fatal(err)
	}
	// The counter reset: two more failures do not lock.
	for i := 0; i < 2; i++ {
		if _, err := a.Authenticate(ctx, "u1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset attempt %d: got %v", i, err)
		}
	}
}

func TestLockoutBackoffDoubles(t *testing.T) {
	l := NewLockout(LockoutConfig{
		MaxAttempts:        1,
		LockoutDuration:    time.Minute,
		ExponentialBackoff: true,
		MaxLockoutDuration: 3 * time.Minute,
	})
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	durations := []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute, 3 * time.Minute}
	for i, want := range durations {
		if !l.RecordFailure("u1") {
			t.Fatalf("lockout %d did not trip", i)
		}
		if got := l.LockedUntil("u1").Sub(base); got != want {
			t.Errorf("lockout %d duration = %v, want %v", i, got, want)
		}
		// Expire the lock before the next round.
		base = l.LockedUntil("u1").Add(time.Second)
		l.now = func() time.Time { return base }
	}
}

func TestLockoutSweep(t *testing.T) {
	l := NewLockout(DefaultLockoutConfig())
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	l.RecordFailure("stale")
	base = base.Add(2 * time.Hour)
	l.now = func() time.Time { return base }
	l.RecordFailure("fresh")

	if removed := l.Sweep(time.Hour); removed != 1 {
		t.Errorf("swept %d entries, want 1", removed)
	}
	if l.LockedUntil("fresh").IsZero() && len(l.entries) != 1 {
		t.Error("fresh entry must survive the sweep")
	}
}

func TestThrottle(t *testing.T) {
	dir := directory.OpenMemory()
	seedUser(t, dir, "u1", "pw")
	a := NewAuthenticator(Config{Users: dir, LoginRate: 0.001, LoginBurst: 1})
	ctx := context.Background()

	if _, err := a.Authenticate(ctx, "u1", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Authenticate(ctx, "u1", "pw"); !errors.Is(err, ErrThrottled) {
		t.Errorf("second login inside refill window: got %v", err)
	}
}
