// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package auth

import (
	"sync"
	"time"
)

// LockoutConfig tunes the failed-attempt lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period.
	LockoutDuration time.Duration

	// ExponentialBackoff doubles the period on each subsequent lockout.
	ExponentialBackoff bool

	// MaxLockoutDuration caps the backoff.
	MaxLockoutDuration time.Duration
}

// DefaultLockoutConfig returns the production defaults.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		ExponentialBackoff: true,
		MaxLockoutDuration: 24 * time.Hour,
	}
}

type lockoutEntry struct {
	failedAttempts int
	lockoutCount   int
	lockedUntil    time.Time
	lastAttempt    time.Time
}

// Lockout tracks failed authentication attempts per subject and locks
// the subject out after too many. State is in-memory: a restart clears
// it, which only ever errs toward letting users in.
type Lockout struct {
	mu      sync.Mutex
	cfg     LockoutConfig
	entries map[string]*lockoutEntry

	now func() time.Time
}

// NewLockout creates a lockout tracker.
func NewLockout(cfg LockoutConfig) *Lockout {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultLockoutConfig().MaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutConfig().LockoutDuration
	}
	return &Lockout{
		cfg:     cfg,
		entries: make(map[string]*lockoutEntry),
		now:     time.Now,
	}
}

// LockedUntil returns the lockout deadline for the subject, or the zero
// time when the subject is not locked.
func (l *Lockout) LockedUntil(subject string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[subject]
	if !ok || l.now().After(entry.lockedUntil) {
		return time.Time{}
	}
	return entry.lockedUntil
}

// RecordFailure counts one failed attempt and reports whether the
// subject is now locked out.
func (l *Lockout) RecordFailure(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[subject]
	if !ok {
		entry = &lockoutEntry{}
		l.entries[subject] = entry
	}
	entry.failedAttempts++
	entry.lastAttempt = l.now()

	if entry.failedAttempts < l.cfg.MaxAttempts {
		return false
	}

	duration := l.cfg.LockoutDuration
	if l.cfg.ExponentialBackoff {
		for i := 0; i < entry.lockoutCount; i++ {
			duration *= 2
			if l.cfg.MaxLockoutDuration > 0 && duration >= l.cfg.MaxLockoutDuration {
				duration = l.cfg.MaxLockoutDuration
				break
			}
		}
	}
	entry.lockoutCount++
	entry.failedAttempts = 0
	entry.lockedUntil = l.now().Add(duration)
	return true
}

// Clear resets the subject after a successful authentication.
func (l *Lockout) Clear(subject string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, subject)
}

// Sweep drops entries idle longer than the retention window. Called
// periodically so the map does not grow without bound.
func (l *Lockout) Sweep(retention time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-retention)
	removed := 0
	for subject, entry := range l.entries {
		if entry.lastAttempt.Before(cutoff) && l.now().After(entry.lockedUntil) {
			delete(l.entries, subject)
			removed++
		}
	}
	return removed
}
