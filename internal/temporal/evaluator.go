// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package temporal evaluates whether a time-constrained entity (Role,
// AdminRole, User, or a per-assignment override) is activatable at a
// reference timestamp.
//
// Evaluation is a pure predicate with no shared state; it is safe to call
// concurrently without coordination. All checks must pass:
//
//   - beginDate <= today <= endDate (unset = unbounded)
//   - today outside [beginLockDate, endLockDate] (unset = no lock window)
//   - time-of-day within [beginTime, endTime] (unset = unbounded)
//   - the day mask bit for the current weekday is set (zero mask = all days)
//
// Windows that wrap midnight are not supported: they are rejected when the
// constraint is written (models.Constraint.Validate) and evaluate as
// never-valid here.
package temporal

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/palisade/internal/models"
)

// ErrViolation is the root of every temporal rejection. Callers distinguish
// the reason with the wrapped sentinels below.
var ErrViolation = errors.New("temporal constraint violation")

// Specific rejection reasons, all wrapping ErrViolation.
var (
	ErrDateOutOfRange = fmt.Errorf("%w: outside validity dates", ErrViolation)
	ErrLockedOut      = fmt.Errorf("%w: within lock-out dates", ErrViolation)
	ErrTimeOfDay      = fmt.Errorf("%w: outside time-of-day window", ErrViolation)
	ErrDayOfWeek      = fmt.Errorf("%w: weekday not permitted", ErrViolation)
)

// Evaluate checks the constraint against the reference timestamp and
// returns nil when every bound passes.
func Evaluate(c models.Constraint, at time.Time) error {
	today := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())

	if c.BeginDate != nil && today.Before(dateOnly(*c.BeginDate)) {
		return ErrDateOutOfRange
	}
	if c.EndDate != nil && today.After(dateOnly(*c.EndDate)) {
		return ErrDateOutOfRange
	}

	// Lock window only applies when both bounds are set.
	if c.BeginLockDate != nil && c.EndLockDate != nil {
		if !today.Before(dateOnly(*c.BeginLockDate)) && !today.After(dateOnly(*c.EndLockDate)) {
			return ErrLockedOut
		}
	}

	now := models.TimeOfDayFromClock(at)
	if c.BeginTime != nil && now < *c.BeginTime {
		return ErrTimeOfDay
	}
	if c.EndTime != nil && now > *c.EndTime {
		return ErrTimeOfDay
	}

	if !c.DayMask.Allows(at.Weekday()) {
		return ErrDayOfWeek
	}

	return nil
}

// EvaluateAssignment checks a role assignment: the per-assignment override
// takes effect in addition to the role's own constraint, so both must pass.
func EvaluateAssignment(roleConstraint models.Constraint, override *models.Constraint, at time.Time) error {
	if err := Evaluate(roleConstraint, at); err != nil {
		return err
	}
	if override != nil {
		return Evaluate(*override, at)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
