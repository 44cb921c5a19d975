// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConstraint is returned when a temporal constraint is malformed.
var ErrInvalidConstraint = errors.New("invalid temporal constraint")

// TimeOfDay is a clock time expressed as minutes since midnight (0-1439).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Hour returns the hour component (0-23).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the time as HHMM, matching the directory attribute syntax.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

// TimeOfDayFromClock converts a wall-clock timestamp to minutes since midnight.
func TimeOfDayFromClock(at time.Time) TimeOfDay {
	return NewTimeOfDay(at.Hour(), at.Minute())
}

// DayMask is a 7-bit weekday activation mask.
//
// Bit 1 (least significant) is Sunday, bit 7 is Saturday, following the
// documented directory convention. A zero mask means every day is allowed.
type DayMask uint8

// DayMaskAll allows activation on every weekday.
const DayMaskAll DayMask = 0x7F

// Allows reports whether the mask permits the given weekday.
// time.Weekday numbers Sunday as 0, which maps to bit 1.
func (m DayMask) Allows(day time.Weekday) bool {
	if m == 0 {
		return true
	}
	return m&(1<<uint(day)) != 0
}

// Constraint carries the temporal activation window shared by Roles,
// AdminRoles, Users, and per-assignment overrides.
//
// Nil pointer fields are unbounded. Canonical types are assumed: attribute
// syntax parsing (HHMM strings, YYYYMMDD dates) happens at the transport
// edge, never here.
type Constraint struct {
	// BeginTime and EndTime bound the time-of-day activation window.
	// Windows that wrap midnight (begin > end) are not supported and are
	// rejected by Validate.
	BeginTime *TimeOfDay `json:"begin_time,omitempty"`
	EndTime   *TimeOfDay `json:"end_time,omitempty"`

	// BeginDate and EndDate bound the calendar validity window (date only,
	// time components ignored).
	BeginDate *time.Time `json:"begin_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// BeginLockDate and EndLockDate define an exclusion window during which
	// the entity may not activate (e.g. scheduled maintenance freeze).
	BeginLockDate *time.Time `json:"begin_lock_date,omitempty"`
	EndLockDate   *time.Time `json:"end_lock_date,omitempty"`

	// DayMask restricts activation to specific weekdays. Zero = all days.
	DayMask DayMask `json:"day_mask,omitempty"`
}

// Validate checks structural sanity of the constraint.
// Midnight-wrapping time windows are explicitly unsupported.
func (c *Constraint) Validate() error {
	if c.BeginTime != nil && (*c.BeginTime < 0 || *c.BeginTime > 1439) {
		return fmt.Errorf("%w: begin time %d out of range", ErrInvalidConstraint, *c.BeginTime)
	}
	if c.EndTime != nil && (*c.EndTime < 0 || *c.EndTime > 1439) {
		return fmt.Errorf("%w: end time %d out of range", ErrInvalidConstraint, *c.EndTime)
	}
	if c.BeginTime != nil && c.EndTime != nil && *c.BeginTime > *c.EndTime {
		return fmt.Errorf("%w: time window wraps midnight (begin %s after end %s)",
			ErrInvalidConstraint, c.BeginTime, c.EndTime)
	}
	if c.BeginDate != nil && c.EndDate != nil && c.BeginDate.After(*c.EndDate) {
		return fmt.Errorf("%w: begin date after end date", ErrInvalidConstraint)
	}
	if c.BeginLockDate != nil && c.EndLockDate != nil && c.BeginLockDate.After(*c.EndLockDate) {
		return fmt.Errorf("%w: begin lock date after end lock date", ErrInvalidConstraint)
	}
	if c.DayMask > DayMaskAll {
		return fmt.Errorf("%w: day mask %#x uses more than 7 bits", ErrInvalidConstraint, c.DayMask)
	}
	return nil
}

// IsZero reports whether the constraint imposes no bounds at all.
func (c *Constraint) IsZero() bool {
	return c.BeginTime == nil && c.EndTime == nil &&
		c.BeginDate == nil && c.EndDate == nil &&
		c.BeginLockDate == nil && c.EndLockDate == nil &&
		c.DayMask == 0
}
