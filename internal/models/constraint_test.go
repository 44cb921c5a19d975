// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package models

import (
	"errors"
	"testing"
	"time"
)

func tod(h, m int) *TimeOfDay {
	t := NewTimeOfDay(h, m)
	return &t
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTimeOfDay(t *testing.T) {
	v := NewTimeOfDay(8, 30)
	if v.Hour() != 8 || v.Minute() != 30 {
		t.Fatalf("got %d:%d, want 8:30", v.Hour(), v.Minute())
	}
	if v.String() != "0830" {
		t.Errorf("String() = %q, want 0830", v.String())
	}
}

func TestDayMaskAllows(t *testing.T) {
	// 0111110 = Monday through Friday (bit 1 = Sunday).
	weekdays := DayMask(0x3E)

	tests := []struct {
		day  time.Weekday
		want bool
	}{
		{time.Sunday, false},
		{time.Monday, true},
		{time.Wednesday, true},
		{time.Friday, true},
		{time.Saturday, false},
	}
	for _, tt := range tests {
		if got := weekdays.Allows(tt.day); got != tt.want {
			t.Errorf("Allows(%v) = %v, want %v", tt.day, got, tt.want)
		}
	}

	// Zero mask is unbounded.
	var unset DayMask
	if !unset.Allows(time.Saturday) {
		t.Error("zero mask must allow every day")
	}
}

func TestConstraintValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Constraint
		wantErr bool
	}{
		{"empty", Constraint{}, false},
		{"normal window", Constraint{BeginTime: tod(8, 0), EndTime: tod(18, 0)}, false},
		{"wrapping window rejected", Constraint{BeginTime: tod(22, 0), EndTime: tod(6, 0)}, true},
		{"inverted dates", Constraint{BeginDate: date(2026, 6, 1), EndDate: date(2026, 1, 1)}, true},
		{"inverted lock dates", Constraint{BeginLockDate: date(2026, 6, 1), EndLockDate: date(2026, 1, 1)}, true},
		{"mask too wide", Constraint{DayMask: 0xFF}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConstraint) {
				t.Errorf("error %v is not ErrInvalidConstraint", err)
			}
		})
	}
}

func TestPermKey(t *testing.T) {
	if got := PermKey("inventory", "read", ""); got != "inventory::read" {
		t.Errorf("PermKey = %q", got)
	}
	if got := PermKey("inventory", "read", "item42"); got != "inventory::read::item42" {
		t.Errorf("PermKey with objID = %q", got)
	}
}

func TestSessionHelpers(t *testing.T) {
	s := Session{
		ActiveRoles: []UserRole{{Name: "clerk"}, {Name: "teller"}},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if s.IsExpired() {
		t.Error("session should not be expired")
	}
	if !s.HasActiveRole("teller") || s.HasActiveRole("auditor") {
		t.Error("HasActiveRole mismatch")
	}
	got := s.ActiveRoleNames()
	if len(got) != 2 || got[0] != "clerk" || got[1] != "teller" {
		t.Errorf("ActiveRoleNames = %v", got)
	}

	expired := Session{ExpiresAt: time.Now().Add(-time.Minute)}
	if !expired.IsExpired() {
		t.Error("expired session not detected")
	}
}
