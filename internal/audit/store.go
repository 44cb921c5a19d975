// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrEventNotFound is returned when a queried event ID is absent.
var ErrEventNotFound = errors.New("audit event not found")

// Store persists audit events.
type Store interface {
	// Save persists one event.
	Save(ctx context.Context, event *Event) error

	// Query retrieves events matching the filter, most recent first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// MemoryStore implements Store with a bounded in-memory ring. Suitable
// for development and testing; data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	maxLen int
}

// NewMemoryStore creates an in-memory store holding up to maxLen events.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]Event, 0, maxLen),
		maxLen: maxLen,
	}
}

// Save persists an audit event, evicting the oldest tenth when full.
func (s *MemoryStore) Save(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		s.events = s.events[s.maxLen/10:]
	}
	s.events = append(s.events, *event)
	return nil
}

// Query retrieves matching events, most recent first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if !filter.Matches(&event) {
			continue
		}
		results = append(results, event)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

// Len returns the stored event count.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

const auditKeyPrefix = "audit:"

// BadgerStore implements Store over BadgerDB for durable audit trails.
// Keys are timestamp-ordered so reverse iteration yields recent-first.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore creates a durable store. A non-zero retention expires
// events via badger TTLs.
func NewBadgerStore(db *badger.DB, retention time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: retention}
}

// Save persists an audit event.
func (s *BadgerStore) Save(_ context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := []byte(auditKeyPrefix + event.Timestamp.UTC().Format(time.RFC3339Nano) + ":" + event.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Query retrieves matching events, most recent first.
func (s *BadgerStore) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	var results []Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the end of the audit keyspace.
		seek := []byte(auditKeyPrefix + "\xff")
		prefix := []byte(auditKeyPrefix)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var event Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return err
			}
			if !filter.Matches(&event) {
				continue
			}
			results = append(results, event)
			if filter.Limit > 0 && len(results) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
