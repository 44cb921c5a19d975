// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

// Package authz gates the management API itself. The RBAC model this
// service administers says nothing about who may call the service, so a
// separate Casbin policy maps operator roles (palisade-admin,
// palisade-review, palisade-access, and friends) onto the API surfaces.
// A caller's operator roles are ordinary RBAC roles in their session;
// only the names matter here.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Operator role names recognized by the embedded policy.
const (
	RoleSuper     = "palisade-super"
	RoleAdmin     = "palisade-admin"
	RoleReview    = "palisade-review"
	RoleAccess    = "palisade-access"
	RoleDelAdmin  = "palisade-deladmin"
	RoleDelReview = "palisade-delreview"
	RolePwPolicy  = "palisade-pwpolicy"
	RoleAudit     = "palisade-audit"
	RoleConfig    = "palisade-config"
)

// Objects the policy speaks about.
const (
	ObjectAdmin     = "admin"
	ObjectReview    = "review"
	ObjectAccess    = "access"
	ObjectDelegated = "delegated"
	ObjectPassword  = "password"
	ObjectAudit     = "audit"
	ObjectConfig    = "config"
)

// Actions.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// EnforcerConfig tunes the enforcer.
type EnforcerConfig struct {
	// ModelPath and PolicyPath override the embedded files when set and
	// present on disk.
	ModelPath  string
	PolicyPath string

	// AutoReload re-reads a file-backed policy on this interval.
	AutoReload     bool
	ReloadInterval time.Duration

	// CacheTTL enables decision caching when positive.
	CacheTTL time.Duration
}

// DefaultEnforcerConfig returns the production defaults.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{
		AutoReload:     true,
		ReloadInterval: 30 * time.Second,
		CacheTTL:       time.Minute,
	}
}

// Enforcer answers operator-role authorization questions.
type Enforcer struct {
	config   *EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEnforcer creates the enforcer, preferring file-backed model and
// policy when configured and falling back to the embedded ones.
func NewEnforcer(config *EnforcerConfig) (*Enforcer, error) {
	if config == nil {
		config = DefaultEnforcerConfig()
	}

	var m model.Model
	var err error
	if config.ModelPath != "" && fileExists(config.ModelPath) {
		m, err = model.NewModelFromFile(config.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		adapter := fileadapter.NewAdapter(config.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if config.AutoReload && config.PolicyPath != "" {
		enforcer.StartAutoLoadPolicy(config.ReloadInterval)
	}

	e := &Enforcer{config: config, enforcer: enforcer}
	if config.CacheTTL > 0 {
		e.cache = newDecisionCache(config.CacheTTL)
	}
	return e, nil
}

func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch parts[0] {
		case "p":
			if len(parts) >= 4 {
				if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
					return fmt.Errorf("add policy %v: %w", parts[1:], err)
				}
			}
		case "g":
			if len(parts) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
					return fmt.Errorf("add grouping %v: %w", parts[1:], err)
				}
			}
		}
	}
	return nil
}

// Enforce reports whether the subject may perform the action on the
// object.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(subject, object, action); ok {
			return allowed, nil
		}
	}
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforce: %w", err)
	}
	if e.cache != nil {
		e.cache.set(subject, object, action, allowed)
	}
	return allowed, nil
}

// EnforceAny reports whether any of the subject's roles allow the
// action.
func (e *Enforcer) EnforceAny(roles []string, object, action string) (bool, error) {
	for _, role := range roles {
		allowed, err := e.Enforce(role, object, action)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// Close stops background reload and the cache janitor.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
	if e.cache != nil {
		e.cache.stop()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// decisionCache memoizes enforcement results with a TTL. Adequate
// because the embedded policy only changes on process restart and a
// file-backed policy invalidates by expiry.
type decisionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	done    chan struct{}
}

type cacheEntry struct {
	allowed bool
	expires time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	c := &decisionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		done:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func cacheKey(subject, object, action string) string {
	return subject + "\x00" + object + "\x00" + action
}

func (c *decisionCache) get(subject, object, action string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[cacheKey(subject, object, action)]
	if !ok || time.Now().After(entry.expires) {
		return false, false
	}
	return entry.allowed, true
}

func (c *decisionCache) set(subject, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(subject, object, action)] = cacheEntry{
		allowed: allowed,
		expires: time.Now().Add(c.ttl),
	}
}

func (c *decisionCache) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expires) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *decisionCache) stop() {
	close(c.done)
}
