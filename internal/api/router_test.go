// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/palisade/internal/access"
	"github.com/tomtom215/palisade/internal/admin"
	"github.com/tomtom215/palisade/internal/arbac"
	"github.com/tomtom215/palisade/internal/audit"
	"github.com/tomtom215/palisade/internal/auth"
	"github.com/tomtom215/palisade/internal/authz"
	"github.com/tomtom215/palisade/internal/config"
	"github.com/tomtom215/palisade/internal/directory"
	"github.com/tomtom215/palisade/internal/hierarchy"
	"github.com/tomtom215/palisade/internal/models"
	"github.com/tomtom215/palisade/internal/review"
	"github.com/tomtom215/palisade/internal/sod"
)

const (
	testJWTSecret = "0123456789abcdef0123456789abcdef"
	rootPassword  = "correct-horse-pw"
	alicePassword = "alice-password1"
)

type testEnv struct {
	router http.Handler
	store  *audit.MemoryStore
}

// newTestEnv wires the full stack against in-memory stores and seeds a
// root operator, a clerk role with one granted permission, and a USER
// org unit for user creation.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dir := directory.OpenMemory()
	roles := hierarchy.New[models.Role]()
	adminRoles := hierarchy.New[models.AdminRole]()
	userOUs := hierarchy.New[models.OrgUnit]()
	permOUs := hierarchy.New[models.OrgUnit]()
	sd := sod.NewEngine(roles)

	sessions := access.NewMemorySessionStore()
	controller := access.NewController(access.Config{
		Users:      dir,
		Roles:      roles,
		AdminRoles: adminRoles,
		Perms:      dir,
		DSD:        sd,
		Sessions:   sessions,
		TTL:        time.Hour,
	})

	mgr := admin.NewManager(admin.Config{
		Dir:        dir,
		Roles:      roles,
		AdminRoles: adminRoles,
		UserOUs:    userOUs,
		PermOUs:    permOUs,
		SD:         sd,
		Sessions:   controller,
	})
	resolver := arbac.NewResolver(adminRoles, roles, userOUs, permOUs)
	delegated := admin.NewDelegated(mgr, resolver)
	rev := review.NewManager(review.Config{
		Dir:        dir,
		Roles:      roles,
		AdminRoles: adminRoles,
		UserOUs:    userOUs,
		PermOUs:    permOUs,
		SD:         sd,
	})
	authn := auth.NewAuthenticator(auth.Config{Users: dir})

	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := NewTokenManager(testJWTSecret, "palisade-test")
	if err != nil {
		t.Fatal(err)
	}
	store := audit.NewMemoryStore(100)

	seed := []struct {
		name string
		fn   func() error
	}{
		{"role super", func() error { return mgr.AddRole(ctx, models.Role{Name: authz.RoleSuper}) }},
		{"role clerk", func() error { return mgr.AddRole(ctx, models.Role{Name: "clerk"}) }},
		{"org unit", func() error { return mgr.AddOrgUnit(ctx, models.OrgUnit{Name: "hq", Type: models.OrgUnitUser}) }},
		{"root user", func() error { return mgr.AddUser(ctx, models.User{UserID: "root"}, rootPassword) }},
		{"assign super", func() error { return mgr.AssignUser(ctx, "root", models.UserRole{Name: authz.RoleSuper}) }},
		{"assign clerk", func() error { return mgr.AssignUser(ctx, "root", models.UserRole{Name: "clerk"}) }},
		{"perm org unit", func() error { return mgr.AddOrgUnit(ctx, models.OrgUnit{Name: "apps", Type: models.OrgUnitPerm}) }},
		{"perm obj", func() error { return mgr.AddPermObj(ctx, models.PermObj{ObjName: "ledger", OU: "apps"}) }},
		{"permission", func() error { return mgr.AddPermission(ctx, models.Permission{ObjName: "ledger", OpName: "read"}) }},
		{"grant", func() error { return mgr.GrantPermission(ctx, "ledger", "read", "", "clerk") }},
	}
	for _, s := range seed {
		if err := s.fn(); err != nil {
			t.Fatalf("seed %s: %v", s.name, err)
		}
	}

	cfg := &config.Config{}
	cfg.Security.JWTIssuer = "palisade-test"
	cfg.Security.SessionTTL = time.Hour
	cfg.Audit.Store = "memory"

	server := &Server{
		Admin:     mgr,
		Delegated: delegated,
		Review:    rev,
		Access:    controller,
		Auth:      authn,
		Audit:     store,
		Enforcer:  enforcer,
		Tokens:    tokens,
		Config:    cfg,
		MW:        NewMiddleware(MiddlewareConfig{}),
	}
	return &testEnv{router: server.Router(), store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func (e *testEnv) login(t *testing.T, userID, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"user_id":"`+userID+`","password":"`+password+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("login %s: status %d, body %s", userID, rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("login data = %T", resp.Data)
	}
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestLoginAndSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodGet, "/v1/session", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("session: status %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["user_id"] != "root" {
		t.Errorf("user_id = %v", data["user_id"])
	}
	active, _ := data["active_roles"].([]interface{})
	if len(active) != 2 {
		t.Errorf("active roles = %d, want 2", len(active))
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"user_id":"root","password":"not-the-password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/session", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminCreateAndReviewUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodPost, "/v1/admin/users", token,
		`{"user_id":"alice","ou":"hq","password":"`+alicePassword+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: status %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("response leaked the password hash")
	}

	rec = env.do(t, http.MethodGet, "/v1/review/users/alice", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("review user: status %d", rec.Code)
	}

	// Duplicate creation conflicts.
	rec = env.do(t, http.MethodPost, "/v1/admin/users", token,
		`{"user_id":"alice","ou":"hq","password":"`+alicePassword+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate user: status %d, want 409", rec.Code)
	}
}

func TestStructuralErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	// Creating a role that already exists conflicts.
	rec := env.do(t, http.MethodPost, "/v1/admin/roles", token, `{"name":"clerk"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate role: status %d, want 409, body %s", rec.Code, rec.Body.String())
	}

	// Deleting an inheritance edge between unrelated roles is a bad
	// request, not a server fault.
	rec = env.do(t, http.MethodDelete,
		"/v1/admin/roles/inheritance?parent=palisade-super&child=clerk", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unrelated edge delete: status %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestPermissionQueryTrimsNames(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodGet, "/v1/review/permissions?obj=%20ledger&op=read%20", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("padded selector: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestOperatorSurfaceDenied(t *testing.T) {
	env := newTestEnv(t)
	rootToken := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodPost, "/v1/admin/users", rootToken,
		`{"user_id":"bob","ou":"hq","password":"`+alicePassword+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: status %d", rec.Code)
	}

	// bob holds no operator role, so every gated surface refuses him.
	bobToken := env.login(t, "bob", alicePassword)
	rec = env.do(t, http.MethodGet, "/v1/review/users", bobToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("review as bob: status %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/v1/admin/roles", bobToken, `{"name":"sneaky"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin as bob: status %d, want 403", rec.Code)
	}
}

func TestCheckAccessThroughHierarchy(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodPost, "/v1/session/check", token,
		`{"obj_name":"ledger","op_name":"read"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("check: status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["permitted"] != true {
		t.Errorf("permitted = %v, want true", data["permitted"])
	}

	rec = env.do(t, http.MethodPost, "/v1/session/check", token,
		`{"obj_name":"ledger","op_name":"delete"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("check: status %d", rec.Code)
	}
	resp = decodeResponse(t, rec)
	data = resp.Data.(map[string]interface{})
	if data["permitted"] != false {
		t.Errorf("permitted = %v, want false", data["permitted"])
	}
}

func TestLogoutRevokesImmediately(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodDelete, "/v1/session", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}

	// The token is still unexpired, but the session record is gone.
	rec = env.do(t, http.MethodGet, "/v1/session", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("session after logout: status %d, want 404", rec.Code)
	}
}

func TestRoleActivationCycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodDelete, "/v1/session/roles/clerk", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("drop role: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Dropped role no longer contributes to access checks.
	rec = env.do(t, http.MethodPost, "/v1/session/check", token,
		`{"obj_name":"ledger","op_name":"read"}`)
	resp := decodeResponse(t, rec)
	if resp.Data.(map[string]interface{})["permitted"] != false {
		t.Error("permitted after dropping clerk, want false")
	}

	rec = env.do(t, http.MethodPost, "/v1/session/roles", token, `{"name":"clerk"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add role: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/v1/session/check", token,
		`{"obj_name":"ledger","op_name":"read"}`)
	resp = decodeResponse(t, rec)
	if resp.Data.(map[string]interface{})["permitted"] != true {
		t.Error("permitted after reactivating clerk, want true")
	}
}

func TestAuditQueryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	events := []audit.Event{
		{ID: "1", Name: "assignUser", Outcome: audit.OutcomeAccept, Actor: "root", Timestamp: time.Now()},
		{ID: "2", Name: "assignUser", Outcome: audit.OutcomeReject, Actor: "root", Timestamp: time.Now()},
		{ID: "3", Name: "createSession", Outcome: audit.OutcomeAccept, Actor: "bob", Timestamp: time.Now()},
	}
	for i := range events {
		if err := env.store.Save(context.Background(), &events[i]); err != nil {
			t.Fatal(err)
		}
	}

	rec := env.do(t, http.MethodGet, "/v1/audit/events?name=assignUser&outcome=reject", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("audit query: status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Meta == nil || resp.Meta.Count != 1 {
		t.Fatalf("meta = %+v, want count 1", resp.Meta)
	}

	rec = env.do(t, http.MethodGet, "/v1/audit/events?outcome=bogus", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus outcome: status %d, want 400", rec.Code)
	}
}

func TestValidationFailureShape(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	// Entity names must not start with punctuation.
	rec := env.do(t, http.MethodPost, "/v1/admin/roles", token, `{"name":"-bad-name"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("success = true on validation failure")
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestConfigSurfaceExcludesSecrets(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", rootPassword)

	rec := env.do(t, http.MethodGet, "/v1/config", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("config: status %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, forbidden := range []string{"jwt_secret", "bootstrap_password"} {
		if strings.Contains(body, forbidden) {
			t.Errorf("config response contains %q", forbidden)
		}
	}
	if !strings.Contains(body, "session_ttl") {
		t.Error("config response missing session_ttl")
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}
