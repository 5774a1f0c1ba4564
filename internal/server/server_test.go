package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/connector"
	"github.com/quartzbi/quartz/internal/model"
	"github.com/quartzbi/quartz/internal/service"
	"github.com/quartzbi/quartz/internal/usage"
)

// testEnv spins up a full server over an in-memory store so the lifecycle
// endpoints are exercised through the real router, middleware, and handlers.
type testEnv struct {
	ts    *httptest.Server
	store *config.Store
	token string // admin session token for the seeded admin
	admin int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := connector.NewRegistry()
	authSvc := service.NewAuthService(store, "test-signing-secret")
	keySvc := service.NewKeyService(store)
	recorder := usage.NewRecorder(store, logger)

	srv := New(DefaultConfig(), registry, store, authSvc, keySvc, recorder, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	env := &testEnv{ts: ts, store: store}
	env.admin = env.seedAdmin(t, "owner@example.com", "correct horse battery")
	env.token = env.login(t, "owner@example.com", "correct horse battery")
	return env
}

func (e *testEnv) seedAdmin(t *testing.T, email, password string) int64 {
	t.Helper()
	hash, err := service.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.Admin{Email: email, PasswordHash: hash, Name: "Test Admin", IsActive: true}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	return admin.ID
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	body := e.do(t, http.MethodPost, "/api/v1/system/admin/session", "",
		map[string]string{"email": email, "password": password}, http.StatusOK)
	token, _ := body["session_token"].(string)
	if token == "" {
		t.Fatalf("login returned no session_token: %v", body)
	}
	return token
}

// do issues a request and decodes the JSON response, failing the test when
// the status does not match.
func (e *testEnv) do(t *testing.T, method, path, token string, payload interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reqBody)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d (body: %s)", method, path, resp.StatusCode, wantStatus, raw)
	}

	var body map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("%s %s: decode response: %v (body: %s)", method, path, err, raw)
		}
	}
	return body
}

func validDraft(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":                  name,
		"description":           "integration test key",
		"scopes":                []string{"dashboards:read", "reports:read"},
		"rate_limit_per_minute": 60,
		"rate_limit_per_hour":   1000,
		"rate_limit_per_day":    10000,
	}
}

func (e *testEnv) createKey(t *testing.T, name string) map[string]interface{} {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/system/api-keys", e.token, validDraft(name), http.StatusCreated)
}

// ---------------------------------------------------------------------------
// Health and discovery endpoints
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	body := env.do(t, http.MethodGet, "/healthz", "", nil, http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/readyz", "", nil, http.StatusOK)
}

func TestOpenAPISpecServed(t *testing.T) {
	env := newTestEnv(t)
	body := env.do(t, http.MethodGet, "/openapi.json", "", nil, http.StatusOK)
	if body["openapi"] != "3.1.0" {
		t.Errorf("openapi version = %v, want 3.1.0", body["openapi"])
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/system/admin/session", "",
		map[string]string{"email": "owner@example.com", "password": "wrong"}, http.StatusUnauthorized)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/system/api-keys", "", nil, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Key lifecycle
// ---------------------------------------------------------------------------

func TestCreateReturnsSecretExactlyOnce(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "reporting")
	secret, _ := created["api_key"].(string)
	if secret == "" {
		t.Fatal("create response missing api_key plaintext")
	}
	prefix, _ := created["key_prefix"].(string)
	if prefix == "" {
		t.Fatal("create response missing key_prefix")
	}

	id := created["id"].(string)

	// Every subsequent read shows the prefix but never the secret.
	got := env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusOK)
	if _, ok := got["api_key"]; ok {
		t.Error("GET response leaked the plaintext secret")
	}
	if got["key_prefix"] != prefix {
		t.Errorf("key_prefix = %v, want %v", got["key_prefix"], prefix)
	}

	list := env.do(t, http.MethodGet, "/api/v1/system/api-keys", env.token, nil, http.StatusOK)
	for _, item := range list["resource"].([]interface{}) {
		if _, ok := item.(map[string]interface{})["api_key"]; ok {
			t.Error("list response leaked a plaintext secret")
		}
	}
}

func TestCreateIsNeverIdempotent(t *testing.T) {
	env := newTestEnv(t)

	first := env.createKey(t, "etl")
	second := env.createKey(t, "etl")

	if first["id"] == second["id"] {
		t.Error("identical drafts should produce distinct keys")
	}
	if first["api_key"] == second["api_key"] {
		t.Error("identical drafts should produce distinct secrets")
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		draft map[string]interface{}
	}{
		{"missing name", map[string]interface{}{
			"scopes":                []string{"dashboards:read"},
			"rate_limit_per_minute": 60, "rate_limit_per_hour": 100, "rate_limit_per_day": 1000,
		}},
		{"empty scopes", map[string]interface{}{
			"name": "k", "scopes": []string{},
			"rate_limit_per_minute": 60, "rate_limit_per_hour": 100, "rate_limit_per_day": 1000,
		}},
		{"unknown scope", map[string]interface{}{
			"name": "k", "scopes": []string{"nonexistent:scope"},
			"rate_limit_per_minute": 60, "rate_limit_per_hour": 100, "rate_limit_per_day": 1000,
		}},
		{"zero rate limit", map[string]interface{}{
			"name": "k", "scopes": []string{"dashboards:read"},
			"rate_limit_per_minute": 0, "rate_limit_per_hour": 100, "rate_limit_per_day": 1000,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.do(t, http.MethodPost, "/api/v1/system/api-keys", env.token, tt.draft, http.StatusBadRequest)
		})
	}

	// Nothing was persisted by the rejected drafts.
	list := env.do(t, http.MethodGet, "/api/v1/system/api-keys?include_inactive=true", env.token, nil, http.StatusOK)
	if count := list["meta"].(map[string]interface{})["count"].(float64); count != 0 {
		t.Errorf("key count after failed creates = %v, want 0", count)
	}
}

func TestRotateInvalidatesOldSecret(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "rotated")
	id := created["id"].(string)
	oldSecret := created["api_key"].(string)

	rotated := env.do(t, http.MethodPost, "/api/v1/system/api-keys/"+id+"/rotate", env.token, nil, http.StatusOK)
	newSecret, _ := rotated["api_key"].(string)
	if newSecret == "" {
		t.Fatal("rotate response missing api_key plaintext")
	}
	if newSecret == oldSecret {
		t.Fatal("rotate returned the same secret")
	}
	if rotated["id"] != id {
		t.Errorf("rotate changed the key id: %v", rotated["id"])
	}

	// The old secret no longer authenticates; the new one does.
	assertWorkspaceAuth := func(secret string, wantStatus int) {
		req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/workspace/ping", nil)
		req.Header.Set("X-API-Key", secret)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("workspace ping: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != wantStatus {
			t.Errorf("workspace ping with secret: status = %d, want %d", resp.StatusCode, wantStatus)
		}
	}

	// The seeded key only carries dashboards/reports scopes, so ping needs
	// workspace:read. Grant it first via a patch.
	env.do(t, http.MethodPatch, "/api/v1/system/api-keys/"+id, env.token,
		map[string]interface{}{"scopes": []string{"workspace:read"}}, http.StatusOK)

	// Patching scopes does not rotate the secret.
	assertWorkspaceAuth(newSecret, http.StatusOK)
	assertWorkspaceAuth(oldSecret, http.StatusUnauthorized)
}

func TestSetActiveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "toggled")
	id := created["id"].(string)

	deactivate := map[string]interface{}{"is_active": false}
	first := env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+id+"/active", env.token, deactivate, http.StatusOK)
	if first["is_active"] != false {
		t.Errorf("is_active after deactivate = %v, want false", first["is_active"])
	}

	// Repeating the same state is a successful no-op.
	second := env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+id+"/active", env.token, deactivate, http.StatusOK)
	if second["is_active"] != false {
		t.Errorf("is_active after repeat deactivate = %v, want false", second["is_active"])
	}

	// Missing is_active is a validation error, not a toggle.
	env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+id+"/active", env.token,
		map[string]interface{}{}, http.StatusBadRequest)
}

func TestDeactivationPreservesConfiguration(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "preserved")
	id := created["id"].(string)

	env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+id+"/active", env.token,
		map[string]interface{}{"is_active": false}, http.StatusOK)
	reactivated := env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+id+"/active", env.token,
		map[string]interface{}{"is_active": true}, http.StatusOK)

	if reactivated["name"] != "preserved" {
		t.Errorf("name after reactivate = %v", reactivated["name"])
	}
	if got := reactivated["rate_limit_per_minute"].(float64); got != 60 {
		t.Errorf("rate_limit_per_minute after reactivate = %v, want 60", got)
	}
	scopes := reactivated["scopes"].([]interface{})
	if len(scopes) != 2 {
		t.Errorf("scopes after reactivate = %v, want 2 entries", scopes)
	}
	if reactivated["key_prefix"] != created["key_prefix"] {
		t.Error("deactivate/reactivate cycle changed the key prefix")
	}
}

func TestUpdateScopesAndLimits(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "patched")
	id := created["id"].(string)

	patched := env.do(t, http.MethodPatch, "/api/v1/system/api-keys/"+id, env.token,
		map[string]interface{}{
			"scopes":                []string{"billing:read"},
			"rate_limit_per_minute": 5,
		}, http.StatusOK)

	scopes := patched["scopes"].([]interface{})
	if len(scopes) != 1 || scopes[0] != "billing:read" {
		t.Errorf("scopes = %v, want [billing:read]", scopes)
	}
	if got := patched["rate_limit_per_minute"].(float64); got != 5 {
		t.Errorf("rate_limit_per_minute = %v, want 5", got)
	}
	// Omitted fields are untouched.
	if got := patched["rate_limit_per_hour"].(float64); got != 1000 {
		t.Errorf("rate_limit_per_hour = %v, want 1000", got)
	}
	if patched["name"] != "patched" {
		t.Errorf("name = %v, want patched", patched["name"])
	}

	// Invalid patches are rejected before any write.
	env.do(t, http.MethodPatch, "/api/v1/system/api-keys/"+id, env.token,
		map[string]interface{}{"scopes": []string{"bogus:scope"}}, http.StatusBadRequest)
	after := env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusOK)
	if got := after["scopes"].([]interface{}); len(got) != 1 || got[0] != "billing:read" {
		t.Errorf("scopes after rejected patch = %v, want [billing:read]", got)
	}
}

func TestDeleteKey(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "doomed")
	id := created["id"].(string)

	env.do(t, http.MethodDelete, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusOK)
	env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusNotFound)
	env.do(t, http.MethodDelete, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusNotFound)
}

func TestOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "private")
	id := created["id"].(string)

	env.seedAdmin(t, "other@example.com", "another password!")
	otherToken := env.login(t, "other@example.com", "another password!")

	// Another admin cannot see or touch the key.
	env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, otherToken, nil, http.StatusForbidden)
	env.do(t, http.MethodDelete, "/api/v1/system/api-keys/"+id, otherToken, nil, http.StatusForbidden)
	env.do(t, http.MethodPost, "/api/v1/system/api-keys/"+id+"/rotate", otherToken, nil, http.StatusForbidden)

	list := env.do(t, http.MethodGet, "/api/v1/system/api-keys", otherToken, nil, http.StatusOK)
	if count := list["meta"].(map[string]interface{})["count"].(float64); count != 0 {
		t.Errorf("other admin sees %v keys, want 0", count)
	}

	// The owner still has it.
	env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusOK)
}

func TestListFiltering(t *testing.T) {
	env := newTestEnv(t)

	env.createKey(t, "alpha dashboard key")
	beta := env.createKey(t, "beta export key")
	env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+beta["id"].(string)+"/active", env.token,
		map[string]interface{}{"is_active": false}, http.StatusOK)

	// Default listing hides inactive keys.
	list := env.do(t, http.MethodGet, "/api/v1/system/api-keys", env.token, nil, http.StatusOK)
	if count := list["meta"].(map[string]interface{})["count"].(float64); count != 1 {
		t.Errorf("default list count = %v, want 1", count)
	}

	// include_inactive restores the full set.
	list = env.do(t, http.MethodGet, "/api/v1/system/api-keys?include_inactive=true", env.token, nil, http.StatusOK)
	if count := list["meta"].(map[string]interface{})["count"].(float64); count != 2 {
		t.Errorf("include_inactive list count = %v, want 2", count)
	}

	// q filters by substring without persisting anything.
	list = env.do(t, http.MethodGet, "/api/v1/system/api-keys?include_inactive=true&q=export", env.token, nil, http.StatusOK)
	if count := list["meta"].(map[string]interface{})["count"].(float64); count != 1 {
		t.Errorf("q=export list count = %v, want 1", count)
	}

	list = env.do(t, http.MethodGet, "/api/v1/system/api-keys?include_inactive=true", env.token, nil, http.StatusOK)
	if count := list["meta"].(map[string]interface{})["count"].(float64); count != 2 {
		t.Errorf("list count after filtered query = %v, want 2", count)
	}
}

func TestUsageEndpointIsReadOnly(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "measured")
	id := created["id"].(string)

	before := env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusOK)

	stats := env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id+"/usage", env.token, nil, http.StatusOK)
	if got := stats["total_requests"].(float64); got != 0 {
		t.Errorf("total_requests = %v, want 0", got)
	}
	if _, ok := stats["most_used_endpoints"]; !ok {
		t.Error("usage response missing most_used_endpoints")
	}

	// Reading usage does not mutate the key.
	after := env.do(t, http.MethodGet, "/api/v1/system/api-keys/"+id, env.token, nil, http.StatusOK)
	if before["updated_at"] != after["updated_at"] {
		t.Error("usage read changed the key's updated_at")
	}
	if before["request_count"] != after["request_count"] {
		t.Error("usage read changed the key's request_count")
	}
}

// ---------------------------------------------------------------------------
// Scope catalog
// ---------------------------------------------------------------------------

func TestListScopes(t *testing.T) {
	env := newTestEnv(t)

	body := env.do(t, http.MethodGet, "/api/v1/system/scopes", env.token, nil, http.StatusOK)
	scopes := body["scopes"].([]interface{})
	if len(scopes) == 0 {
		t.Fatal("scope catalog is empty")
	}
	if _, ok := body["categories"]; !ok {
		t.Error("scopes response missing categories grouping")
	}
}

func TestToggleScopeCategoryInvolution(t *testing.T) {
	env := newTestEnv(t)

	selected := []string{"dashboards:read", "billing:read"}

	once := env.do(t, http.MethodPost, "/api/v1/system/scopes/toggle", env.token,
		map[string]interface{}{"selected": selected, "category": "Reports"}, http.StatusOK)
	onceSel := once["selected"].([]interface{})

	// Toggling an unselected category adds all of its scopes.
	if len(onceSel) != len(selected)+3 {
		t.Errorf("selection after toggle = %v, want %d entries", onceSel, len(selected)+3)
	}

	var asStrings []string
	for _, s := range onceSel {
		asStrings = append(asStrings, s.(string))
	}
	twice := env.do(t, http.MethodPost, "/api/v1/system/scopes/toggle", env.token,
		map[string]interface{}{"selected": asStrings, "category": "Reports"}, http.StatusOK)
	twiceSel := twice["selected"].([]interface{})

	// Toggling twice returns to the original selection.
	if len(twiceSel) != len(selected) {
		t.Fatalf("selection after double toggle = %v, want %v", twiceSel, selected)
	}
	got := map[string]bool{}
	for _, s := range twiceSel {
		got[s.(string)] = true
	}
	for _, want := range selected {
		if !got[want] {
			t.Errorf("double toggle lost scope %q", want)
		}
	}

	// category is required.
	env.do(t, http.MethodPost, "/api/v1/system/scopes/toggle", env.token,
		map[string]interface{}{"selected": selected}, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// Workspace API key authentication
// ---------------------------------------------------------------------------

func TestWorkspaceAuthAndScopes(t *testing.T) {
	env := newTestEnv(t)

	draft := validDraft("workspace consumer")
	draft["scopes"] = []string{"workspace:read"}
	created := env.do(t, http.MethodPost, "/api/v1/system/api-keys", env.token, draft, http.StatusCreated)
	secret := created["api_key"].(string)
	id := created["id"].(string)

	ping := func(key string) int {
		req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/workspace/ping", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("ping: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := ping(""); got != http.StatusUnauthorized {
		t.Errorf("unauthenticated ping = %d, want 401", got)
	}
	if got := ping("qk_completely_bogus"); got != http.StatusUnauthorized {
		t.Errorf("bogus key ping = %d, want 401", got)
	}
	if got := ping(secret); got != http.StatusOK {
		t.Errorf("valid key ping = %d, want 200", got)
	}

	// A key without the required scope is authenticated but forbidden.
	noScope := validDraft("no workspace scope")
	created2 := env.do(t, http.MethodPost, "/api/v1/system/api-keys", env.token, noScope, http.StatusCreated)
	if got := ping(created2["api_key"].(string)); got != http.StatusForbidden {
		t.Errorf("wrong-scope ping = %d, want 403", got)
	}

	// Deactivated keys stop authenticating immediately.
	env.do(t, http.MethodPut, "/api/v1/system/api-keys/"+id+"/active", env.token,
		map[string]interface{}{"is_active": false}, http.StatusOK)
	if got := ping(secret); got != http.StatusUnauthorized {
		t.Errorf("deactivated key ping = %d, want 401", got)
	}
}

func TestWorkspaceRateLimit(t *testing.T) {
	env := newTestEnv(t)

	draft := validDraft("throttled")
	draft["scopes"] = []string{"workspace:read"}
	draft["rate_limit_per_minute"] = 3
	created := env.do(t, http.MethodPost, "/api/v1/system/api-keys", env.token, draft, http.StatusCreated)
	secret := created["api_key"].(string)

	var last int
	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/workspace/ping", nil)
		req.Header.Set("X-API-Key", secret)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after exceeding per-minute limit = %d, want 429", last)
	}
}

// ---------------------------------------------------------------------------
// API keys cannot reach the admin surface
// ---------------------------------------------------------------------------

func TestAPIKeyCannotManageKeys(t *testing.T) {
	env := newTestEnv(t)

	created := env.createKey(t, "not an admin")
	secret := created["api_key"].(string)

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/system/api-keys", nil)
	req.Header.Set("X-API-Key", secret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list with API key: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("admin route with API key: status = %d, want 403", resp.StatusCode)
	}
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	smtp := map[string]interface{}{
		"host": "smtp.example.com", "port": 587, "enabled": true,
		"username": "mailer", "password": "sekret", "from_address": "bi@example.com",
	}
	env.do(t, http.MethodPut, "/api/v1/system/settings/smtp", env.token, smtp, http.StatusOK)
	got := env.do(t, http.MethodGet, "/api/v1/system/settings/smtp", env.token, nil, http.StatusOK)
	if got["host"] != "smtp.example.com" {
		t.Errorf("smtp host = %v, want smtp.example.com", got["host"])
	}
	if fmt.Sprintf("%v", got["port"]) != "587" {
		t.Errorf("smtp port = %v, want 587", got["port"])
	}
}
