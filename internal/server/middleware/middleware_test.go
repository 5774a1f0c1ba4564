package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/quartzbi/quartz/internal/model"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID == "" {
		t.Error("expected X-Request-ID in response header")
	}
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	id := GetRequestID(context.Background())
	if id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// RequireAdmin middleware tests
// ---------------------------------------------------------------------------

func withPrincipal(req *http.Request, p *Principal) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), AuthPrincipalKey, p))
}

func TestRequireAdminAllowsAdmins(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := RequireAdmin()(inner)

	req := httptest.NewRequest("GET", "/admin", nil)
	req = withPrincipal(req, &Principal{Type: "admin", AdminID: 1, IsAdmin: true})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRequireAdminBlocksAPIKeys(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not be called for an API key principal")
	})

	handler := RequireAdmin()(inner)

	req := httptest.NewRequest("GET", "/admin", nil)
	req = withPrincipal(req, &Principal{Type: "api_key", KeyID: "k1"})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestRequireAdminBlocksUnauthenticated(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not be called for unauthenticated")
	})

	handler := RequireAdmin()(inner)

	req := httptest.NewRequest("GET", "/admin", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequireScope middleware tests
// ---------------------------------------------------------------------------

func TestRequireScopeAllowsGrantedScope(t *testing.T) {
	handler := RequireScope("reports:read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/reports", nil)
	req = withPrincipal(req, &Principal{Type: "api_key", KeyID: "k1", Scopes: []string{"reports:read"}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRequireScopeBlocksMissingScope(t *testing.T) {
	handler := RequireScope("billing:write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not be called without the scope")
	}))

	req := httptest.NewRequest("POST", "/billing", nil)
	req = withPrincipal(req, &Principal{Type: "api_key", KeyID: "k1", Scopes: []string{"reports:read"}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestRequireScopeAdminBypass(t *testing.T) {
	handler := RequireScope("billing:write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/billing", nil)
	req = withPrincipal(req, &Principal{Type: "admin", AdminID: 1, IsAdmin: true})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// KeyRateLimiter tests
// ---------------------------------------------------------------------------

func TestKeyRateLimiterEnforcesPerKeyBudget(t *testing.T) {
	rl := NewKeyRateLimiter()
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(keyID string, perMin int) int {
		req := httptest.NewRequest("GET", "/ping", nil)
		req = withPrincipal(req, &Principal{Type: "api_key", KeyID: keyID, RateLimitPerMinute: perMin})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	// Burst capacity equals the per-minute budget.
	for i := 0; i < 3; i++ {
		if code := send("small", 3); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i+1, code)
		}
	}
	if code := send("small", 3); code != http.StatusTooManyRequests {
		t.Errorf("over-budget request: got %d, want 429", code)
	}

	// Another key's budget is untouched.
	if code := send("other", 3); code != http.StatusOK {
		t.Errorf("independent key: got %d, want 200", code)
	}
}

func TestKeyRateLimiterSkipsAdmins(t *testing.T) {
	rl := NewKeyRateLimiter()
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/ping", nil)
		req = withPrincipal(req, &Principal{Type: "admin", AdminID: 1, IsAdmin: true})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("admin request %d limited: %d", i+1, rr.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// KeyUsage middleware tests
// ---------------------------------------------------------------------------

type captureSink struct {
	mu      sync.Mutex
	entries []model.RequestLog
}

func (c *captureSink) Record(entry model.RequestLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func TestKeyUsageRecordsKeyRequests(t *testing.T) {
	sink := &captureSink{}
	handler := KeyUsage(sink)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/v1/system/sources", nil)
	req = withPrincipal(req, &Principal{Type: "api_key", KeyID: "k1"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if len(sink.entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.APIKeyID != "k1" || e.Method != "POST" || e.StatusCode != http.StatusCreated {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Path != "/api/v1/system/sources" {
		t.Errorf("Path: got %q", e.Path)
	}
}

func TestKeyUsageIgnoresAdminRequests(t *testing.T) {
	sink := &captureSink{}
	handler := KeyUsage(sink)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/system/api-keys", nil)
	req = withPrincipal(req, &Principal{Type: "admin", AdminID: 1, IsAdmin: true})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if len(sink.entries) != 0 {
		t.Errorf("admin request was recorded: %+v", sink.entries)
	}
}

// ---------------------------------------------------------------------------
// GetPrincipal tests
// ---------------------------------------------------------------------------

func TestGetPrincipalWithValue(t *testing.T) {
	expected := &Principal{Type: "admin", AdminID: 42, IsAdmin: true}
	ctx := context.WithValue(context.Background(), AuthPrincipalKey, expected)

	got := GetPrincipal(ctx)
	if got == nil {
		t.Fatal("expected non-nil principal")
	}
	if got.AdminID != 42 {
		t.Errorf("expected AdminID 42, got %d", got.AdminID)
	}
	if !got.IsAdmin {
		t.Error("expected IsAdmin true")
	}
}

func TestGetPrincipalWithoutValue(t *testing.T) {
	got := GetPrincipal(context.Background())
	if got != nil {
		t.Error("expected nil principal from bare context")
	}
}
