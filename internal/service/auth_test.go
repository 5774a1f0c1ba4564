package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/model"
)

func newTestAuth(t *testing.T) (*AuthService, *KeyService, *config.Store, int64) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hash, err := HashPassword("hunter2-but-longer")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.Admin{
		Email:        "admin@example.com",
		PasswordHash: hash,
		Name:         "Admin",
		IsActive:     true,
	}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	auth := NewAuthService(store, "test-secret-key-for-jwt")
	return auth, NewKeyService(store), store, admin.ID
}

func TestLogin(t *testing.T) {
	auth, _, _, adminID := newTestAuth(t)
	ctx := context.Background()

	token, principal, err := auth.Login(ctx, "admin@example.com", "hunter2-but-longer", time.Hour)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected session token")
	}
	if principal.AdminID != adminID {
		t.Errorf("AdminID: got %d, want %d", principal.AdminID, adminID)
	}

	if _, _, err := auth.Login(ctx, "admin@example.com", "wrong-password", time.Hour); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := auth.Login(ctx, "nobody@example.com", "hunter2-but-longer", time.Hour); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown account: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	auth, _, _, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, 42, "admin@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	principal, err := auth.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.AdminID != 42 {
		t.Errorf("AdminID: got %d, want 42", principal.AdminID)
	}
	if principal.Email != "admin@example.com" {
		t.Errorf("Email: got %q, want %q", principal.Email, "admin@example.com")
	}
}

func TestJWTExpired(t *testing.T) {
	auth, _, _, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, 1, "test@test.com", -time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	if _, err := auth.ValidateJWT(ctx, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTInvalidToken(t *testing.T) {
	auth, _, _, _ := newTestAuth(t)

	if _, err := auth.ValidateJWT(context.Background(), "garbage.token.here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	auth, keys, _, owner := newTestAuth(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, owner, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	principal, err := auth.ValidateAPIKey(ctx, created.PlaintextKey)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if principal.KeyID != created.ID {
		t.Errorf("KeyID: got %q, want %q", principal.KeyID, created.ID)
	}
	if principal.OwnerID != owner {
		t.Errorf("OwnerID: got %d, want %d", principal.OwnerID, owner)
	}
	if !principal.HasScope("reports:read") {
		t.Error("principal missing granted scope")
	}
	if principal.HasScope("billing:write") {
		t.Error("principal carries a scope it was never granted")
	}
	if principal.RateLimitPerMinute != 60 {
		t.Errorf("RateLimitPerMinute: got %d, want 60", principal.RateLimitPerMinute)
	}

	if _, err := auth.ValidateAPIKey(ctx, "qz_completely_wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown secret: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateAPIKeyRevoked(t *testing.T) {
	auth, keys, _, owner := newTestAuth(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, owner, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := keys.SetActive(ctx, owner, created.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	if _, err := auth.ValidateAPIKey(ctx, created.PlaintextKey); !errors.Is(err, ErrKeyRevoked) {
		t.Fatalf("expected ErrKeyRevoked, got %v", err)
	}

	// Reactivation restores the same secret.
	if _, err := keys.SetActive(ctx, owner, created.ID, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := auth.ValidateAPIKey(ctx, created.PlaintextKey); err != nil {
		t.Fatalf("reactivated key rejected: %v", err)
	}
}

func TestValidateAPIKeyExpired(t *testing.T) {
	auth, keys, _, owner := newTestAuth(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	draft := validDraft()
	draft.ExpiresAt = &past

	created, err := keys.Create(ctx, owner, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := auth.ValidateAPIKey(ctx, created.PlaintextKey); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateAPIKeyAfterRotation(t *testing.T) {
	auth, keys, _, owner := newTestAuth(t)
	ctx := context.Background()

	created, err := keys.Create(ctx, owner, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rotated, err := keys.Rotate(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if _, err := auth.ValidateAPIKey(ctx, created.PlaintextKey); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("pre-rotation secret still authenticates: %v", err)
	}
	principal, err := auth.ValidateAPIKey(ctx, rotated.PlaintextKey)
	if err != nil {
		t.Fatalf("post-rotation secret rejected: %v", err)
	}
	if principal.KeyID != created.ID {
		t.Errorf("KeyID: got %q, want %q", principal.KeyID, created.ID)
	}
}
