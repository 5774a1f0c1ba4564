package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/model"
)

func newTestKeys(t *testing.T) (*KeyService, *config.Store, int64) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	admin := &model.Admin{
		Email:        "owner@example.com",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotareal",
		Name:         "Owner",
		IsActive:     true,
	}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	return NewKeyService(store), store, admin.ID
}

func validDraft() model.APIKeyDraft {
	return model.APIKeyDraft{
		Name:               "CI pipeline",
		Description:        "Key used by the nightly build",
		Scopes:             []string{"reports:read", "reports:export"},
		RateLimitPerMinute: 60,
		RateLimitPerHour:   1000,
		RateLimitPerDay:    10000,
	}
}

func mustCreate(t *testing.T, svc *KeyService, ownerID int64) *model.APIKeyCreated {
	t.Helper()
	created, err := svc.Create(context.Background(), ownerID, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created
}

func TestCreateReturnsPlaintextOnce(t *testing.T) {
	svc, store, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	if created.PlaintextKey == "" {
		t.Fatal("expected plaintext key")
	}
	if !strings.HasPrefix(created.PlaintextKey, "qz_") {
		t.Errorf("plaintext %q missing qz_ prefix", created.PlaintextKey)
	}
	if created.KeyPrefix != created.PlaintextKey[:keyPrefixLen] {
		t.Errorf("KeyPrefix %q is not the leading fragment of the plaintext", created.KeyPrefix)
	}
	if len(created.KeyPrefix) >= len(created.PlaintextKey) {
		t.Error("prefix must be strictly shorter than the full key")
	}
	if !created.IsActive {
		t.Error("new key should be active")
	}
	if created.RequestCount != 0 {
		t.Errorf("RequestCount: got %d, want 0", created.RequestCount)
	}

	// The stored record must carry the hash, never the plaintext.
	stored, err := store.GetAPIKey(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if stored.KeyHash != config.HashAPIKey(created.PlaintextKey) {
		t.Error("stored hash does not match plaintext")
	}
	if stored.KeyHash == created.PlaintextKey {
		t.Error("store kept the plaintext")
	}
}

func TestCreateNeverIdempotent(t *testing.T) {
	svc, _, owner := newTestKeys(t)

	a := mustCreate(t, svc, owner)
	b := mustCreate(t, svc, owner)

	if a.ID == b.ID {
		t.Error("two creates with identical input must yield distinct ids")
	}
	if a.PlaintextKey == b.PlaintextKey {
		t.Error("two creates must yield distinct secrets")
	}

	keys, err := svc.List(context.Background(), owner, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*model.APIKeyDraft)
		field  string
	}{
		{"empty name", func(d *model.APIKeyDraft) { d.Name = "  " }, "name"},
		{"no scopes", func(d *model.APIKeyDraft) { d.Scopes = nil }, "scopes"},
		{"unknown scope", func(d *model.APIKeyDraft) { d.Scopes = []string{"reports:read", "bogus:scope"} }, "scopes"},
		{"zero minute limit", func(d *model.APIKeyDraft) { d.RateLimitPerMinute = 0 }, "rate_limit_per_minute"},
		{"negative hour limit", func(d *model.APIKeyDraft) { d.RateLimitPerHour = -5 }, "rate_limit_per_hour"},
		{"zero day limit", func(d *model.APIKeyDraft) { d.RateLimitPerDay = 0 }, "rate_limit_per_day"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)

			_, err := svc.Create(ctx, owner, draft)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("Field: got %q, want %q", ve.Field, tc.field)
			}

			// Failed validation must not leave a record behind.
			keys, err := svc.List(ctx, owner, true)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(keys) != 0 {
				t.Errorf("invalid create wrote %d record(s)", len(keys))
			}
		})
	}
}

func TestCreateDeduplicatesScopes(t *testing.T) {
	svc, _, owner := newTestKeys(t)

	draft := validDraft()
	draft.Scopes = []string{"reports:read", "reports:read", "reports:export"}

	created, err := svc.Create(context.Background(), owner, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Scopes) != 2 {
		t.Errorf("Scopes: got %v, want deduplicated pair", created.Scopes)
	}
}

func TestRotateInvalidatesOldSecret(t *testing.T) {
	svc, store, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)
	oldPlaintext := created.PlaintextKey

	rotated, err := svc.Rotate(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if rotated.ID != created.ID {
		t.Error("rotation must preserve the key's identity")
	}
	if rotated.PlaintextKey == oldPlaintext {
		t.Error("rotation must produce a new secret")
	}
	if rotated.KeyPrefix == created.KeyPrefix {
		t.Error("rotation must produce a new display prefix")
	}
	if rotated.Name != created.Name {
		t.Error("rotation must not change the name")
	}
	if len(rotated.Scopes) != len(created.Scopes) {
		t.Error("rotation must not change scopes")
	}

	// The old hash no longer resolves; the new one does.
	if _, err := store.GetAPIKeyByHash(ctx, config.HashAPIKey(oldPlaintext)); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("old secret still resolves: %v", err)
	}
	if _, err := store.GetAPIKeyByHash(ctx, config.HashAPIKey(rotated.PlaintextKey)); err != nil {
		t.Errorf("new secret does not resolve: %v", err)
	}
}

func TestRotateNotFound(t *testing.T) {
	svc, _, owner := newTestKeys(t)

	_, err := svc.Rotate(context.Background(), owner, "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	if err := svc.Delete(ctx, owner, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, owner, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again reports not found rather than succeeding silently.
	if err := svc.Delete(ctx, owner, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestSetActiveIdempotent(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	deactivated, err := svc.SetActive(ctx, owner, created.ID, false)
	if err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if deactivated.IsActive {
		t.Fatal("key should be inactive")
	}

	// Setting the same state again succeeds and changes nothing.
	again, err := svc.SetActive(ctx, owner, created.ID, false)
	if err != nil {
		t.Fatalf("repeat SetActive(false): %v", err)
	}
	if again.IsActive {
		t.Fatal("repeat deactivation flipped the flag")
	}

	reactivated, err := svc.SetActive(ctx, owner, created.ID, true)
	if err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if !reactivated.IsActive {
		t.Fatal("key should be active again")
	}
	if reactivated.KeyPrefix != created.KeyPrefix {
		t.Error("activation toggles must not touch the credential")
	}
}

func TestDeactivatedKeyKeepsConfiguration(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	if _, err := svc.SetActive(ctx, owner, created.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := svc.Get(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != created.Name || len(got.Scopes) != len(created.Scopes) ||
		got.RateLimitPerMinute != created.RateLimitPerMinute {
		t.Error("deactivation must preserve name, scopes, and limits")
	}
}

func TestUpdatePatchSemantics(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	newName := "CI pipeline v2"
	newMinute := 120
	updated, err := svc.Update(ctx, owner, created.ID, model.APIKeyPatch{
		Name:               &newName,
		RateLimitPerMinute: &newMinute,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Name != newName {
		t.Errorf("Name: got %q, want %q", updated.Name, newName)
	}
	if updated.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute: got %d, want 120", updated.RateLimitPerMinute)
	}
	// Untouched fields survive.
	if updated.Description != created.Description {
		t.Error("description changed without being patched")
	}
	if updated.RateLimitPerHour != created.RateLimitPerHour {
		t.Error("hour limit changed without being patched")
	}
	if len(updated.Scopes) != len(created.Scopes) {
		t.Error("scopes changed without being patched")
	}
	if updated.KeyPrefix != created.KeyPrefix {
		t.Error("update must not touch the credential")
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	empty := []string{}
	badLimit := 0
	blank := " "
	cases := []struct {
		name  string
		patch model.APIKeyPatch
	}{
		{"empty scopes", model.APIKeyPatch{Scopes: &empty}},
		{"zero limit", model.APIKeyPatch{RateLimitPerDay: &badLimit}},
		{"blank name", model.APIKeyPatch{Name: &blank}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(ctx, owner, created.ID, tc.patch)
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	// Rejected patches leave the record untouched.
	got, err := svc.Get(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != created.Name || got.RateLimitPerDay != created.RateLimitPerDay {
		t.Error("rejected patch mutated the record")
	}
}

func TestOwnershipEnforced(t *testing.T) {
	svc, store, owner := newTestKeys(t)
	ctx := context.Background()

	other := &model.Admin{
		Email:        "intruder@example.com",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotareal",
		Name:         "Intruder",
		IsActive:     true,
	}
	if err := store.CreateAdmin(ctx, other); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	created := mustCreate(t, svc, owner)

	if _, err := svc.Get(ctx, other.ID, created.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("Get: expected ErrPermission, got %v", err)
	}
	if _, err := svc.Rotate(ctx, other.ID, created.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("Rotate: expected ErrPermission, got %v", err)
	}
	if err := svc.Delete(ctx, other.ID, created.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("Delete: expected ErrPermission, got %v", err)
	}
	if _, err := svc.GetUsage(ctx, other.ID, created.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("GetUsage: expected ErrPermission, got %v", err)
	}

	// Another owner's list never shows the key.
	keys, err := svc.List(ctx, other.ID, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("foreign key leaked into list: %v", keys)
	}
}

func TestGetUsageNeverUsedKey(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	stats, err := svc.GetUsage(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if stats.TotalRequests != 0 {
		t.Errorf("TotalRequests: got %d, want 0", stats.TotalRequests)
	}
	if stats.ErrorRate != nil {
		t.Errorf("ErrorRate: got %v, want nil for a never-used key", *stats.ErrorRate)
	}
	if len(stats.MostUsedEndpoints) != 0 {
		t.Errorf("MostUsedEndpoints: got %v, want empty", stats.MostUsedEndpoints)
	}
}

func TestGetUsageDoesNotMutateKey(t *testing.T) {
	svc, store, owner := newTestKeys(t)
	ctx := context.Background()

	created := mustCreate(t, svc, owner)

	now := time.Now().UTC()
	logs := []model.RequestLog{
		{APIKeyID: created.ID, Method: "GET", Path: "/api/v1/workspace/ping", StatusCode: 200, ResponseTimeMs: 12, CreatedAt: now},
		{APIKeyID: created.ID, Method: "GET", Path: "/api/v1/workspace/ping", StatusCode: 500, ResponseTimeMs: 40, CreatedAt: now},
	}
	if err := store.InsertRequestLogs(ctx, logs); err != nil {
		t.Fatalf("InsertRequestLogs: %v", err)
	}

	before, err := svc.Get(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	stats, err := svc.GetUsage(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if stats.TotalRequests != 2 {
		t.Errorf("TotalRequests: got %d, want 2", stats.TotalRequests)
	}
	if stats.ErrorRate == nil || *stats.ErrorRate != 0.5 {
		t.Errorf("ErrorRate: got %v, want 0.5", stats.ErrorRate)
	}

	after, err := svc.Get(ctx, owner, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.UpdatedAt != before.UpdatedAt || after.RequestCount != before.RequestCount {
		t.Error("reading usage mutated the key record")
	}
}

func TestListFiltersInactive(t *testing.T) {
	svc, _, owner := newTestKeys(t)
	ctx := context.Background()

	active := mustCreate(t, svc, owner)
	inactive := mustCreate(t, svc, owner)
	if _, err := svc.SetActive(ctx, owner, inactive.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	visible, err := svc.List(ctx, owner, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != active.ID {
		t.Errorf("active-only list: got %d keys", len(visible))
	}

	all, err := svc.List(ctx, owner, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("full list: got %d keys, want 2", len(all))
	}
}

func TestFilterKeys(t *testing.T) {
	keys := []model.APIKey{
		{ID: "a", Name: "CI pipeline", Description: "nightly build"},
		{ID: "b", Name: "Grafana", Description: "dashboard panel feed"},
		{ID: "c", Name: "Billing export", Description: ""},
	}

	if got := FilterKeys(keys, ""); len(got) != 3 {
		t.Errorf("empty query: got %d, want all 3", len(got))
	}
	if got := FilterKeys(keys, "PIPE"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("name match: got %v", got)
	}
	if got := FilterKeys(keys, "panel"); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("description match: got %v", got)
	}
	if got := FilterKeys(keys, "zzz"); len(got) != 0 {
		t.Errorf("no match: got %v", got)
	}
	// The input slice is never reordered or truncated.
	if keys[0].ID != "a" || len(keys) != 3 {
		t.Error("FilterKeys mutated its input")
	}
}

func TestScopesCatalog(t *testing.T) {
	svc, _, _ := newTestKeys(t)

	scopes, err := svc.Scopes(context.Background())
	if err != nil {
		t.Fatalf("Scopes: %v", err)
	}
	if len(scopes) == 0 {
		t.Fatal("expected seeded scope catalog")
	}
	seen := map[string]bool{}
	for _, sc := range scopes {
		if sc.Category == "" {
			t.Errorf("scope %q has no category", sc.Scope)
		}
		if seen[sc.Scope] {
			t.Errorf("duplicate scope %q", sc.Scope)
		}
		seen[sc.Scope] = true
	}
}
