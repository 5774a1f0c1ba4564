package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/model"
)

const (
	// keyIDPrefix is the non-secret marker all Quartz credentials start with.
	keyIDPrefix = "qz_"

	// keyPrefixLen is how much of the plaintext is kept as the displayable
	// prefix: "qz_" plus the first 8 hex characters. Always strictly shorter
	// than the full secret.
	keyPrefixLen = len(keyIDPrefix) + 8

	// usageTopN bounds the most-used-endpoints ranking returned by GetUsage.
	usageTopN = 10
)

// KeyService owns every state transition of API key records: create, rotate,
// activation toggling, scope/limit updates, deletion, and usage retrieval.
// It is transport independent; HTTP handlers and CLI commands are thin
// wrappers over it.
//
// The one invariant it must preserve even under retries: the plaintext
// secret is exposed exactly once, at create or rotate time. A retried create
// is a new create with a new id and a new secret.
type KeyService struct {
	store *config.Store
}

// NewKeyService creates a KeyService backed by the given store.
func NewKeyService(store *config.Store) *KeyService {
	return &KeyService{store: store}
}

// List returns the owner's keys, newest first. When includeInactive is
// false, deactivated keys are filtered out.
func (s *KeyService) List(ctx context.Context, ownerID int64, includeInactive bool) ([]model.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx, ownerID, includeInactive)
	if err != nil {
		return nil, unavailable(err)
	}
	return keys, nil
}

// FilterKeys is a pure, side-effect-free refinement over a key list: it keeps
// keys whose name or description contains the query, case-insensitively. An
// empty query keeps everything. The canonical list is never altered.
func FilterKeys(keys []model.APIKey, query string) []model.APIKey {
	if query == "" {
		return keys
	}
	q := strings.ToLower(query)
	out := make([]model.APIKey, 0, len(keys))
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k.Name), q) ||
			strings.Contains(strings.ToLower(k.Description), q) {
			out = append(out, k)
		}
	}
	return out
}

// Get returns a single key owned by the caller.
func (s *KeyService) Get(ctx context.Context, ownerID int64, id string) (*model.APIKey, error) {
	return s.getOwned(ctx, ownerID, id)
}

// Create validates the draft, generates a fresh secret, and persists a new
// active key with a zero request count. The returned APIKeyCreated is the
// only value that ever carries the plaintext; the store keeps just the hash
// and display prefix. Create is deliberately not idempotent.
func (s *KeyService) Create(ctx context.Context, ownerID int64, draft model.APIKeyDraft) (*model.APIKeyCreated, error) {
	if err := s.validateDraft(ctx, draft); err != nil {
		return nil, err
	}

	plaintext, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	key := &model.APIKey{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		OwnerID:            ownerID,
		Name:               strings.TrimSpace(draft.Name),
		Description:        draft.Description,
		KeyHash:            config.HashAPIKey(plaintext),
		KeyPrefix:          plaintext[:keyPrefixLen],
		Scopes:             normalizeScopes(draft.Scopes),
		RateLimitPerMinute: draft.RateLimitPerMinute,
		RateLimitPerHour:   draft.RateLimitPerHour,
		RateLimitPerDay:    draft.RateLimitPerDay,
		IsActive:           true,
		ExpiresAt:          draft.ExpiresAt,
	}

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, unavailable(err)
	}

	return &model.APIKeyCreated{APIKey: *key, PlaintextKey: plaintext}, nil
}

// Rotate reissues the key's secret while preserving its identity, scopes,
// and limits. The old secret stops authenticating the instant the hash is
// replaced; there is no grace period. The new plaintext is returned once.
func (s *KeyService) Rotate(ctx context.Context, ownerID int64, id string) (*model.APIKeyCreated, error) {
	key, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	plaintext, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	key.KeyHash = config.HashAPIKey(plaintext)
	key.KeyPrefix = plaintext[:keyPrefixLen]

	if err := s.store.UpdateAPIKey(ctx, key); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}

	return &model.APIKeyCreated{APIKey: *key, PlaintextKey: plaintext}, nil
}

// Delete removes the key and its usage history. Irreversible.
func (s *KeyService) Delete(ctx context.Context, ownerID int64, id string) error {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteAPIKey(ctx, id); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return ErrNotFound
		}
		return unavailable(err)
	}
	return nil
}

// SetActive toggles the key's active flag. Setting the current value is a
// no-op that still succeeds and returns the current record.
func (s *KeyService) SetActive(ctx context.Context, ownerID int64, id string, active bool) (*model.APIKey, error) {
	key, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if key.IsActive == active {
		return key, nil
	}

	key.IsActive = active
	if err := s.store.UpdateAPIKey(ctx, key); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return key, nil
}

// Update applies a partial patch to the key's metadata, scopes, and rate
// limits. Present fields are validated exactly like on create; absent fields
// are left unchanged. Validation completes before any write.
func (s *KeyService) Update(ctx context.Context, ownerID int64, id string, patch model.APIKeyPatch) (*model.APIKey, error) {
	key, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
	}
	if patch.Scopes != nil {
		if err := s.validateScopes(ctx, *patch.Scopes); err != nil {
			return nil, err
		}
	}
	for _, rl := range []struct {
		field string
		val   *int
	}{
		{"rate_limit_per_minute", patch.RateLimitPerMinute},
		{"rate_limit_per_hour", patch.RateLimitPerHour},
		{"rate_limit_per_day", patch.RateLimitPerDay},
	} {
		if rl.val != nil && *rl.val < 1 {
			return nil, &ValidationError{Field: rl.field, Reason: "must be a positive integer"}
		}
	}

	if patch.Name != nil {
		key.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		key.Description = *patch.Description
	}
	if patch.Scopes != nil {
		key.Scopes = normalizeScopes(*patch.Scopes)
	}
	if patch.RateLimitPerMinute != nil {
		key.RateLimitPerMinute = *patch.RateLimitPerMinute
	}
	if patch.RateLimitPerHour != nil {
		key.RateLimitPerHour = *patch.RateLimitPerHour
	}
	if patch.RateLimitPerDay != nil {
		key.RateLimitPerDay = *patch.RateLimitPerDay
	}
	if patch.ExpiresAt != nil {
		key.ExpiresAt = patch.ExpiresAt
	}

	if err := s.store.UpdateAPIKey(ctx, key); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return key, nil
}

// GetUsage returns the key's usage aggregate. Purely observational; the key
// record itself is never mutated.
func (s *KeyService) GetUsage(ctx context.Context, ownerID int64, id string) (*model.APIKeyUsageStats, error) {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	stats, err := s.store.GetUsageStats(ctx, id, usageTopN)
	if err != nil {
		return nil, unavailable(err)
	}
	return stats, nil
}

// Scopes returns the immutable scope catalog.
func (s *KeyService) Scopes(ctx context.Context) ([]model.APIScope, error) {
	scopes, err := s.store.ListScopes(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return scopes, nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (s *KeyService) getOwned(ctx context.Context, ownerID int64, id string) (*model.APIKey, error) {
	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	if key.OwnerID != ownerID {
		return nil, ErrPermission
	}
	return key, nil
}

func (s *KeyService) validateDraft(ctx context.Context, draft model.APIKeyDraft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(draft.Scopes) == 0 {
		return &ValidationError{Field: "scopes", Reason: "at least one scope is required"}
	}
	for _, rl := range []struct {
		field string
		val   int
	}{
		{"rate_limit_per_minute", draft.RateLimitPerMinute},
		{"rate_limit_per_hour", draft.RateLimitPerHour},
		{"rate_limit_per_day", draft.RateLimitPerDay},
	} {
		if rl.val < 1 {
			return &ValidationError{Field: rl.field, Reason: "must be a positive integer"}
		}
	}
	return s.validateScopes(ctx, draft.Scopes)
}

func (s *KeyService) validateScopes(ctx context.Context, scopes []string) error {
	if len(scopes) == 0 {
		return &ValidationError{Field: "scopes", Reason: "at least one scope is required"}
	}
	catalog, err := s.store.ListScopes(ctx)
	if err != nil {
		return unavailable(err)
	}
	known := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		known[c.Scope] = true
	}
	for _, scope := range scopes {
		if !known[scope] {
			return &ValidationError{Field: "scopes", Reason: fmt.Sprintf("unknown scope %q", scope)}
		}
	}
	return nil
}

// normalizeScopes deduplicates while preserving first-seen order.
func normalizeScopes(scopes []string) []string {
	seen := make(map[string]bool, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// generateSecret returns a new plaintext key: "qz_" plus 32 random bytes,
// hex encoded. The caller hashes it for storage and keeps only the prefix.
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return keyIDPrefix + hex.EncodeToString(raw), nil
}
