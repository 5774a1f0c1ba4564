package model

import "time"

// APIKey represents a scoped credential used to authenticate requests against
// the workspace API. The raw key is never stored; only a SHA-256 hash and a
// short prefix for identification are persisted.
type APIKey struct {
	ID                 string     `json:"id" db:"id"` // UUID
	OwnerID            int64      `json:"owner_id" db:"owner_id"`
	Name               string     `json:"name" db:"name"`
	Description        string     `json:"description" db:"description"`
	KeyHash            string     `json:"-" db:"key_hash"`            // SHA-256 hash, never expose
	KeyPrefix          string     `json:"key_prefix" db:"key_prefix"` // Non-secret leading fragment for display
	Scopes             []string   `json:"scopes"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute" db:"rate_limit_per_minute"`
	RateLimitPerHour   int        `json:"rate_limit_per_hour" db:"rate_limit_per_hour"`
	RateLimitPerDay    int        `json:"rate_limit_per_day" db:"rate_limit_per_day"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RequestCount       int64      `json:"request_count" db:"request_count"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// APIKeyDraft carries the caller-supplied fields for creating a key.
type APIKeyDraft struct {
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	Scopes             []string   `json:"scopes"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	RateLimitPerHour   int        `json:"rate_limit_per_hour"`
	RateLimitPerDay    int        `json:"rate_limit_per_day"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// APIKeyPatch is a partial update for a key's metadata, scopes, and rate
// limits. Nil fields are left unchanged; present fields are validated the
// same way as on create.
type APIKeyPatch struct {
	Name               *string    `json:"name,omitempty"`
	Description        *string    `json:"description,omitempty"`
	Scopes             *[]string  `json:"scopes,omitempty"`
	RateLimitPerMinute *int       `json:"rate_limit_per_minute,omitempty"`
	RateLimitPerHour   *int       `json:"rate_limit_per_hour,omitempty"`
	RateLimitPerDay    *int       `json:"rate_limit_per_day,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// APIKeyCreated is returned exactly once, at create or rotate time. It is the
// only value that ever carries the plaintext secret; the stored record keeps
// only the hash and prefix, so a lost secret cannot be recovered.
type APIKeyCreated struct {
	APIKey
	PlaintextKey string `json:"api_key"`
}
