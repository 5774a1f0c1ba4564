package config

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/quartzbi/quartz/internal/model"
)

// Store manages Quartz's internal state backed by SQLite. It persists admin
// accounts, data source connections, the API scope catalog, API keys, their
// request logs, and workspace settings.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new config store. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "quartz.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open config database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate config database: %w", err)
	}
	return s, nil
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Admin CRUD
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new admin account. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admins
		(email, password_hash, name, is_active, is_super_admin, created_at, updated_at)
		VALUES
		(:email, :password_hash, :name, :is_active, :is_super_admin, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, admin)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get admin id: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdminByEmail returns an admin by email address.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE email = ?", email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. Used for
// first-run detection to trigger the initial setup flow.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE admins SET last_login_at = ?, updated_at = ? WHERE id = ?", now, now, id)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Data source CRUD
// ---------------------------------------------------------------------------

// sourceRow is a flat struct that maps 1:1 to the data_sources table columns.
// model.DataSource has a nested Pool struct that doesn't map directly.
type sourceRow struct {
	ID                int64     `db:"id"`
	Name              string    `db:"name"`
	Label             string    `db:"label"`
	Driver            string    `db:"driver"`
	DSN               string    `db:"dsn"`
	PrivateKeyPath    string    `db:"private_key_path"`
	SchemaName        string    `db:"schema_name"`
	ReadOnly          bool      `db:"read_only"`
	IsActive          bool      `db:"is_active"`
	MaxOpenConns      int       `db:"max_open_conns"`
	MaxIdleConns      int       `db:"max_idle_conns"`
	ConnMaxLifetimeMs int64     `db:"conn_max_lifetime_ms"`
	ConnMaxIdleTimeMs int64     `db:"conn_max_idle_time_ms"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func sourceRowFromModel(src *model.DataSource) sourceRow {
	return sourceRow{
		ID:                src.ID,
		Name:              src.Name,
		Label:             src.Label,
		Driver:            src.Driver,
		DSN:               src.DSN,
		PrivateKeyPath:    src.PrivateKeyPath,
		SchemaName:        src.Schema,
		ReadOnly:          src.ReadOnly,
		IsActive:          src.IsActive,
		MaxOpenConns:      src.Pool.MaxOpenConns,
		MaxIdleConns:      src.Pool.MaxIdleConns,
		ConnMaxLifetimeMs: src.Pool.ConnMaxLifetime.Milliseconds(),
		ConnMaxIdleTimeMs: src.Pool.ConnMaxIdleTime.Milliseconds(),
		CreatedAt:         src.CreatedAt,
		UpdatedAt:         src.UpdatedAt,
	}
}

func (r sourceRow) toModel() model.DataSource {
	return model.DataSource{
		ID:             r.ID,
		Name:           r.Name,
		Label:          r.Label,
		Driver:         r.Driver,
		DSN:            r.DSN,
		PrivateKeyPath: r.PrivateKeyPath,
		Schema:         r.SchemaName,
		ReadOnly:       r.ReadOnly,
		IsActive:       r.IsActive,
		Pool: model.PoolConfig{
			MaxOpenConns:    r.MaxOpenConns,
			MaxIdleConns:    r.MaxIdleConns,
			ConnMaxLifetime: time.Duration(r.ConnMaxLifetimeMs) * time.Millisecond,
			ConnMaxIdleTime: time.Duration(r.ConnMaxIdleTimeMs) * time.Millisecond,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// CreateSource inserts a new data source. The ID, CreatedAt, and UpdatedAt
// fields on src are populated after a successful insert.
func (s *Store) CreateSource(ctx context.Context, src *model.DataSource) error {
	now := time.Now().UTC()
	src.CreatedAt = now
	src.UpdatedAt = now

	row := sourceRowFromModel(src)

	const q = `INSERT INTO data_sources
		(name, label, driver, dsn, private_key_path, schema_name, read_only, is_active,
		 max_open_conns, max_idle_conns, conn_max_lifetime_ms, conn_max_idle_time_ms,
		 created_at, updated_at)
		VALUES
		(:name, :label, :driver, :dsn, :private_key_path, :schema_name, :read_only, :is_active,
		 :max_open_conns, :max_idle_conns, :conn_max_lifetime_ms, :conn_max_idle_time_ms,
		 :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("insert data source: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get data source id: %w", err)
	}
	src.ID = id
	return nil
}

// GetSourceByName returns a data source by its unique name.
func (s *Store) GetSourceByName(ctx context.Context, name string) (*model.DataSource, error) {
	var row sourceRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM data_sources WHERE name = ?", name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get data source by name: %w", err)
	}
	src := row.toModel()
	return &src, nil
}

// ListSources returns all configured data sources.
func (s *Store) ListSources(ctx context.Context) ([]model.DataSource, error) {
	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM data_sources ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}

	sources := make([]model.DataSource, len(rows))
	for i, r := range rows {
		sources[i] = r.toModel()
	}
	return sources, nil
}

// UpdateSource updates an existing data source. The UpdatedAt field on src is
// refreshed automatically.
func (s *Store) UpdateSource(ctx context.Context, src *model.DataSource) error {
	src.UpdatedAt = time.Now().UTC()
	row := sourceRowFromModel(src)

	const q = `UPDATE data_sources SET
		name = :name, label = :label, driver = :driver, dsn = :dsn, private_key_path = :private_key_path,
		schema_name = :schema_name, read_only = :read_only, is_active = :is_active,
		max_open_conns = :max_open_conns, max_idle_conns = :max_idle_conns,
		conn_max_lifetime_ms = :conn_max_lifetime_ms, conn_max_idle_time_ms = :conn_max_idle_time_ms,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update data source: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update data source rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSource removes a data source by ID.
func (s *Store) DeleteSource(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM data_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete data source: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete data source rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scope catalog
// ---------------------------------------------------------------------------

// ListScopes returns the full scope catalog in its seeded order. The catalog
// is immutable at runtime; there are no write methods.
func (s *Store) ListScopes(ctx context.Context) ([]model.APIScope, error) {
	var scopes []model.APIScope
	const q = "SELECT scope, category, description FROM api_scopes ORDER BY sort_order"
	if err := s.db.SelectContext(ctx, &scopes, q); err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	return scopes, nil
}

// ---------------------------------------------------------------------------
// API key CRUD
// ---------------------------------------------------------------------------

// apiKeyRow is a flat struct that maps 1:1 to the api_keys table. The
// scopes_json column stores the JSON-encoded scope list.
type apiKeyRow struct {
	ID                 string     `db:"id"`
	OwnerID            int64      `db:"owner_id"`
	Name               string     `db:"name"`
	Description        string     `db:"description"`
	KeyHash            string     `db:"key_hash"`
	KeyPrefix          string     `db:"key_prefix"`
	ScopesJSON         string     `db:"scopes_json"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute"`
	RateLimitPerHour   int        `db:"rate_limit_per_hour"`
	RateLimitPerDay    int        `db:"rate_limit_per_day"`
	IsActive           bool       `db:"is_active"`
	ExpiresAt          *time.Time `db:"expires_at"`
	RequestCount       int64      `db:"request_count"`
	LastUsedAt         *time.Time `db:"last_used_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func apiKeyRowFromModel(k *model.APIKey) (apiKeyRow, error) {
	scopes := k.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return apiKeyRow{}, fmt.Errorf("marshal scopes: %w", err)
	}
	return apiKeyRow{
		ID:                 k.ID,
		OwnerID:            k.OwnerID,
		Name:               k.Name,
		Description:        k.Description,
		KeyHash:            k.KeyHash,
		KeyPrefix:          k.KeyPrefix,
		ScopesJSON:         string(scopesJSON),
		RateLimitPerMinute: k.RateLimitPerMinute,
		RateLimitPerHour:   k.RateLimitPerHour,
		RateLimitPerDay:    k.RateLimitPerDay,
		IsActive:           k.IsActive,
		ExpiresAt:          k.ExpiresAt,
		RequestCount:       k.RequestCount,
		LastUsedAt:         k.LastUsedAt,
		CreatedAt:          k.CreatedAt,
		UpdatedAt:          k.UpdatedAt,
	}, nil
}

func (r apiKeyRow) toModel() (model.APIKey, error) {
	var scopes []string
	if r.ScopesJSON != "" && r.ScopesJSON != "[]" {
		if err := json.Unmarshal([]byte(r.ScopesJSON), &scopes); err != nil {
			return model.APIKey{}, fmt.Errorf("unmarshal scopes: %w", err)
		}
	}
	if scopes == nil {
		scopes = []string{}
	}
	return model.APIKey{
		ID:                 r.ID,
		OwnerID:            r.OwnerID,
		Name:               r.Name,
		Description:        r.Description,
		KeyHash:            r.KeyHash,
		KeyPrefix:          r.KeyPrefix,
		Scopes:             scopes,
		RateLimitPerMinute: r.RateLimitPerMinute,
		RateLimitPerHour:   r.RateLimitPerHour,
		RateLimitPerDay:    r.RateLimitPerDay,
		IsActive:           r.IsActive,
		ExpiresAt:          r.ExpiresAt,
		RequestCount:       r.RequestCount,
		LastUsedAt:         r.LastUsedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

// CreateAPIKey inserts a new API key record. The ID and key_hash must already
// be set (use HashAPIKey). CreatedAt and UpdatedAt are populated here.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	now := time.Now().UTC()
	key.CreatedAt = now
	key.UpdatedAt = now

	row, err := apiKeyRowFromModel(key)
	if err != nil {
		return err
	}

	const q = `INSERT INTO api_keys
		(id, owner_id, name, description, key_hash, key_prefix, scopes_json,
		 rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
		 is_active, expires_at, request_count, last_used_at, created_at, updated_at)
		VALUES
		(:id, :owner_id, :name, :description, :key_hash, :key_prefix, :scopes_json,
		 :rate_limit_per_minute, :rate_limit_per_hour, :rate_limit_per_day,
		 :is_active, :expires_at, :request_count, :last_used_at, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKey returns an API key by ID.
func (s *Store) GetAPIKey(ctx context.Context, id string) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM api_keys WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	key, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetAPIKeyByHash looks up an API key by its SHA-256 hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM api_keys WHERE key_hash = ?", hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	key, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListAPIKeys returns an owner's API keys, newest first. The (created_at, id)
// order is stable across repeated calls absent mutation.
func (s *Store) ListAPIKeys(ctx context.Context, ownerID int64, includeInactive bool) ([]model.APIKey, error) {
	q := "SELECT * FROM api_keys WHERE owner_id = ?"
	if !includeInactive {
		q += " AND is_active = 1"
	}
	q += " ORDER BY created_at DESC, id"

	var rows []apiKeyRow
	if err := s.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	keys := make([]model.APIKey, 0, len(rows))
	for _, r := range rows {
		k, err := r.toModel()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// UpdateAPIKey persists all mutable fields of an API key, including a
// replaced key_hash/key_prefix after rotation. UpdatedAt is refreshed.
func (s *Store) UpdateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.UpdatedAt = time.Now().UTC()

	row, err := apiKeyRowFromModel(key)
	if err != nil {
		return err
	}

	const q = `UPDATE api_keys SET
		name = :name, description = :description, key_hash = :key_hash, key_prefix = :key_prefix,
		scopes_json = :scopes_json, rate_limit_per_minute = :rate_limit_per_minute,
		rate_limit_per_hour = :rate_limit_per_hour, rate_limit_per_day = :rate_limit_per_day,
		is_active = :is_active, expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey removes an API key by ID. Request logs are cascade deleted,
// so the key's usage history is unreachable afterwards.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAPIKeyUsage advances the denormalized usage counters on a key. Both
// request_count and last_used_at only ever move forward.
func (s *Store) TouchAPIKeyUsage(ctx context.Context, id string, requests int64, at time.Time) error {
	const q = `UPDATE api_keys SET
		request_count = request_count + ?,
		last_used_at = CASE WHEN last_used_at IS NULL OR last_used_at < ? THEN ? ELSE last_used_at END
		WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, requests, at, at, id); err != nil {
		return fmt.Errorf("touch api key usage: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Request logs and usage aggregation
// ---------------------------------------------------------------------------

// InsertRequestLogs writes a batch of request log rows in one transaction.
func (s *Store) InsertRequestLogs(ctx context.Context, logs []model.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `INSERT INTO request_logs
		(api_key_id, method, path, status_code, response_time_ms, created_at)
		VALUES (:api_key_id, :method, :path, :status_code, :response_time_ms, :created_at)`

	for _, l := range logs {
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, q, l); err != nil {
			return fmt.Errorf("insert request log: %w", err)
		}
	}

	return tx.Commit()
}

// GetUsageStats aggregates a key's request logs into the read-only usage
// view. topN bounds the most-used-endpoints ranking. A key that has never
// been used yields zero counts, an empty ranking, and a nil error rate.
func (s *Store) GetUsageStats(ctx context.Context, keyID string, topN int) (*model.APIKeyUsageStats, error) {
	now := time.Now().UTC()
	stats := &model.APIKeyUsageStats{MostUsedEndpoints: []model.EndpointStat{}}

	var agg struct {
		Total  int64           `db:"total"`
		AvgMs  sql.NullFloat64 `db:"avg_ms"`
		Errors int64           `db:"errors"`
	}
	// SUM over zero rows is NULL, not 0. COALESCE so a never-used key scans
	// cleanly instead of failing the whole aggregation.
	const aggQ = `SELECT
		COUNT(*) AS total,
		AVG(response_time_ms) AS avg_ms,
		COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) AS errors
		FROM request_logs WHERE api_key_id = ?`
	if err := s.db.GetContext(ctx, &agg, aggQ, keyID); err != nil {
		return nil, fmt.Errorf("aggregate request logs: %w", err)
	}

	stats.TotalRequests = agg.Total
	if agg.AvgMs.Valid {
		stats.AvgResponseTimeMs = agg.AvgMs.Float64
	}
	if agg.Total > 0 {
		rate := float64(agg.Errors) / float64(agg.Total)
		stats.ErrorRate = &rate
	}

	const windowQ = `SELECT COUNT(*) FROM request_logs WHERE api_key_id = ? AND created_at >= ?`
	windows := []struct {
		since time.Time
		dst   *int64
	}{
		{now.Add(-24 * time.Hour), &stats.RequestsLast24h},
		{now.Add(-7 * 24 * time.Hour), &stats.RequestsLast7d},
		{now.Add(-30 * 24 * time.Hour), &stats.RequestsLast30d},
	}
	for _, w := range windows {
		if err := s.db.GetContext(ctx, w.dst, windowQ, keyID, w.since); err != nil {
			return nil, fmt.Errorf("count request window: %w", err)
		}
	}

	if topN <= 0 {
		topN = 10
	}
	var endpoints []struct {
		Method string `db:"method"`
		Path   string `db:"path"`
		Count  int64  `db:"count"`
	}
	const topQ = `SELECT method, path, COUNT(*) AS count
		FROM request_logs WHERE api_key_id = ?
		GROUP BY method, path
		ORDER BY count DESC, method, path
		LIMIT ?`
	if err := s.db.SelectContext(ctx, &endpoints, topQ, keyID, topN); err != nil {
		return nil, fmt.Errorf("rank endpoints: %w", err)
	}
	for _, e := range endpoints {
		stats.MostUsedEndpoints = append(stats.MostUsedEndpoints, model.EndpointStat{
			Method:   e.Method,
			Endpoint: e.Path,
			Count:    e.Count,
		})
	}

	return stats, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value stored under a settings key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting upserts a settings key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Utility
// ---------------------------------------------------------------------------

// HashAPIKey returns the hex-encoded SHA-256 hash of a raw API key string.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
