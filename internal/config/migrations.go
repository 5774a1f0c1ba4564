package config

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			is_super_admin INTEGER NOT NULL DEFAULT 0,
			last_login_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS data_sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			driver TEXT NOT NULL,
			dsn TEXT NOT NULL,
			private_key_path TEXT NOT NULL DEFAULT '',
			schema_name TEXT NOT NULL DEFAULT 'public',
			read_only INTEGER NOT NULL DEFAULT 1,
			is_active INTEGER NOT NULL DEFAULT 1,
			max_open_conns INTEGER NOT NULL DEFAULT 25,
			max_idle_conns INTEGER NOT NULL DEFAULT 5,
			conn_max_lifetime_ms INTEGER NOT NULL DEFAULT 300000,
			conn_max_idle_time_ms INTEGER NOT NULL DEFAULT 60000,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS api_scopes (
			scope TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			owner_id INTEGER NOT NULL REFERENCES admins(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			key_hash TEXT UNIQUE NOT NULL,
			key_prefix TEXT NOT NULL,
			scopes_json TEXT NOT NULL DEFAULT '[]',
			rate_limit_per_minute INTEGER NOT NULL DEFAULT 60,
			rate_limit_per_hour INTEGER NOT NULL DEFAULT 1000,
			rate_limit_per_day INTEGER NOT NULL DEFAULT 10000,
			is_active INTEGER NOT NULL DEFAULT 1,
			expires_at DATETIME,
			request_count INTEGER NOT NULL DEFAULT 0,
			last_used_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS request_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			api_key_id TEXT NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_owner ON api_keys(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_request_logs_key_created ON request_logs(api_key_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// SQLite ALTER TABLE ADD COLUMN fails if the column already
			// exists; treat "duplicate column" as a no-op so migrations stay
			// idempotent.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return s.seedScopeCatalog()
}

// scopeCatalog is the fixed set of permissions an API key can be granted,
// grouped into the categories the key-management UI renders.
var scopeCatalog = []scopeSeed{
	{"dashboards:read", "Dashboards", "View dashboards and their layouts"},
	{"dashboards:write", "Dashboards", "Create, edit, and delete dashboards"},
	{"reports:read", "Reports", "View report definitions and results"},
	{"reports:write", "Reports", "Create, edit, and delete reports"},
	{"reports:export", "Reports", "Export report results"},
	{"sources:read", "Sources", "View data source connections"},
	{"sources:schema", "Sources", "Introspect data source schemas"},
	{"workspace:read", "Workspace", "View workspace settings and members"},
	{"workspace:write", "Workspace", "Modify workspace settings"},
	{"billing:read", "Billing", "View billing and usage records"},
	{"billing:write", "Billing", "Modify billing configuration"},
}

type scopeSeed struct {
	scope       string
	category    string
	description string
}

// seedScopeCatalog inserts the scope catalog. INSERT OR IGNORE keeps reruns
// idempotent while allowing new scopes to be added in later releases.
func (s *Store) seedScopeCatalog() error {
	const q = `INSERT OR IGNORE INTO api_scopes (scope, category, description, sort_order)
		VALUES (?, ?, ?, ?)`
	for i, sc := range scopeCatalog {
		if _, err := s.db.Exec(q, sc.scope, sc.category, sc.description, i); err != nil {
			return fmt.Errorf("seed scope %q: %w", sc.scope, err)
		}
	}
	return nil
}
