package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one numbered schema step, applied in order and tracked in
// schema_migrations — the teacher's numbered-file convention
// (migrations/002_external_ref_column.go, .../015_blocked_issues_cache.go,
// ...) collapsed into a single slice since this schema is far smaller.
type migration struct {
	id   int
	name string
	fn   func(ctx context.Context, db *sql.DB) error
}

var migrations = []migration{
	{1, "initial_schema", migrateInitialSchema},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[id] = true
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close schema_migrations rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.id] {
			continue
		}
		if err := m.fn(ctx, s.db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.id, m.name, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (id, name) VALUES (?, ?)`, m.id, m.name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.id, err)
		}
	}
	return nil
}

func migrateInitialSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hmap (
			repo_owner TEXT NOT NULL,
			repo_name  TEXT NOT NULL,
			key_sha    TEXT NOT NULL,
			key_value  TEXT NOT NULL,
			PRIMARY KEY (repo_owner, repo_name, key_sha)
		)`,
		`CREATE TABLE IF NOT EXISTS csets (
			repo_owner TEXT NOT NULL,
			repo_name  TEXT NOT NULL,
			key_sha    TEXT NOT NULL,
			time_ms    INTEGER NOT NULL,
			type       TEXT NOT NULL,
			len        INTEGER NOT NULL,
			PRIMARY KEY (repo_owner, repo_name, key_sha, time_ms)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_csets_key_time ON csets (repo_owner, repo_name, key_sha, time_ms)`,
		`CREATE TABLE IF NOT EXISTS blobs (
			repo_owner TEXT NOT NULL,
			repo_name  TEXT NOT NULL,
			key_sha    TEXT NOT NULL,
			time_ms    INTEGER NOT NULL,
			data       BLOB NOT NULL,
			PRIMARY KEY (repo_owner, repo_name, key_sha, time_ms)
		)`,
		`CREATE TABLE IF NOT EXISTS commit_messages (
			repo_owner TEXT NOT NULL,
			repo_name  TEXT NOT NULL,
			key_sha    TEXT NOT NULL,
			time_ms    INTEGER NOT NULL,
			message    TEXT NOT NULL,
			PRIMARY KEY (repo_owner, repo_name, key_sha, time_ms)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
