// Package sqlite is a storage.Store backed by ncruces/go-sqlite3, grounded
// on the teacher's internal/storage/sqlite package: a dedicated connection
// per write transaction, BEGIN IMMEDIATE with exponential-backoff retry on
// SQLITE_BUSY, WAL journaling, and numbered Go migrations tracked in a
// schema_migrations table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver" // registers "sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"  // statically links the sqlite3 library
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rdfvault/revengine/internal/storage"
)

// Store is a storage.Store implementation over a single SQLite database
// file, one row per (repo, key_sha, time) as required by §3.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if absent) a SQLite database at path, applies WAL
// journaling and a busy_timeout pragma, and runs pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(10000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite serializes writers regardless of connection count; a single
	// connection avoids BEGIN IMMEDIATE being issued on a pooled connection
	// other statements are mid-flight on (the teacher's migration comment:
	// "avoid deadlock with MaxOpenConns(1)").
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}

var (
	tracer = otel.Tracer("github.com/rdfvault/revengine/storage/sqlite")

	sqliteMetrics struct {
		retryCount metric.Int64Counter
	}
)

func init() {
	m := otel.Meter("github.com/rdfvault/revengine/storage/sqlite")
	sqliteMetrics.retryCount, _ = m.Int64Counter("revengine.sqlite.begin_retry_count",
		metric.WithDescription("Number of BEGIN IMMEDIATE retries due to SQLITE_BUSY"),
		metric.WithUnit("{retry}"),
	)
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
