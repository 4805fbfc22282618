// Package mysql is a storage.Store backed by go-sql-driver/mysql, grounded
// on the teacher's Dolt server-mode path (internal/storage/dolt's
// openServerConnection/buildServerDSN): a standard connection pool plus
// transient-error retry with exponential backoff, since unlike the
// embedded SQLite path there is no single-writer lock to serialize on.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rdfvault/revengine/internal/storage"
)

// Store is a storage.Store implementation over a MySQL-compatible server
// (MySQL itself, or a Dolt sql-server in MySQL-protocol mode, per the
// teacher's server-mode federation path).
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn (a go-sql-driver/mysql DSN, e.g.
// "user:pass@tcp(host:3306)/dbname?parseTime=true") and runs pending
// migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if !strings.Contains(dsn, "parseTime=true") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("mysql: close: %w", err)
	}
	return nil
}

var (
	tracer = otel.Tracer("github.com/rdfvault/revengine/storage/mysql")

	mysqlMetrics struct {
		retryCount metric.Int64Counter
	}
)

func init() {
	m := otel.Meter("github.com/rdfvault/revengine/storage/mysql")
	mysqlMetrics.retryCount, _ = m.Int64Counter("revengine.mysql.retry_count",
		metric.WithDescription("Number of transaction retries due to transient connection errors"),
		metric.WithUnit("{retry}"),
	)
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// isRetryableError reports transient connection errors worth retrying,
// grounded on the teacher's isRetryableError (internal/storage/dolt/store.go):
// pool staleness and brief network blips, not persistent failures.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, substr := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"lost connection",
		"gone away",
		"i/o timeout",
	} {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

const retryMaxElapsed = 30 * time.Second

func newRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// withRetry runs op, retrying transient connection errors with exponential
// backoff (§5: single-writer-per-repo is the engine's contract, but a
// shared MySQL server can still drop idle connections out from under a
// caller; that is a transport fault, not a serialization conflict).
func withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err != nil {
			if isRetryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newRetryBackoff(), ctx))
	if attempts > 1 {
		mysqlMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}
