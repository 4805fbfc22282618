package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rdfvault/revengine/internal/storage"
)

const beginImmediateMaxElapsed = 10 * time.Second

// isBusyError reports whether err is SQLITE_BUSY or SQLITE_LOCKED, the
// transient conditions busy_timeout alone does not always absorb under
// contention (the teacher's queries.go: "Retries with exponential backoff
// handle cases where busy_timeout alone is insufficient").
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") || strings.Contains(s, "sqlite_busy") || strings.Contains(s, "sqlite_locked")
}

// beginImmediateWithRetry issues BEGIN IMMEDIATE on conn, retrying with
// exponential backoff while the database reports itself busy.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = beginImmediateMaxElapsed

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err != nil {
			if isBusyError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))

	if attempts > 1 {
		sqliteMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	if err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	return nil
}

// WithTx acquires a dedicated connection (so the raw BEGIN IMMEDIATE/COMMIT
// statements land on the same connection as every statement fn issues —
// database/sql's pool would otherwise hand out different connections), runs
// fn, and commits or rolls back depending on its outcome. (§5: "each
// mutation is wrapped in exactly one backend transaction".)
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	ctx, span := startSpan(ctx, "sqlite.tx")
	defer span.End()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn); err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	tx := &txHandle{conn: conn}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	committed = true
	return nil
}

// txHandle implements storage.Store against a single already-transacted
// connection, for use inside an already-open WithTx call.
type txHandle struct {
	conn *sql.Conn
}

var _ storage.Store = (*txHandle)(nil)

func (t *txHandle) Close() error { return nil }

func (t *txHandle) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	// Nested transactions flatten onto the outer one: SQLite has no true
	// nested transactions and the outer WithTx already owns commit/rollback.
	return fn(ctx, t)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
