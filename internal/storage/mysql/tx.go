package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rdfvault/revengine/internal/storage"
)

// WithTx runs fn inside a standard database/sql transaction, retrying the
// BEGIN itself on transient connection errors (unlike the sqlite backend,
// MySQL's connection pool does true concurrent transactions, so there is
// no BEGIN IMMEDIATE serialization to emulate).
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	ctx, span := startSpan(ctx, "mysql.tx")
	defer span.End()

	var sqlTx *sql.Tx
	if err := withRetry(ctx, func() error {
		var err error
		sqlTx, err = s.db.BeginTx(ctx, nil)
		return err
	}); err != nil {
		return fmt.Errorf("mysql: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &txHandle{tx: sqlTx}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
	}
	committed = true
	return nil
}

// txHandle implements storage.Store against an open *sql.Tx.
type txHandle struct {
	tx *sql.Tx
}

var _ storage.Store = (*txHandle)(nil)

func (t *txHandle) Close() error { return nil }

func (t *txHandle) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	return fn(ctx, t)
}
