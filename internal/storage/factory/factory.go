// Package factory selects and opens a storage.Store by backend name,
// grounded on the teacher's internal/storage/factory package: a registry
// of backend constructors keyed by name, with New/NewFromConfig entry
// points.
package factory

import (
	"context"
	"fmt"

	"github.com/rdfvault/revengine/internal/config"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/storage/memstore"
	"github.com/rdfvault/revengine/internal/storage/mysql"
	"github.com/rdfvault/revengine/internal/storage/sqlite"
)

// New opens a storage.Store for the given backend name and DSN. dsn is a
// filesystem path for sqlite, a go-sql-driver/mysql DSN for mysql, and
// ignored for memory.
func New(ctx context.Context, backend, dsn string) (storage.Store, error) {
	switch backend {
	case config.BackendSQLite, "":
		if dsn == "" {
			return nil, fmt.Errorf("factory: sqlite backend requires a database path")
		}
		return sqlite.Open(ctx, dsn)
	case config.BackendMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("factory: mysql backend requires a DSN")
		}
		return mysql.Open(ctx, dsn)
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("factory: unknown storage backend %q (supported: %s, %s, %s)",
			backend, config.BackendSQLite, config.BackendMySQL, config.BackendMemory)
	}
}

// NewFromConfig opens the backend cfg names, using cfg.DSN as the
// connection string.
func NewFromConfig(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	return New(ctx, cfg.Backend, cfg.DSN)
}
