// Package storage defines the persistence interface for the revision
// engine's four entities (§3, §4.C) and the chain-neighbor queries
// upper layers need to locate changesets (§4.D). Concrete backends live in
// the sqlite, mysql, and memstore subpackages; backend selection goes
// through the factory subpackage.
package storage

import (
	"context"
	"time"

	"github.com/rdfvault/revengine/internal/types"
)

// KeyEntry is one row of a key listing: the resolved key string for a
// key_sha known to a repo's HMap.
type KeyEntry struct {
	KeySHA   types.KeySHA
	KeyValue string
}

// Store is the persistence boundary every engine operation is built on.
// Implementations must provide read-your-writes consistency within a
// single WithTx call (§5).
type Store interface {
	// WithTx runs fn inside a single backend transaction. If fn returns an
	// error, the transaction is rolled back and the error is returned
	// unwrapped-further. Multi-step mutations (§4.F.2-F.4) must be wrapped
	// in exactly one WithTx call so that partial completion is impossible.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// HMap (§4.B)

	// EnsureKey inserts (keySHA, keyValue) if absent, succeeds idempotently
	// if an identical mapping exists, and returns types.ErrCollision if a
	// different keyValue is already mapped to keySHA.
	EnsureKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA, keyValue string) error
	// LookupKeyValue resolves a key_sha back to its original key string.
	LookupKeyValue(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (string, error)
	// LookupKeySHA resolves a key string to its key_sha, if an HMap entry
	// for it exists in this repo.
	LookupKeySHA(ctx context.Context, repo types.Repo, keyValue string) (types.KeySHA, bool, error)

	// Chain Store (§4.C)

	// PutCSet creates (or overwrites, for the insert/remove rewrite paths)
	// the changeset metadata row at (repo, keySHA, time).
	PutCSet(ctx context.Context, cset types.CSet) error
	// PutBlob creates (or overwrites) the blob row at (repo, keySHA, time).
	PutBlob(ctx context.Context, blob types.Blob) error
	// GetCSet fetches changeset metadata by exact key.
	GetCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error)
	// GetBlob fetches the compressed payload by exact key.
	GetBlob(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) ([]byte, error)
	// DeleteChangeset removes the CSet, Blob (if any), and CommitMessage
	// (if any) at exactly (repo, keySHA, time).
	DeleteChangeset(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) error
	// DeleteAllByKey removes every changeset/blob/commit-message for a
	// (repo, keySHA) history.
	DeleteAllByKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA) error
	// DeleteAllByRepo cascades a repository removal across every CSet,
	// Blob, and CommitMessage (HMap cleanup is deferred, per §3/§9).
	DeleteAllByRepo(ctx context.Context, repo types.Repo) error

	// Chain Queries (§4.D) — all return (nil, nil) when no row matches.

	// LastCSet returns the most recent CSet by time for a history.
	LastCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error)
	// CSetAtTime returns the CSet at exactly time t, if any.
	CSetAtTime(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error)
	// NextAfter returns the CSet with the smallest time strictly greater
	// than t.
	NextAfter(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error)
	// PrevBefore returns the CSet with the largest time less than or
	// equal to t.
	PrevBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error)
	// NearestNonDeltaAtOrBefore returns the CSet with the largest time
	// less than or equal to t whose type is not Delta — i.e. base(repo,
	// key, t) as defined in §4.D.
	NearestNonDeltaAtOrBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error)
	// ListRange returns every CSet with fromInclusive <= time <=
	// toInclusive, ascending by time.
	ListRange(ctx context.Context, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error)

	// CommitMessage

	PutCommitMessage(ctx context.Context, cm types.CommitMessage) error
	GetCommitMessage(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (string, error)

	// ListKeys is the boundary listing operation (spec §1: "sketched only
	// as a boundary operation"). It returns distinct key_sha/key_value
	// pairs known to a repo's HMap, page by page.
	ListKeys(ctx context.Context, repo types.Repo, pageToken string, pageSize int) (entries []KeyEntry, nextPageToken string, err error)

	// Close releases backend resources (connections, file handles).
	Close() error
}
