// Package engine implements §4.F: the mutation operations (append, insert,
// delete, remove) that read neighboring chain state through the chain and
// revision packages and write back through storage, preserving the chain
// invariants of §3 under in-history edits.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rdfvault/revengine/internal/chain"
	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/revision"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

// DefaultSNAPF is the snapshot-forcing factor from §4.F's worked example
// default; configurable per Engine.
const DefaultSNAPF = 10.0

// Engine is the mutation surface over a storage.Store. It holds no state
// of its own beyond the tuning constant SNAPF (§9: "SNAPF ... are
// configuration constants passed at engine construction, not process
// globals").
type Engine struct {
	Store storage.Store
	SNAPF float64
}

// New constructs an Engine with the given store and snapshot-forcing
// factor. A non-positive snapf falls back to DefaultSNAPF.
func New(store storage.Store, snapf float64) *Engine {
	if snapf <= 0 {
		snapf = DefaultSNAPF
	}
	return &Engine{Store: store, SNAPF: snapf}
}

// decideEncoding implements the snapshot-vs-delta heuristic of §4.F's
// worked example, given the chain that precedes the write. It returns
// unchanged=true when newState equals the chain's current reconstruction,
// in which case ctype/payload are zero and must not be stored.
func (e *Engine) decideEncoding(ctx context.Context, tx storage.Store, repo types.Repo, keySHA types.KeySHA, chainBefore []types.CSet, newState types.StatementSet) (ctype types.ChangesetType, payload []byte, unchanged bool, err error) {
	prevState, _, err := revision.GetRevision(ctx, tx, repo, keySHA, chainBefore)
	if err != nil {
		return 0, nil, false, err
	}
	if prevState == nil {
		prevState = types.NewStatementSet()
	}

	// The no-op short-circuit only applies when there is a live chain to
	// compare against: an empty chain or one starting with DELETE must
	// always store a fresh SNAPSHOT, even when newState is empty, so the
	// resource becomes (or stays) a live, reconstructible state rather
	// than remaining not-found/deleted.
	chainIsLive := len(chainBefore) != 0 && chainBefore[0].Type != types.Delete
	if chainIsLive && newState.Equal(prevState) {
		return 0, nil, true, nil
	}

	added := newState.Diff(prevState)
	removed := prevState.Diff(newState)

	patchRaw := codec.EncodeDelta(added, removed)
	patchCompressed, err := codec.Compress(patchRaw)
	if err != nil {
		return 0, nil, false, fmt.Errorf("engine: compress delta: %w", err)
	}

	snapRaw := codec.EncodeSnapshot(newState)
	snapCompressed, err := codec.Compress(snapRaw)
	if err != nil {
		return 0, nil, false, fmt.Errorf("engine: compress snapshot: %w", err)
	}

	forceSnapshot := !chainIsLive
	if !forceSnapshot {
		accum := len(patchCompressed)
		for _, cs := range chainBefore[1:] {
			accum += cs.Len
		}
		if len(snapCompressed) <= len(patchCompressed) {
			forceSnapshot = true
		}
		if e.SNAPF*float64(chainBefore[0].Len) <= float64(accum) {
			forceSnapshot = true
		}
	}

	if forceSnapshot {
		return types.Snapshot, snapCompressed, false, nil
	}
	return types.Delta, patchCompressed, false, nil
}

// storeChangeset writes a changeset, blob-first-then-metadata as §4.F.1
// requires, plus an optional commit message in the same transaction.
func (e *Engine) storeChangeset(ctx context.Context, tx storage.Store, repo types.Repo, keySHA types.KeySHA, t time.Time, ctype types.ChangesetType, payload []byte, message string) error {
	if ctype != types.Delete {
		if err := tx.PutBlob(ctx, types.Blob{Repo: repo, KeySHA: keySHA, Time: t, Data: payload}); err != nil {
			return fmt.Errorf("engine: put blob: %w", err)
		}
	}
	length := 0
	if ctype != types.Delete {
		length = len(payload)
	}
	if err := tx.PutCSet(ctx, types.CSet{Repo: repo, KeySHA: keySHA, Time: t, Type: ctype, Len: length}); err != nil {
		return fmt.Errorf("engine: put cset: %w", err)
	}
	if message != "" {
		if err := tx.PutCommitMessage(ctx, types.CommitMessage{Repo: repo, KeySHA: keySHA, Time: t, Message: message}); err != nil {
			return fmt.Errorf("engine: put commit message: %w", err)
		}
	}

	switch ctype {
	case types.Snapshot:
		metrics.snapshotsWritten.Add(ctx, 1, metricOpAttr("snapshot"))
	case types.Delta:
		metrics.deltasWritten.Add(ctx, 1, metricOpAttr("delta"))
	}
	if ctype != types.Delete {
		metrics.blobBytes.Record(ctx, int64(len(payload)))
	}
	return nil
}

func metricOpAttr(op string) metric.AddOption {
	return metric.WithAttributes(attribute.String("op", op))
}

// Append implements §4.F.1: save a new state at the tail of a history.
// Returns unchanged=true (no error) if newState equals the chain's current
// reconstruction.
func (e *Engine) Append(ctx context.Context, repo types.Repo, key string, newState types.StatementSet, t time.Time, message string) (unchanged bool, err error) {
	keySHA := codec.KeySHA(key)
	err = e.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		tail, txErr := chain.Tail(ctx, tx, repo, keySHA)
		if txErr != nil {
			return txErr
		}
		if len(tail) == 0 {
			if txErr := tx.EnsureKey(ctx, repo, keySHA, key); txErr != nil {
				return txErr
			}
		} else if !t.After(tail[len(tail)-1].Time) {
			return types.ErrNonMonotonic
		}

		ctype, payload, uc, txErr := e.decideEncoding(ctx, tx, repo, keySHA, tail, newState)
		if txErr != nil {
			return txErr
		}
		unchanged = uc
		if uc {
			return nil
		}
		return e.storeChangeset(ctx, tx, repo, keySHA, t, ctype, payload, message)
	})
	if err == nil && !unchanged {
		metrics.mutations.Add(ctx, 1, metricOpAttr("append"))
	}
	return unchanged, err
}

// Insert implements §4.F.2: save a new state at an arbitrary historical
// time, re-encoding (but not re-meaning) the next changeset so every other
// point in history keeps its semantics.
func (e *Engine) Insert(ctx context.Context, repo types.Repo, key string, newState types.StatementSet, t time.Time, message string) error {
	keySHA := codec.KeySHA(key)
	err := e.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		next, txErr := tx.NextAfter(ctx, repo, keySHA, t)
		if txErr != nil {
			return txErr
		}

		var nextState types.StatementSet
		var nextMessage string
		nextIsRewritable := next != nil && next.Type != types.Delete
		if nextIsRewritable {
			nextChain, txErr := chain.AtTS(ctx, tx, repo, keySHA, next.Time)
			if txErr != nil {
				return txErr
			}
			st, kind, txErr := revision.GetRevision(ctx, tx, repo, keySHA, nextChain)
			if txErr != nil {
				return txErr
			}
			if kind == revision.NotFound {
				return fmt.Errorf("engine: insert: chain at next changeset %s unexpectedly empty", next.Time)
			}
			nextState = st
			if msg, txErr := tx.GetCommitMessage(ctx, repo, keySHA, next.Time); txErr == nil {
				nextMessage = msg
			}
		}

		if existing, txErr := tx.CSetAtTime(ctx, repo, keySHA, t); txErr != nil {
			return txErr
		} else if existing != nil {
			if txErr := tx.DeleteChangeset(ctx, repo, keySHA, t); txErr != nil {
				return txErr
			}
		}

		here, txErr := chain.AtTS(ctx, tx, repo, keySHA, t)
		if txErr != nil {
			return txErr
		}
		if len(here) == 0 {
			if txErr := tx.EnsureKey(ctx, repo, keySHA, key); txErr != nil {
				return txErr
			}
		}

		ctype, payload, unchanged, txErr := e.decideEncoding(ctx, tx, repo, keySHA, here, newState)
		if txErr != nil {
			return txErr
		}
		if !unchanged {
			if txErr := e.storeChangeset(ctx, tx, repo, keySHA, t, ctype, payload, message); txErr != nil {
				return txErr
			}
		}

		if nextIsRewritable {
			if txErr := tx.DeleteChangeset(ctx, repo, keySHA, next.Time); txErr != nil {
				return txErr
			}
			rewrittenChain, txErr := chain.AtTS(ctx, tx, repo, keySHA, next.Time)
			if txErr != nil {
				return txErr
			}
			ctype2, payload2, unchanged2, txErr := e.decideEncoding(ctx, tx, repo, keySHA, rewrittenChain, nextState)
			if txErr != nil {
				return txErr
			}
			if !unchanged2 {
				if txErr := e.storeChangeset(ctx, tx, repo, keySHA, next.Time, ctype2, payload2, nextMessage); txErr != nil {
					return txErr
				}
			}
		}
		// If next was a DELETE, its semantics are independent of preceding
		// content and it is left untouched (§4.F.2 step 8).
		return nil
	})
	if err == nil {
		metrics.mutations.Add(ctx, 1, metricOpAttr("insert"))
	}
	return err
}

// Delete implements §4.F.3: tombstone a history at time t. Returns
// unchanged=true (no error) if the history was already deleted at or
// before t (double-delete is idempotent).
func (e *Engine) Delete(ctx context.Context, repo types.Repo, key string, t time.Time) (unchanged bool, err error) {
	keySHA := codec.KeySHA(key)
	err = e.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		c, txErr := chain.AtTS(ctx, tx, repo, keySHA, t)
		if txErr != nil {
			return txErr
		}
		if len(c) == 0 {
			return types.ErrNotFound
		}
		if c[len(c)-1].Type == types.Delete {
			unchanged = true
			return nil
		}

		next, txErr := tx.NextAfter(ctx, repo, keySHA, t)
		if txErr != nil {
			return txErr
		}

		var nextState types.StatementSet
		nextIsDelta := next != nil && next.Type == types.Delta
		if nextIsDelta {
			nextChain, txErr := chain.AtTS(ctx, tx, repo, keySHA, next.Time)
			if txErr != nil {
				return txErr
			}
			st, kind, txErr := revision.GetRevision(ctx, tx, repo, keySHA, nextChain)
			if txErr != nil {
				return txErr
			}
			if kind == revision.NotFound {
				return fmt.Errorf("engine: delete: chain at next changeset %s unexpectedly empty", next.Time)
			}
			nextState = st
		}
		if next != nil && next.Type == types.Delete {
			// Successive tombstones are redundant.
			if txErr := tx.DeleteChangeset(ctx, repo, keySHA, next.Time); txErr != nil {
				return txErr
			}
		}

		if existing, txErr := tx.CSetAtTime(ctx, repo, keySHA, t); txErr != nil {
			return txErr
		} else if existing != nil {
			if txErr := tx.DeleteChangeset(ctx, repo, keySHA, t); txErr != nil {
				return txErr
			}
		}

		if txErr := tx.PutCSet(ctx, types.CSet{Repo: repo, KeySHA: keySHA, Time: t, Type: types.Delete, Len: 0}); txErr != nil {
			return txErr
		}

		if nextIsDelta {
			if txErr := tx.DeleteChangeset(ctx, repo, keySHA, next.Time); txErr != nil {
				return txErr
			}
			// Invariant 3: the changeset immediately after a DELETE must be
			// a SNAPSHOT, so this re-save skips the heuristic entirely.
			raw := codec.EncodeSnapshot(nextState)
			compressed, txErr := codec.Compress(raw)
			if txErr != nil {
				return fmt.Errorf("engine: compress post-delete snapshot: %w", txErr)
			}
			if txErr := e.storeChangeset(ctx, tx, repo, keySHA, next.Time, types.Snapshot, compressed, ""); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err == nil && !unchanged {
		metrics.mutations.Add(ctx, 1, metricOpAttr("delete"))
	}
	return unchanged, err
}

// Remove implements §4.F.4: physically excise the changeset at time t,
// collapsing history as if it never happened.
func (e *Engine) Remove(ctx context.Context, repo types.Repo, key string, t time.Time) error {
	keySHA := codec.KeySHA(key)
	err := e.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		next, txErr := tx.NextAfter(ctx, repo, keySHA, t)
		if txErr != nil {
			return txErr
		}

		var nextState types.StatementSet
		var nextMessage string
		nextIsRewritable := next != nil && next.Type != types.Delete
		if nextIsRewritable {
			nextChain, txErr := chain.AtTS(ctx, tx, repo, keySHA, next.Time)
			if txErr != nil {
				return txErr
			}
			st, kind, txErr := revision.GetRevision(ctx, tx, repo, keySHA, nextChain)
			if txErr != nil {
				return txErr
			}
			if kind == revision.NotFound {
				return fmt.Errorf("engine: remove: chain at next changeset %s unexpectedly empty", next.Time)
			}
			nextState = st
			if msg, txErr := tx.GetCommitMessage(ctx, repo, keySHA, next.Time); txErr == nil {
				nextMessage = msg
			}
		}

		if txErr := tx.DeleteChangeset(ctx, repo, keySHA, t); txErr != nil {
			return txErr
		}

		if nextIsRewritable {
			if txErr := tx.DeleteChangeset(ctx, repo, keySHA, next.Time); txErr != nil {
				return txErr
			}
			rewrittenChain, txErr := chain.AtTS(ctx, tx, repo, keySHA, next.Time)
			if txErr != nil {
				return txErr
			}
			ctype, payload, unchanged, txErr := e.decideEncoding(ctx, tx, repo, keySHA, rewrittenChain, nextState)
			if txErr != nil {
				return txErr
			}
			if !unchanged {
				if txErr := e.storeChangeset(ctx, tx, repo, keySHA, next.Time, ctype, payload, nextMessage); txErr != nil {
					return txErr
				}
			}
		}
		return nil
	})
	if err == nil {
		metrics.mutations.Add(ctx, 1, metricOpAttr("remove"))
	}
	return err
}
