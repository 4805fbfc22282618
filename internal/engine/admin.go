package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

// SetCommitMessage attaches or replaces the commit message on an existing
// changeset, without touching its content. This is the supplemented
// read/write path for the original's commit-message handling that
// spec.md's distillation left implicit in the CommitMessage entity.
func (e *Engine) SetCommitMessage(ctx context.Context, repo types.Repo, key string, t time.Time, message string) error {
	keySHA := codec.KeySHA(key)
	return e.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		cs, err := tx.CSetAtTime(ctx, repo, keySHA, t)
		if err != nil {
			return err
		}
		if cs == nil {
			return types.ErrNotFound
		}
		return tx.PutCommitMessage(ctx, types.CommitMessage{Repo: repo, KeySHA: keySHA, Time: t, Message: message})
	})
}

// CommitMessage returns the message attached to the changeset at t, if any.
func (e *Engine) CommitMessage(ctx context.Context, repo types.Repo, key string, t time.Time) (string, error) {
	keySHA := codec.KeySHA(key)
	return e.Store.GetCommitMessage(ctx, repo, keySHA, t)
}

// RemoveRepo cascades the removal of a repository across every changeset,
// blob, and commit message it owns. HMap rows are left behind deliberately
// (§9's "HMap rows are never garbage collected" extends to repo removal:
// key_sha remains a stable identifier even for a gone repo's former keys).
func (e *Engine) RemoveRepo(ctx context.Context, repo types.Repo) error {
	return e.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		return tx.DeleteAllByRepo(ctx, repo)
	})
}

// ListKeys is a pass-through to the store's HMap listing, the boundary
// operation spec §1 sketches without specifying an implementation.
func (e *Engine) ListKeys(ctx context.Context, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	return e.Store.ListKeys(ctx, repo, pageToken, pageSize)
}

// ChainViolation describes one invariant breach found by VerifyChain.
type ChainViolation struct {
	KeySHA types.KeySHA
	Time   time.Time
	Reason string
}

// VerifyChain walks every history for a key and checks the invariants of
// §3 and §4.D: times strictly increasing, the first changeset is a
// SNAPSHOT or DELETE, a DELETE is always followed by a SNAPSHOT, and every
// DELTA is preceded (ignoring other DELTAs) by a SNAPSHOT. It is a
// read-only integrity checker, grounded on the original's chain-consistency
// assertions that spec.md's Design Notes describe but do not formalize.
func (e *Engine) VerifyChain(ctx context.Context, repo types.Repo, key string) ([]ChainViolation, error) {
	keySHA := codec.KeySHA(key)
	// The full history, not just the live tail's epoch: a key's history can
	// contain several DELETE/SNAPSHOT epochs and every one of them is in
	// scope for invariant checking.
	farFuture := time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)
	c, err := e.Store.ListRange(ctx, repo, keySHA, time.Time{}, farFuture)
	if err != nil {
		return nil, fmt.Errorf("engine: verify chain: %w", err)
	}

	var violations []ChainViolation
	var prevTime time.Time
	havePrev := false

	for i, cs := range c {
		if havePrev && !cs.Time.After(prevTime) {
			violations = append(violations, ChainViolation{
				KeySHA: keySHA, Time: cs.Time,
				Reason: "time does not strictly increase relative to previous changeset",
			})
		}
		prevTime = cs.Time
		havePrev = true

		switch {
		case i == 0:
			if cs.Type == types.Delta {
				violations = append(violations, ChainViolation{
					KeySHA: keySHA, Time: cs.Time,
					Reason: "first changeset in chain is a DELTA",
				})
			}
		case c[i-1].Type == types.Delete:
			if cs.Type != types.Snapshot {
				violations = append(violations, ChainViolation{
					KeySHA: keySHA, Time: cs.Time,
					Reason: "changeset following a DELETE is not a SNAPSHOT",
				})
			}
		}

		if cs.Type != types.Delete {
			if _, err := e.Store.GetBlob(ctx, repo, keySHA, cs.Time); err != nil {
				violations = append(violations, ChainViolation{
					KeySHA: keySHA, Time: cs.Time,
					Reason: fmt.Sprintf("missing blob for non-DELETE changeset: %v", err),
				})
			}
		}
	}

	return violations, nil
}
