// Package deltaexport implements §4.G: reconstructing the statement-level
// difference a memento introduced, or the difference between two
// mementos, without requiring the caller to walk chains or decode blobs
// themselves.
package deltaexport

import (
	"context"
	"fmt"
	"time"

	"github.com/rdfvault/revengine/internal/chain"
	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/revision"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

// priorInstant steps back by the smallest representable decrement (§9's
// "T - 1s" rule, adjusted to this implementation's millisecond time
// resolution).
func priorInstant(t time.Time) time.Time {
	return t.Add(-time.Millisecond)
}

// OfMemento returns the statements a memento added and removed relative to
// its immediate predecessor (§4.G's delta_of_memento). Both sets are empty
// if key has no history at or before t. The returned sets are bare
// statement sets: callers that need the "A "/"D "" line convention apply
// it themselves, per §9's Open Question resolution.
func OfMemento(ctx context.Context, store storage.Store, repo types.Repo, key string, t time.Time) (added, removed types.StatementSet, err error) {
	keySHA := codec.KeySHA(key)

	c, err := chain.AtTS(ctx, store, repo, keySHA, t)
	if err != nil {
		return nil, nil, fmt.Errorf("deltaexport: of memento: %w", err)
	}
	if len(c) == 0 {
		return types.NewStatementSet(), types.NewStatementSet(), nil
	}

	last := c[len(c)-1]

	switch last.Type {
	case types.Delete:
		prior, err := reconstructAt(ctx, store, repo, keySHA, priorInstant(last.Time))
		if err != nil {
			return nil, nil, err
		}
		return types.NewStatementSet(), prior, nil

	case types.Delta:
		raw, err := store.GetBlob(ctx, repo, keySHA, last.Time)
		if err != nil {
			return nil, nil, fmt.Errorf("deltaexport: of memento: fetch delta blob: %w", err)
		}
		decompressed, err := codec.Decompress(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("deltaexport: of memento: decompress delta blob: %w", err)
		}
		a, d := codec.DecodeDelta(decompressed)
		return a, d, nil

	default: // Snapshot
		current, _, err := revision.GetRevision(ctx, store, repo, keySHA, c)
		if err != nil {
			return nil, nil, fmt.Errorf("deltaexport: of memento: reconstruct current: %w", err)
		}
		prior, err := reconstructAt(ctx, store, repo, keySHA, priorInstant(last.Time))
		if err != nil {
			return nil, nil, err
		}
		if prior == nil {
			return current.Clone(), types.NewStatementSet(), nil
		}
		return current.Diff(prior), prior.Diff(current), nil
	}
}

// BetweenMementos returns the line-prefixed delta (§4.G's
// delta_between_mementos) from the memento at tA relative to the memento
// at tB: "A " lines are statements present at tA but absent at tB, "D "
// lines the reverse (tA minus tB, tB minus tA). Returns
// types.ErrInvalidRange if either memento does not exist (no history at or
// before that time).
func BetweenMementos(ctx context.Context, store storage.Store, repo types.Repo, key string, tA, tB time.Time) (lines []string, err error) {
	keySHA := codec.KeySHA(key)

	sa, err := reconstructAt(ctx, store, repo, keySHA, tA)
	if err != nil {
		return nil, err
	}
	sb, err := reconstructAt(ctx, store, repo, keySHA, tB)
	if err != nil {
		return nil, err
	}
	if sa == nil || sb == nil {
		return nil, types.ErrInvalidRange
	}

	added := sa.Diff(sb)
	removed := sb.Diff(sa)
	return codec.PrefixedLines(added, removed), nil
}

// reconstructAt is the shared memento-lookup path: nil with no error means
// no history exists at or before t (a DELETE reconstructs to the empty
// set, not nil — the caller distinguishes "deleted" from "never existed").
func reconstructAt(ctx context.Context, store storage.Store, repo types.Repo, keySHA types.KeySHA, t time.Time) (types.StatementSet, error) {
	c, err := chain.AtTS(ctx, store, repo, keySHA, t)
	if err != nil {
		return nil, fmt.Errorf("deltaexport: reconstruct at %s: %w", t, err)
	}
	if len(c) == 0 {
		return nil, nil
	}
	st, kind, err := revision.GetRevision(ctx, store, repo, keySHA, c)
	if err != nil {
		return nil, fmt.Errorf("deltaexport: reconstruct at %s: %w", t, err)
	}
	if kind == revision.NotFound {
		return nil, nil
	}
	return st, nil
}
