// Package chain implements the chain-location queries of §4.D: finding the
// base time for a target timestamp, the ordered chain of changesets that
// reconstructs a memento, and the live chain tail.
package chain

import (
	"context"
	"time"

	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

// AtTS returns the ordered sequence of CSets with base(repo,key,t) <= time
// <= t, ascending by time (§4.D). Possible shapes: empty; [DELETE];
// [SNAPSHOT, DELTA*].
func AtTS(ctx context.Context, store storage.Store, repo types.Repo, keySHA types.KeySHA, t time.Time) ([]types.CSet, error) {
	base, err := store.NearestNonDeltaAtOrBefore(ctx, repo, keySHA, t)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}
	return store.ListRange(ctx, repo, keySHA, base.Time, t)
}

// Tail returns the live chain: the same shape as AtTS, but with an
// effectively infinite upper bound — the chain from the last non-delta
// onward, through the current tail.
func Tail(ctx context.Context, store storage.Store, repo types.Repo, keySHA types.KeySHA) ([]types.CSet, error) {
	last, err := store.LastCSet(ctx, repo, keySHA)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}
	return AtTS(ctx, store, repo, keySHA, last.Time)
}
