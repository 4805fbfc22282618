// Package revision implements §4.E: replaying a chain (produced by the
// chain package) into the statement set it represents at its final time.
package revision

import (
	"context"
	"fmt"

	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

// Kind distinguishes the three shapes a reconstruction can take (§4.E).
type Kind int

const (
	// NotFound means the chain was empty: the resource did not exist at
	// the requested time.
	NotFound Kind = iota
	// Deleted means the chain was exactly [DELETE]: the resource is
	// tombstoned. The statement set is empty, but this is semantically
	// distinct from NotFound.
	Deleted
	// Found means the chain reconstructed to a live statement set.
	Found
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Deleted:
		return "deleted"
	case Found:
		return "found"
	default:
		return "unknown"
	}
}

// GetRevision replays chain (as produced by chain.AtTS or chain.Tail) into
// the statement set at its final time.
func GetRevision(ctx context.Context, store storage.Store, repo types.Repo, keySHA types.KeySHA, c []types.CSet) (types.StatementSet, Kind, error) {
	if len(c) == 0 {
		return nil, NotFound, nil
	}
	if c[0].Type == types.Delete {
		if len(c) != 1 {
			return nil, NotFound, fmt.Errorf("revision: malformed chain: DELETE followed by %d more changesets", len(c)-1)
		}
		return types.NewStatementSet(), Deleted, nil
	}
	if c[0].Type != types.Snapshot {
		return nil, NotFound, fmt.Errorf("revision: malformed chain: first changeset is %s, want SNAPSHOT", c[0].Type)
	}

	raw, err := store.GetBlob(ctx, repo, keySHA, c[0].Time)
	if err != nil {
		return nil, NotFound, fmt.Errorf("revision: fetch snapshot blob at %s: %w", c[0].Time, err)
	}
	decompressed, err := codec.Decompress(raw)
	if err != nil {
		return nil, NotFound, fmt.Errorf("revision: decompress snapshot at %s: %w", c[0].Time, err)
	}
	state := codec.DecodeSnapshot(decompressed)

	for _, cs := range c[1:] {
		if cs.Type != types.Delta {
			return nil, NotFound, fmt.Errorf("revision: malformed chain: changeset at %s is %s, want DELTA", cs.Time, cs.Type)
		}
		raw, err := store.GetBlob(ctx, repo, keySHA, cs.Time)
		if err != nil {
			return nil, NotFound, fmt.Errorf("revision: fetch delta blob at %s: %w", cs.Time, err)
		}
		decompressed, err := codec.Decompress(raw)
		if err != nil {
			return nil, NotFound, fmt.Errorf("revision: decompress delta at %s: %w", cs.Time, err)
		}
		added, removed := codec.DecodeDelta(decompressed)
		codec.ApplyDelta(state, added, removed)
	}

	return state, Found, nil
}
