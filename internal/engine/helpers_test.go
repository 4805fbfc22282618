package engine_test

import (
	"context"
	"time"

	"github.com/rdfvault/revengine/internal/chain"
	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/revision"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

var farFuture = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

func keySHAOf(key string) types.KeySHA { return codec.KeySHA(key) }

// reconstructFor replays a key's chain at t and returns the reconstructed
// state along with a human-readable kind label, for test assertions.
func reconstructFor(ctx context.Context, store storage.Store, repo types.Repo, key string, t time.Time) (types.StatementSet, string, error) {
	keySHA := keySHAOf(key)
	c, err := chain.AtTS(ctx, store, repo, keySHA, t)
	if err != nil {
		return nil, "", err
	}
	state, kind, err := revision.GetRevision(ctx, store, repo, keySHA, c)
	if err != nil {
		return nil, "", err
	}
	return state, kind.String(), nil
}
