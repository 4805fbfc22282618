package chain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/chain"
	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/engine"
	"github.com/rdfvault/revengine/internal/storage/memstore"
	"github.com/rdfvault/revengine/internal/types"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func TestAtTSEmptyHistory(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	repo := types.Repo{Owner: "acme", Name: "graph"}

	c, err := chain.AtTS(ctx, store, repo, codec.KeySHA("nope"), at(t, "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestAtTSAndTailShapes(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, 2.0)
	ctx := context.Background()
	repo := types.Repo{Owner: "acme", Name: "graph"}
	keySHA := codec.KeySHA("key1")

	base := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", base, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	next := base.Clone()
	next.Add("<d> <e> <f> .")
	_, err = eng.Append(ctx, repo, "key1", next, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	tail, err := chain.Tail(ctx, store, repo, keySHA)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, types.Snapshot, tail[0].Type)

	atSecond, err := chain.AtTS(ctx, store, repo, keySHA, at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, tail, atSecond)

	beforeAny, err := chain.AtTS(ctx, store, repo, keySHA, at(t, "2023-12-31T00:00:00Z"))
	require.NoError(t, err)
	assert.Empty(t, beforeAny)
}
