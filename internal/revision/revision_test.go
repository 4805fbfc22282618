package revision_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/chain"
	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/engine"
	"github.com/rdfvault/revengine/internal/revision"
	"github.com/rdfvault/revengine/internal/storage/memstore"
	"github.com/rdfvault/revengine/internal/types"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func TestGetRevisionEmptyChainIsNotFound(t *testing.T) {
	state, kind, err := revision.GetRevision(context.Background(), memstore.New(), types.Repo{}, types.KeySHA{}, nil)
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, revision.NotFound, kind)
}

func TestGetRevisionSnapshotPlusDeltas(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, 2.0)
	ctx := context.Background()
	repo := types.Repo{Owner: "acme", Name: "graph"}
	keySHA := codec.KeySHA("key1")

	s1 := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	s2 := s1.Clone()
	s2.Add("<d> <e> <f> .")
	_, err = eng.Append(ctx, repo, "key1", s2, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	c, err := chain.Tail(ctx, store, repo, keySHA)
	require.NoError(t, err)

	got, kind, err := revision.GetRevision(ctx, store, repo, keySHA, c)
	require.NoError(t, err)
	assert.Equal(t, revision.Found, kind)
	assert.True(t, s2.Equal(got))
}

func TestGetRevisionDeleteChain(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := types.Repo{Owner: "acme", Name: "graph"}
	keySHA := codec.KeySHA("key1")

	s1 := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	_, err = eng.Delete(ctx, repo, "key1", at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)

	c, err := chain.Tail(ctx, store, repo, keySHA)
	require.NoError(t, err)

	got, kind, err := revision.GetRevision(ctx, store, repo, keySHA, c)
	require.NoError(t, err)
	assert.Equal(t, revision.Deleted, kind)
	assert.True(t, got.Equal(types.NewStatementSet()))
}
