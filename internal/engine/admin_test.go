package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/engine"
	"github.com/rdfvault/revengine/internal/storage/memstore"
	"github.com/rdfvault/revengine/internal/types"
)

func TestCommitMessageSetAndGet(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	tm := at(t, "2024-01-01T00:00:00Z")
	_, err := eng.Append(ctx, repo, "key1", types.NewStatementSet("<a> <b> <c> ."), tm, "")
	require.NoError(t, err)

	require.NoError(t, eng.SetCommitMessage(ctx, repo, "key1", tm, "fixed a typo"))
	msg, err := eng.CommitMessage(ctx, repo, "key1", tm)
	require.NoError(t, err)
	assert.Equal(t, "fixed a typo", msg)
}

func TestSetCommitMessageNoSuchChangeset(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	err := eng.SetCommitMessage(ctx, repo, "key1", at(t, "2024-01-01T00:00:00Z"), "nope")
	assert.True(t, types.IsNotFound(err))
}

func TestVerifyChainCleanHistory(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, 2.0)
	ctx := context.Background()
	repo := testRepo()

	base := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", base, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	next := base.Clone()
	next.Add("<d> <e> <f> .")
	_, err = eng.Append(ctx, repo, "key1", next, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)
	_, err = eng.Delete(ctx, repo, "key1", at(t, "2024-01-03T00:00:00Z"))
	require.NoError(t, err)

	violations, err := eng.VerifyChain(ctx, repo, "key1")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestVerifyChainAllowsDeleteThenReappend(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	_, err := eng.Append(ctx, repo, "key1", types.NewStatementSet("<a> <b> <c> ."), at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	_, err = eng.Delete(ctx, repo, "key1", at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	_, err = eng.Append(ctx, repo, "key1", types.NewStatementSet("<d> <e> <f> ."), at(t, "2024-01-03T00:00:00Z"), "")
	require.NoError(t, err)

	violations, err := eng.VerifyChain(ctx, repo, "key1")
	require.NoError(t, err)
	assert.Empty(t, violations, "a SNAPSHOT following a DELETE mid-history is not an invariant violation")
}

func TestVerifyChainDetectsMissingBlob(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()
	keySHA := keySHAOf("key1")

	_, err := eng.Append(ctx, repo, "key1", types.NewStatementSet("<a> <b> <c> ."), at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteChangeset(ctx, repo, keySHA, at(t, "2024-01-01T00:00:00Z")))
	require.NoError(t, store.PutCSet(ctx, types.CSet{
		Repo: repo, KeySHA: keySHA, Time: at(t, "2024-01-01T00:00:00Z"),
		Type: types.Snapshot, Len: 10,
	}))

	violations, err := eng.VerifyChain(ctx, repo, "key1")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Reason, "missing blob")
}

func TestRemoveRepoCascades(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	_, err := eng.Append(ctx, repo, "key1", types.NewStatementSet("<a> <b> <c> ."), at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	require.NoError(t, eng.RemoveRepo(ctx, repo))

	cs, err := store.LastCSet(ctx, repo, keySHAOf("key1"))
	require.NoError(t, err)
	assert.Nil(t, cs)
}
