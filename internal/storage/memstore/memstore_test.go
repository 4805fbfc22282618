package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/storage/memstore"
	"github.com/rdfvault/revengine/internal/types"
)

func testRepo() types.Repo { return types.Repo{Owner: "acme", Name: "graph"} }

func TestWithTxRollsBackOnError(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	repo := testRepo()
	keySHA := types.KeySHA{1}

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.PutCSet(ctx, types.CSet{Repo: repo, KeySHA: keySHA, Time: time.Now(), Type: types.Snapshot, Len: 3}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	cs, err := store.LastCSet(ctx, repo, keySHA)
	require.NoError(t, err)
	assert.Nil(t, cs, "a failed transaction must leave no trace")
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	repo := testRepo()
	keySHA := types.KeySHA{2}

	err := store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		return tx.PutCSet(ctx, types.CSet{Repo: repo, KeySHA: keySHA, Time: time.Now(), Type: types.Snapshot, Len: 3})
	})
	require.NoError(t, err)

	cs, err := store.LastCSet(ctx, repo, keySHA)
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, types.Snapshot, cs.Type)
}

func TestEnsureKeyCollision(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	repo := testRepo()
	keySHA := types.KeySHA{3}

	require.NoError(t, store.EnsureKey(ctx, repo, keySHA, "original"))
	require.NoError(t, store.EnsureKey(ctx, repo, keySHA, "original"), "idempotent re-insert must succeed")

	err := store.EnsureKey(ctx, repo, keySHA, "different")
	assert.True(t, types.IsCollision(err))
}

func TestListKeysPagination(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	repo := testRepo()

	for i, k := range []string{"alpha", "bravo", "charlie"} {
		var sha types.KeySHA
		sha[0] = byte(i + 1)
		require.NoError(t, store.EnsureKey(ctx, repo, sha, k))
	}

	page1, token, err := store.ListKeys(ctx, repo, "", 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.NotEmpty(t, token)

	page2, token2, err := store.ListKeys(ctx, repo, token, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)
	assert.Empty(t, token2)
}

func TestGetBlobNotFound(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	_, err := store.GetBlob(ctx, testRepo(), types.KeySHA{9}, time.Now())
	assert.True(t, types.IsNotFound(err))
}
