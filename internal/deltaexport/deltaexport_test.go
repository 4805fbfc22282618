package deltaexport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/deltaexport"
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

func setup(t *testing.T) (*engine.Engine, *memstore.Store, types.Repo) {
	t.Helper()
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	repo := types.Repo{Owner: "acme", Name: "graph"}
	return eng, store, repo
}

func TestOfMementoSnapshotAddsEverythingOnFirstWrite(t *testing.T) {
	eng, store, repo := setup(t)
	ctx := context.Background()

	s1 := types.NewStatementSet("<a> <b> <c> .", "<d> <e> <f> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	added, removed, err := deltaexport.OfMemento(ctx, store, repo, "key1", at(t, "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, s1.Equal(added))
	assert.Empty(t, removed)
}

func TestOfMementoDelta(t *testing.T) {
	eng, store, repo := setup(t)
	ctx := context.Background()

	s1 := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	s2 := types.NewStatementSet("<d> <e> <f> .")
	_, err = eng.Append(ctx, repo, "key1", s2, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	added, removed, err := deltaexport.OfMemento(ctx, store, repo, "key1", at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, types.NewStatementSet("<d> <e> <f> .").Equal(added))
	assert.True(t, types.NewStatementSet("<a> <b> <c> .").Equal(removed))
}

func TestBetweenMementos(t *testing.T) {
	eng, store, repo := setup(t)
	ctx := context.Background()

	s1 := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	s2 := types.NewStatementSet("<d> <e> <f> .")
	_, err = eng.Append(ctx, repo, "key1", s2, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	lines, err := deltaexport.BetweenMementos(ctx, store, repo, "key1",
		at(t, "2024-01-01T00:00:00Z"), at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.Contains(t, lines, "A <a> <b> <c> .")
	assert.Contains(t, lines, "D <d> <e> <f> .")
}

func TestBetweenMementosInvalidRange(t *testing.T) {
	_, store, repo := setup(t)
	ctx := context.Background()

	_, err := deltaexport.BetweenMementos(ctx, store, repo, "never-existed",
		at(t, "2024-01-01T00:00:00Z"), at(t, "2024-01-02T00:00:00Z"))
	assert.True(t, types.IsInvalidRange(err))
}
