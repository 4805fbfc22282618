package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/engine"
	"github.com/rdfvault/revengine/internal/storage/memstore"
	"github.com/rdfvault/revengine/internal/types"
)

func testRepo() types.Repo { return types.Repo{Owner: "acme", Name: "graph"} }

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

// TestAppendFirstWriteIsSnapshot covers §4.F.1: the first write to a key
// with no history is always a SNAPSHOT, regardless of SNAPF.
func TestAppendFirstWriteIsSnapshot(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	state := types.NewStatementSet("<a> <b> <c> .")
	unchanged, err := eng.Append(ctx, repo, "key1", state, at(t, "2024-01-01T00:00:00Z"), "initial")
	require.NoError(t, err)
	assert.False(t, unchanged)

	c, err := store.ListRange(ctx, repo, keySHAOf("key1"), time.Time{}, farFuture)
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, types.Snapshot, c[0].Type)
}

// TestAppendFirstWriteEmptySetStillStoresSnapshot covers §4.F step 6: an
// empty chain always stores a SNAPSHOT, even when the state being saved is
// itself empty — it must not be reported as unchanged, since there is no
// prior live state to be unchanged relative to.
func TestAppendFirstWriteEmptySetStillStoresSnapshot(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	unchanged, err := eng.Append(ctx, repo, "key1", types.NewStatementSet(), at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	assert.False(t, unchanged)

	c, err := store.ListRange(ctx, repo, keySHAOf("key1"), time.Time{}, farFuture)
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, types.Snapshot, c[0].Type)
}

// TestAppendEmptySetAfterDeleteStoresSnapshot covers the same rule for a
// chain beginning with DELETE: re-appending an empty set right after a
// delete must produce a live (if empty) SNAPSHOT, not an unchanged no-op
// that leaves the resource looking deleted.
func TestAppendEmptySetAfterDeleteStoresSnapshot(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	_, err := eng.Append(ctx, repo, "key1", types.NewStatementSet("<a> <b> <c> ."), at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	_, err = eng.Delete(ctx, repo, "key1", at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)

	unchanged, err := eng.Append(ctx, repo, "key1", types.NewStatementSet(), at(t, "2024-01-03T00:00:00Z"), "")
	require.NoError(t, err)
	assert.False(t, unchanged)

	state, kind, err := reconstructFor(ctx, store, repo, "key1", at(t, "2024-01-03T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, "found", kind)
	assert.Empty(t, state)
}

// TestAppendIdempotentReSave covers §8: saving the same state again is a
// no-op, reported via unchanged=true, with no new changeset written.
func TestAppendIdempotentReSave(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	state := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", state, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	unchanged, err := eng.Append(ctx, repo, "key1", state.Clone(), at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)
	assert.True(t, unchanged)

	c, err := store.ListRange(ctx, repo, keySHAOf("key1"), time.Time{}, farFuture)
	require.NoError(t, err)
	assert.Len(t, c, 1, "no changeset should be written for an unchanged re-save")
}

// TestAppendRejectsNonMonotonicTime covers §3's strictly-increasing time
// invariant.
func TestAppendRejectsNonMonotonicTime(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	state := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", state, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	_, err = eng.Append(ctx, repo, "key1", types.NewStatementSet("<x> <y> <z> ."), at(t, "2024-01-01T00:00:00Z"), "")
	assert.True(t, types.IsNonMonotonic(err))
}

// TestSnapshotVsDeltaSwitch covers the §4.F worked example with a small
// SNAPF: a tiny incremental change after a snapshot should encode as a
// DELTA, but once accumulated deltas grow past SNAPF*snapshotLen the
// engine forces a fresh SNAPSHOT.
func TestSnapshotVsDeltaSwitch(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, 2.0)
	ctx := context.Background()
	repo := testRepo()
	keySHA := keySHAOf("key1")

	base := types.NewStatementSet()
	for i := 0; i < 50; i++ {
		base.Add(statementN(i))
	}
	_, err := eng.Append(ctx, repo, "key1", base, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	next := base.Clone()
	next.Add("<new> <p> <o> .")
	_, err = eng.Append(ctx, repo, "key1", next, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	c, err := store.ListRange(ctx, repo, keySHA, time.Time{}, farFuture)
	require.NoError(t, err)
	require.Len(t, c, 2)
	assert.Equal(t, types.Delta, c[1].Type, "a small change after a large snapshot should encode as a delta")

	// Now grow the chain past SNAPF*baseLen with many more tiny deltas.
	tm := at(t, "2024-01-02T00:00:00Z")
	current := next
	for i := 0; i < 50; i++ {
		tm = tm.Add(24 * time.Hour)
		current = current.Clone()
		current.Add(statementN(1000 + i))
		_, err = eng.Append(ctx, repo, "key1", current, tm, "")
		require.NoError(t, err)
	}

	c, err = store.ListRange(ctx, repo, keySHA, time.Time{}, farFuture)
	require.NoError(t, err)
	var sawSnapshotAfterFirst bool
	for _, cs := range c[1:] {
		if cs.Type == types.Snapshot {
			sawSnapshotAfterFirst = true
			break
		}
	}
	assert.True(t, sawSnapshotAfterFirst, "accumulated delta size should eventually force a re-snapshot")
}

// TestInsertInTheMiddle covers §4.F.2: inserting at an arbitrary
// historical time re-encodes, but does not re-mean, the following
// changeset.
func TestInsertInTheMiddle(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	s1 := types.NewStatementSet("<a> <b> <c> .")
	s3 := types.NewStatementSet("<a> <b> <c> .", "<d> <e> <f> .")

	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	_, err = eng.Append(ctx, repo, "key1", s3, at(t, "2024-01-03T00:00:00Z"), "")
	require.NoError(t, err)

	s2 := types.NewStatementSet("<a> <b> <c> .", "<mid> <p> <o> .")
	err = eng.Insert(ctx, repo, "key1", s2, at(t, "2024-01-02T00:00:00Z"), "")
	require.NoError(t, err)

	got, _, err := reconstructFor(ctx, store, repo, "key1", at(t, "2024-01-02T12:00:00Z"))
	require.NoError(t, err)
	assert.True(t, s2.Equal(got))

	got, _, err = reconstructFor(ctx, store, repo, "key1", at(t, "2024-01-03T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, s3.Equal(got), "later mementos keep their original meaning after an insert")
}

// TestDeleteThenReAppend covers §4.F.3/§4.F.1: deleting tombstones the
// history, and appending afterward always starts a fresh SNAPSHOT.
func TestDeleteThenReAppend(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()
	keySHA := keySHAOf("key1")

	s1 := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)

	unchanged, err := eng.Delete(ctx, repo, "key1", at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.False(t, unchanged)

	_, kind, err := reconstructFor(ctx, store, repo, "key1", at(t, "2024-01-02T12:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, "deleted", kind)

	s2 := types.NewStatementSet("<g> <h> <i> .")
	_, err = eng.Append(ctx, repo, "key1", s2, at(t, "2024-01-03T00:00:00Z"), "")
	require.NoError(t, err)

	c, err := store.ListRange(ctx, repo, keySHA, time.Time{}, farFuture)
	require.NoError(t, err)
	assert.Equal(t, types.Snapshot, c[len(c)-1].Type, "the write following a delete must be a snapshot")
}

// TestDeleteCollapsesRedundantTombstones covers §4.F.3: deleting an
// already-deleted history is a no-op reported as unchanged.
func TestDeleteCollapsesRedundantTombstones(t *testing.T) {
	store := memstore.New()
	eng := engine.New(store, engine.DefaultSNAPF)
	ctx := context.Background()
	repo := testRepo()

	s1 := types.NewStatementSet("<a> <b> <c> .")
	_, err := eng.Append(ctx, repo, "key1", s1, at(t, "2024-01-01T00:00:00Z"), "")
	require.NoError(t, err)
	_, err = eng.Delete(ctx, repo, "key1", at(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)

	unchanged, err := eng.Delete(ctx, repo, "key1", at(t, "2024-01-03T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, unchanged)
}

// TestKeyCollision covers §4.B: two distinct key strings must never map to
// the same key_sha under EnsureKey.
func TestKeyCollision(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	repo := testRepo()

	keySHA := keySHAOf("key1")
	require.NoError(t, store.EnsureKey(ctx, repo, keySHA, "key1"))

	err := store.EnsureKey(ctx, repo, keySHA, "a-different-string-with-the-same-sha")
	assert.True(t, types.IsCollision(err))
}

func statementN(n int) string {
	return "<s" + itoa(n) + "> <p> <o> ."
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
