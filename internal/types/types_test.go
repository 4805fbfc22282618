package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rdfvault/revengine/internal/types"
)

func TestKeySHARoundTrip(t *testing.T) {
	k := types.KeySHA{1, 2, 3, 4, 5}
	parsed, err := types.KeySHAFromHex(k.String())
	assert.NoError(t, err)
	assert.Equal(t, k, parsed)
}

func TestKeySHAFromHexInvalidLength(t *testing.T) {
	_, err := types.KeySHAFromHex("abcd")
	assert.Error(t, err)
}

func TestChangesetTypeStringRoundTrip(t *testing.T) {
	for _, ct := range []types.ChangesetType{types.Snapshot, types.Delta, types.Delete} {
		parsed, ok := types.ParseChangesetType(ct.String())
		assert.True(t, ok)
		assert.Equal(t, ct, parsed)
	}
}

func TestParseChangesetTypeUnknown(t *testing.T) {
	_, ok := types.ParseChangesetType("BOGUS")
	assert.False(t, ok)
}

func TestStatementSetEqual(t *testing.T) {
	a := types.NewStatementSet("x", "y", "z")
	b := types.NewStatementSet("z", "y", "x")
	c := types.NewStatementSet("z", "y")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestStatementSetDiff(t *testing.T) {
	a := types.NewStatementSet("x", "y", "z")
	b := types.NewStatementSet("y", "z", "w")

	assert.Equal(t, types.NewStatementSet("x"), a.Diff(b))
	assert.Equal(t, types.NewStatementSet("w"), b.Diff(a))
}

func TestStatementSetAddRemoveHas(t *testing.T) {
	s := types.NewStatementSet()
	assert.False(t, s.Has("x"))
	s.Add("x")
	assert.True(t, s.Has("x"))
	s.Remove("x")
	assert.False(t, s.Has("x"))
	// removing an absent statement is not an error
	s.Remove("x")
}

func TestStatementSetClone(t *testing.T) {
	a := types.NewStatementSet("x", "y")
	b := a.Clone()
	b.Add("z")
	assert.False(t, a.Has("z"))
	assert.True(t, b.Has("z"))
}

func TestWrapStoreErrorNilIsNil(t *testing.T) {
	assert.NoError(t, types.WrapStoreError("op", nil))
}

func TestWrapStoreErrorPreservesSentinel(t *testing.T) {
	wrapped := types.WrapStoreError("engine: get cset", types.ErrNotFound)
	assert.True(t, errors.Is(wrapped, types.ErrNotFound))
	assert.True(t, types.IsNotFound(wrapped))
}

func TestWrapStoreErrorfFormatsLabel(t *testing.T) {
	wrapped := types.WrapStoreErrorf(types.ErrCollision, "engine: ensure key %s", "deadbeef")
	assert.True(t, types.IsCollision(wrapped))
	assert.Contains(t, wrapped.Error(), "deadbeef")
}
