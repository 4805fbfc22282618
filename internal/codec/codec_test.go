package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/types"
)

func TestKeySHADeterministic(t *testing.T) {
	a := codec.KeySHA("http://example.org/resource/1")
	b := codec.KeySHA("http://example.org/resource/1")
	c := codec.KeySHA("http://example.org/resource/2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := []byte("<s> <p> <o> .\n<s2> <p2> <o2> .")
	compressed, err := codec.Compress(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, compressed)

	decompressed, err := codec.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := codec.Decompress([]byte("not a zlib stream"))
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	stmts := types.NewStatementSet("<a> <b> <c> .", "<d> <e> <f> .")
	encoded := codec.EncodeSnapshot(stmts)
	decoded := codec.DecodeSnapshot(encoded)
	assert.True(t, stmts.Equal(decoded))
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	encoded := codec.EncodeSnapshot(types.NewStatementSet())
	decoded := codec.DecodeSnapshot(encoded)
	assert.True(t, types.NewStatementSet().Equal(decoded))
}

func TestDeltaRoundTrip(t *testing.T) {
	added := types.NewStatementSet("<a> <b> <c> .")
	removed := types.NewStatementSet("<d> <e> <f> .")

	encoded := codec.EncodeDelta(added, removed)
	gotAdded, gotRemoved := codec.DecodeDelta(encoded)

	assert.True(t, added.Equal(gotAdded))
	assert.True(t, removed.Equal(gotRemoved))
}

func TestApplyDelta(t *testing.T) {
	base := types.NewStatementSet("<a> <b> <c> .", "<keep> <p> <o> .")
	added := types.NewStatementSet("<new> <p> <o> .")
	removed := types.NewStatementSet("<a> <b> <c> .")

	codec.ApplyDelta(base, added, removed)

	assert.False(t, base.Has("<a> <b> <c> ."))
	assert.True(t, base.Has("<keep> <p> <o> ."))
	assert.True(t, base.Has("<new> <p> <o> ."))
}

func TestPrefixedLines(t *testing.T) {
	added := types.NewStatementSet("<a> <b> <c> .")
	removed := types.NewStatementSet("<d> <e> <f> .")

	lines := codec.PrefixedLines(added, removed)
	assert.Len(t, lines, 2)
	assert.Contains(t, lines, "A <a> <b> <c> .")
	assert.Contains(t, lines, "D <d> <e> <f> .")
}
