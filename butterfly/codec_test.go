package butterfly_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/katalvlaran/wavemoth/butterfly"
	"github.com/katalvlaran/wavemoth/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodecRoundTrip: bytes and apply results survive WriteTo/ReadTree unchanged.
func TestCodecRoundTrip(t *testing.T) {
	a := legendreMatrix(t)
	tree, err := butterfly.CompressWith(a, 16, 1e-10, 4)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := tree.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Zero(t, n%butterfly.Alignment)
	encoded := append([]byte(nil), buf.Bytes()...)

	back, err := butterfly.ReadTree(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, tree.Stats(), back.Stats())
	assert.Equal(t, tree.Eps(), back.Eps())
	assert.Equal(t, tree.MinRows(), back.MinRows())
	assert.Equal(t, tree.ChunkSize(), back.ChunkSize())

	again, err := back.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, encoded, again)

	for j := 0; j < a.Cols(); j++ {
		e := unit(a.Cols(), j)
		want, err := tree.Apply(e)
		require.NoError(t, err)
		got, err := back.Apply(e)
		require.NoError(t, err)
		require.Equal(t, want.Raw(), got.Raw(), "column %d", j)
	}
}

// TestInspectSkipsPayloads: headers alone give the summary and the byte count.
func TestInspectSkipsPayloads(t *testing.T) {
	a := legendreMatrix(t)
	tree, err := butterfly.CompressWith(a, 16, 1e-10, 4)
	require.NoError(t, err)
	raw, err := tree.MarshalBinary()
	require.NoError(t, err)

	info, err := butterfly.Inspect(bytes.NewReader(raw))
	require.NoError(t, err)
	st := tree.Stats()
	assert.Equal(t, butterfly.Info{
		Rows:           st.Rows,
		Cols:           st.Cols,
		Nodes:          st.Nodes,
		Leaves:         st.Leaves,
		MaxRank:        st.MaxRank,
		MaxGroups:      st.MaxGroups,
		StoredElements: st.StoredElements,
		Bytes:          int64(len(raw)),
	}, info)
}

// TestReadTreeRejectsCorruption covers truncation and tag damage.
func TestReadTreeRejectsCorruption(t *testing.T) {
	tree, err := butterfly.CompressWith(legendreMatrix(t), 32, 1e-10, 8)
	require.NoError(t, err)
	raw, err := tree.MarshalBinary()
	require.NoError(t, err)

	_, err = butterfly.ReadTree(bytes.NewReader(raw[:len(raw)-butterfly.Alignment]))
	require.ErrorIs(t, err, butterfly.ErrCorruptStream)

	bad := append([]byte(nil), raw...)
	bad[0] ^= 0xff
	_, err = butterfly.ReadTree(bytes.NewReader(bad))
	require.ErrorIs(t, err, butterfly.ErrCorruptStream)

	// First node unit starts at offset 128; break its tag.
	bad = append([]byte(nil), raw...)
	bad[butterfly.Alignment] = 9
	_, err = butterfly.ReadTree(bytes.NewReader(bad))
	require.ErrorIs(t, err, butterfly.ErrCorruptStream)
	_, err = butterfly.Inspect(bytes.NewReader(bad))
	require.ErrorIs(t, err, butterfly.ErrCorruptStream)

	_, err = butterfly.ReadTree(bytes.NewReader(nil))
	require.ErrorIs(t, err, butterfly.ErrCorruptStream)
}

// TestCodecLeafRoot round-trips a root leaf, including its dense blocks.
func TestCodecLeafRoot(t *testing.T) {
	a, err := matrix.NewDenseFrom(3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	tree, err := butterfly.Compress(a)
	require.NoError(t, err)
	raw, err := tree.MarshalBinary()
	require.NoError(t, err)

	back, err := butterfly.ReadTree(bytes.NewReader(raw))
	require.NoError(t, err)
	y, err := back.Apply(unit(2, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, y.Raw())
}

// TestReadTreeRejectsOversizedUnits: sizes claimed by a damaged header are
// checked against the stream before any buffer is sized from them.
func TestReadTreeRejectsOversizedUnits(t *testing.T) {
	a, err := matrix.NewDenseFrom(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	tree, err := butterfly.Compress(a)
	require.NoError(t, err)
	raw, err := tree.MarshalBinary()
	require.NoError(t, err)

	// Tree unit: cols at byte 16, nodes at 48. The single group unit starts
	// after the root node unit, with nsrc at +8 and k at +16.
	const group = 2 * butterfly.Alignment
	patch := func(edit func(b []byte)) []byte {
		b := append([]byte(nil), raw...)
		edit(b)

		return b
	}
	huge := patch(func(b []byte) {
		binary.LittleEndian.PutUint64(b[16:], math.MaxInt32)
		binary.LittleEndian.PutUint64(b[group+8:], math.MaxInt32)
		binary.LittleEndian.PutUint64(b[group+16:], math.MaxInt32/2)
	})
	wide := patch(func(b []byte) {
		binary.LittleEndian.PutUint64(b[16:], math.MaxInt32)
		binary.LittleEndian.PutUint64(b[group+8:], math.MaxInt32)
		binary.LittleEndian.PutUint64(b[group+16:], 1)
	})
	nodes := patch(func(b []byte) {
		binary.LittleEndian.PutUint64(b[48:], 9)
	})

	for name, bad := range map[string][]byte{"huge": huge, "wide": wide, "nodes": nodes} {
		t.Run(name, func(t *testing.T) {
			_, err := butterfly.ReadTree(bytes.NewReader(bad))
			require.ErrorIs(t, err, butterfly.ErrCorruptStream)
			_, err = butterfly.Inspect(bytes.NewReader(bad))
			require.ErrorIs(t, err, butterfly.ErrCorruptStream)

			// Without a known length the reads run out first.
			_, err = butterfly.ReadTree(struct{ io.Reader }{bytes.NewReader(bad)})
			require.ErrorIs(t, err, butterfly.ErrCorruptStream)
		})
	}
}
