package shard_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/katalvlaran/wavemoth/resource"
	"github.com/katalvlaran/wavemoth/shard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func payload(n int) []byte {
	// Repetitive enough for every codec to shrink.
	return bytes.Repeat([]byte{1, 2, 3, 4, 0, 0, 0, 0}, n)
}

func TestPutGetEveryCodec(t *testing.T) {
	for _, c := range []shard.Codec{shard.CodecNone, shard.CodecLZ4, shard.CodecZstd} {
		t.Run(c.String(), func(t *testing.T) {
			s, err := shard.Open(filepath.Join(t.TempDir(), "db"), shard.WithCodec(c), shard.WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)
			defer func() { require.NoError(t, s.Close()) }()

			a := shard.Attrs{Lmax: 32, M: 3, Odd: true, Nside: 16, CombinedMatrixSize: 1234}
			data := payload(512)
			require.NoError(t, s.Put(a, data))

			got, back, err := s.Get(resource.Key{M: 3, Odd: true})
			require.NoError(t, err)
			assert.Equal(t, a, got)
			assert.Equal(t, data, back)

			meta, err := s.Attrs(resource.Key{M: 3, Odd: true})
			require.NoError(t, err)
			assert.Equal(t, a, meta)

			_, _, err = s.Get(resource.Key{M: 3})
			require.ErrorIs(t, err, shard.ErrNotFound)
		})
	}
}

// TestKeysNumericOrder: keys come back in (m, odd) order, not lexicographic.
func TestKeysNumericOrder(t *testing.T) {
	s, err := shard.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	for _, k := range []resource.Key{{M: 10}, {M: 2, Odd: true}, {M: 2}, {M: 1, Odd: true}} {
		require.NoError(t, s.Put(shard.Attrs{M: k.M, Odd: k.Odd, Lmax: 12, Nside: 4}, []byte{byte(k.M)}))
	}
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []resource.Key{{M: 1, Odd: true}, {M: 2}, {M: 2, Odd: true}, {M: 10}}, keys)
}

// TestReopenPersists: a closed shard reads back under a different codec.
func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := shard.Open(dir, shard.WithCodec(shard.CodecLZ4))
	require.NoError(t, err)
	require.NoError(t, s.Put(shard.Attrs{M: 0, Lmax: 4, Nside: 2, CombinedMatrixSize: 9}, payload(16)))
	require.NoError(t, s.Put(shard.Attrs{M: 1, Lmax: 4, Nside: 2}, nil))
	require.NoError(t, s.Close())

	s, err = shard.Open(dir, shard.WithCodec(shard.CodecNone))
	require.NoError(t, err)
	defer s.Close()
	a, data, err := s.Get(resource.Key{M: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(9), a.CombinedMatrixSize)
	assert.Equal(t, payload(16), data)

	_, data, err = s.Get(resource.Key{M: 1})
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestParseCodec(t *testing.T) {
	for _, c := range []shard.Codec{shard.CodecNone, shard.CodecLZ4, shard.CodecZstd} {
		got, err := shard.ParseCodec(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := shard.ParseCodec("snappy")
	require.ErrorIs(t, err, shard.ErrUnknownCodec)
	assert.Panics(t, func() { shard.WithCodec(shard.Codec(7)) })
}
