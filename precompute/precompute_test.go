package precompute_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/katalvlaran/wavemoth/butterfly"
	"github.com/katalvlaran/wavemoth/config"
	"github.com/katalvlaran/wavemoth/legendre"
	"github.com/katalvlaran/wavemoth/matrix"
	"github.com/katalvlaran/wavemoth/pool"
	"github.com/katalvlaran/wavemoth/precompute"
	"github.com/katalvlaran/wavemoth/resource"
	"github.com/katalvlaran/wavemoth/shard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// smallConfig is Nside = 4, lmax = mmax = 8, small enough to split once.
func smallConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Nside = 4
	cfg.MinRows = 4
	cfg.ChunkSize = 2
	cfg.Workers = 3
	dir := t.TempDir()
	cfg.ShardDir = filepath.Join(dir, "shards")
	cfg.Output = filepath.Join(dir, "rev1", "4.dat")
	cfg.Resolve()
	require.NoError(t, cfg.Validate())

	return cfg
}

func provider(t *testing.T, cfg config.Config) *legendre.Provider {
	t.Helper()
	p, err := legendre.NewProvider(cfg)
	require.NoError(t, err)

	return p
}

func TestKeysAndPartition(t *testing.T) {
	keys := precompute.Keys(2)
	require.Equal(t, []resource.Key{{M: 0}, {M: 0, Odd: true}, {M: 1}, {M: 1, Odd: true}, {M: 2}, {M: 2, Odd: true}}, keys)

	assert.Equal(t, []resource.Key{{M: 0}, {M: 1, Odd: true}}, precompute.Partition(keys, 3, 0))
	assert.Equal(t, []resource.Key{{M: 0, Odd: true}, {M: 2}}, precompute.Partition(keys, 3, 1))
	assert.Equal(t, keys, precompute.Partition(keys, 1, 0))
	assert.Empty(t, precompute.Partition(keys, 10, 9))

	seen := map[resource.Key]int{}
	for i := 0; i < 4; i++ {
		for _, k := range precompute.Partition(keys, 4, i) {
			seen[k]++
		}
	}
	assert.Len(t, seen, len(keys))
	assert.Panics(t, func() { precompute.Partition(keys, 2, 2) })
}

// writeShard runs one worker over keys into a fresh shard.
func writeShard(t *testing.T, p precompute.Provider, keys []resource.Key) *shard.Store {
	t.Helper()
	s, err := shard.Open(t.TempDir(), shard.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	w := &precompute.Worker{Provider: p, Store: s, RaiseOnFPError: true, Logger: zaptest.NewLogger(t)}
	rep, err := w.Run(context.Background(), keys)
	require.NoError(t, err)
	require.Equal(t, len(keys), rep.Keys)

	return s
}

// TestWorkerThenMerge: the merged file holds exactly the trees a direct
// Compress produces, with the tree size as combined size.
func TestWorkerThenMerge(t *testing.T) {
	cfg := smallConfig(t)
	p := provider(t, cfg)
	keys := precompute.Keys(cfg.Mmax)
	shards := []*shard.Store{
		writeShard(t, p, precompute.Partition(keys, 2, 0)),
		writeShard(t, p, precompute.Partition(keys, 2, 1)),
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "out.dat"))
	require.NoError(t, err)
	st, err := precompute.Merge(context.Background(), p.Header(), shards, f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, len(keys), st.Keys)
	assert.Zero(t, st.Duplicates)

	r, err := resource.Open(f.Name())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, p.Header(), r.Header())
	assert.Equal(t, st.Bytes, r.Size())

	for _, k := range keys {
		prob, err := p.Problem(k)
		require.NoError(t, err)
		want, err := butterfly.CompressWith(prob.Matrix, prob.MinRows, prob.Eps, prob.ChunkSize)
		require.NoError(t, err)
		got, combined, err := r.Tree(k)
		require.NoError(t, err, k.String())
		assert.Equal(t, want.Size(), combined, k.String())
		assert.Equal(t, want.Stats(), got.Stats(), k.String())
	}
}

func TestMergeConsistency(t *testing.T) {
	cfg := smallConfig(t)
	p := provider(t, cfg)
	keys := precompute.Keys(cfg.Mmax)
	full := writeShard(t, p, keys)
	ctx := context.Background()
	out := func() *os.File {
		f, err := os.Create(filepath.Join(t.TempDir(), "out.dat"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.Close() })

		return f
	}

	t.Run("missing", func(t *testing.T) {
		half := writeShard(t, p, keys[:5])
		_, err := precompute.Merge(ctx, p.Header(), []*shard.Store{half}, out())
		require.ErrorIs(t, err, precompute.ErrConsistency)
		assert.Contains(t, err.Error(), "missing 13 keys")
	})

	t.Run("identical duplicate", func(t *testing.T) {
		again := writeShard(t, p, keys[:3])
		st, err := precompute.Merge(ctx, p.Header(), []*shard.Store{full, again}, out())
		require.NoError(t, err)
		assert.Equal(t, 3, st.Duplicates)
	})

	t.Run("conflicting duplicate", func(t *testing.T) {
		other, err := shard.Open(t.TempDir())
		require.NoError(t, err)
		defer other.Close()
		require.NoError(t, other.Put(shard.Attrs{Lmax: 8, M: 2, Nside: 4, CombinedMatrixSize: 1}, []byte("x")))
		_, err = precompute.Merge(ctx, p.Header(), []*shard.Store{full, other}, out())
		require.ErrorIs(t, err, precompute.ErrConsistency)
	})

	t.Run("duplicate with different payload", func(t *testing.T) {
		k := resource.Key{M: 1, Odd: true}
		a, err := full.Attrs(k)
		require.NoError(t, err)
		other, err := shard.Open(t.TempDir(), shard.WithCodec(shard.CodecNone))
		require.NoError(t, err)
		defer other.Close()
		require.NoError(t, other.Put(a, []byte("not the same tree")))
		_, err = precompute.Merge(ctx, p.Header(), []*shard.Store{full, other}, out())
		require.ErrorIs(t, err, precompute.ErrConsistency)
		assert.Contains(t, err.Error(), "different payloads")
	})

	t.Run("foreign parameters", func(t *testing.T) {
		h := p.Header()
		h.Nside = 8
		_, err := precompute.Merge(ctx, h, []*shard.Store{full}, out())
		require.ErrorIs(t, err, precompute.ErrConsistency)
	})

	t.Run("key beyond mmax", func(t *testing.T) {
		h := p.Header()
		h.Mmax = 3
		_, err := precompute.Merge(ctx, h, []*shard.Store{full}, out())
		require.ErrorIs(t, err, precompute.ErrConsistency)
	})
}

func TestRunEndToEnd(t *testing.T) {
	executors := map[string]func() pool.Executor[precompute.Report]{
		"immediate": func() pool.Executor[precompute.Report] { return pool.NewImmediate[precompute.Report]() },
		"pool": func() pool.Executor[precompute.Report] {
			return pool.NewPool[precompute.Report](context.Background(), 2)
		},
	}
	for name, mk := range executors {
		t.Run(name, func(t *testing.T) {
			cfg := smallConfig(t)
			exec := mk()
			sum, err := precompute.Run(context.Background(), cfg, provider(t, cfg), exec, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NoError(t, exec.Close())
			assert.Len(t, sum.Workers, cfg.Workers)
			assert.Equal(t, 2*(cfg.Mmax+1), sum.Merge.Keys)

			r, err := resource.Open(cfg.Output)
			require.NoError(t, err)
			defer r.Close()
			assert.Len(t, r.Keys(), 2*(cfg.Mmax+1))

			_, err = os.Stat(filepath.Join(cfg.ShardDir, sum.RunID))
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

// failing wraps a provider and fails on one key.
type failing struct {
	precompute.Provider
	bad resource.Key
}

var errProvider = errors.New("provider failure")

func (f failing) Problem(k resource.Key) (precompute.Problem, error) {
	if k == f.bad {
		return precompute.Problem{}, errProvider
	}

	return f.Provider.Problem(k)
}

func TestRunFailureKeepsShards(t *testing.T) {
	cfg := smallConfig(t)
	p := failing{Provider: provider(t, cfg), bad: resource.Key{M: 4, Odd: true}}
	sum, err := precompute.Run(context.Background(), cfg, p, pool.NewImmediate[precompute.Report](), nil)
	require.ErrorIs(t, err, errProvider)
	assert.Len(t, sum.Workers, cfg.Workers-1)

	_, err = os.Stat(cfg.Output)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(cfg.ShardDir, sum.RunID))
	assert.NoError(t, err)
}

func TestRunRejectsMismatchedProvider(t *testing.T) {
	cfg := smallConfig(t)
	p := provider(t, cfg)
	cfg.Lmax++
	_, err := precompute.Run(context.Background(), cfg, p, pool.NewImmediate[precompute.Report](), nil)
	require.ErrorIs(t, err, precompute.ErrInvalidPlan)

	cfg = smallConfig(t)
	cfg.Workers = 0
	_, err = precompute.Run(context.Background(), cfg, p, pool.NewImmediate[precompute.Report](), nil)
	require.ErrorIs(t, err, precompute.ErrInvalidPlan)
}

func TestWorkerRejectsBadProblem(t *testing.T) {
	s, err := shard.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	bad := badProblem{h: resource.Header{Lmax: 2, Mmax: 0, Nside: 1}}
	w := &precompute.Worker{Provider: bad, Store: s}
	_, err = w.Run(context.Background(), precompute.Keys(0))
	require.ErrorIs(t, err, butterfly.ErrInvalidParameter)
}

type badProblem struct{ h resource.Header }

func (b badProblem) Header() resource.Header { return b.h }
func (b badProblem) Problem(resource.Key) (precompute.Problem, error) {
	return precompute.Problem{Matrix: matrix.Zeros(2, 2), Eps: 1e-10, MinRows: 0, ChunkSize: 1}, nil
}

func TestVerify(t *testing.T) {
	cfg := smallConfig(t)
	p := provider(t, cfg)
	prob, err := p.Problem(resource.Key{M: 1})
	require.NoError(t, err)
	tree, err := butterfly.CompressWith(prob.Matrix, prob.MinRows, prob.Eps, prob.ChunkSize)
	require.NoError(t, err)

	res, err := precompute.Verify(tree, prob.Matrix)
	require.NoError(t, err)
	assert.Less(t, res.Forward, 1e-8)
	assert.Less(t, res.Transpose, 1e-8)

	// A perturbed reference shows up in the forward residual.
	other := prob.Matrix.Copy()
	other.Raw()[0] += 1
	res, err = precompute.Verify(tree, other)
	require.NoError(t, err)
	assert.Greater(t, res.Forward, 1e-3)
	assert.Equal(t, 0, res.WorstColumn)

	_, err = precompute.Verify(tree, matrix.Zeros(1, 1))
	require.ErrorIs(t, err, butterfly.ErrShape)
}
