// SPDX-License-Identifier: MIT

package precompute

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/katalvlaran/wavemoth/butterfly"
	"github.com/katalvlaran/wavemoth/matrix"
	"github.com/katalvlaran/wavemoth/resource"
	"github.com/katalvlaran/wavemoth/shard"
	"go.uber.org/zap"
)

// Problem is one matrix to compress with its parameters.
type Problem struct {
	Matrix    *matrix.Dense
	Eps       float64
	MinRows   int
	ChunkSize int
}

// validate reports parameters the butterfly options would reject.
func (p Problem) validate() error {
	if p.Matrix == nil {
		return matrix.ErrNilMatrix
	}
	if p.MinRows < 1 || p.ChunkSize < 1 || !(p.Eps > 0) || math.IsInf(p.Eps, 0) {
		return fmt.Errorf("min_rows=%d chunk_size=%d eps=%g: %w", p.MinRows, p.ChunkSize, p.Eps, butterfly.ErrInvalidParameter)
	}

	return nil
}

// Provider yields the matrices of a resource file.
type Provider interface {
	// Header names the file the problems belong to.
	Header() resource.Header
	// Problem builds the matrix of key.
	Problem(key resource.Key) (Problem, error)
}

// Keys lists every (m, odd) for 0 <= m <= mmax in file order.
func Keys(mmax int) []resource.Key {
	return resource.Header{Mmax: mmax}.Keys()
}

// Partition returns the i-th of n round-robin slices of keys.
// It panics unless 0 <= i < n.
func Partition(keys []resource.Key, n, i int) []resource.Key {
	if n < 1 || i < 0 || i >= n {
		panic(fmt.Sprintf("precompute: Partition(%d, %d) out of range", n, i))
	}
	out := make([]resource.Key, 0, (len(keys)+n-1)/n)
	for j := i; j < len(keys); j += n {
		out = append(out, keys[j])
	}

	return out
}

// Report summarizes one worker run.
type Report struct {
	Dir            string
	Keys           int
	StoredElements int64
	PayloadBytes   int64
	Elapsed        time.Duration
}

// Worker compresses keys into a shard.
type Worker struct {
	Provider       Provider
	Store          *shard.Store
	RaiseOnFPError bool
	Logger         *zap.Logger
}

// Run compresses every key in order and stores it with its attributes.
// The first failure stops the worker; keys stored before it stay in the shard.
func (w *Worker) Run(ctx context.Context, keys []resource.Key) (Report, error) {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sugar := log.Sugar()
	h := w.Provider.Header()
	rep := Report{Dir: w.Store.Dir()}
	start := time.Now()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p, err := w.Provider.Problem(k)
		if err != nil {
			return rep, fmt.Errorf("precompute: %v: %w", k, err)
		}
		if err = p.validate(); err != nil {
			return rep, fmt.Errorf("precompute: %v: %w", k, err)
		}
		t0 := time.Now()
		tree, err := butterfly.Compress(p.Matrix,
			butterfly.WithMinRows(p.MinRows),
			butterfly.WithEps(p.Eps),
			butterfly.WithChunkSize(p.ChunkSize),
			butterfly.WithRaiseOnFPError(w.RaiseOnFPError))
		if err != nil {
			return rep, fmt.Errorf("precompute: %v: %w", k, err)
		}
		payload, err := tree.MarshalBinary()
		if err != nil {
			return rep, fmt.Errorf("precompute: %v: %w", k, err)
		}
		attrs := shard.Attrs{Lmax: h.Lmax, M: k.M, Odd: k.Odd, Nside: h.Nside, CombinedMatrixSize: tree.Size()}
		if err = w.Store.Put(attrs, payload); err != nil {
			return rep, fmt.Errorf("precompute: %v: %w", k, err)
		}
		st := tree.Stats()
		sugar.Debugw("compressed",
			"key", k.String(),
			"shape", fmt.Sprintf("%dx%d", st.Rows, st.Cols),
			"ratio", st.CompressionRatio,
			"bytes", humanize.Bytes(uint64(len(payload))),
			"elapsed", time.Since(t0))
		rep.Keys++
		rep.StoredElements += st.StoredElements
		rep.PayloadBytes += int64(len(payload))
	}
	rep.Elapsed = time.Since(start)
	sugar.Infow("worker done",
		"dir", rep.Dir,
		"keys", rep.Keys,
		"payload", humanize.Bytes(uint64(rep.PayloadBytes)),
		"elapsed", rep.Elapsed)

	return rep, nil
}
