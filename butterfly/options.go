// SPDX-License-Identifier: MIT

package butterfly

import "math"

const (
	// DefaultMinRows is the smallest row block a split may produce.
	DefaultMinRows = 32

	// DefaultChunkSize is the width of the root column groups.
	DefaultChunkSize = 32

	// DefaultEps is the relative ID tolerance applied at every node.
	DefaultEps = 1e-10

	// DefaultRaiseOnFPError makes NaN/Inf faults fatal.
	DefaultRaiseOnFPError = true
)

const (
	panicMinRows   = "butterfly: WithMinRows requires n >= 1"
	panicChunkSize = "butterfly: WithChunkSize requires n >= 1"
	panicEps       = "butterfly: WithEps requires a finite eps > 0"
)

// Options configures Compress.
type Options struct {
	MinRows        int
	ChunkSize      int
	Eps            float64
	RaiseOnFPError bool
}

// Option is a functional setter for Options.
type Option func(*Options)

// DefaultOptions returns the configuration used by the precompute pipeline.
func DefaultOptions() Options {
	return Options{
		MinRows:        DefaultMinRows,
		ChunkSize:      DefaultChunkSize,
		Eps:            DefaultEps,
		RaiseOnFPError: DefaultRaiseOnFPError,
	}
}

// WithMinRows sets the minimum leaf height. Panics on n < 1.
func WithMinRows(n int) Option {
	if n < 1 {
		panic(panicMinRows)
	}

	return func(o *Options) { o.MinRows = n }
}

// WithChunkSize sets the root column group width. Panics on n < 1.
func WithChunkSize(n int) Option {
	if n < 1 {
		panic(panicChunkSize)
	}

	return func(o *Options) { o.ChunkSize = n }
}

// WithEps sets the ID tolerance. Panics unless eps is finite and positive.
func WithEps(eps float64) Option {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		panic(panicEps)
	}

	return func(o *Options) { o.Eps = eps }
}

// WithRaiseOnFPError forwards the floating-point fault policy to every ID.
func WithRaiseOnFPError(raise bool) Option {
	return func(o *Options) { o.RaiseOnFPError = raise }
}
