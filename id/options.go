// SPDX-License-Identifier: MIT

package id

const (
	// DefaultRaiseOnFPError makes NaN/Inf faults fatal.
	DefaultRaiseOnFPError = true

	// DefaultMaxRank leaves the rank uncapped.
	DefaultMaxRank = 0

	panicMaxRankNegative = "id: WithMaxRank requires k >= 0"
)

// Options configures Decompose and DecomposeSparse.
type Options struct {
	RaiseOnFPError bool // fail with ErrNumerical on non-finite input/output
	MaxRank        int  // 0 = unlimited
}

// Option is a functional setter for Options.
type Option func(*Options)

// DefaultOptions returns the fail-fast, uncapped configuration.
func DefaultOptions() Options {
	return Options{RaiseOnFPError: DefaultRaiseOnFPError, MaxRank: DefaultMaxRank}
}

// WithRaiseOnFPError toggles the floating-point fault policy.
// With raise == false, NaN columns are never chosen as pivots and NaN values
// propagate into the skeleton and the coefficients.
func WithRaiseOnFPError(raise bool) Option {
	return func(o *Options) { o.RaiseOnFPError = raise }
}

// WithMaxRank caps the number of kept columns. Columns beyond the cap are
// interpolated even if the tolerance is not met. Panics on k < 0.
func WithMaxRank(k int) Option {
	if k < 0 {
		panic(panicMaxRankNegative)
	}

	return func(o *Options) { o.MaxRank = k }
}

func gatherOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
