// SPDX-License-Identifier: MIT

package id

import "errors"

var (
	// ErrNumerical reports a floating-point fault: non-finite input, or
	// non-finite coefficients produced by an ill-conditioned triangular solve.
	// It is fatal for the current matrix; the core never retries.
	ErrNumerical = errors.New("id: numerical error")

	// ErrInvalidTolerance indicates eps <= 0 or a non-finite eps.
	ErrInvalidTolerance = errors.New("id: invalid tolerance")

	// ErrInvalidSelection indicates a kept/coefficient combination that does
	// not describe an interpolative decomposition of n columns.
	ErrInvalidSelection = errors.New("id: invalid column selection")
)
