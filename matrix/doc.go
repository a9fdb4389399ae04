// SPDX-License-Identifier: MIT

// Package matrix offers the dense linear-algebra layer used by the
// interpolative decomposition and the butterfly compressor.
//
// The matrix package provides:
//
//   - Dense, a row-major float64 matrix whose shapes may be empty (0×n, n×0),
//     because rank-0 skeletons and empty interpolation blocks are legal results.
//   - Gather helpers (Columns, RowRange, Submatrix) that copy index subsets.
//   - Mul/Transpose/Sub and norms, with gonum's blas64 doing the heavy products.
//   - PivotedQR, a column-pivoted Householder QR that stops at a residual
//     tolerance and reports the numerical rank.
//
// All public functions validate shapes and return sentinel errors (see
// errors.go); nothing panics on user input.
package matrix
