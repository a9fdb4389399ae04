// SPDX-License-Identifier: MIT

package id

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/wavemoth/matrix"
)

const (
	opDecompose       = "Decompose"
	opDecomposeSparse = "DecomposeSparse"
)

// Decomposition is the dense form of an ID: A ≈ Skeleton · Interpolation().
type Decomposition struct {
	Skeleton *matrix.Dense // rows×k, columns in ascending original order
	Coeffs   *matrix.Dense // k×(cols-k)

	sel *Selection
}

// Rank is the number of kept columns k.
func (d *Decomposition) Rank() int { return d.sel.Rank() }

// Interpolation returns the k×cols interpolation matrix P.
func (d *Decomposition) Interpolation() *matrix.Dense { return d.sel.Interpolation() }

// Reconstruct returns Skeleton · Interpolation(), the rows×cols approximation.
func (d *Decomposition) Reconstruct() (*matrix.Dense, error) {
	return matrix.Mul(d.Skeleton, d.sel.Interpolation())
}

// SparseDecomposition is the ID together with its explicit column sets.
type SparseDecomposition struct {
	Selection
	Skeleton *matrix.Dense // A[:, Kept]
}

// Reconstruct returns Skeleton · Interpolation().
func (d *SparseDecomposition) Reconstruct() (*matrix.Dense, error) {
	return matrix.Mul(d.Skeleton, d.Interpolation())
}

// Decompose computes the interpolative decomposition of a at tolerance eps.
//
// Behavior highlights:
//   - A zero matrix of shape (m, n) gives Skeleton (m, 0) and Coeffs (0, n).
//   - With WithRaiseOnFPError(false), columns holding NaN or ±Inf are never
//     kept and their coefficients carry the non-finite values; a block with no
//     finite nonzero column has rank 0.
//   - An incompressible matrix keeps every column (k == cols, Coeffs k×0).
//
// Errors:
//   - ErrInvalidTolerance, ErrNumerical, matrix.ErrNilMatrix.
//
// Complexity:
//   - Time O(m·n·k + k²·(n-k)), Space O(m·n).
func Decompose(a *matrix.Dense, eps float64, opts ...Option) (*Decomposition, error) {
	sd, err := DecomposeSparse(a, eps, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opDecompose, err)
	}

	return &Decomposition{Skeleton: sd.Skeleton, Coeffs: sd.Coeffs, sel: &sd.Selection}, nil
}

// DecomposeSparse computes the ID of a and reports which columns were kept.
//
// Implementation:
//   - Stage 1: validate eps and (when raising) finiteness of a; the absolute
//     tolerance is eps · max column norm.
//   - Stage 2: matrix.PivotedQR truncated at that tolerance gives rank k,
//     the pivot permutation and R = [R11 R12].
//   - Stage 3: T = R11⁻¹·R12 via a triangular solve.
//   - Stage 4: sort the kept and interpolated pivots ascending and permute
//     the rows and columns of T accordingly.
//
// Invariants of the result:
//   - Kept and Interpolated are ascending, disjoint and cover [0, cols).
//   - len(Kept) == Skeleton.Cols() == Coeffs.Rows().
//   - len(Interpolated) == Coeffs.Cols().
//
// Errors:
//   - ErrInvalidTolerance, ErrNumerical, matrix.ErrNilMatrix.
func DecomposeSparse(a *matrix.Dense, eps float64, opts ...Option) (*SparseDecomposition, error) {
	if a == nil {
		return nil, fmt.Errorf("%s: %w", opDecomposeSparse, matrix.ErrNilMatrix)
	}
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		return nil, fmt.Errorf("%s: eps=%g: %w", opDecomposeSparse, eps, ErrInvalidTolerance)
	}
	o := gatherOptions(opts)
	if o.RaiseOnFPError && matrix.HasNonFinite(a) {
		return nil, fmt.Errorf("%s: input: %w", opDecomposeSparse, ErrNumerical)
	}
	m, n := a.Shape()

	// Only finite norms set the scale; NaN never wins the comparison.
	scale := matrix.NormZero
	for _, v := range matrix.ColumnNorms(a) {
		if v > scale && !math.IsInf(v, 1) {
			scale = v
		}
	}
	if scale == matrix.NormZero {
		return rankZero(m, n, o), nil
	}

	qr, err := matrix.PivotedQR(a, eps*scale, o.MaxRank)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opDecomposeSparse, err)
	}
	k := qr.Rank
	t := qr.R12()
	if !o.RaiseOnFPError {
		t.NoValidation()
	}
	if err = matrix.SolveUpper(qr.R11(), t); err != nil {
		return nil, fmt.Errorf("%s: %w", opDecomposeSparse, err)
	}
	if o.RaiseOnFPError && matrix.HasNonFinite(t) {
		return nil, fmt.Errorf("%s: coefficients: %w", opDecomposeSparse, ErrNumerical)
	}

	keptOrder := pivotOrder(qr.Perm[:k])
	interpOrder := pivotOrder(qr.Perm[k:])
	kept := make(matrix.IndexSet, k)
	for p, r := range keptOrder {
		kept[p] = qr.Perm[r]
	}
	interp := make(matrix.IndexSet, n-k)
	for q, c := range interpOrder {
		interp[q] = qr.Perm[k+c]
	}

	coeffs := matrix.Zeros(k, n-k)
	if !o.RaiseOnFPError {
		coeffs.NoValidation()
	}
	dst, src := coeffs.Raw(), t.Raw()
	for p, r := range keptOrder {
		for q, c := range interpOrder {
			dst[p*(n-k)+q] = src[r*(n-k)+c]
		}
	}

	skel, err := a.Columns(kept)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opDecomposeSparse, err)
	}

	return &SparseDecomposition{
		Selection: Selection{N: n, Kept: kept, Interpolated: interp, Coeffs: coeffs},
		Skeleton:  skel,
	}, nil
}

// rankZero builds the k == 0 result: every column is interpolated.
func rankZero(m, n int, o Options) *SparseDecomposition {
	skel := matrix.Zeros(m, 0)
	coeffs := matrix.Zeros(0, n)
	if !o.RaiseOnFPError {
		skel.NoValidation()
		coeffs.NoValidation()
	}

	return &SparseDecomposition{
		Selection: Selection{N: n, Kept: matrix.IndexSet{}, Interpolated: matrix.Range(0, n), Coeffs: coeffs},
		Skeleton:  skel,
	}
}

// pivotOrder returns the positions 0..len(cols)-1 sorted by cols[position].
func pivotOrder(cols []int) []int {
	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool { return cols[order[x]] < cols[order[y]] })

	return order
}
