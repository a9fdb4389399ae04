// SPDX-License-Identifier: MIT

// Package matrix - column-pivoted Householder QR with tolerance truncation.
//
// Purpose:
//   - Reveal the numerical rank of a block: at step s the column with the
//     largest residual norm (over rows s..m-1) is swapped to position s and
//     eliminated; the process stops once that largest norm is <= tol.
//   - Feed the interpolative decomposition: A·P = Q·[R11 R12; 0 R22] with
//     ‖R22[:, j]‖ <= tol for every trailing column j.
//
// Notes:
//   - Q is never formed; the interpolative decomposition only needs R11/R12.
//   - Residual norms are recomputed exactly at every step instead of being
//     downdated, which keeps cancellation out of the stopping rule.
package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

const (
	opPivotedQR  = "PivotedQR"
	opSolveUpper = "SolveUpper"
)

// QRFactor is the truncated result of PivotedQR.
type QRFactor struct {
	// Rank is the number of eliminated columns (the numerical rank at tol).
	Rank int

	// Perm is the column permutation: column p of A·P is column Perm[p] of A.
	Perm []int

	// R holds the reduced matrix (m×n, permuted column order). Its leading
	// Rank×Rank block is upper triangular (R11); R[:Rank, Rank:] is R12.
	R *Dense

	// MaxResidual is the largest trailing residual column norm after Rank steps.
	MaxResidual float64
}

// PivotedQR factors a copy of a with column pivoting, truncating at tol.
//
// Implementation:
//   - Stage 1: validate tol; copy a into a work buffer; Perm = identity.
//   - Stage 2: for s = 0.. compute trailing norms, choose the pivot, stop if
//     the pivot norm <= tol (or s hits min(m,n) or maxRank when maxRank > 0).
//   - Stage 3: swap the pivot in and apply one Householder reflector to the
//     trailing columns (row-major friendly: one pass for vᵀW, one for the update).
//
// Behavior highlights:
//   - A zero matrix yields Rank == 0 for any tol >= 0.
//   - NaN and +Inf norms never win the pivot search; a block whose remaining
//     norms are all non-finite stops the elimination and leaves them in R12.
//
// Errors:
//   - ErrNilMatrix, ErrBadTolerance.
//
// Complexity:
//   - Time O(m*n*Rank), Space O(m*n).
func PivotedQR(a *Dense, tol float64, maxRank int) (*QRFactor, error) {
	if a == nil {
		return nil, matrixErrorf(opPivotedQR, ErrNilMatrix)
	}
	if err := ValidateTolerance(tol); err != nil {
		return nil, matrixErrorf(opPivotedQR, err)
	}
	m, n := a.r, a.c
	w := a.Copy()
	perm := make([]int, n)
	for j := range perm {
		perm[j] = j
	}
	limit := m
	if n < limit {
		limit = n
	}
	if maxRank > 0 && maxRank < limit {
		limit = maxRank
	}

	var (
		s, i, j, p  int
		best, alpha float64
		beta, tau   float64
		norm, val   float64
	)
	norms := make([]float64, n)
	v := make([]float64, m)
	proj := make([]float64, n)
	f := &QRFactor{Perm: perm, R: w}
	for s = 0; ; s++ {
		// Residual norms over rows s..m-1 for columns s..n-1.
		for j = s; j < n; j++ {
			norms[j] = NormZero
		}
		for i = s; i < m; i++ {
			row := w.data[i*n : (i+1)*n]
			for j = s; j < n; j++ {
				norms[j] += row[j] * row[j]
			}
		}
		best, p = -1, -1
		for j = s; j < n; j++ {
			norms[j] = math.Sqrt(norms[j])
			if norms[j] > best && !math.IsInf(norms[j], 1) {
				best, p = norms[j], j
			}
		}
		if p < 0 {
			best = NormZero
		}
		f.MaxResidual = best
		if s >= limit || p < 0 || best <= tol {
			f.Rank = s
			if s >= limit && (s == m || s == n) {
				f.MaxResidual = NormZero
			}

			break
		}

		// Swap pivot column p into position s.
		if p != s {
			for i = 0; i < m; i++ {
				row := w.data[i*n : (i+1)*n]
				row[s], row[p] = row[p], row[s]
			}
			perm[s], perm[p] = perm[p], perm[s]
			norms[s], norms[p] = norms[p], norms[s]
		}

		// Householder vector for column s, rows s..m-1.
		norm = norms[s]
		val = w.data[s*n+s]
		alpha = -math.Copysign(norm, val)
		for i = s; i < m; i++ {
			v[i] = w.data[i*n+s]
		}
		v[s] -= alpha
		beta = NormZero
		for i = s; i < m; i++ {
			beta += v[i] * v[i]
		}
		if beta == NormZero {
			// Column already in triangular form (only possible when norm == |val|).
			continue
		}
		tau = 2.0 / beta

		// proj[j] = vᵀ W[s:, j] for trailing columns.
		for j = s + 1; j < n; j++ {
			proj[j] = NormZero
		}
		for i = s; i < m; i++ {
			vi := v[i]
			row := w.data[i*n : (i+1)*n]
			for j = s + 1; j < n; j++ {
				proj[j] += vi * row[j]
			}
		}
		for i = s; i < m; i++ {
			scale := tau * v[i]
			row := w.data[i*n : (i+1)*n]
			for j = s + 1; j < n; j++ {
				row[j] -= scale * proj[j]
			}
		}
		// Column s becomes (alpha, 0, ..., 0).
		w.data[s*n+s] = alpha
		for i = s + 1; i < m; i++ {
			w.data[i*n+s] = NormZero
		}
	}

	return f, nil
}

// R11 copies the leading Rank×Rank upper-triangular block.
func (f *QRFactor) R11() *Dense {
	k, n := f.Rank, f.R.c
	out := Zeros(k, k)
	for i := 0; i < k; i++ {
		copy(out.data[i*k+i:(i+1)*k], f.R.data[i*n+i:i*n+k])
	}

	return out
}

// R12 copies the Rank×(n-Rank) block to the right of R11.
func (f *QRFactor) R12() *Dense {
	k, n := f.Rank, f.R.c
	out := Zeros(k, n-k)
	for i := 0; i < k; i++ {
		copy(out.data[i*(n-k):(i+1)*(n-k)], f.R.data[i*n+k:(i+1)*n])
	}

	return out
}

// SolveUpper overwrites b with R⁻¹·b, where r is square upper triangular.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (r not square or r.Rows != b.Rows).
//
// Complexity:
//   - Time O(k²·n) through blas64.Trsm.
func SolveUpper(r, b *Dense) error {
	if r == nil || b == nil {
		return matrixErrorf(opSolveUpper, ErrNilMatrix)
	}
	if r.r != r.c || r.r != b.r {
		return matrixErrorf(opSolveUpper, fmt.Errorf("R %dx%d, B %dx%d: %w", r.r, r.c, b.r, b.c, ErrDimensionMismatch))
	}
	if r.r == 0 || b.c == 0 {
		return nil
	}
	tri := blas64.Triangular{
		Uplo:   blas.Upper,
		Diag:   blas.NonUnit,
		N:      r.r,
		Stride: r.c,
		Data:   r.data,
	}
	blas64.Trsm(blas.Left, blas.NoTrans, 1, tri, b.general())

	return nil
}
