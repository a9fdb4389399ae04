// SPDX-License-Identifier: MIT

package id

import (
	"fmt"

	"github.com/katalvlaran/wavemoth/matrix"
)

const (
	opNewSelection   = "NewSelection"
	opApply          = "Selection.Apply"
	opApplyTranspose = "Selection.ApplyTranspose"
)

// Selection is the column-selection half of an ID over N columns:
// Kept and Interpolated partition [0, N) (both ascending) and Coeffs is the
// len(Kept)×len(Interpolated) block expressing each interpolated column as a
// combination of the kept ones.
//
// A Selection is immutable once built; its slices must not be modified.
type Selection struct {
	N            int
	Kept         matrix.IndexSet
	Interpolated matrix.IndexSet
	Coeffs       *matrix.Dense
}

// NewSelection rebuilds a Selection from its stored parts. Interpolated is
// derived as the ascending complement of kept.
//
// Errors:
//   - ErrInvalidSelection if kept is not ascending within [0, n) or coeffs
//     is not len(kept)×(n-len(kept)).
func NewSelection(n int, kept matrix.IndexSet, coeffs *matrix.Dense) (*Selection, error) {
	if n < 0 {
		return nil, fmt.Errorf("%s: n=%d: %w", opNewSelection, n, ErrInvalidSelection)
	}
	if err := kept.Validate(n); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", opNewSelection, err, ErrInvalidSelection)
	}
	k := len(kept)
	if coeffs == nil || coeffs.Rows() != k || coeffs.Cols() != n-k {
		return nil, fmt.Errorf("%s: coefficients must be %dx%d: %w", opNewSelection, k, n-k, ErrInvalidSelection)
	}

	return &Selection{N: n, Kept: kept, Interpolated: complement(n, kept), Coeffs: coeffs}, nil
}

// complement returns [0, n) \ kept in ascending order; kept must be ascending.
func complement(n int, kept matrix.IndexSet) matrix.IndexSet {
	out := make(matrix.IndexSet, 0, n-len(kept))
	p := 0
	for j := 0; j < n; j++ {
		if p < len(kept) && kept[p] == j {
			p++

			continue
		}
		out = append(out, j)
	}

	return out
}

// Rank is the number of kept columns.
func (s *Selection) Rank() int { return len(s.Kept) }

// Interpolation expands Coeffs into the full k×N matrix P with
// P[:, Kept] = I and P[:, Interpolated] = Coeffs.
func (s *Selection) Interpolation() *matrix.Dense {
	k := len(s.Kept)
	p := matrix.Zeros(k, s.N)
	p.NoValidation()
	raw, coeffs := p.Raw(), s.Coeffs.Raw()
	nip := len(s.Interpolated)
	for r := 0; r < k; r++ {
		raw[r*s.N+s.Kept[r]] = 1
		for q, j := range s.Interpolated {
			raw[r*s.N+j] = coeffs[r*nip+q]
		}
	}

	return p
}

// Apply computes dst = P·src = src[Kept] + Coeffs·src[Interpolated] for a
// batch of vectors stored as the rows×nvec matrix src (rows == N).
// dst must be k×nvec; it is overwritten.
//
// Complexity:
//   - Time O(k·(N-k)·nvec) through blas64.Gemm.
func (s *Selection) Apply(src, dst *matrix.Dense) error {
	if src == nil || dst == nil {
		return fmt.Errorf("%s: %w", opApply, matrix.ErrNilMatrix)
	}
	nvec := src.Cols()
	if src.Rows() != s.N || dst.Rows() != len(s.Kept) || dst.Cols() != nvec {
		return fmt.Errorf("%s: src %dx%d, dst %dx%d, N=%d k=%d: %w", opApply,
			src.Rows(), nvec, dst.Rows(), dst.Cols(), s.N, len(s.Kept), matrix.ErrDimensionMismatch)
	}
	for p, j := range s.Kept {
		copy(dst.Row(p), src.Row(j))
	}
	if len(s.Interpolated) == 0 || len(s.Kept) == 0 {
		return nil
	}
	rest, err := src.GatherRows(s.Interpolated)
	if err != nil {
		return fmt.Errorf("%s: %w", opApply, err)
	}
	if err = matrix.Gemm(false, false, 1, s.Coeffs, rest, 1, dst); err != nil {
		return fmt.Errorf("%s: %w", opApply, err)
	}

	return nil
}

// ApplyTranspose accumulates dst += Pᵀ·w, where w is k×nvec and dst is
// N×nvec: dst[Kept] += w and dst[Interpolated] += Coeffsᵀ·w.
func (s *Selection) ApplyTranspose(w, dst *matrix.Dense) error {
	if w == nil || dst == nil {
		return fmt.Errorf("%s: %w", opApplyTranspose, matrix.ErrNilMatrix)
	}
	nvec := w.Cols()
	if w.Rows() != len(s.Kept) || dst.Rows() != s.N || dst.Cols() != nvec {
		return fmt.Errorf("%s: w %dx%d, dst %dx%d, N=%d k=%d: %w", opApplyTranspose,
			w.Rows(), nvec, dst.Rows(), dst.Cols(), s.N, len(s.Kept), matrix.ErrDimensionMismatch)
	}
	for p, j := range s.Kept {
		addTo(dst.Row(j), w.Row(p))
	}
	if len(s.Interpolated) == 0 || len(s.Kept) == 0 {
		return nil
	}
	t := matrix.Zeros(len(s.Interpolated), nvec)
	if err := matrix.Gemm(true, false, 1, s.Coeffs, w, 0, t); err != nil {
		return fmt.Errorf("%s: %w", opApplyTranspose, err)
	}
	for q, j := range s.Interpolated {
		addTo(dst.Row(j), t.Row(q))
	}

	return nil
}

func addTo(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}
