// SPDX-License-Identifier: MIT

package butterfly

import (
	"fmt"

	"github.com/katalvlaran/wavemoth/matrix"
)

const (
	opApply          = "Apply"
	opApplyTranspose = "ApplyTranspose"
)

// Apply computes y ≈ A·x for a batch of vectors: x is cols×nvec (one vector
// per column), the result is rows×nvec.
//
// Implementation:
//   - Stage 1: root groups interpolate their chunk of x.
//   - Stage 2: in arena order, every child group interpolates the stacked
//     coefficients of its two parent groups; leaves add D·z into y.
//
// Errors:
//   - ErrShape if x is nil or x.Rows() != Cols().
//
// Complexity:
//   - Time O(Size()·nvec), Space O(Σ k·nvec) for the intermediate coefficients.
func (t *Tree) Apply(x *matrix.Dense) (*matrix.Dense, error) {
	if x == nil || x.Rows() != t.cols {
		return nil, fmt.Errorf("%s: want %d rows: %w", opApply, t.cols, ErrShape)
	}
	nvec := x.Cols()
	y := matrix.Zeros(t.rows, nvec)
	y.NoValidation()
	z := make([][]*matrix.Dense, len(t.nodes))

	var (
		src *matrix.Dense
		err error
	)
	for v := range t.nodes {
		nd := &t.nodes[v]
		z[v] = make([]*matrix.Dense, len(nd.groups))
		for g := range nd.groups {
			gr := &nd.groups[g]
			if nd.parent == noNode {
				lo, hi := t.chunk(g)
				if src, err = x.RowRange(lo, hi); err != nil {
					return nil, fmt.Errorf("%s: %w", opApply, err)
				}
			} else {
				src = stackPair(z[nd.parent], g, nvec)
			}
			out := matrix.Zeros(gr.sel.Rank(), nvec)
			out.NoValidation()
			if err = gr.sel.Apply(src, out); err != nil {
				return nil, fmt.Errorf("%s: node %d group %d: %w", opApply, v, g, err)
			}
			z[v][g] = out
			if gr.dense == nil {
				continue
			}
			part := matrix.Zeros(nd.rows(), nvec)
			if err = matrix.Gemm(false, false, 1, gr.dense, out, 0, part); err != nil {
				return nil, fmt.Errorf("%s: node %d group %d: %w", opApply, v, g, err)
			}
			addRows(y, nd.rowStart, part.Raw())
		}
		// Intermediates of a parent are dead once its second child is done.
		if nd.parent != noNode && t.nodes[nd.parent].children[1] == v {
			z[nd.parent] = nil
		}
	}

	return y, nil
}

// ApplyTranspose computes x ≈ Aᵀ·y for a batch of vectors: y is rows×nvec,
// the result is cols×nvec.
//
// Implementation:
//   - Stage 1: in reverse arena order, leaves form w = Dᵀ·y[rows]; internal
//     groups use the coefficients accumulated from their children.
//   - Stage 2: every group expands s = Pᵀ·w over its source; child groups
//     split s between the two parent groups they merged, root groups write
//     s into their column chunk.
//
// Errors:
//   - ErrShape if y is nil or y.Rows() != Rows().
func (t *Tree) ApplyTranspose(y *matrix.Dense) (*matrix.Dense, error) {
	if y == nil || y.Rows() != t.rows {
		return nil, fmt.Errorf("%s: want %d rows: %w", opApplyTranspose, t.rows, ErrShape)
	}
	nvec := y.Cols()
	x := matrix.Zeros(t.cols, nvec)
	x.NoValidation()

	acc := make([][]*matrix.Dense, len(t.nodes))
	for v := range t.nodes {
		nd := &t.nodes[v]
		if nd.leaf() {
			continue
		}
		acc[v] = make([]*matrix.Dense, len(nd.groups))
		for g := range nd.groups {
			acc[v][g] = matrix.Zeros(nd.groups[g].sel.Rank(), nvec)
			acc[v][g].NoValidation()
		}
	}

	var (
		yr  *matrix.Dense
		w   *matrix.Dense
		err error
	)
	for v := len(t.nodes) - 1; v >= 0; v-- {
		nd := &t.nodes[v]
		if nd.leaf() {
			if yr, err = y.RowRange(nd.rowStart, nd.rowEnd); err != nil {
				return nil, fmt.Errorf("%s: %w", opApplyTranspose, err)
			}
		}
		for g := range nd.groups {
			gr := &nd.groups[g]
			if gr.dense != nil {
				w = matrix.Zeros(gr.sel.Rank(), nvec)
				if err = matrix.Gemm(true, false, 1, gr.dense, yr, 0, w); err != nil {
					return nil, fmt.Errorf("%s: node %d group %d: %w", opApplyTranspose, v, g, err)
				}
			} else {
				w = acc[v][g]
			}
			s := matrix.Zeros(gr.sel.N, nvec)
			s.NoValidation()
			if err = gr.sel.ApplyTranspose(w, s); err != nil {
				return nil, fmt.Errorf("%s: node %d group %d: %w", opApplyTranspose, v, g, err)
			}
			if nd.parent == noNode {
				lo, _ := t.chunk(g)
				addRows(x, lo, s.Raw())

				continue
			}
			splitPair(acc[nd.parent], g, s)
		}
		acc[v] = nil
	}

	return x, nil
}

// stackPair returns the vertical concatenation of parent coefficients
// 2h and 2h+1 (the latter may not exist).
func stackPair(parent []*matrix.Dense, h, nvec int) *matrix.Dense {
	first := parent[2*h]
	var second *matrix.Dense
	if 2*h+1 < len(parent) {
		second = parent[2*h+1]
	}
	n := first.Rows()
	if second != nil {
		n += second.Rows()
	}
	out := matrix.Zeros(n, nvec)
	out.NoValidation()
	raw := out.Raw()
	copy(raw, first.Raw())
	if second != nil {
		copy(raw[first.Len():], second.Raw())
	}

	return out
}

// splitPair adds the top rows of s into parent[2h] and the rest into parent[2h+1].
func splitPair(parent []*matrix.Dense, h int, s *matrix.Dense) {
	first := parent[2*h]
	k := first.Rows()
	addRows(first, 0, rowsOf(s, 0, k))
	if 2*h+1 < len(parent) {
		addRows(parent[2*h+1], 0, rowsOf(s, k, s.Rows()))
	}
}

// rowsOf returns the raw row-major slice of rows [lo, hi) of m.
func rowsOf(m *matrix.Dense, lo, hi int) []float64 {
	c := m.Cols()

	return m.Raw()[lo*c : hi*c]
}

// addRows adds src (row-major, same column count as dst) into dst starting at row r0.
func addRows(dst *matrix.Dense, r0 int, src []float64) {
	out := dst.Raw()[r0*dst.Cols():]
	for i, v := range src {
		out[i] += v
	}
}
