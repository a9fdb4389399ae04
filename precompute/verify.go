// SPDX-License-Identifier: MIT

package precompute

import (
	"fmt"

	"github.com/katalvlaran/wavemoth/butterfly"
	"github.com/katalvlaran/wavemoth/matrix"
)

// Residuals compares a tree with the dense matrix it was built from.
// Column residuals are relative to the largest column norm of the matrix,
// the scale the compression tolerance uses.
type Residuals struct {
	// Forward is max_j ||T·e_j - A·e_j|| / max_j ||A·e_j||.
	Forward float64
	// WorstColumn is the j attaining Forward.
	WorstColumn int
	// Transpose is the same bound for Tᵀ·e_i against the rows of A.
	Transpose float64
}

// Verify applies tree to the unit basis in both directions.
//
// Errors:
//   - butterfly.ErrShape if the shapes differ.
func Verify(tree *butterfly.Tree, a *matrix.Dense) (Residuals, error) {
	var res Residuals
	if a == nil || tree.Rows() != a.Rows() || tree.Cols() != a.Cols() {
		return res, fmt.Errorf("Verify: %w", butterfly.ErrShape)
	}
	if a.Rows() == 0 || a.Cols() == 0 {
		return res, nil
	}
	scale := maxOf(matrix.ColumnNorms(a))
	if scale == 0 {
		scale = 1
	}

	ic, _ := matrix.Identity(a.Cols())
	fwd, err := tree.Apply(ic)
	if err != nil {
		return res, fmt.Errorf("Verify: %w", err)
	}
	diff, err := matrix.Sub(fwd, a)
	if err != nil {
		return res, fmt.Errorf("Verify: %w", err)
	}
	for j, n := range matrix.ColumnNorms(diff) {
		if r := n / scale; r > res.Forward {
			res.Forward, res.WorstColumn = r, j
		}
	}

	ir, _ := matrix.Identity(a.Rows())
	back, err := tree.ApplyTranspose(ir)
	if err != nil {
		return res, fmt.Errorf("Verify: %w", err)
	}
	at, err := matrix.Transpose(a)
	if err != nil {
		return res, fmt.Errorf("Verify: %w", err)
	}
	if diff, err = matrix.Sub(back, at); err != nil {
		return res, fmt.Errorf("Verify: %w", err)
	}
	// Column i of Tᵀ·I is row i of T; compare against the same scale.
	dt, err := matrix.Transpose(diff)
	if err != nil {
		return res, fmt.Errorf("Verify: %w", err)
	}
	res.Transpose = maxOf(matrix.ColumnNorms(dt)) / scale

	return res, nil
}

func maxOf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if x > m {
			m = x
		}
	}

	return m
}
