// SPDX-License-Identifier: MIT
// Package matrix provides the dense kernels used by the decomposition and the
// butterfly apply engine: general matrix products (through gonum's blas64),
// transpose, difference, row gathering and column norms. All functions perform
// strict fail-fast validation and return clear errors on dimension mismatches.
//
// Notes:
//   - *Dense is row-major, which is exactly blas64.General's layout, so the
//     bridge is a zero-copy struct literal.
//   - gonum rejects zero strides, so every kernel short-circuits empty shapes
//     before reaching BLAS.

package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// NormZero is the additive identity for norm and accumulation operations.
const NormZero = 0.0

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opMul        = "Mul"
	opGemm       = "Gemm"
	opTranspose  = "Transpose"
	opSub        = "Sub"
	opGatherRows = "GatherRows"
	opMatVec     = "MatVec"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// general returns the blas64 view of m. The caller guarantees r, c > 0.
func (m *Dense) general() blas64.General {
	return blas64.General{Rows: m.r, Cols: m.c, Stride: m.c, Data: m.data}
}

// Gemm computes C = alpha*op(A)*op(B) + beta*C in place, where op(X) is X or
// Xᵀ depending on transA/transB.
//
// Implementation:
//   - Stage 1: validate non-nil operands and the conformal shapes of op(A), op(B), C.
//   - Stage 2: handle empty shapes (m, n or k == 0) without BLAS.
//   - Stage 3: dispatch to blas64.Gemm.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch.
//
// Complexity:
//   - Time O(m*n*k), Space O(1).
func Gemm(transA, transB bool, alpha float64, a, b *Dense, beta float64, c *Dense) error {
	if a == nil || b == nil || c == nil {
		return matrixErrorf(opGemm, ErrNilMatrix)
	}
	m, k := a.r, a.c
	if transA {
		m, k = a.c, a.r
	}
	kb, n := b.r, b.c
	if transB {
		kb, n = b.c, b.r
	}
	if k != kb || c.r != m || c.c != n {
		return matrixErrorf(opGemm, fmt.Errorf("op(A) %dx%d, op(B) %dx%d, C %dx%d: %w",
			m, k, kb, n, c.r, c.c, ErrDimensionMismatch))
	}
	if m == 0 || n == 0 {
		return nil
	}
	if k == 0 {
		scaleInPlace(c.data, beta)

		return nil
	}
	tA, tB := blas.NoTrans, blas.NoTrans
	if transA {
		tA = blas.Trans
	}
	if transB {
		tB = blas.Trans
	}
	blas64.Gemm(tA, tB, alpha, a.general(), b.general(), beta, c.general())

	return nil
}

// scaleInPlace multiplies every element by beta (beta == 0 clears, even NaN).
func scaleInPlace(data []float64, beta float64) {
	if beta == 1 {
		return
	}
	for i := range data {
		if beta == 0 {
			data[i] = 0
		} else {
			data[i] *= beta
		}
	}
}

// Mul performs standard matrix multiplication C = A × B into a fresh Dense.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (a.Cols != b.Rows).
func Mul(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(opMul, ErrNilMatrix)
	}
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out := Zeros(a.r, b.c)
	if err := Gemm(false, false, 1, a, b, 0, out); err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	return out, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
func Transpose(m *Dense) (*Dense, error) {
	if m == nil {
		return nil, matrixErrorf(opTranspose, ErrNilMatrix)
	}
	out := Zeros(m.c, m.r)
	var i, j int
	for i = 0; i < m.r; i++ {
		for j = 0; j < m.c; j++ {
			out.data[j*m.r+i] = m.data[i*m.c+j]
		}
	}

	return out, nil
}

// Sub computes the element-wise difference C = A - B into a fresh Dense.
func Sub(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(opSub, ErrNilMatrix)
	}
	if err := ValidateSameShape(a, b); err != nil {
		return nil, matrixErrorf(opSub, err)
	}
	out := Zeros(a.r, a.c)
	for i := range out.data {
		out.data[i] = a.data[i] - b.data[i]
	}

	return out, nil
}

// MatVec computes y = m * x for a column vector x.
func MatVec(m *Dense, x []float64) ([]float64, error) {
	if m == nil {
		return nil, matrixErrorf(opMatVec, ErrNilMatrix)
	}
	if len(x) != m.c {
		return nil, matrixErrorf(opMatVec, ErrDimensionMismatch)
	}
	y := make([]float64, m.r)
	var (
		i, j int
		sum  float64
	)
	for i = 0; i < m.r; i++ {
		sum = NormZero
		row := m.data[i*m.c : (i+1)*m.c]
		for j = 0; j < m.c; j++ {
			sum += row[j] * x[j]
		}
		y[i] = sum
	}

	return y, nil
}

// GatherRows copies the rows named by idx into a new len(idx)×Cols() matrix.
func (m *Dense) GatherRows(idx IndexSet) (*Dense, error) {
	out := Zeros(len(idx), m.c)
	for p, i := range idx {
		if i < 0 || i >= m.r {
			return nil, matrixErrorf(opGatherRows, denseErrorf(opGatherRows, i, 0, ErrOutOfRange))
		}
		copy(out.data[p*m.c:(p+1)*m.c], m.data[i*m.c:(i+1)*m.c])
	}

	return out, nil
}

// ColumnNorms returns the Euclidean norm of every column.
//
// Complexity:
//   - Time O(r*c), Space O(c).
func ColumnNorms(m *Dense) []float64 {
	norms := make([]float64, m.c)
	var i, j int
	for i = 0; i < m.r; i++ {
		row := m.data[i*m.c : (i+1)*m.c]
		for j = 0; j < m.c; j++ {
			norms[j] += row[j] * row[j]
		}
	}
	for j = range norms {
		norms[j] = math.Sqrt(norms[j])
	}

	return norms
}

// FrobeniusNorm returns sqrt(sum of squares) of all elements.
func FrobeniusNorm(m *Dense) float64 {
	sum := NormZero
	for _, v := range m.data {
		sum += v * v
	}

	return math.Sqrt(sum)
}

// MaxAbs returns the largest absolute element (0 for empty matrices).
func MaxAbs(m *Dense) float64 {
	best := NormZero
	for _, v := range m.data {
		if a := math.Abs(v); a > best {
			best = a
		}
	}

	return best
}
