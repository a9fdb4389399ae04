package matrix_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/wavemoth/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustDense builds a Dense from row-major values or fails the test.
func mustDense(t *testing.T, r, c int, vals ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(r, c, vals)
	require.NoError(t, err)

	return m
}

// TestMul verifies a small product and the mismatch sentinel.
func TestMul(t *testing.T) {
	a := mustDense(t, 2, 3, 1, 2, 3, 4, 5, 6)
	b := mustDense(t, 3, 2, 7, 8, 9, 10, 11, 12)

	c, err := matrix.Mul(a, b)
	require.NoError(t, err)
	require.Equal(t, []float64{58, 64, 139, 154}, c.Raw())

	_, err = matrix.Mul(a, a)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestGemmTransposeAndEmpty covers op(A)=Aᵀ and the empty-k shortcut.
func TestGemmTransposeAndEmpty(t *testing.T) {
	a := mustDense(t, 3, 2, 1, 2, 3, 4, 5, 6) // Aᵀ is 2×3
	x := mustDense(t, 3, 1, 1, 1, 1)
	y := matrix.Zeros(2, 1)
	require.NoError(t, matrix.Gemm(true, false, 1, a, x, 0, y))
	require.Equal(t, []float64{9, 12}, y.Raw())

	// k == 0: C = beta*C.
	empty := matrix.Zeros(2, 0)
	rhs := matrix.Zeros(0, 1)
	require.NoError(t, matrix.Gemm(false, false, 1, empty, rhs, 2, y))
	require.Equal(t, []float64{18, 24}, y.Raw())

	require.ErrorIs(t, matrix.Gemm(false, false, 1, a, a, 0, y), matrix.ErrDimensionMismatch)
}

// TestTransposeSubNorms checks the small helpers used by tests and stats.
func TestTransposeSubNorms(t *testing.T) {
	a := mustDense(t, 2, 2, 3, 0, 4, 0)
	at, err := matrix.Transpose(a)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4, 0, 0}, at.Raw())

	d, err := matrix.Sub(a, a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, matrix.FrobeniusNorm(d))

	assert.Equal(t, []float64{5, 0}, matrix.ColumnNorms(a))
	assert.Equal(t, 5.0, matrix.FrobeniusNorm(a))
	assert.Equal(t, 4.0, matrix.MaxAbs(a))

	y, err := matrix.MatVec(a, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, y)
}

// TestGatherRows checks row gathering and its bounds error.
func TestGatherRows(t *testing.T) {
	a := mustDense(t, 3, 1, 1, 2, 3)
	g, err := a.GatherRows(matrix.IndexSet{2, 0})
	require.NoError(t, err)
	require.Equal(t, []float64{3, 1}, g.Raw())

	_, err = a.GatherRows(matrix.IndexSet{3})
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
}

// TestValidateFinite checks NaN/Inf detection.
func TestValidateFinite(t *testing.T) {
	a := mustDense(t, 1, 2, 1, math.Inf(-1))
	require.ErrorIs(t, matrix.ValidateFinite(a), matrix.ErrNaNInf)
	require.True(t, matrix.HasNonFinite(a))
	require.NoError(t, matrix.ValidateFinite(matrix.Zeros(2, 2)))
	require.ErrorIs(t, matrix.ValidateTolerance(-1), matrix.ErrBadTolerance)
}
