// Package matrix_test contains unit tests for the Dense implementation
// of the Matrix interface in the matrix package.
package matrix_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/wavemoth/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDenseDimensions ensures that NewDense rejects negative dimensions
// and accepts empty shapes.
func TestNewDenseDimensions(t *testing.T) {
	_, err := matrix.NewDense(-1, 5)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	m, err := matrix.NewDense(4, 0) // rank-0 skeletons look like this
	require.NoError(t, err)
	require.Equal(t, 4, m.Rows())
	require.Equal(t, 0, m.Cols())
	require.Equal(t, 0, m.Len())
}

// TestNewDenseFromLength verifies the backing slice length contract.
func TestNewDenseFromLength(t *testing.T) {
	_, err := matrix.NewDenseFrom(2, 2, []float64{1, 2, 3})
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	m, err := matrix.NewDenseFrom(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	v, err := m.At(1, 0)
	require.NoError(t, err)
	require.Equal(t, 3.0, v)
}

// TestAtSetOutOfBounds ensures At() and Set() return ErrOutOfRange on invalid access.
func TestAtSetOutOfBounds(t *testing.T) {
	m := matrix.Zeros(2, 2)

	_, err := m.At(-1, 0)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	_, err = m.At(0, 2)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	err = m.Set(2, 0, 1.23)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
}

// TestSetRejectsNaN checks the numeric policy and its opt-out.
func TestSetRejectsNaN(t *testing.T) {
	m := matrix.Zeros(1, 1)
	require.ErrorIs(t, m.Set(0, 0, math.NaN()), matrix.ErrNaNInf)

	m.NoValidation()
	require.NoError(t, m.Set(0, 0, math.Inf(1)))
}

// TestCopyIndependence ensures Copy() returns a deep copy that does not share storage.
func TestCopyIndependence(t *testing.T) {
	m := matrix.Zeros(2, 2)
	_ = m.Set(0, 0, 1.0)

	clone := m.Copy()
	_ = clone.Set(0, 0, 3.0)

	v, _ := m.At(0, 0)
	require.Equal(t, 1.0, v)
}

// TestColumnsAndSubmatrix checks column gathering and fused row+column extraction.
func TestColumnsAndSubmatrix(t *testing.T) {
	m, err := matrix.NewDenseFrom(3, 4, []float64{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
	})
	require.NoError(t, err)

	cols, err := m.Columns(matrix.IndexSet{3, 1})
	require.NoError(t, err)
	require.Equal(t, []float64{3, 1, 13, 11, 23, 21}, cols.Raw())

	sub, err := m.Submatrix(1, 3, matrix.IndexSet{0, 2})
	require.NoError(t, err)
	require.Equal(t, []float64{10, 12, 20, 22}, sub.Raw())

	_, err = m.Columns(matrix.IndexSet{4})
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	rows, err := m.RowRange(2, 3)
	require.NoError(t, err)
	require.Equal(t, []float64{20, 21, 22, 23}, rows.Raw())

	empty, err := m.Columns(matrix.IndexSet{})
	require.NoError(t, err)
	require.Equal(t, 3, empty.Rows())
	require.Equal(t, 0, empty.Cols())
}

// TestIndexSet covers ordering checks and helpers.
func TestIndexSet(t *testing.T) {
	require.True(t, matrix.IndexSet{0, 2, 5}.Sorted())
	require.False(t, matrix.IndexSet{0, 2, 2}.Sorted())
	require.ErrorIs(t, matrix.IndexSet{1, 0}.Validate(3), matrix.ErrUnsortedIndex)
	require.ErrorIs(t, matrix.IndexSet{1, 3}.Validate(3), matrix.ErrOutOfRange)
	require.NoError(t, matrix.IndexSet{}.Validate(0))

	require.Equal(t, matrix.IndexSet{2, 3, 4}, matrix.Range(2, 5))
	require.Equal(t, matrix.IndexSet{}, matrix.Range(3, 3))
	require.Equal(t, matrix.IndexSet{7, 9}, matrix.IndexSet{5, 7, 9}.Pick(matrix.IndexSet{1, 2}))
	require.Equal(t, matrix.IndexSet{1, 2, 8}, matrix.Concat(matrix.IndexSet{1, 2}, matrix.IndexSet{8}))
}

// diag is a read-only Matrix that is not a *Dense.
type diag []float64

func (d diag) Rows() int { return len(d) }
func (d diag) Cols() int { return len(d) }
func (d diag) At(i, j int) (float64, error) {
	if i < 0 || j < 0 || i >= len(d) || j >= len(d) {
		return 0, matrix.ErrOutOfRange
	}
	if i == j {
		return d[i], nil
	}

	return 0, nil
}
func (d diag) Set(int, int, float64) error { return matrix.ErrOutOfRange }
func (d diag) Clone() matrix.Matrix        { return append(diag(nil), d...) }

func TestAsDense(t *testing.T) {
	got, err := matrix.AsDense(diag{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0, 2, 0, 0, 0, 3}, got.Raw())

	same, err := matrix.AsDense(got)
	require.NoError(t, err)
	assert.Same(t, got, same)

	_, err = matrix.AsDense(nil)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}
