// SPDX-License-Identifier: MIT

// Package matrix - Dense storage (row-major) & safe accessors.
//
// Purpose:
//   - Provide a cache-friendly row-major buffer with the explicit index formula i*cols + j.
//   - Guarantee safety at the public surface: At/Set return errors instead of panicking.
//   - Allow empty shapes: a rank-0 skeleton is rows×0 and its coefficients 0×cols.
//   - Copy-based extraction of column subsets and row windows (Columns, RowRange, Submatrix).
//
// Complexity quicksheet:
//   - NewDense: O(r*c) zero-init; At/Set: O(1); Clone: O(r*c); Columns: O(r*k).

package matrix

import (
	"fmt"
	"math"
	"strings"
)

// ---------- error context tags ----------

const (
	ctxAt        = "At"        // method tag used in error wrappers
	ctxSet       = "Set"       // method tag used in error wrappers
	ctxColumns   = "Columns"   // gather tag
	ctxRowRange  = "RowRange"  // window tag
	ctxSubmatrix = "Submatrix" // gather tag
	ctxFrom      = "NewDenseFrom"
)

// ---------- Formatting literals  ----------
const (
	_fmtRowOpen  = "["
	_fmtRowClose = "]\n"
	_fmtSep      = ", "
)

// denseErrorf wraps an error with a uniform Dense context and callsite indices.
func denseErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Dense.%s(%d,%d): %w", method, row, col, err)
}

// Dense is a concrete row-major matrix.
//   - r,c hold dimensions (rows, cols), both >= 0.
//   - data is a flat buffer of length r*c in row-major order (offset = i*c + j).
//   - validateNaNInf enables optional NaN/Inf rejection in Set.
type Dense struct {
	r, c           int       // row and column counts (>=0)
	data           []float64 // contiguous row-major storage (len == r*c)
	validateNaNInf bool      // numeric guard: reject NaN/Inf in Set when true
}

// Compile-time assertions for interface & fmt.Stringer conformance.
var (
	_ Matrix       = (*Dense)(nil)
	_ fmt.Stringer = (*Dense)(nil)
)

// NewDense creates an r×c zero matrix using row-major storage.
//
// Implementation:
//   - Stage 1: validate rows>=0 && cols>=0; else ErrInvalidDimensions.
//   - Stage 2: allocate zero-filled buffer and initialize the numeric policy.
//
// Behavior highlights:
//   - Empty shapes (0×n, n×0) are legal; decompositions produce them for rank 0.
//
// Errors:
//   - ErrInvalidDimensions (negative dimension).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDense(rows, cols int) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, ErrInvalidDimensions
	}

	return &Dense{
		r:              rows,
		c:              cols,
		data:           make([]float64, rows*cols),
		validateNaNInf: DefaultValidateNaNInf,
	}, nil
}

// NewDenseFrom wraps data (row-major, len == rows*cols) without copying.
// The caller hands ownership of data to the returned matrix.
//
// The numeric policy is not applied to data; use ValidateFinite when the
// contents come from an untrusted source.
//
// Errors:
//   - ErrInvalidDimensions if a dimension is negative or len(data) != rows*cols.
func NewDenseFrom(rows, cols int, data []float64) (*Dense, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%s(%d,%d): %w", ctxFrom, rows, cols, ErrInvalidDimensions)
	}

	return &Dense{r: rows, c: cols, data: data, validateNaNInf: DefaultValidateNaNInf}, nil
}

// Zeros is the allocation helper used on hot internal paths where the shape is
// known to be valid. It panics on negative dimensions (programmer error).
func Zeros(rows, cols int) *Dense {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: Zeros(%d,%d): negative dimension", rows, cols))
	}

	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols), validateNaNInf: DefaultValidateNaNInf}
}

// Identity returns the n×n identity matrix.
func Identity(n int) (*Dense, error) {
	m, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1.0
	}

	return m, nil
}

// AsDense returns m itself when it already is a *Dense, otherwise a Dense copy
// read through the Matrix interface.
func AsDense(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, err
	}
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	out, err := NewDense(m.Rows(), m.Cols())
	if err != nil {
		return nil, err
	}
	var (
		i, j int
		v    float64
	)
	for i = 0; i < out.r; i++ {
		for j = 0; j < out.c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, err
			}
			out.data[i*out.c+j] = v
		}
	}

	return out, nil
}

// NoValidation returns m with the NaN/Inf guard in Set switched off.
// It is used by callers that run with floating-point errors non-fatal.
func (m *Dense) NoValidation() *Dense {
	m.validateNaNInf = false

	return m
}

// Rows returns the row count.
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count.
func (m *Dense) Cols() int { return m.c }

// Shape packs Rows() and Cols() into a single call for convenience.
func (m *Dense) Shape() (rows, cols int) { return m.r, m.c }

// Len returns the number of stored elements (rows*cols).
func (m *Dense) Len() int { return len(m.data) }

// Raw exposes the row-major backing slice. Mutations are visible in m.
func (m *Dense) Raw() []float64 { return m.data }

// Row returns row i as a sub-slice of the backing buffer (no copy).
// It panics if i is out of range, like a slice index would.
func (m *Dense) Row(i int) []float64 { return m.data[i*m.c : (i+1)*m.c] }

// indexOf computes the row-major offset or returns ErrOutOfRange.
func (m *Dense) indexOf(row, col int) (int, error) {
	if row < 0 || row >= m.r {
		return 0, ErrOutOfRange
	}
	if col < 0 || col >= m.c {
		return 0, ErrOutOfRange
	}

	// Row-major offset: i*c + j.
	return row*m.c + col, nil
}

// At returns the value at (row, col) or ErrOutOfRange.
func (m *Dense) At(row, col int) (float64, error) {
	off, err := m.indexOf(row, col)
	if err != nil {
		return 0, denseErrorf(ctxAt, row, col, err)
	}

	return m.data[off], nil
}

// Set stores v at (row, col) or returns an error (bounds or numeric policy).
//
// Errors:
//   - ErrOutOfRange for bounds; ErrNaNInf for non-finite values under the policy.
func (m *Dense) Set(row, col int, v float64) error {
	off, err := m.indexOf(row, col)
	if err != nil {
		return denseErrorf(ctxSet, row, col, err)
	}
	if m.validateNaNInf && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return denseErrorf(ctxSet, row, col, ErrNaNInf)
	}
	m.data[off] = v

	return nil
}

// Clone returns a deep copy (new buffer, same numeric policy).
func (m *Dense) Clone() Matrix { return m.Copy() }

// Copy is Clone with the concrete return type.
func (m *Dense) Copy() *Dense {
	cp := make([]float64, len(m.data))
	copy(cp, m.data)

	return &Dense{r: m.r, c: m.c, data: cp, validateNaNInf: m.validateNaNInf}
}

// String renders rows as lines with comma-separated values. Not for hot paths.
func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.r; i++ {
		sb.WriteString(_fmtRowOpen)
		for j := 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(_fmtSep)
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.c+j])
		}
		sb.WriteString(_fmtRowClose)
	}

	return sb.String()
}

// Columns gathers the columns named by idx into a new rows×len(idx) matrix.
// idx need not be sorted; every entry must be in [0, Cols()).
//
// Complexity:
//   - Time O(r*k), Space O(r*k).
func (m *Dense) Columns(idx IndexSet) (*Dense, error) {
	for _, j := range idx {
		if j < 0 || j >= m.c {
			return nil, denseErrorf(ctxColumns, 0, j, ErrOutOfRange)
		}
	}
	k := len(idx)
	out := &Dense{r: m.r, c: k, data: make([]float64, m.r*k), validateNaNInf: m.validateNaNInf}
	var i, p int
	for i = 0; i < m.r; i++ {
		src := m.data[i*m.c : (i+1)*m.c]
		dst := out.data[i*k : (i+1)*k]
		for p = 0; p < k; p++ {
			dst[p] = src[idx[p]]
		}
	}

	return out, nil
}

// RowRange copies rows [lo, hi) into a new (hi-lo)×Cols() matrix.
func (m *Dense) RowRange(lo, hi int) (*Dense, error) {
	if lo < 0 || hi > m.r || lo > hi {
		return nil, denseErrorf(ctxRowRange, lo, hi, ErrOutOfRange)
	}
	cp := make([]float64, (hi-lo)*m.c)
	copy(cp, m.data[lo*m.c:hi*m.c])

	return &Dense{r: hi - lo, c: m.c, data: cp, validateNaNInf: m.validateNaNInf}, nil
}

// Submatrix copies rows [lo, hi) restricted to the columns in idx.
// It is the fused form of RowRange + Columns used by the tree builder.
func (m *Dense) Submatrix(lo, hi int, idx IndexSet) (*Dense, error) {
	if lo < 0 || hi > m.r || lo > hi {
		return nil, denseErrorf(ctxSubmatrix, lo, hi, ErrOutOfRange)
	}
	for _, j := range idx {
		if j < 0 || j >= m.c {
			return nil, denseErrorf(ctxSubmatrix, lo, j, ErrOutOfRange)
		}
	}
	rows, k := hi-lo, len(idx)
	out := &Dense{r: rows, c: k, data: make([]float64, rows*k), validateNaNInf: m.validateNaNInf}
	var i, p int
	for i = 0; i < rows; i++ {
		src := m.data[(lo+i)*m.c : (lo+i+1)*m.c]
		dst := out.data[i*k : (i+1)*k]
		for p = 0; p < k; p++ {
			dst[p] = src[idx[p]]
		}
	}

	return out, nil
}
