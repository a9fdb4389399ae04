// SPDX-License-Identifier: MIT

// Package matrix: domain types shared by the decomposition and tree packages.
// This file intentionally contains ONLY the public Matrix interface and the
// IndexSet helper type; storage lives in impl_dense.go.
package matrix

// Matrix represents a two-dimensional mutable array of float64 values.
//
// Complexity notes: all methods are expected O(1) except Clone (O(r*c)).
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i<0, i>=Rows(), j<0 or j>=Cols().
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if indices are invalid.
	Set(i, j int, v float64) error

	// Clone returns a deep copy of the matrix.
	Clone() Matrix
}

// IndexSet is an ordered sequence of distinct non-negative integers naming a
// subset of rows or columns of a parent matrix. Decompositions always hand
// out IndexSets in strictly ascending order.
type IndexSet []int

// Len returns the number of indices in the set.
func (s IndexSet) Len() int { return len(s) }

// Sorted reports whether the set is strictly ascending (and therefore distinct).
func (s IndexSet) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i] <= s[i-1] {
			return false
		}
	}

	return true
}

// Validate checks that the set is strictly ascending and fits in [0, n).
func (s IndexSet) Validate(n int) error {
	if !s.Sorted() {
		return ErrUnsortedIndex
	}
	if len(s) > 0 && (s[0] < 0 || s[len(s)-1] >= n) {
		return ErrOutOfRange
	}

	return nil
}

// Range returns the IndexSet {lo, lo+1, ..., hi-1}.
func Range(lo, hi int) IndexSet {
	if hi <= lo {
		return IndexSet{}
	}
	out := make(IndexSet, hi-lo)
	for i := range out {
		out[i] = lo + i
	}

	return out
}

// Pick returns s[pos[0]], s[pos[1]], ... as a new IndexSet.
// pos must be valid positions into s.
func (s IndexSet) Pick(pos IndexSet) IndexSet {
	out := make(IndexSet, len(pos))
	for i, p := range pos {
		out[i] = s[p]
	}

	return out
}

// Concat returns the concatenation of a and b as a fresh IndexSet.
func Concat(a, b IndexSet) IndexSet {
	out := make(IndexSet, 0, len(a)+len(b))
	out = append(out, a...)

	return append(out, b...)
}
