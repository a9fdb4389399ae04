// SPDX-License-Identifier: MIT

package butterfly

import (
	"github.com/katalvlaran/wavemoth/id"
	"github.com/katalvlaran/wavemoth/matrix"
)

// noNode marks an absent parent or child index in the arena.
const noNode = -1

// group is one column group of a node.
//
// Its source columns are a root chunk or the concatenated skeletons of two
// parent groups; sel maps source coefficients onto the kept ones.
type group struct {
	sel     *id.Selection
	columns matrix.IndexSet // original column index of every kept source column
	dense   *matrix.Dense   // leaf only: A[rows, columns]
}

// node is an arena entry. Row range is [rowStart, rowEnd).
type node struct {
	parent   int
	children [2]int
	rowStart int
	rowEnd   int
	level    int
	groups   []group
}

func (n *node) leaf() bool { return n.children[0] == noNode }

func (n *node) rows() int { return n.rowEnd - n.rowStart }

// Tree is an immutable butterfly-compressed matrix.
type Tree struct {
	rows, cols int
	minRows    int
	chunkSize  int
	eps        float64
	nodes      []node
	stats      Stats
}

// Stats summarizes a tree.
type Stats struct {
	Rows, Cols int

	// Depth is the number of levels (1 for a root leaf).
	Depth  int
	Nodes  int
	Leaves int

	// StoredElements counts every float64 the tree keeps: interpolation
	// coefficients plus leaf blocks.
	StoredElements int64
	CoeffElements  int64
	LeafElements   int64

	// DenseElements is rows·cols, the size of the uncompressed matrix.
	DenseElements int64

	// CompressionRatio is DenseElements / StoredElements (1 when both are 0).
	CompressionRatio float64

	MaxRank   int
	MaxGroups int
}

// Rows of the compressed matrix.
func (t *Tree) Rows() int { return t.rows }

// Cols of the compressed matrix.
func (t *Tree) Cols() int { return t.cols }

// Eps is the ID tolerance the tree was built with.
func (t *Tree) Eps() float64 { return t.eps }

// MinRows is the minimum leaf height used at build time.
func (t *Tree) MinRows() int { return t.minRows }

// ChunkSize is the width of the root column groups.
func (t *Tree) ChunkSize() int { return t.chunkSize }

// Stats returns the precomputed summary.
func (t *Tree) Stats() Stats { return t.stats }

// Size is the number of stored float64 elements.
func (t *Tree) Size() int64 { return t.stats.StoredElements }

// chunk returns the column range [lo, hi) of root group g.
func (t *Tree) chunk(g int) (int, int) {
	lo := g * t.chunkSize
	hi := lo + t.chunkSize
	if hi > t.cols {
		hi = t.cols
	}

	return lo, hi
}

// computeStats walks the arena once; nodes must be complete.
func (t *Tree) computeStats() {
	s := Stats{Rows: t.rows, Cols: t.cols, Nodes: len(t.nodes)}
	s.DenseElements = int64(t.rows) * int64(t.cols)
	for v := range t.nodes {
		nd := &t.nodes[v]
		if nd.level+1 > s.Depth {
			s.Depth = nd.level + 1
		}
		if nd.leaf() {
			s.Leaves++
		}
		if len(nd.groups) > s.MaxGroups {
			s.MaxGroups = len(nd.groups)
		}
		for g := range nd.groups {
			gr := &nd.groups[g]
			if k := gr.sel.Rank(); k > s.MaxRank {
				s.MaxRank = k
			}
			s.CoeffElements += int64(gr.sel.Coeffs.Len())
			if gr.dense != nil {
				s.LeafElements += int64(gr.dense.Len())
			}
		}
	}
	s.StoredElements = s.CoeffElements + s.LeafElements
	switch {
	case s.StoredElements > 0:
		s.CompressionRatio = float64(s.DenseElements) / float64(s.StoredElements)
	case s.DenseElements == 0:
		s.CompressionRatio = 1
	default:
		s.CompressionRatio = float64(s.DenseElements)
	}
	t.stats = s
}
