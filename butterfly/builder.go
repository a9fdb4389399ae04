// SPDX-License-Identifier: MIT

package butterfly

import (
	"fmt"
	"math"

	"github.com/katalvlaran/wavemoth/id"
	"github.com/katalvlaran/wavemoth/matrix"
)

const (
	opCompress     = "Compress"
	opCompressWith = "CompressWith"
)

// Compress builds the butterfly tree of a.
//
// Implementation:
//   - Stage 1: split the columns into root chunks of ChunkSize.
//   - Stage 2: if the root has fewer than 2·MinRows rows it is a leaf and
//     keeps A unchanged (identity interpolation per chunk).
//   - Stage 3: otherwise every group of every node is decomposed with
//     id.DecomposeSparse at Eps over the node's rows, nodes split
//     breadth-first, children merge the parent's skeletons pairwise.
//
// Errors:
//   - matrix.ErrNilMatrix, id.ErrNumerical (fail-fast policy).
//
// Complexity:
//   - Time O(Σ_nodes rows·ns·k) for the IDs; Space O(Size()).
func Compress(a *matrix.Dense, opts ...Option) (*Tree, error) {
	if a == nil {
		return nil, fmt.Errorf("%s: %w", opCompress, matrix.ErrNilMatrix)
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &builder{a: a, o: o, idOpts: []id.Option{id.WithRaiseOnFPError(o.RaiseOnFPError)}}
	t, err := b.build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opCompress, err)
	}

	return t, nil
}

// CompressWith is Compress with explicit parameters validated as errors
// instead of option panics; it suits values read from configuration.
func CompressWith(a *matrix.Dense, minRows int, eps float64, chunkSize int) (*Tree, error) {
	if minRows < 1 || chunkSize < 1 || math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		return nil, fmt.Errorf("%s: minRows=%d eps=%g chunkSize=%d: %w",
			opCompressWith, minRows, eps, chunkSize, ErrInvalidParameter)
	}

	return Compress(a, WithMinRows(minRows), WithEps(eps), WithChunkSize(chunkSize))
}

type builder struct {
	a      *matrix.Dense
	o      Options
	idOpts []id.Option
	nodes  []node
}

// splits reports whether a block of n rows is divided further.
func (b *builder) splits(n int) bool { return n >= 2*b.o.MinRows }

func (b *builder) build() (*Tree, error) {
	rows, cols := b.a.Shape()
	t := &Tree{rows: rows, cols: cols, minRows: b.o.MinRows, chunkSize: b.o.ChunkSize, eps: b.o.Eps}

	var chunks []matrix.IndexSet
	for lo := 0; lo < cols; lo += b.o.ChunkSize {
		hi := lo + b.o.ChunkSize
		if hi > cols {
			hi = cols
		}
		chunks = append(chunks, matrix.Range(lo, hi))
	}

	root := node{parent: noNode, children: [2]int{noNode, noNode}, rowStart: 0, rowEnd: rows}
	rootLeaf := !b.splits(rows)
	root.groups = make([]group, len(chunks))
	for g, src := range chunks {
		var (
			gr  group
			err error
		)
		if rootLeaf {
			gr, err = b.identityGroup(src)
		} else {
			gr, err = b.decompose(0, rows, src, false)
		}
		if err != nil {
			return nil, fmt.Errorf("root group %d: %w", g, err)
		}
		root.groups[g] = gr
	}
	b.nodes = append(b.nodes, root)

	// Breadth-first: b.nodes grows while v walks it, so address by index.
	for v := 0; v < len(b.nodes); v++ {
		if !b.splits(b.nodes[v].rows()) {
			continue
		}
		sources := mergeSkeletons(b.nodes[v].groups)
		lo, hi := b.nodes[v].rowStart, b.nodes[v].rowEnd
		mid := lo + (hi-lo)/2
		for c, span := range [2][2]int{{lo, mid}, {mid, hi}} {
			child := node{
				parent:   v,
				children: [2]int{noNode, noNode},
				rowStart: span[0],
				rowEnd:   span[1],
				level:    b.nodes[v].level + 1,
				groups:   make([]group, len(sources)),
			}
			leaf := !b.splits(child.rows())
			for h, src := range sources {
				gr, err := b.decompose(span[0], span[1], src, leaf)
				if err != nil {
					return nil, fmt.Errorf("node %d child %d group %d: %w", v, c, h, err)
				}
				child.groups[h] = gr
			}
			b.nodes[v].children[c] = len(b.nodes)
			b.nodes = append(b.nodes, child)
		}
	}

	t.nodes = b.nodes
	t.computeStats()

	return t, nil
}

// mergeSkeletons concatenates the kept columns of groups (0,1), (2,3), ...
// An odd trailing group is carried alone.
func mergeSkeletons(groups []group) []matrix.IndexSet {
	out := make([]matrix.IndexSet, 0, (len(groups)+1)/2)
	for g := 0; g < len(groups); g += 2 {
		if g+1 < len(groups) {
			out = append(out, matrix.Concat(groups[g].columns, groups[g+1].columns))
		} else {
			out = append(out, matrix.Concat(groups[g].columns, nil))
		}
	}

	return out
}

// decompose runs the sparse ID of A[lo:hi, src].
func (b *builder) decompose(lo, hi int, src matrix.IndexSet, leaf bool) (group, error) {
	block, err := b.a.Submatrix(lo, hi, src)
	if err != nil {
		return group{}, err
	}
	sd, err := id.DecomposeSparse(block, b.o.Eps, b.idOpts...)
	if err != nil {
		return group{}, err
	}
	gr := group{sel: &sd.Selection, columns: src.Pick(sd.Kept)}
	if leaf {
		gr.dense = sd.Skeleton
	}

	return gr, nil
}

// identityGroup keeps every column of src; used only by a root leaf.
func (b *builder) identityGroup(src matrix.IndexSet) (group, error) {
	n := len(src)
	sel, err := id.NewSelection(n, matrix.Range(0, n), matrix.Zeros(n, 0))
	if err != nil {
		return group{}, err
	}
	dense, err := b.a.Columns(src)
	if err != nil {
		return group{}, err
	}
	if b.o.RaiseOnFPError && matrix.HasNonFinite(dense) {
		return group{}, id.ErrNumerical
	}

	return group{sel: sel, columns: src, dense: dense}, nil
}
