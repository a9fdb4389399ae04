// SPDX-License-Identifier: MIT

package butterfly

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"slices"

	"github.com/katalvlaran/wavemoth/id"
	"github.com/katalvlaran/wavemoth/matrix"
)

// Stream layout (little-endian, every unit starts on a 128-byte boundary
// relative to the first byte written):
//
//	tree unit:  u32 magic, u32 version, i64 rows, i64 cols, i64 minRows,
//	            i64 chunkSize, f64 eps, i64 nodes, i64 storedElements
//	node unit:  i32 tag (internal|leaf), i32 ngroups, i64 parent,
//	            i64 rowStart, i64 rowEnd, i64 child0, i64 child1
//	group unit: i32 tag, i32 0, i64 nsrc, i64 k, i64 denseRows,
//	            nsrc filter bytes (0 kept, 1 interpolated), pad to 8,
//	            k × i64 columns, k·(nsrc-k) × f64 coefficients,
//	            denseRows·k × f64 leaf block
//
// Group units follow their node unit; nodes appear in arena order.
const (
	// Alignment of every unit.
	Alignment = 128

	// FormatVersion is bumped on any incompatible layout change.
	FormatVersion = 1

	treeMagic uint32 = 0x46424d57 // "WMBF"

	tagInternal int32 = 1
	tagLeaf     int32 = 2
	tagGroup    int32 = 3

	maxDim = math.MaxInt32

	// readChunk bounds every allocation made ahead of the bytes backing it.
	readChunk = 1 << 16
)

const (
	opWriteTo  = "WriteTo"
	opReadTree = "ReadTree"
	opInspect  = "Inspect"
)

// Info is what Inspect learns from the unit headers alone.
type Info struct {
	Rows, Cols     int
	Nodes          int
	Leaves         int
	MaxRank        int
	MaxGroups      int
	StoredElements int64
	Bytes          int64
}

// ---------- encoder ----------

type encoder struct {
	w   io.Writer
	n   int64
	err error
	buf []byte
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	var n int
	n, e.err = e.w.Write(p)
	e.n += int64(n)
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf[:0], v)
	e.write(e.buf)
}

func (e *encoder) i64(v int64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf[:0], uint64(v))
	e.write(e.buf)
}

func (e *encoder) f64s(vs []float64) {
	e.buf = e.buf[:0]
	for _, v := range vs {
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
	}
	e.write(e.buf)
}

func (e *encoder) pad(align int64) {
	if r := e.n % align; r != 0 {
		e.write(make([]byte, align-r))
	}
}

// WriteTo serializes t. It implements io.WriterTo.
//
// Errors:
//   - any error returned by w.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	e := &encoder{w: w, buf: make([]byte, 0, 64)}
	e.u32(treeMagic)
	e.u32(FormatVersion)
	e.i64(int64(t.rows))
	e.i64(int64(t.cols))
	e.i64(int64(t.minRows))
	e.i64(int64(t.chunkSize))
	e.f64s([]float64{t.eps})
	e.i64(int64(len(t.nodes)))
	e.i64(t.stats.StoredElements)
	e.pad(Alignment)

	for v := range t.nodes {
		nd := &t.nodes[v]
		tag := tagInternal
		if nd.leaf() {
			tag = tagLeaf
		}
		e.u32(uint32(tag))
		e.u32(uint32(len(nd.groups)))
		e.i64(int64(nd.parent))
		e.i64(int64(nd.rowStart))
		e.i64(int64(nd.rowEnd))
		e.i64(int64(nd.children[0]))
		e.i64(int64(nd.children[1]))
		e.pad(Alignment)

		for g := range nd.groups {
			writeGroup(e, &nd.groups[g])
		}
	}
	if e.err != nil {
		return e.n, fmt.Errorf("%s: %w", opWriteTo, e.err)
	}

	return e.n, nil
}

func writeGroup(e *encoder, gr *group) {
	sel := gr.sel
	denseRows := 0
	if gr.dense != nil {
		denseRows = gr.dense.Rows()
	}
	e.u32(uint32(tagGroup))
	e.u32(0)
	e.i64(int64(sel.N))
	e.i64(int64(sel.Rank()))
	e.i64(int64(denseRows))

	filter := bytes.Repeat([]byte{1}, sel.N)
	for _, j := range sel.Kept {
		filter[j] = 0
	}
	e.write(filter)
	e.pad(8)
	for _, c := range gr.columns {
		e.i64(int64(c))
	}
	e.f64s(sel.Coeffs.Raw())
	if gr.dense != nil {
		e.f64s(gr.dense.Raw())
	}
	e.pad(Alignment)
}

// MarshalBinary returns the WriteTo encoding of t.
func (t *Tree) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := t.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ---------- decoder ----------

type decoder struct {
	r     io.Reader
	n     int64
	limit int64 // stream length when known, else -1
	err   error
	buf   [8]byte
}

// newDecoder takes the stream length from r.Size() when r has one
// (bytes.Reader, io.SectionReader).
func newDecoder(r io.Reader) *decoder {
	d := &decoder{r: r, limit: -1}
	if s, ok := r.(interface{ Size() int64 }); ok {
		d.limit = s.Size()
	}

	return d
}

// fits reports whether n more bytes can follow in a stream of known length.
func (d *decoder) fits(n int64) bool {
	return d.limit < 0 || n <= d.limit-d.n
}

// units is how many aligned units the rest of the stream can hold.
func (d *decoder) units() int64 {
	if d.limit < 0 {
		return math.MaxInt64
	}

	return (d.limit - d.n) / Alignment
}

func (d *decoder) read(p []byte) {
	if d.err != nil {
		return
	}
	var n int
	n, d.err = io.ReadFull(d.r, p)
	d.n += int64(n)
}

func (d *decoder) u32() uint32 {
	d.read(d.buf[:4])

	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *decoder) i64() int64 {
	d.read(d.buf[:8])

	return int64(binary.LittleEndian.Uint64(d.buf[:8]))
}

func (d *decoder) f64() float64 { return math.Float64frombits(uint64(d.i64())) }

// chunked reads n bytes in chunks, so a stream shorter than it claims fails
// before the whole buffer is allocated.
func (d *decoder) chunked(n int) []byte {
	out := make([]byte, 0, min(n, readChunk))
	for len(out) < n && d.err == nil {
		m := min(n-len(out), readChunk)
		out = slices.Grow(out, m)[:len(out)+m]
		d.read(out[len(out)-m:])
	}

	return out
}

func (d *decoder) f64s(n int) []float64 {
	raw := d.chunked(8 * n)
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}

	return out
}

func (d *decoder) skip(n int64) {
	if d.err != nil || n <= 0 {
		return
	}
	var got int64
	got, d.err = io.CopyN(io.Discard, d.r, n)
	d.n += got
}

func (d *decoder) pad(align int64) {
	if r := d.n % align; r != 0 {
		d.skip(align - r)
	}
}

// failure converts a short read into ErrCorruptStream.
func (d *decoder) failure(op string) error {
	if errors.Is(d.err, io.EOF) || errors.Is(d.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: truncated at byte %d: %w", op, d.n, ErrCorruptStream)
	}

	return fmt.Errorf("%s: %w", op, d.err)
}

func corrupt(op, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrCorruptStream)
}

type treeHeader struct {
	rows, cols, minRows, chunkSize int
	eps                            float64
	nodes                          int
	stored                         int64
}

func (d *decoder) treeHeader(op string) (treeHeader, error) {
	var h treeHeader
	magic, version := d.u32(), d.u32()
	rows, cols := d.i64(), d.i64()
	minRows, chunk := d.i64(), d.i64()
	eps := d.f64()
	nodes, stored := d.i64(), d.i64()
	d.pad(Alignment)
	if d.err != nil {
		return h, d.failure(op)
	}
	switch {
	case magic != treeMagic:
		return h, corrupt(op, "magic %#x", magic)
	case version != FormatVersion:
		return h, corrupt(op, "version %d", version)
	case rows < 0 || rows > maxDim || cols < 0 || cols > maxDim:
		return h, corrupt(op, "shape %dx%d", rows, cols)
	case minRows < 1 || minRows > maxDim || chunk < 1 || chunk > maxDim:
		return h, corrupt(op, "minRows=%d chunkSize=%d", minRows, chunk)
	case nodes < 1 || nodes > 2*rows+1:
		return h, corrupt(op, "%d nodes for %d rows", nodes, rows)
	case nodes > d.units():
		return h, corrupt(op, "%d nodes in %d bytes", nodes, d.limit)
	case stored < 0:
		return h, corrupt(op, "stored=%d", stored)
	}
	h = treeHeader{
		rows: int(rows), cols: int(cols), minRows: int(minRows), chunkSize: int(chunk),
		eps: eps, nodes: int(nodes), stored: stored,
	}

	return h, nil
}

type nodeHeader struct {
	tag     int32
	ngroups int
	node    node
}

func (d *decoder) nodeHeader(op string, h treeHeader) (nodeHeader, error) {
	tag, ngroups := int32(d.u32()), int64(int32(d.u32()))
	parent, lo, hi := d.i64(), d.i64(), d.i64()
	c0, c1 := d.i64(), d.i64()
	d.pad(Alignment)
	if d.err != nil {
		return nodeHeader{}, d.failure(op)
	}
	n := int64(h.nodes)
	switch {
	case tag != tagInternal && tag != tagLeaf:
		return nodeHeader{}, corrupt(op, "node tag %d", tag)
	case ngroups < 0 || ngroups > int64(h.cols) || ngroups > d.units():
		return nodeHeader{}, corrupt(op, "%d groups", ngroups)
	case lo < 0 || hi < lo || hi > int64(h.rows):
		return nodeHeader{}, corrupt(op, "rows [%d,%d)", lo, hi)
	case parent < noNode || parent >= n || c0 < noNode || c0 >= n || c1 < noNode || c1 >= n:
		return nodeHeader{}, corrupt(op, "links %d/%d/%d", parent, c0, c1)
	case (tag == tagLeaf) != (c0 == noNode && c1 == noNode):
		return nodeHeader{}, corrupt(op, "leaf tag with children %d/%d", c0, c1)
	}
	nd := node{
		parent:   int(parent),
		children: [2]int{int(c0), int(c1)},
		rowStart: int(lo),
		rowEnd:   int(hi),
	}

	return nodeHeader{tag: tag, ngroups: int(ngroups), node: nd}, nil
}

type groupHeader struct {
	nsrc, k, denseRows int
	payload            int64
}

func (d *decoder) groupHeader(op string, h treeHeader, nd *node, leaf bool) (groupHeader, error) {
	tag, _ := int32(d.u32()), d.u32()
	nsrc, k, denseRows := d.i64(), d.i64(), d.i64()
	if d.err != nil {
		return groupHeader{}, d.failure(op)
	}
	wantRows := int64(0)
	if leaf {
		wantRows = int64(nd.rows())
	}
	switch {
	case tag != tagGroup:
		return groupHeader{}, corrupt(op, "group tag %d", tag)
	case nsrc < 0 || nsrc > int64(h.cols) || k < 0 || k > nsrc:
		return groupHeader{}, corrupt(op, "nsrc=%d k=%d", nsrc, k)
	case denseRows != wantRows:
		return groupHeader{}, corrupt(op, "leaf block has %d rows, node has %d", denseRows, wantRows)
	}
	gh := groupHeader{nsrc: int(nsrc), k: int(k), denseRows: int(denseRows)}
	var ok bool
	if gh.payload, ok = gh.payloadBytes(); !ok || !d.fits(gh.payload) {
		return groupHeader{}, corrupt(op, "group payload nsrc=%d k=%d rows=%d exceeds the stream", nsrc, k, denseRows)
	}

	return gh, nil
}

// payloadBytes is the size of the group payload after its 32-byte header,
// excluding the trailing alignment: the padded filter plus
// 8·k·(1 + (nsrc-k) + denseRows) bytes. ok is false if that overflows int64.
func (g groupHeader) payloadBytes() (n int64, ok bool) {
	filter := int64(g.nsrc)
	if r := (32 + filter) % 8; r != 0 {
		filter += 8 - r
	}
	hi, words := bits.Mul64(uint64(g.k), uint64(1+g.nsrc-g.k+g.denseRows))
	if hi != 0 || words > uint64(math.MaxInt64-filter)/8 {
		return 0, false
	}

	return filter + 8*int64(words), true
}

// ReadTree decodes a tree written by WriteTo and verifies its structure.
//
// When r reports its length through a Size() int64 method, every unit is
// checked against the bytes left before anything is allocated for it.
//
// Errors:
//   - ErrCorruptStream on bad tags, implausible sizes, truncation or an
//     inconsistent tree; reader errors are wrapped as is.
func ReadTree(r io.Reader) (*Tree, error) {
	d := newDecoder(r)
	h, err := d.treeHeader(opReadTree)
	if err != nil {
		return nil, err
	}
	t := &Tree{rows: h.rows, cols: h.cols, minRows: h.minRows, chunkSize: h.chunkSize, eps: h.eps}
	t.nodes = make([]node, 0, min(h.nodes, readChunk/Alignment))
	for v := 0; v < h.nodes; v++ {
		nh, err := d.nodeHeader(opReadTree, h)
		if err != nil {
			return nil, err
		}
		nd := nh.node
		nd.groups = make([]group, 0, min(nh.ngroups, readChunk/Alignment))
		for g := 0; g < nh.ngroups; g++ {
			gr, err := d.group(h, &nd, nh.tag == tagLeaf)
			if err != nil {
				return nil, fmt.Errorf("node %d group %d: %w", v, g, err)
			}
			nd.groups = append(nd.groups, gr)
		}
		t.nodes = append(t.nodes, nd)
	}
	if err = t.validate(); err != nil {
		return nil, err
	}
	t.computeStats()
	if t.stats.StoredElements != h.stored {
		return nil, corrupt(opReadTree, "stored %d elements, header says %d", t.stats.StoredElements, h.stored)
	}

	return t, nil
}

func (d *decoder) group(h treeHeader, nd *node, leaf bool) (group, error) {
	gh, err := d.groupHeader(opReadTree, h, nd, leaf)
	if err != nil {
		return group{}, err
	}
	filter := d.chunked(gh.nsrc)
	d.pad(8)
	rawCols := d.chunked(8 * gh.k)
	coeffs := d.f64s(gh.k * (gh.nsrc - gh.k))
	var dense []float64
	if leaf {
		dense = d.f64s(gh.denseRows * gh.k)
	}
	d.pad(Alignment)
	if d.err != nil {
		return group{}, d.failure(opReadTree)
	}
	columns := make(matrix.IndexSet, gh.k)
	for i := range columns {
		columns[i] = int(int64(binary.LittleEndian.Uint64(rawCols[8*i:])))
	}

	kept := make(matrix.IndexSet, 0, gh.k)
	for j, f := range filter {
		switch f {
		case 0:
			kept = append(kept, j)
		case 1:
		default:
			return group{}, corrupt(opReadTree, "filter byte %d", f)
		}
	}
	if len(kept) != gh.k {
		return group{}, corrupt(opReadTree, "filter keeps %d columns, header says %d", len(kept), gh.k)
	}
	for _, c := range columns {
		if c < 0 || c >= h.cols {
			return group{}, corrupt(opReadTree, "column %d", c)
		}
	}
	cm, err := matrix.NewDenseFrom(gh.k, gh.nsrc-gh.k, coeffs)
	if err != nil {
		return group{}, corrupt(opReadTree, "%v", err)
	}
	sel, err := id.NewSelection(gh.nsrc, kept, cm.NoValidation())
	if err != nil {
		return group{}, corrupt(opReadTree, "%v", err)
	}
	gr := group{sel: sel, columns: columns}
	if leaf {
		if gr.dense, err = matrix.NewDenseFrom(gh.denseRows, gh.k, dense); err != nil {
			return group{}, corrupt(opReadTree, "%v", err)
		}
		gr.dense.NoValidation()
	}

	return gr, nil
}

// validate checks the links, row spans and column bookkeeping of a decoded tree.
func (t *Tree) validate() error {
	n := len(t.nodes)
	if n == 0 {
		return corrupt(opReadTree, "empty tree")
	}
	root := &t.nodes[0]
	wantRoot := (t.cols + t.chunkSize - 1) / t.chunkSize
	if root.parent != noNode || root.rowStart != 0 || root.rowEnd != t.rows || len(root.groups) != wantRoot {
		return corrupt(opReadTree, "bad root")
	}
	for g := range root.groups {
		lo, hi := t.chunk(g)
		if err := checkColumns(&root.groups[g], matrix.Range(lo, hi)); err != nil {
			return err
		}
	}
	for v := 0; v < n; v++ {
		nd := &t.nodes[v]
		if nd.leaf() {
			continue
		}
		sources := mergeSkeletons(nd.groups)
		mid := -1
		for c, ci := range nd.children {
			if ci <= v {
				return corrupt(opReadTree, "node %d child %d is not after its parent", v, ci)
			}
			child := &t.nodes[ci]
			if child.parent != v || len(child.groups) != len(sources) {
				return corrupt(opReadTree, "node %d child %d mismatched", v, ci)
			}
			if c == 0 && child.rowStart != nd.rowStart {
				return corrupt(opReadTree, "node %d rows not covered", v)
			}
			if c == 1 && (child.rowStart != mid || child.rowEnd != nd.rowEnd) {
				return corrupt(opReadTree, "node %d rows not covered", v)
			}
			mid = child.rowEnd
			child.level = nd.level + 1
			for h := range child.groups {
				if err := checkColumns(&child.groups[h], sources[h]); err != nil {
					return err
				}
			}
		}
	}
	for v := 1; v < n; v++ {
		p := t.nodes[v].parent
		if p < 0 || p >= v || (t.nodes[p].children[0] != v && t.nodes[p].children[1] != v) {
			return corrupt(opReadTree, "node %d orphaned", v)
		}
	}

	return nil
}

// checkColumns verifies that a group's kept columns are its source picked
// at the kept positions.
func checkColumns(gr *group, src matrix.IndexSet) error {
	if gr.sel.N != len(src) {
		return corrupt(opReadTree, "group source has %d columns, want %d", gr.sel.N, len(src))
	}
	for p, j := range gr.sel.Kept {
		if gr.columns[p] != src[j] {
			return corrupt(opReadTree, "kept column %d is %d, want %d", p, gr.columns[p], src[j])
		}
	}

	return nil
}

// Inspect reads the unit headers of a serialized tree and skips every
// payload, so it costs O(nodes + groups) reads regardless of tree size.
//
// Errors:
//   - ErrCorruptStream on bad headers or truncation.
func Inspect(r io.Reader) (Info, error) {
	d := newDecoder(r)
	h, err := d.treeHeader(opInspect)
	if err != nil {
		return Info{}, err
	}
	info := Info{Rows: h.rows, Cols: h.cols, Nodes: h.nodes, StoredElements: h.stored}
	for v := 0; v < h.nodes; v++ {
		nh, err := d.nodeHeader(opInspect, h)
		if err != nil {
			return Info{}, err
		}
		leaf := nh.tag == tagLeaf
		if leaf {
			info.Leaves++
		}
		if nh.ngroups > info.MaxGroups {
			info.MaxGroups = nh.ngroups
		}
		for g := 0; g < nh.ngroups; g++ {
			gh, err := d.groupHeader(opInspect, h, &nh.node, leaf)
			if err != nil {
				return Info{}, err
			}
			if gh.k > info.MaxRank {
				info.MaxRank = gh.k
			}
			d.skip(gh.payload)
			d.pad(Alignment)
			if d.err != nil {
				return Info{}, d.failure(opInspect)
			}
		}
	}
	info.Bytes = d.n

	return info, nil
}
