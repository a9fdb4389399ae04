// SPDX-License-Identifier: MIT

package resource

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/katalvlaran/wavemoth/blobstore"
	"github.com/katalvlaran/wavemoth/butterfly"
)

const (
	opNewReader = "NewReader"
	opBlock     = "Reader.Block"
	opTree      = "Reader.Tree"
)

// Reader gives random access to the blocks of a resource file.
// It is safe for concurrent use when the underlying io.ReaderAt is.
type Reader struct {
	r      io.ReaderAt
	size   int64
	h      Header
	table  []int64
	closer io.Closer
}

// NewReader parses the header and table of a file of the given size and
// checks that every present entry is an aligned block inside the body.
//
// Errors:
//   - ErrBadHeader, or the error of r.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	head := make([]byte, HeaderSize)
	if size < HeaderSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", opNewReader, size, ErrBadHeader)
	}
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", opNewReader, err)
	}
	h, err := decodeHeader(head)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opNewReader, err)
	}
	if size < h.BodyOffset() {
		return nil, fmt.Errorf("%s: table truncated: %w", opNewReader, ErrBadHeader)
	}
	raw := make([]byte, 8*h.TableLen())
	if _, err = r.ReadAt(raw, HeaderSize); err != nil {
		return nil, fmt.Errorf("%s: %w", opNewReader, err)
	}
	table := make([]int64, h.TableLen())
	for i := range table {
		table[i] = int64(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	rd := &Reader{r: r, size: size, h: h, table: table}
	for _, k := range h.Keys() {
		e, ok := rd.Entry(k)
		if !ok {
			continue
		}
		if e.Start < h.BodyOffset() || e.Start%Alignment != 0 || e.Length < BlockHeaderSize || e.Length > size-e.Start {
			return nil, fmt.Errorf("%s: %v at [%d, %d) in %d bytes: %w", opNewReader, k, e.Start, e.End(), size, ErrBadHeader)
		}
	}

	return rd, nil
}

// OpenBlob reads a resource file held in a blob store; Close closes the blob.
func OpenBlob(b blobstore.Blob) (*Reader, error) {
	rd, err := NewReader(b, b.Size())
	if err != nil {
		_ = b.Close()

		return nil, err
	}
	rd.closer = b

	return rd, nil
}

// Close releases the backing storage when the Reader owns it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil

	return c.Close()
}

// Header returns the file prologue.
func (r *Reader) Header() Header { return r.h }

// Size is the file size in bytes.
func (r *Reader) Size() int64 { return r.size }

// Entry returns the table record of k; ok is false for missing keys.
func (r *Reader) Entry(k Key) (Entry, bool) {
	if !r.h.Contains(k) {
		return Entry{}, false
	}
	idx := k.Index()
	e := Entry{Start: r.table[idx], Length: r.table[idx+1]}

	return e, e.Start != 0
}

// Keys lists the present keys in file order.
func (r *Reader) Keys() []Key {
	var out []Key
	for _, k := range r.h.Keys() {
		if _, ok := r.Entry(k); ok {
			out = append(out, k)
		}
	}

	return out
}

// Block returns the combined matrix size of k and a reader over its tree bytes.
//
// Errors:
//   - ErrMissingKey, or the error of the underlying reader.
func (r *Reader) Block(k Key) (int64, *io.SectionReader, error) {
	e, ok := r.Entry(k)
	if !ok {
		return 0, nil, fmt.Errorf("%s: %v: %w", opBlock, k, ErrMissingKey)
	}
	var buf [8]byte
	if _, err := r.r.ReadAt(buf[:], e.Start); err != nil {
		return 0, nil, fmt.Errorf("%s: %v: %w", opBlock, k, err)
	}
	combined := int64(binary.LittleEndian.Uint64(buf[:]))

	return combined, io.NewSectionReader(r.r, e.Start+BlockHeaderSize, e.Length-BlockHeaderSize), nil
}

// Tree decodes the butterfly tree stored under k.
func (r *Reader) Tree(k Key) (*butterfly.Tree, int64, error) {
	combined, sec, err := r.Block(k)
	if err != nil {
		return nil, 0, err
	}
	t, err := butterfly.ReadTree(sec)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %v: %w", opTree, k, err)
	}

	return t, combined, nil
}

// Inspect reports the tree summary of k without decoding payloads.
func (r *Reader) Inspect(k Key) (butterfly.Info, error) {
	_, sec, err := r.Block(k)
	if err != nil {
		return butterfly.Info{}, err
	}
	info, err := butterfly.Inspect(sec)
	if err != nil {
		return butterfly.Info{}, fmt.Errorf("%s: %v: %w", opTree, k, err)
	}

	return info, nil
}
