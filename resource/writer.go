// SPDX-License-Identifier: MIT

package resource

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/katalvlaran/wavemoth/butterfly"
)

const (
	opNewWriter = "NewWriter"
	opAdd       = "Writer.Add"
	opClose     = "Writer.Close"
)

// Writer produces a resource file. Blocks must be added in strictly
// increasing key order; Close patches the table. Offsets are relative to the
// position of w when NewWriter was called, which should be the file start.
type Writer struct {
	w      io.WriteSeeker
	h      Header
	base   int64
	pos    int64
	table  []int64
	last   int
	closed bool
}

// NewWriter writes the header and a zeroed table.
//
// Errors:
//   - ErrBadHeader, or the error of w.
func NewWriter(w io.WriteSeeker, h Header) (*Writer, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", opNewWriter, err)
	}
	base, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opNewWriter, err)
	}
	wr := &Writer{w: w, h: h, base: base, table: make([]int64, h.TableLen()), last: -1}
	if err = wr.write(h.encode()); err != nil {
		return nil, fmt.Errorf("%s: %w", opNewWriter, err)
	}
	if err = wr.write(make([]byte, 8*len(wr.table))); err != nil {
		return nil, fmt.Errorf("%s: %w", opNewWriter, err)
	}

	return wr, nil
}

// Header returns the header being written.
func (w *Writer) Header() Header { return w.h }

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.pos += int64(n)

	return err
}

// Add appends the block of key: combinedSize followed by the serialized tree.
func (w *Writer) Add(key Key, combinedSize int64, tree *butterfly.Tree) error {
	return w.add(key, combinedSize, func(dst io.Writer) (int64, error) { return tree.WriteTo(dst) })
}

// AddPayload appends a block whose tree bytes were serialized elsewhere
// (a worker shard, for instance).
func (w *Writer) AddPayload(key Key, combinedSize int64, payload []byte) error {
	return w.add(key, combinedSize, func(dst io.Writer) (int64, error) {
		n, err := dst.Write(payload)

		return int64(n), err
	})
}

func (w *Writer) add(key Key, combinedSize int64, body func(io.Writer) (int64, error)) error {
	if w.closed {
		return fmt.Errorf("%s: %w", opAdd, ErrClosed)
	}
	if !w.h.Contains(key) {
		return fmt.Errorf("%s: %v with mmax=%d: %w", opAdd, key, w.h.Mmax, ErrKeyRange)
	}
	idx := key.Index()
	if idx <= w.last {
		return fmt.Errorf("%s: %v: %w", opAdd, key, ErrKeyOrder)
	}
	if pad := align(w.pos) - w.pos; pad > 0 {
		if err := w.write(make([]byte, pad)); err != nil {
			return fmt.Errorf("%s: %w", opAdd, err)
		}
	}
	start := w.pos
	block := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint64(block, uint64(combinedSize))
	if err := w.write(block); err != nil {
		return fmt.Errorf("%s: %w", opAdd, err)
	}
	n, err := body(w.w)
	w.pos += n
	if err != nil {
		return fmt.Errorf("%s: %v: %w", opAdd, key, err)
	}
	w.table[idx] = start
	w.table[idx+1] = w.pos - start
	w.last = idx

	return nil
}

// Close patches the table and leaves w positioned at the end of the file.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	buf := make([]byte, 0, 8*len(w.table))
	for _, v := range w.table {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
	}
	if _, err := w.w.Seek(w.base+HeaderSize, io.SeekStart); err != nil {
		return fmt.Errorf("%s: %w", opClose, err)
	}
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("%s: %w", opClose, err)
	}
	if _, err := w.w.Seek(w.base+w.pos, io.SeekStart); err != nil {
		return fmt.Errorf("%s: %w", opClose, err)
	}

	return nil
}
