// SPDX-License-Identifier: MIT

package resource

import (
	"encoding/binary"
	"fmt"
)

const (
	// FormatVersion names the resource directory revision (rev<N>).
	FormatVersion = 1

	// Alignment of every body block.
	Alignment = 128

	// HeaderSize is the byte size of lmax, mmax and Nside.
	HeaderSize = 3 * 8

	// BlockHeaderSize is the combined-size field plus its padding.
	BlockHeaderSize = Alignment

	// maxMmax bounds the table allocation when reading untrusted headers.
	maxMmax = 1 << 20
)

// Key names one matrix of the file: order m and parity.
type Key struct {
	M   int
	Odd bool
}

// Index is the table slot of the block start: 4m + 2·odd.
func (k Key) Index() int {
	idx := 4 * k.M
	if k.Odd {
		idx += 2
	}

	return idx
}

// Less orders keys by (m, odd).
func (k Key) Less(o Key) bool { return k.Index() < o.Index() }

// String renders "m=3/odd" or "m=3/even".
func (k Key) String() string {
	parity := "even"
	if k.Odd {
		parity = "odd"
	}

	return fmt.Sprintf("m=%d/%s", k.M, parity)
}

// Header is the fixed file prologue.
type Header struct {
	Lmax  int
	Mmax  int
	Nside int
}

// Validate checks the header can describe a file.
func (h Header) Validate() error {
	if h.Lmax < 0 || h.Mmax < 0 || h.Mmax > maxMmax || h.Nside < 1 {
		return fmt.Errorf("lmax=%d mmax=%d nside=%d: %w", h.Lmax, h.Mmax, h.Nside, ErrBadHeader)
	}

	return nil
}

// TableLen is the number of int64 slots in the table.
func (h Header) TableLen() int { return 4 * (h.Mmax + 1) }

// BodyOffset is the first byte after the table.
func (h Header) BodyOffset() int64 { return HeaderSize + 8*int64(h.TableLen()) }

// Keys lists every (m, odd) in file order.
func (h Header) Keys() []Key {
	out := make([]Key, 0, 2*(h.Mmax+1))
	for m := 0; m <= h.Mmax; m++ {
		out = append(out, Key{M: m}, Key{M: m, Odd: true})
	}

	return out
}

// Contains reports whether k is addressable by the table.
func (h Header) Contains(k Key) bool { return k.M >= 0 && k.M <= h.Mmax }

// Entry is one table record.
type Entry struct {
	Start  int64
	Length int64
}

// End is the first byte after the block.
func (e Entry) End() int64 { return e.Start + e.Length }

func (h Header) encode() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Lmax))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Mmax))

	return binary.LittleEndian.AppendUint64(buf, uint64(h.Nside))
}

func decodeHeader(buf []byte) (Header, error) {
	lmax := int64(binary.LittleEndian.Uint64(buf[0:]))
	mmax := int64(binary.LittleEndian.Uint64(buf[8:]))
	nside := int64(binary.LittleEndian.Uint64(buf[16:]))
	if lmax < 0 || lmax > 1<<31 || mmax < 0 || mmax > maxMmax || nside < 1 || nside > 1<<31 {
		return Header{}, fmt.Errorf("lmax=%d mmax=%d nside=%d: %w", lmax, mmax, nside, ErrBadHeader)
	}

	return Header{Lmax: int(lmax), Mmax: int(mmax), Nside: int(nside)}, nil
}

// align rounds n up to a multiple of Alignment.
func align(n int64) int64 {
	if r := n % Alignment; r != 0 {
		return n + Alignment - r
	}

	return n
}
