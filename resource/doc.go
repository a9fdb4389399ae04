// SPDX-License-Identifier: MIT

// Package resource reads and writes the keyed precomputed-matrix file.
//
// Layout (little-endian int64 throughout):
//
//	offset 0:   lmax, mmax, Nside
//	offset 24:  table of 4·(mmax+1) int64; for key (m, odd) the slot
//	            4m + 2·odd holds the block start and the slot after it the
//	            block length; start 0 means the key was never computed
//	body:       one block per key in increasing key order, each starting on
//	            a 128-byte boundary: int64 combined_matrix_size, zero padding
//	            to 128 bytes, then the serialized butterfly tree
//
// The block length covers the 128-byte block header and the tree bytes, so
// [start, start+length) bounds a block exactly.
//
// Writer needs an io.WriteSeeker because the table is patched after the body
// is written. Reader works on any io.ReaderAt; Open maps the file into
// memory with mmap-go so that trees are paged in only when touched.
package resource
