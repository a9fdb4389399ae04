// SPDX-License-Identifier: MIT

// Package butterfly compresses a dense matrix into a butterfly tree and
// applies the compressed operator (and its transpose) to batches of vectors.
//
// Structure:
//
//	The root covers every row; its column groups are consecutive chunks of
//	chunkSize columns. A node with at least 2·minRows rows splits into a top
//	and a bottom half. Each child merges its parent's groups pairwise
//	((0,1), (2,3), ...; an odd last group stays alone) and runs a sparse
//	interpolative decomposition of A[childRows, mergedSkeleton] per group.
//	Leaves store A[leafRows, skeleton] densely.
//
// Nodes live in one arena slice in breadth-first order and refer to each
// other by index, so the tree is never a DAG and copies are cheap.
//
// Apply walks the arena forward (top-down): every group maps its source
// coefficients through its interpolation matrix, and leaves add D·z into
// their rows. ApplyTranspose walks it backward, gathering Dᵀ·y from the
// leaves and pushing Pᵀ·w up to the root column chunks.
//
// A tree whose root is already a leaf (rows < 2·minRows) stores A unchanged
// and applies as an ordinary dense product.
//
// The stream codec (WriteTo, ReadTree, Inspect) uses 128-byte aligned units,
// little-endian, so a tree can be embedded in the keyed resource file and
// read back bit for bit.
package butterfly
