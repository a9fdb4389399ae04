// SPDX-License-Identifier: MIT

// Package precompute builds resource files: every (m, odd) matrix of a
// Provider is compressed into a butterfly tree by a Worker, stored in its
// shard, and the shards are merged into one keyed file.
//
// Pipeline:
//  1. Keys(mmax) enumerates the work; Partition splits it round-robin.
//  2. Each Worker.Run compresses its keys into a shard.Store.
//  3. Merge checks the shards against the header and writes the file.
//
// Run wires the three steps through a pool.Executor.
package precompute
