// SPDX-License-Identifier: MIT

// Package shard is the per-worker output of a precompute run.
//
// Each worker owns one Store: a goleveldb database holding, for every
// (m, odd) it compressed, a JSON attribute record and the serialized tree.
//
//	/attrs/<m>/<odd>  JSON Attrs
//	/data/<m>/<odd>   codec byte + (possibly compressed) tree bytes
//
// Both records of a key are written in one batch, so a crashed worker never
// leaves attributes without data. The merge step reads every shard back and
// assembles the resource file.
package shard
