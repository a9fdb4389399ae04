// SPDX-License-Identifier: MIT

// Package blobstore stores published resource files as immutable blobs.
//
// A Store maps names to blobs; a Blob is random-access (io.ReaderAt) with a
// known size, which is exactly what resource.OpenBlob needs to serve trees
// without downloading a whole file.
//
// Built-in stores:
//   - LocalStore: a directory on the local file system, reads are mmap-backed.
//   - MemoryStore: an in-process map, for tests and small pipelines.
//   - s3.Store and minio.Store (subpackages): object storage with ranged GETs.
//
// All stores are safe for concurrent use.
package blobstore
