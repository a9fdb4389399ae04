// SPDX-License-Identifier: MIT

package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned by Open when the named blob does not exist.
// It aliases os.ErrNotExist so errors.Is works across stores.
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for empty names or names escaping the store root.
var ErrInvalidName = errors.New("blobstore: invalid blob name")

// Blob is a read-only view of a stored object.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size is the blob length in bytes.
	Size() int64
}

// Store is a flat namespace of immutable blobs.
type Store interface {
	// Open returns a reader over the named blob, or ErrNotFound.
	Open(ctx context.Context, name string) (Blob, error)
	// Put stores data under name, replacing any previous blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes the named blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// readAtBytes implements io.ReaderAt semantics over an in-memory slice.
func readAtBytes(data []byte, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}
