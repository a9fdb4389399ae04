// SPDX-License-Identifier: MIT

package shard

import "errors"

var (
	// ErrNotFound is returned by Get for a key the shard does not hold.
	ErrNotFound = errors.New("shard: key not found")

	// ErrCorrupt indicates a record that cannot be decoded.
	ErrCorrupt = errors.New("shard: corrupt record")

	// ErrUnknownCodec is returned for a codec name or byte outside the known set.
	ErrUnknownCodec = errors.New("shard: unknown codec")
)
