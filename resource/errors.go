// SPDX-License-Identifier: MIT

package resource

import "errors"

var (
	// ErrBadHeader indicates a header or table that cannot describe a valid file.
	ErrBadHeader = errors.New("resource: bad header")

	// ErrMissingKey is returned for a key whose table entry is empty.
	ErrMissingKey = errors.New("resource: missing key")

	// ErrKeyOrder reports an Add out of strictly increasing key order.
	ErrKeyOrder = errors.New("resource: keys must be added in increasing order")

	// ErrKeyRange reports a key outside 0 <= m <= mmax.
	ErrKeyRange = errors.New("resource: key out of range")

	// ErrClosed is returned by a Writer used after Close.
	ErrClosed = errors.New("resource: writer closed")
)
