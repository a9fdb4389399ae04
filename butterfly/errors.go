// SPDX-License-Identifier: MIT

package butterfly

import "errors"

var (
	// ErrShape indicates an input whose shape does not match the tree:
	// Apply needs cols×nvec, ApplyTranspose rows×nvec.
	ErrShape = errors.New("butterfly: shape mismatch")

	// ErrInvalidParameter is returned by CompressWith for minRows < 1,
	// chunkSize < 1 or a non-positive eps.
	ErrInvalidParameter = errors.New("butterfly: invalid parameter")

	// ErrCorruptStream reports an unknown tag, an implausible size or a
	// truncated unit while decoding.
	ErrCorruptStream = errors.New("butterfly: corrupt stream")
)
