// SPDX-License-Identifier: MIT

package legendre

import "errors"

var (
	// ErrInvalidNside indicates Nside < 1.
	ErrInvalidNside = errors.New("legendre: invalid Nside")

	// ErrInvalidOrder indicates m < 0 or m > lmax.
	ErrInvalidOrder = errors.New("legendre: invalid order m")
)
