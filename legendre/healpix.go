// SPDX-License-Identifier: MIT

package legendre

import (
	"fmt"
	"math"
)

// RingCount is the number of iso-latitude rings of a HEALPix grid.
func RingCount(nside int) int { return 4*nside - 1 }

// RingZ returns z = cos θ of ring i (1-based, north to south).
//
//	i < N:        z = 1 - i²/(3N²)
//	N <= i <= 3N: z = 4/3 - 2i/(3N)
//	i > 3N:       z = -1 + (4N-i)²/(3N²)
func RingZ(nside, i int) float64 {
	n := float64(nside)
	fi := float64(i)
	switch {
	case i < nside:
		return 1 - fi*fi/(3*n*n)
	case i <= 3*nside:
		return 4.0/3.0 - 2*fi/(3*n)
	default:
		r := 4*n - fi

		return -1 + r*r/(3*n*n)
	}
}

// RingThetas returns the colatitudes of the HEALPix rings. With northOnly
// only rings 1..2N are returned (z >= 0, the equator included); the
// southern rings follow from symmetry with parity (-1)^(l+m).
//
// Errors:
//   - ErrInvalidNside if nside < 1.
func RingThetas(nside int, northOnly bool) ([]float64, error) {
	if nside < 1 {
		return nil, fmt.Errorf("RingThetas: nside=%d: %w", nside, ErrInvalidNside)
	}
	count := RingCount(nside)
	if northOnly {
		count = 2 * nside
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Acos(RingZ(nside, i+1))
	}

	return out, nil
}
