// SPDX-License-Identifier: MIT

package legendre

import (
	"fmt"
	"math"

	"github.com/katalvlaran/wavemoth/matrix"
)

// Columns returns the number of degrees l of parity odd for order m:
// l = m+odd, m+odd+2, ..., <= lmax.
func Columns(m, lmax int, odd bool) int {
	first := m
	if odd {
		first++
	}
	if first > lmax {
		return 0
	}

	return (lmax-first)/2 + 1
}

// Matrix samples λ_l^m(cos θ) for l = m+odd, m+odd+2, ..., <= lmax at
// every theta; row i is thetas[i], column c is degree m+odd+2c.
//
// Implementation:
//   - Stage 1: λ_m^m in log space, log λ_mm = ½·log((2m+1)/(4π)·Π(2k-1)/(2k))
//     + m·log sin θ, with sign (-1)^m; underflow maps to 0.
//   - Stage 2: λ_{m+1}^m = x·√(2m+3)·λ_m^m.
//   - Stage 3: λ_l^m = c_l·x·λ_{l-1}^m - d_l·λ_{l-2}^m, with
//     c_l = √((4l²-1)/(l²-m²)) and
//     d_l = √((2l+1)(l-1-m)(l-1+m) / ((2l-3)(l²-m²))).
//
// Errors:
//   - ErrInvalidOrder if m < 0 or m > lmax.
//
// Complexity:
//   - Time O(len(thetas)·(lmax-m)), Space O(output).
func Matrix(m, lmax int, odd bool, thetas []float64) (*matrix.Dense, error) {
	if m < 0 || m > lmax {
		return nil, fmt.Errorf("Matrix: m=%d lmax=%d: %w", m, lmax, ErrInvalidOrder)
	}
	cols := Columns(m, lmax, odd)
	out := matrix.Zeros(len(thetas), cols)
	if cols == 0 {
		return out, nil
	}
	parity := 0
	if odd {
		parity = 1
	}
	c, d := recurrence(m, lmax)
	logMM := logLambdaMM(m)
	sign := 1.0
	if m%2 == 1 {
		sign = -1
	}
	raw := out.Raw()
	for i, theta := range thetas {
		x, s := math.Cos(theta), math.Sin(theta)
		row := raw[i*cols : (i+1)*cols]
		var prev2, prev float64
		if m == 0 {
			prev = math.Exp(logMM)
		} else if s > 0 {
			prev = sign * math.Exp(logMM+float64(m)*math.Log(s))
		}
		for l := m; l <= lmax; l++ {
			var cur float64
			switch l {
			case m:
				cur = prev
			case m + 1:
				cur = x * math.Sqrt(float64(2*m+3)) * prev
			default:
				cur = c[l-m]*x*prev - d[l-m]*prev2
			}
			if l > m {
				prev2, prev = prev, cur
			}
			if (l-m)%2 == parity {
				row[(l-m)/2] = cur
			}
		}
	}

	return out, nil
}

// logLambdaMM is log|λ_m^m| without the sin^m θ factor.
func logLambdaMM(m int) float64 {
	acc := math.Log(float64(2*m+1)) - math.Log(4*math.Pi)
	for k := 1; k <= m; k++ {
		acc += math.Log(float64(2*k-1)) - math.Log(float64(2*k))
	}

	return 0.5 * acc
}

// recurrence returns c_l and d_l indexed by l-m for l >= m+2.
func recurrence(m, lmax int) ([]float64, []float64) {
	n := lmax - m + 1
	c := make([]float64, n)
	d := make([]float64, n)
	mm := float64(m * m)
	for l := m + 2; l <= lmax; l++ {
		fl := float64(l)
		den := fl*fl - mm
		c[l-m] = math.Sqrt((4*fl*fl - 1) / den)
		d[l-m] = math.Sqrt((2*fl + 1) * (fl - 1 - float64(m)) * (fl - 1 + float64(m)) / ((2*fl - 3) * den))
	}

	return c, d
}
