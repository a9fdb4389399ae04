// SPDX-License-Identifier: MIT

// Package legendre supplies the matrices the precompute pipeline compresses:
// normalized associated Legendre functions λ_l^m(cos θ) sampled on the
// HEALPix ring colatitudes.
//
// For order m and parity odd, the matrix has one row per ring and one column
// per degree l = m+odd, m+odd+2, ..., <= lmax. Adjacent columns of a fixed
// parity are smooth in θ, which is what makes the butterfly compression of
// these matrices effective.
//
// Normalization follows the spherical-harmonic convention
// Y_lm(θ, φ) = λ_l^m(cos θ)·e^{imφ} with ∫|Y_lm|² dΩ = 1, including the
// Condon-Shortley phase (-1)^m.
package legendre
