// SPDX-License-Identifier: MIT

// Package id implements the interpolative decomposition (ID) of a dense
// matrix: A ≈ A[:, kept] · P, where P equals the identity on the kept
// columns and InterpolationCoefficients elsewhere.
//
// Two forms are provided:
//
//   - Decompose returns the skeleton A_k (rows×k) and the coefficient block
//     A_ip (k×(cols-k)); Interpolation expands A_ip into the full k×cols P.
//   - DecomposeSparse additionally returns the kept and interpolated column
//     index sets. The butterfly builder uses this form so that only A_ip is
//     stored and the identity part becomes a gather.
//
// Tolerance convention:
//
//	For every column j, ‖A[:, j] - A_k · P[:, j]‖₂ <= eps · max_i ‖A[:, i]‖₂
//	(up to rounding), i.e. eps is relative to the largest column of the block.
//
// The rank is revealed by matrix.PivotedQR; T = R11⁻¹·R12 is the coefficient
// block in pivot order, which is then permuted so that kept and interpolated
// columns both appear in ascending original order.
//
// Floating-point faults are fatal by default: NaN/Inf in the input, or an
// ill-conditioned R11 producing NaN/Inf coefficients, yields ErrNumerical.
// WithRaiseOnFPError(false) lets non-finite values propagate instead.
package id
