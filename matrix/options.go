// SPDX-License-Identifier: MIT

// Package matrix: numeric policy defaults.
//
// Design goals:
//   - Deterministic behavior: no global mutable state, no implicit randomness.
//   - A single source of truth for the finite-value guard used by Dense.Set.
//
// Notes:
//   - The decomposition packages carry their own explicit "raise on
//     floating-point error" flag; this package only supplies the checks.
package matrix

// DefaultValidateNaNInf toggles strict finite-value validation in Set.
const DefaultValidateNaNInf = true
