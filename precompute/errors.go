// SPDX-License-Identifier: MIT

package precompute

import "errors"

var (
	// ErrConsistency reports shards that disagree with each other or with
	// the header: conflicting duplicates, foreign parameters, wrong keys or
	// missing keys.
	ErrConsistency = errors.New("precompute: inconsistent shards")

	// ErrInvalidPlan reports a Run configuration that cannot be executed.
	ErrInvalidPlan = errors.New("precompute: invalid plan")
)
