// SPDX-License-Identifier: MIT
package spectral

import "errors"

var (
	// ErrInvalidSize reports a block length no transform plan can be
	// built for. Lengths must be greater than zero.
	ErrInvalidSize = errors.New("spectral: invalid block size")

	// ErrLengthMismatch reports a sample or destination slice whose
	// length differs from the Processor's block length.
	ErrLengthMismatch = errors.New("spectral: block length mismatch")
)
