/*
Package bitint provides the bit manipulation helpers used for transform
and buffer sizing. Every operation runs in constant time on stack memory
only, so the helpers are safe to call from real-time paths.

Usage:

	// Round a requested block length up to the next fast transform size.
	blockSize := bitint.NextPowerOfTwo(1000) // 1024

	// Check whether a block length runs on the power-of-two codelets.
	fast := bitint.IsPowerOfTwo(blockSize)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Sizes below one
// return 1.
//
// The size-1 subtraction keeps exact powers of two unchanged: without it,
// Len would see the high bit of an exact power and double the result.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of two
// have exactly one bit set, so n&(n-1) clears to zero only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
