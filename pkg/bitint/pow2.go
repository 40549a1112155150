// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to validate analysis
window sizes. STFT windows are kept at powers of two so every frame runs
through the radix-2 path of the FFT.

	bitint.IsPowerOfTwo(2048)  // true
	bitint.NextPowerOfTwo(2000) // 2048

The subtraction in NextPowerOfTwo matters: bits.Len(size-1) keeps an exact
power of two unchanged (8 -> 8) instead of doubling it (8 -> 16).
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two <= size, or 0 for
// non-positive sizes.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
// (n & (n-1)) clears the lowest set bit, which leaves zero only when a single
// bit was set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
