// Package safe provides checked uint64 arithmetic for monetary values.
// All token amounts in this codebase are strictly uint64; any operation
// that could wrap must go through these helpers and surface the failure
// to the caller instead of silently truncating.
package safe

import "math/bits"

// Add returns a+b and reports whether the sum fits in uint64.
func Add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// Sub returns a-b and reports whether the difference is non-negative.
func Sub(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow == 0
}

// Mul returns a*b and reports whether the product fits in uint64.
func Mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}
