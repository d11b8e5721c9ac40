// Package safeconv provides safe integer type conversion functions that panic on overflow.
package safeconv

import "math"

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustIntToUint64 converts int to uint64, panics if negative.
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		panic("safeconv: negative int to uint64 conversion")
	}

	return uint64(v)
}

// MustUint64ToInt64 converts uint64 to int64, panics on overflow.
// Counters such as rotation totals go through it before reaching APIs that
// take signed values.
func MustUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		panic("safeconv: uint64 to int64 overflow")
	}

	return int64(v)
}
