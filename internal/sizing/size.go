// Package sizing provides overflow-safe conversions for archive sizes.
package sizing

import "math"

// ToInt64 converts a uint64 to int64, returning overflowErr if it doesn't fit.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SaturatingAdd adds two sizes, clamping at math.MaxUint64. Archive headers
// are untrusted, so declared totals are only ever used as hints.
func SaturatingAdd(a, b uint64) uint64 {
	if sum, ok := AddUint64(a, b); ok {
		return sum
	}
	return math.MaxUint64
}
