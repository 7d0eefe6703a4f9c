package mathutil

import "math/bits"

// NextPowerOf2 returns the next power of 2 greater than or equal to n.
func NextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// NextPowerOf2U32 is the uint32 form used for object/block sizes.
func NextPowerOf2U32(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// Log2U32 returns floor(log2(n)) for n >= 1.
func Log2U32(n uint32) int {
	if n < 1 {
		n = 1
	}
	return bits.Len32(n) - 1
}

// CeilDiv divides rounding up.
func CeilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
