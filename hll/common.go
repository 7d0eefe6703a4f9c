// Package hll implements the plain dense/sparse HyperLogLog (component B)
// and its TTL-aware counterpart HLL-TTL (component C), sharing the same
// register-index/rank convention and cardinality estimator (spec.md §4.1).
package hll

import (
	"math"
	"math/bits"

	"github.com/cachesight/wssmrc/internal/mhash"
)

const (
	MinPrecision uint8 = 4
	MaxPrecision uint8 = 16
)

// ValidatePrecision checks b is in spec.md's allowed range [4,16].
func ValidatePrecision(b uint8) error {
	if b < MinPrecision || b > MaxPrecision {
		return errPrecisionRange
	}
	return nil
}

// registerIndex returns i = hash >> (64-b), the top b bits of the mixed hash.
func registerIndex(hash uint64, b uint8) uint32 {
	return uint32(hash >> (64 - b))
}

// rank returns min(ctz(hash)+1, z-1). Per spec.md §4.1 this is computed on
// the FULL 64-bit mixed hash, including the bits already consumed by the
// register index — a deliberate departure from textbook HLL that keeps
// rank and index correlated only through the single shared hash value, not
// through bit-disjointness. Implementations must match this exactly to
// stay bit-equivalent with any persisted sketch.
func rank(hash uint64, z uint8) uint8 {
	r := uint8(bits.TrailingZeros64(hash)) + 1
	if r > z-1 {
		r = z - 1
	}
	return r
}

// maxRank returns Z = 64-b, the cap used by rank().
func maxRank(b uint8) uint8 { return 64 - b }

// mix applies the component-A hash (internal/mhash) to a key_hash before
// it is used for register index / rank derivation.
func mix(keyHash uint64) uint64 { return mhash.Hash64(keyHash) }

// alpha returns the bias-correction constant for m registers (classic
// HyperLogLog constants for small m, the asymptotic formula otherwise).
func alpha(m uint32) float64 {
	switch m {
	case 16:
		return 0.673
	case 32:
		return 0.697
	case 64:
		return 0.709
	default:
		return 0.7213 / (1 + 1.079/float64(m))
	}
}

// estimateFromRanks is the shared HLL-2019-style estimator: a harmonic-mean
// raw estimate with the classic small-range correction (switch to linear
// counting when enough registers are still empty). A register value of 0
// means "never touched" for component B, and "never touched OR evicted
// back to empty" for HLL-TTL — which is exactly what gives HLL-TTL's
// evict_expired_and_count its time-monotone count(t1) >= count(t2) property.
func estimateFromRanks(ranks []uint8) uint64 {
	m := len(ranks)
	sum := 0.0
	zeros := 0
	for _, r := range ranks {
		sum += 1.0 / float64(uint64(1)<<r)
		if r == 0 {
			zeros++
		}
	}

	raw := alpha(uint32(m)) * float64(m) * float64(m) / sum

	// Small-range correction: linear counting replaces the raw estimate
	// whenever raw <= 2.5*m and at least one register is still empty (m is
	// itself a function of b, so this threshold already scales with b).
	if raw <= 2.5*float64(m) && zeros > 0 {
		lc := float64(m) * math.Log(float64(m)/float64(zeros))
		if lc >= 0 {
			return uint64(lc)
		}
	}
	return uint64(raw)
}
