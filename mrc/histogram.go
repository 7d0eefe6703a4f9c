// Package mrc implements the miss-ratio-curve generators (components
// G, H, I, J) built on the shared stack-distance substrate (D, E) and the
// histogram-to-MRC conversion (component K).
package mrc

import (
	"fmt"
	"strings"
)

// Histogram accumulates hit counts keyed by stack-distance bucket and
// converts them into a miss-ratio curve (component K).
type Histogram struct {
	BucketWidth uint64
	lastIdx     int // max_cache/bucket_width (spec.md §3); indices beyond this fold into bucket 0
	buckets     map[int]float64
	maxBucket   int
	nRequests   uint64
}

// NewHistogram builds an empty histogram with the given bucket width and
// max_cache ceiling (both in bytes, spec.md §3). bucketWidth must be > 0.
// maxCache of 0 disables the tail fold (no ceiling).
func NewHistogram(bucketWidth, maxCache uint64) *Histogram {
	if bucketWidth == 0 {
		bucketWidth = 1
	}
	lastIdx := int(maxCache / bucketWidth)
	if maxCache == 0 {
		lastIdx = -1 // sentinel: no ceiling, nothing folds
	}
	return &Histogram{
		BucketWidth: bucketWidth,
		lastIdx:     lastIdx,
		buckets:     make(map[int]float64),
	}
}

// bucketFor returns ceil(stackDistance*blockSize / bucketWidth).
func (h *Histogram) bucketFor(stackDistance uint64, blockSize uint64) int {
	num := stackDistance * blockSize
	b := (num + h.BucketWidth - 1) / h.BucketWidth
	return int(b)
}

// fold clamps idx into [0, lastIdx], per spec.md §4.3 step 4: a stack
// distance whose working set exceeds max_cache is credited to bucket 0,
// not dropped or left in an unbounded tail. A negative lastIdx means no
// ceiling was configured and idx passes through unchanged (besides the
// idx<0 clamp).
func (h *Histogram) fold(idx int) int {
	if idx < 0 {
		return 0
	}
	if h.lastIdx >= 0 && idx > h.lastIdx {
		return 0
	}
	return idx
}

// CreditHit records a hit at the given stack distance and block size,
// weighted by weight. Olken++ and both SHARDS++ generators pass 1.0 (the
// SHARDS++ generators scale the stack distance by the sampling rate
// instead of the weight). A bucket index beyond max_cache/bucket_width is folded into
// bucket 0 — spec.md §4.3 step 4's documented tail-error policy.
func (h *Histogram) CreditHit(stackDistance, blockSize uint64, weight float64) {
	idx := h.fold(h.bucketFor(stackDistance, blockSize))
	h.buckets[idx] += weight
	if idx > h.maxBucket {
		h.maxBucket = idx
	}
}

// CreditBucket adds weight directly to an already-computed bucket index
// (used by CounterStacks++, which derives per-row hit counts rather than
// per-access stack distances). Subject to the same tail fold as CreditHit.
func (h *Histogram) CreditBucket(idx int, weight float64) {
	idx = h.fold(idx)
	h.buckets[idx] += weight
	if idx > h.maxBucket {
		h.maxBucket = idx
	}
}

// RescaleAll multiplies every accumulated bucket by factor. Used by
// SHARDS++ fixed-size when its threshold shrinks: every previously
// credited bucket is retroactively renormalized to the new threshold
// (spec.md §4.3's "retroactively rescale previously-credited buckets").
func (h *Histogram) RescaleAll(factor float64) {
	for i, c := range h.buckets {
		h.buckets[i] = c * factor
	}
}

// AddMiss increments the total request count without crediting any bucket.
// Every access, hit or miss, increments the denominator used by MRC.
func (h *Histogram) AddMiss() { h.nRequests++ }

// AddHitRequest increments the total request count for a hit (CreditHit
// does not itself advance the denominator, so callers must call this too).
func (h *Histogram) AddHitRequest() { h.nRequests++ }

// NRequests is the current denominator.
func (h *Histogram) NRequests() uint64 { return h.nRequests }

// SetNRequests overrides the denominator directly. Used by generators
// (CounterStacks++) whose request count is tracked independently of
// per-bucket crediting rather than incremented one access at a time.
func (h *Histogram) SetNRequests(n uint64) { h.nRequests = n }

// MRCPoint is one (cache size, miss ratio) sample.
type MRCPoint struct {
	Bytes     uint64
	MissRatio float64
}

// MRC scans buckets 0..maxBucket, accumulating total hits; every time the
// running total strictly increases it emits a point. The first emitted
// point is always (0, 1.0).
func (h *Histogram) MRC() []MRCPoint {
	points := make([]MRCPoint, 0, h.maxBucket+2)
	points = append(points, MRCPoint{Bytes: 0, MissRatio: 1.0})

	if h.nRequests == 0 {
		return points
	}

	var total float64
	for i := 0; i <= h.maxBucket; i++ {
		c, ok := h.buckets[i]
		if !ok || c == 0 {
			continue
		}
		before := total
		total += c
		if total <= before {
			continue
		}
		ratio := 1.0 - total/float64(h.nRequests)
		points = append(points, MRCPoint{
			Bytes:     uint64(i) * h.BucketWidth,
			MissRatio: clamp01(ratio),
		})
	}
	return points
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// WriteCSV renders the MRC as newline-terminated "bytes,miss_ratio" lines,
// six decimal digits, no trailing whitespace, matching spec.md §6.
func (h *Histogram) WriteCSV() string {
	points := h.MRC()
	var sb strings.Builder
	for _, p := range points {
		fmt.Fprintf(&sb, "%d,%.6f\n", p.Bytes, p.MissRatio)
	}
	return sb.String()
}
