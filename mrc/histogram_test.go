package mrc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistogramFirstPointIsZeroOne(t *testing.T) {
	h := NewHistogram(4096, 0)
	h.AddMiss()
	h.AddMiss()
	points := h.MRC()
	require.Equal(t, MRCPoint{Bytes: 0, MissRatio: 1.0}, points[0])
}

func TestHistogramNegativeBucketFoldsIntoBucketZero(t *testing.T) {
	h := NewHistogram(1, 0)
	// bucketFor with BucketWidth=1 never overflows naturally; exercise the
	// explicit negative-index clamp directly.
	h.CreditBucket(-5, 3)
	require.EqualValues(t, 3, h.buckets[0])
}

// A stack distance whose implied cache size exceeds max_cache must fold
// into bucket 0 rather than extend the histogram's tail, per spec.md §4.3
// step 4 (reaffirmed §9 open-question 1).
func TestHistogramOverMaxCacheFoldsIntoBucketZero(t *testing.T) {
	h := NewHistogram(10, 30) // lastIdx = 3
	h.CreditHit(5, 10, 1)     // idx = 5, beyond lastIdx=3 -> folds to 0
	require.EqualValues(t, 1, h.buckets[0])
	_, ok := h.buckets[5]
	require.False(t, ok)

	h.CreditHit(3, 10, 1) // idx = 3, at the ceiling -> stays put
	require.EqualValues(t, 1, h.buckets[3])
}

func TestHistogramRescaleAll(t *testing.T) {
	h := NewHistogram(10, 0)
	h.CreditHit(1, 10, 4)
	h.CreditHit(2, 10, 6)
	h.RescaleAll(0.5)
	require.InDelta(t, 2.0, h.buckets[1], 1e-9)
	require.InDelta(t, 3.0, h.buckets[2], 1e-9)
}

func TestHistogramCSVFormat(t *testing.T) {
	h := NewHistogram(4096, 0)
	h.AddMiss()
	h.CreditHit(1, 4096, 1)
	h.AddHitRequest()
	csv := h.WriteCSV()
	require.Contains(t, csv, "0,1.000000\n")
	require.Contains(t, csv, "4096,0.500000\n")
}
