package hll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withinPct(t *testing.T, got, want uint64, pct float64) {
	t.Helper()
	lo := float64(want) * (1 - pct)
	hi := float64(want) * (1 + pct)
	assert.True(t, float64(got) >= lo && float64(got) <= hi,
		"got %d, want within %.0f%% of %d", got, pct*100, want)
}

// S1: basic eviction scenario from spec.md §8.
func TestScenarioS1BasicEviction(t *testing.T) {
	sk, err := NewTTL(12)
	require.NoError(t, err)

	sk.Add(0x0001, 100)
	sk.Add(0x0002, 100)
	sk.Add(0x0003, 200)

	withinPct(t, sk.CountAt(50), 3, 0.05)
	withinPct(t, sk.CountAt(100), 1, 0.05)
	withinPct(t, sk.CountAt(200), 0, 0.05)
}

func TestMonotonicEviction(t *testing.T) {
	sk, err := NewTTL(10)
	require.NoError(t, err)
	for i := uint64(0); i < 500; i++ {
		sk.Add(i, uint32(i%100)+1)
	}

	prev := sk.EvictExpiredAndCount(0)
	for now := uint32(1); now <= 120; now += 5 {
		cur := sk.EvictExpiredAndCount(now)
		assert.LessOrEqualf(t, cur, prev, "count must be non-increasing: now=%d", now)
		prev = cur
	}
	assert.EqualValues(t, 0, prev)
}

func TestMergeIdempotence(t *testing.T) {
	a, _ := NewTTL(10)
	b, _ := NewTTL(10)
	for i := uint64(0); i < 300; i++ {
		b.Add(i, 1000)
	}

	c1 := a.MergeCount(b, 1, false)
	c2 := a.MergeCount(b, 1, false) // same merge_sn: no-op, must return cached count
	assert.Equal(t, c1, c2)

	c3 := a.MergeCount(b, 1, true) // forced re-merge of the same source: idempotent result
	assert.Equal(t, c1, c3)
}

func TestSparseDenseEquivalenceBelowCapacity(t *testing.T) {
	precision := uint8(8)
	sparse, _ := NewTTL(precision)
	for i := uint64(0); i < 10; i++ {
		sparse.Add(i, 1000)
	}
	require.True(t, sparse.IsSparse())

	exact := sparse.CountAt(500)
	assert.EqualValues(t, 10, exact, "below sparse capacity, count must be exact")

	dense, _ := NewTTL(precision)
	for i := uint64(0); i < 10; i++ {
		dense.Add(i, 1000)
	}
	dense.promote()
	require.False(t, dense.IsSparse())
	assert.Equal(t, exact, dense.CountAt(500), "sparse and dense counts must agree below capacity")
}

func TestForcedPromotionPreservesCount(t *testing.T) {
	sk, _ := NewTTL(8)
	for i := uint64(0); i < 20; i++ {
		sk.Add(i, 1000)
	}
	before := sk.CountAt(0)
	sk.promote()
	require.False(t, sk.IsSparse())
	after := sk.CountAt(0)
	assert.Equal(t, before, after)
}

func TestScenarioS3TTLForcesMiss(t *testing.T) {
	sk, _ := NewTTL(10)
	sk.Add(0xA, 5)
	assert.EqualValues(t, 1, sk.EvictExpiredAndCount(0))
	assert.EqualValues(t, 0, sk.EvictExpiredAndCount(10))
}

func TestPromotionRecursionSafety(t *testing.T) {
	sk, _ := NewTTL(4) // small m => small sparse capacity => promotes quickly
	for i := uint64(0); i < 1000; i++ {
		sk.Add(i, 1000)
	}
	require.False(t, sk.IsSparse())
	require.Greater(t, sk.Promotions(), 0)
}
