package wss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S6: insert one object per power of two from 4B to 1MiB with infinite TTL;
// GetWssVariableBlockSize must return the exact sum, within HLL error.
func TestScenarioS6VariableBlockWSS(t *testing.T) {
	e, err := New(Config{
		Precision: 14,
		MinBlock:  4,
		MaxBlock:  1 << 20,
		TTLAware:  false,
		Mode:      VariableBlock,
	})
	require.NoError(t, err)

	var want uint64
	key := uint64(1)
	for sz := uint32(4); sz <= 1<<20; sz <<= 1 {
		e.Add(key, sz, 0)
		want += uint64(sz)
		key++
	}

	got := e.WSS()
	require.InEpsilonf(t, float64(want), float64(got), 0.08,
		"variable-block WSS = %d, want ~%d", got, want)
}

func TestFixedBlockWSS(t *testing.T) {
	e, err := New(Config{
		Precision:       12,
		MinBlock:        1,
		MaxBlock:        1 << 20,
		FixedBlockBytes: 4096,
		Mode:            FixedBlock,
	})
	require.NoError(t, err)

	for i := uint64(0); i < 1000; i++ {
		e.Add(i, 4096, 0)
	}
	got := e.WSS()
	want := uint64(1000 * 4096)
	require.InEpsilonf(t, float64(want), float64(got), 0.05, "got %d want ~%d", got, want)
}

func TestTTLAwareWSSEviction(t *testing.T) {
	e, err := New(Config{
		Precision:       10,
		MinBlock:        1,
		MaxBlock:        1 << 20,
		FixedBlockBytes: 1024,
		TTLAware:        true,
		Mode:            FixedBlock,
	})
	require.NoError(t, err)

	for i := uint64(0); i < 200; i++ {
		e.Add(i, 1024, 100)
	}
	before := e.EvictExpiredAndWSS(50)
	require.Greater(t, before, uint64(0))

	after := e.EvictExpiredAndWSS(200)
	require.EqualValues(t, 0, after)
}

func TestExactWSSMatchesSumOfBlocks(t *testing.T) {
	x := NewExact(0)
	var want uint64
	for i := uint64(0); i < 500; i++ {
		sz := uint32(100 + i)
		x.Add(i, sz, 1000)
		want += uint64(sz)
	}
	require.EqualValues(t, 500, x.Cardinality())
	require.EqualValues(t, want, x.WSS())

	x.Evict(999) // before expiry: idempotent no-op
	require.EqualValues(t, 500, x.Cardinality())

	x.Evict(1000)
	require.EqualValues(t, 0, x.Cardinality())
	require.EqualValues(t, 0, x.WSS())
}

func TestExactWSSObjectCapSilentDrop(t *testing.T) {
	x := NewExact(10)
	for i := uint64(0); i < 20; i++ {
		x.Add(i, 64, 1000)
	}
	require.EqualValues(t, 10, x.Cardinality())
	require.EqualValues(t, 10, x.Dropped())
}

func TestExactWSSUpgradeExpiryOnRepeat(t *testing.T) {
	x := NewExact(0)
	x.Add(1, 100, 50)
	x.Add(1, 100, 500) // re-access with a later expiry: upgrade, not duplicate
	require.EqualValues(t, 1, x.Cardinality())

	x.Evict(100)
	require.EqualValues(t, 1, x.Cardinality(), "expiry should have been upgraded to 500")
}
