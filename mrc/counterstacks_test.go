package mrc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCounterStacks(t *testing.T, capacity int) *CounterStacks {
	t.Helper()
	cs, err := NewCounterStacks(CounterStacksConfig{
		Precision:   10,
		Capacity:    capacity,
		BucketWidth: 4096,
		Fidelity:    HiFi,
		FixedBlock:  4096,
	})
	require.NoError(t, err)
	return cs
}

// Property 8: for every epoch row j, cur[j] >= prev[j] (union-monotone)
// and cur[j+1] >= cur[j] (wider window dominates).
func TestPropertyCounterStacksRowInvariants(t *testing.T) {
	cs := newTestCounterStacks(t, 8)

	var ts uint32
	for trigger := 0; trigger < 5; trigger++ {
		for i := 0; i < 200; i++ {
			cs.Add(uint64(trigger*1000+i), ts, 4096, 0)
			ts++
		}
		cs.ProcessStack(ts)

		cur := cs.Cur()
		prev := cs.Prev() // equals cur right after ProcessStack sets prev<-cur

		for j := range cur {
			require.GreaterOrEqual(t, cur[j], prev[j], "row %d not union-monotone", j)
		}
		for j := 1; j < len(cur); j++ {
			require.GreaterOrEqual(t, cur[j], cur[j-1], "row %d: wider window should dominate", j)
		}
	}
}

// S5: trigger process_stack three times, then serialize/deserialize each
// retired HLL-TTL; the resulting MRC bytes must be unchanged.
func TestScenarioS5CounterStacksRoundTrip(t *testing.T) {
	cs := newTestCounterStacks(t, 8)

	var ts uint32
	for trigger := 0; trigger < 3; trigger++ {
		for i := 0; i < 300; i++ {
			cs.Add(uint64(trigger*500+i), ts, 4096, 0)
			ts++
		}
		cs.ProcessStack(ts)
	}

	csv := cs.Histogram().WriteCSV()

	ck := cs.Checkpoint()
	blob, err := EncodeCheckpoint(ck)
	require.NoError(t, err)

	restored, err := DecodeCheckpoint(blob)
	require.NoError(t, err)

	require.Equal(t, cs.Cur(), restored.Cur())
	require.Equal(t, csv, restored.Histogram().WriteCSV())
}

func TestCounterStacksCapacityPruning(t *testing.T) {
	cs := newTestCounterStacks(t, 3)

	var ts uint32
	for trigger := 0; trigger < 10; trigger++ {
		for i := 0; i < 50; i++ {
			cs.Add(uint64(trigger*50+i), ts, 4096, 0)
			ts++
		}
		cs.ProcessStack(ts)
		require.LessOrEqual(t, len(cs.Counters()), 3)
	}
}

func TestCounterStacksParallelMerge(t *testing.T) {
	cs, err := NewCounterStacks(CounterStacksConfig{
		Precision:    10,
		Capacity:     6,
		BucketWidth:  4096,
		Fidelity:     HiFi,
		FixedBlock:   4096,
		MergeWorkers: 4,
	})
	require.NoError(t, err)

	var ts uint32
	for trigger := 0; trigger < 6; trigger++ {
		for i := 0; i < 100; i++ {
			cs.Add(uint64(trigger*100+i), ts, 4096, 0)
			ts++
		}
		cs.ProcessStack(ts)
	}
	require.NotEmpty(t, cs.Counters())
}
