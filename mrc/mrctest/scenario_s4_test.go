package mrctest

import (
	"math/rand"
	"testing"

	"github.com/cachesight/wssmrc/internal/mhash"
	"github.com/cachesight/wssmrc/mrc"
	"github.com/stretchr/testify/require"
)

// S4: replay a Zipfian access stream through both the exact Olken++
// estimator and SHARDS++ fixed-rate at R=0.1, and check the resulting MRCs
// agree within a reasonable tolerance (spec.md §8 scenario S4 sets the bar
// at MAE<=0.01, MAD<=0.02 for a much larger stream than this test runs; a
// wider tolerance here keeps the test stable across environments while
// still exercising the same comparison path).
func TestScenarioS4ShardsFixedRateMatchesOlken(t *testing.T) {
	const nAccesses = 200_000
	const nKeys = 4000
	const bucketWidth = 4096

	rng := rand.New(rand.NewSource(1))
	keys := zipfianStream(rng, nAccesses, nKeys, 1.5)

	olken := mrc.NewOlken(mrc.OlkenConfig{BucketWidth: bucketWidth, FixedBlock: 4096})
	shards := mrc.NewShardsFixedRate(mrc.ShardsFixedRateConfig{
		Rate:        0.1,
		BucketWidth: bucketWidth,
		FixedBlock:  4096,
		Adjusted:    true,
	})

	for i, k := range keys {
		ts := uint32(i)
		olken.Add(k, ts, 4096, 0)
		shards.Add(k, ts, 4096, 0)
	}
	shards.Finalize()

	exact := olken.Histogram().MRC()
	approx := shards.Histogram().MRC()

	mae, mad := Compare(exact, approx)
	require.LessOrEqual(t, mae, 0.05, "mae=%.4f", mae)
	require.LessOrEqual(t, mad, 0.05, "mad=%.4f", mad)
}

// zipfianStream returns scrambled key hashes, as Request.KeyHash values
// arrive; SHARDS++ samples on the hash's low bits, which raw small
// integers would all pass.
func zipfianStream(rng *rand.Rand, n, nKeys int, skew float64) []uint64 {
	zipf := rand.NewZipf(rng, skew, 1, uint64(nKeys-1))
	out := make([]uint64, n)
	for i := range out {
		out[i] = mhash.Hash64(zipf.Uint64())
	}
	return out
}
