// Package mrctest compares two miss-ratio curves for accuracy testing —
// e.g. an approximate SHARDS++/CounterStacks++ curve against an exact
// Olken++ oracle (spec.md §8 scenario S4).
package mrctest

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cachesight/wssmrc/mrc"
)

// missRatioAt steps through points (sorted by Bytes ascending, as MRC()
// always returns them) and returns the miss ratio in effect at size —
// the ratio of the last point whose Bytes <= size, or 1.0 below the
// first point.
func missRatioAt(points []mrc.MRCPoint, size uint64) float64 {
	idx := sort.Search(len(points), func(i int) bool { return points[i].Bytes > size })
	if idx == 0 {
		return 1.0
	}
	return points[idx-1].MissRatio
}

// Compare evaluates approx against exact at every size exact names a point
// for, and returns the mean absolute error and mean absolute deviation of
// the per-point differences. Lower is better; spec.md §8 scenario S4
// requires MAE <= 0.01 and MAD <= 0.02 for SHARDS++ fixed-rate at R=0.1
// against the exact Olken++ curve.
func Compare(exact, approx []mrc.MRCPoint) (mae, mad float64) {
	if len(exact) == 0 {
		return 0, 0
	}
	diffs := make([]float64, len(exact))
	absDiffs := make([]float64, len(exact))
	for i, p := range exact {
		d := missRatioAt(approx, p.Bytes) - p.MissRatio
		diffs[i] = d
		absDiffs[i] = absFloat(d)
	}

	mae = stat.Mean(absDiffs, nil)

	meanDiff := stat.Mean(diffs, nil)
	devs := make([]float64, len(diffs))
	for i, d := range diffs {
		devs[i] = absFloat(d - meanDiff)
	}
	mad = stat.Mean(devs, nil)
	return mae, mad
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
