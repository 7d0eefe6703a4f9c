// Package config holds the immutable configuration surface that every
// estimator constructor in this module consumes (spec.md §6). There are no
// environment variables read here; a config.Engine value is built once, at
// startup, and passed down — the pattern the cache package uses for its own
// Config/DefaultConfig pair.
package config

import "github.com/cachesight/wssmrc/mrc"

// Engine is the full configuration surface required at construction time.
// Zero-value fields are invalid; use DefaultPreset (or one of the other
// presets) as a starting point and override individual fields.
type Engine struct {
	MaxCacheBytes    uint64 // 2 TiB default
	BucketWidthBytes uint64 // 32 MiB default
	FixedBlockBytes  uint32 // 4 KiB default
	MinBlock         uint32
	MaxBlock         uint32

	Precision uint8 // HLL precision b, [4,16]

	// Exactly one of SamplingRate or SampleCap governs a SHARDS++ run;
	// which one is read depends on which estimator is constructed.
	SamplingRate float64
	SampleCap    int

	CounterCapacity int
	Fidelity        mrc.Fidelity

	MaxDistinctObjects int // exact calculators' distinct-key cap (wss.Exact drops new keys, Olken++/SHARDS++ evict the LRU key)
	MergeWorkers       int // CounterStacks++ fork-join merge pool size
}

const (
	defaultMaxCacheBytes    = 2 << 40 // 2 TiB
	defaultBucketWidthBytes = 32 << 20
	defaultFixedBlockBytes  = 4 << 10
	defaultMinBlock         = 64
	defaultMaxBlock         = 8 << 20
	defaultPrecision        = 14
)

// DefaultPreset returns a general-purpose configuration: HiFi fidelity,
// fixed-rate SHARDS++ sampling at R=0.1.
func DefaultPreset() Engine {
	return Engine{
		MaxCacheBytes:      defaultMaxCacheBytes,
		BucketWidthBytes:   defaultBucketWidthBytes,
		FixedBlockBytes:    defaultFixedBlockBytes,
		MinBlock:           defaultMinBlock,
		MaxBlock:           defaultMaxBlock,
		Precision:          defaultPrecision,
		SamplingRate:       0.1,
		CounterCapacity:    1000,
		Fidelity:           mrc.HiFi,
		MaxDistinctObjects: 50_000_000,
		MergeWorkers:       4,
	}
}

// HiFiPreset favors accuracy over memory: finer HLL precision, a smaller
// CounterStacks++ trigger period (via mrc.HiFi) and a tighter SHARDS++
// sample-size cap rather than a fixed rate.
func HiFiPreset() Engine {
	e := DefaultPreset()
	e.Precision = 16
	e.SamplingRate = 0
	e.SampleCap = 8192
	e.CounterCapacity = 4000
	e.Fidelity = mrc.HiFi
	return e
}

// LoFiPreset favors memory and throughput: coarser HLL precision, a longer
// CounterStacks++ trigger period, and a higher fixed sampling rate.
func LoFiPreset() Engine {
	e := DefaultPreset()
	e.Precision = 12
	e.SamplingRate = 0.25
	e.CounterCapacity = 200
	e.Fidelity = mrc.LoFi
	e.MergeWorkers = 1
	return e
}

// ClampBlock applies [MinBlock, MaxBlock] at trace ingestion, per spec.md §6.
func (e Engine) ClampBlock(size uint32) uint32 {
	if size < e.MinBlock {
		return e.MinBlock
	}
	if size > e.MaxBlock {
		return e.MaxBlock
	}
	return size
}
