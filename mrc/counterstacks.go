package mrc

import (
	"sync"

	"github.com/cachesight/wssmrc/hll"
	"github.com/cachesight/wssmrc/internal/evictindex"
)

// Fidelity selects CounterStacks++'s sampling period and pruning
// aggressiveness, per spec.md §4.3/§6.
type Fidelity int

const (
	HiFi Fidelity = iota
	LoFi
)

func (f Fidelity) periodSeconds() uint32 {
	if f == LoFi {
		return 3600
	}
	return 60
}

func (f Fidelity) delta() float64 {
	if f == LoFi {
		return 0.1
	}
	return 0.02
}

func (f Fidelity) roundingSeconds() uint32 {
	if f == LoFi {
		return 60
	}
	return 30
}

const (
	downsampleMin      = 10_000
	downsampleMax      = 1_000_000
	evictionEpochCap   = 8000
	evictionRetainFrac = 0.9
)

// CounterStacksConfig configures a CounterStacks generator.
type CounterStacksConfig struct {
	Precision    uint8
	Capacity     int // counter_capacity: bound on retired counters, not counting the open accumulator
	BucketWidth  uint64
	MaxCache     uint64 // max_cache ceiling (spec.md §3); 0 disables the tail fold
	Fidelity     Fidelity
	FixedBlock   uint32
	MergeWorkers int // degree of the fork-join merge pool; <=1 runs serially
}

// CounterStacks is the approximate MRC generator via a bounded bank of
// HLL-TTLs forming a union-cardinality matrix over time (component J).
// `retired[0:used]` are closed counters, each the union of all accesses
// starting from some past epoch; `newCounter` is the currently open
// accumulator for the window since the last trigger.
type CounterStacks struct {
	cfg CounterStacksConfig

	retired    []*hll.TTL
	used       int
	newCounter *hll.TTL

	prev []uint64
	cur  []uint64

	hist *Histogram

	requestsSinceTrigger int
	lastTriggerTime      uint32
	haveLastTriggerTime  bool

	wssHint uint64 // current WSS estimate, used to size the downsample trigger

	evictions *evictindex.Index

	mergeSN int64

	fixedBlock  uint32
	runningMean float64
	nSeen       uint64

	promotionCount uint64
	mergeCount     uint64
	pruneCount     uint64
}

// CounterStacksStats reports telemetry counters for monitoring.
type CounterStacksStats struct {
	Used           int
	PromotionCount uint64
	MergeCount     uint64
	PruneCount     uint64
	NSeen          uint64
}

// Stats returns a point-in-time snapshot of this generator's counters.
func (cs *CounterStacks) Stats() CounterStacksStats {
	return CounterStacksStats{
		Used:           cs.used,
		PromotionCount: cs.promotionCount,
		MergeCount:     cs.mergeCount,
		PruneCount:     cs.pruneCount,
		NSeen:          cs.nSeen,
	}
}

// NewCounterStacks builds a CounterStacks generator.
func NewCounterStacks(cfg CounterStacksConfig) (*CounterStacks, error) {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	cs := &CounterStacks{
		cfg:        cfg,
		retired:    make([]*hll.TTL, cfg.Capacity),
		evictions:  evictindex.New(),
		fixedBlock: cfg.FixedBlock,
		hist:       NewHistogram(cfg.BucketWidth, cfg.MaxCache),
	}
	sk, err := hll.NewTTL(cfg.Precision)
	if err != nil {
		return nil, err
	}
	cs.newCounter = sk
	return cs, nil
}

// WSSHint lets the caller feed in the current WSS estimate (from a
// companion wss.Estimator), used to size the downsample trigger
// proportionally per spec.md §4.3.
func (cs *CounterStacks) WSSHint(wss uint64) { cs.wssHint = wss }

func (cs *CounterStacks) downsampleTarget() int {
	target := int(cs.wssHint / 4096) // rough distinct-object proxy
	if target < downsampleMin {
		target = downsampleMin
	}
	if target > downsampleMax {
		target = downsampleMax
	}
	return target
}

// Add offers one request. It records the access into the open accumulator
// and, if a batching trigger fires, runs process_stack.
func (cs *CounterStacks) Add(keyHash uint64, timestamp, blockSize, expiry uint32) {
	cs.nSeen++
	cs.runningMean += (float64(blockSize) - cs.runningMean) / float64(cs.nSeen)

	cs.newCounter.Add(keyHash, expiry)
	cs.evictions.Register(cs.coarsen(expiry), keyHash)
	cs.enforceEvictionCap()

	cs.requestsSinceTrigger++

	triggerByTTL := false
	cs.evictions.PopExpired(timestamp, func(uint64) { triggerByTTL = true })

	var elapsed uint32
	if cs.haveLastTriggerTime {
		elapsed = timestamp - cs.lastTriggerTime
	}

	if cs.requestsSinceTrigger >= cs.downsampleTarget() ||
		elapsed >= cs.cfg.Fidelity.periodSeconds() ||
		triggerByTTL {
		cs.processStack(timestamp)
	}
}

func (cs *CounterStacks) coarsen(expiry uint32) uint32 {
	r := cs.cfg.Fidelity.roundingSeconds()
	return ((expiry + r - 1) / r) * r
}

// enforceEvictionCap keeps the eviction index's distinct-epoch count under
// evictionEpochCap by dropping the furthest-future epochs until only the
// evictionRetainFrac of epochs with the nearest expiries remain, per spec.md §4.3's "overflow
// retains the smallest 90%". This only affects the process_stack trigger
// signal, not counter contents: actual TTL eviction of cells happens
// inside each HLL-TTL from its own stored expiries.
func (cs *CounterStacks) enforceEvictionCap() {
	if cs.evictions.Len() <= evictionEpochCap {
		return
	}
	target := int(float64(evictionEpochCap) * evictionRetainFrac)
	for cs.evictions.Len() > target {
		cs.evictions.DropFurthest()
	}
}

func (cs *CounterStacks) block() uint32 {
	b := cs.fixedBlock
	if b == 0 {
		b = uint32(cs.runningMean)
		if b == 0 {
			b = 1
		}
	}
	return b
}

// processStack runs one batching trigger: evict+count the open
// accumulator, merge it into every retired counter, promote it, derive
// per-row hit counts, prune, and swap prev<-cur.
func (cs *CounterStacks) processStack(now uint32) {
	cs.newCounter.EvictExpiredAndCount(now)

	cs.mergeSN++
	cs.mergeNewIntoRetired()
	cs.recordMerge()

	cs.promote()

	cs.computeCurAndCredit()
	cs.prune()

	cs.prev = append(cs.prev[:0], cs.cur...)

	cs.requestsSinceTrigger = 0
	cs.lastTriggerTime = now
	cs.haveLastTriggerTime = true
}

// mergeNewIntoRetired fans the just-closed accumulator out to every live
// retired counter, optionally in parallel (data-disjoint merges: each
// retired counter is touched by exactly one goroutine).
func (cs *CounterStacks) mergeNewIntoRetired() {
	workers := cs.cfg.MergeWorkers
	if workers <= 1 || cs.used <= 1 {
		for i := 0; i < cs.used; i++ {
			cs.retired[i].MergeCount(cs.newCounter, cs.mergeSN, false)
		}
		return
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < cs.used; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			cs.retired[i].MergeCount(cs.newCounter, cs.mergeSN, false)
		}()
	}
	wg.Wait()
}

func (cs *CounterStacks) recordMerge() { cs.mergeCount += uint64(cs.used) }

// promote closes the current accumulator into the retired array and opens
// a fresh one. If the retired array is already full, it first frees
// exactly one slot via closest-pair pruning (spec.md §4.3 step 5's
// capacity-overflow case, applied early so promotion always has room).
func (cs *CounterStacks) promote() {
	if cs.used == len(cs.retired) {
		cs.closestPairPrune()
	}
	cs.retired[cs.used] = cs.newCounter
	cs.used++
	cs.promotionCount++

	sk, err := hll.NewTTL(cs.cfg.Precision)
	if err == nil {
		cs.newCounter = sk
	}
}

// computeCurAndCredit fills cur[] with each live retired counter's current
// cardinality and credits the histogram with the per-row differential hit
// counts spec.md §4.3 step 4 describes. Rows are ordered oldest-epoch
// first, matching retired's storage order.
func (cs *CounterStacks) computeCurAndCredit() {
	cs.cur = cs.cur[:0]
	for i := 0; i < cs.used; i++ {
		cs.cur = append(cs.cur, cs.retired[i].Count())
	}
	for len(cs.prev) < len(cs.cur) {
		cs.prev = append(cs.prev, 0) // a row promoted this trigger had no previous value
	}

	b := uint64(cs.block())
	for j := 0; j < len(cs.cur); j++ {
		var h float64
		if j+1 < len(cs.cur) {
			// Signed space: an HLL estimate can drop between triggers and
			// the outer difference is negative whenever row j grew more
			// than row j+1. uint64 arithmetic would underflow to a huge
			// value before the float64 cast.
			h = float64((int64(cs.cur[j+1]) - int64(cs.prev[j+1])) - (int64(cs.cur[j]) - int64(cs.prev[j])))
		} else {
			h = float64(cs.cur[j]) // last row uses the final counter's cardinality
		}
		idx := cs.hist.bucketFor(cs.cur[j], b)
		cs.hist.CreditBucket(idx, h)
	}
	cs.hist.SetNRequests(cs.nSeen)
}

// prune drops retired counters whose added coverage over the previously
// kept counter falls below the fidelity's delta, keeping the newest
// counter unconditionally (spec.md §4.3 step 5).
func (cs *CounterStacks) prune() {
	if cs.used == 0 {
		return
	}

	delta := cs.cfg.Fidelity.delta()
	keep := make([]bool, cs.used)
	keep[cs.used-1] = true
	lastKept := cs.used - 1

	for k := cs.used - 2; k >= 0; k-- {
		if cs.cur[k] == 0 || float64(cs.cur[k]) < (1-delta)*float64(cs.cur[lastKept]) {
			keep[k] = true
			lastKept = k
		}
	}
	for _, k := range keep {
		if !k {
			cs.pruneCount++
		}
	}
	cs.compact(keep)
}

// closestPairPrune frees exactly one retired slot, choosing the adjacent
// pair of rows with the smallest relative cardinality gap to collapse.
func (cs *CounterStacks) closestPairPrune() {
	bestGap := 1.0
	bestIdx := -1
	for k := 1; k < cs.used; k++ {
		if cs.cur[k-1] == 0 {
			continue
		}
		gap := 1 - float64(cs.cur[k])/float64(cs.cur[k-1])
		if gap < bestGap {
			bestGap = gap
			bestIdx = k
		}
	}
	if bestIdx < 0 {
		bestIdx = 0 // no usable gap signal yet: drop the oldest row
	}
	keep := make([]bool, cs.used)
	for i := range keep {
		keep[i] = i != bestIdx
	}
	cs.pruneCount++
	cs.compact(keep)
}

// compact rewrites retired/cur/prev to contain only the rows keep marks
// true, preserving row order.
func (cs *CounterStacks) compact(keep []bool) {
	newRetired := make([]*hll.TTL, 0, len(cs.retired))
	newCur := make([]uint64, 0, len(cs.cur))
	newPrev := make([]uint64, 0, len(cs.prev))
	for i, k := range keep {
		if !k {
			continue
		}
		newRetired = append(newRetired, cs.retired[i])
		if i < len(cs.cur) {
			newCur = append(newCur, cs.cur[i])
		}
		if i < len(cs.prev) {
			newPrev = append(newPrev, cs.prev[i])
		} else {
			newPrev = append(newPrev, 0)
		}
	}
	cs.used = len(newRetired)
	for i := cs.used; i < len(cs.retired); i++ {
		newRetired = append(newRetired, nil)
	}
	cs.retired = newRetired
	cs.cur = newCur
	cs.prev = newPrev
}

// Cur exposes the current per-row cardinality vector, used by testable
// property 8 (row invariants) and the round-trip scenario S5.
func (cs *CounterStacks) Cur() []uint64 { return append([]uint64(nil), cs.cur...) }

// Prev exposes the previous trigger's per-row cardinality vector.
func (cs *CounterStacks) Prev() []uint64 { return append([]uint64(nil), cs.prev...) }

// Counters exposes the live retired counters in row order (oldest epoch
// first), for serialization round-trip tests (scenario S5).
func (cs *CounterStacks) Counters() []*hll.TTL {
	return append([]*hll.TTL(nil), cs.retired[:cs.used]...)
}

// ProcessStack forces a batching trigger regardless of the configured
// thresholds — used by tests that need deterministic trigger points.
func (cs *CounterStacks) ProcessStack(now uint32) { cs.processStack(now) }

// Histogram returns the accumulated histogram for MRC extraction.
func (cs *CounterStacks) Histogram() *Histogram { return cs.hist }
