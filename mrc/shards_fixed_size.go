package mrc

import "container/heap"

// ShardsFixedSize is the fixed-size SHARDS++ MRC generator (component I):
// it maintains an always-bounded sample of at most SMax keys by shrinking
// its sampling threshold on overflow, rather than fixing the rate up
// front.
//
// Sample nodes live in a slab (handleArena) indexed by stable integer
// handles; the two priority queues below carry only handles, never
// pointers to each other's nodes, per spec.md §9's reference-cycle design
// note.
type ShardsFixedSize struct {
	tracker *stackDistanceTracker
	hist    *Histogram

	arena    []shardsNode
	free     []int // recycled handles
	handleOf map[uint64]int

	samplePQ   samplePQ   // min-heap by P - Ti
	evictionPQ evictionPQ // min-heap by expiry

	sMax int
	t    uint64 // current threshold Ti < t admits a key
	r    float64

	fixedBlock  uint32
	runningMean float64
	nSeen       uint64

	ttlAware    bool
	shrinkCount uint64
	evictCount  uint64
}

// ShardsFixedSizeStats reports telemetry counters for monitoring.
type ShardsFixedSizeStats struct {
	SampleSize   int
	Rate         float64
	ShrinkCount  uint64
	EvictCount   uint64
	NSeen        uint64
}

// Stats returns a point-in-time snapshot of this generator's counters.
func (s *ShardsFixedSize) Stats() ShardsFixedSizeStats {
	return ShardsFixedSizeStats{
		SampleSize:  s.SampleSize(),
		Rate:        s.r,
		ShrinkCount: s.shrinkCount,
		EvictCount:  s.evictCount,
		NSeen:       s.nSeen,
	}
}

type shardsNode struct {
	keyHash uint64
	ti      uint64
	expiry  uint32
	alive   bool
	gen     uint64 // incremented on every alloc; detects a recycled handle
}

// ShardsFixedSizeConfig configures a ShardsFixedSize generator.
type ShardsFixedSizeConfig struct {
	SMax        int
	BucketWidth uint64
	MaxCache    uint64 // max_cache ceiling (spec.md §3); 0 disables the tail fold
	TTLAware    bool
	FixedBlock  uint32
}

// NewShardsFixedSize builds a SHARDS++ fixed-size generator. Sampling
// starts at R=1 (T=P): every key is admitted until the sample first
// overflows SMax, at which point the threshold begins shrinking.
func NewShardsFixedSize(cfg ShardsFixedSizeConfig) *ShardsFixedSize {
	return &ShardsFixedSize{
		tracker:    newStackDistanceTracker(cfg.TTLAware, 0),
		hist:       NewHistogram(cfg.BucketWidth, cfg.MaxCache),
		handleOf:   make(map[uint64]int),
		sMax:       cfg.SMax,
		t:          shardsP,
		r:          1.0,
		fixedBlock: cfg.FixedBlock,
		ttlAware:   cfg.TTLAware,
	}
}

func (s *ShardsFixedSize) ti(keyHash uint64) uint64 { return keyHash & (shardsP - 1) }

func (s *ShardsFixedSize) alloc(n shardsNode) int {
	if len(s.free) > 0 {
		h := s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		n.gen = s.arena[h].gen + 1
		s.arena[h] = n
		return h
	}
	n.gen = 1
	s.arena = append(s.arena, n)
	return len(s.arena) - 1
}

func (s *ShardsFixedSize) free_(h int) {
	s.arena[h].alive = false
	s.free = append(s.free, h)
}

// Add offers one request.
func (s *ShardsFixedSize) Add(keyHash uint64, timestamp, blockSize, expiry uint32) {
	s.evictExpiredSamples(timestamp)

	ti := s.ti(keyHash)
	_, inSample := s.handleOf[keyHash]
	if !inSample && ti >= s.t {
		return // not sampled under the current threshold
	}

	s.nSeen++
	s.runningMean += (float64(blockSize) - s.runningMean) / float64(s.nSeen)
	block := s.fixedBlock
	if block == 0 {
		block = uint32(s.runningMean)
		if block == 0 {
			block = 1
		}
	}

	if !inSample {
		h := s.alloc(shardsNode{keyHash: keyHash, ti: ti, expiry: expiry, alive: true})
		s.handleOf[keyHash] = h
		heap.Push(&s.samplePQ, pqEntry{handle: h, gen: s.arena[h].gen, key: shardsP - ti})
		if s.ttlAware {
			heap.Push(&s.evictionPQ, pqEntry{handle: h, gen: s.arena[h].gen, key: uint64(expiry)})
		}
	} else {
		h := s.handleOf[keyHash]
		s.arena[h].expiry = expiry
		if s.ttlAware {
			heap.Push(&s.evictionPQ, pqEntry{handle: h, gen: s.arena[h].gen, key: uint64(expiry)})
		}
	}

	res := s.tracker.access(keyHash, timestamp, expiry)
	if res.hit {
		scaled := uint64(float64(res.stackDistance) / s.r)
		s.hist.CreditHit(scaled, uint64(block), 1.0)
		s.hist.AddHitRequest()
	} else {
		s.hist.AddMiss()
	}

	if len(s.handleOf) > s.sMax {
		s.shrink()
	}
}

// shrink pops the currently-least-promising sample (largest Ti), tightens
// the threshold to exclude it, discharges every tied sample at the same
// priority, and rescales the histogram to the new rate.
func (s *ShardsFixedSize) shrink() {
	var popped pqEntry
	for {
		if s.samplePQ.Len() == 0 {
			return
		}
		popped = heap.Pop(&s.samplePQ).(pqEntry)
		if s.isLive(popped) {
			break
		}
	}

	s.shrinkCount++
	newT := s.arena[popped.handle].ti
	oldT := s.t

	s.discharge(popped.handle)
	for s.samplePQ.Len() > 0 && s.samplePQ[0].key == popped.key {
		tie := heap.Pop(&s.samplePQ).(pqEntry)
		if s.isLive(tie) {
			s.discharge(tie.handle)
		}
	}

	s.t = newT
	s.r = float64(s.t) / float64(shardsP)
	if oldT > 0 {
		s.hist.RescaleAll(float64(s.t) / float64(oldT))
	}
}

// isLive reports whether a popped PQ entry still refers to the node it was
// created for, rather than a later, unrelated occupant of a recycled
// handle slot.
func (s *ShardsFixedSize) isLive(e pqEntry) bool {
	n := &s.arena[e.handle]
	return n.alive && n.gen == e.gen
}

func (s *ShardsFixedSize) discharge(handle int) {
	keyHash := s.arena[handle].keyHash
	delete(s.handleOf, keyHash)
	s.tracker.removeKey(keyHash)
	s.free_(handle)
}

// evictExpiredSamples drains eviction-PQ entries whose expiry has passed,
// removing them from the sample set and the stack-distance tracker.
func (s *ShardsFixedSize) evictExpiredSamples(now uint32) {
	if !s.ttlAware {
		return
	}
	for s.evictionPQ.Len() > 0 && s.evictionPQ[0].key <= uint64(now) {
		e := heap.Pop(&s.evictionPQ).(pqEntry)
		if !s.isLive(e) || s.arena[e.handle].expiry > now {
			continue // stale entry (key re-sampled with a later expiry since)
		}
		n := &s.arena[e.handle]
		delete(s.handleOf, n.keyHash)
		s.tracker.removeKey(n.keyHash)
		s.free_(e.handle)
		s.evictCount++
	}
}

// Rate returns the current effective sampling rate R = T/P.
func (s *ShardsFixedSize) Rate() float64 { return s.r }

// SampleSize returns the current number of distinct sampled keys.
func (s *ShardsFixedSize) SampleSize() int { return len(s.handleOf) }

// Histogram returns the accumulated, rescaled histogram for MRC extraction.
func (s *ShardsFixedSize) Histogram() *Histogram { return s.hist }

type pqEntry struct {
	handle int
	gen    uint64
	key    uint64
}

type samplePQ []pqEntry

func (p samplePQ) Len() int            { return len(p) }
func (p samplePQ) Less(i, j int) bool  { return p[i].key < p[j].key }
func (p samplePQ) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *samplePQ) Push(x interface{}) { *p = append(*p, x.(pqEntry)) }
func (p *samplePQ) Pop() interface{} {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}

type evictionPQ []pqEntry

func (p evictionPQ) Len() int            { return len(p) }
func (p evictionPQ) Less(i, j int) bool  { return p[i].key < p[j].key }
func (p evictionPQ) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *evictionPQ) Push(x interface{}) { *p = append(*p, x.(pqEntry)) }
func (p *evictionPQ) Pop() interface{} {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}
