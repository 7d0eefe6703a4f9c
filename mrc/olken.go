package mrc

// Olken is the exact stack-distance MRC generator (component G): every
// request participates, no sampling. The histogram denominator is the
// total request count.
type Olken struct {
	tracker *stackDistanceTracker
	hist    *Histogram

	fixedBlock  uint32 // 0 selects running-mean block sizing
	runningMean float64
	nSeen       uint64
}

// OlkenConfig configures an Olken generator.
type OlkenConfig struct {
	BucketWidth uint64
	MaxCache    uint64 // max_cache ceiling (spec.md §3); 0 disables the tail fold
	TTLAware    bool
	MaxDistinct int    // 0 = unbounded (spec.md §4.3 edge case: LRU-evict when capped)
	FixedBlock  uint32 // 0 selects running-mean block sizing
}

// NewOlken builds an Olken++ generator.
func NewOlken(cfg OlkenConfig) *Olken {
	return &Olken{
		tracker:    newStackDistanceTracker(cfg.TTLAware, cfg.MaxDistinct),
		hist:       NewHistogram(cfg.BucketWidth, cfg.MaxCache),
		fixedBlock: cfg.FixedBlock,
	}
}

// Add records one request.
func (o *Olken) Add(keyHash uint64, timestamp, blockSize, expiry uint32) {
	o.nSeen++
	o.runningMean += (float64(blockSize) - o.runningMean) / float64(o.nSeen)

	block := o.fixedBlock
	if block == 0 {
		block = uint32(o.runningMean)
		if block == 0 {
			block = 1
		}
	}

	res := o.tracker.access(keyHash, timestamp, expiry)
	if res.hit {
		o.hist.CreditHit(res.stackDistance, uint64(block), 1.0)
		o.hist.AddHitRequest()
		return
	}
	o.hist.AddMiss()
}

// Len reports the number of distinct live keys currently tracked.
func (o *Olken) Len() int { return o.tracker.Len() }

// Histogram returns the accumulated histogram for MRC extraction.
func (o *Olken) Histogram() *Histogram { return o.hist }

// OlkenStats reports telemetry counters for monitoring.
type OlkenStats struct {
	DistinctKeys int
	NSeen        uint64
}

// Stats returns a point-in-time snapshot of this generator's counters.
func (o *Olken) Stats() OlkenStats {
	return OlkenStats{DistinctKeys: o.Len(), NSeen: o.nSeen}
}
