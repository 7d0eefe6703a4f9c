package mrc

// shardsP is the fixed modulus SHARDS++ hashes against: P = 2^24.
const shardsP = uint64(1) << 24

// ShardsFixedRate is the fixed-rate SHARDS++ MRC generator (component H):
// a deterministic fraction R of the key space participates in the
// AVL/map, and each sampled stack distance is scaled by 1/R at crediting
// time (the hit itself is credited with weight 1).
type ShardsFixedRate struct {
	tracker *stackDistanceTracker
	hist    *Histogram

	rate      float64
	threshold uint64 // T = round(R*P)
	adjusted  bool

	fixedBlock  uint32
	runningMean float64
	nSeen       uint64

	nTotal   uint64 // every request offered, sampled or not
	nSampled uint64
}

// ShardsFixedRateConfig configures a ShardsFixedRate generator.
type ShardsFixedRateConfig struct {
	Rate        float64 // R in (0, 1]
	BucketWidth uint64
	MaxCache    uint64 // max_cache ceiling (spec.md §3); 0 disables the tail fold
	TTLAware    bool
	MaxDistinct int
	FixedBlock  uint32
	// Adjusted redistributes the gap between expected (R*N) and observed
	// sampled-request count into bucket 1 at Finalize, per spec.md §4.3.
	Adjusted bool
}

// NewShardsFixedRate builds a SHARDS++ fixed-rate generator.
func NewShardsFixedRate(cfg ShardsFixedRateConfig) *ShardsFixedRate {
	return &ShardsFixedRate{
		tracker:    newStackDistanceTracker(cfg.TTLAware, cfg.MaxDistinct),
		hist:       NewHistogram(cfg.BucketWidth, cfg.MaxCache),
		rate:       cfg.Rate,
		threshold:  uint64(cfg.Rate*float64(shardsP) + 0.5),
		adjusted:   cfg.Adjusted,
		fixedBlock: cfg.FixedBlock,
	}
}

// sampled reports whether keyHash passes the SHARDS predicate
// (key_hash & (P-1)) < T.
func (s *ShardsFixedRate) sampled(keyHash uint64) bool {
	return (keyHash & (shardsP - 1)) < s.threshold
}

// Add offers one request. Only sampled requests participate in the
// tracker; unsampled ones are counted toward nTotal for the adjusted-mode
// correction but otherwise ignored.
func (s *ShardsFixedRate) Add(keyHash uint64, timestamp, blockSize, expiry uint32) {
	s.nTotal++
	if !s.sampled(keyHash) {
		return
	}
	s.nSampled++

	s.nSeen++
	s.runningMean += (float64(blockSize) - s.runningMean) / float64(s.nSeen)
	block := s.fixedBlock
	if block == 0 {
		block = uint32(s.runningMean)
		if block == 0 {
			block = 1
		}
	}

	res := s.tracker.access(keyHash, timestamp, expiry)
	if res.hit {
		// compensate distance by 1/R before bucketing, per spec.md §4.3.
		scaled := uint64(float64(res.stackDistance) / s.rate)
		s.hist.CreditHit(scaled, uint64(block), 1.0)
		s.hist.AddHitRequest()
		return
	}
	s.hist.AddMiss()
}

// Finalize applies the adjusted-mode correction (spec.md §4.3): the gap
// between the expected sampled count R*N_total and the observed sampled
// count is redistributed into bucket 1. Safe to call multiple times; it is
// a no-op in non-adjusted mode or once the gap has already been applied.
func (s *ShardsFixedRate) Finalize() {
	if !s.adjusted {
		return
	}
	expected := s.rate * float64(s.nTotal)
	gap := expected - float64(s.nSampled)
	if gap != 0 {
		s.hist.CreditBucket(1, gap)
	}
	s.adjusted = false // idempotent: do not double-apply on repeat calls
}

// NSampled and NTotal expose the bookkeeping testable property 7 checks
// against: |n_sampled - R*N| <= 1 in adjusted mode.
func (s *ShardsFixedRate) NSampled() uint64 { return s.nSampled }
func (s *ShardsFixedRate) NTotal() uint64   { return s.nTotal }

// Histogram returns the accumulated histogram for MRC extraction. Callers
// should call Finalize first in adjusted mode.
func (s *ShardsFixedRate) Histogram() *Histogram { return s.hist }

// ShardsFixedRateStats reports telemetry counters for monitoring.
type ShardsFixedRateStats struct {
	NTotal   uint64
	NSampled uint64
	Rate     float64
}

// Stats returns a point-in-time snapshot of this generator's counters.
func (s *ShardsFixedRate) Stats() ShardsFixedRateStats {
	return ShardsFixedRateStats{NTotal: s.nTotal, NSampled: s.nSampled, Rate: s.rate}
}
