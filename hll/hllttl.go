package hll

// TTL is the TTL-aware HyperLogLog (HLL-TTL), component C: it stores, per
// (register, rank) cell, the highest expiry observed so far, so a key's
// contribution to the cardinality estimate disappears once its expiry has
// passed — without ever re-scanning the original request stream.
type TTL struct {
	b uint8
	m uint32
	z uint8

	sparse    bool
	sparseMap map[uint64]uint32 // mixed hash -> expiry

	buckets [][]uint32 // m x z, dense expiries; buckets[i][0] is unused
	top     []uint8    // len m; highest rank with a non-zero cell, per register

	lastMergeSN int64
	cachedCount uint64

	promotions int
}

// NewTTL creates an empty HLL-TTL at precision b, starting sparse.
func NewTTL(b uint8) (*TTL, error) {
	if err := ValidatePrecision(b); err != nil {
		return nil, err
	}
	m := uint32(1) << b
	return &TTL{
		b:         b,
		m:         m,
		z:         maxRank(b),
		sparse:    true,
		sparseMap: make(map[uint64]uint32),
	}, nil
}

func (t *TTL) Precision() uint8  { return t.b }
func (t *TTL) IsSparse() bool    { return t.sparse }
func (t *TTL) Promotions() int   { return t.promotions }
func (t *TTL) sparseCapacity() uint64 {
	// spec.md §3: sparse capacity ~= m*Z*4/12 pairs (the dense array's byte
	// cost divided by the rough per-pair map overhead).
	return uint64(t.m) * uint64(t.z) * 4 / 12
}

// Add records that keyHash was observed with absolute expiry.
func (t *TTL) Add(keyHash uint64, expiry uint32) {
	mixed := mix(keyHash)
	if t.sparse {
		t.addSparse(mixed, expiry)
		if uint64(len(t.sparseMap)) > t.sparseCapacity() {
			t.promote()
		}
		return
	}
	t.addDense(mixed, expiry)
}

func (t *TTL) addSparse(mixed uint64, expiry uint32) {
	if cur, ok := t.sparseMap[mixed]; !ok || expiry > cur {
		t.sparseMap[mixed] = expiry
	}
}

func (t *TTL) addDense(mixed uint64, expiry uint32) {
	i := registerIndex(mixed, t.b)
	r := rank(mixed, t.z)
	if expiry > t.buckets[i][r] {
		t.buckets[i][r] = expiry
		if r > t.top[i] {
			t.top[i] = r
		}
	}
}

// promote converts sparse -> dense. Reinserts directly through addDense,
// never through Add, breaking the recursive-promotion hazard flagged in
// spec.md Design Note 2 (promoting-in-progress would otherwise recurse
// through the same capacity check).
func (t *TTL) promote() {
	t.buckets = make([][]uint32, t.m)
	for i := range t.buckets {
		t.buckets[i] = make([]uint32, t.z)
	}
	t.top = make([]uint8, t.m)

	for mixed, expiry := range t.sparseMap {
		t.addDense(mixed, expiry)
	}
	t.sparse = false
	t.sparseMap = nil
	t.promotions++
}

// Count returns the cardinality estimate as of the last Add/eviction, with
// no new eviction pass.
func (t *TTL) Count() uint64 {
	if t.sparse {
		return uint64(len(t.sparseMap))
	}
	return estimateFromRanks(t.top)
}

// EvictExpiredAndCount purges every cell whose expiry <= now, recomputes
// top[] where needed, and returns the resulting estimate. Idempotent and
// time-monotone: calling it with a non-decreasing sequence of `now` values
// produces a non-increasing sequence of counts (spec.md testable property 1).
func (t *TTL) EvictExpiredAndCount(now uint32) uint64 {
	if t.sparse {
		for h, exp := range t.sparseMap {
			if exp <= now {
				delete(t.sparseMap, h)
			}
		}
		return uint64(len(t.sparseMap))
	}

	for i, row := range t.buckets {
		newTop := uint8(0)
		for r := uint8(1); r < t.z; r++ {
			if row[r] == 0 {
				continue
			}
			if row[r] <= now {
				row[r] = 0
				continue
			}
			if r > newTop {
				newTop = r
			}
		}
		t.top[i] = newTop
	}
	return estimateFromRanks(t.top)
}

// CountAt is the non-destructive form of EvictExpiredAndCount: it reports
// what the estimate would be at `now` without mutating any cell. Used for
// serialization round-trip checks and read-only queries.
func (t *TTL) CountAt(now uint32) uint64 {
	if t.sparse {
		n := 0
		for _, exp := range t.sparseMap {
			if exp > now {
				n++
			}
		}
		return uint64(n)
	}

	ranks := make([]uint8, t.m)
	for i, row := range t.buckets {
		top := uint8(0)
		for r := uint8(1); r < t.z; r++ {
			if row[r] != 0 && row[r] > now && r > top {
				top = r
			}
		}
		ranks[i] = top
	}
	return estimateFromRanks(ranks)
}

// MergeCount merges other into t by taking per-cell expiry maxima, guarded
// by mergeSN: if mergeSN <= the sequence number of the last applied merge,
// the call is a no-op that returns the cached count, unless force is set.
// This is what lets CounterStacks++ fan the same source counter out to many
// sinks without double-counting a merge (spec.md §4.1, §4.3).
func (t *TTL) MergeCount(other *TTL, mergeSN int64, force bool) uint64 {
	if mergeSN <= t.lastMergeSN && !force {
		return t.cachedCount
	}

	switch {
	case other.sparse:
		for mixed, expiry := range other.sparseMap {
			if t.sparse {
				t.addSparse(mixed, expiry)
			} else {
				t.addDense(mixed, expiry)
			}
		}
		if t.sparse && uint64(len(t.sparseMap)) > t.sparseCapacity() {
			t.promote()
		}
	case t.sparse:
		// other is dense and t is sparse: promote t, then merge cell-wise.
		t.promote()
		t.mergeDenseCells(other)
	default:
		t.mergeDenseCells(other)
	}

	t.lastMergeSN = mergeSN
	if t.sparse {
		t.cachedCount = uint64(len(t.sparseMap))
	} else {
		t.cachedCount = estimateFromRanks(t.top)
	}
	return t.cachedCount
}

func (t *TTL) mergeDenseCells(other *TTL) {
	for i, row := range other.buckets {
		for r, exp := range row {
			if exp > t.buckets[i][r] {
				t.buckets[i][r] = exp
				if uint8(r) > t.top[i] {
					t.top[i] = uint8(r)
				}
			}
		}
	}
}
