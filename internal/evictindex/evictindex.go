// Package evictindex implements the eviction index (component E): a
// min-heap over distinct expiry values, paired with a side map from expiry
// to the set of key hashes expiring at that time, so a single heap pop can
// drive a bulk eviction of every key sharing that expiry.
package evictindex

import "container/heap"

// Index is a min-heap of distinct absolute expiry times plus the bucket map.
// Not safe for concurrent use; every estimator in this repo owns one and
// drives it from its own single-threaded hot path.
type Index struct {
	h       expHeap
	buckets map[uint32]map[uint64]struct{} // expiry -> set of key_hash
	present map[uint32]bool                // expiry already in the heap
}

// New returns an empty eviction index.
func New() *Index {
	return &Index{
		buckets: make(map[uint32]map[uint64]struct{}),
		present: make(map[uint32]bool),
	}
}

// Register records that keyHash expires at expiry. Idempotent: registering
// the same (expiry, keyHash) pair twice is a no-op.
func (idx *Index) Register(expiry uint32, keyHash uint64) {
	set, ok := idx.buckets[expiry]
	if !ok {
		set = make(map[uint64]struct{})
		idx.buckets[expiry] = set
	}
	set[keyHash] = struct{}{}

	if !idx.present[expiry] {
		idx.present[expiry] = true
		heap.Push(&idx.h, expiry)
	}
}

// Unregister removes keyHash from the expiry bucket it was registered
// under, e.g. when a key is re-accessed with a new expiry before its old
// one fires. If the bucket becomes empty its heap entry is left in place
// and discarded lazily on pop (avoids an O(log n) heap deletion here).
func (idx *Index) Unregister(expiry uint32, keyHash uint64) {
	set, ok := idx.buckets[expiry]
	if !ok {
		return
	}
	delete(set, keyHash)
	if len(set) == 0 {
		delete(idx.buckets, expiry)
	}
}

// PopExpired calls fn once per key_hash whose bucket's expiry is <= now,
// for every such bucket, in increasing expiry order, then removes those
// buckets and their heap entries. This is step 1 of the per-access
// procedure in spec.md §4.3: "pop from the eviction heap every expiry <=
// request.timestamp".
func (idx *Index) PopExpired(now uint32, fn func(keyHash uint64)) {
	for idx.h.Len() > 0 && idx.h[0] <= now {
		expiry := heap.Pop(&idx.h).(uint32)
		idx.present[expiry] = false

		set, ok := idx.buckets[expiry]
		if !ok {
			continue // bucket already drained by Unregister
		}
		for keyHash := range set {
			fn(keyHash)
		}
		delete(idx.buckets, expiry)
	}
}

// Len reports the number of distinct pending expiry buckets.
func (idx *Index) Len() int { return len(idx.buckets) }

// DropFurthest discards the single largest (furthest-future) pending
// expiry bucket, without invoking any eviction callback for the keys it
// held — they simply stop being tracked by this index. Used by callers
// that bound the index's distinct-epoch count by giving up long-range
// scheduling precision rather than memory (spec.md's "overflow retains
// the smallest 90%" policy).
func (idx *Index) DropFurthest() {
	var furthest uint32
	found := false
	for expiry := range idx.buckets {
		if !found || expiry > furthest {
			furthest = expiry
			found = true
		}
	}
	if !found {
		return
	}
	delete(idx.buckets, furthest)
	// idx.present[furthest] and its heap entry are left in place; PopExpired
	// already tolerates a heap entry whose bucket was already drained.
}

type expHeap []uint32

func (h expHeap) Len() int            { return len(h) }
func (h expHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h expHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expHeap) Push(x interface{}) { *h = append(*h, x.(uint32)) }
func (h *expHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
