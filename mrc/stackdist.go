package mrc

import (
	"fmt"

	"github.com/cachesight/wssmrc/internal/avlseq"
	"github.com/cachesight/wssmrc/internal/evictindex"
)

// stackDistanceTracker is the shared substrate described in spec.md §4.3:
// an order-statistic AVL keyed by a monotonic sequence number, a side map
// from key_hash to that key's current sequence number, and (when TTL-aware)
// an eviction index that bulk-evicts AVL entries whose expiry has passed.
//
// Not safe for concurrent use. Every generator in this package owns one and
// drives it from a single-threaded hot path, per spec.md §5.
type stackDistanceTracker struct {
	tree    avlseq.Tree
	seqOf   map[uint64]int64
	expOf   map[uint64]uint32
	nextSeq int64

	ttlAware    bool
	evictions   *evictindex.Index
	maxDistinct int // 0 = unbounded
}

func newStackDistanceTracker(ttlAware bool, maxDistinct int) *stackDistanceTracker {
	t := &stackDistanceTracker{
		seqOf:       make(map[uint64]int64),
		ttlAware:    ttlAware,
		maxDistinct: maxDistinct,
	}
	if ttlAware {
		t.evictions = evictindex.New()
		t.expOf = make(map[uint64]uint32)
	}
	return t
}

// accessResult reports the outcome of one Access call.
type accessResult struct {
	hit           bool
	stackDistance uint64 // valid only if hit
}

// access runs the per-access procedure of spec.md §4.3 steps 1-3 (TTL
// eviction, lookup-or-insert). Histogram crediting (step 4) is the caller's
// job, since the bucket formula and sampling weight differ per generator.
func (t *stackDistanceTracker) access(keyHash uint64, timestamp, expiry uint32) accessResult {
	if t.ttlAware {
		t.evictions.PopExpired(timestamp, func(h uint64) {
			if seq, ok := t.seqOf[h]; ok {
				t.tree.DeleteBySeq(seq)
				delete(t.seqOf, h)
				delete(t.expOf, h)
			}
		})
	}

	if oldSeq, ok := t.seqOf[keyHash]; ok {
		// Right-subtree-plus-self walk (spec.md §4.3 step 2): the reaccessed
		// key's own still-present node counts toward its stack distance, so
		// this is CountGreaterThan(oldSeq) (the other distinct keys touched
		// since) plus one for self.
		d := t.tree.CountGreaterThan(oldSeq) + 1
		if d == 0 {
			panic(fmt.Sprintf("mrc: zero stack distance on hit for key_hash=%#x", keyHash))
		}
		t.tree.DeleteBySeq(oldSeq)
		if t.ttlAware {
			t.evictions.Unregister(t.expOf[keyHash], keyHash)
		}
		sn := t.mint()
		t.tree.Insert(sn, keyHash)
		t.seqOf[keyHash] = sn
		if t.ttlAware {
			t.evictions.Register(expiry, keyHash)
			t.expOf[keyHash] = expiry
		}
		return accessResult{hit: true, stackDistance: uint64(d)}
	}

	if t.maxDistinct > 0 && t.tree.Len() >= t.maxDistinct {
		t.evictLRU()
	}

	sn := t.mint()
	t.tree.Insert(sn, keyHash)
	t.seqOf[keyHash] = sn
	if t.ttlAware {
		t.evictions.Register(expiry, keyHash)
		t.expOf[keyHash] = expiry
	}
	return accessResult{hit: false}
}

func (t *stackDistanceTracker) mint() int64 {
	t.nextSeq++
	return t.nextSeq
}

// evictLRU drops the leftmost (smallest-sequence, least-recently-used) AVL
// node to make room for a miss once maxDistinct is reached (spec.md §4.3
// edge case: "hash-map is capped -> the LRU element is evicted").
func (t *stackDistanceTracker) evictLRU() {
	min := t.tree.Min()
	if min == nil {
		return
	}
	t.tree.DeleteBySeq(min.Seq)
	delete(t.seqOf, min.Payload)
	if t.ttlAware {
		t.evictions.Unregister(t.expOf[min.Payload], min.Payload)
		delete(t.expOf, min.Payload)
	}
}

// removeKey drops keyHash from the tree, the seq map, and (if TTL-aware)
// the expiry map and eviction index, without minting a replacement entry.
// Used by callers (SHARDS++ fixed-size) that shed a sampled key entirely
// rather than reinserting it, so the tree never grows past the caller's
// own sample bound. A no-op if keyHash isn't currently tracked.
func (t *stackDistanceTracker) removeKey(keyHash uint64) {
	seq, ok := t.seqOf[keyHash]
	if !ok {
		return
	}
	t.tree.DeleteBySeq(seq)
	delete(t.seqOf, keyHash)
	if t.ttlAware {
		t.evictions.Unregister(t.expOf[keyHash], keyHash)
		delete(t.expOf, keyHash)
	}
}

// Len reports the number of distinct live keys currently tracked.
func (t *stackDistanceTracker) Len() int { return t.tree.Len() }
