package evictindex

import "testing"

func TestPopExpiredBulkEviction(t *testing.T) {
	idx := New()
	idx.Register(100, 0xA)
	idx.Register(100, 0xB)
	idx.Register(200, 0xC)

	var popped []uint64
	idx.PopExpired(150, func(k uint64) { popped = append(popped, k) })

	if len(popped) != 2 {
		t.Fatalf("expected 2 keys popped at t=150, got %d", len(popped))
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 remaining bucket, got %d", idx.Len())
	}

	var second []uint64
	idx.PopExpired(200, func(k uint64) { second = append(second, k) })
	if len(second) != 1 || second[0] != 0xC {
		t.Fatalf("expected [0xC] at t=200, got %v", second)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected 0 remaining buckets, got %d", idx.Len())
	}
}

func TestUnregisterDrainsBucket(t *testing.T) {
	idx := New()
	idx.Register(100, 0xA)
	idx.Unregister(100, 0xA)

	var popped []uint64
	idx.PopExpired(100, func(k uint64) { popped = append(popped, k) })
	if len(popped) != 0 {
		t.Fatalf("expected no keys after unregister, got %v", popped)
	}
}

func TestPopExpiredIsMonotoneIdempotent(t *testing.T) {
	idx := New()
	idx.Register(50, 0x1)
	idx.Register(150, 0x2)

	var first []uint64
	idx.PopExpired(100, func(k uint64) { first = append(first, k) })
	if len(first) != 1 || first[0] != 0x1 {
		t.Fatalf("first pop = %v, want [0x1]", first)
	}

	var second []uint64
	idx.PopExpired(100, func(k uint64) { second = append(second, k) })
	if len(second) != 0 {
		t.Fatalf("re-popping the same 'now' should yield nothing, got %v", second)
	}
}
