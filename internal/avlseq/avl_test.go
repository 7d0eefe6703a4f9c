package avlseq

import (
	"math/rand"
	"testing"
)

func TestInsertCountGreaterThan(t *testing.T) {
	var tr Tree
	for i := int64(0); i < 10; i++ {
		tr.Insert(i, uint64(i))
	}
	// Seq values 0..9; count greater than 4 should be 5 (5,6,7,8,9).
	if got := tr.CountGreaterThan(4); got != 5 {
		t.Fatalf("CountGreaterThan(4) = %d, want 5", got)
	}
	if got := tr.CountGreaterThan(-1); got != 10 {
		t.Fatalf("CountGreaterThan(-1) = %d, want 10", got)
	}
	if got := tr.CountGreaterThan(9); got != 0 {
		t.Fatalf("CountGreaterThan(9) = %d, want 0", got)
	}
}

func TestDeleteBySeq(t *testing.T) {
	var tr Tree
	for i := int64(0); i < 20; i++ {
		tr.Insert(i, uint64(i))
	}
	if !tr.DeleteBySeq(10) {
		t.Fatal("expected delete of existing seq to succeed")
	}
	if tr.DeleteBySeq(10) {
		t.Fatal("expected second delete of same seq to fail")
	}
	if tr.Len() != 19 {
		t.Fatalf("Len() = %d, want 19", tr.Len())
	}
	if got := tr.CountGreaterThan(9); got != 9 {
		t.Fatalf("CountGreaterThan(9) after delete = %d, want 9", got)
	}
}

func TestMinIsLRUVictim(t *testing.T) {
	var tr Tree
	tr.Insert(5, 50)
	tr.Insert(1, 10)
	tr.Insert(3, 30)
	min := tr.Min()
	if min == nil || min.Seq != 1 {
		t.Fatalf("Min() = %v, want seq 1", min)
	}
}

func TestRandomizedAgainstBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var tr Tree
	live := map[int64]bool{}
	var seq int64

	for i := 0; i < 2000; i++ {
		if len(live) > 0 && r.Intn(3) == 0 {
			// delete a random live key
			var victim int64
			for k := range live {
				victim = k
				break
			}
			if !tr.DeleteBySeq(victim) {
				t.Fatalf("delete of live seq %d failed", victim)
			}
			delete(live, victim)
			continue
		}
		tr.Insert(seq, uint64(seq))
		live[seq] = true
		seq++

		if r.Intn(5) == 0 && len(live) > 0 {
			var probe int64
			for k := range live {
				probe = k
				break
			}
			want := 0
			for k := range live {
				if k > probe {
					want++
				}
			}
			if got := tr.CountGreaterThan(probe); got != want {
				t.Fatalf("CountGreaterThan(%d) = %d, want %d", probe, got, want)
			}
		}
	}
	if tr.Len() != len(live) {
		t.Fatalf("Len() = %d, want %d", tr.Len(), len(live))
	}
}
