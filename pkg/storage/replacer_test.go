package storage

import "testing"

// TestReplacerBoundaryScenario reproduces the seed scenario from spec §8.1:
// capacity 7, k=2. Access 1..6, mark all evictable except 6, access 1 again.
// Expected eviction order: 2, 3, 4, 5, 1. Once all five are evicted, mark 6
// evictable; the next eviction must be 6.
func TestReplacerBoundaryScenario(t *testing.T) {
	r := NewReplacer[int](7, 2)

	for id := 1; id <= 6; id++ {
		if err := r.RecordAccess(id); err != nil {
			t.Fatalf("record access %d: %v", id, err)
		}
	}
	for id := 1; id <= 5; id++ {
		r.SetEvictable(id, true)
	}
	// 6 stays non-evictable for now.

	if err := r.RecordAccess(1); err != nil {
		t.Fatalf("re-record access 1: %v", err)
	}

	want := []int{2, 3, 4, 5, 1}
	for i, expect := range want {
		got, ok := r.Evict()
		if !ok {
			t.Fatalf("eviction %d: replacer reported no evictable entry", i)
		}
		if got != expect {
			t.Fatalf("eviction %d: want %d, got %d", i, expect, got)
		}
	}

	r.SetEvictable(6, true)
	got, ok := r.Evict()
	if !ok || got != 6 {
		t.Fatalf("final eviction: want 6, got %d (ok=%v)", got, ok)
	}
}

func TestReplacerAdmissionFailsWhenFull(t *testing.T) {
	r := NewReplacer[int](2, 2)

	if err := r.RecordAccess(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RecordAccess(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RecordAccess(3); err == nil {
		t.Fatal("expected admission failure when replacer is full")
	}
}

func TestReplacerSetEvictableTogglesSize(t *testing.T) {
	r := NewReplacer[int](4, 2)
	_ = r.RecordAccess(1)

	if r.Size() != 0 {
		t.Fatalf("expected size 0 before marking evictable, got %d", r.Size())
	}

	r.SetEvictable(1, true)
	if r.Size() != 1 {
		t.Fatalf("expected size 1, got %d", r.Size())
	}

	r.SetEvictable(1, false)
	if r.Size() != 0 {
		t.Fatalf("expected size 0 after unmarking, got %d", r.Size())
	}
}

func TestReplacerRemove(t *testing.T) {
	r := NewReplacer[int](4, 2)
	_ = r.RecordAccess(1)
	r.SetEvictable(1, true)

	r.Remove(1)
	if r.Size() != 0 {
		t.Fatalf("expected size 0 after remove, got %d", r.Size())
	}
	if _, ok := r.Evict(); ok {
		t.Fatal("expected no evictable entries after remove")
	}
}

func TestReplacerEvictEmpty(t *testing.T) {
	r := NewReplacer[int](4, 2)
	if _, ok := r.Evict(); ok {
		t.Fatal("expected Evict to report false on empty replacer")
	}
}
