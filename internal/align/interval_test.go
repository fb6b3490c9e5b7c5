package align

import "testing"

func TestOverlapping_StrictBoundaries(t *testing.T) {
	ix := NewIndex()
	ix.Insert(Interval{Start: 0, End: 2, Label: "A"})
	ix.Insert(Interval{Start: 2, End: 4, Label: "B"})

	// Query ending exactly at an interval start is not an overlap,
	// and an interval ending exactly at the query start is not either.
	got := ix.Overlapping(2, 2.5)
	if len(got) != 1 || got[0].Label != "B" {
		t.Fatalf("expected only B, got %v", got)
	}

	got = ix.Overlapping(1.5, 2)
	if len(got) != 1 || got[0].Label != "A" {
		t.Fatalf("expected only A, got %v", got)
	}
}

func TestOverlapping_NestedAndDuplicate(t *testing.T) {
	ix := NewIndex()
	ix.Insert(Interval{Start: 0, End: 10, Label: "outer"})
	ix.Insert(Interval{Start: 2, End: 4, Label: "inner"})
	ix.Insert(Interval{Start: 2, End: 4, Label: "inner"})

	got := ix.Overlapping(2.5, 3.5)
	if len(got) != 3 {
		t.Fatalf("expected 3 overlaps, got %d", len(got))
	}
	// Insertion order preserved.
	if got[0].Label != "outer" || got[1].Label != "inner" || got[2].Label != "inner" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestOverlapping_EmptyIndex(t *testing.T) {
	ix := NewIndex()
	if got := ix.Overlapping(0, 100); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if ix.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ix.Len())
	}
}

func TestNearest_GapDistance(t *testing.T) {
	ix := NewIndex()
	ix.Insert(Interval{Start: 0, End: 2, Label: "A"})
	ix.Insert(Interval{Start: 10, End: 12, Label: "B"})

	// Word at [5,6]: 3s after A, 4s before B.
	iv, ok := ix.Nearest(5, 6)
	if !ok {
		t.Fatal("Nearest returned false on non-empty index")
	}
	if iv.Label != "A" {
		t.Errorf("nearest = %q, want A", iv.Label)
	}

	// Word at [7,8]: 5s after A, 2s before B.
	iv, _ = ix.Nearest(7, 8)
	if iv.Label != "B" {
		t.Errorf("nearest = %q, want B", iv.Label)
	}
}

func TestNearest_TieGoesToFirstInserted(t *testing.T) {
	ix := NewIndex()
	ix.Insert(Interval{Start: 0, End: 2, Label: "first"})
	ix.Insert(Interval{Start: 4, End: 6, Label: "second"})

	// Word at [2.5,3.5]: exactly 0.5s from both.
	iv, ok := ix.Nearest(2.5, 3.5)
	if !ok {
		t.Fatal("Nearest returned false on non-empty index")
	}
	if iv.Label != "first" {
		t.Errorf("tie should go to first inserted, got %q", iv.Label)
	}
}

func TestNearest_TouchingIsZeroDistance(t *testing.T) {
	ix := NewIndex()
	ix.Insert(Interval{Start: 5, End: 7, Label: "far"})
	ix.Insert(Interval{Start: 0, End: 2, Label: "touching"})

	// Word at [2,3] shares an edge with "touching": distance 0 beats 2.
	iv, _ := ix.Nearest(2, 3)
	if iv.Label != "touching" {
		t.Errorf("nearest = %q, want touching", iv.Label)
	}
}

func TestNearest_EmptyIndex(t *testing.T) {
	ix := NewIndex()
	if _, ok := ix.Nearest(0, 1); ok {
		t.Error("Nearest on empty index should return false")
	}
}
