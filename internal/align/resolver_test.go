package align

import "testing"

func newTestIndex(ivs ...Interval) *Index {
	ix := NewIndex()
	for _, iv := range ivs {
		ix.Insert(iv)
	}
	return ix
}

func TestAssign_SingleContainment(t *testing.T) {
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 2, Label: "A"},
		Interval{Start: 4, End: 5, Label: "B"},
	))

	got := r.Assign(0.5, 0.3)
	if got.Label != "A" || got.Method != MethodExact {
		t.Errorf("Assign(0.5, 0.3) = %+v, want A/exact", got)
	}
}

func TestAssign_EmptyIndexReturnsUnknown(t *testing.T) {
	r := NewResolver(NewIndex())

	for _, w := range []struct{ start, dur float64 }{
		{1.0, 1.0},
		{0, 0},
		{-5, 100},
	} {
		got := r.Assign(w.start, w.dur)
		if got.Label != UnknownLabel || got.Method != MethodUnknown {
			t.Errorf("Assign(%v, %v) = %+v, want UNKNOWN/unknown", w.start, w.dur, got)
		}
	}
}

func TestAssign_MajorityPicksLargerOverlap(t *testing.T) {
	// Word [1.7, 2.2): A covers 0.3s, B covers 0.5s.
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 2, Label: "A"},
		Interval{Start: 1.5, End: 3.5, Label: "B"},
	))

	got := r.Assign(1.7, 0.5)
	if got.Label != "B" || got.Method != MethodMajority {
		t.Errorf("Assign(1.7, 0.5) = %+v, want B/majority", got)
	}
}

func TestAssign_MajorityAccumulatesPerLabel(t *testing.T) {
	// B has the single largest interval overlap (0.4s), but A appears
	// twice for 0.3s + 0.3s = 0.6s total and must win.
	r := NewResolver(newTestIndex(
		Interval{Start: 0.0, End: 0.3, Label: "A"},
		Interval{Start: 0.3, End: 0.7, Label: "B"},
		Interval{Start: 0.7, End: 1.0, Label: "A"},
	))

	got := r.Assign(0, 1.0)
	if got.Label != "A" || got.Method != MethodMajority {
		t.Errorf("Assign(0, 1.0) = %+v, want A/majority", got)
	}
}

func TestAssign_MajorityTieGoesToFirstSeen(t *testing.T) {
	// Both intervals cover the word completely; equal overlap.
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 10, Label: "first"},
		Interval{Start: 0, End: 10, Label: "second"},
	))

	got := r.Assign(3, 1)
	if got.Label != "first" || got.Method != MethodMajority {
		t.Errorf("Assign(3, 1) = %+v, want first/majority", got)
	}
}

func TestAssign_NoOverlapFallsBackToNearest(t *testing.T) {
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 2, Label: "A"},
		Interval{Start: 10, End: 12, Label: "B"},
	))

	got := r.Assign(3, 1)
	if got.Label != "A" || got.Method != MethodNearest {
		t.Errorf("Assign(3, 1) = %+v, want A/nearest", got)
	}

	got = r.Assign(8.5, 1)
	if got.Label != "B" || got.Method != MethodNearest {
		t.Errorf("Assign(8.5, 1) = %+v, want B/nearest", got)
	}
}

func TestAssign_NearestTieGoesToFirstInserted(t *testing.T) {
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 2, Label: "first"},
		Interval{Start: 4, End: 6, Label: "second"},
	))

	got := r.Assign(2.5, 1.0)
	if got.Label != "first" || got.Method != MethodNearest {
		t.Errorf("Assign(2.5, 1.0) = %+v, want first/nearest", got)
	}
}

func TestAssign_ZeroWidthWordInsideManyIntervals(t *testing.T) {
	// A zero-duration word strictly inside two intervals overlaps both,
	// but every overlap has zero width. Nearest (distance 0 for both,
	// first inserted wins) takes over, tagged as degenerate.
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 10, Label: "first"},
		Interval{Start: 0, End: 10, Label: "second"},
	))

	got := r.Assign(5, 0)
	if got.Label != "first" || got.Method != MethodDegenerate {
		t.Errorf("Assign(5, 0) = %+v, want first/degenerate", got)
	}
}

func TestAssign_ZeroWidthWordSingleInterval(t *testing.T) {
	// One containing interval is still an exact match; the degenerate
	// path only exists for multi-interval zero-overlap cases.
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 10, Label: "only"},
	))

	got := r.Assign(5, 0)
	if got.Label != "only" || got.Method != MethodExact {
		t.Errorf("Assign(5, 0) = %+v, want only/exact", got)
	}
}

func TestAssign_Scenario(t *testing.T) {
	// Three intervals, three words: containment, majority, containment.
	r := NewResolver(newTestIndex(
		Interval{Start: 0, End: 2, Label: "A"},
		Interval{Start: 1.5, End: 3.5, Label: "B"},
		Interval{Start: 4, End: 5, Label: "A"},
	))

	cases := []struct {
		name       string
		start, dur float64
		want       string
		method     Method
	}{
		{"contained_in_A", 0.5, 0.3, "A", MethodExact},
		{"majority_B", 1.7, 0.5, "B", MethodMajority},
		{"contained_in_second_A", 4.2, 0.6, "A", MethodExact},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Assign(tc.start, tc.dur)
			if got.Label != tc.want {
				t.Errorf("Assign(%v, %v).Label = %q, want %q", tc.start, tc.dur, got.Label, tc.want)
			}
			if got.Method != tc.method {
				t.Errorf("Assign(%v, %v).Method = %q, want %q", tc.start, tc.dur, got.Method, tc.method)
			}
		})
	}
}
