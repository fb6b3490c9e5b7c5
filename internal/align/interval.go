// Package align assigns speaker labels to time-stamped recognizer words
// using diarization intervals. The index and resolver are pure in-memory
// structures: build one per alignment job, no shared state.
package align

// Interval is a labeled speaker span, half-open [Start, End) in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

// Index holds speaker intervals in insertion order. Diarization output is
// small (hundreds of segments per recording), so a linear scan beats tree
// bookkeeping and keeps tie-breaking deterministic: when two intervals are
// equally good candidates, the earlier-inserted one wins.
type Index struct {
	intervals []Interval
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Insert appends an interval. Overlapping, nested, duplicate, and
// zero-width intervals are all permitted; labels may repeat.
func (ix *Index) Insert(iv Interval) {
	ix.intervals = append(ix.intervals, iv)
}

// Len reports the number of stored intervals.
func (ix *Index) Len() int {
	return len(ix.intervals)
}

// Overlapping returns every interval that intersects the half-open query
// range [start, end), in insertion order. A shared boundary is not an
// overlap: an interval ending exactly at start (or starting exactly at
// end) is excluded.
func (ix *Index) Overlapping(start, end float64) []Interval {
	var out []Interval
	for _, iv := range ix.intervals {
		if iv.Start < end && iv.End > start {
			out = append(out, iv)
		}
	}
	return out
}

// Nearest returns the interval closest to [start, end] by segment distance:
// zero when the ranges touch or overlap, otherwise the size of the gap
// between them. Ties go to the earlier-inserted interval. Returns false
// only when the index is empty.
func (ix *Index) Nearest(start, end float64) (Interval, bool) {
	if len(ix.intervals) == 0 {
		return Interval{}, false
	}

	best := ix.intervals[0]
	bestDist := segmentDistance(best, start, end)
	for _, iv := range ix.intervals[1:] {
		if d := segmentDistance(iv, start, end); d < bestDist {
			bestDist = d
			best = iv
		}
	}
	return best, true
}

// segmentDistance is the gap between an interval and the range [start, end],
// zero when they touch or overlap.
func segmentDistance(iv Interval, start, end float64) float64 {
	d := 0.0
	if g := iv.Start - end; g > d {
		d = g
	}
	if g := start - iv.End; g > d {
		d = g
	}
	return d
}
