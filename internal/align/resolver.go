package align

// UnknownLabel is assigned when no diarization data exists for a word.
const UnknownLabel = "UNKNOWN"

// Method identifies how a word was matched to its speaker.
type Method string

const (
	// MethodExact: the word overlapped exactly one interval.
	MethodExact Method = "exact"
	// MethodMajority: the word overlapped several intervals and the label
	// with the largest accumulated overlap won.
	MethodMajority Method = "majority"
	// MethodNearest: the word overlapped nothing; the closest interval won.
	MethodNearest Method = "nearest"
	// MethodDegenerate: the word overlapped several intervals but every
	// overlap had zero width, so the nearest interval won instead.
	MethodDegenerate Method = "degenerate"
	// MethodUnknown: the index was empty.
	MethodUnknown Method = "unknown"
)

// Assignment is the outcome of resolving one word against the index.
type Assignment struct {
	Label  string `json:"label"`
	Method Method `json:"method"`
}

// Resolver assigns speaker labels to time-stamped words using a fixed
// interval index. It is read-only over the index and safe for concurrent
// use once constructed.
type Resolver struct {
	index *Index
}

// NewResolver binds a resolver to an index. The index should be fully
// built before the first Assign call.
func NewResolver(ix *Index) *Resolver {
	return &Resolver{index: ix}
}

// Assign resolves the speaker for a word spanning [start, start+duration).
//
// Exactly one overlapping interval wins outright. With no overlap the
// nearest interval wins. With several, each label accumulates its total
// overlap duration and the label with the largest total wins; when two
// labels tie, the one whose interval was inserted first wins. Words are
// never left unlabeled: an empty index yields UnknownLabel.
func (r *Resolver) Assign(start, duration float64) Assignment {
	end := start + duration
	overlaps := r.index.Overlapping(start, end)

	switch len(overlaps) {
	case 0:
		nearest, ok := r.index.Nearest(start, end)
		if !ok {
			return Assignment{Label: UnknownLabel, Method: MethodUnknown}
		}
		return Assignment{Label: nearest.Label, Method: MethodNearest}
	case 1:
		return Assignment{Label: overlaps[0].Label, Method: MethodExact}
	}

	// Majority vote: sum overlap duration per label, in insertion order so
	// that ties resolve to the first-seen label.
	totals := make(map[string]float64, len(overlaps))
	var order []string
	for _, iv := range overlaps {
		ovStart := start
		if iv.Start > ovStart {
			ovStart = iv.Start
		}
		ovEnd := end
		if iv.End < ovEnd {
			ovEnd = iv.End
		}
		if _, seen := totals[iv.Label]; !seen {
			order = append(order, iv.Label)
		}
		totals[iv.Label] += ovEnd - ovStart
	}

	winner := ""
	bestTotal := 0.0
	for _, label := range order {
		if winner == "" || totals[label] > bestTotal {
			winner = label
			bestTotal = totals[label]
		}
	}

	// Zero-width words sitting inside several intervals accumulate no
	// overlap at all; distance is the only signal left.
	if bestTotal <= 0 {
		nearest, ok := r.index.Nearest(start, end)
		if !ok {
			return Assignment{Label: UnknownLabel, Method: MethodUnknown}
		}
		return Assignment{Label: nearest.Label, Method: MethodDegenerate}
	}

	return Assignment{Label: winner, Method: MethodMajority}
}
