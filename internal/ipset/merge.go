package ipset

import (
	"cmp"
	"slices"
)

// Merge collapses arbitrary intervals into the minimal set of maximal
// contiguous spans covering the same address space. Inputs may
// overlap, duplicate or touch; the result is sorted by start and
// pairwise disjoint with no adjacent spans. Merging an already merged
// set returns the identical set.
func Merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	// Larger spans first on equal start so containment is absorbed in
	// a single forward scan.
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		if a.Start != b.Start {
			return cmp.Compare(a.Start, b.Start)
		}
		return cmp.Compare(b.End, a.End)
	})
	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		// uint64 arithmetic so End+1 cannot wrap at 255.255.255.255
		if uint64(iv.Start) <= uint64(cur.End)+1 {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	return append(out, cur)
}

// Intersect returns the overlap of two intervals and whether one
// exists.
func Intersect(a, b Interval) (Interval, bool) {
	start := max(a.Start, b.Start)
	end := min(a.End, b.End)
	if start > end {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}
