// Package interval implements half-open [Start, End) interval arithmetic over
// integer points. Callers pick the unit (minutes relative to a local
// midnight, Unix seconds, ...) and must keep it consistent within one call.
package interval

import (
	"slices"
)

type Interval struct {
	Start int
	End   int
}

func New(start, end int) Interval { return Interval{Start: start, End: end} }

func (iv Interval) Empty() bool { return iv.Start >= iv.End }

func (iv Interval) Len() int {
	if iv.Empty() {
		return 0
	}
	return iv.End - iv.Start
}

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	return other.Start >= iv.Start && other.End <= iv.End
}

// Overlaps reports whether a and b share at least one point. Back-to-back
// intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// OverlapsAny reports whether iv overlaps any interval in set.
func OverlapsAny(iv Interval, set []Interval) bool {
	for _, s := range set {
		if Overlaps(iv, s) {
			return true
		}
	}
	return false
}

// Buffer widens iv by before at the start and after at the end. The result
// may extend below 0 or past a day length; use Clip to bound it.
func Buffer(iv Interval, before, after int) Interval {
	return Interval{Start: iv.Start - before, End: iv.End + after}
}

// Clip bounds iv to [lo, hi). ok is false when nothing remains.
func Clip(iv Interval, lo, hi int) (Interval, bool) {
	out := Interval{Start: max(iv.Start, lo), End: min(iv.End, hi)}
	return out, !out.Empty()
}

// Merge returns the union of ivs as sorted, disjoint, non-empty intervals.
// Touching intervals are joined. The input is not modified.
func Merge(ivs []Interval) []Interval {
	sorted := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.Empty() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	slices.SortFunc(sorted, func(a, b Interval) int { return a.Start - b.Start })

	out := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			last.End = max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Subtract removes every point covered by cuts from base and returns what
// remains in chronological order. Each result is non-empty and results are
// pairwise disjoint. Inputs are not modified.
//
// Both sides are merged first, then swept once: cuts is walked with a single
// cursor that only moves forward, so the cost is O((n+m) log(n+m)) for the
// sorts and linear after.
func Subtract(base, cuts []Interval) []Interval {
	bases := Merge(base)
	if len(bases) == 0 {
		return nil
	}
	cs := Merge(cuts)

	out := make([]Interval, 0, len(bases)+len(cs))
	j := 0
	for _, b := range bases {
		// Cuts ending at or before b.Start cannot touch this or any later base.
		for j < len(cs) && cs[j].End <= b.Start {
			j++
		}
		cur := b.Start
		k := j
		for k < len(cs) && cs[k].Start < b.End {
			c := cs[k]
			if c.Start > cur {
				out = append(out, Interval{Start: cur, End: c.Start})
			}
			if c.End > cur {
				cur = c.End
			}
			if cur >= b.End {
				break
			}
			k++
		}
		if cur < b.End {
			out = append(out, Interval{Start: cur, End: b.End})
		}
	}
	return out
}
