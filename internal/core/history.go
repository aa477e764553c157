package core

import "sort"

// Range is a closed-open interval of versions, [Begin, End).
type Range struct {
	Begin VersionNumber
	End   VersionNumber
}

func (r Range) empty() bool { return r.Begin >= r.End }

func (r Range) contains(v VersionNumber) bool { return v >= r.Begin && v < r.End }

func (r Range) intersect(o Range) Range {
	begin := r.Begin
	if o.Begin > begin {
		begin = o.Begin
	}
	end := r.End
	if o.End < end {
		end = o.End
	}
	if end < begin {
		end = begin
	}
	return Range{begin, end}
}

// VersionRanges is a sorted, non-overlapping set of version intervals. It is
// a value type: every operation returns a new VersionRanges rather than
// mutating the receiver, which is what lets CellHistory be shared safely
// across goroutines once published.
type VersionRanges struct {
	ranges []Range
}

// Verified returns the singleton range [v, v+1), the range a value is known
// valid over immediately after being computed at v.
func Verified(v VersionNumber) VersionRanges {
	return VersionRanges{ranges: []Range{{v, v + 1}}}
}

// Empty returns the empty range set.
func Empty() VersionRanges { return VersionRanges{} }

// IsEmpty reports whether the range set contains no versions.
func (r VersionRanges) IsEmpty() bool { return len(r.ranges) == 0 }

// Contains reports whether v falls inside some range in the set.
func (r VersionRanges) Contains(v VersionNumber) bool {
	for _, rg := range r.ranges {
		if rg.contains(v) {
			return true
		}
	}
	return false
}

// Union merges o into r, coalescing adjacent or overlapping ranges.
func (r VersionRanges) Union(o VersionRanges) VersionRanges {
	merged := append(append([]Range{}, r.ranges...), o.ranges...)
	if len(merged) == 0 {
		return VersionRanges{}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Begin < merged[j].Begin })

	out := make([]Range, 0, len(merged))
	cur := merged[0]
	for _, rg := range merged[1:] {
		if rg.Begin <= cur.End {
			if rg.End > cur.End {
				cur.End = rg.End
			}
			continue
		}
		out = append(out, cur)
		cur = rg
	}
	out = append(out, cur)
	return VersionRanges{ranges: out}
}

// Intersect returns the ranges common to both r and o. Necessary and
// sufficient for dependency validity: a parent's cached value is valid iff
// every dependency is valid over a common version, which is exactly the
// running intersection DependencyChecker maintains (§4.5 in the spec).
func (r VersionRanges) Intersect(o VersionRanges) VersionRanges {
	var out []Range
	i, j := 0, 0
	for i < len(r.ranges) && j < len(o.ranges) {
		x := r.ranges[i].intersect(o.ranges[j])
		if !x.empty() {
			out = append(out, x)
		}
		if r.ranges[i].End < o.ranges[j].End {
			i++
		} else {
			j++
		}
	}
	return VersionRanges{ranges: out}
}

// CellHistory is the set of version ranges over which a cached value is
// known valid. It is the stored counterpart of VersionRanges: a
// ComputedValue's CellHistory is what LookupKey consults to decide
// Match vs CheckDeps vs Compute.
type CellHistory struct {
	Verified VersionRanges
}

// VerifiedAt returns the singleton history for a value just computed at v.
func VerifiedAt(v VersionNumber) CellHistory {
	return CellHistory{Verified: Verified(v)}
}

// Live reports whether the history covers v.
func (h CellHistory) Live(v VersionNumber) bool { return h.Verified.Contains(v) }

// Extend returns a new history with v's range unioned in, used when a
// DependencyChecker determines the cached value is still valid at v.
func (h CellHistory) Extend(v VersionNumber) CellHistory {
	return CellHistory{Verified: h.Verified.Union(Verified(v))}
}
