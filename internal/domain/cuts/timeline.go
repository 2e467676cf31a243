package cuts

import (
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

// BuildKeepRanges returns the complement of cuts within [0, duration].
// cuts must be sorted and disjoint, as Reconcile returns them. onCut, when
// set, receives the clamped midpoint of every cut in sweep order; it does
// not affect the result.
func BuildKeepRanges(cuts []types.Range, duration time.Duration, onCut func(at time.Duration)) []types.Range {
	if duration <= 0 {
		return nil
	}
	var keeps []types.Range
	var lastEnd time.Duration
	for _, c := range cuts {
		if c.Start > lastEnd {
			keeps = append(keeps, types.Range{Start: lastEnd, End: min(c.Start, duration)})
		}
		lastEnd = max(lastEnd, c.End)
		if onCut != nil {
			onCut(midpoint(c, duration))
		}
		if lastEnd >= duration {
			lastEnd = duration
		}
	}
	if lastEnd < duration {
		keeps = append(keeps, types.Range{Start: lastEnd, End: duration})
	}
	return keeps
}

// PreviewPoints returns the midpoint of each cut clamped to [0, duration].
func PreviewPoints(cuts []types.Range, duration time.Duration) []time.Duration {
	out := make([]time.Duration, 0, len(cuts))
	for _, c := range cuts {
		out = append(out, midpoint(c, duration))
	}
	return out
}

func midpoint(c types.Range, duration time.Duration) time.Duration {
	at := c.Start + (c.End-c.Start)/2
	return min(max(at, 0), duration)
}

// Timeline is the ordered list of retained ranges of a source of a given
// duration.
type Timeline struct {
	Keeps    []types.Range
	Duration time.Duration
}

func NewTimeline(keeps []types.Range, duration time.Duration) Timeline {
	return Timeline{Keeps: append([]types.Range(nil), keeps...), Duration: duration}
}

// Kept is the output duration.
func (t Timeline) Kept() time.Duration {
	var total time.Duration
	for _, k := range t.Keeps {
		total += k.Len()
	}
	return total
}

func (t Timeline) Removed() time.Duration { return t.Duration - t.Kept() }

// Remap converts a source time to the matching output time. ok is false
// when src falls inside a cut or outside the source.
func (t Timeline) Remap(src time.Duration) (time.Duration, bool) {
	var offset time.Duration
	for _, k := range t.Keeps {
		if src < k.Start {
			return 0, false
		}
		if src < k.End {
			return offset + (src - k.Start), true
		}
		offset += k.Len()
	}
	return 0, false
}

// Clip returns the output span of r intersected with the first keep range
// that overlaps it.
func (t Timeline) Clip(r types.Range) (types.Range, bool) {
	for _, k := range t.Keeps {
		if r.End > k.Start && r.Start < k.End {
			s := max(r.Start, k.Start)
			start, ok := t.Remap(s)
			if !ok {
				return types.Range{}, false
			}
			return types.Range{Start: start, End: start + min(r.End, k.End) - s}, true
		}
	}
	return types.Range{}, false
}
