package cuts

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

var (
	ErrInvalidDuration = errors.New("duration must be > 0")
	ErrEmptyVocabulary = errors.New("filler vocabulary is empty")
	ErrNegativePadding = errors.New("padding must be >= 0")
)

// Input is everything Reconcile needs for one run.
//
// Padding is a tighten amount: each filler token (s, e) becomes
// (s+Padding, e-Padding), so positive padding always leaves a margin of
// speech on both sides of the excision. Silences are used as detected.
type Input struct {
	Silences   []types.Range
	Words      []types.Word
	Vocabulary Vocabulary
	Padding    time.Duration
	Duration   time.Duration
}

// SkippedWord is a token that could not be turned into a range.
type SkippedWord struct {
	Index  int
	Word   types.Word
	Reason string
}

type Result struct {
	Cuts    []types.Range
	Fillers []types.Range
	Skipped []SkippedWord
}

// Reconcile merges silences and filler tokens into the minimal set of
// disjoint, strictly increasing cut ranges inside [0, Duration].
func Reconcile(in Input) (Result, error) {
	if in.Duration <= 0 {
		return Result{}, fmt.Errorf("reconcile: %w (got %s)", ErrInvalidDuration, in.Duration)
	}
	if in.Vocabulary.Len() == 0 {
		return Result{}, fmt.Errorf("reconcile: %w", ErrEmptyVocabulary)
	}
	if in.Padding < 0 {
		return Result{}, fmt.Errorf("reconcile: %w (got %s)", ErrNegativePadding, in.Padding)
	}

	fillers, skipped := FillerRanges(in.Words, in.Vocabulary, in.Padding, in.Duration)

	work := make([]types.Range, 0, len(in.Silences)+len(fillers))
	for _, s := range in.Silences {
		s.Sources = types.SourceSilence
		work = append(work, s)
	}
	work = append(work, fillers...)

	return Result{
		Cuts:    Merge(work, in.Duration),
		Fillers: fillers,
		Skipped: skipped,
	}, nil
}

// FillerRanges selects vocabulary tokens and pads them inward. Ranges that
// invert or vanish after padding are dropped silently; malformed tokens are
// returned as skipped.
func FillerRanges(words []types.Word, vocab Vocabulary, padding, duration time.Duration) ([]types.Range, []SkippedWord) {
	var (
		out     []types.Range
		skipped []SkippedWord
	)
	for i, w := range words {
		if reason := malformed(w); reason != "" {
			skipped = append(skipped, SkippedWord{Index: i, Word: w, Reason: reason})
			continue
		}
		if !vocab.Contains(w.Word) {
			continue
		}
		r := types.Range{
			Start:   max(0, types.Seconds(w.Start)+padding),
			End:     min(duration, types.Seconds(w.End)-padding),
			Sources: types.SourceFiller,
		}
		if r.Empty() {
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

func malformed(w types.Word) string {
	switch {
	case Normalize(w.Word) == "":
		return "empty text"
	case !finite(w.Start) || !finite(w.End):
		return "non-finite bounds"
	case w.End <= w.Start:
		return "end before start"
	}
	return ""
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Merge clamps ranges to [0, duration], drops empty ones, sorts them by
// start (longer first on ties) and joins any that overlap or touch.
func Merge(ranges []types.Range, duration time.Duration) []types.Range {
	work := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		r = r.Clamp(duration)
		if r.Empty() {
			continue
		}
		work = append(work, r)
	}
	if len(work) == 0 {
		return nil
	}

	sort.SliceStable(work, func(i, j int) bool {
		if work[i].Start != work[j].Start {
			return work[i].Start < work[j].Start
		}
		return work[i].End > work[j].End
	})

	out := make([]types.Range, 0, len(work))
	cur := work[0]
	for _, r := range work[1:] {
		if r.Start <= cur.End {
			cur.End = max(cur.End, r.End)
			cur.Sources |= r.Sources
			continue
		}
		out = append(out, cur)
		cur = r
	}
	return append(out, cur)
}
