package cuts

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

func sec(f float64) time.Duration { return types.Seconds(f) }

func rng(s, e float64) types.Range { return types.Range{Start: sec(s), End: sec(e)} }

func equalRanges(a, b []types.Range) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Start != b[i].Start || a[i].End != b[i].End {
			return false
		}
	}
	return true
}

func TestReconcile_MergesOverlapsAcrossSources(t *testing.T) {
	res, err := Reconcile(Input{
		Silences:   []types.Range{rng(1, 3), rng(2, 5)},
		Words:      []types.Word{{Start: 4, End: 6, Word: "um"}},
		Vocabulary: NewVocabulary("um"),
		Padding:    0,
		Duration:   sec(10),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := []types.Range{rng(1, 6)}
	if !equalRanges(res.Cuts, want) {
		t.Fatalf("cuts = %v, want %v", res.Cuts, want)
	}
	if res.Cuts[0].Sources != types.SourceSilence|types.SourceFiller {
		t.Fatalf("expected merged sources, got %v", res.Cuts[0].Sources)
	}
}

func TestReconcile_PaddingTightensFillers(t *testing.T) {
	tests := []struct {
		name    string
		word    types.Word
		padding float64
		want    []types.Range
	}{
		{"inverts and is dropped", types.Word{Start: 0.1, End: 0.3, Word: "um"}, 0.2, nil},
		{"collapses to a point and is dropped", types.Word{Start: 1.0, End: 1.4, Word: "um"}, 0.2, nil},
		{"shrinks inward", types.Word{Start: 2.0, End: 3.0, Word: "um"}, 0.2, []types.Range{rng(2.2, 2.8)}},
		{"zero padding keeps raw bounds", types.Word{Start: 2.0, End: 3.0, Word: "um"}, 0, []types.Range{rng(2, 3)}},
		{"clamped to duration", types.Word{Start: 9.0, End: 12.0, Word: "um"}, 0.5, []types.Range{rng(9.5, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Reconcile(Input{
				Words:      []types.Word{tt.word},
				Vocabulary: NewVocabulary("um"),
				Padding:    sec(tt.padding),
				Duration:   sec(10),
			})
			if err != nil {
				t.Fatalf("reconcile: %v", err)
			}
			if !equalRanges(res.Cuts, tt.want) {
				t.Fatalf("cuts = %v, want %v", res.Cuts, tt.want)
			}
			for _, c := range res.Cuts {
				if c.Start >= c.End {
					t.Fatalf("inverted cut %v", c)
				}
			}
		})
	}
}

func TestReconcile_TouchingRangesMerge(t *testing.T) {
	res, err := Reconcile(Input{
		Silences:   []types.Range{rng(1, 2), rng(2, 3), rng(3.5, 4)},
		Vocabulary: NewVocabulary("um"),
		Duration:   sec(5),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Range{rng(1, 3), rng(3.5, 4)}
	if !equalRanges(res.Cuts, want) {
		t.Fatalf("cuts = %v, want %v", res.Cuts, want)
	}
}

func TestReconcile_ClampsAndDropsOutOfBounds(t *testing.T) {
	res, err := Reconcile(Input{
		Silences:   []types.Range{{Start: -sec(1), End: sec(0.5)}, rng(9, 12), rng(11, 13), rng(4, 4)},
		Vocabulary: NewVocabulary("um"),
		Duration:   sec(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Range{rng(0, 0.5), rng(9, 10)}
	if !equalRanges(res.Cuts, want) {
		t.Fatalf("cuts = %v, want %v", res.Cuts, want)
	}
}

func TestReconcile_EmptyInput(t *testing.T) {
	res, err := Reconcile(Input{Vocabulary: NewVocabulary("um"), Duration: sec(3)})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cuts) != 0 {
		t.Fatalf("expected no cuts, got %v", res.Cuts)
	}
}

func TestReconcile_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"zero duration", Input{Vocabulary: NewVocabulary("um")}, ErrInvalidDuration},
		{"negative duration", Input{Vocabulary: NewVocabulary("um"), Duration: -time.Second}, ErrInvalidDuration},
		{"empty vocabulary", Input{Vocabulary: NewVocabulary(" ", ","), Duration: time.Second}, ErrEmptyVocabulary},
		{"negative padding", Input{Vocabulary: NewVocabulary("um"), Duration: time.Second, Padding: -time.Millisecond}, ErrNegativePadding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Reconcile(tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReconcile_SkipsMalformedTokens(t *testing.T) {
	words := []types.Word{
		{Start: 1, End: 2, Word: ""},
		{Start: math.NaN(), End: 2, Word: "um"},
		{Start: 3, End: math.Inf(1), Word: "um"},
		{Start: 5, End: 4, Word: "um"},
		{Start: 0, End: 0},
		{Start: 6, End: 7, Word: " Um,"},
		{Start: 8, End: 8.5, Word: "hello"},
	}
	res, err := Reconcile(Input{Words: words, Vocabulary: NewVocabulary("um"), Duration: sec(10)})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 5 {
		t.Fatalf("expected 5 skipped tokens, got %d: %+v", len(res.Skipped), res.Skipped)
	}
	if !equalRanges(res.Cuts, []types.Range{rng(6, 7)}) {
		t.Fatalf("unexpected cuts %v", res.Cuts)
	}
}

func TestReconcile_ConfiguredVocabulary(t *testing.T) {
	words := []types.Word{
		{Start: 1, End: 1.5, Word: "Uh"},
		{Start: 2, End: 2.5, Word: "um"},
		{Start: 3, End: 3.5, Word: "like,"},
	}
	res, err := Reconcile(Input{Words: words, Vocabulary: NewVocabulary("uh", "LIKE"), Duration: sec(5)})
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Range{rng(1, 1.5), rng(3, 3.5)}
	if !equalRanges(res.Cuts, want) {
		t.Fatalf("cuts = %v, want %v", res.Cuts, want)
	}
	if len(res.Fillers) != 2 {
		t.Fatalf("expected 2 fillers, got %d", len(res.Fillers))
	}
}

func TestReconcile_OrderIndependent(t *testing.T) {
	silences := []types.Range{rng(7, 8), rng(0.5, 1), rng(3, 4.5), rng(4, 5), rng(9, 9.5)}
	words := []types.Word{
		{Start: 6, End: 6.4, Word: "um"},
		{Start: 2, End: 2.2, Word: "um"},
	}
	base, err := Reconcile(Input{Silences: silences, Words: words, Vocabulary: NewVocabulary("um"), Duration: sec(10)})
	if err != nil {
		t.Fatal(err)
	}

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		s := append([]types.Range(nil), silences...)
		w := append([]types.Word(nil), words...)
		r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		r.Shuffle(len(w), func(i, j int) { w[i], w[j] = w[j], w[i] })
		got, err := Reconcile(Input{Silences: s, Words: w, Vocabulary: NewVocabulary("um"), Duration: sec(10)})
		if err != nil {
			t.Fatal(err)
		}
		if !equalRanges(got.Cuts, base.Cuts) {
			t.Fatalf("shuffle %d: cuts = %v, want %v", i, got.Cuts, base.Cuts)
		}
		for j := 1; j < len(got.Cuts); j++ {
			if got.Cuts[j].Start <= got.Cuts[j-1].End {
				t.Fatalf("cuts not strictly increasing: %v", got.Cuts)
			}
		}
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	first, err := Reconcile(Input{
		Silences:   []types.Range{rng(1, 3), rng(2, 5), rng(8, 9)},
		Words:      []types.Word{{Start: 5.5, End: 6.5, Word: "um"}},
		Vocabulary: NewVocabulary("um"),
		Padding:    sec(0.1),
		Duration:   sec(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Reconcile(Input{
		Silences:   first.Cuts,
		Vocabulary: NewVocabulary("um"),
		Padding:    sec(0.1),
		Duration:   sec(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equalRanges(first.Cuts, second.Cuts) {
		t.Fatalf("second pass = %v, want %v", second.Cuts, first.Cuts)
	}
}

func TestVocabulary_SnapshotsInput(t *testing.T) {
	words := []string{"um"}
	v := NewVocabulary(words...)
	words[0] = "uh"
	if !v.Contains("UM") || v.Contains("uh") {
		t.Fatalf("vocabulary changed with caller slice: %v", v.Words())
	}
}
