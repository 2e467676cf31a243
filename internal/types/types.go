package types

import (
	"encoding/json"
	"math"
	"time"
)

type Transcript struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// UnmarshalJSON accepts the token text under either "word" or "text".
func (w *Word) UnmarshalJSON(b []byte) error {
	var raw struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Word  string  `json:"word"`
		Text  string  `json:"text"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	w.Start, w.End, w.Word = raw.Start, raw.End, raw.Word
	if w.Word == "" {
		w.Word = raw.Text
	}
	return nil
}

// Words flattens the transcript in segment order.
func (t Transcript) Words() []Word {
	var out []Word
	for _, s := range t.Segments {
		out = append(out, s.Words...)
	}
	return out
}

// Source tags where a cut came from.
type Source uint8

const (
	SourceSilence Source = 1 << iota
	SourceFiller
)

func (s Source) String() string {
	switch s {
	case SourceSilence:
		return "silence"
	case SourceFiller:
		return "filler"
	case SourceSilence | SourceFiller:
		return "silence+filler"
	default:
		return ""
	}
}

// Range is a half-open time span [Start, End) on the source timeline.
type Range struct {
	Start   time.Duration
	End     time.Duration
	Sources Source
}

func (r Range) Len() time.Duration {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r Range) Empty() bool { return r.End <= r.Start }

// Clamp limits r to [0, max].
func (r Range) Clamp(max time.Duration) Range {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > max {
		r.End = max
	}
	return r
}

type SilenceParams struct {
	MinSilence  time.Duration
	ThresholdDB float64
	SeekStep    time.Duration
}

// Seconds converts float seconds to a Duration, rounding to the nearest
// nanosecond. Non-finite input maps to 0.
func Seconds(sec float64) time.Duration {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0
	}
	return time.Duration(math.Round(sec * float64(time.Second)))
}

type Manifest struct {
	RunID       string          `json:"run_id"`
	Input       string          `json:"input"`
	Output      string          `json:"output"`
	Subtitles   string          `json:"subtitles,omitempty"`
	SourceSec   float64         `json:"source_sec"`
	KeptSec     float64         `json:"kept_sec"`
	RemovedSec  float64         `json:"removed_sec"`
	FillerWords int             `json:"filler_words"`
	Skipped     int             `json:"skipped_tokens"`
	Cuts        []ManifestRange `json:"cuts"`
	Keeps       []ManifestRange `json:"keeps"`
}

type ManifestRange struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Source   string  `json:"source,omitempty"`
}
