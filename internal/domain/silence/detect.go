package silence

import (
	"math"
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

// Detect finds silent ranges in mono samples scaled to [-1, 1].
//
// A window of p.MinSilence slides over the track in p.SeekStep increments.
// A window is silent when its RMS is at or below the track average level
// shifted by p.ThresholdDB. Silent windows whose starts are at most one
// window apart are joined, so the returned ranges never overlap and each is
// at least one window long.
func Detect(samples []float64, sampleRate int, p types.SilenceParams) []types.Range {
	if sampleRate <= 0 || len(samples) == 0 {
		return nil
	}

	step := samplesFor(p.SeekStep, sampleRate)
	if step < 1 {
		step = 1
	}
	win := samplesFor(p.MinSilence, sampleRate)
	if win < step {
		win = step
	}
	if len(samples) < win {
		return nil
	}

	prefix := make([]float64, len(samples)+1)
	for i, s := range samples {
		prefix[i+1] = prefix[i] + s*s
	}
	threshold := ThresholdAmplitude(math.Sqrt(prefix[len(samples)]/float64(len(samples))), p.ThresholdDB)
	silent := func(start int) bool {
		rms := math.Sqrt((prefix[start+win] - prefix[start]) / float64(win))
		return rms <= threshold
	}

	var starts []int
	last := len(samples) - win
	for i := 0; i <= last; i += step {
		if silent(i) {
			starts = append(starts, i)
		}
	}
	// pydub checks the window flush with the end even when the step skips it.
	if last%step != 0 && silent(last) {
		starts = append(starts, last)
	}
	if len(starts) == 0 {
		return nil
	}

	var out []types.Range
	first, prev := starts[0], starts[0]
	for _, s := range starts[1:] {
		if s-prev <= win {
			prev = s
			continue
		}
		out = append(out, span(first, prev+win, sampleRate))
		first, prev = s, s
	}
	return append(out, span(first, prev+win, sampleRate))
}

// ThresholdAmplitude converts an RMS level and a relative dB offset into an
// absolute RMS threshold.
func ThresholdAmplitude(avgRMS, relativeDB float64) float64 {
	if avgRMS <= 0 {
		return 0
	}
	return avgRMS * math.Pow(10, relativeDB/20)
}

func samplesFor(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}

func span(from, to, rate int) types.Range {
	return types.Range{
		Start:   time.Duration(int64(from) * int64(time.Second) / int64(rate)),
		End:     time.Duration(int64(to) * int64(time.Second) / int64(rate)),
		Sources: types.SourceSilence,
	}
}
