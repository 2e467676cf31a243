package wavsilence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/forPelevin/fillercut/internal/domain/silence"
	"github.com/forPelevin/fillercut/internal/types"
)

// Adapter detects silence by decoding the WAV file in-process.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) DetectSilence(ctx context.Context, wavPath string, p types.SilenceParams) ([]types.Range, error) {
	samples, rate, err := ReadMono(wavPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return silence.Detect(samples, rate, p), nil
}

// ReadMono decodes a PCM WAV file into mono samples scaled to [-1, 1].
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("wav decode %s: not a valid PCM wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, 0, errors.New("wav decode: missing format")
	}
	return downmix(buf), buf.Format.SampleRate, nil
}

func downmix(buf *audio.IntBuffer) []float64 {
	chans := buf.Format.NumChannels
	if chans < 1 {
		chans = 1
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	frames := len(buf.Data) / chans
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < chans; c++ {
			sum += float64(buf.Data[i*chans+c])
		}
		out[i] = sum / float64(chans) / scale
	}
	return out
}
