package wavsilence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/forPelevin/fillercut/internal/types"
)

func writeWAV(t *testing.T, path string, rate, chans int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, chans, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: chans, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func speech(frames, chans int) []int {
	out := make([]int, frames*chans)
	for i := 0; i < frames; i++ {
		v := 16000
		if i%2 == 1 {
			v = -16000
		}
		for c := 0; c < chans; c++ {
			out[i*chans+c] = v
		}
	}
	return out
}

func TestDetectSilence_StereoFile(t *testing.T) {
	const rate = 8000
	data := append(speech(rate, 2), make([]int, rate*2)...)
	data = append(data, speech(rate, 2)...)

	path := filepath.Join(t.TempDir(), "audio.wav")
	writeWAV(t, path, rate, 2, data)

	samples, gotRate, err := ReadMono(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotRate != rate || len(samples) != 3*rate {
		t.Fatalf("rate=%d frames=%d", gotRate, len(samples))
	}
	if samples[0] < 0.48 || samples[0] > 0.5 {
		t.Fatalf("unexpected scaled sample %v", samples[0])
	}

	got, err := New().DetectSilence(context.Background(), path, types.SilenceParams{
		MinSilence:  500 * time.Millisecond,
		ThresholdDB: -40,
		SeekStep:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 1 || got[0].Start != time.Second || got[0].End != 2*time.Second {
		t.Fatalf("silences = %v", got)
	}
}

func TestReadMono_RejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	if err := os.WriteFile(path, []byte("definitely not riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadMono(path); err == nil {
		t.Fatalf("expected error for non-wav input")
	}
}
