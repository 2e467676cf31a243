//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/fillercut/internal/config"
	"github.com/forPelevin/fillercut/internal/pipeline"
	"github.com/forPelevin/fillercut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/fillercut/internal/types"
)

// makeFixture writes a 6s clip: tone, 2s of digital silence, tone.
func makeFixture(t *testing.T, dir string) string {
	t.Helper()
	in := filepath.Join(dir, "input.mp4")
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=640x360:d=6",
		"-f", "lavfi",
		"-i", "aevalsrc=if(between(t\\,2\\,4)\\,0\\,0.5*sin(2*PI*440*t)):s=16000:d=6",
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return in
}

func whisperPaths(t *testing.T, repoRoot string) (string, string) {
	t.Helper()
	def := config.Default().Tools
	bin := envOr("WHISPER_BIN", filepath.Join(repoRoot, def.WhisperBin))
	model := envOr("WHISPER_MODEL", filepath.Join(repoRoot, def.WhisperModel))
	for _, p := range []string{bin, model} {
		if _, err := os.Stat(p); err != nil {
			t.Skipf("whisper.cpp not available (%s): %v", p, err)
		}
	}
	return bin, model
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func TestE2E(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	bin, model := whisperPaths(t, repoRoot)

	for _, backend := range []string{config.BackendPCM, config.BackendFFmpeg} {
		t.Run(backend, func(t *testing.T) {
			tmp := t.TempDir()
			in := makeFixture(t, tmp)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()

			out, err := pipeline.Run(ctx, pipeline.Config{
				InputMP4:       in,
				OutDir:         filepath.Join(tmp, "out"),
				CacheDir:       filepath.Join(tmp, "cache"),
				HistoryDB:      filepath.Join(tmp, "history.db"),
				FFmpegPath:     "ffmpeg",
				FFprobePath:    "ffprobe",
				WhisperBin:     bin,
				WhisperModel:   model,
				SilenceBackend: backend,
				Silence:        types.SilenceParams{MinSilence: 650 * time.Millisecond, ThresholdDB: -21, SeekStep: time.Millisecond},
				Fillers:        []string{"um"},
				Padding:        200 * time.Millisecond,
				Previews:       true,
			})
			if err != nil {
				t.Fatalf("pipeline failed: %v", err)
			}

			got, err := ffmpeg.New("", "").ProbeDuration(ctx, out.Output)
			if err != nil {
				t.Fatalf("probe output: %v", err)
			}
			if math.Abs(got.Seconds()-4) > 0.3 {
				t.Fatalf("expected ~4s output, got %s", got)
			}

			b, err := os.ReadFile(out.Manifest)
			if err != nil {
				t.Fatalf("missing manifest: %v", err)
			}
			var m types.Manifest
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("decode manifest: %v", err)
			}
			if len(m.Cuts) == 0 || math.Abs(m.Cuts[0].StartSec-2) > 0.1 || math.Abs(m.Cuts[0].EndSec-4) > 0.1 {
				t.Fatalf("expected a silence cut near [2s, 4s), got %+v", m.Cuts)
			}
			if out.Previews == 0 {
				t.Fatalf("expected at least one preview frame in %s", out.PreviewDir)
			}
		})
	}
}
