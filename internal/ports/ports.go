package ports

import (
	"context"
	"image"
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error)
	SampleFrame(ctx context.Context, inMP4 string, at time.Duration) (image.Image, error)
	// RenderKeeps extracts every keep range in order and concatenates them
	// into outMP4. onSegment, if set, is called after each extracted range.
	RenderKeeps(ctx context.Context, inMP4 string, keeps []types.Range, outMP4, workDir string, onSegment func(done, total int)) error
}

type SilenceDetector interface {
	DetectSilence(ctx context.Context, wavPath string, p types.SilenceParams) ([]types.Range, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// Progress receives run status updates. Percent is in [0, 100].
type Progress interface {
	Progress(status string, percent int)
}

// Preview receives one sampled frame per cut. Delivery is best-effort.
type Preview interface {
	Preview(at time.Duration, frame image.Image)
}
