package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return types.Seconds(sec), nil
}

// SampleFrame decodes the single frame shown at the given offset.
func (a *Adapter) SampleFrame(ctx context.Context, inMP4 string, at time.Duration) (image.Image, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-ss", fmtSeconds(at),
		"-i", inMP4,
		"-frames:v", "1",
		"-vf", "scale=240:-2",
		"-f", "image2pipe",
		"-c:v", "png",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg sample frame at %s: %w\n%s", fmtSeconds(at), err, stderr.String())
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode frame at %s: %w", fmtSeconds(at), err)
	}
	return img, nil
}

// RenderKeeps re-encodes each keep range into its own file under workDir
// and joins them with the concat demuxer, so the join itself is lossless.
func (a *Adapter) RenderKeeps(
	ctx context.Context,
	inMP4 string,
	keeps []types.Range,
	outMP4 string,
	workDir string,
	onSegment func(done, total int),
) error {
	if len(keeps) == 0 {
		return fmt.Errorf("ffmpeg render: no ranges to render")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	parts := make([]string, 0, len(keeps))
	for i, k := range keeps {
		part := filepath.Join(workDir, fmt.Sprintf("seg_%04d.mp4", i+1))
		if err := a.renderSegment(ctx, inMP4, k, part); err != nil {
			return err
		}
		parts = append(parts, part)
		if onSegment != nil {
			onSegment(i+1, len(keeps))
		}
	}

	list := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(list, []byte(concatList(parts)), 0o644); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		"-movflags", "+faststart",
		outMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) renderSegment(ctx context.Context, inMP4 string, k types.Range, outMP4 string) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(k.Start),
		"-i", inMP4,
		"-t", fmtSeconds(k.Len()),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		"-avoid_negative_ts", "make_zero",
		outMP4,
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render segment %s-%s: %w\n%s", fmtSeconds(k.Start), fmtSeconds(k.End), err, string(b))
	}
	return nil
}

func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		// concat demuxer quoting: close the quote, emit an escaped quote, reopen.
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
