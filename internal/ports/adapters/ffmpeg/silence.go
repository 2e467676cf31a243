package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/fillercut/internal/types"
)

// floorDB is what volumedetect reports for digital silence on 16-bit input.
const floorDB = -91.0

var (
	reMeanVolume   = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+|-inf) dB`)
	reSilenceStart = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	reSilenceEnd   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// DetectSilence runs volumedetect to find the track's mean level and then
// silencedetect with the threshold placed relative to it.
func (a *Adapter) DetectSilence(ctx context.Context, wavPath string, p types.SilenceParams) ([]types.Range, error) {
	lines, err := a.stderrLines(ctx, "-i", wavPath, "-af", "volumedetect", "-f", "null", "-")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg volumedetect: %w", err)
	}
	mean, err := parseMeanVolume(lines)
	if err != nil {
		return nil, err
	}

	noise := mean + p.ThresholdDB
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s", strconv.FormatFloat(noise, 'f', 2, 64), fmtSeconds(p.MinSilence))
	lines, err = a.stderrLines(ctx, "-i", wavPath, "-af", filter, "-f", "null", "-")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg silencedetect: %w", err)
	}

	dur, err := a.ProbeDuration(ctx, wavPath)
	if err != nil {
		return nil, err
	}
	return parseSilences(lines, dur)
}

func (a *Adapter) stderrLines(ctx context.Context, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg, append([]string{"-hide_banner", "-nostats"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var lines []string
	sc := bufio.NewScanner(&stderr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if runErr != nil {
		return lines, fmt.Errorf("%w\n%s", runErr, strings.Join(lines, "\n"))
	}
	return lines, sc.Err()
}

func parseMeanVolume(lines []string) (float64, error) {
	for _, l := range lines {
		m := reMeanVolume.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if m[1] == "-inf" {
			return floorDB, nil
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("parse mean volume %q: %w", m[1], err)
		}
		return v, nil
	}
	return 0, errors.New("ffmpeg volumedetect: mean_volume not found")
}

// parseSilences pairs silence_start and silence_end markers. A trailing
// start without an end runs to the end of the track.
func parseSilences(lines []string, duration time.Duration) ([]types.Range, error) {
	var (
		out  []types.Range
		open = false
		cur  types.Range
	)
	for _, l := range lines {
		if m := reSilenceStart.FindStringSubmatch(l); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("parse silence_start %q: %w", m[1], err)
			}
			cur = types.Range{Start: max(0, types.Seconds(v)), Sources: types.SourceSilence}
			open = true
			continue
		}
		if m := reSilenceEnd.FindStringSubmatch(l); m != nil {
			if !open {
				return nil, errors.New("ffmpeg output: silence_end before silence_start")
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("parse silence_end %q: %w", m[1], err)
			}
			cur.End = types.Seconds(v)
			out = append(out, cur)
			open = false
		}
	}
	if open && duration > cur.Start {
		cur.End = duration
		out = append(out, cur)
	}
	return out, nil
}
