package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/fillercut/internal/domain/cuts"
	"github.com/forPelevin/fillercut/internal/domain/subtitles"
	"github.com/forPelevin/fillercut/internal/logging"
	"github.com/forPelevin/fillercut/internal/ports"
	"github.com/forPelevin/fillercut/internal/types"
)

type Deps struct {
	Video    ports.VideoTool
	Silence  ports.SilenceDetector
	ASR      ports.ASR
	Progress ports.Progress
	Preview  ports.Preview
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

// Input is the immutable snapshot of one run's settings.
type Input struct {
	RunID      string
	InputMP4   string
	OutMP4     string
	Subtitles  string
	CacheDir   string
	WorkDir    string
	Silence    types.SilenceParams
	Vocabulary cuts.Vocabulary
	Padding    time.Duration
	Previews   bool
	Logger     *slog.Logger
}

func (in Input) validate() error {
	switch {
	case in.InputMP4 == "":
		return errors.New("input is empty")
	case in.OutMP4 == "":
		return errors.New("output is empty")
	case in.CacheDir == "" || in.WorkDir == "":
		return errors.New("cache and work dirs are required")
	case in.Vocabulary.Len() == 0:
		return cuts.ErrEmptyVocabulary
	case in.Padding < 0:
		return cuts.ErrNegativePadding
	case in.Silence.MinSilence < 0:
		return errors.New("min silence must be >= 0")
	}
	return nil
}

type Result struct {
	Manifest types.Manifest
	Timeline cuts.Timeline
	Cuts     []types.Range
}

type run struct {
	u       Usecase
	in      Input
	log     *slog.Logger
	started time.Time
	percent int
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	r := &run{u: u, in: in, log: in.Logger, started: time.Now()}
	if r.log == nil {
		r.log = logging.Discard()
	}
	if err := in.validate(); err != nil {
		return Result{}, r.fail(KindConfiguration, "config", err)
	}
	return r.exec(ctx)
}

func (r *run) exec(ctx context.Context) (Result, error) {
	d, in := r.u.d, r.in

	r.progress("Loading video...", 10)
	duration, err := d.Video.ProbeDuration(ctx, in.InputMP4)
	if err != nil {
		return Result{}, r.fail(KindDetector, "probe duration", err)
	}
	if duration <= 0 {
		return Result{}, r.fail(KindConfiguration, "probe duration", fmt.Errorf("%w (got %s)", cuts.ErrInvalidDuration, duration))
	}
	r.log.Info("video loaded", "input", in.InputMP4, "duration", duration, "fillers", in.Vocabulary.Words(), "padding", in.Padding)

	r.progress("Extracting audio from video...", 20)
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := d.Video.ExtractAudioMono16k(ctx, in.InputMP4, wav); err != nil {
		return Result{}, r.fail(KindDetector, "extract audio", err)
	}

	r.progress("Detecting silences and filler words...", 40)
	silences, tr, err := r.detect(ctx, wav)
	if err != nil {
		return Result{}, err
	}
	r.log.Info("detectors finished", "silences", len(silences), "segments", len(tr.Segments))

	r.progress("Filtering filler words...", 60)
	rec, err := cuts.Reconcile(cuts.Input{
		Silences:   silences,
		Words:      tr.Words(),
		Vocabulary: in.Vocabulary,
		Padding:    in.Padding,
		Duration:   duration,
	})
	if err != nil {
		return Result{}, r.fail(KindConfiguration, "reconcile", err)
	}
	for _, s := range rec.Skipped {
		r.log.Warn("skipping malformed word token", "index", s.Index, "text", s.Word.Word, "start", s.Word.Start, "end", s.Word.End, "reason", s.Reason)
	}

	r.progress("Cutting intervals...", 80)
	keeps := cuts.BuildKeepRanges(rec.Cuts, duration, r.previewer(ctx))
	if len(keeps) == 0 {
		return Result{}, r.fail(KindDegenerateTimeline, "build timeline", ErrNothingToRender)
	}
	tl := cuts.NewTimeline(keeps, duration)
	r.log.Info("timeline built", "cuts", len(rec.Cuts), "keeps", len(keeps), "kept", tl.Kept(), "removed", tl.Removed())

	r.progress("Saving video...", 90)
	err = d.Video.RenderKeeps(ctx, in.InputMP4, keeps, in.OutMP4, in.WorkDir, func(done, total int) {
		r.progress(fmt.Sprintf("Saving video (%d/%d)...", done, total), 90+9*done/total)
	})
	if err != nil {
		return Result{}, r.fail(KindRender, "render", err)
	}
	if in.Subtitles != "" {
		if err := r.writeSubtitles(tr, tl); err != nil {
			return Result{}, r.fail(KindRender, "write subtitles", err)
		}
	}

	r.progress("Completed!", 100)
	r.log.Info("process completed", "elapsed", fmt.Sprintf("%.2fs", time.Since(r.started).Seconds()), "output", in.OutMP4)

	return Result{
		Manifest: buildManifest(in, rec, tl),
		Timeline: tl,
		Cuts:     rec.Cuts,
	}, nil
}

// detect runs silence detection and transcription concurrently; the first
// failure cancels the other.
func (r *run) detect(ctx context.Context, wav string) ([]types.Range, types.Transcript, error) {
	var (
		silences []types.Range
		tr       types.Transcript
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		silences, err = r.u.d.Silence.DetectSilence(gctx, wav, r.in.Silence)
		if err != nil {
			return stageErr{stage: "detect silences", err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tr, err = r.u.d.ASR.Transcribe(gctx, wav, r.in.CacheDir)
		if err != nil {
			return stageErr{stage: "transcribe", err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		var se stageErr
		if errors.As(err, &se) {
			return nil, types.Transcript{}, r.fail(KindDetector, se.stage, se.err)
		}
		return nil, types.Transcript{}, r.fail(KindDetector, "detect", err)
	}
	return silences, tr, nil
}

type stageErr struct {
	stage string
	err   error
}

func (e stageErr) Error() string { return e.stage + ": " + e.err.Error() }

func (r *run) previewer(ctx context.Context) func(time.Duration) {
	if !r.in.Previews || r.u.d.Preview == nil {
		return nil
	}
	return func(at time.Duration) {
		img, err := r.u.d.Video.SampleFrame(ctx, r.in.InputMP4, at)
		if err != nil {
			r.log.Debug("preview frame unavailable", "at", at, "error", err)
			return
		}
		r.u.d.Preview.Preview(at, img)
	}
}

func (r *run) writeSubtitles(tr types.Transcript, tl cuts.Timeline) error {
	ass, err := subtitles.RenderTrimmedASS(tr, tl, r.in.Vocabulary)
	if errors.Is(err, subtitles.ErrNoWords) {
		r.log.Warn("no subtitles written", "reason", err)
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(r.in.Subtitles, []byte(ass), 0o644)
}

func (r *run) progress(status string, percent int) {
	r.percent = max(r.percent, percent)
	if r.u.d.Progress != nil {
		r.u.d.Progress.Progress(status, r.percent)
	}
}

func (r *run) fail(kind Kind, stage string, err error) error {
	re := &RunError{Kind: kind, Stage: stage, Elapsed: time.Since(r.started), Err: err}
	if r.u.d.Progress != nil {
		r.u.d.Progress.Progress("Error: "+err.Error(), r.percent)
	}
	r.log.Error("process failed", "stage", stage, "kind", kind.String(), "elapsed", fmt.Sprintf("%.2fs", re.Elapsed.Seconds()), "error", err)
	return re
}

func buildManifest(in Input, rec cuts.Result, tl cuts.Timeline) types.Manifest {
	m := types.Manifest{
		RunID:       in.RunID,
		Input:       in.InputMP4,
		Output:      in.OutMP4,
		Subtitles:   in.Subtitles,
		SourceSec:   tl.Duration.Seconds(),
		KeptSec:     tl.Kept().Seconds(),
		RemovedSec:  tl.Removed().Seconds(),
		FillerWords: len(rec.Fillers),
		Skipped:     len(rec.Skipped),
	}
	for _, c := range rec.Cuts {
		m.Cuts = append(m.Cuts, types.ManifestRange{StartSec: c.Start.Seconds(), EndSec: c.End.Seconds(), Source: c.Sources.String()})
	}
	for _, k := range tl.Keeps {
		m.Keeps = append(m.Keeps, types.ManifestRange{StartSec: k.Start.Seconds(), EndSec: k.End.Seconds()})
	}
	return m
}
