package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/fillercut/internal/config"
	"github.com/forPelevin/fillercut/internal/domain/cuts"
	"github.com/forPelevin/fillercut/internal/history"
	"github.com/forPelevin/fillercut/internal/logging"
	"github.com/forPelevin/fillercut/internal/ports"
	"github.com/forPelevin/fillercut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/fillercut/internal/ports/adapters/wavsilence"
	"github.com/forPelevin/fillercut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/fillercut/internal/progress"
	"github.com/forPelevin/fillercut/internal/types"
	"github.com/forPelevin/fillercut/internal/usecase"
)

// ErrInputBusy is returned when another run holds the lock for the same input.
var ErrInputBusy = errors.New("another run is already processing this input")

// Config is the snapshot of one run. It is not read again after Run starts.
type Config struct {
	InputMP4 string
	OutDir   string
	// Name is the base name of the output files; defaults to "output".
	Name string

	// CacheDir is the base directory for local artifacts (audio, transcripts, etc.).
	// If empty, defaults to ".cache".
	CacheDir  string
	HistoryDB string

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	SilenceBackend string
	Silence        types.SilenceParams
	Fillers        []string
	Padding        time.Duration

	Subtitles bool
	Previews  bool
	KeepWork  bool

	Logger   *slog.Logger
	Progress ports.Progress
}

func (c Config) Validate() error {
	if err := c.validate(); err != nil {
		return usecase.NewConfigError(err)
	}
	return nil
}

func (c Config) validate() error {
	if c.InputMP4 == "" {
		return errors.New("input is empty")
	}
	info, err := os.Stat(c.InputMP4)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", c.InputMP4)
	}
	if info.Size() == 0 {
		return fmt.Errorf("input %s is empty", c.InputMP4)
	}
	if c.WhisperModel == "" {
		return errors.New("whisper model path is required")
	}
	switch c.SilenceBackend {
	case config.BackendPCM, config.BackendFFmpeg:
	default:
		return fmt.Errorf("silence backend must be %q or %q, got %q", config.BackendPCM, config.BackendFFmpeg, c.SilenceBackend)
	}
	if cuts.NewVocabulary(c.Fillers...).Len() == 0 {
		return cuts.ErrEmptyVocabulary
	}
	if c.Padding < 0 {
		return cuts.ErrNegativePadding
	}
	if c.Silence.MinSilence < 0 {
		return errors.New("min silence must be >= 0")
	}
	if c.Silence.SeekStep <= 0 {
		return errors.New("seek step must be > 0")
	}
	if c.Silence.ThresholdDB > 0 {
		return errors.New("silence threshold must be <= 0 dB")
	}
	if c.Name != "" && normalizePathSegment(c.Name) == "" {
		return fmt.Errorf("output name %q has no usable characters", c.Name)
	}
	return nil
}

// Outcome points at the artifacts of a finished run.
type Outcome struct {
	RunID      string
	RunDir     string
	Output     string
	Manifest   string
	Subtitles  string
	PreviewDir string
	Previews   int
	Result     usecase.Result
}

func Run(ctx context.Context, cfg Config) (Outcome, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}

	runID := uuid.NewString()
	started := time.Now()
	log = log.With("run_id", runID)

	out, res, err := execute(ctx, cfg, runID, started, log)
	recordHistory(ctx, cfg.HistoryDB, buildRun(runID, cfg.InputMP4, out, res, err, started), log)
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// setupError reports a workspace problem found before any media work starts.
func setupError(stage string, err error) *usecase.RunError {
	return &usecase.RunError{Kind: usecase.KindConfiguration, Stage: stage, Err: err}
}

func execute(ctx context.Context, cfg Config, runID string, started time.Time, log *slog.Logger) (Outcome, usecase.Result, error) {
	// adapters
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	asr := whispercpp.New(cfg.WhisperBin, cfg.WhisperModel)
	var sd ports.SilenceDetector = wavsilence.New()
	if cfg.SilenceBackend == config.BackendFFmpeg {
		sd = v
	}

	jobID := hash(cfg.InputMP4)
	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	log.Debug("preparing workspace", "cache", cacheDir)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Outcome{}, usecase.Result{}, setupError("prepare cache", err)
	}

	lock := flock.New(filepath.Join(cacheDir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return Outcome{}, usecase.Result{}, setupError("acquire input lock", err)
	}
	if !ok {
		return Outcome{}, usecase.Result{}, usecase.NewConfigError(fmt.Errorf("%w: %s", ErrInputBusy, cfg.InputMP4))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("failed to release input lock", "error", err)
		}
	}()

	workDir := filepath.Join(cacheDir, "work-"+runID)
	if !cfg.KeepWork {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				log.Warn("failed to remove work dir", "dir", workDir, "error", err)
			}
		}()
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.InputMP4, started.UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Outcome{}, usecase.Result{}, setupError("prepare output dir", err)
	}
	log.Info("output run dir", "dir", runOutDir)

	name := "output"
	if cfg.Name != "" {
		name = normalizePathSegment(cfg.Name)
	}
	out := Outcome{
		RunID:    runID,
		RunDir:   runOutDir,
		Output:   filepath.Join(runOutDir, name+".mp4"),
		Manifest: filepath.Join(runOutDir, "manifest.json"),
	}
	if cfg.Subtitles {
		out.Subtitles = filepath.Join(runOutDir, name+".ass")
	}

	deps := usecase.Deps{
		Video:    v,
		Silence:  sd,
		ASR:      asr,
		Progress: cfg.Progress,
	}

	var (
		frames  *progress.Bus
		written chan int
	)
	if cfg.Previews {
		out.PreviewDir = filepath.Join(runOutDir, "previews")
		if err := os.MkdirAll(out.PreviewDir, 0o755); err != nil {
			return Outcome{}, usecase.Result{}, setupError("prepare previews dir", err)
		}
		frames = progress.NewBus(8)
		deps.Preview = frames
		written = make(chan int, 1)
		go func() {
			written <- writePreviews(out.PreviewDir, frames.Frames(), log)
		}()
	}

	uc := usecase.New(deps)
	res, err := uc.Run(ctx, usecase.Input{
		RunID:      runID,
		InputMP4:   cfg.InputMP4,
		OutMP4:     out.Output,
		Subtitles:  out.Subtitles,
		CacheDir:   cacheDir,
		WorkDir:    workDir,
		Silence:    cfg.Silence,
		Vocabulary: cuts.NewVocabulary(cfg.Fillers...),
		Padding:    cfg.Padding,
		Previews:   cfg.Previews,
		Logger:     log,
	})

	if frames != nil {
		frames.Close()
		out.Previews = <-written
		if n := frames.Dropped(); n > 0 {
			log.Warn("preview frames dropped", "count", n)
		}
	}
	if err != nil {
		return out, res, err
	}

	out.Result = res
	if err := writeManifest(out.Manifest, res.Manifest); err != nil {
		return out, res, &usecase.RunError{Kind: usecase.KindRender, Stage: "write manifest", Err: err}
	}
	log.Info("manifest written", "cuts", len(res.Manifest.Cuts), "path", out.Manifest)
	return out, res, nil
}

func writeManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func buildRun(id, input string, out Outcome, res usecase.Result, err error, started time.Time) history.Run {
	r := history.Run{
		ID:         id,
		Input:      input,
		Status:     history.StatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		r.Status = history.StatusFailed
		r.Error = err.Error()
		if k := usecase.KindOf(err); k != 0 {
			r.ErrorKind = k.String()
		}
		return r
	}
	r.Output = out.Output
	r.SourceSec = res.Manifest.SourceSec
	r.KeptSec = res.Manifest.KeptSec
	r.Cuts = len(res.Cuts)
	return r
}

// recordHistory never fails the run; problems are only logged.
func recordHistory(ctx context.Context, path string, r history.Run, log *slog.Logger) {
	if path == "" {
		return
	}
	store, err := history.Open(path)
	if err != nil {
		log.Warn("history unavailable", "path", path, "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(context.WithoutCancel(ctx), r); err != nil {
		log.Warn("history record failed", "error", err)
	}
}

func buildRunOutDir(outRoot, inputMP4 string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputMP4, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.SilenceDetector = (*ffmpeg.Adapter)(nil)
var _ ports.SilenceDetector = (*wavsilence.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.Progress = (*progress.Bus)(nil)
var _ ports.Preview = (*progress.Bus)(nil)
