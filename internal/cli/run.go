package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/fillercut/internal/config"
	"github.com/forPelevin/fillercut/internal/logging"
	"github.com/forPelevin/fillercut/internal/pipeline"
	"github.com/forPelevin/fillercut/internal/progress"
)

func run(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	tty := isTerminal(stderr)
	barOut, logOut := stderr, stderr
	if tty {
		term := &terminal{w: stderr}
		barOut, logOut = term, term.logWriter()
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
	defer cancel()

	bus := progress.NewBus(64)
	done := consumeProgress(bus.Events(), barOut, tty, logger)

	pcfg := pipelineConfig(cfg, absIn)
	pcfg.Logger = logger
	pcfg.Progress = bus

	out, err := pipeline.Run(ctx, pcfg)
	bus.Close()
	<-done
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), out)
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = strings.TrimSpace(os.Getenv("FILLERCUT_CONFIG"))
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("out") {
		v, _ := f.GetString("out")
		cfg.Paths.OutDir = v
	}
	if f.Changed("min-silence") {
		cfg.Silence.MinSilenceMS, _ = f.GetInt("min-silence")
	}
	if f.Changed("seek-step") {
		cfg.Silence.SeekStepMS, _ = f.GetInt("seek-step")
	}
	if f.Changed("threshold") {
		cfg.Silence.ThresholdDB, _ = f.GetFloat64("threshold")
	}
	if f.Changed("silence-backend") {
		cfg.Silence.Backend, _ = f.GetString("silence-backend")
	}
	if f.Changed("padding") {
		cfg.Fillers.PaddingSec, _ = f.GetFloat64("padding")
	}
	if f.Changed("filler") {
		cfg.Fillers.Words, _ = f.GetStringSlice("filler")
	}
	if f.Changed("subtitles") {
		cfg.Output.Subtitles, _ = f.GetBool("subtitles")
	}
	if f.Changed("previews") {
		cfg.Output.Previews, _ = f.GetBool("previews")
	}
	if f.Changed("keep-work") {
		cfg.Output.KeepWork, _ = f.GetBool("keep-work")
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Logging.Format, _ = f.GetString("log-format")
	}
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func pipelineConfig(cfg *config.Config, input string) pipeline.Config {
	return pipeline.Config{
		InputMP4:       input,
		OutDir:         cfg.Paths.OutDir,
		CacheDir:       cfg.Paths.CacheDir,
		HistoryDB:      cfg.Paths.HistoryDB,
		FFmpegPath:     cfg.Tools.FFmpeg,
		FFprobePath:    cfg.Tools.FFprobe,
		WhisperBin:     cfg.Tools.WhisperBin,
		WhisperModel:   cfg.Tools.WhisperModel,
		SilenceBackend: cfg.Silence.Backend,
		Silence:        cfg.SilenceParams(),
		Fillers:        append([]string(nil), cfg.Fillers.Words...),
		Padding:        cfg.Padding(),
		Subtitles:      cfg.Output.Subtitles,
		Previews:       cfg.Output.Previews,
		KeepWork:       cfg.Output.KeepWork,
	}
}

func printSummary(w io.Writer, out pipeline.Outcome) {
	m := out.Result.Manifest
	fmt.Fprintf(w, "Output:   %s\n", out.Output)
	fmt.Fprintf(w, "Manifest: %s\n", out.Manifest)
	if out.Subtitles != "" {
		fmt.Fprintf(w, "Subtitles: %s\n", out.Subtitles)
	}
	if out.PreviewDir != "" {
		fmt.Fprintf(w, "Previews: %s (%d frames)\n", out.PreviewDir, out.Previews)
	}
	fmt.Fprintf(w, "Kept %s of %s (%d cuts, %d filler words)\n",
		fmtSec(m.KeptSec), fmtSec(m.SourceSec), len(m.Cuts), m.FillerWords)
	if len(m.Cuts) == 0 {
		return
	}
	rows := make([][]string, 0, len(m.Cuts))
	for i, c := range m.Cuts {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmtSec(c.StartSec),
			fmtSec(c.EndSec),
			fmtSec(c.EndSec - c.StartSec),
			c.Source,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Start", "End", "Length", "Source"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}

func fmtSec(s float64) string {
	return fmt.Sprintf("%.2fs", s)
}
