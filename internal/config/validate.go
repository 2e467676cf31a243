package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/forPelevin/fillercut/internal/domain/cuts"
)

// Normalize trims values, expands paths and dedupes the filler list.
func (c *Config) Normalize() error {
	var err error
	if c.Paths.OutDir, err = expandPath(strings.TrimSpace(c.Paths.OutDir)); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" && c.Paths.CacheDir != "" {
		c.Paths.HistoryDB = filepath.Join(c.Paths.CacheDir, "history.db")
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}

	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.WhisperBin = strings.TrimSpace(c.Tools.WhisperBin)
	c.Tools.WhisperModel = strings.TrimSpace(c.Tools.WhisperModel)

	c.Silence.Backend = strings.ToLower(strings.TrimSpace(c.Silence.Backend))
	if c.Silence.Backend == "" {
		c.Silence.Backend = BackendPCM
	}

	seen := make(map[string]struct{}, len(c.Fillers.Words))
	words := make([]string, 0, len(c.Fillers.Words))
	for _, w := range c.Fillers.Words {
		n := cuts.Normalize(w)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		words = append(words, n)
	}
	c.Fillers.Words = words

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Silence.Backend {
	case BackendPCM, BackendFFmpeg:
	default:
		return fmt.Errorf("silence.backend: unsupported value %q (want %q or %q)", c.Silence.Backend, BackendPCM, BackendFFmpeg)
	}
	if c.Silence.MinSilenceMS < 0 {
		return errors.New("silence.min_silence_ms must be >= 0")
	}
	if c.Silence.SeekStepMS < 1 {
		return errors.New("silence.seek_step_ms must be >= 1")
	}
	if math.IsNaN(c.Silence.ThresholdDB) || c.Silence.ThresholdDB > 0 {
		return errors.New("silence.threshold_db must be <= 0")
	}
	if len(c.Fillers.Words) == 0 {
		return fmt.Errorf("fillers.words: %w", cuts.ErrEmptyVocabulary)
	}
	if math.IsNaN(c.Fillers.PaddingSec) || math.IsInf(c.Fillers.PaddingSec, 0) || c.Fillers.PaddingSec < 0 {
		return fmt.Errorf("fillers.padding_sec: %w", cuts.ErrNegativePadding)
	}
	if c.Tools.FFmpeg == "" || c.Tools.FFprobe == "" {
		return errors.New("tools.ffmpeg and tools.ffprobe are required")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
