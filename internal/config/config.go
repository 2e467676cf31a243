package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/fillercut/internal/types"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories and files used by a run.
type Paths struct {
	OutDir    string `toml:"out_dir"`
	CacheDir  string `toml:"cache_dir"`
	HistoryDB string `toml:"history_db"`
}

// Tools names the external binaries.
type Tools struct {
	FFmpeg       string `toml:"ffmpeg"`
	FFprobe      string `toml:"ffprobe"`
	WhisperBin   string `toml:"whisper_bin"`
	WhisperModel string `toml:"whisper_model"`
}

// Silence contains the silence search parameters.
type Silence struct {
	// Backend is "pcm" (in-process WAV analysis) or "ffmpeg" (silencedetect).
	Backend      string  `toml:"backend"`
	MinSilenceMS int     `toml:"min_silence_ms"`
	ThresholdDB  float64 `toml:"threshold_db"`
	SeekStepMS   int     `toml:"seek_step_ms"`
}

// Fillers contains the filler vocabulary and the padding applied to each
// filler cut.
type Fillers struct {
	Words      []string `toml:"words"`
	PaddingSec float64  `toml:"padding_sec"`
}

// Output toggles optional artifacts.
type Output struct {
	Subtitles bool `toml:"subtitles"`
	Previews  bool `toml:"previews"`
	KeepWork  bool `toml:"keep_work"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

type Config struct {
	Paths   Paths   `toml:"paths"`
	Tools   Tools   `toml:"tools"`
	Silence Silence `toml:"silence"`
	Fillers Fillers `toml:"fillers"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fillercut/config.toml")
}

// Load locates, parses, and validates a configuration file. An explicit path
// that does not exist is an error; with no path the project file and then
// the per-user file are tried, and defaults are used when neither exists.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		f, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := toml.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config %s: %w", expanded, err)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("fillercut.toml")
	if err != nil {
		return "", false, err
	}
	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	for _, p := range []string{projectPath, userPath} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true, nil
		}
	}
	return userPath, false, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("WHISPER_BIN")); v != "" {
		c.Tools.WhisperBin = v
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_MODEL")); v != "" {
		c.Tools.WhisperModel = v
	}
}

// SilenceParams converts the silence section into search parameters.
func (c *Config) SilenceParams() types.SilenceParams {
	return types.SilenceParams{
		MinSilence:  time.Duration(c.Silence.MinSilenceMS) * time.Millisecond,
		ThresholdDB: c.Silence.ThresholdDB,
		SeekStep:    time.Duration(c.Silence.SeekStepMS) * time.Millisecond,
	}
}

func (c *Config) Padding() time.Duration {
	return types.Seconds(c.Fillers.PaddingSec)
}

// Encode renders c as TOML.
func (c *Config) Encode() (string, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}

// CreateSample writes a commented sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// expandPath resolves a leading ~ and makes the path absolute.
func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
