package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/fillercut/internal/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaultsWhenNoFileExists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("WHISPER_BIN", "")
	t.Setenv("WHISPER_MODEL", "")
	work := t.TempDir()
	chdir(t, work)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file")
	}
	if resolved != filepath.Join(home, ".config", "fillercut", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.CacheDir != filepath.Join(work, ".cache") {
		t.Fatalf("unexpected cache dir %q", cfg.Paths.CacheDir)
	}
	if cfg.Paths.HistoryDB != filepath.Join(work, ".cache", "history.db") {
		t.Fatalf("unexpected history db %q", cfg.Paths.HistoryDB)
	}
	p := cfg.SilenceParams()
	if p.MinSilence != 650*time.Millisecond || p.ThresholdDB != -21 || p.SeekStep != time.Millisecond {
		t.Fatalf("unexpected silence params %+v", p)
	}
	if cfg.Padding() != 200*time.Millisecond {
		t.Fatalf("unexpected padding %s", cfg.Padding())
	}
	if len(cfg.Fillers.Words) != 1 || cfg.Fillers.Words[0] != "um" {
		t.Fatalf("unexpected fillers %v", cfg.Fillers.Words)
	}
}

func TestLoadProjectFileAndEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WHISPER_BIN", "/opt/whisper/main")
	t.Setenv("WHISPER_MODEL", "")
	work := t.TempDir()
	chdir(t, work)

	body := `
[silence]
backend = "FFmpeg"
min_silence_ms = 400

[fillers]
words = ["Um", "uh,", "um", "  "]
padding_sec = 0
`
	if err := os.WriteFile(filepath.Join(work, "fillercut.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != filepath.Join(work, "fillercut.toml") {
		t.Fatalf("expected project config, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Silence.Backend != config.BackendFFmpeg || cfg.Silence.MinSilenceMS != 400 {
		t.Fatalf("unexpected silence section %+v", cfg.Silence)
	}
	if cfg.Silence.SeekStepMS != 1 {
		t.Fatalf("expected default seek step to survive, got %d", cfg.Silence.SeekStepMS)
	}
	if got := strings.Join(cfg.Fillers.Words, ","); got != "um,uh" {
		t.Fatalf("unexpected normalized fillers %q", got)
	}
	if cfg.Tools.WhisperBin != "/opt/whisper/main" {
		t.Fatalf("expected env override, got %q", cfg.Tools.WhisperBin)
	}
	if cfg.Tools.WhisperModel != config.Default().Tools.WhisperModel {
		t.Fatalf("unexpected whisper model %q", cfg.Tools.WhisperModel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown key", body: "[silence]\nbogus = 1\n", want: "parse config"},
		{name: "backend", body: "[silence]\nbackend = \"vad\"\n", want: "silence.backend"},
		{name: "positive threshold", body: "[silence]\nthreshold_db = 3.0\n", want: "threshold_db"},
		{name: "negative min silence", body: "[silence]\nmin_silence_ms = -1\n", want: "min_silence_ms"},
		{name: "zero seek step", body: "[silence]\nseek_step_ms = 0\n", want: "seek_step_ms"},
		{name: "empty fillers", body: "[fillers]\nwords = []\n", want: "fillers.words"},
		{name: "negative padding", body: "[fillers]\npadding_sec = -0.1\n", want: "padding_sec"},
		{name: "log format", body: "[logging]\nformat = \"xml\"\n", want: "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WHISPER_BIN", "")
	t.Setenv("WHISPER_MODEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if cfg.Silence != def.Silence || cfg.Fillers.PaddingSec != def.Fillers.PaddingSec {
		t.Fatalf("sample drifted from defaults: %+v", cfg)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var back config.Config
	if err := toml.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("decode encoded config: %v\n%s", err, out)
	}
	if back.Silence != cfg.Silence || back.Tools != cfg.Tools {
		t.Fatalf("round trip mismatch:\n%s", out)
	}
}
