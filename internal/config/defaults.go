package config

import "github.com/forPelevin/fillercut/internal/domain/cuts"

const (
	BackendPCM    = "pcm"
	BackendFFmpeg = "ffmpeg"
)

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Paths: Paths{
			OutDir:   "out",
			CacheDir: ".cache",
		},
		Tools: Tools{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
		},
		Silence: Silence{
			Backend:      BackendPCM,
			MinSilenceMS: 650,
			ThresholdDB:  -21,
			SeekStepMS:   1,
		},
		Fillers: Fillers{
			Words:      append([]string(nil), cuts.DefaultFillers...),
			PaddingSec: 0.2,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
