// Package config loads fillercut settings from TOML.
//
// Values come from Default(), then the config file, then the WHISPER_BIN and
// WHISPER_MODEL environment variables. The CLI applies flags on top of the
// loaded result.
package config
