// Package config provides the configuration schema, loader, and provider
// registry for the Readalong engine.
package config

import "github.com/MrWong99/readalong/internal/align"

// LogLevel controls log verbosity for the Readalong server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Readalong.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reading   ReadingConfig   `yaml:"reading"`
	Capture   CaptureConfig   `yaml:"capture"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// ServiceVersion is reported in telemetry. Usually injected at build time.
	ServiceVersion string `yaml:"service_version"`

	// HistoryPath is the JSON-lines file practice attempts are appended to.
	// Empty disables persistence.
	HistoryPath string `yaml:"history_path"`
}

// ReadingConfig tunes the read-aloud and feedback behaviour.
type ReadingConfig struct {
	// SpeedWPM is the reading speed in words per minute. The synthesis rate
	// is SpeedWPM/120. 0 means the 120 WPM default.
	SpeedWPM float64 `yaml:"speed_wpm"`

	// Voice is the TTS voice identifier passed to the provider. Empty uses
	// the provider default.
	Voice string `yaml:"voice"`

	// AlignmentPolicy selects how expected words are matched against the
	// transcript: "positional" (default) or "set-membership".
	AlignmentPolicy align.Policy `yaml:"alignment_policy"`

	// MinSentenceRunes drops segmented body sentences shorter than this many
	// runes. 0 keeps everything; 4 is a sensible value for scanned documents.
	MinSentenceRunes int `yaml:"min_sentence_runes"`

	// SettleDelayMs is how long to wait after a page change before binding
	// sentences to visual elements. 0 means the 300 ms default.
	SettleDelayMs int `yaml:"settle_delay_ms"`
}

// CaptureConfig describes the device-native audio the capture pipeline
// receives before normalization.
type CaptureConfig struct {
	// ListenAddr is the address of the websocket endpoint document-reader
	// clients push microphone audio to. Empty disables the listener; a
	// capture device can still be attached programmatically.
	ListenAddr string `yaml:"listen_addr"`

	// SampleRate is the Opus decode sample rate in Hz. 0 means 48000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the Opus decode channel count. 0 means mono.
	Channels int `yaml:"channels"`
}

// ProvidersConfig declares which provider implementation to use for each
// external service. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	TTS    ProviderEntry `yaml:"tts"`
	Scorer ProviderEntry `yaml:"scorer"`

	// TTSFallback, when named, is wrapped together with TTS in a failover
	// group: the fallback is used whenever the primary fails or its circuit
	// breaker is open.
	TTSFallback ProviderEntry `yaml:"tts_fallback"`

	// ScorerFallback is the failover scorer, typically a local whisper model
	// backing a remote API.
	ScorerFallback ProviderEntry `yaml:"scorer_fallback"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai", "httpapi", "whisper", "mock").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "tts-1") or,
	// for local providers, a model file path.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or
	// nested maps.
	Options map[string]any `yaml:"options"`
}
