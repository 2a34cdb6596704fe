package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"tts":    {"openai", "mock"},
	"scorer": {"httpapi", "whisper", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Reading
	if cfg.Reading.SpeedWPM != 0 {
		if cfg.Reading.SpeedWPM < 60 || cfg.Reading.SpeedWPM > 300 {
			errs = append(errs, fmt.Errorf("reading.speed_wpm %.0f is out of range [60, 300]", cfg.Reading.SpeedWPM))
		}
	}
	if cfg.Reading.AlignmentPolicy != "" && !cfg.Reading.AlignmentPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("reading.alignment_policy %q is invalid; valid values: positional, set-membership", cfg.Reading.AlignmentPolicy))
	}
	if cfg.Reading.MinSentenceRunes < 0 {
		errs = append(errs, fmt.Errorf("reading.min_sentence_runes %d must not be negative", cfg.Reading.MinSentenceRunes))
	}
	if cfg.Reading.SettleDelayMs < 0 {
		errs = append(errs, fmt.Errorf("reading.settle_delay_ms %d must not be negative", cfg.Reading.SettleDelayMs))
	}

	// Capture
	if cfg.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must not be negative", cfg.Capture.SampleRate))
	}
	if cfg.Capture.Channels < 0 || cfg.Capture.Channels > 2 {
		errs = append(errs, fmt.Errorf("capture.channels %d is out of range [0, 2]", cfg.Capture.Channels))
	}

	// Provider name validation, warns for unknown provider names.
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("scorer", cfg.Providers.Scorer.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)
	validateProviderName("scorer", cfg.Providers.ScorerFallback.Name)

	// Provider requirements apply to primaries and fallbacks alike.
	errs = append(errs, validateTTSEntry("providers.tts", cfg.Providers.TTS)...)
	errs = append(errs, validateTTSEntry("providers.tts_fallback", cfg.Providers.TTSFallback)...)
	errs = append(errs, validateScorerEntry("providers.scorer", cfg.Providers.Scorer)...)
	errs = append(errs, validateScorerEntry("providers.scorer_fallback", cfg.Providers.ScorerFallback)...)

	// A fallback without a primary cannot be wired.
	if cfg.Providers.TTSFallback.Name != "" && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts_fallback requires providers.tts to be set"))
	}
	if cfg.Providers.ScorerFallback.Name != "" && cfg.Providers.Scorer.Name == "" {
		errs = append(errs, errors.New("providers.scorer_fallback requires providers.scorer to be set"))
	}

	// Availability warnings.
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; read-aloud playback will not be available")
	}
	if cfg.Providers.Scorer.Name == "" {
		slog.Warn("no scorer provider configured; pronunciation practice will not be available")
	}

	return errors.Join(errs...)
}

// validateTTSEntry checks the per-provider requirements of one TTS entry.
// path is the YAML path used in error messages.
func validateTTSEntry(path string, entry ProviderEntry) []error {
	var errs []error
	if entry.Name == "openai" && entry.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api_key is required for the openai provider", path))
	}
	return errs
}

// validateScorerEntry checks the per-provider requirements of one scorer entry.
func validateScorerEntry(path string, entry ProviderEntry) []error {
	var errs []error
	if entry.Name == "httpapi" && entry.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s.base_url is required for the httpapi provider", path))
	}
	if entry.Name == "whisper" && entry.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model (model file path) is required for the whisper provider", path))
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
