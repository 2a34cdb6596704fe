// Package whisper provides a local scorer.Provider backed by the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// Scoring is batch: each attempt's WAV clip is decoded, transcribed with a
// fresh whisper context, and the transcription is compared against the
// expected text with Jaro-Winkler similarity over normalized words.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/readalong/pkg/audio"
	"github.com/MrWong99/readalong/pkg/provider/scorer"
)

const defaultLanguage = "en"

// Compile-time assertion that Provider implements scorer.Provider.
var _ scorer.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements scorer.Provider using whisper.cpp Go bindings (CGO).
// The model is loaded once at startup and shared across all Score calls.
type Provider struct {
	model    whisperlib.Model
	language string
}

// New creates a Provider that loads the whisper.cpp model from the given file
// path. The model is loaded once and shared; the caller must call Close when
// the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %q: %v", scorer.ErrUnavailable, modelPath, err)
	}
	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Score transcribes the attempt and rates it against the expected text.
// The audio must be a mono 16 kHz 16-bit WAV clip.
func (p *Provider) Score(ctx context.Context, req scorer.Request) (*scorer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if len(req.Audio) == 0 {
		return nil, errors.New("whisper: audio must not be empty")
	}

	clip, err := audio.DecodeWAV(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("whisper: decode attempt: %w", err)
	}
	samples := audio.Float32FromPCM16(audio.ToCanonical(clip).Data)

	text, err := p.infer(samples)
	if err != nil {
		return nil, err
	}

	return &scorer.Result{
		SpokenText: text,
		Score:      similarity(req.ExpectedText, text),
	}, nil
}

// infer runs whisper.cpp inference on float32 mono samples using a fresh
// context and returns the concatenated segment text. Contexts are not
// thread-safe; the shared model is.
func (p *Provider) infer(samples []float32) (string, error) {
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: create context: %v", scorer.ErrUnavailable, err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", p.language, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: process audio: %v", scorer.ErrUnavailable, err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read segment: %v", scorer.ErrUnavailable, err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// similarity rates how close spoken came to expected, in [0, 1]. Both texts
// are lowercased and stripped of punctuation before a whole-string
// Jaro-Winkler comparison, so "The cat!" against "the cat" scores 1.
func similarity(expected, spoken string) float64 {
	e := normalize(expected)
	s := normalize(spoken)
	if e == "" && s == "" {
		return 1
	}
	if e == "" || s == "" {
		return 0
	}
	return matchr.JaroWinkler(e, s, false)
}

// normalize lowercases and keeps only letters, digits, and single spaces.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
