// Package openai provides a TTS provider backed by the OpenAI speech API.
// It implements the tts.Provider interface.
//
// The speech endpoint is a batch API: one HTTP call per utterance, streaming
// raw 24 kHz mono 16-bit PCM in the response body. Synthesized audio is
// handed to a [Sink] — the playback surface is owned by the caller, not the
// provider — and the utterance completes once the sink has consumed the full
// response.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/readalong/pkg/provider/tts"
)

// DefaultModel is the default OpenAI speech model.
const DefaultModel = oai.SpeechModelTTS1

// DefaultVoice is used when the request carries no voice profile.
const DefaultVoice = "alloy"

// The OpenAI speech endpoint clamps speed to this range.
const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

// pcmChunkSize is the read size used when draining the response body into
// the sink.
const pcmChunkSize = 4096

// Sink consumes synthesized PCM as it arrives. Write is called repeatedly
// with 24 kHz mono 16-bit chunks; implementations forward them to whatever
// plays audio for the client.
type Sink interface {
	Write(ctx context.Context, pcm []byte) error
}

// discardSink drops all audio. Used when no sink is configured (e.g., in
// synthesis-latency tests).
type discardSink struct{}

func (discardSink) Write(context.Context, []byte) error { return nil }

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the speech model (e.g., "tts-1", "tts-1-hd").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithSink sets the audio sink receiving synthesized PCM.
func WithSink(s Sink) Option {
	return func(p *Provider) {
		p.sink = s
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// Provider implements tts.Provider using the OpenAI speech API.
type Provider struct {
	client  oai.Client
	model   string
	sink    Sink
	baseURL string
	timeout time.Duration
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a new OpenAI TTS Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai tts: apiKey must not be empty")
	}
	p := &Provider{
		model: DefaultModel,
		sink:  discardSink{},
	}
	for _, o := range opts {
		o(p)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	if p.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: p.timeout}))
	}
	p.client = oai.NewClient(reqOpts...)
	return p, nil
}

// Speak synthesizes one utterance. The HTTP call and sink delivery run in a
// background goroutine; completion (or failure) is delivered on the returned
// utterance's Done channel unless the utterance is cancelled first.
func (p *Provider) Speak(ctx context.Context, req tts.SpeakRequest) (tts.Utterance, error) {
	if req.Text == "" {
		return nil, errors.New("openai tts: text must not be empty")
	}

	voice := req.Voice.ID
	if voice == "" {
		voice = DefaultVoice
	}
	speed := req.Rate
	if speed <= 0 {
		speed = 1.0
	}
	if speed < minSpeed {
		speed = minSpeed
	} else if speed > maxSpeed {
		speed = maxSpeed
	}

	runCtx, cancel := context.WithCancel(ctx)
	u := &utterance{
		cancel: cancel,
		done:   make(chan error, 1),
	}

	go func() {
		u.finish(p.synthesize(runCtx, req.Text, voice, speed))
	}()

	return u, nil
}

// synthesize performs the HTTP call and streams the PCM body into the sink.
func (p *Provider) synthesize(ctx context.Context, text, voice string, speed float64) error {
	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
		Speed:          oai.Float(speed),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", tts.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	buf := make([]byte, pcmChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if werr := p.sink.Write(ctx, chunk); werr != nil {
				return fmt.Errorf("%w: sink: %v", tts.ErrSynthesis, werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", tts.ErrSynthesis, err)
		}
	}
}

// ListVoices returns the fixed OpenAI voice catalogue.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	names := []string{"alloy", "ash", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer"}
	voices := make([]tts.VoiceProfile, 0, len(names))
	for _, n := range names {
		voices = append(voices, tts.VoiceProfile{ID: n, Name: n, Provider: "openai"})
	}
	return voices, nil
}

// utterance is the in-flight synthesis handle.
type utterance struct {
	cancel context.CancelFunc
	done   chan error

	mu        sync.Mutex
	finished  bool
	cancelled bool
}

// finish delivers the completion result unless the utterance was cancelled.
func (u *utterance) finish(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished || u.cancelled {
		return
	}
	u.finished = true
	u.done <- err
}

// Done returns the completion channel.
func (u *utterance) Done() <-chan error { return u.done }

// Cancel aborts the HTTP call. After Cancel returns, Done never delivers.
func (u *utterance) Cancel() {
	u.mu.Lock()
	if u.finished || u.cancelled {
		u.mu.Unlock()
		return
	}
	u.cancelled = true
	u.mu.Unlock()
	u.cancel()
}
