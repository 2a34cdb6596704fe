// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis engine (e.g., the OpenAI speech
// API, or a local Piper instance) and presents a uniform single-utterance
// interface. The primary entry point is Speak, which synthesizes exactly one
// utterance and returns an [Utterance] handle carrying the completion signal
// and a cancellation hook.
//
// The read-aloud scheduler relies on two contract points:
//
//   - Done delivers at most one value: nil on successful completion, a
//     non-nil error on synthesis failure. The channel is buffered, so the
//     provider never blocks on an absent reader.
//   - Cancel is synchronous and total. After Cancel returns, Done never
//     delivers — a cancelled utterance produces no dangling completion.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrSynthesis is wrapped by backend errors delivered on [Utterance.Done]
// when the engine fails mid-utterance.
var ErrSynthesis = errors.New("tts: synthesis failed")

// VoiceProfile identifies a synthesis voice.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS backend this voice belongs to.
	Provider string
}

// SpeakRequest describes one utterance.
type SpeakRequest struct {
	// Text is the sentence to synthesize.
	Text string

	// Rate is the speaking-rate multiplier; 1.0 is the engine's nominal rate.
	Rate float64

	// Voice selects the synthesis voice. A zero value lets the backend pick
	// its default voice.
	Voice VoiceProfile
}

// Utterance is a handle to one in-flight synthesis.
type Utterance interface {
	// Done returns a buffered channel delivering the completion result: nil
	// for success, non-nil (wrapping [ErrSynthesis]) for failure. It never
	// delivers after Cancel has returned.
	Done() <-chan error

	// Cancel aborts the utterance. Idempotent; a no-op once the utterance
	// has completed.
	Cancel()
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Speak starts synthesizing one utterance. Returns a non-nil error only
	// if synthesis cannot be started; errors during synthesis are delivered
	// on the returned utterance's Done channel.
	Speak(ctx context.Context, req SpeakRequest) (Utterance, error)

	// ListVoices returns the voice profiles available from this backend.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
