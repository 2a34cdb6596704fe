// Package scorer defines the pronunciation scoring provider contract.
//
// A scorer receives a recorded attempt — a WAV clip plus the text the reader
// was supposed to say — and returns what the reader actually said and how
// close it came. Implementations range from local speech-to-text models to
// remote black-box APIs; the session layer treats them uniformly.
package scorer

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the scoring backend cannot be reached or
// refuses the request. Attempts failing with it leave session counters
// untouched.
var ErrUnavailable = errors.New("scorer unavailable")

// Request carries one pronunciation attempt.
type Request struct {
	// Audio is a mono 16 kHz 16-bit WAV clip of the attempt.
	Audio []byte
	// ExpectedText is the sentence the reader was asked to say.
	ExpectedText string
}

// Result is the scored outcome of an attempt.
type Result struct {
	// SpokenText is the backend's transcription of the attempt.
	SpokenText string
	// Score is the pronunciation similarity in [0, 1].
	Score float64
}

// Provider scores recorded pronunciation attempts.
type Provider interface {
	// Score transcribes and rates one attempt. It blocks until the backend
	// responds or ctx is done.
	Score(ctx context.Context, req Request) (*Result, error)
}
