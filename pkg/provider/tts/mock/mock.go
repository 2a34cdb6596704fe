// Package mock provides a test double for the tts.Provider interface.
//
// By default every Speak call returns an [Utterance] that stays pending until
// the test completes it explicitly, which is what scheduler tests need to
// exercise the in-flight states:
//
//	p := &mock.Provider{}
//	utt, _ := p.Speak(ctx, req)
//	p.LastUtterance().Complete(nil) // drive the completion callback
//
// Set AutoComplete to finish every utterance immediately with CompleteErr.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/readalong/pkg/provider/tts"
)

// SpeakCall records a single invocation of Speak.
type SpeakCall struct {
	// Ctx is the context passed to Speak.
	Ctx context.Context
	// Req is the request passed to Speak.
	Req tts.SpeakRequest
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SpeakErr, if non-nil, is returned from Speak instead of an utterance.
	SpeakErr error

	// AutoComplete, when true, completes every utterance synchronously inside
	// Speak with CompleteErr as the result.
	AutoComplete bool

	// CompleteErr is the result delivered when AutoComplete fires.
	CompleteErr error

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []tts.VoiceProfile

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// --- Call records ---

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall

	utterances []*Utterance
}

// Utterance is the mock utterance handle handed out by [Provider.Speak].
// Tests drive it via Complete.
type Utterance struct {
	mu        sync.Mutex
	done      chan error
	finished  bool
	cancelled bool
}

// Done returns the completion channel.
func (u *Utterance) Done() <-chan error { return u.done }

// Cancel marks the utterance cancelled. Done will never deliver afterwards.
func (u *Utterance) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished {
		return
	}
	u.cancelled = true
}

// Complete delivers err on Done. Returns false when the utterance was already
// completed or cancelled (in which case nothing is delivered).
func (u *Utterance) Complete(err error) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished || u.cancelled {
		return false
	}
	u.finished = true
	u.done <- err
	return true
}

// Cancelled reports whether Cancel was called before completion.
func (u *Utterance) Cancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}

// Speak records the call and returns a fresh [Utterance].
func (p *Provider) Speak(ctx context.Context, req tts.SpeakRequest) (tts.Utterance, error) {
	p.mu.Lock()
	p.SpeakCalls = append(p.SpeakCalls, SpeakCall{Ctx: ctx, Req: req})
	if p.SpeakErr != nil {
		err := p.SpeakErr
		p.mu.Unlock()
		return nil, err
	}
	u := &Utterance{done: make(chan error, 1)}
	p.utterances = append(p.utterances, u)
	auto := p.AutoComplete
	completeErr := p.CompleteErr
	p.mu.Unlock()

	if auto {
		u.Complete(completeErr)
	}
	return u, nil
}

// ListVoices returns ListVoicesResult, ListVoicesErr.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ListVoicesResult, p.ListVoicesErr
}

// LastUtterance returns the most recently issued utterance, or nil when none.
func (p *Provider) LastUtterance() *Utterance {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.utterances) == 0 {
		return nil
	}
	return p.utterances[len(p.utterances)-1]
}

// Utterances returns all issued utterances in order.
func (p *Provider) Utterances() []*Utterance {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Utterance, len(p.utterances))
	copy(out, p.utterances)
	return out
}

// Reset clears all recorded calls and utterances. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SpeakCalls = nil
	p.utterances = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
