// Package scheduler drives sentence-by-sentence read-aloud playback. It is a
// small state machine over the session's sentence list: Idle before the first
// start, Speaking while an utterance is in flight, Stopped after the end of
// the page, a stop request, or a synthesis error.
//
// At most one utterance is ever in flight. Every new synthesis cancels the
// previous one first, and each start is tagged with a generation number so a
// completion arriving from a cancelled utterance is discarded instead of
// advancing the cursor.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/readalong/internal/observe"
	"github.com/MrWong99/readalong/internal/session"
	"github.com/MrWong99/readalong/pkg/provider/tts"
)

// ErrNoSentences is returned by Start when the current page produced no
// sentences at all.
var ErrNoSentences = errors.New("no sentences to read")

// State is the scheduler's playback state.
type State string

const (
	// StateIdle means playback has not started for this page.
	StateIdle State = "idle"
	// StateSpeaking means an utterance is in flight.
	StateSpeaking State = "speaking"
	// StateStopped means playback ended, was stopped, or failed.
	StateStopped State = "stopped"
)

// baselineWPM is the nominal reading speed at which the synthesis rate is 1.
const baselineWPM = 120

// readBackFactor slows the corrective read-back relative to normal playback.
const readBackFactor = 0.75

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReadingSpeed sets the reading speed in words per minute. The synthesis
// rate is speed/120. Default 120 (rate 1.0).
func WithReadingSpeed(wpm float64) Option {
	return func(s *Scheduler) {
		if wpm > 0 {
			s.speedWPM = wpm
		}
	}
}

// WithVoice selects the voice used for every utterance.
func WithVoice(v tts.VoiceProfile) Option {
	return func(s *Scheduler) {
		s.voice = v
	}
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler sequences read-aloud playback over one session. Safe for
// concurrent use.
type Scheduler struct {
	provider tts.Provider
	sess     *session.Session
	speedWPM float64
	voice    tts.VoiceProfile
	metrics  *observe.Metrics

	mu         sync.Mutex
	state      State
	ctx        context.Context
	generation uint64
	current    tts.Utterance
	// abort releases the watcher of the current utterance when it is
	// cancelled, since a cancelled utterance never delivers on Done.
	abort chan struct{}
}

// New creates a Scheduler reading the given session's sentences through the
// given TTS provider.
func New(provider tts.Provider, sess *session.Session, opts ...Option) *Scheduler {
	s := &Scheduler{
		provider: provider,
		sess:     sess,
		speedWPM: baselineWPM,
		state:    StateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins playback at the session cursor. Metadata sentences are
// skipped without being synthesized; if the page holds no sentences at all,
// ErrNoSentences is returned and the state stays unchanged. Starting while
// already speaking restarts from the cursor.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.Count() == 0 {
		return ErrNoSentences
	}
	s.ctx = ctx
	s.speakLocked(s.sess.Cursor().ActiveSentenceIndex)
	return nil
}

// JumpTo moves playback to sentence i. When currently speaking, the in-flight
// utterance is cancelled and playback restarts at i; otherwise only the
// cursor moves.
func (s *Scheduler) JumpTo(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSpeaking {
		return s.sess.JumpTo(i)
	}
	if err := s.sess.JumpTo(i); err != nil {
		return err
	}
	s.ctx = ctx
	s.speakLocked(i)
	return nil
}

// Stop cancels any in-flight utterance and transitions to Stopped. It is
// synchronous and total: after Stop returns, no completion callback from the
// cancelled utterance will ever run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCurrentLocked()
	s.state = StateStopped
	s.sess.SetPlaying(false)
}

// ReadMissedWords speaks the given words as a corrective read-back at a
// reduced rate. It occupies the same single-utterance slot as regular
// playback: any in-flight sentence is cancelled first, and the scheduler is
// Stopped once the read-back completes.
func (s *Scheduler) ReadMissedWords(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelCurrentLocked()
	s.generation++
	gen := s.generation

	utt, err := s.provider.Speak(ctx, tts.SpeakRequest{
		Text:  strings.Join(words, ", "),
		Rate:  s.rate() * readBackFactor,
		Voice: s.voice,
	})
	if err != nil {
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return err
	}

	s.current = utt
	s.abort = make(chan struct{})
	s.state = StateSpeaking
	s.sess.SetPlaying(true)
	go s.watch(gen, utt, s.abort, -1, time.Now())
	return nil
}

// speakLocked cancels the current utterance and synthesizes sentence i,
// auto-skipping a run of metadata sentences. Caller holds s.mu.
func (s *Scheduler) speakLocked(i int) {
	s.cancelCurrentLocked()
	s.generation++
	gen := s.generation

	// Auto-skip chain: metadata is never read aloud.
	count := s.sess.Count()
	for i < count {
		sen, err := s.sess.Sentence(i)
		if err != nil || !sen.IsMetadata {
			break
		}
		i++
	}
	if i >= count {
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return
	}

	sen, err := s.sess.Sentence(i)
	if err != nil {
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return
	}
	_ = s.sess.JumpTo(i)

	utt, err := s.provider.Speak(s.ctx, tts.SpeakRequest{
		Text:  sen.Text,
		Rate:  s.rate(),
		Voice: s.voice,
	})
	if err != nil {
		slog.Error("sentence synthesis failed", "sentence", i, "error", err)
		s.metrics.RecordProviderError(context.Background(), s.voice.Provider, "tts")
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return
	}

	s.current = utt
	s.abort = make(chan struct{})
	s.state = StateSpeaking
	s.sess.SetPlaying(true)
	go s.watch(gen, utt, s.abort, i, time.Now())
}

// watch waits for one utterance to finish and drives the resulting state
// transition. A sentence index of -1 marks a read-back, which never advances
// the cursor.
func (s *Scheduler) watch(gen uint64, utt tts.Utterance, abort <-chan struct{}, i int, started time.Time) {
	var err error
	select {
	case err = <-utt.Done():
	case <-abort:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer start superseded this utterance between delivery and lock
	// acquisition.
	if gen != s.generation || s.state != StateSpeaking {
		return
	}
	s.current = nil
	s.abort = nil

	if err != nil {
		slog.Error("utterance ended with error", "sentence", i, "error", err)
		s.metrics.RecordProviderError(context.Background(), s.voice.Provider, "tts")
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return
	}

	s.metrics.TTSDuration.Record(context.Background(), time.Since(started).Seconds())
	if i < 0 {
		// Read-back finished.
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return
	}
	s.metrics.RecordSentenceSpoken(context.Background())

	if i+1 >= s.sess.Count() {
		s.state = StateStopped
		s.sess.SetPlaying(false)
		return
	}
	s.speakLocked(i + 1)
}

// cancelCurrentLocked cancels the in-flight utterance, if any, and releases
// its watcher. Caller holds s.mu.
func (s *Scheduler) cancelCurrentLocked() {
	if s.current == nil {
		return
	}
	s.current.Cancel()
	close(s.abort)
	s.current = nil
	s.abort = nil
}

func (s *Scheduler) rate() float64 {
	return s.speedWPM / baselineWPM
}
