package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/readalong/internal/scheduler"
	"github.com/MrWong99/readalong/internal/segment"
	"github.com/MrWong99/readalong/internal/session"
	"github.com/MrWong99/readalong/pkg/provider/tts"
	"github.com/MrWong99/readalong/pkg/provider/tts/mock"
)

func pageSentences() []segment.Sentence {
	return []segment.Sentence{
		{Text: "Chapter 1", IsMetadata: true, SourceFragmentIndices: []int{0}},
		{Text: "The cat sat.", SourceFragmentIndices: []int{1}},
		{Text: "It was happy!", SourceFragmentIndices: []int{2}},
	}
}

// waitFor polls cond until it holds or the deadline expires. Completion
// handling runs in a scheduler-owned goroutine, so state transitions are
// observed asynchronously.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestStartSkipsLeadingMetadata(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := s.State(); got != scheduler.StateSpeaking {
		t.Errorf("State = %q, want speaking", got)
	}
	if len(p.SpeakCalls) != 1 {
		t.Fatalf("Speak called %d times, want 1", len(p.SpeakCalls))
	}
	if got := p.SpeakCalls[0].Req.Text; got != "The cat sat." {
		t.Errorf("first spoken text = %q, want first non-metadata sentence", got)
	}
	if got := sess.Cursor().ActiveSentenceIndex; got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}
	if !sess.Cursor().IsPlaying {
		t.Error("cursor playing flag not set")
	}
}

func TestCompletionAdvancesAndFinalSentenceStops(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p.LastUtterance().Complete(nil)
	waitFor(t, func() bool { return len(p.Utterances()) == 2 })

	if got := p.SpeakCalls[1].Req.Text; got != "It was happy!" {
		t.Errorf("second spoken text = %q, want the next sentence", got)
	}
	if got := sess.Cursor().ActiveSentenceIndex; got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}

	p.LastUtterance().Complete(nil)
	waitFor(t, func() bool { return s.State() == scheduler.StateStopped })

	if sess.Cursor().IsPlaying {
		t.Error("playing flag still set after last sentence")
	}
}

func TestStartEmptyPage(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	s := scheduler.New(p, session.New(nil))

	if err := s.Start(context.Background()); !errors.Is(err, scheduler.ErrNoSentences) {
		t.Errorf("Start error = %v, want ErrNoSentences", err)
	}
	if got := s.State(); got != scheduler.StateIdle {
		t.Errorf("State = %q, want idle", got)
	}
}

func TestStartMetadataOnlyPageStopsWithoutSpeaking(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New([]segment.Sentence{
		{Text: "Title", IsMetadata: true, SourceFragmentIndices: []int{0}},
		{Text: "Page 3", IsMetadata: true, SourceFragmentIndices: []int{1}},
	})
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.State(); got != scheduler.StateStopped {
		t.Errorf("State = %q, want stopped", got)
	}
	if len(p.SpeakCalls) != 0 {
		t.Errorf("Speak called %d times for metadata-only page, want 0", len(p.SpeakCalls))
	}
}

func TestStopCancelsInFlightUtterance(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	utt := p.LastUtterance()

	s.Stop()

	if got := s.State(); got != scheduler.StateStopped {
		t.Errorf("State = %q, want stopped", got)
	}
	if !utt.Cancelled() {
		t.Error("in-flight utterance not cancelled")
	}
	if sess.Cursor().IsPlaying {
		t.Error("playing flag still set after stop")
	}
	// Cancellation is total: the completion can no longer be delivered.
	if utt.Complete(nil) {
		t.Error("cancelled utterance accepted a completion")
	}
}

func TestCancelledCompletionNeverAdvances(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := p.LastUtterance()
	s.Stop()

	// Restart issues a fresh utterance with a new generation.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if first.Complete(nil) {
		t.Error("stale utterance accepted a completion after restart")
	}
	if got := len(p.Utterances()); got != 2 {
		t.Errorf("utterances issued = %d, want 2", got)
	}
	if got := sess.Cursor().ActiveSentenceIndex; got != 1 {
		t.Errorf("cursor = %d, want 1 (stale completion must not advance)", got)
	}
}

func TestSynthesisCallErrorStops(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{SpeakErr: errors.New("engine offline")}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.State(); got != scheduler.StateStopped {
		t.Errorf("State = %q, want stopped after synthesis failure", got)
	}
}

func TestUtteranceErrorStopsWithoutRetry(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.LastUtterance().Complete(errors.New("voice crashed"))

	waitFor(t, func() bool { return s.State() == scheduler.StateStopped })
	if got := len(p.SpeakCalls); got != 1 {
		t.Errorf("Speak called %d times, want 1 (no retry)", got)
	}
}

func TestJumpToWhileSpeakingRestartsThere(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := p.LastUtterance()

	if err := s.JumpTo(context.Background(), 2); err != nil {
		t.Fatalf("JumpTo: %v", err)
	}
	if !first.Cancelled() {
		t.Error("previous utterance not cancelled before new start")
	}
	if got := p.SpeakCalls[len(p.SpeakCalls)-1].Req.Text; got != "It was happy!" {
		t.Errorf("spoken text after jump = %q, want target sentence", got)
	}
	if got := sess.Cursor().ActiveSentenceIndex; got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
}

func TestJumpToWhileStoppedMovesCursorOnly(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.JumpTo(context.Background(), 2); err != nil {
		t.Fatalf("JumpTo: %v", err)
	}
	if len(p.SpeakCalls) != 0 {
		t.Errorf("Speak called %d times while not playing, want 0", len(p.SpeakCalls))
	}
	if got := sess.Cursor().ActiveSentenceIndex; got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
}

func TestReadingSpeedSetsRate(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess, scheduler.WithReadingSpeed(180))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := p.SpeakCalls[0].Req.Rate; got != 1.5 {
		t.Errorf("Rate = %v, want 1.5 (180/120)", got)
	}
}

func TestReadMissedWords(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	sess := session.New(pageSentences())
	s := scheduler.New(p, sess)

	if err := s.ReadMissedWords(context.Background(), []string{"cat", "sat"}); err != nil {
		t.Fatalf("ReadMissedWords: %v", err)
	}

	if got := p.SpeakCalls[0].Req.Text; got != "cat, sat" {
		t.Errorf("read-back text = %q, want %q", got, "cat, sat")
	}
	if got := p.SpeakCalls[0].Req.Rate; got != 0.75 {
		t.Errorf("read-back rate = %v, want 0.75", got)
	}

	p.LastUtterance().Complete(nil)
	waitFor(t, func() bool { return s.State() == scheduler.StateStopped })
}

func TestReadMissedWordsEmptyListIsNoop(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	s := scheduler.New(p, session.New(pageSentences()))

	if err := s.ReadMissedWords(context.Background(), nil); err != nil {
		t.Fatalf("ReadMissedWords: %v", err)
	}
	if len(p.SpeakCalls) != 0 {
		t.Errorf("Speak called %d times for empty word list, want 0", len(p.SpeakCalls))
	}
}

var _ tts.Provider = (*mock.Provider)(nil)
