package session_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/readalong/internal/segment"
	"github.com/MrWong99/readalong/internal/session"
)

func threeSentences() []segment.Sentence {
	return []segment.Sentence{
		{Text: "Chapter 1", IsMetadata: true, SourceFragmentIndices: []int{0}},
		{Text: "The cat sat.", SourceFragmentIndices: []int{1}},
		{Text: "It was happy!", SourceFragmentIndices: []int{2}},
	}
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	s := session.New(threeSentences())

	if got := s.Cursor().ActiveSentenceIndex; got != 0 {
		t.Fatalf("initial index = %d, want 0", got)
	}

	idx, err := s.Next()
	if err != nil || idx != 1 {
		t.Errorf("Next = (%d, %v), want (1, nil)", idx, err)
	}
	idx, err = s.Next()
	if err != nil || idx != 2 {
		t.Errorf("Next = (%d, %v), want (2, nil)", idx, err)
	}

	// Past the end: cursor stays, error returned.
	idx, err = s.Next()
	if !errors.Is(err, session.ErrIndexOutOfRange) {
		t.Errorf("Next past end error = %v, want ErrIndexOutOfRange", err)
	}
	if idx != 2 {
		t.Errorf("Next past end index = %d, want 2", idx)
	}

	idx, err = s.Previous()
	if err != nil || idx != 1 {
		t.Errorf("Previous = (%d, %v), want (1, nil)", idx, err)
	}

	if err := s.JumpTo(0); err != nil {
		t.Errorf("JumpTo(0) = %v", err)
	}
	if _, err := s.Previous(); !errors.Is(err, session.ErrIndexOutOfRange) {
		t.Errorf("Previous before start error = %v, want ErrIndexOutOfRange", err)
	}
	if err := s.JumpTo(7); !errors.Is(err, session.ErrIndexOutOfRange) {
		t.Errorf("JumpTo(7) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSetSentencesResetsCursorKeepsCounters(t *testing.T) {
	t.Parallel()

	s := session.New(threeSentences())
	if _, err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	s.RecordAttempt(true)

	if err := s.SetSentences([]segment.Sentence{{Text: "New page.", SourceFragmentIndices: []int{0}}}); err != nil {
		t.Fatalf("SetSentences: %v", err)
	}

	if got := s.Cursor().ActiveSentenceIndex; got != 0 {
		t.Errorf("index after page change = %d, want 0", got)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
	if correct, total := s.Counters(); correct != 1 || total != 1 {
		t.Errorf("Counters = (%d, %d), want (1, 1)", correct, total)
	}
}

func TestRecordAttemptAndAccuracy(t *testing.T) {
	t.Parallel()

	s := session.New(threeSentences())
	if got := s.Accuracy(); got != 0 {
		t.Errorf("Accuracy before attempts = %v, want 0", got)
	}

	s.RecordAttempt(true)
	s.RecordAttempt(false)
	s.RecordAttempt(true)
	s.RecordAttempt(true)

	if correct, total := s.Counters(); correct != 3 || total != 4 {
		t.Errorf("Counters = (%d, %d), want (3, 4)", correct, total)
	}
	if got := s.Accuracy(); got != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", got)
	}
}

func TestSentenceLookup(t *testing.T) {
	t.Parallel()

	s := session.New(threeSentences())
	sen, err := s.Sentence(1)
	if err != nil {
		t.Fatalf("Sentence(1): %v", err)
	}
	if sen.Text != "The cat sat." {
		t.Errorf("Sentence(1).Text = %q", sen.Text)
	}
	if _, err := s.Sentence(9); !errors.Is(err, session.ErrIndexOutOfRange) {
		t.Errorf("Sentence(9) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestCloseRejectsMutationsKeepsReads(t *testing.T) {
	t.Parallel()

	s := session.New(threeSentences())
	s.SetPlaying(true)
	s.RecordAttempt(true)
	s.Close()

	if s.Cursor().IsPlaying {
		t.Error("close did not clear IsPlaying")
	}
	if _, err := s.Next(); !errors.Is(err, session.ErrClosed) {
		t.Errorf("Next after close error = %v, want ErrClosed", err)
	}
	if err := s.SetSentences(nil); !errors.Is(err, session.ErrClosed) {
		t.Errorf("SetSentences after close error = %v, want ErrClosed", err)
	}
	s.RecordAttempt(true)
	if correct, total := s.Counters(); correct != 1 || total != 1 {
		t.Errorf("Counters after close = (%d, %d), want (1, 1)", correct, total)
	}
	if got := s.Accuracy(); got != 1 {
		t.Errorf("Accuracy after close = %v, want 1", got)
	}
}
