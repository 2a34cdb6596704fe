// Package session holds the mutable state of one reading session: the
// reading cursor, the active sentence list, and practice counters. A Session
// is created when a document is loaded and closed when the reader leaves —
// session state never outlives those boundaries.
package session

import (
	"errors"
	"sync"

	"github.com/MrWong99/readalong/internal/segment"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// ErrIndexOutOfRange is returned by navigation targeting a sentence that
// does not exist.
var ErrIndexOutOfRange = errors.New("sentence index out of range")

// Cursor is the reading position exposed to the UI.
type Cursor struct {
	// ActiveSentenceIndex is the sentence the reader is on.
	ActiveSentenceIndex int
	// IsPlaying reports whether read-aloud playback is running.
	IsPlaying bool
}

// Session is the per-document reading state. Safe for concurrent use; the
// scheduler, the binder's tap handlers, and UI navigation all mutate it.
type Session struct {
	mu sync.Mutex

	sentences []segment.Sentence
	cursor    Cursor
	closed    bool

	correctCount   int
	totalPracticed int
}

// New creates a session for a freshly loaded document. The sentence list may
// be empty until the first page is segmented.
func New(sentences []segment.Sentence) *Session {
	s := &Session{}
	s.sentences = append(s.sentences, sentences...)
	return s
}

// SetSentences replaces the sentence list wholesale on page change and
// resets the cursor to the first sentence. Practice counters carry over: the
// session spans the document, not one page.
func (s *Session) SetSentences(sentences []segment.Sentence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.sentences = append(s.sentences[:0:0], sentences...)
	s.cursor.ActiveSentenceIndex = 0
	return nil
}

// Sentences returns a copy of the current sentence list.
func (s *Session) Sentences() []segment.Sentence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]segment.Sentence, len(s.sentences))
	copy(out, s.sentences)
	return out
}

// Sentence returns the sentence at index i.
func (s *Session) Sentence(i int) (segment.Sentence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return segment.Sentence{}, ErrClosed
	}
	if i < 0 || i >= len(s.sentences) {
		return segment.Sentence{}, ErrIndexOutOfRange
	}
	return s.sentences[i], nil
}

// Count returns the number of sentences on the current page.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sentences)
}

// Cursor returns the current reading cursor.
func (s *Session) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// SetPlaying records whether playback is running.
func (s *Session) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cursor.IsPlaying = playing
}

// Next advances the cursor to the following sentence and returns the new
// index. At the last sentence the cursor stays put and ErrIndexOutOfRange is
// returned.
func (s *Session) Next() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(s.cursor.ActiveSentenceIndex + 1)
}

// Previous moves the cursor back one sentence and returns the new index. At
// the first sentence the cursor stays put and ErrIndexOutOfRange is returned.
func (s *Session) Previous() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(s.cursor.ActiveSentenceIndex - 1)
}

// JumpTo moves the cursor directly to sentence i.
func (s *Session) JumpTo(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.moveLocked(i)
	return err
}

func (s *Session) moveLocked(i int) (int, error) {
	if s.closed {
		return s.cursor.ActiveSentenceIndex, ErrClosed
	}
	if i < 0 || i >= len(s.sentences) {
		return s.cursor.ActiveSentenceIndex, ErrIndexOutOfRange
	}
	s.cursor.ActiveSentenceIndex = i
	return i, nil
}

// RecordAttempt adds one scored practice attempt to the counters. Failed
// scoring calls must not be recorded: only call this with a real verdict.
func (s *Session) RecordAttempt(correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.totalPracticed++
	if correct {
		s.correctCount++
	}
}

// Counters returns the practice totals so far.
func (s *Session) Counters() (correct, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correctCount, s.totalPracticed
}

// Accuracy returns the fraction of practiced sentences judged correct, or 0
// before the first attempt.
func (s *Session) Accuracy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalPracticed == 0 {
		return 0
	}
	return float64(s.correctCount) / float64(s.totalPracticed)
}

// Close ends the session. Further mutations are rejected; reads keep working
// so the UI can render a final summary.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cursor.IsPlaying = false
}
