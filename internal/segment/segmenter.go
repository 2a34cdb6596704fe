// Package segment groups classified page fragments into ordered sentence
// records. Metadata fragments (headings, markers, headers/footers) become
// single-fragment metadata sentences and are never merged with prose; body
// fragments accumulate and are split at sentence-terminal punctuation.
package segment

import (
	"regexp"
	"strings"

	"github.com/MrWong99/readalong/internal/layout"
)

// Sentence is one segmented reading unit. Replaced wholesale on page change.
type Sentence struct {
	// Text is the sentence text, space-joined from its source fragments.
	Text string
	// IsMetadata marks layout noise that must never be read aloud or scored.
	IsMetadata bool
	// SourceFragmentIndices are the renderer sequence indices this sentence
	// was built from, strictly increasing and disjoint across sentences.
	SourceFragmentIndices []int
}

// sentenceRe splits accumulated text into the longest runs of non-terminal
// characters ending in terminal punctuation, with a trailing terminator-less
// remainder kept as its own piece.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithMinSentenceRunes drops body sentences shorter than n runes — layout
// dust like stray single characters between columns. Metadata sentences are
// never dropped. Default 0 (keep everything).
func WithMinSentenceRunes(n int) Option {
	return func(s *Segmenter) {
		s.minRunes = n
	}
}

// Segmenter turns one page's classified fragments into sentences. The zero
// value is not usable; construct with New. Segment is pure, so a Segmenter
// may be shared across goroutines.
type Segmenter struct {
	minRunes int
}

// New creates a Segmenter with the given options.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{}
	for _, o := range opts {
		o(s)
	}
	return s
}

// accumulated is one body fragment held in the accumulator.
type accumulated struct {
	text  string
	index int
}

// Segment produces the page's sentences in fragment order. Running it twice
// on the same input yields identical output.
func (s *Segmenter) Segment(classified []layout.Classified) []Sentence {
	var out []Sentence
	var acc []accumulated

	flush := func() {
		out = append(out, s.split(acc)...)
		acc = acc[:0]
	}

	for _, c := range classified {
		text := strings.TrimSpace(c.Fragment.Text)
		if text == "" {
			continue
		}

		if c.Metadata() {
			flush()
			out = append(out, Sentence{
				Text:                  text,
				IsMetadata:            true,
				SourceFragmentIndices: []int{c.Fragment.SequenceIndex},
			})
			continue
		}

		acc = append(acc, accumulated{text: text, index: c.Fragment.SequenceIndex})
		if strings.ContainsAny(text, ".!?") {
			flush()
		}
	}
	flush()

	return out
}

// split breaks the accumulator's space-joined text at terminal punctuation
// and attributes each fragment index to the piece(s) its character range
// overlaps. When terminators fall at fragment boundaries (the regular case)
// every fragment lands in exactly one sentence.
func (s *Segmenter) split(acc []accumulated) []Sentence {
	if len(acc) == 0 {
		return nil
	}

	texts := make([]string, len(acc))
	for i, a := range acc {
		texts[i] = a.text
	}
	joined := strings.Join(texts, " ")

	// Byte range of each fragment inside joined.
	starts := make([]int, len(acc))
	ends := make([]int, len(acc))
	off := 0
	for i, a := range acc {
		starts[i] = off
		off += len(a.text)
		ends[i] = off
		off++ // joining space
	}

	var out []Sentence
	for _, piece := range sentenceRe.FindAllStringIndex(joined, -1) {
		text := strings.TrimSpace(joined[piece[0]:piece[1]])
		if text == "" {
			continue
		}
		if s.minRunes > 0 && len([]rune(text)) < s.minRunes {
			continue
		}

		var indices []int
		for i := range acc {
			if starts[i] < piece[1] && ends[i] > piece[0] {
				indices = append(indices, acc[i].index)
			}
		}
		out = append(out, Sentence{
			Text:                  text,
			SourceFragmentIndices: indices,
		})
	}
	return out
}
