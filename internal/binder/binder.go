// Package binder associates segmented sentences with the visual elements
// rendering them, so the UI can highlight the active sentence and react to
// taps. The binding table is a non-owning index lookup rebuilt wholesale on
// every page change: elements stay owned by the renderer and may be destroyed
// and recreated on re-render at any time.
package binder

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/readalong/internal/segment"
)

// MarkerClass is the highlight-capable marker attached to every bound
// element.
const MarkerClass = "readalong-sentence"

// defaultSettleDelay gives the renderer time to finish producing visual
// elements before binding runs. Rendering is asynchronous relative to
// segmentation and offers no completion signal.
const defaultSettleDelay = 300 * time.Millisecond

// Element is one visual element produced by the renderer, in the same order
// as the page's positioned fragments.
type Element interface {
	// ID identifies the element for logging and tests.
	ID() string
	// SetMarker attaches a marker class to the element.
	SetMarker(marker string)
	// OnTap registers fn to run when the user taps the element. A nil fn
	// clears the handler.
	OnTap(fn func())
}

// Option configures a Binder.
type Option func(*Binder)

// WithSettleDelay overrides the render settle delay. Tests pass 0.
func WithSettleDelay(d time.Duration) Option {
	return func(b *Binder) {
		b.settle = d
	}
}

// WithTapHandler sets the callback invoked with the sentence index when a
// bound non-metadata element is tapped.
func WithTapHandler(fn func(sentenceIndex int)) Option {
	return func(b *Binder) {
		b.onTap = fn
	}
}

// Binder builds and owns the sentence-to-element table for one page at a
// time. Safe for concurrent use.
type Binder struct {
	settle time.Duration
	onTap  func(int)

	mu    sync.Mutex
	table [][]Element
}

// New creates a Binder.
func New(opts ...Option) *Binder {
	b := &Binder{settle: defaultSettleDelay}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Bind waits out the settle delay, then maps every sentence's source
// fragment indices to the element at that position in render order. All
// mapped elements receive the marker class; non-metadata sentences
// additionally get a tap handler. Any previous table is discarded first, so
// rebinding on page change never accumulates stale associations.
//
// elements must be in fragment render order; indices outside its range are
// skipped (the renderer dropped those fragments).
func (b *Binder) Bind(ctx context.Context, sentences []segment.Sentence, elements []Element) error {
	if b.settle > 0 {
		timer := time.NewTimer(b.settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	table := make([][]Element, len(sentences))
	for si, sen := range sentences {
		for _, fi := range sen.SourceFragmentIndices {
			if fi < 0 || fi >= len(elements) {
				continue
			}
			el := elements[fi]
			table[si] = append(table[si], el)

			el.SetMarker(MarkerClass)
			if sen.IsMetadata {
				continue
			}
			idx := si
			el.OnTap(func() {
				if b.onTap != nil {
					b.onTap(idx)
				}
			})
		}
	}

	b.mu.Lock()
	b.table = table
	b.mu.Unlock()
	return nil
}

// Lookup returns the elements bound to sentence i, or nil when the sentence
// has none (or does not exist).
func (b *Binder) Lookup(i int) []Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.table) {
		return nil
	}
	out := make([]Element, len(b.table[i]))
	copy(out, b.table[i])
	return out
}

// Count returns the number of sentences in the current table.
func (b *Binder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.table)
}
