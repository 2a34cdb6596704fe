package binder_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MrWong99/readalong/internal/binder"
	"github.com/MrWong99/readalong/internal/segment"
)

// fakeElement records marker and tap-handler attachment.
type fakeElement struct {
	id      string
	markers []string
	tap     func()
}

func (f *fakeElement) ID() string              { return f.id }
func (f *fakeElement) SetMarker(marker string) { f.markers = append(f.markers, marker) }
func (f *fakeElement) OnTap(fn func())         { f.tap = fn }

func makeElements(n int) ([]binder.Element, []*fakeElement) {
	fakes := make([]*fakeElement, n)
	els := make([]binder.Element, n)
	for i := range fakes {
		fakes[i] = &fakeElement{id: fmt.Sprintf("el-%d", i)}
		els[i] = fakes[i]
	}
	return els, fakes
}

func chapterSentences() []segment.Sentence {
	return []segment.Sentence{
		{Text: "Chapter 1", IsMetadata: true, SourceFragmentIndices: []int{0}},
		{Text: "The cat sat.", SourceFragmentIndices: []int{1, 2}},
		{Text: "It was happy!", SourceFragmentIndices: []int{3}},
	}
}

func TestBindMapsFragmentIndicesToElements(t *testing.T) {
	t.Parallel()

	els, fakes := makeElements(4)
	b := binder.New(binder.WithSettleDelay(0))

	if err := b.Bind(context.Background(), chapterSentences(), els); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	got := b.Lookup(1)
	if len(got) != 2 || got[0].ID() != "el-1" || got[1].ID() != "el-2" {
		t.Errorf("Lookup(1) = %v, want el-1 and el-2", got)
	}
	for _, f := range fakes {
		if len(f.markers) != 1 || f.markers[0] != binder.MarkerClass {
			t.Errorf("element %s markers = %v, want exactly one %q", f.id, f.markers, binder.MarkerClass)
		}
	}
}

func TestBindTapHandlersOnlyOnBodySentences(t *testing.T) {
	t.Parallel()

	els, fakes := makeElements(4)
	var tapped []int
	b := binder.New(
		binder.WithSettleDelay(0),
		binder.WithTapHandler(func(i int) { tapped = append(tapped, i) }),
	)

	if err := b.Bind(context.Background(), chapterSentences(), els); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if fakes[0].tap != nil {
		t.Error("metadata element got a tap handler")
	}
	for _, f := range fakes[1:] {
		if f.tap == nil {
			t.Fatalf("body element %s missing tap handler", f.id)
		}
	}

	fakes[2].tap()
	fakes[3].tap()
	if len(tapped) != 2 || tapped[0] != 1 || tapped[1] != 2 {
		t.Errorf("tapped sentence indices = %v, want [1 2]", tapped)
	}
}

func TestRebindDiscardsOldTable(t *testing.T) {
	t.Parallel()

	els, _ := makeElements(4)
	b := binder.New(binder.WithSettleDelay(0))

	if err := b.Bind(context.Background(), chapterSentences(), els); err != nil {
		t.Fatalf("first Bind: %v", err)
	}

	newEls, _ := makeElements(1)
	newSentences := []segment.Sentence{{Text: "New page.", SourceFragmentIndices: []int{0}}}
	if err := b.Bind(context.Background(), newSentences, newEls); err != nil {
		t.Fatalf("second Bind: %v", err)
	}

	if got := b.Count(); got != 1 {
		t.Errorf("Count after rebind = %d, want 1", got)
	}
	if got := b.Lookup(1); got != nil {
		t.Errorf("Lookup(1) after rebind = %v, want nil", got)
	}
}

func TestBindSkipsOutOfRangeIndices(t *testing.T) {
	t.Parallel()

	// The renderer produced fewer elements than fragments.
	els, _ := makeElements(1)
	sentences := []segment.Sentence{
		{Text: "Visible.", SourceFragmentIndices: []int{0}},
		{Text: "Dropped.", SourceFragmentIndices: []int{5}},
	}

	b := binder.New(binder.WithSettleDelay(0))
	if err := b.Bind(context.Background(), sentences, els); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if got := b.Lookup(0); len(got) != 1 {
		t.Errorf("Lookup(0) = %v, want one element", got)
	}
	if got := b.Lookup(1); got != nil {
		t.Errorf("Lookup(1) = %v, want nil", got)
	}
}

func TestBindHonoursSettleDelayCancellation(t *testing.T) {
	t.Parallel()

	els, fakes := makeElements(1)
	b := binder.New(binder.WithSettleDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Bind(ctx, []segment.Sentence{{Text: "x.", SourceFragmentIndices: []int{0}}}, els)
	if err == nil {
		t.Fatal("Bind with cancelled context returned nil error")
	}
	if len(fakes[0].markers) != 0 {
		t.Error("cancelled Bind still attached markers")
	}
}

func TestLookupOutOfRange(t *testing.T) {
	t.Parallel()

	b := binder.New(binder.WithSettleDelay(0))
	if got := b.Lookup(0); got != nil {
		t.Errorf("Lookup on empty binder = %v, want nil", got)
	}
	if got := b.Lookup(-1); got != nil {
		t.Errorf("Lookup(-1) = %v, want nil", got)
	}
}
