package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrWong99/readalong/internal/app"
	"github.com/MrWong99/readalong/internal/binder"
	"github.com/MrWong99/readalong/internal/config"
	"github.com/MrWong99/readalong/internal/layout"
	ttsmock "github.com/MrWong99/readalong/pkg/provider/tts/mock"
)

// fakeElement is a minimal visual element for binder wiring.
type fakeElement struct {
	id      string
	markers []string
	onTap   func()
}

func (e *fakeElement) ID() string             { return e.id }
func (e *fakeElement) SetMarker(class string) { e.markers = append(e.markers, class) }
func (e *fakeElement) OnTap(fn func())        { e.onTap = fn }

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Reading: config.ReadingConfig{SettleDelayMs: 1},
	}
}

func testPage() app.Page {
	frags := []layout.PositionedFragment{
		{Text: "Chapter 3", Height: 20, BaselineY: 500, SequenceIndex: 0},
		{Text: "The cat sat.", Height: 12, BaselineY: 520, SequenceIndex: 1},
		{Text: "A dog ran by.", Height: 12, BaselineY: 540, SequenceIndex: 2},
	}
	elements := make([]binder.Element, len(frags))
	for i := range frags {
		elements[i] = &fakeElement{id: frags[i].Text}
	}
	return app.Page{Fragments: frags, PageHeight: 1000, Elements: elements}
}

func TestNew_RequiresTTS(t *testing.T) {
	t.Parallel()

	if _, err := app.New(context.Background(), testConfig(), &app.Providers{}); err == nil {
		t.Fatal("expected error when no TTS provider is given")
	}
}

func TestLoadPage_SegmentsAndBinds(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	a, err := app.New(context.Background(), testConfig(), &app.Providers{TTS: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	page := testPage()
	if err := a.LoadPage(context.Background(), page); err != nil {
		t.Fatalf("LoadPage: %v", err)
	}

	sentences := a.Sentences()
	if len(sentences) != 3 {
		t.Fatalf("got %d sentences, want 3", len(sentences))
	}
	if !sentences[0].IsMetadata {
		t.Error("heading sentence should be metadata")
	}
	if sentences[1].Text != "The cat sat." {
		t.Errorf("sentence 1 = %q, want %q", sentences[1].Text, "The cat sat.")
	}
	if cur := a.Cursor(); cur.ActiveSentenceIndex != 0 || cur.IsPlaying {
		t.Errorf("cursor after load = %+v, want index 0, not playing", cur)
	}

	el := page.Elements[1].(*fakeElement)
	if len(el.markers) == 0 {
		t.Error("body element never received its marker")
	}
}

func TestStartReading_SkipsMetadata(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	a, err := app.New(context.Background(), testConfig(), &app.Providers{TTS: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if err := a.LoadPage(context.Background(), testPage()); err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if err := a.StartReading(context.Background()); err != nil {
		t.Fatalf("StartReading: %v", err)
	}

	calls := provider.SpeakCalls
	if len(calls) != 1 {
		t.Fatalf("got %d Speak calls, want 1", len(calls))
	}
	if calls[0].Req.Text != "The cat sat." {
		t.Errorf("spoke %q, want the first body sentence", calls[0].Req.Text)
	}

	a.StopReading()
	if a.Cursor().IsPlaying {
		t.Error("cursor should not be playing after StopReading")
	}
}

func TestTapNavigation_MovesCursor(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	a, err := app.New(context.Background(), testConfig(), &app.Providers{TTS: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	page := testPage()
	if err := a.LoadPage(context.Background(), page); err != nil {
		t.Fatalf("LoadPage: %v", err)
	}

	// The second body sentence spans one fragment; its element carries the
	// tap handler.
	el := page.Elements[2].(*fakeElement)
	if el.onTap == nil {
		t.Fatal("body element never received a tap handler")
	}

	el.onTap()
	if got := a.Cursor().ActiveSentenceIndex; got != 2 {
		t.Errorf("cursor after tap = %d, want 2", got)
	}
}

func TestStartReading_EmptyPage(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	a, err := app.New(context.Background(), testConfig(), &app.Providers{TTS: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if err := a.StartReading(context.Background()); err == nil {
		t.Fatal("expected error starting playback on an empty page")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	a, err := app.New(context.Background(), testConfig(), &app.Providers{TTS: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, "") }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
