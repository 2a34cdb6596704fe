package layout_test

import (
	"testing"

	"github.com/MrWong99/readalong/internal/layout"
)

// bodyFragment returns a fragment placed safely inside the body zone of a
// 1000-unit page with the page's typical height.
func bodyFragment(text string, index int) layout.PositionedFragment {
	return layout.PositionedFragment{
		Text:          text,
		Height:        10,
		BaselineY:     500,
		SequenceIndex: index,
	}
}

func TestClassifyHeadingByHeight(t *testing.T) {
	t.Parallel()

	frags := []layout.PositionedFragment{
		{Text: "Chapter 1", Height: 24, BaselineY: 200, SequenceIndex: 0},
		bodyFragment("The cat sat.", 1),
		bodyFragment("It was happy!", 2),
	}

	got := layout.Classify(frags, 1000)
	if len(got) != 3 {
		t.Fatalf("Classify returned %d fragments, want 3", len(got))
	}
	if got[0].Class != layout.ClassHeading {
		t.Errorf("fragment 0 class = %q, want %q", got[0].Class, layout.ClassHeading)
	}
	if !got[0].Metadata() {
		t.Error("heading fragment not marked metadata")
	}
	for i := 1; i < 3; i++ {
		if got[i].Class != layout.ClassBody {
			t.Errorf("fragment %d class = %q, want %q", i, got[i].Class, layout.ClassBody)
		}
	}
}

func TestClassifySerialMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want layout.Class
	}{
		{"1.", layout.ClassSerialMarker},
		{"a)", layout.ClassSerialMarker},
		{"IV:", layout.ClassSerialMarker},
		{"12.", layout.ClassSerialMarker},
		{"Ab.", layout.ClassSerialMarker},
		{"1234.", layout.ClassBody}, // too long to be a marker
		{"cat.", layout.ClassBody},
		{"a", layout.ClassBody}, // no trailing punctuation
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			frags := []layout.PositionedFragment{bodyFragment(tc.text, 0)}
			got := layout.Classify(frags, 1000)
			if len(got) != 1 {
				t.Fatalf("Classify returned %d fragments, want 1", len(got))
			}
			if got[0].Class != tc.want {
				t.Errorf("class = %q, want %q", got[0].Class, tc.want)
			}
		})
	}
}

func TestClassifyHeaderFooterBand(t *testing.T) {
	t.Parallel()

	frags := []layout.PositionedFragment{
		{Text: "Running Title", Height: 10, BaselineY: 50, SequenceIndex: 0},
		bodyFragment("Body text here.", 1),
		{Text: "Page 7", Height: 10, BaselineY: 960, SequenceIndex: 2},
	}

	got := layout.Classify(frags, 1000)
	if got[0].Class != layout.ClassHeaderFooter {
		t.Errorf("top fragment class = %q, want %q", got[0].Class, layout.ClassHeaderFooter)
	}
	if got[1].Class != layout.ClassBody {
		t.Errorf("middle fragment class = %q, want %q", got[1].Class, layout.ClassBody)
	}
	if got[2].Class != layout.ClassHeaderFooter {
		t.Errorf("bottom fragment class = %q, want %q", got[2].Class, layout.ClassHeaderFooter)
	}
}

func TestClassifySkipsEmptyFragments(t *testing.T) {
	t.Parallel()

	frags := []layout.PositionedFragment{
		bodyFragment("", 0),
		bodyFragment("   ", 1),
		bodyFragment("Real text.", 2),
	}

	got := layout.Classify(frags, 1000)
	if len(got) != 1 {
		t.Fatalf("Classify returned %d fragments, want 1", len(got))
	}
	if got[0].Fragment.SequenceIndex != 2 {
		t.Errorf("kept fragment index = %d, want 2", got[0].Fragment.SequenceIndex)
	}
}

func TestClassifyMedianIgnoresEmptyFragments(t *testing.T) {
	t.Parallel()

	// Empty fragments with tiny heights must not drag the median down and
	// turn regular body text into headings.
	frags := []layout.PositionedFragment{
		{Text: "", Height: 1, BaselineY: 500, SequenceIndex: 0},
		{Text: "", Height: 1, BaselineY: 500, SequenceIndex: 1},
		{Text: "", Height: 1, BaselineY: 500, SequenceIndex: 2},
		bodyFragment("Normal prose here.", 3),
		bodyFragment("More normal prose.", 4),
	}

	got := layout.Classify(frags, 1000)
	for _, c := range got {
		if c.Class != layout.ClassBody {
			t.Errorf("fragment %d class = %q, want %q", c.Fragment.SequenceIndex, c.Class, layout.ClassBody)
		}
	}
}

func TestClassifyZeroPageHeightDisablesBandRule(t *testing.T) {
	t.Parallel()

	frags := []layout.PositionedFragment{
		{Text: "Top text.", Height: 10, BaselineY: 5, SequenceIndex: 0},
	}
	got := layout.Classify(frags, 0)
	if got[0].Class != layout.ClassBody {
		t.Errorf("class = %q, want %q", got[0].Class, layout.ClassBody)
	}
}

func TestClassIsValid(t *testing.T) {
	t.Parallel()

	for _, c := range []layout.Class{layout.ClassBody, layout.ClassHeading, layout.ClassSerialMarker, layout.ClassHeaderFooter} {
		if !c.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", c)
		}
	}
	if layout.Class("margin").IsValid() {
		t.Error(`Class("margin").IsValid() = true, want false`)
	}
}
