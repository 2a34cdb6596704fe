// Package layout classifies positioned text fragments of a rendered page as
// readable body text or layout metadata (headings, serial markers, running
// headers and footers). Classification is pure: it inspects fragment geometry
// and text only and never mutates its input.
package layout

import (
	"regexp"
	"sort"
	"strings"
)

// PositionedFragment is a single positioned run of text as reported by the
// document renderer. Read-only input.
type PositionedFragment struct {
	// Text is the fragment's raw text content.
	Text string
	// Height is the rendered glyph height.
	Height float64
	// BaselineY is the vertical baseline position, measured from the top of
	// the page in the same unit as the page height.
	BaselineY float64
	// SequenceIndex is the fragment's position in the renderer's output order.
	SequenceIndex int
}

// Class labels a fragment's layout role.
type Class string

const (
	// ClassBody marks readable prose.
	ClassBody Class = "body"
	// ClassHeading marks oversized text such as chapter titles.
	ClassHeading Class = "heading"
	// ClassSerialMarker marks short enumeration markers like "1." or "a)".
	ClassSerialMarker Class = "serial-marker"
	// ClassHeaderFooter marks text in the running header or footer band.
	ClassHeaderFooter Class = "header-footer"
)

// IsValid reports whether c is a known class.
func (c Class) IsValid() bool {
	switch c {
	case ClassBody, ClassHeading, ClassSerialMarker, ClassHeaderFooter:
		return true
	}
	return false
}

// Classified pairs a fragment with its layout class.
type Classified struct {
	Fragment PositionedFragment
	Class    Class
}

// Metadata reports whether the fragment is layout noise rather than readable
// prose.
func (c Classified) Metadata() bool {
	return c.Class != ClassBody
}

// headingFactor is the height multiple over the page's median fragment height
// above which a fragment counts as a heading.
const headingFactor = 1.3

// marginBand is the fraction of page height at the top and bottom treated as
// the running header/footer zone.
const marginBand = 0.1

// serialMarkerRe matches short enumeration markers: up to three alphanumeric
// characters followed by a closing punctuation mark, e.g. "1.", "a)", "IV:".
var serialMarkerRe = regexp.MustCompile(`^[0-9A-Za-z]{1,3}[.):\]]$`)

// Classify labels every fragment of one page. Fragments with empty or
// whitespace-only text are skipped entirely and do not appear in the output.
// pageHeight must be the full page height in the same unit as BaselineY; a
// non-positive pageHeight disables the header/footer rule.
func Classify(fragments []PositionedFragment, pageHeight float64) []Classified {
	median := medianHeight(fragments)

	out := make([]Classified, 0, len(fragments))
	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		out = append(out, Classified{Fragment: f, Class: classify(f, text, median, pageHeight)})
	}
	return out
}

func classify(f PositionedFragment, trimmed string, median, pageHeight float64) Class {
	if median > 0 && f.Height > headingFactor*median {
		return ClassHeading
	}
	if serialMarkerRe.MatchString(trimmed) {
		return ClassSerialMarker
	}
	if pageHeight > 0 {
		if f.BaselineY < marginBand*pageHeight || f.BaselineY > (1-marginBand)*pageHeight {
			return ClassHeaderFooter
		}
	}
	return ClassBody
}

// medianHeight computes the median height over fragments with non-empty text.
// Returns 0 when no such fragment exists.
func medianHeight(fragments []PositionedFragment) float64 {
	heights := make([]float64, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		heights = append(heights, f.Height)
	}
	if len(heights) == 0 {
		return 0
	}
	sort.Float64s(heights)
	mid := len(heights) / 2
	if len(heights)%2 == 0 {
		return (heights[mid-1] + heights[mid]) / 2
	}
	return heights[mid]
}
