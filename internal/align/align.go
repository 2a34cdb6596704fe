// Package align compares expected sentence text against a spoken transcript,
// producing per-word correctness, a refined per-word status, and an overall
// verdict tier for a pronunciation score.
package align

import (
	"strings"
	"unicode"
)

// Policy selects how expected words are matched against spoken ones.
type Policy string

const (
	// PolicyPositional matches word i of the expected text against word i of
	// the transcript. Order-sensitive; the default for progress tracking.
	PolicyPositional Policy = "positional"
	// PolicySetMembership matches an expected word if it appears anywhere in
	// the transcript. Tolerant of reordering; used for live visual feedback.
	PolicySetMembership Policy = "set-membership"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyPositional, PolicySetMembership:
		return true
	}
	return false
}

// WordResult is the alignment outcome for one expected word.
type WordResult struct {
	// Word is the normalized expected word.
	Word string
	// MatchedSpoken reports whether the transcript contained the word under
	// the chosen policy.
	MatchedSpoken bool
}

// Normalize lowercases text and strips everything that is not a letter or
// digit, collapsing runs of stripped characters into single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// Words normalizes text and splits it into words. Returns nil for text with
// no word content.
func Words(text string) []string {
	return strings.Fields(Normalize(text))
}

// Align compares the expected text against the spoken transcript word by
// word under the given policy. Both inputs are normalized first. An invalid
// policy behaves like PolicyPositional.
func Align(expected, spoken string, policy Policy) []WordResult {
	exp := Words(expected)
	spk := Words(spoken)
	if len(exp) == 0 {
		return nil
	}

	results := make([]WordResult, len(exp))
	switch policy {
	case PolicySetMembership:
		present := make(map[string]struct{}, len(spk))
		for _, w := range spk {
			present[w] = struct{}{}
		}
		for i, w := range exp {
			_, ok := present[w]
			results[i] = WordResult{Word: w, MatchedSpoken: ok}
		}
	default:
		for i, w := range exp {
			results[i] = WordResult{Word: w, MatchedSpoken: i < len(spk) && spk[i] == w}
		}
	}
	return results
}

// MissedWords returns the expected words the transcript did not match, in
// sentence order. Feeds the corrective read-back.
func MissedWords(results []WordResult) []string {
	var missed []string
	for _, r := range results {
		if !r.MatchedSpoken {
			missed = append(missed, r.Word)
		}
	}
	return missed
}
