package align

import "github.com/antzucaro/matchr"

// Status refines a word's alignment outcome for display: a word the reader
// got wrong but came close to is worth different feedback than one they
// skipped entirely.
type Status string

const (
	StatusCorrect       Status = "correct"
	StatusMispronounced Status = "mispronounced"
	StatusMissed        Status = "missed"
)

// Close-pronunciation threshold for Jaro-Winkler similarity.
const mispronouncedSimilarity = 0.7

// How many spoken words ahead to search for an exact match before deciding
// the current expected word was not said.
const lookAheadWindow = 3

// WordReview pairs an expected word with its refined status.
type WordReview struct {
	Word   string
	Status Status
}

// Review walks the expected words against the transcript in order. An
// expected word found exactly within the look-ahead window is correct; one
// whose nearest spoken word is a close mispronunciation (Jaro-Winkler ≥ 0.7)
// is mispronounced; anything else is missed. Both inputs are normalized.
func Review(expected, spoken string) []WordReview {
	exp := Words(expected)
	spk := Words(spoken)
	if len(exp) == 0 {
		return nil
	}

	reviews := make([]WordReview, len(exp))
	j := 0
	for i, w := range exp {
		reviews[i] = WordReview{Word: w, Status: StatusMissed}

		found := -1
		for k := j; k < len(spk) && k < j+lookAheadWindow; k++ {
			if spk[k] == w {
				found = k
				break
			}
		}
		if found >= 0 {
			reviews[i].Status = StatusCorrect
			j = found + 1
			continue
		}
		if j < len(spk) && closePronunciation(w, spk[j]) {
			reviews[i].Status = StatusMispronounced
			j++
		}
	}
	return reviews
}

// closePronunciation reports whether spoken is a near miss of expected:
// either the strings are similar (Jaro-Winkler) or they share a Double
// Metaphone code (homophone-like misreadings such as "night" for "knight").
func closePronunciation(expected, spoken string) bool {
	if matchr.JaroWinkler(expected, spoken, false) >= mispronouncedSimilarity {
		return true
	}
	p1, s1 := matchr.DoubleMetaphone(expected)
	p2, s2 := matchr.DoubleMetaphone(spoken)
	if p1 == "" || p2 == "" {
		return false
	}
	return p1 == p2 || p1 == s2 || s1 == p2
}
