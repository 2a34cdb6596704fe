package align

// Tier buckets a pronunciation score into user-facing feedback levels.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierClose     Tier = "close"
	TierNeedsWork Tier = "needs-work"
)

// Score thresholds for the verdict tiers.
const (
	excellentThreshold = 0.85
	closeThreshold     = 0.65
)

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierExcellent, TierClose, TierNeedsWork:
		return true
	}
	return false
}

// Message returns the fixed encouragement shown for the tier.
func (t Tier) Message() string {
	switch t {
	case TierExcellent:
		return "Excellent reading! You said every word beautifully."
	case TierClose:
		return "Nice work! That was close — one more try and you'll have it."
	default:
		return "Good effort! Let's practice this sentence together again."
	}
}

// Verdict is the overall outcome of one scored attempt.
type Verdict struct {
	// Score is the external scoring service's confidence in [0, 1].
	Score float64
	// Tier is the bucketed feedback level for Score.
	Tier Tier
}

// NeedsReview reports whether the attempt warrants a corrective read-back of
// the missed words.
func (v Verdict) NeedsReview() bool {
	return v.Score < excellentThreshold
}

// VerdictFor maps a score to its tier: ≥0.85 excellent, ≥0.65 close,
// otherwise needs-work.
func VerdictFor(score float64) Verdict {
	v := Verdict{Score: score}
	switch {
	case score >= excellentThreshold:
		v.Tier = TierExcellent
	case score >= closeThreshold:
		v.Tier = TierClose
	default:
		v.Tier = TierNeedsWork
	}
	return v
}
