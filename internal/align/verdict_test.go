package align_test

import (
	"testing"

	"github.com/MrWong99/readalong/internal/align"
)

func TestVerdictFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  align.Tier
	}{
		{0.9, align.TierExcellent},
		{0.85, align.TierExcellent},
		{0.7, align.TierClose},
		{0.65, align.TierClose},
		{0.4, align.TierNeedsWork},
		{0, align.TierNeedsWork},
		{1, align.TierExcellent},
	}

	for _, tc := range tests {
		got := align.VerdictFor(tc.score)
		if got.Tier != tc.want {
			t.Errorf("VerdictFor(%v).Tier = %q, want %q", tc.score, got.Tier, tc.want)
		}
		if got.Score != tc.score {
			t.Errorf("VerdictFor(%v).Score = %v", tc.score, got.Score)
		}
	}
}

func TestVerdictNeedsReview(t *testing.T) {
	t.Parallel()

	if align.VerdictFor(0.9).NeedsReview() {
		t.Error("score 0.9 should not need review")
	}
	if !align.VerdictFor(0.7).NeedsReview() {
		t.Error("score 0.7 should need review")
	}
	if !align.VerdictFor(0.2).NeedsReview() {
		t.Error("score 0.2 should need review")
	}
}

func TestTierMessagesFixedAndDistinct(t *testing.T) {
	t.Parallel()

	tiers := []align.Tier{align.TierExcellent, align.TierClose, align.TierNeedsWork}
	seen := map[string]align.Tier{}
	for _, tier := range tiers {
		msg := tier.Message()
		if msg == "" {
			t.Errorf("%q has empty message", tier)
		}
		if other, ok := seen[msg]; ok {
			t.Errorf("tiers %q and %q share message %q", tier, other, msg)
		}
		seen[msg] = tier
		if msg != tier.Message() {
			t.Errorf("%q message not stable", tier)
		}
	}
}
