package resilience

import (
	"context"

	"github.com/MrWong99/readalong/pkg/provider/scorer"
)

// ScorerFallback implements [scorer.Provider] with automatic failover across
// multiple scoring backends, typically a remote API with a local model as
// backup. Each backend has its own circuit breaker.
type ScorerFallback struct {
	group *FallbackGroup[scorer.Provider]
}

// Compile-time interface assertion.
var _ scorer.Provider = (*ScorerFallback)(nil)

// NewScorerFallback creates a [ScorerFallback] with primary as the preferred
// backend.
func NewScorerFallback(primary scorer.Provider, primaryName string, cfg FallbackConfig) *ScorerFallback {
	return &ScorerFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional scorer provider as a fallback.
func (f *ScorerFallback) AddFallback(name string, provider scorer.Provider) {
	f.group.AddFallback(name, provider)
}

// Score scores the attempt on the first healthy provider.
func (f *ScorerFallback) Score(ctx context.Context, req scorer.Request) (*scorer.Result, error) {
	return ExecuteWithResult(f.group, func(p scorer.Provider) (*scorer.Result, error) {
		return p.Score(ctx, req)
	})
}
