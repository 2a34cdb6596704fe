// Package mock provides a scripted scorer.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/readalong/pkg/provider/scorer"
)

// Provider is a test double for scorer.Provider. Configure Result or Err
// before use; Score records every request it receives.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Score when Err is nil.
	Result *scorer.Result
	// Err, when set, is returned by Score.
	Err error

	calls []scorer.Request
}

var _ scorer.Provider = (*Provider)(nil)

// Score returns the configured result or error.
func (p *Provider) Score(ctx context.Context, req scorer.Request) (*scorer.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result != nil {
		res := *p.Result
		return &res, nil
	}
	return &scorer.Result{SpokenText: req.ExpectedText, Score: 1}, nil
}

// Calls returns a copy of all requests received so far.
func (p *Provider) Calls() []scorer.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]scorer.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset clears recorded requests.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
