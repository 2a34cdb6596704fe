package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/readalong/pkg/provider/scorer"
	scorermock "github.com/MrWong99/readalong/pkg/provider/scorer/mock"
)

func TestScorerFallback_PrimarySuccess(t *testing.T) {
	primary := &scorermock.Provider{
		Result: &scorer.Result{SpokenText: "the cat sat", Score: 0.9},
	}
	secondary := &scorermock.Provider{}

	fb := NewScorerFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	res, err := fb.Score(context.Background(), scorer.Request{ExpectedText: "the cat sat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 0.9 {
		t.Fatalf("score = %v, want 0.9", res.Score)
	}
	if len(secondary.Calls()) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls()))
	}
}

func TestScorerFallback_Failover(t *testing.T) {
	primary := &scorermock.Provider{Err: errors.New("api down")}
	secondary := &scorermock.Provider{
		Result: &scorer.Result{SpokenText: "local transcript", Score: 0.7},
	}

	fb := NewScorerFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	res, err := fb.Score(context.Background(), scorer.Request{ExpectedText: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SpokenText != "local transcript" {
		t.Fatalf("spoken = %q, want the fallback's transcript", res.SpokenText)
	}
	if len(primary.Calls()) != 1 || len(secondary.Calls()) != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", len(primary.Calls()), len(secondary.Calls()))
	}
}

func TestScorerFallback_AllFail(t *testing.T) {
	primary := &scorermock.Provider{Err: errors.New("api down")}
	secondary := &scorermock.Provider{Err: errors.New("model broken")}

	fb := NewScorerFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if _, err := fb.Score(context.Background(), scorer.Request{ExpectedText: "hello"}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
}
