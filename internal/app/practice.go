package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/readalong/internal/align"
	"github.com/MrWong99/readalong/internal/history"
	"github.com/MrWong99/readalong/internal/observe"
	"github.com/MrWong99/readalong/pkg/provider/scorer"
)

// ErrPracticeUnavailable is returned when the practice flow is invoked
// without a scorer provider or a capture device configured.
var ErrPracticeUnavailable = fmt.Errorf("app: practice requires a scorer provider and a capture device")

// PracticeResult is the outcome of one scored read-back attempt.
type PracticeResult struct {
	// Expected is the sentence text the reader was asked to read.
	Expected string

	// Spoken is the transcript the scorer produced.
	Spoken string

	// Verdict carries the pronunciation score and its feedback tier.
	Verdict align.Verdict

	// Words holds the per-word match results under the configured policy.
	Words []align.WordResult

	// Review holds the detailed correct/mispronounced/missed breakdown.
	Review []align.WordReview

	// Missed lists the expected words absent from the transcript.
	Missed []string
}

// StartPractice opens the microphone to record a read-back of the sentence
// under the cursor. Only one capture can be active at a time; a second call
// before FinishPractice returns capture.ErrCaptureActive.
func (a *App) StartPractice(ctx context.Context) error {
	rec := a.currentRecorder()
	if rec == nil || a.providers.Scorer == nil {
		return ErrPracticeUnavailable
	}

	cur := a.sess.Cursor()
	sentence, err := a.sess.Sentence(cur.ActiveSentenceIndex)
	if err != nil {
		return fmt.Errorf("app: start practice: %w", err)
	}

	if err := rec.Start(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.expected = sentence.Text
	a.mu.Unlock()

	a.metrics.ActiveCaptures.Add(ctx, 1)
	return nil
}

// FinishPractice stops the recording, scores the pronunciation against the
// expected sentence and updates the session counters. When the verdict asks
// for review and words were missed, the missed words are read back slowly.
//
// A scorer failure leaves the session counters unchanged and is reported as
// a provider error.
func (a *App) FinishPractice(ctx context.Context) (*PracticeResult, error) {
	recorder := a.currentRecorder()
	if recorder == nil || a.providers.Scorer == nil {
		return nil, ErrPracticeUnavailable
	}

	ctx, span := observe.StartSpan(ctx, "practice.attempt")
	defer span.End()

	captureStart := time.Now()
	rec, err := recorder.Stop()
	if err != nil {
		return nil, err
	}
	a.metrics.ActiveCaptures.Add(ctx, -1)
	a.metrics.CaptureDuration.Record(ctx, time.Since(captureStart).Seconds())

	a.mu.Lock()
	expected := a.expected
	policy := a.reading.AlignmentPolicy
	a.mu.Unlock()
	if policy == "" {
		policy = align.PolicyPositional
	}

	payload := rec.WAV
	if rec.RawFallback {
		observe.Logger(ctx).Warn("scoring raw capture, normalization failed", "bytes", len(rec.Raw))
		payload = rec.Raw
	}

	scoreStart := time.Now()
	res, err := a.providers.Scorer.Score(ctx, scorer.Request{
		Audio:        payload,
		ExpectedText: expected,
	})
	a.metrics.ScoringDuration.Record(ctx, time.Since(scoreStart).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, "scorer", "score")
		return nil, fmt.Errorf("app: score attempt: %w", err)
	}

	verdict := align.VerdictFor(res.Score)
	words := align.Align(expected, res.SpokenText, policy)
	review := align.Review(expected, res.SpokenText)
	missed := align.MissedWords(words)

	a.sess.RecordAttempt(verdict.Tier == align.TierExcellent)
	a.metrics.RecordPracticeAttempt(ctx, string(verdict.Tier))

	if a.history != nil {
		if err := a.history.Append(history.Record{
			Sentence: expected,
			Spoken:   res.SpokenText,
			Score:    verdict.Score,
			Tier:     verdict.Tier,
			Missed:   missed,
			TraceID:  observe.CorrelationID(ctx),
		}); err != nil {
			slog.Warn("failed to persist practice attempt", "err", err)
		}
	}

	observe.Logger(ctx).Info("practice attempt scored",
		"score", verdict.Score,
		"tier", verdict.Tier,
		"missed", len(missed),
		"elapsed", rec.Elapsed)

	if verdict.NeedsReview() && len(missed) > 0 {
		if err := a.sched.ReadMissedWords(ctx, missed); err != nil {
			slog.Warn("missed-word read-back failed", "err", err)
		}
	}

	return &PracticeResult{
		Expected: expected,
		Spoken:   res.SpokenText,
		Verdict:  verdict,
		Words:    words,
		Review:   review,
		Missed:   missed,
	}, nil
}
