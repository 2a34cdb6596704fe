// Package app wires all readalong subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the main loop (config hot-reload and lifecycle
// supervision), and Shutdown tears everything down in order.
//
// For testing, inject mock providers via the Providers struct and tune
// behaviour via functional options.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/readalong/internal/binder"
	"github.com/MrWong99/readalong/internal/config"
	"github.com/MrWong99/readalong/internal/history"
	"github.com/MrWong99/readalong/internal/layout"
	"github.com/MrWong99/readalong/internal/observe"
	"github.com/MrWong99/readalong/internal/scheduler"
	"github.com/MrWong99/readalong/internal/segment"
	"github.com/MrWong99/readalong/internal/session"
	"github.com/MrWong99/readalong/pkg/audio/capture"
	"github.com/MrWong99/readalong/pkg/provider/scorer"
	"github.com/MrWong99/readalong/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	TTS    tts.Provider
	Scorer scorer.Provider

	// Capture is the microphone device. Nil disables the practice flow.
	Capture capture.Device
}

// Page is one rendered document page handed to the App by the renderer:
// the positioned text fragments plus the visual elements they map to.
type Page struct {
	// Fragments are the positioned text runs in render order.
	Fragments []layout.PositionedFragment

	// PageHeight is the page height in the same units as the fragments'
	// baselines. Non-positive disables the margin-band classification rule.
	PageHeight float64

	// Elements are the visual elements indexed by fragment sequence index.
	Elements []binder.Element
}

// App owns all subsystem lifetimes and orchestrates the document reading
// pipeline: layout classification, sentence segmentation, visual binding,
// read-aloud scheduling and pronunciation practice.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	// Subsystems — initialised in New, torn down in Shutdown.
	sess      *session.Session
	sched     *scheduler.Scheduler
	binder    *binder.Binder
	segmenter *segment.Segmenter
	recorder  *capture.Recorder
	history   *history.FileStore

	// captureOpts configure every recorder this app creates, whether the
	// device arrives at construction or later via AttachCapture.
	captureOpts []capture.Option

	// mu guards the recorder slot, the practice flow and hot-reloaded
	// reading settings.
	mu       sync.Mutex
	reading  config.ReadingConfig
	expected string // sentence text of the in-flight practice attempt

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithSession injects a session instead of creating an empty one.
func WithSession(s *session.Session) Option {
	return func(a *App) { a.sess = s }
}

// WithHistory sets the store that records scored practice attempts. Without
// it, attempts are not persisted.
func WithHistory(h *history.FileStore) Option {
	return func(a *App) { a.history = h }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry); a TTS provider is
// required, scorer and capture are optional and disable the practice flow
// when absent.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.TTS == nil {
		return nil, fmt.Errorf("app: a TTS provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		reading:   cfg.Reading,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.sess == nil {
		a.sess = session.New(nil)
	}

	a.segmenter = segment.New(segment.WithMinSentenceRunes(cfg.Reading.MinSentenceRunes))

	var bindOpts []binder.Option
	if cfg.Reading.SettleDelayMs > 0 {
		bindOpts = append(bindOpts, binder.WithSettleDelay(time.Duration(cfg.Reading.SettleDelayMs)*time.Millisecond))
	}
	bindOpts = append(bindOpts, binder.WithTapHandler(func(i int) {
		if err := a.JumpTo(ctx, i); err != nil {
			slog.Warn("tap navigation failed", "index", i, "err", err)
		}
	}))
	a.binder = binder.New(bindOpts...)

	schedOpts := []scheduler.Option{scheduler.WithMetrics(a.metrics)}
	if cfg.Reading.SpeedWPM > 0 {
		schedOpts = append(schedOpts, scheduler.WithReadingSpeed(cfg.Reading.SpeedWPM))
	}
	if cfg.Reading.Voice != "" {
		schedOpts = append(schedOpts, scheduler.WithVoice(tts.VoiceProfile{ID: cfg.Reading.Voice}))
	}
	a.sched = scheduler.New(providers.TTS, a.sess, schedOpts...)

	if cfg.Capture.SampleRate > 0 || cfg.Capture.Channels > 0 {
		rate, channels := cfg.Capture.SampleRate, cfg.Capture.Channels
		if rate == 0 {
			rate = 48000
		}
		if channels == 0 {
			channels = 1
		}
		a.captureOpts = append(a.captureOpts, capture.WithDecoderFactory(func() (capture.Decoder, error) {
			return capture.NewOpusDecoder(rate, channels)
		}))
	}
	if providers.Capture != nil {
		a.recorder = capture.NewRecorder(providers.Capture, a.captureOpts...)
	}

	a.metrics.ActiveSessions.Add(ctx, 1)
	a.closers = append(a.closers, func() error {
		a.metrics.ActiveSessions.Add(context.Background(), -1)
		return nil
	})

	return a, nil
}

// AttachCapture installs a capture device after construction. Document-reader
// clients deliver microphone audio over their own connection, so the device
// typically arrives when a client connects rather than at startup. Replacing
// the device while a capture is in flight returns [capture.ErrCaptureActive].
func (a *App) AttachCapture(dev capture.Device) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recorder != nil && a.recorder.Active() {
		return capture.ErrCaptureActive
	}
	a.recorder = capture.NewRecorder(dev, a.captureOpts...)
	return nil
}

// currentRecorder returns the recorder slot, nil when no capture device is
// attached.
func (a *App) currentRecorder() *capture.Recorder {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recorder
}

// ─── Page lifecycle ──────────────────────────────────────────────────────────

// LoadPage ingests a freshly rendered page: classifies its fragments,
// segments them into sentences, replaces the session content and rebinds
// visual markers after the settle delay. Any in-flight speech is stopped
// and the cursor resets to the first sentence.
func (a *App) LoadPage(ctx context.Context, page Page) error {
	ctx, span := observe.StartSpan(ctx, "page.load")
	defer span.End()

	a.sched.Stop()

	classified := layout.Classify(page.Fragments, page.PageHeight)
	sentences := a.segmenter.Segment(classified)

	if err := a.sess.SetSentences(sentences); err != nil {
		return fmt.Errorf("app: load page: %w", err)
	}
	observe.Logger(ctx).Info("page loaded", "fragments", len(page.Fragments), "sentences", len(sentences))

	if err := a.binder.Bind(ctx, sentences, page.Elements); err != nil {
		return fmt.Errorf("app: bind page: %w", err)
	}
	return nil
}

// Sentences returns the sentences of the current page.
func (a *App) Sentences() []segment.Sentence {
	return a.sess.Sentences()
}

// Cursor returns the current playback cursor.
func (a *App) Cursor() session.Cursor {
	return a.sess.Cursor()
}

// Counters returns the correct and total practice attempt counts of the
// running session.
func (a *App) Counters() (correct, total int) {
	return a.sess.Counters()
}

// ─── Reading controls ────────────────────────────────────────────────────────

// StartReading begins read-aloud playback from the cursor.
func (a *App) StartReading(ctx context.Context) error {
	return a.sched.Start(ctx)
}

// StopReading halts playback immediately.
func (a *App) StopReading() {
	a.sched.Stop()
}

// JumpTo moves playback to sentence i. When idle or stopped only the cursor
// moves; when speaking, the current utterance is cancelled and playback
// restarts at i.
func (a *App) JumpTo(ctx context.Context, i int) error {
	return a.sched.JumpTo(ctx, i)
}

// ─── Run / Shutdown ──────────────────────────────────────────────────────────

// Run blocks until ctx is cancelled, supervising background concerns. When a
// config path is given, reading settings and the log level are hot-reloaded
// on file changes.
func (a *App) Run(ctx context.Context, configPath string) error {
	g, ctx := errgroup.WithContext(ctx)

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, a.applyConfigChange)
		if err != nil {
			return fmt.Errorf("app: start config watcher: %w", err)
		}
		a.closers = append(a.closers, func() error {
			watcher.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	slog.Info("app running")
	return g.Wait()
}

// applyConfigChange applies hot-reloadable settings from a changed config
// file. Provider and capture changes require a restart and are ignored.
func (a *App) applyConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged {
		slog.Info("log level changed", "level", d.NewLogLevel)
		slog.SetLogLoggerLevel(slogLevel(d.NewLogLevel))
	}

	if d.ReadingChanged {
		a.mu.Lock()
		a.reading = d.NewReading
		a.mu.Unlock()
		slog.Info("reading settings changed",
			"speed_wpm", d.NewReading.SpeedWPM,
			"voice", d.NewReading.Voice,
			"alignment_policy", d.NewReading.AlignmentPolicy)
	}
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.sched.Stop()
		if rec := a.currentRecorder(); rec != nil && rec.Active() {
			if _, err := rec.Stop(); err != nil {
				slog.Warn("capture stop error during shutdown", "err", err)
			}
		}
		a.sess.Close()

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// slogLevel maps a config log level to its slog equivalent.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
