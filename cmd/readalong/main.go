// Command readalong is the main entry point for the readalong document
// reading and pronunciation practice server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/readalong/internal/app"
	"github.com/MrWong99/readalong/internal/config"
	"github.com/MrWong99/readalong/internal/history"
	"github.com/MrWong99/readalong/internal/observe"
	"github.com/MrWong99/readalong/internal/resilience"
	"github.com/MrWong99/readalong/pkg/audio/capture"
	"github.com/MrWong99/readalong/pkg/provider/scorer"
	"github.com/MrWong99/readalong/pkg/provider/scorer/httpapi"
	scorermock "github.com/MrWong99/readalong/pkg/provider/scorer/mock"
	"github.com/MrWong99/readalong/pkg/provider/scorer/whisper"
	"github.com/MrWong99/readalong/pkg/provider/tts"
	ttsmock "github.com/MrWong99/readalong/pkg/provider/tts/mock"
	"github.com/MrWong99/readalong/pkg/provider/tts/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "readalong: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "readalong: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("readalong starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: cfg.Server.ServiceVersion,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, cleanup, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer cleanup()

	// ── Application ───────────────────────────────────────────────────────────
	printStartupSummary(cfg)

	var opts []app.Option
	if cfg.Server.HistoryPath != "" {
		opts = append(opts, app.WithHistory(history.NewFileStore(cfg.Server.HistoryPath)))
	}

	application, err := app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Capture listener ──────────────────────────────────────────────────────
	if cfg.Capture.ListenAddr != "" {
		captureSrv := startCaptureListener(cfg.Capture.ListenAddr, application)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := captureSrv.Shutdown(closeCtx); err != nil {
				slog.Warn("capture listener shutdown error", "err", err)
			}
		}()
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := application.Run(ctx, *configPath); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []openai.Option
		if entry.Model != "" {
			opts = append(opts, openai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("mock", func(entry config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{AutoComplete: true}, nil
	})

	// ── Scorer ────────────────────────────────────────────────────────────────

	reg.RegisterScorer("httpapi", func(entry config.ProviderEntry) (scorer.Provider, error) {
		var opts []httpapi.Option
		if entry.APIKey != "" {
			opts = append(opts, httpapi.WithAPIKey(entry.APIKey))
		}
		return httpapi.New(entry.BaseURL, opts...)
	})

	reg.RegisterScorer("whisper", func(entry config.ProviderEntry) (scorer.Provider, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	reg.RegisterScorer("mock", func(entry config.ProviderEntry) (scorer.Provider, error) {
		return &scorermock.Provider{}, nil
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. Fallback entries are wrapped with the primary in a failover group.
// The returned cleanup function closes providers that hold resources.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, func(), error) {
	ps := &app.Providers{}
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}

	track := func(p any) {
		if c, ok := p.(interface{ Close() error }); ok {
			closers = append(closers, c.Close)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		track(p)
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)

		if fbName := cfg.Providers.TTSFallback.Name; fbName != "" {
			fb, err := reg.CreateTTS(cfg.Providers.TTSFallback)
			if err != nil {
				return nil, cleanup, fmt.Errorf("create tts fallback %q: %w", fbName, err)
			}
			track(fb)
			group := resilience.NewTTSFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fbName, fb)
			ps.TTS = group
			slog.Info("tts failover enabled", "primary", name, "fallback", fbName)
		}
	}

	if name := cfg.Providers.Scorer.Name; name != "" {
		p, err := reg.CreateScorer(cfg.Providers.Scorer)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create scorer provider %q: %w", name, err)
		}
		track(p)
		ps.Scorer = p
		slog.Info("provider created", "kind", "scorer", "name", name)

		if fbName := cfg.Providers.ScorerFallback.Name; fbName != "" {
			fb, err := reg.CreateScorer(cfg.Providers.ScorerFallback)
			if err != nil {
				return nil, cleanup, fmt.Errorf("create scorer fallback %q: %w", fbName, err)
			}
			track(fb)
			group := resilience.NewScorerFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fbName, fb)
			ps.Scorer = group
			slog.Info("scorer failover enabled", "primary", name, "fallback", fbName)
		}
	}

	// The capture device is attached per client connection by the capture
	// listener; nothing to build here.

	return ps, cleanup, nil
}

// ── Capture listener ──────────────────────────────────────────────────────────

// startCaptureListener serves the websocket endpoint document-reader clients
// push microphone audio to. Each accepted connection becomes the app's capture
// device; while a recording is in flight, new connections are turned away.
func startCaptureListener(addr string, application *app.App) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("capture client rejected", "remote", r.RemoteAddr, "err", err)
			return
		}
		if err := application.AttachCapture(capture.NewWSDevice(conn)); err != nil {
			slog.Warn("capture device not attached", "remote", r.RemoteAddr, "err", err)
			conn.Close(websocket.StatusPolicyViolation, "capture busy")
			return
		}
		slog.Info("capture client connected", "remote", r.RemoteAddr)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("capture listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("capture listener error", "err", err)
		}
	}()
	return srv
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       readalong — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("TTS fallback", cfg.Providers.TTSFallback.Name, cfg.Providers.TTSFallback.Model)
	printProvider("Scorer", cfg.Providers.Scorer.Name, cfg.Providers.Scorer.Model)
	printProvider("Scorer fallbk", cfg.Providers.ScorerFallback.Name, cfg.Providers.ScorerFallback.Model)
	if cfg.Reading.SpeedWPM > 0 {
		fmt.Printf("║  Reading speed   : %-19s ║\n", fmt.Sprintf("%.0f wpm", cfg.Reading.SpeedWPM))
	} else {
		fmt.Printf("║  Reading speed   : %-19s ║\n", "120 wpm (default)")
	}
	if cfg.Server.HistoryPath != "" {
		fmt.Printf("║  History file    : %-19s ║\n", truncate(cfg.Server.HistoryPath, 19))
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, truncate(value, 19))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "…"
	}
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
