package config_test

import (
	"testing"

	"github.com/MrWong99/readalong/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Reading: config.ReadingConfig{
			SpeedWPM: 120,
			Voice:    "alloy",
		},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.ReadingChanged {
		t.Error("expected ReadingChanged=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	oldCfg := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	newCfg := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(oldCfg, newCfg)
	if !d.LogLevelChanged {
		t.Fatal("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want %q", d.NewLogLevel, config.LogDebug)
	}
	if d.ReadingChanged {
		t.Error("expected ReadingChanged=false when only log level differs")
	}
}

func TestDiff_ReadingChanged(t *testing.T) {
	t.Parallel()
	oldCfg := &config.Config{Reading: config.ReadingConfig{SpeedWPM: 120, Voice: "alloy"}}
	newCfg := &config.Config{Reading: config.ReadingConfig{SpeedWPM: 150, Voice: "alloy"}}

	d := config.Diff(oldCfg, newCfg)
	if !d.ReadingChanged {
		t.Fatal("expected ReadingChanged=true")
	}
	if d.NewReading.SpeedWPM != 150 {
		t.Errorf("NewReading.SpeedWPM = %g, want 150", d.NewReading.SpeedWPM)
	}
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false when only reading config differs")
	}
}
