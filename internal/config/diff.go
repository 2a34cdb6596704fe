package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ReadingChanged bool      // true if any reading field changed
	NewReading     ReadingConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart: log level and
// reading behaviour. Provider and capture changes require a restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Reading != new.Reading {
		d.ReadingChanged = true
		d.NewReading = new.Reading
	}

	return d
}
