// Package audio provides the PCM primitives shared by the capture pipeline
// and the scoring transport: 16-bit little-endian PCM clips, conversion to
// the canonical scoring format, and the WAV container used to ship audio to
// the pronunciation scorer.
package audio

import (
	"fmt"
	"time"
)

// Canonical scoring format: everything sent to the scorer is linear PCM,
// mono, 16 kHz, 16-bit. Scorer backends rely on this and do not resample.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16
)

// Format describes the sample rate and channel count of a PCM buffer.
type Format struct {
	SampleRate int
	Channels   int
}

// Canonical is the [Format] of all audio handed to the scorer.
var Canonical = Format{SampleRate: CanonicalSampleRate, Channels: CanonicalChannels}

// String returns a human-readable form such as "48000Hz stereo".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// Clip is a decoded audio buffer held in memory. Data is interleaved
// little-endian int16 PCM.
type Clip struct {
	Data   []byte
	Format Format
}

// Samples returns the number of per-channel sample frames in the clip.
func (c Clip) Samples() int {
	if c.Format.Channels <= 0 {
		return 0
	}
	return len(c.Data) / 2 / c.Format.Channels
}

// Duration returns the playback duration of the clip.
func (c Clip) Duration() time.Duration {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Samples()) * time.Second / time.Duration(c.Format.SampleRate)
}
