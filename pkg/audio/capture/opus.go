package capture

import (
	"fmt"

	"layeh.com/gopus"

	"github.com/MrWong99/readalong/pkg/audio"
)

// maxOpusFrameMs is the largest frame duration an Opus packet may carry.
const maxOpusFrameMs = 120

// OpusDecoder decodes a stream of Opus packets into int16 PCM. Decoder state
// carries across consecutive packets, so one OpusDecoder must be used per
// recording.
type OpusDecoder struct {
	dec      *gopus.Decoder
	format   audio.Format
	maxFrame int
}

// NewOpusDecoder creates a decoder for Opus packets encoded at the given
// sample rate and channel count.
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("capture: create opus decoder: %w", err)
	}
	return &OpusDecoder{
		dec:      dec,
		format:   audio.Format{SampleRate: sampleRate, Channels: channels},
		maxFrame: sampleRate * maxOpusFrameMs / 1000,
	}, nil
}

// Decode decodes a single Opus packet into little-endian int16 PCM bytes.
func (d *OpusDecoder) Decode(chunk []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(chunk, d.maxFrame, false)
	if err != nil {
		return nil, fmt.Errorf("capture: opus decode: %w", err)
	}
	return int16sToBytes(pcm), nil
}

// Format reports the PCM format produced by Decode.
func (d *OpusDecoder) Format() audio.Format {
	return d.format
}

// int16sToBytes converts a slice of int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

// Compile-time assertion that OpusDecoder satisfies Decoder.
var _ Decoder = (*OpusDecoder)(nil)
