package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the fixed WAV header written by [EncodeWAV]:
// RIFF descriptor (12 bytes) + "fmt " chunk (24 bytes) + "data" chunk
// header (8 bytes).
const HeaderSize = 44

// pcmFormatTag is the WAVE format tag for uncompressed linear PCM.
const pcmFormatTag = 1

// ErrNotWAV is returned by [DecodeWAV] when the buffer is not a RIFF/WAVE
// container or uses a compression format other than linear PCM.
var ErrNotWAV = errors.New("audio: not a linear PCM RIFF/WAVE buffer")

// EncodeWAV serializes a clip into a WAV container with a fixed 44-byte
// header. The data-length field equals 2 × sampleCount × channels, matching
// the 16-bit sample width.
func EncodeWAV(c Clip) []byte {
	dataLen := len(c.Data)
	out := make([]byte, HeaderSize+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], pcmFormatTag)
	binary.LittleEndian.PutUint16(out[22:24], uint16(c.Format.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(c.Format.SampleRate))
	byteRate := c.Format.SampleRate * c.Format.Channels * 2
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	blockAlign := c.Format.Channels * 2
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], CanonicalBitDepth)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))
	copy(out[44:], c.Data)

	return out
}

// DecodeWAV parses a linear PCM WAV buffer and returns the contained clip.
// Only 16-bit PCM is supported; extra chunks between "fmt " and "data" are
// skipped.
func DecodeWAV(b []byte) (Clip, error) {
	if len(b) < HeaderSize || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var format Format
	sawFmt := false

	// Walk the chunk list.
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if body+size > len(b) {
			return Clip{}, fmt.Errorf("%w: truncated %q chunk", ErrNotWAV, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			tag := binary.LittleEndian.Uint16(b[body : body+2])
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if tag != pcmFormatTag || bits != CanonicalBitDepth {
				return Clip{}, fmt.Errorf("%w: format tag %d, %d-bit", ErrNotWAV, tag, bits)
			}
			format.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			sawFmt = true
		case "data":
			if !sawFmt {
				return Clip{}, fmt.Errorf("%w: data chunk before fmt", ErrNotWAV)
			}
			return Clip{Data: b[body : body+size], Format: format}, nil
		}

		// Chunks are word-aligned.
		off = body + size + size%2
	}

	return Clip{}, fmt.Errorf("%w: no data chunk", ErrNotWAV)
}
