// Package capture implements the microphone capture pipeline: exclusive
// acquisition of a capture device, collection of the device-native encoded
// recording, and normalization into the canonical WAV format expected by the
// pronunciation scorer.
//
// The pipeline is deliberately forgiving on the decode path: when the
// captured chunks cannot be decoded, [Recorder.Stop] hands the original
// encoded buffer back to the caller instead of failing the whole recording.
// Device release is guaranteed on every Stop path, decode failure included.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/readalong/pkg/audio"
)

var (
	// ErrPermissionDenied is returned by [Recorder.Start] when the user
	// declined microphone access or no capture device exists.
	ErrPermissionDenied = errors.New("capture: microphone permission denied or no device present")

	// ErrCaptureActive is returned by [Recorder.Start] when a capture session
	// is already open. The microphone is an exclusively-held resource; at most
	// one session may be active per recorder.
	ErrCaptureActive = errors.New("capture: a capture session is already active")

	// ErrNotRecording is returned by [Recorder.Stop] when no capture session
	// is active.
	ErrNotRecording = errors.New("capture: no active capture session")
)

// Device abstracts a microphone source. Implementations wrap whatever
// transport delivers the client's encoded audio (see [WSDevice]).
type Device interface {
	// Acquire opens the device and starts delivering encoded chunks.
	// Implementations return [ErrPermissionDenied] when the user declined
	// access or no device is present.
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an open capture stream. The chunk channel is closed when the
// source ends or the stream is closed.
type Stream interface {
	// Chunks returns the channel of device-native encoded audio chunks.
	Chunks() <-chan []byte

	// Close releases the underlying device. Safe to call more than once.
	Close() error
}

// Decoder turns device-native encoded chunks into int16 little-endian PCM.
// A decoder instance is stateful across the chunks of one recording and must
// not be reused between recordings.
type Decoder interface {
	// Decode decodes a single encoded chunk into PCM.
	Decode(chunk []byte) ([]byte, error)

	// Format reports the sample rate and channel count of decoded PCM.
	Format() audio.Format
}

// Result is the outcome of one capture session.
type Result struct {
	// WAV is the canonical uncompressed buffer (mono 16 kHz 16-bit, 44-byte
	// header). Nil when RawFallback is set.
	WAV []byte

	// Raw is the concatenated device-native encoded capture. Set only when
	// decoding failed and the pipeline degraded to forwarding the original
	// buffer.
	Raw []byte

	// RawFallback reports whether decoding failed and Raw carries the
	// original encoded bytes instead of WAV.
	RawFallback bool

	// SampleCount is the number of canonical mono samples in WAV. Zero when
	// RawFallback is set.
	SampleCount int

	// Elapsed is the wall-clock recording duration.
	Elapsed time.Duration
}

// Option is a functional option for configuring a [Recorder].
type Option func(*Recorder)

// WithDecoderFactory sets the factory producing a fresh [Decoder] for each
// recording. The default factory creates an Opus decoder for 48 kHz mono
// input (the usual client microphone format).
func WithDecoderFactory(f func() (Decoder, error)) Option {
	return func(r *Recorder) {
		r.newDecoder = f
	}
}

// Recorder drives one capture session at a time against a [Device].
// All exported methods are safe for concurrent use; exclusivity of the
// microphone is enforced by [ErrCaptureActive].
type Recorder struct {
	dev        Device
	newDecoder func() (Decoder, error)

	// mu guards sess. A non-nil sess means a capture is active; Stop takes
	// ownership of the session under mu, so concurrent Stop calls race for
	// it and exactly one wins.
	mu   sync.Mutex
	sess *captureSession
}

// captureSession holds the state of one in-flight recording. The chunk
// buffer is written only by the collector goroutine and read only after
// collected is closed, so it needs no locking of its own.
type captureSession struct {
	stream    Stream
	chunks    [][]byte
	collected chan struct{}
	startedAt time.Time
}

// NewRecorder creates a Recorder over the given device.
func NewRecorder(dev Device, opts ...Option) *Recorder {
	r := &Recorder{
		dev: dev,
		newDecoder: func() (Decoder, error) {
			return NewOpusDecoder(48000, 1)
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Active reports whether a capture session is currently open.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess != nil
}

// Start acquires the microphone and begins collecting the device-native
// encoded recording. Returns [ErrCaptureActive] if a session is already open
// and [ErrPermissionDenied] when the device cannot be acquired.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess != nil {
		return ErrCaptureActive
	}

	stream, err := r.dev.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("capture: acquire device: %w", err)
	}

	sess := &captureSession{
		stream:    stream,
		collected: make(chan struct{}),
		startedAt: time.Now(),
	}
	r.sess = sess

	go collect(sess)

	slog.Debug("capture started")
	return nil
}

// collect drains the stream's chunk channel into the session buffer. It runs
// until the channel closes (source ended or stream was closed by Stop).
func collect(sess *captureSession) {
	defer close(sess.collected)
	for chunk := range sess.stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		sess.chunks = append(sess.chunks, chunk)
	}
}

// Stop finalizes the recording and normalizes it into the canonical WAV
// format. The device is always released, even when decoding fails; in that
// case the original encoded buffer is returned with RawFallback set rather
// than an error.
func (r *Recorder) Stop() (*Result, error) {
	r.mu.Lock()
	sess := r.sess
	r.sess = nil
	r.mu.Unlock()
	if sess == nil {
		return nil, ErrNotRecording
	}

	// Release the device first. Closing the stream closes the chunk channel,
	// which lets the collector goroutine finish.
	closeErr := sess.stream.Close()
	<-sess.collected

	if closeErr != nil {
		slog.Warn("capture: device release reported error", "err", closeErr)
	}

	elapsed := time.Since(sess.startedAt)
	pcm, format, err := r.decode(sess.chunks)
	if err != nil {
		slog.Warn("capture: decode failed, forwarding raw buffer", "err", err, "chunks", len(sess.chunks))
		return &Result{
			Raw:         concat(sess.chunks),
			RawFallback: true,
			Elapsed:     elapsed,
		}, nil
	}

	canonical := audio.ToCanonical(audio.Clip{Data: pcm, Format: format})
	return &Result{
		WAV:         audio.EncodeWAV(canonical),
		SampleCount: canonical.Samples(),
		Elapsed:     elapsed,
	}, nil
}

// decode runs a fresh decoder over all captured chunks.
func (r *Recorder) decode(chunks [][]byte) ([]byte, audio.Format, error) {
	dec, err := r.newDecoder()
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("capture: create decoder: %w", err)
	}

	var pcm []byte
	for i, chunk := range chunks {
		out, err := dec.Decode(chunk)
		if err != nil {
			return nil, audio.Format{}, fmt.Errorf("capture: decode chunk %d/%d: %w", i+1, len(chunks), err)
		}
		pcm = append(pcm, out...)
	}
	return pcm, dec.Format(), nil
}

// concat joins captured chunks into one buffer for the raw-fallback path.
func concat(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
