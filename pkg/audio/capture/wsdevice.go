package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Control messages sent by the client as text frames before and during a
// capture. Binary frames carry encoded audio chunks.
const (
	ctrlReady  = "ready"
	ctrlDenied = "permission-denied"
)

// wsReadLimit caps individual frames; encoded microphone chunks are small.
const wsReadLimit = 1 << 20

// WSDevice adapts a client websocket connection into a capture [Device].
// The client-side protocol is minimal: one text frame ("ready" or
// "permission-denied") after acquisition, then binary frames carrying
// device-native encoded audio chunks until the client closes the connection
// or the stream is closed server-side.
type WSDevice struct {
	conn *websocket.Conn
}

// NewWSDevice wraps an accepted websocket connection. conn may be nil when
// the client never connected, in which case Acquire reports
// [ErrPermissionDenied].
func NewWSDevice(conn *websocket.Conn) *WSDevice {
	return &WSDevice{conn: conn}
}

// Acquire waits for the client's acquisition handshake and starts the chunk
// read loop. Returns [ErrPermissionDenied] when no connection exists or the
// client reports that microphone access was declined.
func (d *WSDevice) Acquire(ctx context.Context) (Stream, error) {
	if d.conn == nil {
		return nil, ErrPermissionDenied
	}
	d.conn.SetReadLimit(wsReadLimit)

	typ, data, err := d.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: websocket handshake: %w", err)
	}
	if typ != websocket.MessageText {
		return nil, fmt.Errorf("capture: unexpected handshake frame type %v", typ)
	}
	switch string(data) {
	case ctrlReady:
	case ctrlDenied:
		return nil, ErrPermissionDenied
	default:
		return nil, fmt.Errorf("capture: unexpected handshake message %q", data)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &wsStream{
		conn:   d.conn,
		cancel: cancel,
		chunks: make(chan []byte, 64),
	}
	go s.readLoop(readCtx)
	return s, nil
}

// wsStream is an open websocket capture stream.
type wsStream struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	chunks chan []byte

	closeOnce sync.Once
	closeErr  error
}

// readLoop pumps binary frames into the chunk channel until the connection
// ends or the stream is closed.
func (s *wsStream) readLoop(ctx context.Context) {
	defer close(s.chunks)
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary {
			// Control frames mid-capture are ignored.
			continue
		}
		select {
		case s.chunks <- data:
		case <-ctx.Done():
			return
		}
	}
}

// Chunks returns the channel of encoded audio chunks.
func (s *wsStream) Chunks() <-chan []byte {
	return s.chunks
}

// Close stops the read loop and closes the websocket, releasing the client's
// microphone. Safe to call more than once.
func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.conn.Close(websocket.StatusNormalClosure, "capture released")
	})
	return s.closeErr
}

// Compile-time assertions.
var (
	_ Device = (*WSDevice)(nil)
	_ Stream = (*wsStream)(nil)
)
