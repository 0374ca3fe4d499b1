package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSConn is a websocket-backed Transport.
type WSConn struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	ready     atomic.Bool
}

// Dial connects to the voice service and starts the read loop delivering
// frames to h. The returned transport is ready until the connection drops
// or Close is called.
func Dial(ctx context.Context, url string, h Handler, log zerolog.Logger) (*WSConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}

	t := &WSConn{conn: conn, log: log}
	t.ready.Store(true)
	go t.readLoop(h)
	return t, nil
}

// readLoop is the single reader; message order on the wire is the order the
// handler sees.
func (t *WSConn) readLoop(h Handler) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			t.ready.Store(false)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			h.OnClosed(err)
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			h.OnBinary(data)
		case websocket.TextMessage:
			h.OnText(data)
		default:
			t.log.Debug().Int("kind", kind).Msg("Ignoring unexpected frame kind")
		}
	}
}

// Ready reports whether the channel accepts sends.
func (t *WSConn) Ready() bool {
	return t.ready.Load()
}

// SendBinary writes one binary frame. Safe for concurrent use with SendText.
func (t *WSConn) SendBinary(data []byte) error {
	return t.write(websocket.BinaryMessage, data)
}

// SendText writes one text frame. Safe for concurrent use with SendBinary.
func (t *WSConn) SendText(data []byte) error {
	return t.write(websocket.TextMessage, data)
}

func (t *WSConn) write(kind int, data []byte) error {
	if !t.ready.Load() {
		return ErrNotReady
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(kind, data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Close sends a close frame and tears the connection down. Repeated calls
// are no-ops.
func (t *WSConn) Close() error {
	t.closeOnce.Do(func() {
		t.ready.Store(false)
		t.writeMu.Lock()
		// best effort; the peer may already be gone
		t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		t.conn.Close()
	})
	return nil
}
