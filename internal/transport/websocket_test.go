package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type recordingHandler struct {
	mu       sync.Mutex
	binary   [][]byte
	text     [][]byte
	closed   bool
	closeErr error
	done     chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{})}
}

func (h *recordingHandler) OnBinary(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.binary = append(h.binary, data)
}

func (h *recordingHandler) OnText(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.text = append(h.text, data)
}

func (h *recordingHandler) OnClosed(err error) {
	h.mu.Lock()
	h.closed = true
	h.closeErr = err
	h.mu.Unlock()
	close(h.done)
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.binary), len(h.text)
}

var upgrader = websocket.Upgrader{}

// echoServer upgrades the connection and echoes every frame back verbatim.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestDialAndEcho(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	h := newRecordingHandler()
	tr, err := Dial(context.Background(), wsURL(srv), h, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer tr.Close()

	if !tr.Ready() {
		t.Fatal("transport should be ready after dial")
	}

	if err := tr.SendText([]byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("send text failed: %v", err)
	}
	if err := tr.SendBinary([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("send binary failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		nb, nt := h.counts()
		if nb == 1 && nt == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("echo not received: binary=%d text=%d", nb, nt)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	h := newRecordingHandler()
	tr, err := Dial(context.Background(), wsURL(srv), h, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if tr.Ready() {
		t.Error("transport should not be ready after close")
	}
	if err := tr.SendText([]byte("x")); err != ErrNotReady {
		t.Errorf("expected ErrNotReady after close, got %v", err)
	}

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed never fired")
	}
}

func TestServerCloseReportedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		conn.Close()
	}))
	defer srv.Close()

	h := newRecordingHandler()
	tr, err := Dial(context.Background(), wsURL(srv), h, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer tr.Close()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed never fired")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeErr != nil {
		t.Errorf("normal closure should report nil, got %v", h.closeErr)
	}
	if tr.Ready() {
		t.Error("transport should not be ready after server close")
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", newRecordingHandler(), zerolog.Nop())
	if err == nil {
		t.Fatal("expected dial error for unreachable endpoint")
	}
}
