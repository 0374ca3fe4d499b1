// Package transport provides the duplex message channel to the voice
// service: binary frames carry PCM audio, text frames carry JSON control
// messages.
package transport

import "errors"

// ErrNotReady is returned by sends attempted while the channel is not open.
var ErrNotReady = errors.New("transport: channel not ready")

// Handler receives everything the channel delivers. Callbacks are invoked
// from a single goroutine in arrival order. OnClosed fires exactly once,
// with nil for a clean shutdown.
type Handler interface {
	OnBinary(data []byte)
	OnText(data []byte)
	OnClosed(err error)
}

// Transport is the client's view of an open duplex channel.
type Transport interface {
	// Ready reports whether the channel accepts sends.
	Ready() bool
	// SendBinary writes one binary frame.
	SendBinary(data []byte) error
	// SendText writes one text frame.
	SendText(data []byte) error
	// Close tears the channel down. Idempotent.
	Close() error
}
