// Package capture bridges the microphone into the outbound voice pipeline:
// fixed-size device frames are downsampled, PCM-encoded, and handed to the
// transport while it is ready.
package capture

import "context"

// Frame is one fixed-size buffer of microphone samples at the device's
// native rate, mono.
type Frame struct {
	Samples []float32
	Rate    int
}

// Device is the host microphone port.
type Device interface {
	// Start acquires the device and delivers frames of frameSize samples
	// on out until ctx is cancelled. Frames are dropped when out is full.
	Start(ctx context.Context, deviceID string, frameSize int, out chan<- Frame) error
	// Stop halts delivery. Safe to call when not started.
	Stop() error
	// ListDevices enumerates available input devices.
	ListDevices() ([]InputDevice, error)
	// Close releases the audio subsystem. Idempotent.
	Close() error
}

// InputDevice describes an audio input device.
type InputDevice struct {
	ID      string
	Name    string
	Default bool
}
