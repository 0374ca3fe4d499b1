package capture

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/pcm"
	"github.com/voicedesk/voicedesk/internal/protocol"
	"github.com/voicedesk/voicedesk/internal/resample"
)

// Sender is the outbound leg of the voice channel as the driver sees it.
type Sender interface {
	Ready() bool
	SendBinary(data []byte) error
	SendText(data []byte) error
}

// Driver runs the capture pipeline: device frame -> downsample -> encode ->
// transport. Frames arriving while the transport is not ready are dropped,
// never buffered; for live audio, stale data is worse than lost data.
type Driver struct {
	dev       Device
	out       Sender
	log       zerolog.Logger
	deviceID  string
	frameSize int

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
}

// NewDriver wires a microphone device to a transport sender.
func NewDriver(dev Device, out Sender, deviceID string, frameSize int, log zerolog.Logger) *Driver {
	return &Driver{
		dev:       dev,
		out:       out,
		log:       log,
		deviceID:  deviceID,
		frameSize: frameSize,
	}
}

// Start acquires the microphone and begins streaming. Calling Start while
// already listening is a no-op.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listening {
		return nil
	}

	frames := make(chan Frame, 8)
	cctx, cancel := context.WithCancel(ctx)
	if err := d.dev.Start(cctx, d.deviceID, d.frameSize, frames); err != nil {
		cancel()
		return err
	}

	d.listening = true
	d.cancel = cancel
	go d.pump(cctx, frames)

	d.log.Info().Str("device", d.deviceID).Int("frame_size", d.frameSize).Msg("Capture started")
	return nil
}

// Stop releases the microphone and tells the peer, best effort, that
// capture has ended. Safe to call when already stopped.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.listening {
		return
	}
	d.listening = false
	d.cancel()

	if err := d.dev.Stop(); err != nil {
		d.log.Warn().Err(err).Msg("Device stop failed")
	}

	if d.out.Ready() {
		if err := d.out.SendText(protocol.Stop()); err != nil {
			d.log.Debug().Err(err).Msg("Stop notification not delivered")
		}
	}
	d.log.Info().Msg("Capture stopped")
}

// Listening reports whether the driver currently owns the microphone.
func (d *Driver) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

func (d *Driver) pump(ctx context.Context, frames <-chan Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			d.handleFrame(f)
		}
	}
}

func (d *Driver) handleFrame(f Frame) {
	if !d.out.Ready() {
		return
	}
	mono, err := resample.Downsample(f.Samples, f.Rate, pcm.InputRate)
	if err != nil {
		d.log.Error().Err(err).Int("rate", f.Rate).Msg("Dropping unresamplable frame")
		return
	}
	if err := d.out.SendBinary(pcm.Encode(mono)); err != nil {
		d.log.Debug().Err(err).Msg("Audio frame not delivered")
	}
}
