package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/pcm"
)

// DeviceSink plays scheduled units on the default PortAudio output device.
// The stream is opened lazily on first Ensure; until then the sink holds no
// audio resources. DeviceSink also serves as the scheduler's Clock.
type DeviceSink struct {
	log   zerolog.Logger
	epoch time.Time

	mu     sync.Mutex
	stream *portaudio.Stream
	queue  []*sinkEntry
	closed bool
}

type sinkEntry struct {
	unit    *Unit
	pos     int
	stopped bool
}

// NewDeviceSink creates an unopened sink. The device clock starts at zero.
func NewDeviceSink(log zerolog.Logger) *DeviceSink {
	return &DeviceSink{log: log, epoch: time.Now()}
}

// Now returns the monotonic device clock time.
func (d *DeviceSink) Now() time.Duration {
	return time.Since(d.epoch)
}

// Ensure opens and starts the output stream if it is not already running.
// PortAudio streams start suspended after Open; Start is the resume step.
func (d *DeviceSink) Ensure(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("playback: sink is closed")
	}
	if d.stream != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("playback: failed to initialize PortAudio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(pcm.OutputRate), 0, d.fill)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("playback: failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("playback: failed to start output stream: %w", err)
	}
	d.stream = stream
	d.log.Debug().Msg("Output stream started")
	return nil
}

// Play queues a unit for output. Units are consumed in the order played,
// which matches schedule order because the scheduler serializes starts.
func (d *DeviceSink) Play(u *Unit) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("playback: sink is closed")
	}
	d.queue = append(d.queue, &sinkEntry{unit: u})
	return nil
}

// Stop drops a unit from the output queue. Stopping a unit that already
// finished, or was never queued, is a no-op.
func (d *DeviceSink) Stop(u *Unit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.queue {
		if e.unit.ID == u.ID {
			e.stopped = true
		}
	}
}

// Close stops and releases the output stream. Idempotent.
func (d *DeviceSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.queue = nil
	if d.stream != nil {
		d.stream.Stop()
		d.stream.Close()
		d.stream = nil
		portaudio.Terminate()
	}
	return nil
}

// fill is the PortAudio output callback. It renders the head of the queue
// into out, leaving silence for any span before the head's start time.
func (d *DeviceSink) fill(out []float32) {
	ended := d.fillAt(out, d.Now())
	for _, u := range ended {
		if u.Ended != nil {
			u.Ended()
		}
	}
}

// fillAt writes queued samples due at time now into out and returns the
// units that finished. Gaps render as silence.
func (d *DeviceSink) fillAt(out []float32, now time.Duration) []*Unit {
	for i := range out {
		out[i] = 0
	}

	d.mu.Lock()
	var ended []*Unit
	filled := 0
	for len(d.queue) > 0 && filled < len(out) {
		head := d.queue[0]
		if head.stopped {
			d.queue = d.queue[1:]
			continue
		}
		if head.pos == 0 && head.unit.StartAt > now {
			// not due yet; emit silence until the next callback
			break
		}
		n := copy(out[filled:], head.unit.Samples[head.pos:])
		head.pos += n
		filled += n
		if head.pos >= len(head.unit.Samples) {
			ended = append(ended, head.unit)
			d.queue = d.queue[1:]
		}
	}
	d.mu.Unlock()
	return ended
}
