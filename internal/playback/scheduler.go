// Package playback schedules synthesized audio chunks for gapless,
// strictly ordered output on the speaker device.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/pcm"
)

// Clock reads the output device's monotonic time.
type Clock interface {
	Now() time.Duration
}

// Sink realizes scheduled units on an output device.
type Sink interface {
	// Ensure lazily acquires or resumes the device. Safe to call repeatedly.
	Ensure(ctx context.Context) error
	// Play starts playback of u at u.StartAt on the device clock.
	Play(u *Unit) error
	// Stop silences u immediately. Stopping a finished unit is a no-op.
	Stop(u *Unit)
	// Close releases the device. Idempotent.
	Close() error
}

// Unit is one scheduled buffer of synthesized audio. It is owned by the
// scheduler from Enqueue until Ended fires or Clear stops it.
type Unit struct {
	ID       uint64
	Samples  []float32
	Rate     int
	StartAt  time.Duration
	Duration time.Duration

	// Ended is set by the scheduler and called by the sink when the unit
	// finishes playing naturally.
	Ended func()
}

// Scheduler owns the playback timeline. Units play strictly in enqueue
// order; a unit never starts before its predecessor's scheduled end. The
// scheduler is the sole writer of the next-available-time cursor.
type Scheduler struct {
	clock Clock
	sink  Sink
	log   zerolog.Logger

	mu       sync.Mutex
	nextID   uint64
	cursor   time.Duration
	inflight map[uint64]*Unit
}

// NewScheduler creates a scheduler over the given device clock and sink.
func NewScheduler(clock Clock, sink Sink, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		clock:    clock,
		sink:     sink,
		log:      log,
		inflight: make(map[uint64]*Unit),
	}
}

// Enqueue decodes a 16-bit little-endian PCM chunk at pcm.OutputRate and
// schedules it after everything already queued. Under steady supply the
// result is gapless; a late chunk starts immediately instead. Empty chunks
// are ignored.
func (s *Scheduler) Enqueue(ctx context.Context, chunk []byte) (*Unit, error) {
	samples := pcm.Decode(chunk)
	if len(samples) == 0 {
		return nil, nil
	}
	if err := s.sink.Ensure(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	startAt := s.cursor
	if now := s.clock.Now(); now > startAt {
		startAt = now
	}
	s.nextID++
	u := &Unit{
		ID:       s.nextID,
		Samples:  samples,
		Rate:     pcm.OutputRate,
		StartAt:  startAt,
		Duration: time.Duration(len(samples)) * time.Second / pcm.OutputRate,
	}
	u.Ended = func() { s.unitEnded(u.ID) }
	s.cursor = startAt + u.Duration
	s.inflight[u.ID] = u
	s.mu.Unlock()

	if err := s.sink.Play(u); err != nil {
		s.mu.Lock()
		delete(s.inflight, u.ID)
		s.mu.Unlock()
		return nil, err
	}
	s.log.Trace().Uint64("unit", u.ID).Dur("start_at", u.StartAt).Dur("duration", u.Duration).Msg("Scheduled playback unit")
	return u, nil
}

// Clear stops every in-flight unit, empties the set, and resets the
// timeline cursor to the current clock time. Safe to call at any time,
// including when nothing is playing.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	units := make([]*Unit, 0, len(s.inflight))
	for _, u := range s.inflight {
		units = append(units, u)
	}
	s.inflight = make(map[uint64]*Unit)
	s.cursor = s.clock.Now()
	s.mu.Unlock()

	for _, u := range units {
		s.sink.Stop(u)
	}
	if len(units) > 0 {
		s.log.Debug().Int("stopped", len(units)).Msg("Flushed pending playback")
	}
}

// InFlight returns the number of scheduled, unfinished units.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Scheduler) unitEnded(id uint64) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}
