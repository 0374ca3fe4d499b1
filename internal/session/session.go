// Package session routes traffic on an open voice channel and owns the
// client side of the conversation lifecycle: handshake, capture start/stop,
// typed input, playback dispatch, and teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voicedesk/voicedesk/internal/playback"
	"github.com/voicedesk/voicedesk/internal/protocol"
	"github.com/voicedesk/voicedesk/internal/transcript"
	"github.com/voicedesk/voicedesk/internal/transport"
)

// StatusUpdater is a display collaborator for connection state. All
// implementations must tolerate calls from the transport's read goroutine.
type StatusUpdater interface {
	SetConnected()
	SetListening()
	SetIdle()
	SetError(msg string)
}

// Player is the playback side of the session.
type Player interface {
	Enqueue(ctx context.Context, chunk []byte) (*playback.Unit, error)
	Clear()
}

// Talker drives the capture pipeline.
type Talker interface {
	Start(ctx context.Context) error
	Stop()
	Listening() bool
}

// Config assembles a session's collaborators.
type Config struct {
	Player      Player
	Transcripts *transcript.Store
	Status      StatusUpdater // optional
	Logger      zerolog.Logger
	Init        protocol.InitOptions
}

// Session implements transport.Handler and dispatches every inbound frame:
// binary to the playback scheduler, text through the protocol parser to the
// matching handler. Malformed text frames are discarded silently.
type Session struct {
	id          string
	player      Player
	transcripts *transcript.Store
	status      StatusUpdater
	log         zerolog.Logger
	initOpts    protocol.InitOptions

	mu      sync.Mutex
	tr      transport.Transport
	capture Talker
	closed  bool
}

// New creates a session. Attach must be called before Hello.
func New(cfg Config) *Session {
	id := uuid.NewString()
	return &Session{
		id:          id,
		player:      cfg.Player,
		transcripts: cfg.Transcripts,
		status:      cfg.Status,
		log:         cfg.Logger.With().Str("session", id).Logger(),
		initOpts:    cfg.Init,
	}
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Attach binds the dialed transport and the capture driver. The transport's
// read loop may already be delivering frames by the time Attach runs; every
// handler path tolerates that.
func (s *Session) Attach(tr transport.Transport, capture Talker) {
	s.mu.Lock()
	s.tr = tr
	s.capture = capture
	s.mu.Unlock()
}

// Hello sends the session configuration handshake.
func (s *Session) Hello() error {
	tr := s.transport()
	if tr == nil {
		return errors.New("session: no transport attached")
	}
	if err := tr.SendText(protocol.Init(s.initOpts)); err != nil {
		return fmt.Errorf("session: handshake: %w", err)
	}
	s.log.Info().Str("voice", s.initOpts.VoiceName).Msg("Session handshake sent")
	return nil
}

// SendText injects a typed message into the conversation. Blank input is
// ignored.
func (s *Session) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	tr := s.transport()
	if tr == nil || !tr.Ready() {
		return transport.ErrNotReady
	}
	if s.transcripts != nil {
		s.transcripts.Append(transcript.SpeakerUser, text, true)
	}
	return tr.SendText(protocol.Text(text))
}

// StartTalking acquires the microphone. A device acquisition failure is
// surfaced to the status collaborator and capture simply does not start.
func (s *Session) StartTalking(ctx context.Context) error {
	capture := s.talker()
	if capture == nil {
		return errors.New("session: no capture driver attached")
	}
	if err := capture.Start(ctx); err != nil {
		s.log.Error().Err(err).Msg("Microphone acquisition failed")
		s.setError(fmt.Sprintf("microphone unavailable: %v", err))
		return err
	}
	if s.status != nil {
		s.status.SetListening()
	}
	return nil
}

// StopTalking releases the microphone. Safe when not talking.
func (s *Session) StopTalking() {
	if capture := s.talker(); capture != nil {
		capture.Stop()
	}
	if s.status != nil {
		s.status.SetConnected()
	}
}

// Talking reports whether the microphone is live.
func (s *Session) Talking() bool {
	capture := s.talker()
	return capture != nil && capture.Listening()
}

// Shutdown stops capture, flushes playback, and closes the transport.
// Idempotent; safe to call from any goroutine at any time.
func (s *Session) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tr := s.tr
	capture := s.capture
	s.mu.Unlock()

	if capture != nil {
		capture.Stop()
	}
	s.player.Clear()
	if tr != nil {
		if tr.Ready() {
			// best effort; the peer may already be gone
			tr.SendText(protocol.CloseSession())
		}
		tr.Close()
	}
	s.log.Info().Msg("Session closed")
}

// OnBinary schedules an inbound PCM chunk for playback.
func (s *Session) OnBinary(data []byte) {
	if _, err := s.player.Enqueue(context.Background(), data); err != nil {
		s.log.Error().Err(err).Msg("Playback enqueue failed")
	}
}

// OnText parses and routes one inbound control message.
func (s *Session) OnText(data []byte) {
	ev, err := protocol.Parse(data)
	if err != nil {
		// malformed and unknown messages are dropped without fuss
		s.log.Debug().Err(err).Msg("Discarding control message")
		return
	}

	switch ev := ev.(type) {
	case protocol.Status:
		s.log.Info().Str("status", ev.Status).Str("model", ev.Model).Msg("Service status")
		if s.status != nil {
			s.status.SetConnected()
		}
	case protocol.Error:
		s.log.Warn().Str("message", ev.Message).Msg("Service reported an error")
		s.setError(ev.Message)
	case protocol.Interrupt:
		s.log.Debug().Msg("Interrupted; flushing playback")
		s.player.Clear()
	case protocol.TranscriptIn:
		if s.transcripts != nil {
			s.transcripts.Append(transcript.SpeakerUser, ev.Text, ev.Final)
		}
	case protocol.TranscriptOut:
		if s.transcripts != nil {
			s.transcripts.Append(transcript.SpeakerAssistant, ev.Text, ev.Final)
		}
	case protocol.ToolCall:
		s.log.Info().Str("tool", ev.Name).RawJSON("args", nonEmptyJSON(ev.Args)).Msg("Remote tool call")
		if s.transcripts != nil {
			s.transcripts.AddNote(fmt.Sprintf("calling %s", ev.Name))
		}
	case protocol.ToolResult:
		if s.transcripts != nil {
			s.transcripts.AddNote(fmt.Sprintf("%s finished", ev.Name))
		}
	case protocol.TurnComplete:
		s.log.Debug().Msg("Turn complete")
	case protocol.Pong:
		s.log.Debug().Msg("Pong")
	}
}

// OnClosed handles transport teardown. A transport failure is fatal to the
// session and is not retried.
func (s *Session) OnClosed(err error) {
	if err != nil {
		s.log.Error().Err(err).Msg("Connection lost")
		s.setError(fmt.Sprintf("connection lost: %v", err))
	} else {
		s.log.Info().Msg("Connection closed by peer")
		if s.status != nil {
			s.status.SetIdle()
		}
	}
	s.Shutdown()
}

func (s *Session) transport() transport.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr
}

func (s *Session) talker() Talker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture
}

func (s *Session) setError(msg string) {
	if s.status != nil {
		s.status.SetError(msg)
	}
}

func nonEmptyJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
