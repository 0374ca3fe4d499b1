// Package protocol defines the JSON control messages exchanged on the text
// side of the voice channel. Binary frames carry raw PCM and are not
// handled here.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message type tags on the wire.
const (
	TypeInit          = "init"
	TypeStatus        = "status"
	TypeError         = "error"
	TypeInterrupt     = "interrupt"
	TypeTranscriptIn  = "transcript_in"
	TypeTranscriptOut = "transcript_out"
	TypeText          = "text"
	TypeStop          = "stop"
	TypeClose         = "close"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeToolCall      = "tool_call"
	TypeToolResult    = "tool_result"
	TypeTurnComplete  = "turn_complete"
)

// ErrUnknownType marks an inbound message whose type tag is not recognized.
// Callers are expected to ignore such messages rather than fail.
var ErrUnknownType = errors.New("protocol: unknown message type")

// Event is one inbound control message. Exactly one concrete type exists
// per message kind.
type Event interface {
	Type() string
}

// Status is an informational connection update from the service.
type Status struct {
	Status string
	Model  string
}

// Error reports a failure on the service side. The connection stays open
// unless the peer also closes it.
type Error struct {
	Message string
}

// Interrupt tells the client to flush all pending playback immediately.
type Interrupt struct{}

// TranscriptIn carries an incremental or final transcript fragment of the
// user's captured speech.
type TranscriptIn struct {
	Text  string
	Final bool
}

// TranscriptOut carries an incremental or final transcript fragment of the
// synthesized reply.
type TranscriptOut struct {
	Text  string
	Final bool
}

// ToolCall reports that the service is invoking a tool on the client's
// behalf. The call executes remotely; this is informational.
type ToolCall struct {
	Name string
	Args json.RawMessage
}

// ToolResult reports the outcome of a remote tool invocation.
type ToolResult struct {
	Name   string
	Result json.RawMessage
}

// TurnComplete marks the end of one model turn.
type TurnComplete struct{}

// Pong answers a client ping.
type Pong struct{}

func (Status) Type() string        { return TypeStatus }
func (Error) Type() string         { return TypeError }
func (Interrupt) Type() string     { return TypeInterrupt }
func (TranscriptIn) Type() string  { return TypeTranscriptIn }
func (TranscriptOut) Type() string { return TypeTranscriptOut }
func (ToolCall) Type() string      { return TypeToolCall }
func (ToolResult) Type() string    { return TypeToolResult }
func (TurnComplete) Type() string  { return TypeTurnComplete }
func (Pong) Type() string          { return TypePong }

// envelope covers the union of fields across all inbound variants.
type envelope struct {
	Type    string          `json:"type"`
	Status  string          `json:"status"`
	Model   string          `json:"model"`
	Message string          `json:"message"`
	Text    string          `json:"text"`
	Final   bool            `json:"final"`
	Name    string          `json:"name"`
	Args    json.RawMessage `json:"args"`
	Result  json.RawMessage `json:"result"`
}

// Parse decodes one inbound text frame. Malformed JSON returns a wrapped
// unmarshal error; a well-formed message with an unrecognized type returns
// ErrUnknownType.
func Parse(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: malformed message: %w", err)
	}

	switch env.Type {
	case TypeStatus:
		return Status{Status: env.Status, Model: env.Model}, nil
	case TypeError:
		return Error{Message: env.Message}, nil
	case TypeInterrupt:
		return Interrupt{}, nil
	case TypeTranscriptIn:
		return TranscriptIn{Text: env.Text, Final: env.Final}, nil
	case TypeTranscriptOut:
		return TranscriptOut{Text: env.Text, Final: env.Final}, nil
	case TypeToolCall:
		return ToolCall{Name: env.Name, Args: env.Args}, nil
	case TypeToolResult:
		return ToolResult{Name: env.Name, Result: env.Result}, nil
	case TypeTurnComplete:
		return TurnComplete{}, nil
	case TypePong:
		return Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// InitOptions configures the session handshake.
type InitOptions struct {
	VoiceName             string
	SystemInstruction     string
	EnableAffectiveDialog bool
	EnableProactiveAudio  bool
}

type initMessage struct {
	Type                  string `json:"type"`
	VoiceName             string `json:"voice_name"`
	SystemInstruction     string `json:"system_instruction"`
	EnableAffectiveDialog bool   `json:"enable_affective_dialog"`
	EnableProactiveAudio  bool   `json:"enable_proactive_audio"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bareMessage struct {
	Type string `json:"type"`
}

// Init builds the session configuration handshake, sent first on every
// connection.
func Init(opts InitOptions) []byte {
	return mustMarshal(initMessage{
		Type:                  TypeInit,
		VoiceName:             opts.VoiceName,
		SystemInstruction:     opts.SystemInstruction,
		EnableAffectiveDialog: opts.EnableAffectiveDialog,
		EnableProactiveAudio:  opts.EnableProactiveAudio,
	})
}

// Text builds a typed-input message.
func Text(text string) []byte {
	return mustMarshal(textMessage{Type: TypeText, Text: text})
}

// Stop informs the peer that audio capture has ended.
func Stop() []byte {
	return mustMarshal(bareMessage{Type: TypeStop})
}

// CloseSession informs the peer that the session is ending.
func CloseSession() []byte {
	return mustMarshal(bareMessage{Type: TypeClose})
}

// Ping requests a pong from the peer.
func Ping() []byte {
	return mustMarshal(bareMessage{Type: TypePing})
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// all builder inputs are plain strings and bools
		panic(err)
	}
	return data
}
