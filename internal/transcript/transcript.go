// Package transcript accumulates conversation captions: incremental
// fragments build a rolling partial line per speaker, and a final fragment
// promotes the line to history.
package transcript

import "sync"

// Speaker identifies who a line belongs to.
type Speaker int

const (
	SpeakerUser Speaker = iota
	SpeakerAssistant
	SpeakerSystem
)

func (s Speaker) String() string {
	switch s {
	case SpeakerUser:
		return "you"
	case SpeakerAssistant:
		return "assistant"
	default:
		return "system"
	}
}

// Line is one finalized or in-progress line of conversation.
type Line struct {
	Speaker Speaker
	Text    string
	Final   bool
}

// Store holds the transcript. It does no rendering; an optional notify
// callback lets a display collaborator react to changes.
type Store struct {
	mu      sync.Mutex
	history []Line
	partial map[Speaker]string
	notify  func(Line)
}

// NewStore creates an empty store. notify may be nil.
func NewStore(notify func(Line)) *Store {
	return &Store{
		partial: make(map[Speaker]string),
		notify:  notify,
	}
}

// Append adds a transcript fragment for a speaker. Fragments accumulate
// into the speaker's partial line; final promotes it to history.
func (s *Store) Append(speaker Speaker, text string, final bool) {
	s.mu.Lock()
	s.partial[speaker] += text
	line := Line{Speaker: speaker, Text: s.partial[speaker], Final: final}
	if final {
		s.history = append(s.history, line)
		delete(s.partial, speaker)
	}
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(line)
	}
}

// AddNote records a one-shot system line, such as remote tool activity.
func (s *Store) AddNote(text string) {
	s.mu.Lock()
	line := Line{Speaker: SpeakerSystem, Text: text, Final: true}
	s.history = append(s.history, line)
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(line)
	}
}

// Lines returns a snapshot of the history followed by any in-progress
// partial lines.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.history), len(s.history)+len(s.partial))
	copy(out, s.history)
	for _, sp := range []Speaker{SpeakerUser, SpeakerAssistant} {
		if text, ok := s.partial[sp]; ok {
			out = append(out, Line{Speaker: sp, Text: text})
		}
	}
	return out
}

// Reset discards everything.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.partial = make(map[Speaker]string)
}
