package chat

import "sync"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// State holds one session's conversation history. The system preamble is
// pinned: Reset restores it and Replay always emits it first, while any
// system message appended mid-conversation is stripped from replay so
// the persona is never injected twice.
type State struct {
	mu       sync.Mutex
	preamble string
	turns    []Message
}

// NewState builds a conversation seeded with the given system preamble.
func NewState(preamble string) *State {
	return &State{preamble: preamble}
}

// Append records a completed turn in submission order.
func (s *State) Append(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Message{Role: role, Content: content})
}

// Replay returns the messages to send to the generator: the preamble
// followed by the user/assistant turns, intervening system messages
// removed.
func (s *State) Replay() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, 0, len(s.turns)+1)
	if s.preamble != "" {
		out = append(out, Message{Role: RoleSystem, Content: s.preamble})
	}
	for _, turn := range s.turns {
		if turn.Role == RoleSystem {
			continue
		}
		out = append(out, turn)
	}
	return out
}

// Reset drops all turns, keeping only the preamble.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Len reports the number of recorded turns, preamble excluded.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
