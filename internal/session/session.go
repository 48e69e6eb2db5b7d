// Package session provides in-memory conversation state for the answering
// pipeline.
//
// Sessions hold a bounded window of prior exchanges so follow-up questions
// carry context without growing prompts unboundedly. State lives for the
// process lifetime only; restarting the process forgets all conversations.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Role constants for rendered history.
const (
	RoleUser      = "User"
	RoleAssistant = "Assistant"
)

// DefaultMaxHistory is the number of exchanges (user/assistant pairs)
// retained per session when no limit is configured.
const DefaultMaxHistory = 2

// Message is a single turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Session holds the bounded history of one conversation.
//
// The zero value is not useful; sessions come from a Store. Each session
// carries its own lock, so concurrent requests on different sessions never
// contend with each other.
type Session struct {
	id  uuid.UUID
	max int // exchanges retained; messages capped at 2*max

	mu       sync.Mutex
	messages []Message
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// AddExchange appends a completed user/assistant pair and evicts the oldest
// pairs beyond the retention window. Partial exchanges are never recorded;
// callers append only after the answer is final.
func (s *Session) AddExchange(userInput, assistantResponse string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages,
		Message{Role: RoleUser, Content: userInput},
		Message{Role: RoleAssistant, Content: assistantResponse},
	)
	if limit := 2 * s.max; len(s.messages) > limit {
		s.messages = s.messages[len(s.messages)-limit:]
	}
}

// Messages returns a copy of the retained messages, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// History renders the retained messages as prompt text, one "Role: content"
// line per message. Returns "" for a fresh session.
func (s *Session) History() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(s.messages))
	for _, m := range s.messages {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Clear removes all retained messages.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
