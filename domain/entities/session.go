package entities

import (
	"errors"
	"sync"
	"time"
)

// Sender identifies who a chat message is attributed to.
type Sender string

const (
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// ChatMessage is one line of the on-screen conversation log.
type ChatMessage struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the conversation log of one client run. It is held in memory
// only and lost when the client exits.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	messages []ChatMessage
}

// NewSession creates an empty session
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		messages:  make([]ChatMessage, 0),
	}
}

// AddMessage appends a message and returns it.
func (s *Session) AddMessage(sender Sender, text string) ChatMessage {
	message := ChatMessage{
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()

	return message
}

// Messages returns a copy of the log in insertion order.
func (s *Session) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastMessage returns the most recent message, if any.
func (s *Session) LastMessage() (ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return ChatMessage{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	return nil
}
