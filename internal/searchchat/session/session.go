package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/longkey1/searchchat/internal/searchchat"
)

// Greeting is the assistant message every new session starts with.
const Greeting = "Hi, I'm a chatbot who can search the web. How can I help you?"

// Session represents one interactive conversation. It lives in memory for
// the lifetime of the surface that created it and is never written to disk.
type Session struct {
	ID        string    `json:"id" yaml:"id"`       // UUID v4
	Model     string    `json:"model" yaml:"model"` // Format: "provider:model"
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	mu         sync.RWMutex
	messages   []searchchat.Message
	credential searchchat.Credential
}

// New creates a session seeded with the greeting message.
func New(model string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
		messages: []searchchat.Message{
			{Role: searchchat.RoleAssistant, Content: Greeting, Timestamp: now},
		},
	}
}

// Append adds a message to the transcript. Readers either see the whole
// message or none of it.
func (s *Session) Append(msg searchchat.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.UpdatedAt = msg.Timestamp
	s.mu.Unlock()
}

// AddMessage adds a new message to the session
func (s *Session) AddMessage(role searchchat.Role, content string) {
	s.Append(searchchat.NewMessage(role, content))
}

// All returns a copy of the transcript in insertion order.
func (s *Session) All() []searchchat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]searchchat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message.
func (s *Session) Last() searchchat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages[len(s.messages)-1]
}

// MessageCount returns the number of messages in the session
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// SetCredential stores the API secret for this session only.
func (s *Session) SetCredential(c searchchat.Credential) {
	s.mu.Lock()
	s.credential = c
	s.mu.Unlock()
}

// Credential returns the session's API secret.
func (s *Session) Credential() searchchat.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// HasCredential reports whether a non-blank secret has been supplied.
func (s *Session) HasCredential() bool {
	return !s.Credential().Empty()
}

// GetShortID returns the shortened session ID (first 8 characters)
func (s *Session) GetShortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}
