package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/converse/core/protocol"
)

type memorySession struct {
	id     string
	system protocol.Message
	turns  []protocol.Message
	mu     sync.RWMutex
}

// NewMemorySession creates a Session backed by an in-memory slice, seeded
// with a system turn carrying systemPrompt. The session is assigned a unique
// UUIDv7 identifier.
func NewMemorySession(systemPrompt string) Session {
	return &memorySession{
		id:     uuid.Must(uuid.NewV7()).String(),
		system: protocol.NewMessage(protocol.RoleSystem, systemPrompt),
	}
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) System() protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

func (s *memorySession) SetSystem(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = protocol.NewMessage(protocol.RoleSystem, content)
}

func (s *memorySession) Messages() []protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]protocol.Message, 0, len(s.turns)+1)
	copied = append(copied, s.system)
	copied = append(copied, s.turns...)
	return copied
}

func (s *memorySession) Window(n int) []protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n = max(n, 0)
	start := max(len(s.turns)-n, 0)

	window := make([]protocol.Message, 0, len(s.turns)-start+1)
	window = append(window, s.system)
	window = append(window, s.turns[start:]...)
	return window
}

func (s *memorySession) AppendExchange(user, assistant protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, user, assistant)
}

func (s *memorySession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns) + 1
}

func (s *memorySession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}
