package repository

import (
	"context"
	"sync"
	"time"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// MemoryStore keeps conversations in a map keyed by session id. Each record
// owns its messages by value.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*domain.Conversation)}
}

func (s *MemoryStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conversations[conv.SessionID]; exists {
		return false, nil
	}
	c := *conv
	c.Messages = nil
	s.conversations[conv.SessionID] = &c
	return true, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[sessionID]
	if !ok {
		return nil, nil
	}
	out := *c
	out.Messages = nil
	return &out, nil
}

func (s *MemoryStore) GetHistory(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[sessionID]
	if !ok {
		return nil, nil
	}
	out := *c
	out.Messages = append([]domain.Message(nil), c.Messages...)
	return &out, nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, sessionID string, user, assistant *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[sessionID]
	if !ok {
		return errConversationMissing(sessionID)
	}
	next := len(c.Messages) + 1
	user.Seq = next
	assistant.Seq = next + 1
	c.Messages = append(c.Messages, *user, *assistant)
	return nil
}

func (s *MemoryStore) EndConversation(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[sessionID]
	if !ok || c.Status != domain.ConversationStatusActive {
		return false, nil
	}
	c.Status = domain.ConversationStatusCompleted
	c.EndedAt = &endedAt
	return true, nil
}

func (s *MemoryStore) CountActive(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.conversations {
		if c.Status == domain.ConversationStatusActive {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
