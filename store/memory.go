package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wyemhu12/vikini-sub002/types"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]types.Conversation
	messages      map[string][]types.Message
	attachments   map[string]types.Attachment
	now           func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]types.Conversation),
		messages:      make(map[string][]types.Message),
		attachments:   make(map[string]types.Attachment),
		now:           time.Now,
	}
}

// GetConversation implements Store.
func (m *MemoryStore) GetConversation(_ context.Context, id string) (*types.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

// CreateConversation implements Store.
func (m *MemoryStore) CreateConversation(_ context.Context, c types.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[c.ID]; ok {
		return fmt.Errorf("conversation %s: %w", c.ID, ErrConflict)
	}
	m.conversations[c.ID] = c
	return nil
}

// UpdateTitle implements Store.
func (m *MemoryStore) UpdateTitle(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	c.Title = title
	c.UpdatedAt = m.now().UTC()
	m.conversations[id] = c
	return nil
}

// SaveMessage implements Store.
func (m *MemoryStore) SaveMessage(_ context.Context, userID, conversationID string, role types.Role, content string) (types.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conversationID]; !ok {
		return types.Message{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	msg := types.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      m.now().UTC(),
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	return msg, nil
}

// ListMessages implements Store.
func (m *MemoryStore) ListMessages(_ context.Context, conversationID string) ([]types.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Message(nil), m.messages[conversationID]...), nil
}

// GetAttachment implements Store.
func (m *MemoryStore) GetAttachment(_ context.Context, id string) (*types.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attachments[id]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

// SaveAttachment implements Store.
func (m *MemoryStore) SaveAttachment(_ context.Context, a types.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachments[a.ID] = a
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
