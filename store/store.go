// Package store provides the conversation, message and attachment records
// collaborator used by the chat and attachment services.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wyemhu12/vikini-sub002/types"
)

// Sentinel errors. Use errors.Is for assertions.
var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the record exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a record with the same id already exists.
	ErrConflict = errors.New("already exists")
)

// Store is the persistence contract for chat records.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetConversation returns the conversation or ErrNotFound.
	GetConversation(ctx context.Context, id string) (*types.Conversation, error)
	// CreateConversation inserts c. An existing id is ErrConflict.
	CreateConversation(ctx context.Context, c types.Conversation) error
	// UpdateTitle sets the title and bumps UpdatedAt.
	UpdateTitle(ctx context.Context, id, title string) error
	// SaveMessage appends a message and returns it with id and timestamp set.
	SaveMessage(ctx context.Context, userID, conversationID string, role types.Role, content string) (types.Message, error)
	// ListMessages returns the messages of a conversation in creation order.
	ListMessages(ctx context.Context, conversationID string) ([]types.Message, error)
	// GetAttachment returns attachment metadata or ErrNotFound.
	GetAttachment(ctx context.Context, id string) (*types.Attachment, error)
	// SaveAttachment inserts or replaces attachment metadata.
	SaveAttachment(ctx context.Context, a types.Attachment) error
	// Close releases resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open creates a store for the named backend. dsn is the SQLite database
// path and is ignored for memory.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store backend %q (must be memory or sqlite)", backend)
	}
}

// OwnedConversation loads a conversation and applies the single ownership
// check: missing is ErrNotFound, someone else's is ErrForbidden.
func OwnedConversation(ctx context.Context, s Store, userID, id string) (*types.Conversation, error) {
	c, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(userID) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrForbidden)
	}
	return c, nil
}

// OwnedAttachment is OwnedConversation for attachments.
func OwnedAttachment(ctx context.Context, s Store, userID, id string) (*types.Attachment, error) {
	a, err := s.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID == "" || a.UserID != userID {
		return nil, fmt.Errorf("attachment %s: %w", id, ErrForbidden)
	}
	return a, nil
}
