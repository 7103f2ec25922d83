// Package repository persists conversations and their message logs.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/config"
	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Store defines the persistence operations for conversations.
//
// Lookups return (nil, nil) when the session is unknown.
type Store interface {
	// CreateConversation inserts conv unless its session id already exists.
	// It reports whether a row was created.
	CreateConversation(ctx context.Context, conv *domain.Conversation) (bool, error)
	// GetConversation returns the conversation without its messages.
	GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error)
	// GetHistory returns the conversation with messages ordered by sequence.
	GetHistory(ctx context.Context, sessionID string) (*domain.Conversation, error)
	// AppendTurn stores the user message and the assistant reply as one unit,
	// assigning consecutive sequence numbers to both.
	AppendTurn(ctx context.Context, sessionID string, user, assistant *domain.Message) error
	// EndConversation marks an ACTIVE conversation COMPLETED. It reports
	// false when the session is unknown or not ACTIVE.
	EndConversation(ctx context.Context, sessionID string, endedAt time.Time) (bool, error)
	// CountActive returns the number of ACTIVE conversations.
	CountActive(ctx context.Context) (int, error)
	Close() error
}

// Open creates the store selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageSQLite:
		return NewSQLiteStore(cfg.DatabaseURL)
	case config.StoragePostgres:
		return NewPostgresStore(cfg.DatabaseURL, logger)
	case config.StorageFirestore:
		return NewFirestoreStore(ctx, cfg.FirestoreProject, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func errConversationMissing(sessionID string) error {
	return fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
}
