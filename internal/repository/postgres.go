package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

//go:embed migrations.sql
var migrations embed.FS

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore connects to dsn (URL or key=value form) and applies the
// schema.
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("postgres store ready")
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, user_id, status, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO NOTHING`,
		conv.SessionID, conv.UserID, string(conv.Status), conv.StartedAt, nullTime(conv.EndedAt))
	if err != nil {
		return false, fmt.Errorf("error creating conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := scanConversation(s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, status, started_at, ended_at
		FROM conversations
		WHERE session_id = $1`, sessionID))
	if err != nil {
		return nil, fmt.Errorf("error querying conversation: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := s.GetConversation(ctx, sessionID)
	if err != nil || conv == nil {
		return conv, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, role, content, intent, external_service, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	conv.Messages, err = scanMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("error scanning messages: %w", err)
	}
	return conv, nil
}

// AppendTurn locks the conversation row so concurrent turns on the same
// session get distinct sequence numbers.
func (s *PostgresStore) AppendTurn(ctx context.Context, sessionID string, user, assistant *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT session_id FROM conversations WHERE session_id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if err == sql.ErrNoRows {
		return errConversationMissing(sessionID)
	}
	if err != nil {
		return fmt.Errorf("error locking conversation: %w", err)
	}

	var last int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = $1`, sessionID).Scan(&last); err != nil {
		return fmt.Errorf("error reading sequence: %w", err)
	}

	user.Seq = last + 1
	assistant.Seq = last + 2
	for _, m := range []*domain.Message{user, assistant} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, seq, role, content, intent, external_service, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sessionID, m.Seq, string(m.Role), m.Content, nullString(string(m.Intent)), nullString(m.ExternalServiceUsed), m.CreatedAt); err != nil {
			return fmt.Errorf("error inserting message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) EndConversation(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = $1, ended_at = $2
		WHERE session_id = $3 AND status = $4`,
		string(domain.ConversationStatusCompleted), endedAt, sessionID, string(domain.ConversationStatusActive))
	if err != nil {
		return false, fmt.Errorf("error ending conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE status = $1`, string(domain.ConversationStatusActive)).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting active conversations: %w", err)
	}
	return n, nil
}
