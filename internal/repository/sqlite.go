package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !memory {
		dsn = withFileDefaults(dsn)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	// Shared-cache connections fail with SQLITE_LOCKED instead of waiting, so
	// they are serialized the same way.
	if memory || strings.Contains(dsn, "cache=shared") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// fileDefaults are applied to file databases unless the DSN sets them.
// WAL lets readers run beside the writer, and immediate transactions take
// the write lock at BEGIN so busy_timeout covers them.
var fileDefaults = []struct{ key, value string }{
	{"_busy_timeout", "5000"},
	{"_journal_mode", "WAL"},
	{"_txlock", "immediate"},
}

func withFileDefaults(dsn string) string {
	var params []string
	for _, d := range fileDefaults {
		if !strings.Contains(dsn, d.key+"=") {
			params = append(params, d.key+"="+d.value)
		}
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_status ON conversations(status)`,
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			intent TEXT,
			external_service TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES conversations(session_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a conversation unless the session id exists.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (session_id, user_id, status, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`,
		conv.SessionID, conv.UserID, conv.Status, conv.StartedAt, nullTime(conv.EndedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetConversation retrieves a conversation by session id.
func (s *SQLiteStore) GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return scanConversation(s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, status, started_at, ended_at FROM conversations WHERE session_id = ?`,
		sessionID))
}

// GetHistory retrieves a conversation and its messages.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := s.GetConversation(ctx, sessionID)
	if err != nil || conv == nil {
		return conv, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, role, content, intent, external_service, created_at FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conv.Messages, err = scanMessages(rows)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// AppendTurn writes both messages of a turn in one transaction.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, user, assistant *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE session_id = ?`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errConversationMissing(sessionID)
	}
	if err != nil {
		return err
	}

	var last int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?`, sessionID).Scan(&last); err != nil {
		return err
	}

	user.Seq = last + 1
	assistant.Seq = last + 2
	for _, m := range []*domain.Message{user, assistant} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, role, content, intent, external_service, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, m.Seq, m.Role, m.Content, nullString(string(m.Intent)), nullString(m.ExternalServiceUsed), m.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// EndConversation completes an ACTIVE conversation.
func (s *SQLiteStore) EndConversation(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET status = ?, ended_at = ? WHERE session_id = ? AND status = ?`,
		domain.ConversationStatusCompleted, endedAt, sessionID, domain.ConversationStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountActive counts ACTIVE conversations.
func (s *SQLiteStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE status = ?`, domain.ConversationStatusActive).Scan(&n)
	return n, err
}
