package repository

import (
	"database/sql"
	"time"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanConversation reads a conversation header; a missing row yields nil, nil.
func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	var endedAt sql.NullTime
	err := row.Scan(&conv.SessionID, &conv.UserID, &conv.Status, &conv.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		conv.EndedAt = &t
	}
	return &conv, nil
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var intent, external sql.NullString
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &intent, &external, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Intent = domain.Intent(intent.String)
		m.ExternalServiceUsed = external.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
