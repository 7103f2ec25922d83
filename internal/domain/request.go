package domain

import "time"

// TurnRequest is the input of a single conversational turn.
type TurnRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

// TurnResult is returned after a turn has been persisted.
type TurnResult struct {
	SessionID           string    `json:"session_id"`
	Message             string    `json:"message"`
	Intent              Intent    `json:"intent"`
	ExternalServiceUsed string    `json:"external_service_used,omitempty"`
	ConversationActive  bool      `json:"conversation_active"`
	Timestamp           time.Time `json:"timestamp"`
}

// HistoryMessage is the caller-facing view of a stored message.
type HistoryMessage struct {
	Role                Role      `json:"role"`
	Content             string    `json:"content"`
	Intent              Intent    `json:"intent,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	ExternalServiceUsed string    `json:"external_service_used,omitempty"`
}

// HistoryResponse is the full transcript of a conversation.
type HistoryResponse struct {
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Status    ConversationStatus `json:"status"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`
	Messages  []HistoryMessage   `json:"messages"`
}

// NewHistoryResponse builds the transcript view of a conversation.
func NewHistoryResponse(c *Conversation) *HistoryResponse {
	resp := &HistoryResponse{
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Status:    c.Status,
		StartedAt: c.StartedAt,
		EndedAt:   c.EndedAt,
		Messages:  make([]HistoryMessage, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		resp.Messages = append(resp.Messages, HistoryMessage{
			Role:                m.Role,
			Content:             m.Content,
			Intent:              m.Intent,
			Timestamp:           m.CreatedAt,
			ExternalServiceUsed: m.ExternalServiceUsed,
		})
	}
	return resp
}

// MetricsSummary is a point-in-time view of the main counters.
type MetricsSummary struct {
	ConversationsCreated int64 `json:"conversations_created"`
	ConversationsActive  int64 `json:"conversations_active"`
	MessagesProcessed    int64 `json:"messages_processed"`
	ExternalAPICalls     int64 `json:"external_api_calls"`
	ExternalAPIFailures  int64 `json:"external_api_failures"`
}
