package ws

import (
	"time"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Frame types from client to server
const (
	TypeHello   = "hello"
	TypeMessage = "message"
	TypeEnd     = "end"
)

// Frame types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeReply    = "reply"
	TypeEnded    = "ended"
	TypeError    = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeValidation      = "validation_failed"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeInternalError   = "internal_error"
)

// BaseMessage contains common fields for all frames.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage opens a conversation channel. SessionID resumes an
// existing conversation.
type HelloMessage struct {
	BaseMessage
	UserID string `json:"user_id"`
}

type HelloAckMessage struct {
	BaseMessage
	UserID string `json:"user_id"`
}

// UserMessage carries one user utterance.
type UserMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// ReplyMessage is the assistant side of a turn.
type ReplyMessage struct {
	BaseMessage
	Message             string        `json:"message"`
	Intent              domain.Intent `json:"intent"`
	ExternalServiceUsed string        `json:"external_service_used,omitempty"`
	ConversationActive  bool          `json:"conversation_active"`
	Timestamp           time.Time     `json:"timestamp"`
}

// EndedMessage is broadcast to every connection of a session once the
// conversation is completed.
type EndedMessage struct {
	BaseMessage
}

type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newBase(typ, requestID, sessionID string) BaseMessage {
	return BaseMessage{
		Type:      typ,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		SessionID: sessionID,
	}
}

func newReply(requestID string, res *domain.TurnResult) ReplyMessage {
	return ReplyMessage{
		BaseMessage:         newBase(TypeReply, requestID, res.SessionID),
		Message:             res.Message,
		Intent:              res.Intent,
		ExternalServiceUsed: res.ExternalServiceUsed,
		ConversationActive:  res.ConversationActive,
		Timestamp:           res.Timestamp,
	}
}
