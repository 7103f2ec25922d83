package domain

import "time"

// Conversation is a session thread and its ordered message log.
type Conversation struct {
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Status    ConversationStatus `json:"status"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`
	Messages  []Message          `json:"messages,omitempty"`
}

// Active reports whether the conversation still accepts turns as ACTIVE.
func (c *Conversation) Active() bool {
	return c.Status == ConversationStatusActive
}

// Message is a single entry in a conversation log.
type Message struct {
	Seq                 int       `json:"seq"`
	Role                Role      `json:"role"`
	Content             string    `json:"content"`
	Intent              Intent    `json:"intent,omitempty"`
	ExternalServiceUsed string    `json:"external_service_used,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// WeatherSnapshot is a point-in-time reading returned by the weather provider.
type WeatherSnapshot struct {
	Location    string
	Temperature float64
	Humidity    int
	Conditions  string
}
