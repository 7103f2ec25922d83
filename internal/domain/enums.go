// Package domain defines the core domain models for the assistant.
package domain

// ConversationStatus represents the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "ACTIVE"
	ConversationStatusCompleted ConversationStatus = "COMPLETED"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Intent is the classification label attached to assistant messages.
type Intent string

const (
	IntentGreeting     Intent = "GREETING"
	IntentFarewell     Intent = "FAREWELL"
	IntentHelp         Intent = "HELP"
	IntentWeatherQuery Intent = "WEATHER_QUERY"
	IntentUnknown      Intent = "UNKNOWN"
)

// Intents lists every intent in declaration order.
var Intents = []Intent{
	IntentGreeting,
	IntentFarewell,
	IntentHelp,
	IntentWeatherQuery,
	IntentUnknown,
}
