// Package metrics records counters and latencies for processed turns.
package metrics

import (
	"time"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Sink observes the assistant. Implementations must be safe for concurrent
// use and must never fail.
type Sink interface {
	ConversationCreated()
	ConversationEnded()
	MessageProcessed()
	IntentDetected(intent domain.Intent)
	ExternalCall()
	ExternalFailure()
	ObserveLatency(intent domain.Intent, d time.Duration)
	SetActive(n int)
	Summary() domain.MetricsSummary
}
