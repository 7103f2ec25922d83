// Package reply produces the assistant's answer for a classified utterance.
package reply

import (
	"context"
	"fmt"
	"sync"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Reply is the generated answer and, when live data was used, the provider tag.
type Reply struct {
	Text            string
	ExternalService string
}

// Func produces a reply for one intent.
type Func func(ctx context.Context, utterance string) (Reply, error)

// Registry stores reply functions keyed by intent.
type Registry struct {
	mu      sync.RWMutex
	replies map[domain.Intent]Func
}

// NewRegistry creates an empty reply registry.
func NewRegistry() *Registry {
	return &Registry{
		replies: make(map[domain.Intent]Func),
	}
}

// Register adds a reply function for an intent.
func (r *Registry) Register(intent domain.Intent, fn Func) error {
	if intent == "" {
		return fmt.Errorf("intent is required")
	}
	if fn == nil {
		return fmt.Errorf("reply func is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.replies[intent]; exists {
		return fmt.Errorf("reply already registered for %s", intent)
	}
	r.replies[intent] = fn
	return nil
}

// MustRegister adds a reply function or panics.
func (r *Registry) MustRegister(intent domain.Intent, fn Func) {
	if err := r.Register(intent, fn); err != nil {
		panic(err)
	}
}

// Execute runs the reply function for the intent.
func (r *Registry) Execute(ctx context.Context, intent domain.Intent, utterance string) (Reply, error) {
	r.mu.RLock()
	fn := r.replies[intent]
	r.mu.RUnlock()
	if fn == nil {
		return Reply{}, fmt.Errorf("no reply registered for %s", intent)
	}
	return fn(ctx, utterance)
}

// Static returns a Func that always answers with text.
func Static(text string) Func {
	return func(context.Context, string) (Reply, error) {
		return Reply{Text: text}, nil
	}
}
