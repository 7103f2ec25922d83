// Package policy validates incoming turns with an OPA policy.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Limits bounds the size of caller input.
type Limits struct {
	MaxUserIDLength  int
	MaxMessageLength int
}

// Engine is the OPA policy engine.
type Engine struct {
	query  rego.PreparedEvalQuery
	limits Limits
}

// NewEngine prepares the given policy. The module must define
// data.turn_policy.violations as a set of strings.
func NewEngine(ctx context.Context, policyContent string, limits Limits) (*Engine, error) {
	r := rego.New(
		rego.Query("data.turn_policy.violations"),
		rego.Module("turn_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, limits: limits}, nil
}

// Evaluate returns the sorted list of violations for the request.
func (e *Engine) Evaluate(ctx context.Context, req domain.TurnRequest) ([]string, error) {
	input := map[string]interface{}{
		"session_id": req.SessionID,
		"user_id":    req.UserID,
		"message":    req.Message,
		"limits": map[string]interface{}{
			"max_user_id_length": e.limits.MaxUserIDLength,
			"max_message_length": e.limits.MaxMessageLength,
		},
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	raw, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	violations := make([]string, 0, len(raw))
	for _, v := range raw {
		violations = append(violations, fmt.Sprint(v))
	}
	sort.Strings(violations)
	return violations, nil
}

// Validate returns an error wrapping domain.ErrValidation when the request
// breaks any rule.
func (e *Engine) Validate(ctx context.Context, req domain.TurnRequest) error {
	violations, err := e.Evaluate(ctx, req)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(violations, "; "))
	}
	return nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package turn_policy

violations[msg] {
	trim_space(object.get(input, "user_id", "")) == ""
	msg := "user_id is required"
}

violations[msg] {
	count(input.user_id) > input.limits.max_user_id_length
	msg := sprintf("user_id must be at most %d characters", [input.limits.max_user_id_length])
}

violations[msg] {
	trim_space(object.get(input, "message", "")) == ""
	msg := "message is required"
}

violations[msg] {
	count(input.message) > input.limits.max_message_length
	msg := sprintf("message must be at most %d characters", [input.limits.max_message_length])
}

violations[msg] {
	count(input.session_id) > 128
	msg := "session_id must be at most 128 characters"
}
`
