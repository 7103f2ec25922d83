// Package intent maps free-text utterances to a fixed intent taxonomy.
package intent

import (
	"regexp"
	"strings"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Rule pairs an intent with the pattern that selects it.
type Rule struct {
	Intent  domain.Intent
	Pattern *regexp.Regexp
}

// Classifier evaluates its rules top to bottom; the first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier with the default Spanish keyword rules.
// Social intents come before weather so that "hola, qué tiempo..." greets.
func NewClassifier() *Classifier {
	return &Classifier{
		rules: []Rule{
			keywordRule(domain.IntentGreeting, "hola", "buenos días", "buenas tardes", "buenas noches", "saludos", "qué tal"),
			keywordRule(domain.IntentFarewell, "adiós", "chau", "hasta luego", "nos vemos", "bye"),
			keywordRule(domain.IntentHelp, "ayuda", "help", "qué puedes hacer", "cómo funciona", "comandos"),
			keywordRule(domain.IntentWeatherQuery, "clima", "temperatura", "tiempo", "pronóstico", "llover", "lluvia", "frío", "calor", "grados"),
		},
	}
}

// NewClassifierWithRules builds a classifier over a caller-supplied rule list.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Classify returns the intent of the utterance, or UNKNOWN.
func (c *Classifier) Classify(utterance string) domain.Intent {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	if normalized == "" {
		return domain.IntentUnknown
	}
	for _, r := range c.rules {
		if r.Pattern.MatchString(normalized) {
			return r.Intent
		}
	}
	return domain.IntentUnknown
}

// keywordRule compiles a whole-string, case-insensitive alternation.
func keywordRule(in domain.Intent, keywords ...string) Rule {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return Rule{
		Intent:  in,
		Pattern: regexp.MustCompile(`(?is)^.*(` + strings.Join(quoted, "|") + `).*$`),
	}
}
