package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	cityPrepositions = []string{"en", "de", "para", "desde"}
	compoundLeads    = map[string]bool{
		"buenos": true,
		"san":    true,
		"santa":  true,
		"los":    true,
		"el":     true,
		"la":     true,
	}
	tokenSeparators = regexp.MustCompile(`[\s,?.!]+`)
	nonLetters      = regexp.MustCompile(`[^a-zA-ZáéíóúñÁÉÍÓÚÑ]`)
)

// ExtractCity pulls a city name out of an utterance such as
// "Clima en Buenos Aires". It never returns an empty string unless
// defaultCity itself is empty.
func ExtractCity(utterance, defaultCity string) string {
	utterance = strings.ToValidUTF8(utterance, "")
	lower := strings.ToLower(utterance)
	for _, prep := range cityPrepositions {
		idx := strings.Index(lower, prep+" ")
		if idx < 0 {
			continue
		}
		start := idx + len(prep) + 1
		if len(lower) != len(utterance) {
			// lower-casing changed some rune widths
			start = alignedOffset(utterance, lower, start)
		}
		if city := cityFromTokens(utterance[start:]); city != "" {
			return city
		}
		break
	}
	return defaultCity
}

func cityFromTokens(rest string) string {
	words := splitTokens(strings.TrimSpace(rest))
	if len(words) == 0 {
		return ""
	}
	if len(words) >= 2 && compoundLeads[strings.ToLower(words[0])] {
		return words[0] + " " + words[1]
	}
	return nonLetters.ReplaceAllString(words[0], "")
}

func splitTokens(s string) []string {
	var out []string
	for _, w := range tokenSeparators.Split(s, -1) {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// alignedOffset maps a byte offset in lower back onto original by walking
// both strings rune by rune. The result never exceeds len(original).
func alignedOffset(original, lower string, offset int) int {
	i, j := 0, 0
	for i < offset && j < len(original) {
		_, lw := utf8.DecodeRuneInString(lower[i:])
		_, ow := utf8.DecodeRuneInString(original[j:])
		i += lw
		j += ow
	}
	return j
}
