// Package enricher implements the per-event severity, sentiment, entity,
// and summary enrichment (spec.md §4.3), plus the optional provider path
// that can override the heuristic result.
package enricher

import (
	"strings"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// severityKeywords mirrors llm_analysis.py's severity_keywords table
// verbatim, in declared precedence order (spec.md §4.3).
var severityKeywords = []struct {
	severity event.Severity
	keywords []string
}{
	{event.SeverityCritical, []string{"critical", "fatal", "panic", "crash", "segmentation fault"}},
	{event.SeverityHigh, []string{"error", "fail", "denied", "blocked", "attack", "exception", "unauthorized"}},
	{event.SeverityMedium, []string{"warning", "unusual", "suspicious", "timeout", "refused", "non-fatal"}},
	{event.SeverityLow, []string{"info", "debug", "normal", "success", "accepted", "connected"}},
}

// classifySeverity applies the keyword precedence table, defaulting to
// low when nothing matches (spec.md §4.3).
func classifySeverity(message string) event.Severity {
	lower := strings.ToLower(message)
	for _, tier := range severityKeywords {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				return tier.severity
			}
		}
	}
	return event.SeverityLow
}

// summarize returns the first 97 characters of message followed by "..."
// if message exceeds 100 characters, else message verbatim (spec.md §4.3).
func summarize(message string) string {
	if len(message) > 100 {
		return message[:97] + "..."
	}
	return message
}

// extractEntities tokenises on whitespace and tags each token that
// matches one of the three entity shapes, preserving order and
// duplicates; tokens matching none of them contribute no entity
// (spec.md §4.3).
func extractEntities(message string) []string {
	tokens := strings.Fields(message)
	if len(tokens) == 0 {
		return nil
	}
	entities := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tag, ok := tagToken(tok); ok {
			entities = append(entities, tag)
		}
	}
	return entities
}

func tagToken(tok string) (string, bool) {
	if isIPv4(tok) {
		return "IP:" + tok, true
	}
	if strings.ContainsAny(tok, `/\`) {
		return "FILE:" + tok, true
	}
	lower := strings.ToLower(tok)
	if strings.HasPrefix(lower, "user:") || strings.Contains(lower, "username") {
		return "USER:" + tok, true
	}
	return "", false
}

func isIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		n := 0
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
			n = n*10 + int(r-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}
