// Package providers implements the optional LLM-backed enrichment
// overrides described in spec.md §4.3. Each provider sends the event
// message to an external model and parses back a severity/summary/
// recommendation triple, grounded on the original LLMAnalyzer's
// _query_ollama/_query_gemini prompt shape (original_source/llm_analysis.py).
package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Shafiyullah/siem-cyber/internal/enricher"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// analysisPrompt is the instruction template shared by every HTTP-based
// provider; it mirrors the original Python prompt verbatim in intent.
const analysisPrompt = `Analyze this system log: %q
Return ONLY a JSON object with:
- severity: (low, medium, high, critical)
- summary: (concise explanation)
- recommendation: (actionable fix)
Do not include any other text.`

// rawAnalysis is the JSON shape every provider is asked to return.
type rawAnalysis struct {
	Severity       string `json:"severity"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
}

func parseAnalysis(text string) (enricher.ProviderResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: malformed analysis response: %w", err)
	}
	if raw.Severity == "" {
		return enricher.ProviderResult{}, fmt.Errorf("providers: analysis response missing severity")
	}

	return enricher.ProviderResult{
		Severity:       event.Severity(strings.ToLower(raw.Severity)),
		Summary:        raw.Summary,
		Recommendation: raw.Recommendation,
	}, nil
}
