package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Shafiyullah/siem-cyber/internal/enricher"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

// GeminiProvider queries the Gemini REST API (grounded on
// original_source/llm_analysis.py's _query_gemini: a generateContent
// call with the prompt as the sole content part, key passed as a query
// parameter).
type GeminiProvider struct {
	APIKey string
	Client *http.Client
}

// NewGeminiProvider returns a Provider backed by the Gemini REST API.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{APIKey: apiKey, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Analyze(ctx context.Context, e *event.Event) (enricher.ProviderResult, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: fmt.Sprintf(analysisPrompt, e.Message)}}}},
	})
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", geminiEndpoint, p.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return enricher.ProviderResult{}, fmt.Errorf("providers: gemini returned status %d", resp.StatusCode)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: decode gemini envelope: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return enricher.ProviderResult{}, fmt.Errorf("providers: gemini returned no candidates")
	}

	return parseAnalysis(out.Candidates[0].Content.Parts[0].Text)
}
