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

// OllamaProvider queries a local Ollama server (grounded on
// original_source/llm_analysis.py's _query_ollama: POST {model, prompt,
// stream:false, format:"json"} to OLLAMA_URL, decode result.response).
type OllamaProvider struct {
	URL    string
	Model  string
	Client *http.Client
}

// NewOllamaProvider returns a Provider backed by an Ollama server at url
// using the given model name.
func NewOllamaProvider(url, model string) *OllamaProvider {
	return &OllamaProvider{
		URL:    url,
		Model:  model,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (p *OllamaProvider) Analyze(ctx context.Context, e *event.Event) (enricher.ProviderResult, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  p.Model,
		Prompt: fmt.Sprintf(analysisPrompt, e.Message),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return enricher.ProviderResult{}, fmt.Errorf("providers: ollama returned status %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: decode ollama envelope: %w", err)
	}

	return parseAnalysis(out.Response)
}
