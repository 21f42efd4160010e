package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Shafiyullah/siem-cyber/internal/enricher"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// AnthropicProvider asks Claude for the same severity/summary/
// recommendation triple the other providers produce, selected by
// LLM_PROVIDER=anthropic (SPEC_FULL.md §4.3). There is no precedent for
// this provider in the original Python implementation; its prompt
// mirrors the Ollama/Gemini prompt for a consistent response contract.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider returns a Provider backed by the Anthropic API.
func NewAnthropicProvider(apiKey string, model anthropic.Model) *AnthropicProvider {
	if model == "" {
		model = anthropic.ModelClaude3_5HaikuLatest
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Analyze(ctx context.Context, e *event.Event) (enricher.ProviderResult, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(analysisPrompt, e.Message))),
		},
	})
	if err != nil {
		return enricher.ProviderResult{}, fmt.Errorf("providers: anthropic request failed: %w", err)
	}
	if len(msg.Content) == 0 {
		return enricher.ProviderResult{}, fmt.Errorf("providers: anthropic returned no content blocks")
	}

	return parseAnalysis(msg.Content[0].Text)
}
