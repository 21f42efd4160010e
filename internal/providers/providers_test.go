package providers

import (
	"testing"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

func TestParseAnalysisPlainJSON(t *testing.T) {
	result, err := parseAnalysis(`{"severity":"high","summary":"disk almost full","recommendation":"expand volume"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Severity != event.SeverityHigh {
		t.Fatalf("expected high severity, got %v", result.Severity)
	}
	if result.Summary != "disk almost full" {
		t.Fatalf("unexpected summary %q", result.Summary)
	}
	if result.Recommendation != "expand volume" {
		t.Fatalf("unexpected recommendation %q", result.Recommendation)
	}
}

func TestParseAnalysisStripsMarkdownFence(t *testing.T) {
	text := "```json\n{\"severity\":\"low\",\"summary\":\"fine\",\"recommendation\":\"none\"}\n```"
	result, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Severity != event.SeverityLow {
		t.Fatalf("expected low severity, got %v", result.Severity)
	}
}

func TestParseAnalysisRejectsMalformedJSON(t *testing.T) {
	if _, err := parseAnalysis("not json at all"); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestParseAnalysisRejectsMissingSeverity(t *testing.T) {
	if _, err := parseAnalysis(`{"summary":"x","recommendation":"y"}`); err == nil {
		t.Fatalf("expected an error when severity is missing")
	}
}

func TestNewAnthropicProviderDefaultsModel(t *testing.T) {
	p := NewAnthropicProvider("test-key", "")
	if p.Name() != "anthropic" {
		t.Fatalf("expected provider name anthropic, got %q", p.Name())
	}
	if p.model == "" {
		t.Fatalf("expected a default model to be set")
	}
}
