package enricher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shafiyullah/siem-cyber/internal/telemetry"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// errNoProvider is returned by noneProvider.Analyze so Enrich always
// takes the silent-fallback branch without logging a spurious warning.
var errNoProvider = errors.New("enricher: no provider configured")

// ProviderResult is what an optional LLM provider returns in place of the
// heuristic severity/summary/recommendation (spec.md §4.3).
type ProviderResult struct {
	Severity       event.Severity
	Summary        string
	Recommendation string
}

// Provider is the optional enrichment override. Implementations call out
// to an LLM backend; any error, timeout, or malformed response must be
// reported via the returned error so Enrich can fall back silently to the
// heuristic result (spec.md §4.3, §7 ProviderFailure). A Provider must
// never block the pipeline indefinitely; it should respect ctx.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, e *event.Event) (ProviderResult, error)
}

// noneProvider is the default Provider: it does nothing, so Enrich always
// falls back to the heuristic path. LLM_PROVIDER=local (the default, also
// used when it is unset) selects this.
type noneProvider struct{}

// NoneProvider returns the zero-configuration Provider that never
// overrides the heuristic result.
func NoneProvider() Provider { return noneProvider{} }

func (noneProvider) Name() string { return "none" }

func (noneProvider) Analyze(context.Context, *event.Event) (ProviderResult, error) {
	return ProviderResult{}, errNoProvider
}

// Enricher runs the heuristic transform on every event, then gives an
// optional Provider a chance to override severity/summary/recommendation.
// A Provider failure is logged and otherwise invisible to the caller: the
// heuristic fields it computed first are left standing (spec.md §4.3).
type Enricher struct {
	provider Provider
	log      *slog.Logger
	metrics  *telemetry.Metrics
}

// New returns an Enricher. A nil provider defaults to NoneProvider(); a
// nil logger defaults to slog.Default().
func New(provider Provider, log *slog.Logger) *Enricher {
	if provider == nil {
		provider = NoneProvider()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{provider: provider, log: log}
}

// WithMetrics attaches a Prometheus metrics provider used to count
// provider failures; without it, the increments are skipped.
func (en *Enricher) WithMetrics(m *telemetry.Metrics) *Enricher {
	en.metrics = m
	return en
}

// Enrich mutates e in place with the heuristic fields, then attempts the
// provider override. It never returns an error: provider failure is
// recorded via a log line and the heuristic enrichment stands.
func (en *Enricher) Enrich(ctx context.Context, e *event.Event) {
	e.Severity = classifySeverity(e.Message)
	e.Sentiment = sentimentFor(e.Message)
	e.KeyEntities = extractEntities(e.Message)
	e.Summary = summarize(e.Message)

	result, err := en.provider.Analyze(ctx, e)
	if err != nil {
		if en.provider.Name() != "none" {
			en.log.WarnContext(ctx, "enrichment provider failed, using heuristic result",
				"provider", en.provider.Name(), "source", e.Source,
				"error", fmt.Errorf("%w: %v", event.ErrProviderFailed, err))
			if en.metrics != nil {
				en.metrics.ProviderFailures.WithLabelValues(en.provider.Name()).Inc()
			}
		}
		return
	}

	if result.Severity != "" {
		e.Severity = result.Severity
	}
	if result.Summary != "" {
		e.Summary = result.Summary
	}
	if result.Recommendation != "" {
		e.Recommendation = result.Recommendation
	}
}
