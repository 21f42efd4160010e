// Package event defines the data model shared by every stage of the
// ingestion pipeline: the parsed, enriched Event; the Alert emitted when
// an Event looks anomalous or trips a rule; and the Rule configuration
// the rule engine evaluates against.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the enumerated classification assigned by the Enricher.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// SentimentLabel is the polarity bucket assigned by the heuristic sentiment scorer.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

// Sentiment is the sentiment enrichment attached to an Event.
type Sentiment struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// Event is the unit flowing through the pipeline: a parsed log line plus
// whatever enrichment fields have been attached by downstream stages.
//
// Invariants (spec.md §3): Timestamp is always present and parseable once
// the parser has run. Source and RawLog never change after the parser.
// Each enrichment field, once written by its owning stage, is never
// mutated by a later stage. AnomalyScore is 0.0 with Scored=false when the
// scorer has not been fit ("unscored", not "not anomalous").
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	RawLog    string    `json:"raw_log"`
	Message   string    `json:"message"`
	IP        string    `json:"ip,omitempty"`

	// Extras holds any field present on a decoded JSON log line that isn't
	// one of the named fields above. The rule engine's group_by looks up
	// named fields first, then Extras (spec.md §9).
	Extras map[string]string `json:"extras,omitempty"`

	// Error carries a tag such as "ParseError" when the parser could not
	// make sense of the line; the event is still emitted, never dropped.
	Error string `json:"error,omitempty"`

	// Enrichment fields, added in-place by downstream stages.
	Severity       Severity  `json:"severity,omitempty"`
	Sentiment      Sentiment `json:"sentiment,omitempty"`
	KeyEntities    []string  `json:"key_entities,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`

	AnomalyScore float64 `json:"anomaly_score"`
	// Scored is false until the scorer has been fit and has scored this
	// event; it disambiguates a genuine 0.0 score from "unscored".
	Scored bool `json:"scored"`
}

// Field returns the value of a named event field, falling back to Extras.
// Used by the rule engine to resolve a rule's group_by key.
func (e *Event) Field(name string) string {
	switch name {
	case "ip":
		return e.IP
	case "source":
		return e.Source
	case "message":
		return e.Message
	case "severity":
		return string(e.Severity)
	}
	if e.Extras != nil {
		return e.Extras[name]
	}
	return ""
}

// Alert is emitted by the Orchestrator (anomaly threshold) or the Rule
// Engine (frequency trigger).
//
// Invariants (spec.md §3): every Alert has a non-empty Recommendation and
// a Severity from the enumerated set; rule alerts additionally carry
// RuleName and a human-readable Message describing the count/window.
type Alert struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Severity       Severity  `json:"severity"`
	Source         string    `json:"source"`
	Message        string    `json:"message"`
	AnomalyScore   *float64  `json:"anomaly_score,omitempty"`
	RuleName       string    `json:"rule_name,omitempty"`
	Recommendation string    `json:"recommendation"`
	Summary        string    `json:"summary,omitempty"`

	// Event is a back-reference to the triggering Event.
	Event *Event `json:"event"`
}

// NewEvent allocates an Event with a fresh ID; callers still populate the
// rest of the fields.
func NewEvent() *Event {
	return &Event{ID: uuid.New()}
}

// NewAlert allocates an Alert with a fresh ID.
func NewAlert() *Alert {
	return &Alert{ID: uuid.New()}
}
