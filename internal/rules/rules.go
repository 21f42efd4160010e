// Package rules implements the windowed frequency detector of spec.md
// §4.5: per (rule, group_key) a monotonically increasing timestamp
// sequence truncated to the rule's window, triggering and then clearing
// once the threshold is reached. Grounded on the teacher's
// internal/ratelimit sliding-window bucket-evict shape and on
// original_source/rule_engine.py's evaluate() for the exact
// accumulate→evict→threshold→clear sequence and the debounce-on-trigger
// behaviour.
package rules

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// Engine evaluates every configured Rule against each incoming Event and
// reports Alerts for rules whose per-group count reaches threshold
// within window. Engine is safe for concurrent use.
type Engine struct {
	rules []event.Rule

	mu    sync.Mutex
	state map[string]map[string][]time.Time // rule name -> group key -> timestamps
}

// New returns an Engine configured with rules, plus the default "Brute
// Force Detection" rule if rules is empty (spec.md §4.5, mirroring the
// original RuleEngine.__init__'s always-present default rule).
func New(rules []event.Rule) *Engine {
	if len(rules) == 0 {
		rules = []event.Rule{DefaultBruteForceRule()}
	}
	return &Engine{
		rules: rules,
		state: make(map[string]map[string][]time.Time),
	}
}

// DefaultBruteForceRule mirrors the original's built-in rule: 3 "failed"
// or "auth failure" events from the same IP within 60 seconds.
func DefaultBruteForceRule() event.Rule {
	return event.Rule{
		Name: "Brute Force Detection",
		Predicate: event.Custom(func(e *event.Event) bool {
			lower := strings.ToLower(e.Message)
			return strings.Contains(lower, "failed") || strings.Contains(lower, "auth failure")
		}),
		Threshold: 3,
		Window:    60 * time.Second,
		GroupBy:   "ip",
	}
}

// Evaluate runs e against every rule and returns zero or more triggered
// alerts. Evaluation uses wall-clock time, not the event's own
// timestamp (spec.md §9 design note: rule windows are about ingestion
// rate, not log-time skew).
func (en *Engine) Evaluate(e *event.Event) []*event.Alert {
	now := time.Now()
	var alerts []*event.Alert

	for _, rule := range en.rules {
		if !rule.Predicate.Match(e) {
			continue
		}
		key := e.Field(rule.GroupByField())
		if key == "" {
			continue
		}

		if count, triggered := en.record(rule, key, now); triggered {
			alerts = append(alerts, buildAlert(rule, e, count))
		}
	}
	return alerts
}

// record appends now to the rule/key's timestamp sequence, evicts
// anything older than the rule's window, and reports whether the
// post-eviction count has reached threshold. On trigger the sequence is
// cleared so the next burst starts counting from zero (debounce,
// mirroring the original's `timestamps.clear()`).
func (en *Engine) record(rule event.Rule, key string, now time.Time) (int, bool) {
	en.mu.Lock()
	defer en.mu.Unlock()

	byKey, ok := en.state[rule.Name]
	if !ok {
		byKey = make(map[string][]time.Time)
		en.state[rule.Name] = byKey
	}

	timestamps := append(byKey[key], now)
	cutoff := now.Add(-rule.Window)
	timestamps = evict(timestamps, cutoff)

	count := len(timestamps)
	if count >= rule.Threshold {
		delete(byKey, key)
		return count, true
	}
	byKey[key] = timestamps
	return count, false
}

func evict(timestamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(timestamps) && timestamps[i].Before(cutoff) {
		i++
	}
	return timestamps[i:]
}

// Reset clears all rule state (spec.md §3: "Rule state ... is cleared
// on reconfigure").
func (en *Engine) Reset() {
	en.mu.Lock()
	defer en.mu.Unlock()
	en.state = make(map[string]map[string][]time.Time)
}

func buildAlert(rule event.Rule, e *event.Event, count int) *event.Alert {
	a := event.NewAlert()
	a.Timestamp = time.Now()
	a.Severity = event.SeverityHigh
	a.Source = e.Source
	a.RuleName = rule.Name
	a.Message = ruleMessage(rule, e, count)
	a.Recommendation = "Investigate the source and consider blocking it."
	a.Event = e
	return a
}

func ruleMessage(rule event.Rule, e *event.Event, count int) string {
	key := e.Field(rule.GroupByField())
	windowSeconds := strconv.Itoa(int(rule.Window.Seconds()))
	return "Rule '" + rule.Name + "' triggered: " + strconv.Itoa(count) + " events in " +
		windowSeconds + "s for " + rule.GroupByField() + " " + key
}
