package rules

import (
	"testing"
	"time"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

func failedLoginEvent(ip string) *event.Event {
	e := event.NewEvent()
	e.Source = "auth.log"
	e.IP = ip
	e.Message = "failed login attempt"
	e.Timestamp = time.Now()
	return e
}

func TestDefaultRuleTriggersAtThreshold(t *testing.T) {
	en := New(nil)

	var alerts []*event.Alert
	for i := 0; i < 3; i++ {
		alerts = append(alerts, en.Evaluate(failedLoginEvent("10.0.0.9"))...)
	}

	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert on the third event, got %d", len(alerts))
	}
	if alerts[0].RuleName != "Brute Force Detection" {
		t.Fatalf("unexpected rule name %q", alerts[0].RuleName)
	}
}

func TestRuleDoesNotTriggerBelowThreshold(t *testing.T) {
	en := New(nil)

	var alerts []*event.Alert
	for i := 0; i < 2; i++ {
		alerts = append(alerts, en.Evaluate(failedLoginEvent("10.0.0.9"))...)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts below threshold, got %d", len(alerts))
	}
}

func TestRuleDebouncesAfterTrigger(t *testing.T) {
	en := New(nil)

	for i := 0; i < 3; i++ {
		en.Evaluate(failedLoginEvent("10.0.0.9"))
	}
	// A 4th event right after the trigger should not immediately
	// re-trigger: state was cleared, so only 1 timestamp is recorded.
	alerts := en.Evaluate(failedLoginEvent("10.0.0.9"))
	if len(alerts) != 0 {
		t.Fatalf("expected debounce to suppress an immediate re-trigger, got %d alerts", len(alerts))
	}
}

func TestRuleGroupsIndependentlyByKey(t *testing.T) {
	en := New(nil)

	en.Evaluate(failedLoginEvent("10.0.0.1"))
	en.Evaluate(failedLoginEvent("10.0.0.1"))
	alerts := en.Evaluate(failedLoginEvent("10.0.0.2"))

	if len(alerts) != 0 {
		t.Fatalf("expected a different group key to have independent state, got %d alerts", len(alerts))
	}
}

func TestRuleIgnoresEventsWithoutGroupKey(t *testing.T) {
	en := New(nil)
	e := event.NewEvent()
	e.Message = "failed login attempt"
	// No IP set: group_by defaults to "ip", which is empty here.
	alerts := en.Evaluate(e)
	if len(alerts) != 0 {
		t.Fatalf("expected no alert for an event lacking the group key field")
	}
}

func TestCustomRuleWindowExpiry(t *testing.T) {
	rule := event.Rule{
		Name: "test-window",
		Predicate: event.Contains("boom"),
		Threshold: 2,
		Window:    50 * time.Millisecond,
		GroupBy:   "ip",
	}
	en := New([]event.Rule{rule})

	e := event.NewEvent()
	e.IP = "1.2.3.4"
	e.Message = "boom"

	en.Evaluate(e)
	time.Sleep(80 * time.Millisecond)
	alerts := en.Evaluate(e)

	if len(alerts) != 0 {
		t.Fatalf("expected the first timestamp to have expired out of the window, got %d alerts", len(alerts))
	}
}

func TestResetClearsState(t *testing.T) {
	en := New(nil)
	en.Evaluate(failedLoginEvent("10.0.0.9"))
	en.Evaluate(failedLoginEvent("10.0.0.9"))
	en.Reset()

	alerts := en.Evaluate(failedLoginEvent("10.0.0.9"))
	if len(alerts) != 0 {
		t.Fatalf("expected reset to clear prior counts, got %d alerts", len(alerts))
	}
}
