package scorer

import (
	"testing"
	"time"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

func normalEvent(ip string, ts time.Time) *event.Event {
	e := event.NewEvent()
	e.Source = "auth.log"
	e.IP = ip
	e.Timestamp = ts
	e.Message = "user logged in successfully"
	return e
}

func anomalousEvent(ts time.Time) *event.Event {
	e := event.NewEvent()
	e.Source = "auth.log"
	e.IP = "203.0.113.77"
	e.Timestamp = ts
	e.Message = "CRITICAL denied exception unauthorized attack attack attack attack attack brute force exception failure failure denied denied exception"
	return e
}

func TestScorerUnfitYieldsSentinel(t *testing.T) {
	s := New(nil)
	events := []*event.Event{normalEvent("10.0.0.1", time.Now())}
	s.Score(events)

	if events[0].Scored {
		t.Fatalf("expected Scored=false before fit")
	}
	if events[0].AnomalyScore != 0.0 {
		t.Fatalf("expected sentinel 0.0 score before fit, got %v", events[0].AnomalyScore)
	}
}

func TestScorerEmptyFitLeavesUnfit(t *testing.T) {
	s := New(nil)
	s.Fit(nil)
	if s.IsFit() {
		t.Fatalf("expected scorer to remain unfit after an empty training batch")
	}
}

func TestScorerFitThenScoreMarksScored(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	var training []*event.Event
	for i := 0; i < 200; i++ {
		training = append(training, normalEvent("10.0.0.1", base.Add(time.Duration(i)*time.Minute)))
	}

	s := New(nil)
	s.Fit(training)
	if !s.IsFit() {
		t.Fatalf("expected scorer to be fit")
	}

	events := []*event.Event{normalEvent("10.0.0.1", base)}
	s.Score(events)
	if !events[0].Scored {
		t.Fatalf("expected Scored=true after fit")
	}
}

func TestScorerIsDeterministic(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	var training []*event.Event
	for i := 0; i < 200; i++ {
		training = append(training, normalEvent("10.0.0.1", base.Add(time.Duration(i)*time.Minute)))
	}

	s1 := New(nil)
	s1.Fit(training)
	e1 := []*event.Event{normalEvent("10.0.0.1", base), anomalousEvent(base)}
	s1.Score(e1)

	s2 := New(nil)
	s2.Fit(training)
	e2 := []*event.Event{normalEvent("10.0.0.1", base), anomalousEvent(base)}
	s2.Score(e2)

	if e1[0].AnomalyScore != e2[0].AnomalyScore {
		t.Fatalf("expected identical fit/score runs to produce identical scores: %v vs %v",
			e1[0].AnomalyScore, e2[0].AnomalyScore)
	}
	if e1[1].AnomalyScore != e2[1].AnomalyScore {
		t.Fatalf("expected identical fit/score runs to produce identical scores for the anomaly")
	}
}

func TestScorerSingleEventFitStillScores(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	s := New(nil)
	s.Fit([]*event.Event{normalEvent("10.0.0.1", base)})
	if !s.IsFit() {
		t.Fatalf("expected scorer to be fit from a single training event")
	}

	events := []*event.Event{normalEvent("10.0.0.1", base)}
	s.Score(events)
	if !events[0].Scored {
		t.Fatalf("expected Scored=true after fitting on a single event")
	}
	if events[0].AnomalyScore == 0.0 {
		t.Fatalf("expected a non-zero score; pathNormaliser must not collapse to 0 for a single-event fit")
	}
}

func TestHashPrefix32Deterministic(t *testing.T) {
	a := hashPrefix32("10.0.0.1")
	b := hashPrefix32("10.0.0.1")
	if a != b {
		t.Fatalf("expected stable hash for identical input")
	}
	if hashPrefix32("") != hashPrefix32("") {
		t.Fatalf("expected empty string to hash deterministically")
	}
}

func TestExtractFeaturesHasErrorFlag(t *testing.T) {
	e := event.NewEvent()
	e.Message = "connection denied by firewall"
	f := extractFeatures(e)
	if f[7] != 1 {
		t.Fatalf("expected has_error=1 for a denied message")
	}

	e2 := event.NewEvent()
	e2.Message = "connection accepted"
	f2 := extractFeatures(e2)
	if f2[7] != 0 {
		t.Fatalf("expected has_error=0 for a clean message")
	}
}

func TestExtractFeaturesEmptyIPHashesZero(t *testing.T) {
	e := event.NewEvent()
	f := extractFeatures(e)
	if f[4] != 0 {
		t.Fatalf("expected ip_hash=0 for an event with no ip, got %v", f[4])
	}
}

func TestAveragePathLengthMonotonic(t *testing.T) {
	if averagePathLength(1) != 0 {
		t.Fatalf("expected c(1)=0")
	}
	if averagePathLength(256) <= averagePathLength(16) {
		t.Fatalf("expected c(n) to grow with n")
	}
}
