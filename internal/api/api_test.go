package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Shafiyullah/siem-cyber/internal/enricher"
	"github.com/Shafiyullah/siem-cyber/internal/orchestrator"
	"github.com/Shafiyullah/siem-cyber/internal/rules"
	"github.com/Shafiyullah/siem-cyber/internal/scorer"
	"github.com/Shafiyullah/siem-cyber/internal/storage"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	st := storage.New(storage.Config{Addr: mr.Addr()}, nil)
	o := orchestrator.New(st, enricher.New(nil, nil), scorer.New(nil), rules.New(nil), nil, nil)
	return New(o, st, apiKey, nil)
}

func TestHealthIsUnauthenticated(t *testing.T) {
	s := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := body["storage_reachable"].(bool); !ok || !v {
		t.Fatalf("expected storage_reachable=true, got %v", body)
	}
}

func TestAlertsRequiresAPIKey(t *testing.T) {
	s := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without X-API-Key, got %d", w.Code)
	}
}

func TestAlertsRejectsUnknownSeverity(t *testing.T) {
	s := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/alerts?severity=ultra", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown severity, got %d", w.Code)
	}
}

func TestAlertsRejectsUnknownTimeRange(t *testing.T) {
	s := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/alerts?time_range=3w", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown time_range, got %d", w.Code)
	}
}

func TestAlertsDefaultsToOneHourAndSortsDescending(t *testing.T) {
	s := newTestServer(t, "secret")

	e1 := event.NewEvent()
	e1.Source = "auth.log"
	e1.Severity = event.SeverityHigh
	e1.Timestamp = time.Now().Add(-30 * time.Minute)
	e2 := event.NewEvent()
	e2.Source = "auth.log"
	e2.Severity = event.SeverityHigh
	e2.Timestamp = time.Now().Add(-10 * time.Minute)

	if err := s.storage.BulkIndex(context.Background(), []*event.Event{e1, e2}); err != nil {
		t.Fatalf("bulk index: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/alerts?severity=high", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Events []*event.Event `json:"events"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(body.Events))
	}
	if body.Events[0].ID != e2.ID {
		t.Fatalf("expected most recent event first")
	}
}

func TestLogsSearchesByText(t *testing.T) {
	s := newTestServer(t, "secret")

	e := event.NewEvent()
	e.Source = "auth.log"
	e.Message = "failed login for admin"
	e.Timestamp = time.Now()
	if err := s.storage.BulkIndex(context.Background(), []*event.Event{e}); err != nil {
		t.Fatalf("bulk index: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/logs?query=admin", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "failed login for admin") {
		t.Fatalf("expected matching event in response, got %s", w.Body.String())
	}
}

func TestConfigureRejectsMissingSources(t *testing.T) {
	s := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodPost, "/configure", strings.NewReader(`{}`))
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing sources, got %d", w.Code)
	}
}

func TestConfigureAcceptsValidRequest(t *testing.T) {
	s := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodPost, "/configure", strings.NewReader(`{"sources":["/var/log/auth.log"]}`))
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s.orch.StopMonitoring()
}
