// Package api is the small authenticated admin control plane of spec.md
// §6: /configure, /alerts, /logs, /health. Grounded on the teacher's
// "facade wraps the engine, exposes lifecycle + query" shape (Start/
// Stop/Snapshot on engine.Engine), rehosted onto HTTP with
// github.com/go-chi/chi/v5 routing, github.com/go-chi/cors for the CORS
// middleware the pack's gateway tests exercise, and
// github.com/go-playground/validator/v10 for request-body validation.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/Shafiyullah/siem-cyber/internal/orchestrator"
	"github.com/Shafiyullah/siem-cyber/internal/storage"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

var validate = validator.New()

var validSeverities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

var timeRanges = map[string]time.Duration{
	"1h": time.Hour,
	"6h": 6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

const defaultAlertsSize = 100
const defaultLogsSize = 50

// Server exposes the admin surface over HTTP.
type Server struct {
	orch    *orchestrator.Orchestrator
	storage *storage.Adapter
	apiKey  string
	log     *slog.Logger

	router chi.Router
}

// configureRequest is the body of POST /configure.
type configureRequest struct {
	Sources []string `json:"sources" validate:"required"`
}

// New builds a Server. apiKey is the value every non-health request must
// present in X-API-Key (spec.md §6); with an empty apiKey every
// non-health request is rejected with 403.
func New(orch *orchestrator.Orchestrator, st *storage.Adapter, apiKey string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{orch: orch, storage: st, apiKey: apiKey, log: log}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler serving the admin surface.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/configure", s.handleConfigure)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/logs", s.handleLogs)
	})

	return r
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"storage_reachable": s.storage.Ping(r.Context()),
	})
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.orch.StopMonitoring()
	cfg := orchestrator.Config{
		Sources:        req.Sources,
		TrainingDays:   orchestrator.DefaultTrainingDays,
		AlertThreshold: orchestrator.DefaultAlertThreshold,
	}
	if err := s.orch.Initialize(r.Context(), cfg); err != nil {
		http.Error(w, "reinitialize failed", http.StatusInternalServerError)
		return
	}
	s.orch.StartMonitoring(context.Background())

	writeJSON(w, http.StatusOK, map[string]any{"status": "reconfigured"})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	if severity != "" && !validSeverities[severity] {
		http.Error(w, "unknown severity", http.StatusBadRequest)
		return
	}

	rangeParam := r.URL.Query().Get("time_range")
	if rangeParam == "" {
		rangeParam = "1h"
	}
	span, ok := timeRanges[rangeParam]
	if !ok {
		http.Error(w, "unknown time_range", http.StatusBadRequest)
		return
	}

	results := s.storage.Search(r.Context(), storage.SearchQuery{
		Since:    time.Now().Add(-span),
		Until:    time.Now(),
		Severity: severity,
		Size:     defaultAlertsSize,
	})
	sortEventsDescending(results)

	writeJSON(w, http.StatusOK, map[string]any{"events": results})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	size := defaultLogsSize
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			size = n
		}
	}

	results := s.storage.Search(r.Context(), storage.SearchQuery{
		Text: query,
		Size: size,
	})
	sortEventsDescending(results)

	writeJSON(w, http.StatusOK, map[string]any{"events": results})
}

func sortEventsDescending(events []*event.Event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Timestamp.After(events[j-1].Timestamp); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
