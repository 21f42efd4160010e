// Package orchestrator implements the pipeline lifecycle of spec.md
// §4.7: one concurrent task per log source driving Collector output
// through Enrich → Score → Store → Alert in per-source batches of
// capacity B, plus the Idle→Initializing→Running→Stopping→Idle lifecycle
// that owns initialize/start/stop. Per-source batching and fan-in is
// grounded on the teacher's internal/pipeline stage-worker shape
// (startStages/discoveryWorker), adapted from N fixed stage workers to
// one worker-per-source with its own internal batch accumulator, plus
// original_source/siem_engine.py's monitor loop for the batch-then-
// process protocol.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/go-microbatch"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Shafiyullah/siem-cyber/internal/collector"
	"github.com/Shafiyullah/siem-cyber/internal/enricher"
	"github.com/Shafiyullah/siem-cyber/internal/rules"
	"github.com/Shafiyullah/siem-cyber/internal/scorer"
	"github.com/Shafiyullah/siem-cyber/internal/storage"
	"github.com/Shafiyullah/siem-cyber/internal/telemetry"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// State is the Orchestrator's lifecycle state (spec.md §4.7).
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateStopping     State = "stopping"
)

// BatchSize is B, the per-source batch capacity (spec.md §4.7).
const BatchSize = 100

// shutdownDrainTimeout bounds how long runSource waits for a source's
// final partial batch to finish processing during StopMonitoring.
const shutdownDrainTimeout = 5 * time.Second

// DefaultTrainingDays is the historical-lookback window used to fit the
// Scorer at initialize (spec.md §4.7, §6 TRAINING_DAYS).
const DefaultTrainingDays = 7

// DefaultAlertThreshold is the anomaly-score cutoff below which an event
// triggers an anomaly alert (spec.md §4.7, §6 ANOMALY_THRESHOLD).
const DefaultAlertThreshold = -0.5

// AlertSink receives every alert the Orchestrator emits. The core
// implementation only logs; external delivery is pluggable
// (internal/alertsink).
type AlertSink interface {
	Send(ctx context.Context, a *event.Alert)
}

// Config configures an Orchestrator.
type Config struct {
	Sources        []string
	TrainingDays   int
	AlertThreshold float64
}

// Orchestrator owns the collectors, the shared Enricher/Scorer/
// RuleEngine/Storage collaborators, and the per-source batch workers.
type Orchestrator struct {
	storage  *storage.Adapter
	enricher *enricher.Enricher
	scorer   *scorer.Scorer
	rules    *rules.Engine
	sink     AlertSink
	log      *slog.Logger

	mu    sync.Mutex
	state State

	cfg    Config
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// Option configures optional Orchestrator collaborators that have no
// sane zero-value default (metrics, tracing).
type Option func(*Orchestrator)

// WithMetrics attaches a Prometheus metrics provider; without it,
// metric increments are skipped.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer used to span each batch.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New wires an Orchestrator's shared collaborators. Call Initialize then
// StartMonitoring to begin processing.
func New(st *storage.Adapter, en *enricher.Enricher, sc *scorer.Scorer, re *rules.Engine, sink AlertSink, log *slog.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if re == nil {
		re = rules.New(nil)
	}
	o := &Orchestrator{
		storage:  st,
		enricher: en,
		scorer:   sc,
		rules:    re,
		sink:     sink,
		log:      log,
		state:    StateIdle,
		tracer:   noop.NewTracerProvider().Tracer("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State reports the Orchestrator's current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Initialize installs the storage index and fits the Scorer from a
// bounded historical query (spec.md §4.7). It may be called from Idle,
// or from Running via StopMonitoring first. Absence of historical data
// leaves the Scorer unfit and is not treated as an error.
func (o *Orchestrator) Initialize(ctx context.Context, cfg Config) error {
	o.mu.Lock()
	o.state = StateInitializing
	o.mu.Unlock()

	if cfg.TrainingDays <= 0 {
		cfg.TrainingDays = DefaultTrainingDays
	}
	if cfg.AlertThreshold == 0 {
		cfg.AlertThreshold = DefaultAlertThreshold
	}
	o.cfg = cfg
	o.rules.Reset()

	if err := o.storage.EnsureIndex(ctx); err != nil {
		o.log.WarnContext(ctx, "orchestrator: ensure_index failed, continuing", "error", err)
	}

	since := time.Now().AddDate(0, 0, -cfg.TrainingDays)
	historical := o.storage.Search(ctx, storage.SearchQuery{
		Since: since,
		Until: time.Now(),
		Size:  10000,
	})
	if len(historical) == 0 {
		o.log.WarnContext(ctx, "orchestrator: no historical events available, scorer remains unfit")
	} else {
		o.scorer.Fit(historical)
	}
	if o.metrics != nil {
		fitted := 0.0
		if o.scorer.IsFit() {
			fitted = 1.0
		}
		o.metrics.ScorerFitted.Set(fitted)
	}

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
	return nil
}

// StartMonitoring spawns one task per configured source. If already
// Running, it stops first (spec.md §4.7: "equivalent to stop then
// start").
func (o *Orchestrator) StartMonitoring(ctx context.Context) {
	if o.State() == StateRunning {
		o.StopMonitoring()
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.state = StateRunning
	o.mu.Unlock()

	for _, source := range o.cfg.Sources {
		o.wg.Add(1)
		go o.runSource(runCtx, source)
	}
}

// StopMonitoring cancels every source task and waits for them to drain
// their in-flight batch and exit (spec.md §4.7).
func (o *Orchestrator) StopMonitoring() {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return
	}
	o.state = StateStopping
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
}

// runSource drives one Collector's events through a microbatch-backed
// accumulator of capacity B, processing each full (or final, drained)
// batch through the strict enrich→score→store→alert order (spec.md
// §4.7). MaxConcurrency is pinned to 1 per source so one source's
// batches process strictly in arrival order (SPEC_FULL.md §4.7).
func (o *Orchestrator) runSource(ctx context.Context, source string) {
	defer o.wg.Done()

	batcher := microbatch.NewBatcher(&microbatch.BatcherConfig{
		MaxSize: BatchSize,
		// Disabled: the batch is only processed at capacity or on
		// drain-at-shutdown (spec.md §4.7), never on a timer.
		FlushInterval:  -1,
		MaxConcurrency: 1,
	}, func(batchCtx context.Context, jobs []*event.Event) error {
		o.processBatch(batchCtx, source, jobs)
		return nil
	})
	defer func() {
		// Shutdown (not Close) drains the final partial batch through
		// processBatch before returning; Close cancels the batcher's
		// context first, which would hand BulkIndex an already-dead ctx
		// and silently drop the last, sub-capacity batch on every stop.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
		defer cancel()
		if err := batcher.Shutdown(shutdownCtx); err != nil {
			o.log.WarnContext(ctx, "orchestrator: forced batch drain on shutdown timeout",
				"source", source, "error", err)
		}
	}()

	c := collector.New(source, o.log)
	events := c.Run(ctx)

	for e := range events {
		if _, err := batcher.Submit(ctx, e); err != nil {
			return
		}
	}
}

// processBatch runs the strict four-step pipeline over one batch
// (spec.md §4.7).
func (o *Orchestrator) processBatch(ctx context.Context, source string, batch []*event.Event) {
	if len(batch) == 0 {
		return
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.processBatch")
	defer span.End()
	start := time.Now()

	for _, e := range batch {
		o.enricher.Enrich(ctx, e)
	}

	if o.scorer.IsFit() {
		o.scorer.Score(batch)
	} else {
		o.log.DebugContext(ctx, "scorer not fit, skipping anomaly scoring",
			"source", source, "error", event.ErrModelUnfit)
		for _, e := range batch {
			e.AnomalyScore = 0.0
			e.Scored = false
		}
	}

	if err := o.storage.BulkIndex(ctx, batch); err != nil {
		o.log.WarnContext(ctx, "orchestrator: bulk_index failed for batch",
			"source", source, "batch_size", len(batch),
			"error", event.NewStageError("storage", source, err))
		if o.metrics != nil {
			o.metrics.StorageErrors.WithLabelValues("bulk_index").Inc()
		}
	}

	for _, e := range batch {
		if e.Scored && e.AnomalyScore < o.cfg.AlertThreshold {
			o.emit(ctx, anomalyAlert(e))
		}
		for _, alert := range o.rules.Evaluate(e) {
			o.emit(ctx, alert)
		}
	}

	if o.metrics != nil {
		o.metrics.EventsProcessed.WithLabelValues(source).Add(float64(len(batch)))
		o.metrics.BatchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}
}

func (o *Orchestrator) emit(ctx context.Context, a *event.Alert) {
	o.log.InfoContext(ctx, "alert",
		"rule", a.RuleName, "severity", a.Severity, "source", a.Source, "message", a.Message)
	if o.sink != nil {
		o.sink.Send(ctx, a)
	}
	if o.metrics != nil {
		kind := a.RuleName
		if kind == "" {
			kind = "anomaly"
		}
		o.metrics.AlertsEmitted.WithLabelValues(kind, string(a.Severity)).Inc()
	}
}

func anomalyAlert(e *event.Event) *event.Alert {
	a := event.NewAlert()
	a.Timestamp = time.Now()
	a.Severity = e.Severity
	a.Source = e.Source
	a.Message = "Anomalous event detected"
	score := e.AnomalyScore
	a.AnomalyScore = &score
	a.Recommendation = recommend(e)
	a.Summary = e.Summary
	a.Event = e
	return a
}

// recommend applies the keyword-driven recommendation policy of spec.md
// §4.7, in declared precedence order.
func recommend(e *event.Event) string {
	lower := strings.ToLower(e.Message)
	switch {
	case containsAny(lower, "denied", "blocked", "unauthorized"):
		return "Investigate potential unauthorized access attempt. Check source IP and user."
	case containsAny(lower, "error", "fail", "exception"):
		return "Check system health and application logs for root cause of this error."
	case e.Severity == event.SeverityCritical:
		return "Immediate investigation required - potential system crash or security incident."
	default:
		return "Monitor for similar patterns and investigate if recurring."
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
