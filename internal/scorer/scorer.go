package scorer

import (
	"log/slog"
	"sync"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// Scorer implements the fit/score contract of spec.md §4.4. It is safe
// for concurrent use: Score may be called while a previous Fit's result
// is still installed, and a new Fit atomically swaps the fitted model
// in once complete (never a partial state).
type Scorer struct {
	log *slog.Logger

	mu    sync.RWMutex
	std   standardizer
	model *isolationForest
	fit   bool
}

// New returns an unfit Scorer; Score returns the 0.0 sentinel for every
// event until Fit succeeds.
func New(log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{log: log}
}

// Fit consumes a bounded historical batch (spec.md §4.4: up to ~10,000
// events) and fits the standardiser and isolation forest. Fit never
// returns an error: an empty batch simply leaves the Scorer unfit, and
// is logged rather than treated as fatal (spec.md §4.4, §7).
func (s *Scorer) Fit(events []*event.Event) {
	if len(events) == 0 {
		s.log.Warn("scorer: fit called with no training events, scorer remains unfit")
		return
	}

	rows := make([][numFeatures]float64, len(events))
	for i, e := range events {
		rows[i] = extractFeatures(e)
	}

	std := fitStandardizer(rows)
	standardised := make([][numFeatures]float64, len(rows))
	for i, row := range rows {
		standardised[i] = std.transform(row)
	}
	model := fitIsolationForest(standardised)

	s.mu.Lock()
	s.std = std
	s.model = model
	s.fit = true
	s.mu.Unlock()

	s.log.Info("scorer: fit complete", "training_events", len(events))
}

// IsFit reports whether Fit has completed successfully at least once.
func (s *Scorer) IsFit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fit
}

// Score scores a batch in the input order (spec.md §4.4: "must be
// invoked only in batch"). Every event gets 0.0 with Scored=false until
// the Scorer has been fit; fitted events get Scored=true and a real,
// signed anomaly score where more negative means more anomalous.
func (s *Scorer) Score(events []*event.Event) {
	s.mu.RLock()
	model, std, fit := s.model, s.std, s.fit
	s.mu.RUnlock()

	if !fit {
		for _, e := range events {
			e.AnomalyScore = 0.0
			e.Scored = false
		}
		return
	}

	for _, e := range events {
		row := std.transform(extractFeatures(e))
		e.AnomalyScore = model.score(row)
		e.Scored = true
	}
}
