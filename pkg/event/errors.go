package event

import "errors"

// Sentinel errors for the error kinds named in spec.md §7. Most are
// logged and contained at the stage boundary rather than returned to a
// caller; they exist so tests and logs can match on a stable identity.
var (
	// ErrParseFailed marks a line the parser could not decode or split;
	// the resulting Event is still emitted, tagged via Event.Error with
	// this error's literal text ("ParseError", matching the original
	// collector's tag).
	ErrParseFailed = errors.New("ParseError")
	// ErrModelUnfit means the anomaly scorer has not been trained; the
	// caller should treat every score as the 0.0 "unscored" sentinel.
	ErrModelUnfit = errors.New("anomaly model not fitted")
	// ErrStorageUnavailable wraps a failed persistence call. Never
	// propagated past the batch boundary (spec.md §7 StorageFailure).
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrCircuitOpen is returned by Storage when its breaker has tripped.
	ErrCircuitOpen = errors.New("storage circuit open")
	// ErrProviderFailed marks a failed optional-enrichment call; the
	// Enricher falls back to the heuristic result silently.
	ErrProviderFailed = errors.New("enrichment provider failed")
	// ErrSourceUnavailable marks a collector's source file not (yet)
	// existing; the collector polls and retries, it never aborts.
	ErrSourceUnavailable = errors.New("log source unavailable")
)

// StageError wraps an error with the stage and source it occurred in,
// mirroring the teacher's CrawlError{URL, Stage, Err} shape.
type StageError struct {
	Stage  string
	Source string
	Err    error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return e.Stage + "[" + e.Source + "]: " + e.Err.Error()
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError constructs a StageError.
func NewStageError(stage, source string, err error) *StageError {
	return &StageError{Stage: stage, Source: source, Err: err}
}
