// Package storage implements the document-store adapter of spec.md
// §4.6, concretized onto Redis (SPEC_FULL.md §4.6): each event/alert is
// a JSON document under a per-id key, indexed into a per-day sorted set
// for time-range queries and a per-severity set for severity filtering.
// All methods are wrapped in a circuit breaker so a down Redis degrades
// to fast, logged failures rather than hanging the pipeline — grounded
// on the teacher's resource-manager failure-isolation pattern
// (internal/resources/manager.go) and on original_source/siem_engine.py's
// "storage errors are logged, never fatal" handling.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

const keyPrefix = "siem"

// maxCandidateDays bounds how far back an unranged search scans when the
// caller gives no Since (e.g. a free-text /logs query): one Redis round
// trip per calendar day back to the Unix epoch would make an unranged
// search effectively unbounded.
const maxCandidateDays = 30

// Adapter is the Redis-backed document store. Every operation that
// talks to Redis is routed through a circuit breaker; a broken circuit
// fails fast with event.ErrCircuitOpen instead of blocking on a down
// backend.
type Adapter struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// Config configures the Redis connection. The circuit breaker settings
// are fixed in New.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New returns an Adapter connected to the configured Redis instance.
// Connection is lazy: no round trip happens until the first operation.
func New(cfg Config, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	breakerSettings := gobreaker.Settings{
		Name:        "siem-storage",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Adapter{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
		log:     log,
	}
}

// EnsureIndex records the configured field-type schema for operator
// visibility. Redis has no schema to install; this exists to preserve
// the contract shape of spec.md §4.6.
func (a *Adapter) EnsureIndex(ctx context.Context) error {
	_, err := a.call(ctx, func(ctx context.Context) (any, error) {
		fields := map[string]string{
			"timestamp": "date", "source": "keyword", "message": "text",
			"ip": "ip", "severity": "keyword", "anomaly_score": "float",
			"raw_log": "text-not-indexed", "ai_analysis": "object-not-indexed",
		}
		a.log.InfoContext(ctx, "storage: schema acknowledged (no-op on redis)", "fields", fields)
		return nil, a.client.Ping(ctx).Err()
	})
	return wrapStorageErr(err)
}

// BulkIndex stores a batch of events in one pipelined round trip,
// indexing each into its day bucket and severity set. Failure is
// reported to the caller, which logs it and moves on (spec.md §4.6:
// "events of a failed batch are lost from persistence").
func (a *Adapter) BulkIndex(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := a.call(ctx, func(ctx context.Context) (any, error) {
		pipe := a.client.Pipeline()
		for _, e := range events {
			doc, err := json.Marshal(e)
			if err != nil {
				return nil, fmt.Errorf("storage: marshal event %s: %w", e.ID, err)
			}
			pipe.Set(ctx, docKey(e.ID.String()), doc, 0)
			pipe.ZAdd(ctx, dayKey(e.Timestamp), redis.Z{
				Score:  float64(e.Timestamp.Unix()),
				Member: e.ID.String(),
			})
			if e.Severity != "" {
				pipe.SAdd(ctx, severityKey(string(e.Severity)), e.ID.String())
			}
		}
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return wrapStorageErr(err)
}

// Search intersects the day buckets spanning [since, until] (or the last
// maxCandidateDays days if since is zero) with the severity filter (if any),
// hydrates documents, and applies the free-text query as a substring
// scan bounded by size — Redis has no text index to push this down to
// (spec.md §4.6, SPEC_FULL.md §4.6). Errors yield an empty result.
func (a *Adapter) Search(ctx context.Context, query SearchQuery) []*event.Event {
	result, err := a.call(ctx, func(ctx context.Context) (any, error) {
		return a.search(ctx, query)
	})
	if err != nil {
		a.log.WarnContext(ctx, "storage: search failed, returning empty result", "error", err)
		return nil
	}
	return result.([]*event.Event)
}

// SearchQuery is the structured query Search accepts.
type SearchQuery struct {
	Since    time.Time
	Until    time.Time
	Severity string
	Text     string
	Size     int
}

func (a *Adapter) search(ctx context.Context, q SearchQuery) ([]*event.Event, error) {
	ids, err := a.candidateIDs(ctx, q)
	if err != nil {
		return nil, err
	}

	var out []*event.Event
	for _, id := range ids {
		if len(out) >= q.Size && q.Size > 0 {
			break
		}
		raw, err := a.client.Get(ctx, docKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var e event.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		if q.Severity != "" && string(e.Severity) != q.Severity {
			continue
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && e.Timestamp.After(q.Until) {
			continue
		}
		if q.Text != "" && !matchesText(&e, q.Text) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

func (a *Adapter) candidateIDs(ctx context.Context, q SearchQuery) ([]string, error) {
	if q.Severity != "" {
		return a.client.SMembers(ctx, severityKey(q.Severity)).Result()
	}

	until := q.Until
	if until.IsZero() {
		until = time.Now()
	}
	since := q.Since
	if since.IsZero() {
		since = until.AddDate(0, 0, -maxCandidateDays)
	}

	// Scan most-recent-day-first and stop once enough candidates are
	// collected for the requested page size, instead of always walking
	// every day in range.
	var ids []string
	for day := until; !day.Before(since); day = day.AddDate(0, 0, -1) {
		members, err := a.client.ZRangeByScore(ctx, dayKey(day), &redis.ZRangeBy{
			Min: strconv.FormatInt(since.Unix(), 10),
			Max: strconv.FormatInt(until.Unix(), 10),
		}).Result()
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)
		if q.Size > 0 && len(ids) >= q.Size {
			break
		}
	}
	return ids, nil
}

func matchesText(e *event.Event, text string) bool {
	text = strings.ToLower(text)
	fields := []string{e.Message, e.RawLog, e.Source, e.IP}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}

// Ping reports whether Redis is reachable.
func (a *Adapter) Ping(ctx context.Context) bool {
	_, err := a.call(ctx, func(ctx context.Context) (any, error) {
		return nil, a.client.Ping(ctx).Err()
	})
	return err == nil
}

// call routes a Redis operation through the circuit breaker, translating
// an open circuit into event.ErrCircuitOpen.
func (a *Adapter) call(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	result, err := a.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, event.ErrCircuitOpen
	}
	return result, err
}

func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, event.ErrCircuitOpen) {
		return err
	}
	return fmt.Errorf("%w: %v", event.ErrStorageUnavailable, err)
}

func docKey(id string) string       { return keyPrefix + ":doc:" + id }
func severityKey(sev string) string { return keyPrefix + ":sev:" + sev }
func dayKey(t time.Time) string     { return keyPrefix + ":ts:" + t.UTC().Format("20060102") }
