// Package collector tails a single append-only log source and turns each
// appended line into a parsed event.Event.
//
// Grounded on the original Python LogCollector.collect_from_file: wait for
// the file to exist (polling, never failing), seek to EOF so only new
// lines are ingested, then loop reading lines with a short sleep on EOF.
// The channel-based, context-cancellable producer shape follows the
// teacher's worker goroutines in internal/pipeline and internal/crawler.
package collector

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Shafiyullah/siem-cyber/internal/parser"
	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

const (
	// DefaultExistencePollInterval matches spec.md §4.2's 5s poll.
	DefaultExistencePollInterval = 5 * time.Second
	// DefaultEOFBackoff matches spec.md §4.2's ~100ms EOF sleep.
	DefaultEOFBackoff = 100 * time.Millisecond
)

// Collector tails one file and produces a lazy, infinite, non-restartable
// stream of events for that source (spec.md §4.2). A Collector is used
// once; create a new one to tail again.
type Collector struct {
	Source string
	log    *slog.Logger

	// ExistencePollInterval and EOFBackoff default to the spec's timings;
	// tests shrink them to keep the suite fast.
	ExistencePollInterval time.Duration
	EOFBackoff            time.Duration
}

// New returns a Collector for the given source path.
func New(source string, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		Source:                source,
		log:                   log,
		ExistencePollInterval: DefaultExistencePollInterval,
		EOFBackoff:            DefaultEOFBackoff,
	}
}

// Run tails Source and sends parsed events to out until ctx is cancelled
// or an unrecoverable I/O error occurs, at which point it closes out and
// returns. Run never returns a nil channel; callers range over it.
func (c *Collector) Run(ctx context.Context) <-chan *event.Event {
	out := make(chan *event.Event)
	go c.loop(ctx, out)
	return out
}

func (c *Collector) loop(ctx context.Context, out chan<- *event.Event) {
	defer close(out)

	f, ok := c.waitForFile(ctx)
	if !ok {
		return
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		c.log.ErrorContext(ctx, "seek to end of file failed", "source", c.Source, "error", err)
		return
	}

	reader := bufio.NewReader(f)
	var pending strings.Builder

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			c.log.ErrorContext(ctx, "error reading log source", "source", c.Source, "error", err)
			return
		}

		if errors.Is(err, io.EOF) {
			// No newline yet: hold onto whatever was read so far (it has
			// already been pulled out of the file, not lost) and wait for
			// the rest of the line to be appended.
			pending.WriteString(chunk)
			if sleepOrDone(ctx, c.EOFBackoff) {
				return
			}
			continue
		}

		pending.WriteString(chunk)
		line := trimTrailingNewline(pending.String())
		pending.Reset()

		e := parser.Parse(line, c.Source)
		select {
		case out <- e:
		case <-ctx.Done():
			return
		}
	}
}

// waitForFile polls Source's existence every 5s, logging a warning on
// each miss, until it exists or ctx is cancelled (spec.md §4.2).
func (c *Collector) waitForFile(ctx context.Context) (*os.File, bool) {
	for {
		f, err := os.Open(c.Source)
		if err == nil {
			return f, true
		}
		if !os.IsNotExist(err) {
			c.log.ErrorContext(ctx, "error opening log source", "source", c.Source, "error", err)
			return nil, false
		}
		c.log.WarnContext(ctx, "log source not found, waiting", "source", c.Source, "error", event.ErrSourceUnavailable)
		if sleepOrDone(ctx, c.ExistencePollInterval) {
			return nil, false
		}
	}
}

// sleepOrDone sleeps for d or returns true early if ctx is cancelled.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}

func trimTrailingNewline(s string) string {
	n := len(s)
	if n > 0 && s[n-1] == '\n' {
		n--
		if n > 0 && s[n-1] == '\r' {
			n--
		}
	}
	return s[:n]
}
