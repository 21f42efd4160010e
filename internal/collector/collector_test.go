package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCollectorWaitsForFileThenTails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(path, nil)
	c.ExistencePollInterval = 20 * time.Millisecond
	c.EOFBackoff = 20 * time.Millisecond
	out := c.Run(ctx)

	// The file does not exist yet; the collector must not emit anything
	// and must not error, just poll.
	select {
	case e, ok := <-out:
		if ok {
			t.Fatalf("expected no events before file exists, got %+v", e)
		}
		t.Fatalf("channel closed before file was created")
	case <-time.After(150 * time.Millisecond):
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.WriteString("10.0.0.1 failed login\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case e := <-out:
		if e.IP != "10.0.0.1" {
			t.Fatalf("expected ip 10.0.0.1, got %q", e.IP)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tailed line")
	}
	f.Close()
}

func TestCollectorIgnoresPreexistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("old line that predates the collector\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(path, nil)
	c.ExistencePollInterval = 20 * time.Millisecond
	c.EOFBackoff = 20 * time.Millisecond
	out := c.Run(ctx)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("fresh line\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case e := <-out:
		if e.Message != "fresh line" {
			t.Fatalf("expected only the freshly appended line, got %q", e.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tailed line")
	}
}

func TestCollectorStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := New(path, nil)
	c.ExistencePollInterval = 20 * time.Millisecond
	c.EOFBackoff = 20 * time.Millisecond
	out := c.Run(ctx)
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected channel to be closing, not producing events")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not shut down promptly after cancellation")
	}
}

func TestCollectorHandlesPartialLineAcrossReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(path, nil)
	c.ExistencePollInterval = 20 * time.Millisecond
	c.EOFBackoff = 20 * time.Millisecond
	out := c.Run(ctx)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString("partial "); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, err := f.WriteString("line\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case e := <-out:
		if e.Message != "partial line" {
			t.Fatalf("expected the two writes to join into one line, got %q", e.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the joined line")
	}
}
