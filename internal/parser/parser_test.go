package parser

import (
	"strings"
	"testing"
)

func TestParseIPSplit(t *testing.T) {
	e := Parse("10.0.0.1 failed login for user bob", "auth.log")
	if e.IP != "10.0.0.1" {
		t.Fatalf("expected ip 10.0.0.1, got %q", e.IP)
	}
	if e.Message != "failed login for user bob" {
		t.Fatalf("expected message %q, got %q", "failed login for user bob", e.Message)
	}
	if e.Source != "auth.log" {
		t.Fatalf("expected source auth.log, got %q", e.Source)
	}
	if e.Timestamp.IsZero() {
		t.Fatalf("expected a non-zero timestamp")
	}
}

func TestParseNoIP(t *testing.T) {
	e := Parse("something went sideways", "app.log")
	if e.IP != "" {
		t.Fatalf("expected no ip, got %q", e.IP)
	}
	if e.Message != "something went sideways" {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestParseJSON(t *testing.T) {
	line := `{"message": "disk full", "ip": "192.168.0.9", "user": "admin"}`
	e := Parse(line, "svc.log")
	if e.Message != "disk full" {
		t.Fatalf("unexpected message %q", e.Message)
	}
	if e.IP != "192.168.0.9" {
		t.Fatalf("unexpected ip %q", e.IP)
	}
	if e.Extras["user"] != "admin" {
		t.Fatalf("expected extras[user]=admin, got %q", e.Extras["user"])
	}
	if e.RawLog != line {
		t.Fatalf("raw_log must be preserved verbatim")
	}
}

func TestParseJSONRespectsGivenTimestamp(t *testing.T) {
	line := `{"message": "ok", "timestamp": "2024-01-02T03:04:05Z"}`
	e := Parse(line, "svc.log")
	if e.Timestamp.Format("2006-01-02T15:04:05Z") != "2024-01-02T03:04:05Z" {
		t.Fatalf("expected the given timestamp to be used, got %v", e.Timestamp)
	}
}

func TestParseMalformedJSONNeverDropped(t *testing.T) {
	line := `{not valid json`
	e := Parse(line, "svc.log")
	if e.Error != "ParseError" {
		t.Fatalf("expected error tag, got %q", e.Error)
	}
	if e.RawLog != line || e.Source != "svc.log" {
		t.Fatalf("raw_log/source must still be set on a parse failure")
	}
	if e.Timestamp.IsZero() {
		t.Fatalf("expected a timestamp even on parse failure")
	}
}

func TestParseAlwaysSetsCoreFields(t *testing.T) {
	// Property from spec.md §8: for all event sequences, the parser
	// produces events with non-empty timestamp, source, and raw_log.
	lines := []string{
		"plain text line",
		"10.0.0.1 user bob logged in",
		`{"message": "hi"}`,
		`{broken`,
		"",
	}
	for _, line := range lines {
		e := Parse(line, "src")
		if e.Timestamp.IsZero() {
			t.Errorf("line %q: expected non-zero timestamp", line)
		}
		if e.Source == "" {
			t.Errorf("line %q: expected non-empty source", line)
		}
		if e.RawLog != line {
			t.Errorf("line %q: raw_log mismatch", line)
		}
	}
}

func TestIsIPv4(t *testing.T) {
	cases := map[string]bool{
		"192.168.1.1":     true,
		"0.0.0.0":         true,
		"255.255.255.255": true,
		"256.1.1.1":       false,
		"1.2.3":           false,
		"1.2.3.4.5":       false,
		"abc.def.gh.i":    false,
		"":                false,
	}
	for in, want := range cases {
		if got := isIPv4(in); got != want {
			t.Errorf("isIPv4(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseCommonFormatJoinsRemainder(t *testing.T) {
	e := Parse("203.0.113.5   multiple   spaces   here", "x")
	if strings.Count(e.Message, "  ") != 0 {
		t.Fatalf("expected fields.Join to collapse whitespace, got %q", e.Message)
	}
}
