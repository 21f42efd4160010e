// Package parser turns one raw log line into a structured event.Event.
//
// Grounded on the original Python collector's parse_log_line /
// parse_common_format: decode JSON when the trimmed line looks like an
// object, otherwise split on whitespace and treat a leading IPv4
// dotted-quad as the source IP. A line that looks like JSON but does not
// decode is never dropped — it comes back tagged with event.Event.Error
// set and the whole line as its message.
package parser

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// Parse implements spec.md §4.1: (line, source) -> Event.
func Parse(line, source string) *event.Event {
	trimmed := strings.TrimSpace(line)
	e := event.NewEvent()
	e.Source = source
	e.RawLog = line

	if strings.HasPrefix(trimmed, "{") {
		if ok := decodeStructured(trimmed, e); ok {
			return e
		}
		e.Error = event.ErrParseFailed.Error()
		e.Timestamp = time.Now().UTC()
		e.Message = line
		return e
	}

	parseCommonFormat(trimmed, e)
	e.Timestamp = time.Now().UTC()
	return e
}

// decodeStructured decodes a JSON log line into e, returning false if the
// line doesn't parse as a JSON object.
func decodeStructured(trimmed string, e *event.Event) bool {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return false
	}

	e.Extras = make(map[string]string, len(raw))
	for k, v := range raw {
		switch k {
		case "timestamp":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339, s); err == nil {
					e.Timestamp = ts.UTC()
				}
			}
		case "message":
			if s, ok := v.(string); ok {
				e.Message = s
			}
		case "ip":
			if s, ok := v.(string); ok {
				e.IP = s
			}
		case "source", "raw_log":
			// source/raw_log are always set by the caller below; a
			// structured record's own copies are ignored so the
			// immutability invariant (spec.md §3) holds regardless of
			// what the record claims.
		default:
			e.Extras[k] = stringify(v)
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Message == "" {
		e.Message = e.RawLog
	}
	return true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// parseCommonFormat handles the free-text path: a leading IPv4 dotted-quad
// is treated as the source IP and the remainder becomes the message.
func parseCommonFormat(line string, e *event.Event) {
	fields := strings.Fields(line)
	if len(fields) > 0 && isIPv4(fields[0]) {
		e.IP = fields[0]
		e.Message = strings.Join(fields[1:], " ")
		return
	}
	e.Message = line
}

// isIPv4 reports whether s is four dot-separated integers in 0-255,
// matching spec.md §4.1's "valid IPv4 dotted-quad" rule exactly (no
// leading zeros/whitespace tolerance beyond strconv.Atoi's own rules).
func isIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}
