// Package scorer implements the anomaly-detection contract of spec.md
// §4.4: a feature extractor shared by fit and score, standardisation
// fit once and reused, and a from-scratch isolation-forest-flavored
// detector (no sklearn equivalent exists in the retrieval pack, grounded
// on original_source/anomaly_detection.py's extract_features/fit/
// detect_anomalies for the exact feature contract and sign convention).
package scorer

import (
	"crypto/md5"
	"encoding/binary"
	"strings"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

const numFeatures = 8

var errorKeywords = []string{"error", "fail", "exception", "denied"}

// extractFeatures builds the standardised-before-scaling feature vector
// for one event, in the fixed order spec.md §4.4 names: hour,
// day_of_week, is_weekend, source_hash, ip_hash, message_length,
// word_count, has_error.
func extractFeatures(e *event.Event) [numFeatures]float64 {
	var f [numFeatures]float64

	if !e.Timestamp.IsZero() {
		f[0] = float64(e.Timestamp.Hour())
		weekday := int(e.Timestamp.Weekday())
		// time.Weekday is Sunday=0..Saturday=6; the original's
		// datetime.weekday() is Monday=0..Sunday=6. Convert so
		// is_weekend lines up with the same Sat/Sun definition.
		dow := (weekday + 6) % 7
		f[1] = float64(dow)
		if dow >= 5 {
			f[2] = 1
		}
	}

	f[3] = float64(hashPrefix32(e.Source))
	if e.IP != "" {
		f[4] = float64(hashPrefix32(e.IP))
	}

	f[5] = float64(len(e.Message))
	f[6] = float64(len(strings.Fields(e.Message)))

	lower := strings.ToLower(e.Message)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			f[7] = 1
			break
		}
	}

	return f
}

// hashPrefix32 returns the leading 32 bits of the MD5 digest of s,
// interpreted as an unsigned integer (spec.md §4.4). Empty input still
// hashes deterministically, matching md5("").
func hashPrefix32(s string) uint32 {
	sum := md5.Sum([]byte(s))
	return binary.BigEndian.Uint32(sum[:4])
}
