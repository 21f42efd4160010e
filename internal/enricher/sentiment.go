package enricher

import (
	"strings"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// polarityLexicon is a small hand-built word list standing in for the
// VADER lexicon the original Python implementation used
// (vaderSentiment.SentimentIntensityAnalyzer). No sentiment-analysis
// library exists anywhere in the retrieval pack, so this is a minimal,
// deterministic lexicon scorer: each word contributes a fixed weight,
// the compound score is the clamped mean of per-word weights, and pos/
// neg/neu are the share of matched words on each side (spec.md §4.3).
var polarityLexicon = map[string]float64{
	"success": 0.6, "successful": 0.6, "connected": 0.4, "accepted": 0.4,
	"normal": 0.3, "ok": 0.3, "good": 0.5, "complete": 0.4, "completed": 0.4,
	"healthy": 0.5, "recovered": 0.5, "resolved": 0.5,
	"error": -0.6, "fail": -0.6, "failed": -0.6, "failure": -0.6,
	"denied": -0.7, "blocked": -0.6, "unauthorized": -0.7, "attack": -0.8,
	"exception": -0.5, "critical": -0.8, "fatal": -0.9, "panic": -0.8,
	"crash": -0.8, "timeout": -0.4, "refused": -0.5, "suspicious": -0.5,
	"unusual": -0.3, "warning": -0.3, "corrupt": -0.6, "corrupted": -0.6,
}

type polarityScores struct {
	compound float64
	pos      float64
	neg      float64
	neu      float64
}

// scoreSentiment computes compound/pos/neg/neu the way vaderSentiment's
// polarity_scores does conceptually: a bounded compound score plus the
// proportion of words landing in each bucket.
func scoreSentiment(message string) polarityScores {
	words := strings.Fields(strings.ToLower(message))
	if len(words) == 0 {
		return polarityScores{neu: 1.0}
	}

	var sum float64
	var posCount, negCount, neuCount int
	for _, w := range words {
		w = strings.Trim(w, ".,:;!?\"'()[]{}")
		weight, ok := polarityLexicon[w]
		if !ok {
			neuCount++
			continue
		}
		sum += weight
		if weight > 0 {
			posCount++
		} else if weight < 0 {
			negCount++
		} else {
			neuCount++
		}
	}

	compound := clamp(sum/float64(len(words)), -1, 1)
	n := float64(len(words))
	return polarityScores{
		compound: compound,
		pos:      float64(posCount) / n,
		neg:      float64(negCount) / n,
		neu:      float64(neuCount) / n,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// classifySentiment maps compound/pos/neg/neu onto the Sentiment
// enrichment field per the thresholds in spec.md §4.3.
func classifySentiment(s polarityScores) event.Sentiment {
	switch {
	case s.compound >= 0.05:
		return event.Sentiment{Label: event.SentimentPositive, Score: s.pos}
	case s.compound <= -0.05:
		return event.Sentiment{Label: event.SentimentNegative, Score: s.neg}
	default:
		return event.Sentiment{Label: event.SentimentNeutral, Score: s.neu}
	}
}

func sentimentFor(message string) event.Sentiment {
	return classifySentiment(scoreSentiment(message))
}
