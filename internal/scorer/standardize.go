package scorer

import "math"

// standardizer holds the per-feature mean/stddev fit on the training
// batch and reused, unmodified, at scoring time (spec.md §4.4).
type standardizer struct {
	mean   [numFeatures]float64
	stddev [numFeatures]float64
}

func fitStandardizer(rows [][numFeatures]float64) standardizer {
	var s standardizer
	if len(rows) == 0 {
		for i := range s.stddev {
			s.stddev[i] = 1
		}
		return s
	}

	n := float64(len(rows))
	for _, row := range rows {
		for i, v := range row {
			s.mean[i] += v
		}
	}
	for i := range s.mean {
		s.mean[i] /= n
	}

	for _, row := range rows {
		for i, v := range row {
			d := v - s.mean[i]
			s.stddev[i] += d * d
		}
	}
	for i := range s.stddev {
		variance := s.stddev[i] / n
		sd := math.Sqrt(variance)
		if sd == 0 {
			sd = 1
		}
		s.stddev[i] = sd
	}
	return s
}

func (s standardizer) transform(row [numFeatures]float64) [numFeatures]float64 {
	var out [numFeatures]float64
	for i, v := range row {
		out[i] = (v - s.mean[i]) / s.stddev[i]
	}
	return out
}
