package scorer

import (
	"math"
	"math/rand"
)

const (
	numTrees       = 100
	subsampleSize  = 256
	randomStateSeed = 42 // mirrors the original's IsolationForest(random_state=42)
)

// isoNode is either a leaf (size holds the subsample count that reached
// it) or an internal split on one standardised feature.
type isoNode struct {
	size        int
	feature     int
	splitValue  float64
	left, right *isoNode
}

type isolationForest struct {
	trees           []*isoNode
	subsampleSize   int
	pathNormaliser  float64
}

// fitIsolationForest builds numTrees trees, each on an independent
// bootstrap subsample of the standardised rows, using a PRNG seeded
// deterministically so fit/score are reproducible across runs (spec.md
// §8: deterministic given identical training data).
func fitIsolationForest(rows [][numFeatures]float64) *isolationForest {
	rng := rand.New(rand.NewSource(randomStateSeed))

	size := subsampleSize
	if len(rows) < size {
		size = len(rows)
	}
	if size == 0 {
		size = 1
	}
	maxDepth := int(math.Ceil(math.Log2(float64(size))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	normaliser := averagePathLength(size)
	if normaliser == 0 {
		// size==1: only a single historical event was available to fit
		// on. averagePathLength(1)==0 by definition, but leaving
		// pathNormaliser at 0 would make score() divide by zero and
		// permanently short-circuit to 0, silently disabling anomaly
		// detection for the lifetime of this fit. Floor it at 1 (the
		// exact c(2)), so scoring stays meaningful.
		normaliser = 1
	}

	forest := &isolationForest{
		subsampleSize:  size,
		pathNormaliser: normaliser,
	}

	for t := 0; t < numTrees; t++ {
		sample := bootstrapSample(rows, size, rng)
		forest.trees = append(forest.trees, buildIsoTree(sample, 0, maxDepth, rng))
	}
	return forest
}

func bootstrapSample(rows [][numFeatures]float64, size int, rng *rand.Rand) [][numFeatures]float64 {
	if len(rows) == 0 {
		return nil
	}
	sample := make([][numFeatures]float64, size)
	for i := range sample {
		sample[i] = rows[rng.Intn(len(rows))]
	}
	return sample
}

func buildIsoTree(rows [][numFeatures]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if depth >= maxDepth || len(rows) <= 1 {
		return &isoNode{size: len(rows)}
	}

	feature := rng.Intn(numFeatures)
	min, max := featureRange(rows, feature)
	if min == max {
		return &isoNode{size: len(rows)}
	}
	split := min + rng.Float64()*(max-min)

	var left, right [][numFeatures]float64
	for _, row := range rows {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(rows)}
	}

	return &isoNode{
		feature:    feature,
		splitValue: split,
		left:       buildIsoTree(left, depth+1, maxDepth, rng),
		right:      buildIsoTree(right, depth+1, maxDepth, rng),
	}
}

func featureRange(rows [][numFeatures]float64, feature int) (min, max float64) {
	min, max = rows[0][feature], rows[0][feature]
	for _, row := range rows[1:] {
		if row[feature] < min {
			min = row[feature]
		}
		if row[feature] > max {
			max = row[feature]
		}
	}
	return min, max
}

// pathLength walks row down the tree, adding the average unsuccessful-
// search path length of whatever leaf it lands in (standard isolation
// forest path-length estimator).
func pathLength(node *isoNode, row [numFeatures]float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	if row[node.feature] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// averagePathLength is c(n), the average path length of an unsuccessful
// BST search over n points (Liu, Ting & Zhou, 2008).
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	nf := float64(n)
	return 2*harmonic(nf-1) - (2 * (nf - 1) / nf)
}

func harmonic(x float64) float64 {
	// H(x) ≈ ln(x) + γ (Euler-Mascheroni), accurate enough for path
	// length normalisation; matches the asymptotic form used by the
	// reference isolation forest paper.
	const eulerMascheroni = 0.5772156649015329
	return math.Log(x) + eulerMascheroni
}

// score returns the isolation-forest anomaly score for row, transformed
// to the "more negative = more anomalous" convention of spec.md §4.4:
// 0.5 minus the mean normalised path-length score across all trees, so
// short average paths (anomalies) push the score negative.
func (f *isolationForest) score(row [numFeatures]float64) float64 {
	if len(f.trees) == 0 || f.pathNormaliser == 0 {
		return 0
	}

	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, row, 0)
	}
	meanPath := total / float64(len(f.trees))

	s := math.Pow(2, -meanPath/f.pathNormaliser)
	return 0.5 - s
}
