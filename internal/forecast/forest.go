package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// minTrainingSamples is the floor below which Fit refuses to train.
const minTrainingSamples = 2

// Forest is a bagged ensemble of regression trees. Each tree is fit on a
// bootstrap sample of the training set and splits on a random feature subset;
// predictions average the per-tree estimates. All randomness flows from the
// configured seed so identical inputs yield identical predictions.
type Forest struct {
	trees    int
	maxDepth int
	minLeaf  int
	seed     int64

	fitted []*treeNode
}

// NewForest builds an untrained forest. Zero or negative knobs fall back to
// the defaults (100 trees, depth 6, leaf size 1).
func NewForest(trees, maxDepth int, seed int64) *Forest {
	if trees <= 0 {
		trees = 100
	}
	if maxDepth <= 0 {
		maxDepth = 6
	}
	return &Forest{
		trees:    trees,
		maxDepth: maxDepth,
		minLeaf:  1,
		seed:     seed,
	}
}

// Fit trains the ensemble. It fails with ErrInsufficientData when fewer than
// two samples are available.
func (f *Forest) Fit(features [][]float64, labels []float64) error {
	if len(features) != len(labels) {
		return fmt.Errorf("feature/label length mismatch: %d vs %d", len(features), len(labels))
	}
	if len(features) < minTrainingSamples {
		return fmt.Errorf("%w: have %d samples, need %d", domain.ErrInsufficientData, len(features), minTrainingSamples)
	}

	rng := rand.New(rand.NewSource(f.seed))
	n := len(features)

	f.fitted = make([]*treeNode, 0, f.trees)
	for t := 0; t < f.trees; t++ {
		// Bootstrap sample with replacement.
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.fitted = append(f.fitted, buildTree(rng, features, labels, idx, 0, f.maxDepth, f.minLeaf))
	}

	return nil
}

// Predict returns the ensemble's demand estimate for one feature vector,
// clamped non-negative. It fails with ErrUntrainedModel before Fit.
func (f *Forest) Predict(features []float64) (float64, error) {
	if len(f.fitted) == 0 {
		return 0, domain.ErrUntrainedModel
	}

	var sum float64
	for _, tree := range f.fitted {
		sum += tree.predict(features)
	}
	estimate := sum / float64(len(f.fitted))
	return math.Max(0, estimate), nil
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(features []float64) float64 {
	node := n
	for !node.leaf {
		if features[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

func buildTree(rng *rand.Rand, features [][]float64, labels []float64, idx []int, depth, maxDepth, minLeaf int) *treeNode {
	if depth >= maxDepth || len(idx) <= minLeaf || isPure(labels, idx) {
		return &treeNode{leaf: true, value: mean(labels, idx)}
	}

	feature, threshold, ok := bestSplit(rng, features, labels, idx, minLeaf)
	if !ok {
		return &treeNode{leaf: true, value: mean(labels, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(rng, features, labels, left, depth+1, maxDepth, minLeaf),
		right:     buildTree(rng, features, labels, right, depth+1, maxDepth, minLeaf),
	}
}

// bestSplit scans a random feature subset for the threshold minimizing the
// summed squared error of the two partitions.
func bestSplit(rng *rand.Rand, features [][]float64, labels []float64, idx []int, minLeaf int) (int, float64, bool) {
	numFeat := len(features[idx[0]])
	subset := featureSubset(rng, numFeat)

	bestScore := math.Inf(1)
	bestFeature := -1
	var bestThreshold float64

	for _, f := range subset {
		thresholds := candidateThresholds(features, idx, f)
		for _, th := range thresholds {
			var leftIdx, rightIdx []int
			for _, i := range idx {
				if features[i][f] <= th {
					leftIdx = append(leftIdx, i)
				} else {
					rightIdx = append(rightIdx, i)
				}
			}
			if len(leftIdx) < minLeaf || len(rightIdx) < minLeaf {
				continue
			}

			score := sse(labels, leftIdx) + sse(labels, rightIdx)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = th
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// featureSubset picks ceil(p/3) distinct features, the usual regression
// forest heuristic.
func featureSubset(rng *rand.Rand, numFeat int) []int {
	k := (numFeat + 2) / 3
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(numFeat)
	return perm[:k]
}

// candidateThresholds returns midpoints between consecutive distinct values.
func candidateThresholds(features [][]float64, idx []int, f int) []float64 {
	seen := make(map[float64]struct{}, len(idx))
	values := make([]float64, 0, len(idx))
	for _, i := range idx {
		v := features[i][f]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	if len(values) < 2 {
		return nil
	}

	sort.Float64s(values)
	thresholds := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		thresholds = append(thresholds, (values[i-1]+values[i])/2)
	}
	return thresholds
}

func isPure(labels []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if labels[i] != labels[idx[0]] {
			return false
		}
	}
	return true
}

func mean(labels []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += labels[i]
	}
	return sum / float64(len(idx))
}

func sse(labels []float64, idx []int) float64 {
	m := mean(labels, idx)
	var total float64
	for _, i := range idx {
		d := labels[i] - m
		total += d * d
	}
	return total
}
