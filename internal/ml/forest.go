package ml

import (
	"math"
	"math/rand"
	"sort"
)

// ForestParams are the random-forest hyperparameters covered by the grid
// search. MaxDepth 0 means unlimited.
type ForestParams struct {
	Trees           int `json:"trees"`
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
}

// TreeNode is one node of a trained decision tree. Leaf nodes carry the
// positive-class probability observed in their training samples. Fields are
// exported for gob encoding of persisted bundles.
type TreeNode struct {
	Leaf      bool
	Prob      float64
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

// RandomForest is a bagged ensemble of binary CART trees. Importances hold
// the normalized mean impurity decrease per feature across all trees, in the
// canonical feature order.
type RandomForest struct {
	Params      ForestParams
	Trees       []*TreeNode
	Importances []float64
}

// TrainForest fits a random forest on already-scaled samples with binary
// labels. Each tree trains on a bootstrap resample and considers
// sqrt(features) random candidate features per split. The seed fixes the
// resampling so training is reproducible.
func TrainForest(samples [][]float64, labels []int, params ForestParams, seed int64) *RandomForest {
	n := len(samples)
	cols := len(samples[0])
	rng := rand.New(rand.NewSource(seed))

	f := &RandomForest{
		Params:      params,
		Trees:       make([]*TreeNode, 0, params.Trees),
		Importances: make([]float64, cols),
	}

	candidates := int(math.Ceil(math.Sqrt(float64(cols))))
	for t := 0; t < params.Trees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		b := &treeBuilder{
			samples:     samples,
			labels:      labels,
			params:      params,
			rng:         rng,
			candidates:  candidates,
			total:       len(idx),
			importances: f.Importances,
		}
		f.Trees = append(f.Trees, b.build(idx, 0))
	}

	normalize(f.Importances)
	return f
}

// PredictProba returns the forest's positive-class probability: the mean of
// the per-tree leaf probabilities.
func (f *RandomForest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, root := range f.Trees {
		sum += predictTree(root, x)
	}
	return sum / float64(len(f.Trees))
}

func predictTree(node *TreeNode, x []float64) float64 {
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Prob
}

type treeBuilder struct {
	samples     [][]float64
	labels      []int
	params      ForestParams
	rng         *rand.Rand
	candidates  int
	total       int
	importances []float64
}

func (b *treeBuilder) build(idx []int, depth int) *TreeNode {
	positives := 0
	for _, i := range idx {
		positives += b.labels[i]
	}
	prob := float64(positives) / float64(len(idx))

	pure := positives == 0 || positives == len(idx)
	depthLimited := b.params.MaxDepth > 0 && depth >= b.params.MaxDepth
	if pure || depthLimited || len(idx) < b.params.MinSamplesSplit {
		return &TreeNode{Leaf: true, Prob: prob}
	}

	feature, threshold, gain, ok := b.bestSplit(idx, prob)
	if !ok {
		return &TreeNode{Leaf: true, Prob: prob}
	}

	var left, right []int
	for _, i := range idx {
		if b.samples[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[feature] += gain * float64(len(idx)) / float64(b.total)

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

// bestSplit scans a random subset of features for the split with the largest
// gini impurity decrease, honoring the minimum leaf size.
func (b *treeBuilder) bestSplit(idx []int, prob float64) (feature int, threshold, gain float64, ok bool) {
	parentGini := gini(prob)
	n := len(idx)
	cols := len(b.samples[0])

	perm := b.rng.Perm(cols)[:b.candidates]

	type pair struct {
		value float64
		label int
	}
	pairs := make([]pair, n)

	bestGain := 0.0
	for _, j := range perm {
		for k, i := range idx {
			pairs[k] = pair{b.samples[i][j], b.labels[i]}
		}
		sort.Slice(pairs, func(a, c int) bool { return pairs[a].value < pairs[c].value })

		totalPos := 0
		for _, p := range pairs {
			totalPos += p.label
		}

		leftPos := 0
		for k := 0; k < n-1; k++ {
			leftPos += pairs[k].label
			if pairs[k].value == pairs[k+1].value {
				continue
			}
			leftN := k + 1
			rightN := n - leftN
			if leftN < b.params.MinSamplesLeaf || rightN < b.params.MinSamplesLeaf {
				continue
			}
			leftGini := gini(float64(leftPos) / float64(leftN))
			rightGini := gini(float64(totalPos-leftPos) / float64(rightN))
			weighted := (float64(leftN)*leftGini + float64(rightN)*rightGini) / float64(n)
			if g := parentGini - weighted; g > bestGain {
				bestGain = g
				feature = j
				threshold = (pairs[k].value + pairs[k+1].value) / 2
			}
		}
	}

	if bestGain <= 0 {
		return 0, 0, 0, false
	}
	return feature, threshold, bestGain, true
}

// gini is the binary gini impurity for a positive-class share.
func gini(p float64) float64 {
	return 2 * p * (1 - p)
}

func normalize(xs []float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range xs {
		xs[i] /= sum
	}
}
