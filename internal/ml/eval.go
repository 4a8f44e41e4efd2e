package ml

import (
	"math/rand"
	"sort"
)

// accuracy is the share of samples whose 0.5-thresholded probability matches
// the label.
func accuracy(probs []float64, labels []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	correct := 0
	for i, p := range probs {
		pred := 0
		if p > 0.5 {
			pred = 1
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(probs))
}

// rocAUC computes the area under the ROC curve by the rank statistic
// (Mann-Whitney U), with midrank handling for tied scores. A degenerate
// single-class sample scores 0.5 rather than erroring, so cross-validation
// folds that lose a class degrade instead of aborting the search.
func rocAUC(probs []float64, labels []int) float64 {
	n := len(probs)
	pos := 0
	for _, y := range labels {
		pos += y
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return 0.5
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[order[j]] == probs[order[i]] {
			j++
		}
		// midrank for the tie group [i, j)
		mid := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = mid
		}
		i = j
	}

	var rankSum float64
	for i, y := range labels {
		if y == 1 {
			rankSum += ranks[i]
		}
	}
	u := rankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg))
}

// stratifiedSplit partitions sample indices into train/test keeping the class
// shares, shuffled by the seeded generator. testShare is clamped so both
// sides stay non-empty whenever the input allows it.
func stratifiedSplit(labels []int, testShare float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))

	var byClass [2][]int
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}

	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		cut := int(float64(len(idx)) * testShare)
		if cut == 0 && len(idx) > 1 {
			cut = 1
		}
		test = append(test, idx[:cut]...)
		train = append(train, idx[cut:]...)
	}

	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test
}

// kFolds splits sample indices into k stratified folds for cross-validation.
// With fewer samples than folds some folds come back empty; callers skip
// those.
func kFolds(labels []int, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))

	folds := make([][]int, k)
	var byClass [2][]int
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		for pos, i := range idx {
			folds[pos%k] = append(folds[pos%k], i)
		}
	}
	return folds
}

func gather(samples [][]float64, labels []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k] = samples[i]
		ys[k] = labels[i]
	}
	return xs, ys
}
