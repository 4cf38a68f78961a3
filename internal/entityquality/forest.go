package entityquality

import (
	"math"
	"math/rand"
	"sort"
)

// ForestParams configure random forest training.
type ForestParams struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

// Node is a decision tree node. Leaves carry the fraction of valid samples that reached them.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      *Node   `json:"l,omitempty"`
	Right     *Node   `json:"r,omitempty"`
	Prob      float64 `json:"p"`
}

func (n *Node) leaf() bool { return n.Left == nil || n.Right == nil }

func (n *Node) predict(v Vector) float64 {
	for !n.leaf() {
		if v[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Prob
}

// Forest is a bagged ensemble of gini decision trees.
type Forest struct {
	Trees      []*Node `json:"trees"`
	Importance Vector  `json:"importance"`
}

// FitForest grows p.Trees trees on bootstrap samples, trying sqrt(NumFeatures) random features per split.
func FitForest(samples []Sample, p ForestParams) *Forest {
	if p.Trees < 1 {
		p.Trees = 1
	}
	if p.MaxDepth < 1 {
		p.MaxDepth = 1
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	f := &Forest{}
	if len(samples) == 0 {
		f.Trees = []*Node{{}}
		f.Importance = normalize(Vector{})
		return f
	}
	g := &grower{
		samples: samples,
		params:  p,
		rng:     rand.New(rand.NewSource(p.Seed)),
		mtry:    int(math.Sqrt(NumFeatures)),
	}
	for t := 0; t < p.Trees; t++ {
		idx := make([]int, len(samples))
		for i := range idx {
			idx[i] = g.rng.Intn(len(samples))
		}
		f.Trees = append(f.Trees, g.grow(idx, 0))
	}
	f.Importance = normalize(g.importance)
	return f
}

func (f *Forest) PredictProba(v Vector) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(v)
	}
	return sum / float64(len(f.Trees))
}

// Importances are the total gini impurity decreases per feature.
func (f *Forest) Importances() Vector { return f.Importance }

type grower struct {
	samples    []Sample
	params     ForestParams
	rng        *rand.Rand
	mtry       int
	importance Vector
}

func (g *grower) positives(idx []int) int {
	n := 0
	for _, i := range idx {
		if g.samples[i].Valid {
			n++
		}
	}
	return n
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func (g *grower) grow(idx []int, depth int) *Node {
	pos := g.positives(idx)
	node := &Node{Prob: float64(pos) / float64(len(idx))}
	if depth >= g.params.MaxDepth || len(idx) < g.params.MinSamplesSplit || pos == 0 || pos == len(idx) {
		return node
	}

	parent := gini(pos, len(idx))
	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0
	// Features past mtry are tried only while no candidate could split.
	for k, f := range g.rng.Perm(NumFeatures) {
		if k >= g.mtry && bestFeature >= 0 {
			break
		}
		gain, threshold, ok := g.bestSplit(idx, f, pos, parent)
		if ok && gain > bestGain {
			bestGain, bestFeature, bestThreshold = gain, f, threshold
		}
	}
	if bestFeature < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if g.samples[i].X[bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	g.importance[bestFeature] += bestGain * float64(len(idx))
	node.Feature = bestFeature
	node.Threshold = bestThreshold
	node.Left = g.grow(left, depth+1)
	node.Right = g.grow(right, depth+1)
	return node
}

// bestSplit scans midpoints between distinct values of feature f for the largest impurity decrease.
func (g *grower) bestSplit(idx []int, f, pos int, parent float64) (float64, float64, bool) {
	sorted := append([]int(nil), idx...)
	sort.Slice(sorted, func(a, b int) bool { return g.samples[sorted[a]].X[f] < g.samples[sorted[b]].X[f] })

	n := len(sorted)
	bestGain, bestThreshold, found := 0.0, 0.0, false
	leftPos := 0
	for k := 0; k < n-1; k++ {
		if g.samples[sorted[k]].Valid {
			leftPos++
		}
		cur, next := g.samples[sorted[k]].X[f], g.samples[sorted[k+1]].X[f]
		if cur == next {
			continue
		}
		nl, nr := k+1, n-k-1
		child := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
		if gain := parent - child; gain > bestGain {
			bestGain, bestThreshold, found = gain, (cur+next)/2, true
		}
	}
	return bestGain, bestThreshold, found
}
