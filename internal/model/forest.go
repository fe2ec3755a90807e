package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const numClasses = 2

// ForestConfig controls random forest training.
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of candidate features per split; 0 means sqrt(width).
	MaxFeatures int
	Bootstrap   bool
	// BalancedClassWeight weights every class by n / (classes * n_class).
	BalancedClassWeight bool
	Seed                int64
	Workers             int
}

// DefaultForestConfig mirrors the classifier the project has always trained.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:            100,
		MaxDepth:            10,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Bootstrap:           true,
		BalancedClassWeight: true,
		Seed:                42,
	}
}

// Node is a decision node or leaf. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     [numClasses]float64
}

// Tree is a fitted CART tree stored as a flat node slice; node 0 is the root.
type Tree struct {
	Nodes []Node
}

func (t Tree) proba(x []float64) [numClasses]float64 {
	n := t.Nodes[0]
	for n.Feature >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}

// RandomForest is a bagged ensemble of Gini-impurity decision trees for binary labels.
type RandomForest struct {
	Config      ForestConfig
	NumFeatures int
	Trees       []Tree
	Importances []float64
}

// NewRandomForest returns an unfitted forest, filling zero config values with defaults.
func NewRandomForest(cfg ForestConfig) *RandomForest {
	def := DefaultForestConfig()
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = def.NumTrees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = def.MinSamplesSplit
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = def.MinSamplesLeaf
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &RandomForest{Config: cfg}
}

// Fit trains the forest on x with binary labels y. Trees are built concurrently;
// each tree draws from its own seeded source so the result does not depend on
// scheduling.
func (f *RandomForest) Fit(ctx context.Context, x [][]float64, y []int) error {
	if len(x) == 0 {
		return errors.New("forest: empty training set")
	}
	if len(x) != len(y) {
		return fmt.Errorf("forest: %d rows but %d labels", len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("forest: row %d has %d columns, want %d", i, len(row), width)
		}
		if y[i] < 0 || y[i] >= numClasses {
			return fmt.Errorf("forest: label %d at row %d is not binary", y[i], i)
		}
	}

	classWeight := f.classWeights(y)
	maxFeatures := f.Config.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > width {
		maxFeatures = max(1, int(math.Sqrt(float64(width))))
	}

	trees := make([]Tree, f.Config.NumTrees)
	importances := make([][]float64, f.Config.NumTrees)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Config.Workers)
	for t := range trees {
		t := t
		seed := f.Config.Seed + int64(t)*1_000_003
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				x:           x,
				y:           y,
				rng:         rand.New(rand.NewSource(seed)),
				cfg:         f.Config,
				maxFeatures: maxFeatures,
				importance:  make([]float64, width),
			}
			rows, weights := b.sample(classWeight)
			b.weights = weights
			b.grow(rows, 0)
			trees[t] = Tree{Nodes: b.nodes}
			importances[t] = normalize(b.importance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := make([]float64, width)
	for _, imp := range importances {
		for j, v := range imp {
			total[j] += v
		}
	}

	f.NumFeatures = width
	f.Trees = trees
	f.Importances = normalize(total)
	return nil
}

func (f *RandomForest) classWeights(y []int) [numClasses]float64 {
	var counts [numClasses]int
	for _, label := range y {
		counts[label]++
	}
	var weights [numClasses]float64
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	for c, n := range counts {
		switch {
		case n == 0:
			weights[c] = 0
		case f.Config.BalancedClassWeight:
			weights[c] = float64(len(y)) / (float64(present) * float64(n))
		default:
			weights[c] = 1
		}
	}
	return weights
}

// PredictProba returns the probability of the positive class for each row.
func (f *RandomForest) PredictProba(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := f.PredictProbaRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// PredictProbaRow returns the positive-class probability of a single row.
func (f *RandomForest) PredictProbaRow(row []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(row) != f.NumFeatures {
		return 0, fmt.Errorf("forest: got %d columns, want %d", len(row), f.NumFeatures)
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.proba(row)[1]
	}
	return sum / float64(len(f.Trees)), nil
}

// Predict returns the predicted label of each row.
func (f *RandomForest) Predict(x [][]float64) ([]int, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = Decide(p)
	}
	return out, nil
}

// Decide maps a positive-class probability to a label; ties go to the negative class.
func Decide(p float64) int {
	if p > 0.5 {
		return 1
	}
	return 0
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	weights     []float64
	rng         *rand.Rand
	cfg         ForestConfig
	maxFeatures int
	nodes       []Node
	importance  []float64
}

// sample draws the rows this tree is trained on and their weights.
func (b *treeBuilder) sample(classWeight [numClasses]float64) ([]int, []float64) {
	n := len(b.x)
	counts := make([]float64, n)
	if b.cfg.Bootstrap {
		for i := 0; i < n; i++ {
			counts[b.rng.Intn(n)]++
		}
	} else {
		for i := range counts {
			counts[i] = 1
		}
	}
	weights := make([]float64, n)
	rows := make([]int, 0, n)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		weights[i] = c * classWeight[b.y[i]]
		if weights[i] > 0 {
			rows = append(rows, i)
		}
	}
	return rows, weights
}

func (b *treeBuilder) totals(rows []int) ([numClasses]float64, float64) {
	var totals [numClasses]float64
	sum := 0.0
	for _, i := range rows {
		totals[b.y[i]] += b.weights[i]
		sum += b.weights[i]
	}
	return totals, sum
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	totals, sum := b.totals(rows)
	node := Node{Feature: -1}
	if sum > 0 {
		for c := range totals {
			node.Value[c] = totals[c] / sum
		}
	}
	id := len(b.nodes)
	b.nodes = append(b.nodes, node)

	impurity := gini(totals, sum)
	if depth >= b.cfg.MaxDepth || len(rows) < b.cfg.MinSamplesSplit || impurity == 0 {
		return id
	}

	best, ok := b.bestSplit(rows, impurity*sum)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range rows {
		if b.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.importance[best.feature] += best.gain

	leftID := b.grow(left, depth+1)
	rightID := b.grow(right, depth+1)
	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = leftID
	b.nodes[id].Right = rightID
	return id
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans candidate features in random order. Like the usual CART
// implementations it keeps looking past maxFeatures until a valid split exists.
func (b *treeBuilder) bestSplit(rows []int, parentWeightedImpurity float64) (split, bool) {
	width := len(b.x[0])
	order := b.rng.Perm(width)
	sorted := make([]int, len(rows))

	var best split
	found := false
	for k, feature := range order {
		if k >= b.maxFeatures && found {
			break
		}
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			return b.x[sorted[i]][feature] < b.x[sorted[j]][feature]
		})

		rightTotals, rightSum := b.totals(sorted)
		var leftTotals [numClasses]float64
		leftSum := 0.0
		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			leftTotals[b.y[i]] += b.weights[i]
			rightTotals[b.y[i]] -= b.weights[i]
			leftSum += b.weights[i]
			rightSum -= b.weights[i]

			cur, next := b.x[i][feature], b.x[sorted[pos+1]][feature]
			if cur == next {
				continue
			}
			nLeft := pos + 1
			if nLeft < b.cfg.MinSamplesLeaf || len(sorted)-nLeft < b.cfg.MinSamplesLeaf {
				continue
			}
			children := gini(leftTotals, leftSum)*leftSum + gini(rightTotals, rightSum)*rightSum
			gain := parentWeightedImpurity - children
			if gain > 1e-12 && (!found || gain > best.gain) {
				best = split{feature: feature, threshold: cur + (next-cur)/2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func gini(totals [numClasses]float64, sum float64) float64 {
	if sum <= 0 {
		return 0
	}
	g := 1.0
	for _, t := range totals {
		p := t / sum
		g -= p * p
	}
	if g < 0 {
		return 0
	}
	return g
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}
