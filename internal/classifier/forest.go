package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// RandomForestParams are the RandomForestClassifier hyperparameters.
// MaxFeatures accepts "sqrt", "log2", "all" or a positive integer.
type RandomForestParams struct {
	NEstimators     int         `mapstructure:"n_estimators"`
	MaxDepth        int         `mapstructure:"max_depth"`
	MinSamplesSplit int         `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int         `mapstructure:"min_samples_leaf"`
	MaxFeatures     interface{} `mapstructure:"max_features"`
	Bootstrap       bool        `mapstructure:"bootstrap"`
	RandomState     int64       `mapstructure:"random_state"`
	NJobs           int         `mapstructure:"n_jobs"`
}

// RandomForest averages the leaf probabilities of CART trees grown on
// bootstrap samples with a random feature subset tried at each split.
type RandomForest struct {
	params RandomForestParams
	width  int
	trees  []*node
}

type node struct {
	feature     int
	threshold   float64
	left, right *node
	proba       float64
}

func (n *node) leaf() bool { return n.left == nil }

func newRandomForest(params Params) (Estimator, error) {
	p := RandomForestParams{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	switch {
	case p.NEstimators <= 0:
		return nil, fmt.Errorf("invalid hyperparameters: n_estimators must be positive, got %d", p.NEstimators)
	case p.MinSamplesSplit < 2:
		return nil, fmt.Errorf("invalid hyperparameters: min_samples_split must be at least 2, got %d", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return nil, fmt.Errorf("invalid hyperparameters: min_samples_leaf must be at least 1, got %d", p.MinSamplesLeaf)
	}
	if _, err := featureCount(p.MaxFeatures, 1); err != nil {
		return nil, err
	}
	return &RandomForest{params: p}, nil
}

// featureCount resolves max_features for a matrix of width columns
func featureCount(maxFeatures interface{}, width int) (int, error) {
	var k int
	switch v := maxFeatures.(type) {
	case nil:
		k = width
	case int:
		k = v
	case int64:
		k = int(v)
	case float64:
		k = int(v)
	case string:
		switch v {
		case "sqrt":
			k = int(math.Sqrt(float64(width)))
		case "log2":
			k = int(math.Log2(float64(width)))
		case "all", "None", "":
			k = width
		default:
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid hyperparameters: max_features %q", v)
			}
			k = n
		}
	default:
		return 0, fmt.Errorf("invalid hyperparameters: max_features %v", maxFeatures)
	}
	if k < 1 {
		k = 1
	}
	if k > width {
		k = width
	}
	return k, nil
}

// Fit grows the trees concurrently. Each tree draws from its own generator
// seeded from random_state, so results do not depend on n_jobs.
func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	width, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	k, err := featureCount(rf.params.MaxFeatures, width)
	if err != nil {
		return err
	}

	seeder := rand.New(rand.NewPCG(uint64(rf.params.RandomState), 0))
	seeds := make([]uint64, rf.params.NEstimators)
	for i := range seeds {
		seeds[i] = seeder.Uint64()
	}

	jobs := rf.params.NJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	trees := make([]*node, rf.params.NEstimators)
	var g errgroup.Group
	g.SetLimit(jobs)
	for i := range trees {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			rows := make([]int, len(X))
			for r := range rows {
				if rf.params.Bootstrap {
					rows[r] = rng.IntN(len(X))
				} else {
					rows[r] = r
				}
			}
			gr := &grower{X: X, y: y, params: rf.params, maxFeatures: k, width: width, rng: rng}
			trees[i] = gr.grow(rows, 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.width = width
	rf.trees = trees
	return nil
}

// PredictProba averages the positive-class leaf fraction over all trees
func (rf *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if rf.trees == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, rf.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, tree := range rf.trees {
			n := tree
			for !n.leaf() {
				if row[n.feature] <= n.threshold {
					n = n.left
				} else {
					n = n.right
				}
			}
			sum += n.proba
		}
		out[i] = sum / float64(len(rf.trees))
	}
	return out, nil
}

type grower struct {
	X           [][]float64
	y           []float64
	params      RandomForestParams
	maxFeatures int
	width       int
	rng         *rand.Rand
}

func (g *grower) positives(rows []int) float64 {
	var pos float64
	for _, r := range rows {
		pos += g.y[r]
	}
	return pos
}

func (g *grower) grow(rows []int, depth int) *node {
	pos := g.positives(rows)
	n := &node{proba: pos / float64(len(rows))}
	if pos == 0 || pos == float64(len(rows)) ||
		len(rows) < g.params.MinSamplesSplit ||
		(g.params.MaxDepth > 0 && depth >= g.params.MaxDepth) {
		return n
	}

	feature, threshold, ok := g.bestSplit(rows, pos)
	if !ok {
		return n
	}
	var left, right []int
	for _, r := range rows {
		if g.X[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	n.feature = feature
	n.threshold = threshold
	n.left = g.grow(left, depth+1)
	n.right = g.grow(right, depth+1)
	return n
}

// gini is the weighted Gini impurity of a child with n rows, pos positive
func gini(n, pos float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return n * 2 * p * (1 - p)
}

// bestSplit searches a random feature subset for the threshold with the
// largest impurity decrease. Features are drawn until one yields a valid
// split, as long as at least maxFeatures have been tried.
func (g *grower) bestSplit(rows []int, pos float64) (int, float64, bool) {
	total := float64(len(rows))
	parent := gini(total, pos)
	minLeaf := g.params.MinSamplesLeaf

	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := parent

	order := g.rng.Perm(g.width)
	sorted := make([]int, len(rows))
	for tried, feature := range order {
		if tried >= g.maxFeatures && bestFeature >= 0 {
			break
		}
		copy(sorted, rows)
		sort.Slice(sorted, func(a, b int) bool {
			return g.X[sorted[a]][feature] < g.X[sorted[b]][feature]
		})

		var leftPos float64
		for i := 0; i < len(sorted)-1; i++ {
			leftPos += g.y[sorted[i]]
			nLeft := i + 1
			cur, next := g.X[sorted[i]][feature], g.X[sorted[i+1]][feature]
			if cur == next || nLeft < minLeaf || len(sorted)-nLeft < minLeaf {
				continue
			}
			impurity := gini(float64(nLeft), leftPos) + gini(total-float64(nLeft), pos-leftPos)
			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = cur + (next-cur)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
