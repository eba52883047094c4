package ml

import (
	"fmt"
	"math"

	"github.com/calderae/atalaya/internal/model"
)

// Classifier scores one dense, preprocessed feature vector. Implementations
// are immutable after load and safe for concurrent use.
type Classifier interface {
	Score(vector []float64) (float64, error)
	InputWidth() int
}

// LabelClassifier is implemented by classifiers that produce a hard label
// independently of the probability cut. Only indicator-expanded models
// export one; label-encoded models derive the label from the 0.5 cut.
type LabelClassifier interface {
	PredictLabel(vector []float64) (model.DropoutLabel, error)
}

// LogisticClassifier is a fitted logistic regression: probability is the
// sigmoid of the linear combination of inputs.
type LogisticClassifier struct {
	coefficients []float64
	intercept    float64
}

// NewLogisticClassifier builds a classifier from fitted coefficients.
func NewLogisticClassifier(coefficients []float64, intercept float64) (*LogisticClassifier, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("logistic classifier has no coefficients")
	}
	return &LogisticClassifier{coefficients: coefficients, intercept: intercept}, nil
}

// InputWidth returns the expected vector width.
func (c *LogisticClassifier) InputWidth() int {
	return len(c.coefficients)
}

// Score returns the dropout probability for one vector.
func (c *LogisticClassifier) Score(vector []float64) (float64, error) {
	if len(vector) != len(c.coefficients) {
		return 0, fmt.Errorf("vector width %d, classifier expects %d", len(vector), len(c.coefficients))
	}
	margin := c.intercept
	for i, w := range c.coefficients {
		margin += w * vector[i]
	}
	return sigmoid(margin), nil
}

// TreeNode is one node of a fitted regression tree. A nil SplitFeature
// marks a leaf carrying a log-odds contribution.
type TreeNode struct {
	SplitFeature *int    `json:"split"`
	Threshold    float64 `json:"threshold"`
	Left         int     `json:"left"`
	Right        int     `json:"right"`
	Leaf         float64 `json:"leaf"`
}

// Tree is one fitted regression tree of a boosted ensemble.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) evaluate(vector []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("tree walked to node %d of %d", idx, len(t.Nodes))
		}
		node := t.Nodes[idx]
		if node.SplitFeature == nil {
			return node.Leaf, nil
		}
		f := *node.SplitFeature
		if f < 0 || f >= len(vector) {
			return 0, fmt.Errorf("tree splits on feature %d, vector width %d", f, len(vector))
		}
		if vector[f] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("tree contains a cycle")
}

// BoostedTreesClassifier is a fitted additive ensemble of binary regression
// trees on log-odds: probability is the sigmoid of base score plus the sum
// of leaf contributions.
type BoostedTreesClassifier struct {
	trees      []Tree
	baseScore  float64
	inputWidth int
}

// NewBoostedTreesClassifier builds a classifier from a fitted ensemble.
func NewBoostedTreesClassifier(trees []Tree, baseScore float64, inputWidth int) (*BoostedTreesClassifier, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("boosted ensemble has no trees")
	}
	if inputWidth <= 0 {
		return nil, fmt.Errorf("boosted ensemble input width must be positive, got %d", inputWidth)
	}
	return &BoostedTreesClassifier{trees: trees, baseScore: baseScore, inputWidth: inputWidth}, nil
}

// InputWidth returns the expected vector width.
func (c *BoostedTreesClassifier) InputWidth() int {
	return c.inputWidth
}

// Score returns the dropout probability for one vector.
func (c *BoostedTreesClassifier) Score(vector []float64) (float64, error) {
	if len(vector) != c.inputWidth {
		return 0, fmt.Errorf("vector width %d, classifier expects %d", len(vector), c.inputWidth)
	}
	margin := c.baseScore
	for i := range c.trees {
		leaf, err := c.trees[i].evaluate(vector)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		margin += leaf
	}
	return sigmoid(margin), nil
}

// PredictLabel returns the hard classification outcome.
func (c *BoostedTreesClassifier) PredictLabel(vector []float64) (model.DropoutLabel, error) {
	probability, err := c.Score(vector)
	if err != nil {
		return "", err
	}
	return LabelFor(probability), nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
