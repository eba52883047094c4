package ml

import (
	"fmt"
	"math"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
	"github.com/calderae/atalaya/internal/pipeline"
)

// Context bundles one loaded model generation: the preprocessing pipeline,
// the classifier, and the version tag that travels with every score. It is
// constructed once at process start and passed explicitly to every scoring
// call; it is never a hidden singleton. All fields are read-only after
// construction, so a single context serves concurrent requests.
type Context struct {
	pipeline   *pipeline.Pipeline
	classifier Classifier
	version    string
}

// NewContext wires a pipeline and classifier together, verifying that the
// classifier's input width matches the pipeline's output width.
func NewContext(pipe *pipeline.Pipeline, classifier Classifier, version string) (*Context, error) {
	if pipe == nil || classifier == nil {
		return nil, fmt.Errorf("%w: context requires pipeline and classifier", common.ErrModelUnavailable)
	}
	if classifier.InputWidth() != pipe.Width() {
		return nil, fmt.Errorf("%w: classifier expects %d features, pipeline produces %d",
			common.ErrModelUnavailable, classifier.InputWidth(), pipe.Width())
	}
	return &Context{pipeline: pipe, classifier: classifier, version: version}, nil
}

// Version returns the human-readable model version tag.
func (c *Context) Version() string {
	return c.version
}

// VariantTag returns the pipeline variant tag for audit records.
func (c *Context) VariantTag() string {
	return c.pipeline.Variant().Tag
}

// Pipeline exposes the preprocessing pipeline.
func (c *Context) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// Result is one scored record.
type Result struct {
	Band        model.RiskBand
	Label       model.DropoutLabel
	Probability float64
}

// ScoreBatch runs a batch of feature records through the pipeline and the
// classifier in one pass. Probabilities are rounded to four decimals so
// repeated scoring of identical inputs is bit-identical in storage.
func (c *Context) ScoreBatch(records []model.FeatureRecord) ([]Result, error) {
	vectors, err := c.pipeline.Transform(records)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(vectors))
	for i, vector := range vectors {
		probability, scoreErr := c.classifier.Score(vector)
		if scoreErr != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, scoreErr)
		}
		probability = math.Round(probability*10000) / 10000

		label := LabelFor(probability)
		if c.pipeline.Variant().ExpandIndicators {
			if lc, ok := c.classifier.(LabelClassifier); ok {
				if hard, labelErr := lc.PredictLabel(vector); labelErr == nil {
					label = hard
				}
			}
		}

		results[i] = Result{
			Probability: probability,
			Band:        BandFor(probability),
			Label:       label,
		}
	}
	return results, nil
}

// Score runs a single record through the batch path.
func (c *Context) Score(record model.FeatureRecord) (Result, error) {
	results, err := c.ScoreBatch([]model.FeatureRecord{record})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}
