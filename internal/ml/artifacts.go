package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/pipeline"
)

// Artifact file names inside a model directory. The training side exports
// all four; a missing or malformed file makes the whole model unavailable.
const (
	encodersFile = "encoders.json"
	imputerFile  = "imputer.json"
	scalerFile   = "scaler.json"
	modelFile    = "model.json"
)

type imputerArtifact struct {
	Columns    []string     `json:"columns"`
	Samples    [][]*float64 `json:"samples"`
	NNeighbors int          `json:"n_neighbors"`
}

type scalerArtifact struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

type modelArtifact struct {
	Type         string    `json:"type"`
	Version      string    `json:"version"`
	Variant      string    `json:"variant"`
	Columns      []string  `json:"columns"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Trees        []Tree    `json:"trees"`
	BaseScore    float64   `json:"base_score"`
}

// LoadContext reads the four model artifacts from a directory and wires
// them into a ready scoring context. Every failure is reported as
// ErrModelUnavailable: scoring must be refused, never silently defaulted.
func LoadContext(dir string) (*Context, error) {
	var vocabularies map[string][]string
	if err := readArtifact(dir, encodersFile, &vocabularies); err != nil {
		return nil, err
	}
	encoders, err := pipeline.NewEncodingTable(vocabularies)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	var impArt imputerArtifact
	if err := readArtifact(dir, imputerFile, &impArt); err != nil {
		return nil, err
	}
	samples := make([][]float64, len(impArt.Samples))
	for i, row := range impArt.Samples {
		dense := make([]float64, len(row))
		for j, cell := range row {
			if cell == nil {
				dense[j] = math.NaN()
			} else {
				dense[j] = *cell
			}
		}
		samples[i] = dense
	}
	imputer, err := pipeline.NewKNNImputer(impArt.Columns, samples, impArt.NNeighbors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	var scArt scalerArtifact
	if err := readArtifact(dir, scalerFile, &scArt); err != nil {
		return nil, err
	}
	scaler, err := pipeline.NewStandardScaler(scArt.Columns, scArt.Mean, scArt.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	var mdArt modelArtifact
	if err := readArtifact(dir, modelFile, &mdArt); err != nil {
		return nil, err
	}
	if mdArt.Version == "" {
		return nil, fmt.Errorf("%w: model artifact has no version tag", common.ErrModelUnavailable)
	}

	variant := pipeline.Variant{
		Tag:              mdArt.Variant,
		Columns:          mdArt.Columns,
		ExpandIndicators: mdArt.Variant == pipeline.VariantIndicatorExpanded,
	}
	pipe, err := pipeline.New(encoders, imputer, scaler, variant)
	if err != nil {
		return nil, err
	}

	var classifier Classifier
	switch mdArt.Type {
	case "logistic":
		classifier, err = NewLogisticClassifier(mdArt.Coefficients, mdArt.Intercept)
	case "boosted_trees":
		classifier, err = NewBoostedTreesClassifier(mdArt.Trees, mdArt.BaseScore, pipe.Width())
	default:
		return nil, fmt.Errorf("%w: unknown classifier type %q", common.ErrModelUnavailable, mdArt.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	return NewContext(pipe, classifier, mdArt.Version)
}

func readArtifact(dir, name string, target any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", common.ErrModelUnavailable, name, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", common.ErrModelUnavailable, name, err)
	}
	return nil
}
