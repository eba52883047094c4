package pipeline

import (
	"fmt"
	"math"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

// Variant tags for the supported pipeline generations. A generation is
// never mutated after release: retrained models ship as a new variant so
// historical scores stay reproducible.
const (
	VariantLabelEncoded      = "A"
	VariantIndicatorExpanded = "B"
)

// Variant selects one preprocessing generation. It carries its own ordered
// classifier column list and whether categorical codes are expanded into
// indicator columns.
type Variant struct {
	Tag              string
	Columns          []string
	ExpandIndicators bool
}

// LabelColumns returns the ordered column names of the label-encoded
// vector: numeric keys followed by encoded categorical keys.
func LabelColumns() []string {
	numeric := model.NumericKeys()
	categorical := model.CategoricalKeys()
	cols := make([]string, 0, len(numeric)+len(categorical))
	cols = append(cols, numeric...)
	for _, key := range categorical {
		cols = append(cols, key+"_enc")
	}
	return cols
}

// IndicatorColumn names the one-hot column for one categorical code,
// following the training-time convention (drop-first: code 0 of each key
// contributes the all-zero pattern and has no column).
func IndicatorColumn(key string, code int) string {
	return fmt.Sprintf("%s_enc_%d", key, code)
}

// Pipeline is the deterministic preprocessing pipeline for one loaded model
// generation. It owns no mutable state; the three fitted artifacts are
// read-only after construction, so one pipeline may serve concurrent
// scoring requests.
type Pipeline struct {
	encoders *EncodingTable
	imputer  *KNNImputer
	scaler   *StandardScaler
	variant  Variant
}

// New validates artifact shapes against each other and returns a pipeline.
// Shape mismatches mean the artifact set cannot have come from one training
// run and are unrecoverable.
func New(encoders *EncodingTable, imputer *KNNImputer, scaler *StandardScaler, variant Variant) (*Pipeline, error) {
	if encoders == nil || imputer == nil || scaler == nil {
		return nil, fmt.Errorf("%w: pipeline requires encoders, imputer and scaler", common.ErrModelUnavailable)
	}

	labelCols := LabelColumns()
	impCols := imputer.Columns()
	if len(impCols) != len(labelCols) {
		return nil, fmt.Errorf("%w: imputer fitted on %d columns, want %d",
			common.ErrModelUnavailable, len(impCols), len(labelCols))
	}
	for i, col := range labelCols {
		if impCols[i] != col {
			return nil, fmt.Errorf("%w: imputer column %d is %q, want %q",
				common.ErrModelUnavailable, i, impCols[i], col)
		}
	}

	for _, col := range scaler.Columns() {
		if !isNumericKey(col) {
			return nil, fmt.Errorf("%w: scaler fitted on non-numeric column %q",
				common.ErrModelUnavailable, col)
		}
	}

	switch variant.Tag {
	case VariantLabelEncoded:
		if variant.ExpandIndicators {
			return nil, fmt.Errorf("%w: variant A does not expand indicators", common.ErrModelUnavailable)
		}
		if len(variant.Columns) == 0 {
			variant.Columns = labelCols
		}
	case VariantIndicatorExpanded:
		if !variant.ExpandIndicators {
			return nil, fmt.Errorf("%w: variant B requires indicator expansion", common.ErrModelUnavailable)
		}
		if len(variant.Columns) == 0 {
			return nil, fmt.Errorf("%w: variant B requires the training-time column list", common.ErrModelUnavailable)
		}
	default:
		return nil, fmt.Errorf("%w: unknown pipeline variant %q", common.ErrModelUnavailable, variant.Tag)
	}

	return &Pipeline{encoders: encoders, imputer: imputer, scaler: scaler, variant: variant}, nil
}

// Variant returns the pipeline's variant descriptor.
func (p *Pipeline) Variant() Variant {
	return p.variant
}

// Width returns the classifier input width for this variant.
func (p *Pipeline) Width() int {
	return len(p.variant.Columns)
}

// Encoders exposes the encoding table for feature snapshot rendering.
func (p *Pipeline) Encoders() *EncodingTable {
	return p.encoders
}

// Transform converts a batch of feature records into dense classifier
// input vectors. The batch runs through imputation in one pass; a
// single-record call is a batch of size 1.
func (p *Pipeline) Transform(records []model.FeatureRecord) ([][]float64, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty batch", common.ErrInvalidInput)
	}

	labelCols := LabelColumns()
	raw := make([][]float64, len(records))
	for i, record := range records {
		normalized := NormalizeText(record)
		row := make([]float64, 0, len(labelCols))
		for _, key := range model.NumericKeys() {
			if v := normalized.Numeric(key); v != nil {
				row = append(row, *v)
			} else {
				row = append(row, math.NaN())
			}
		}
		for _, key := range model.CategoricalKeys() {
			row = append(row, p.encoders.Encode(key, normalized.Categorical(key)))
		}
		raw[i] = row
	}

	dense, err := p.imputer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	p.snapCategoricals(dense)

	if p.variant.ExpandIndicators {
		return p.expand(dense)
	}
	return p.scaleLabelEncoded(dense)
}

// snapCategoricals rounds every imputed categorical slot to the nearest
// integer and clamps it into the key's vocabulary range. Imputation is
// continuous-valued; categorical codes are discrete.
func (p *Pipeline) snapCategoricals(dense [][]float64) {
	numericWidth := len(model.NumericKeys())
	for _, row := range dense {
		for c, key := range model.CategoricalKeys() {
			j := numericWidth + c
			code := math.Round(row[j])
			if code < 0 {
				code = 0
			}
			if max := float64(p.encoders.VocabularySize(key) - 1); code > max {
				code = max
			}
			row[j] = code
		}
	}
}

func (p *Pipeline) scaleLabelEncoded(dense [][]float64) ([][]float64, error) {
	labelCols := LabelColumns()
	for _, row := range dense {
		for j, col := range labelCols {
			if scaled, ok := p.scaler.Apply(col, row[j]); ok {
				row[j] = scaled
			}
		}
	}
	return dense, nil
}

// expand converts categorical codes into one-hot indicator columns, then
// reindexes the column set against the classifier's fixed training-time
// column list: columns the classifier never saw are dropped, columns absent
// from the batch are zero-filled.
func (p *Pipeline) expand(dense [][]float64) ([][]float64, error) {
	numericWidth := len(model.NumericKeys())

	out := make([][]float64, len(dense))
	for i, row := range dense {
		values := make(map[string]float64, len(p.variant.Columns))
		for j, key := range model.NumericKeys() {
			values[key] = row[j]
		}
		for c, key := range model.CategoricalKeys() {
			code := int(row[numericWidth+c])
			for candidate := 1; candidate < p.encoders.VocabularySize(key); candidate++ {
				indicator := 0.0
				if candidate == code {
					indicator = 1.0
				}
				values[IndicatorColumn(key, candidate)] = indicator
			}
		}

		aligned := make([]float64, len(p.variant.Columns))
		for j, col := range p.variant.Columns {
			v := values[col]
			if scaled, ok := p.scaler.Apply(col, v); ok {
				v = scaled
			}
			aligned[j] = v
		}
		out[i] = aligned
	}
	return out, nil
}

func isNumericKey(col string) bool {
	for _, key := range model.NumericKeys() {
		if key == col {
			return true
		}
	}
	return false
}
