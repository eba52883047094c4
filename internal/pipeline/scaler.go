package pipeline

import "fmt"

// StandardScaler applies the affine standardisation fitted at training
// time to the numeric feature subset: (x - mean) / scale, column-wise.
type StandardScaler struct {
	columns []string
	mean    []float64
	scale   []float64
}

// NewStandardScaler builds a scaler from fitted means and scales.
func NewStandardScaler(columns []string, mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != len(columns) || len(scale) != len(columns) {
		return nil, fmt.Errorf("scaler shape mismatch: %d columns, %d means, %d scales",
			len(columns), len(mean), len(scale))
	}
	for i, s := range scale {
		if s == 0 {
			return nil, fmt.Errorf("scaler column %q has zero scale", columns[i])
		}
	}
	return &StandardScaler{columns: columns, mean: mean, scale: scale}, nil
}

// Columns returns the ordered column names the scaler was fitted on.
func (sc *StandardScaler) Columns() []string {
	return sc.columns
}

// Apply standardises one value of the named column.
func (sc *StandardScaler) Apply(column string, value float64) (float64, bool) {
	for i, name := range sc.columns {
		if name == column {
			return (value - sc.mean[i]) / sc.scale[i], true
		}
	}
	return value, false
}
