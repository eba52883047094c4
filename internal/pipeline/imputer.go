package pipeline

import (
	"fmt"
	"math"
	"sort"
)

// KNNImputer fills missing cells of an ordered feature vector using the
// k-nearest-neighbours statistics captured at training time. The fitted
// sample matrix is loaded from the model artifacts and never mutated, so
// the imputer is safe for concurrent use.
type KNNImputer struct {
	columns     []string
	samples     [][]float64
	columnMeans []float64
	k           int
}

// NewKNNImputer builds an imputer from the fitted sample matrix. Missing
// cells in the fitted samples are represented as NaN.
func NewKNNImputer(columns []string, samples [][]float64, k int) (*KNNImputer, error) {
	if k <= 0 {
		return nil, fmt.Errorf("imputer neighbour count must be positive, got %d", k)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("imputer has no fitted samples")
	}
	for i, row := range samples {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("imputer sample %d has %d values, want %d", i, len(row), len(columns))
		}
	}

	// Per-column means over observed fitted values, the fallback when no
	// donor observes a column.
	means := make([]float64, len(columns))
	for j := range columns {
		sum, n := 0.0, 0
		for _, row := range samples {
			if !math.IsNaN(row[j]) {
				sum += row[j]
				n++
			}
		}
		if n > 0 {
			means[j] = sum / float64(n)
		}
	}

	return &KNNImputer{columns: columns, samples: samples, columnMeans: means, k: k}, nil
}

// Columns returns the ordered column names the imputer was fitted on.
func (imp *KNNImputer) Columns() []string {
	return imp.columns
}

// Transform fills every NaN cell of the batch and returns a fully dense
// matrix. Rows are imputed against the fitted samples; already-observed
// cells pass through untouched.
func (imp *KNNImputer) Transform(batch [][]float64) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for i, row := range batch {
		if len(row) != len(imp.columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(imp.columns))
		}
		out[i] = imp.imputeRow(row)
	}
	return out, nil
}

type donor struct {
	distance float64
	index    int
}

func (imp *KNNImputer) imputeRow(row []float64) []float64 {
	filled := make([]float64, len(row))
	copy(filled, row)

	missing := make([]int, 0, len(row))
	for j, v := range row {
		if math.IsNaN(v) {
			missing = append(missing, j)
		}
	}
	if len(missing) == 0 {
		return filled
	}

	// Distances against all fitted samples, shared across the missing
	// columns of this row.
	distances := make([]float64, len(imp.samples))
	for s, sample := range imp.samples {
		distances[s] = nanEuclidean(row, sample)
	}

	for _, j := range missing {
		donors := make([]donor, 0, len(imp.samples))
		for s, sample := range imp.samples {
			if math.IsNaN(sample[j]) || math.IsNaN(distances[s]) {
				continue
			}
			donors = append(donors, donor{distance: distances[s], index: s})
		}
		if len(donors) == 0 {
			filled[j] = imp.columnMeans[j]
			continue
		}

		sort.SliceStable(donors, func(a, b int) bool {
			return donors[a].distance < donors[b].distance
		})
		k := imp.k
		if k > len(donors) {
			k = len(donors)
		}

		sum := 0.0
		for _, d := range donors[:k] {
			sum += imp.samples[d.index][j]
		}
		filled[j] = sum / float64(k)
	}

	return filled
}

// nanEuclidean computes the euclidean distance over mutually observed
// coordinates, rescaled by the ratio of total to observed coordinates so
// sparsely observed pairs are not artificially close. NaN when the rows
// share no observed coordinate.
func nanEuclidean(a, b []float64) float64 {
	sum, observed := 0.0, 0
	for j := range a {
		if math.IsNaN(a[j]) || math.IsNaN(b[j]) {
			continue
		}
		d := a[j] - b[j]
		sum += d * d
		observed++
	}
	if observed == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum * float64(len(a)) / float64(observed))
}
