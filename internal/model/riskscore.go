package model

import "time"

// RiskBand is a coarse bucket of dropout probability.
type RiskBand string

// Risk band constants, ordered from lowest to highest risk.
const (
	BandLow      RiskBand = "LOW"
	BandMedium   RiskBand = "MEDIUM"
	BandHigh     RiskBand = "HIGH"
	BandCritical RiskBand = "CRITICAL"
)

// Rank orders bands for comparison; higher rank means higher risk.
func (b RiskBand) Rank() int {
	switch b {
	case BandLow:
		return 0
	case BandMedium:
		return 1
	case BandHigh:
		return 2
	case BandCritical:
		return 3
	}
	return -1
}

// Valid reports whether the band is one of the known constants.
func (b RiskBand) Valid() bool {
	return b.Rank() >= 0
}

// Display returns the band name used in titles and notes.
func (b RiskBand) Display() string {
	switch b {
	case BandLow:
		return "Low"
	case BandMedium:
		return "Medium"
	case BandHigh:
		return "High"
	case BandCritical:
		return "Critical"
	}
	return string(b)
}

// RequiresAlert reports whether a score at this band opens an early alert.
func (b RiskBand) RequiresAlert() bool {
	return b == BandHigh || b == BandCritical
}

// DropoutLabel is the binary classification outcome.
type DropoutLabel string

// Dropout label constants.
const (
	LabelDropsOut  DropoutLabel = "DROPS_OUT"
	LabelContinues DropoutLabel = "CONTINUES"
)

// ScoreKind distinguishes how a score was requested.
type ScoreKind string

// Score kind constants.
const (
	ScoreIndividual ScoreKind = "individual"
	ScoreBatched    ScoreKind = "batch"
)

// RiskScore is one immutable scoring result for a student. Scores are
// historical records: they are never mutated or deleted, and the most
// recent by (date desc, id desc) is the student's current score.
type RiskScore struct {
	ScoreDate    time.Time
	CreatedAt    time.Time
	Features     FeatureRecord
	ModelVersion string
	VariantTag   string
	Kind         ScoreKind
	BatchID      *string
	Band         RiskBand
	Label        DropoutLabel
	Probability  float64
	ID           int64
	StudentID    int64
}
