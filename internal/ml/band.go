// Package ml wraps the pre-trained classifier artifacts: loading them from
// disk, scoring preprocessed vectors, and mapping probabilities to risk
// bands. All artifacts are opaque, immutable objects produced by the
// training side; nothing here fits or mutates a model.
package ml

import "github.com/calderae/atalaya/internal/model"

// Band thresholds, fixed across model generations. Boundary values belong
// to the upper band.
const (
	mediumThreshold   = 0.30
	highThreshold     = 0.50
	criticalThreshold = 0.70
)

// BandFor maps a dropout probability to its risk band.
func BandFor(probability float64) model.RiskBand {
	switch {
	case probability >= criticalThreshold:
		return model.BandCritical
	case probability >= highThreshold:
		return model.BandHigh
	case probability >= mediumThreshold:
		return model.BandMedium
	default:
		return model.BandLow
	}
}

// LabelFor derives the binary classification label from the 0.5 cut. The
// cut is independent of, and coarser than, the four-band mapping.
func LabelFor(probability float64) model.DropoutLabel {
	if probability >= 0.5 {
		return model.LabelDropsOut
	}
	return model.LabelContinues
}
