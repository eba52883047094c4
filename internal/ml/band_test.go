package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calderae/atalaya/internal/model"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		want        model.RiskBand
		probability float64
	}{
		{model.BandLow, 0.0},
		{model.BandLow, 0.2999},
		{model.BandMedium, 0.30}, // boundary belongs to the upper band
		{model.BandMedium, 0.4999},
		{model.BandHigh, 0.50},
		{model.BandHigh, 0.6999},
		{model.BandCritical, 0.70},
		{model.BandCritical, 1.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.probability), "probability %v", tt.probability)
	}
}

func TestBandFor_Monotonic(t *testing.T) {
	previous := BandFor(0)
	for p := 0.0; p <= 1.0; p += 0.001 {
		band := BandFor(p)
		assert.GreaterOrEqual(t, band.Rank(), previous.Rank(), "band rank regressed at %v", p)
		previous = band
	}
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, model.LabelContinues, LabelFor(0.4999))
	assert.Equal(t, model.LabelDropsOut, LabelFor(0.5))
	assert.Equal(t, model.LabelDropsOut, LabelFor(0.99))
}
