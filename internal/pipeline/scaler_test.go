package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStandardScaler_Validation(t *testing.T) {
	_, err := NewStandardScaler([]string{"a"}, []float64{1, 2}, []float64{1})
	assert.Error(t, err, "shape mismatch must be rejected")

	_, err = NewStandardScaler([]string{"a"}, []float64{1}, []float64{0})
	assert.Error(t, err, "zero scale must be rejected")
}

func TestStandardScaler_Apply(t *testing.T) {
	scaler, err := NewStandardScaler([]string{"a", "b"}, []float64{10, 0}, []float64{2, 4})
	require.NoError(t, err)

	scaled, ok := scaler.Apply("a", 14)
	require.True(t, ok)
	assert.Equal(t, 2.0, scaled)

	scaled, ok = scaler.Apply("b", -8)
	require.True(t, ok)
	assert.Equal(t, -2.0, scaled)
}

func TestStandardScaler_UnknownColumnPassesThrough(t *testing.T) {
	scaler, err := NewStandardScaler([]string{"a"}, []float64{10}, []float64{2})
	require.NoError(t, err)

	value, ok := scaler.Apply("z", 7)
	assert.False(t, ok)
	assert.Equal(t, 7.0, value)
}
