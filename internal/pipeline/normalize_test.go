package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calderae/atalaya/internal/model"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{
			name:  "accented track",
			key:   model.FeatureTrack,
			value: "Tecnológicas",
			want:  "Tecnologicas",
		},
		{
			name:  "accented negated track",
			key:   model.FeatureTrack,
			value: "No Tecnológicas",
			want:  "No Tecnologicas",
		},
		{
			name:  "accented high school type",
			key:   model.FeatureHighSchool,
			value: "Público",
			want:  "Publico",
		},
		{
			name:  "accented admission exam",
			key:   model.FeatureAdmissionMode,
			value: "Prueba de Suficiencia Académica",
			want:  "Prueba de Suficiencia Academica",
		},
		{
			name:  "accented special admission",
			key:   model.FeatureAdmissionMode,
			value: "Admisión Especial",
			want:  "Admision Especial",
		},
		{
			name:  "already canonical",
			key:   model.FeatureTrack,
			value: "Tecnologicas",
			want:  "Tecnologicas",
		},
		{
			name:  "unrelated value untouched",
			key:   model.FeatureGender,
			value: "F",
			want:  "F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := model.NewFeatureRecord()
			record[tt.key] = tt.value

			got := NormalizeText(record)

			assert.Equal(t, tt.want, got[tt.key])
		})
	}
}

func TestNormalizeText_DoesNotMutateInput(t *testing.T) {
	record := model.NewFeatureRecord()
	record[model.FeatureTrack] = "Tecnológicas"

	_ = NormalizeText(record)

	assert.Equal(t, "Tecnológicas", record[model.FeatureTrack])
}

func TestNormalizeText_SkipsNilValues(t *testing.T) {
	record := model.NewFeatureRecord()

	got := NormalizeText(record)

	assert.Nil(t, got[model.FeatureTrack])
}
