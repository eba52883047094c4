package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderae/atalaya/internal/common"
	"github.com/calderae/atalaya/internal/model"
)

func testEncoders(t *testing.T) *EncodingTable {
	t.Helper()
	table, err := NewEncodingTable(testVocabularies())
	require.NoError(t, err)
	return table
}

func testImputer(t *testing.T) *KNNImputer {
	t.Helper()
	samples := [][]float64{
		{6, 1, 0, 3.5, 19, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0},
		{5, 2, 1, 3.0, 22, 1, 1, 1, 0, 2, 1, 1, 1, 1, 1},
		{4, 0, 0, 4.2, 18, 0, 1, 0, 1, 0, 0, 0, 0, 0, 1},
	}
	imputer, err := NewKNNImputer(LabelColumns(), samples, 2)
	require.NoError(t, err)
	return imputer
}

func testScaler(t *testing.T) *StandardScaler {
	t.Helper()
	scaler, err := NewStandardScaler(
		model.NumericKeys(),
		[]float64{5, 1, 0, 3.5, 20},
		[]float64{1, 1, 1, 0.5, 2},
	)
	require.NoError(t, err)
	return scaler
}

func testPipeline(t *testing.T, variant Variant) *Pipeline {
	t.Helper()
	pipe, err := New(testEncoders(t), testImputer(t), testScaler(t), variant)
	require.NoError(t, err)
	return pipe
}

// fullRecord returns a record with every feature present.
func fullRecord() model.FeatureRecord {
	record := model.NewFeatureRecord()
	record[model.FeatureEnrolled] = 6.0
	record[model.FeatureFailed] = 1.0
	record[model.FeatureSecondChance] = 0.0
	record[model.FeatureAverage] = 4.0
	record[model.FeatureAge] = 20.0
	record[model.FeatureGrade] = "Once"
	record[model.FeatureGender] = "F"
	record[model.FeatureTerm] = "First"
	record[model.FeatureTrack] = "Tecnológicas" // normalized before encoding
	record[model.FeatureSocioStratum] = "2"
	record[model.FeatureWorkOccupation] = "No trabaja"
	record[model.FeatureLivesWith] = "Familia"
	record[model.FeatureSupport] = "Beca"
	record[model.FeatureAdmissionMode] = "Regular"
	record[model.FeatureHighSchool] = "Privado"
	return record
}

func TestLabelColumns(t *testing.T) {
	cols := LabelColumns()
	require.Len(t, cols, 15)
	assert.Equal(t, "Mat", cols[0])
	assert.Equal(t, "Grado_enc", cols[5])
	assert.Equal(t, "tipo_colegio_enc", cols[14])
}

func TestPipeline_TransformLabelEncoded(t *testing.T) {
	pipe := testPipeline(t, Variant{Tag: VariantLabelEncoded})

	vectors, err := pipe.Transform([]model.FeatureRecord{fullRecord()})
	require.NoError(t, err)
	require.Len(t, vectors, 1)

	want := []float64{
		1, 0, 0, 1, 0, // scaled numerics
		1, 0, 0, 1, 1, 0, 0, 1, 0, 1, // categorical codes, unscaled
	}
	require.Len(t, vectors[0], len(want))
	for j, v := range want {
		assert.InDelta(t, v, vectors[0][j], 1e-9, "column %s", LabelColumns()[j])
	}
}

func TestPipeline_TransformImputesMissing(t *testing.T) {
	pipe := testPipeline(t, Variant{Tag: VariantLabelEncoded})

	record := fullRecord()
	record[model.FeatureEnrolled] = nil       // missing numeric
	record[model.FeatureTrack] = "Ingenieria" // unknown categorical

	vectors, err := pipe.Transform([]model.FeatureRecord{record})
	require.NoError(t, err)

	for j, v := range vectors[0] {
		assert.False(t, math.IsNaN(v), "column %s still NaN", LabelColumns()[j])
	}

	// The imputed track code must be snapped into the vocabulary range.
	trackIdx := 8 // Mat,Rep,2T,Prom,edad,Grado,Genero,Semestre,Carrera
	code := vectors[0][trackIdx]
	assert.Contains(t, []float64{0, 1}, code)
}

func TestPipeline_TransformIsDeterministic(t *testing.T) {
	pipe := testPipeline(t, Variant{Tag: VariantLabelEncoded})

	first, err := pipe.Transform([]model.FeatureRecord{fullRecord()})
	require.NoError(t, err)
	second, err := pipe.Transform([]model.FeatureRecord{fullRecord()})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPipeline_TransformIndicatorExpanded(t *testing.T) {
	columns := []string{
		"Mat", "Prom", "edad",
		IndicatorColumn(model.FeatureGender, 1),
		IndicatorColumn(model.FeatureTrack, 1),
		IndicatorColumn(model.FeatureSocioStratum, 1),
		IndicatorColumn(model.FeatureSocioStratum, 2),
		IndicatorColumn(model.FeatureHighSchool, 1),
		"Semestre_enc_9", // never produced, must zero-fill
	}
	pipe := testPipeline(t, Variant{
		Tag:              VariantIndicatorExpanded,
		Columns:          columns,
		ExpandIndicators: true,
	})
	require.Equal(t, len(columns), pipe.Width())

	vectors, err := pipe.Transform([]model.FeatureRecord{fullRecord()})
	require.NoError(t, err)

	want := []float64{
		1, 1, 0, // scaled numerics
		0, // Genero F is code 0, the dropped category
		1, // Carrera Tecnologicas
		1, // estrato 2
		0, // estrato 3
		1, // tipo Privado
		0, // unknown column zero-filled
	}
	require.Len(t, vectors[0], len(want))
	for j, v := range want {
		assert.InDelta(t, v, vectors[0][j], 1e-9, "column %s", columns[j])
	}
}

func TestPipeline_TransformEmptyBatch(t *testing.T) {
	pipe := testPipeline(t, Variant{Tag: VariantLabelEncoded})

	_, err := pipe.Transform(nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNew_Validation(t *testing.T) {
	encoders := testEncoders(t)
	imputer := testImputer(t)
	scaler := testScaler(t)

	t.Run("nil artifact", func(t *testing.T) {
		_, err := New(nil, imputer, scaler, Variant{Tag: VariantLabelEncoded})
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})

	t.Run("imputer column mismatch", func(t *testing.T) {
		short, err := NewKNNImputer([]string{"Mat"}, [][]float64{{1}}, 1)
		require.NoError(t, err)
		_, err = New(encoders, short, scaler, Variant{Tag: VariantLabelEncoded})
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})

	t.Run("scaler on categorical column", func(t *testing.T) {
		bad, err := NewStandardScaler([]string{"Grado_enc"}, []float64{0}, []float64{1})
		require.NoError(t, err)
		_, err = New(encoders, imputer, bad, Variant{Tag: VariantLabelEncoded})
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})

	t.Run("variant A with expansion", func(t *testing.T) {
		_, err := New(encoders, imputer, scaler, Variant{Tag: VariantLabelEncoded, ExpandIndicators: true})
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})

	t.Run("variant B without columns", func(t *testing.T) {
		_, err := New(encoders, imputer, scaler, Variant{Tag: VariantIndicatorExpanded, ExpandIndicators: true})
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := New(encoders, imputer, scaler, Variant{Tag: "C"})
		assert.ErrorIs(t, err, common.ErrModelUnavailable)
	})
}
