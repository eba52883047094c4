package model

// Feature keys match the column names the model artifacts were trained
// with; they are part of the artifact contract and must not be renamed.
const (
	FeatureEnrolled     = "Mat"
	FeatureFailed       = "Rep"
	FeatureSecondChance = "2T"
	FeatureAverage      = "Prom"
	FeatureAge          = "edad"

	FeatureGrade          = "Grado"
	FeatureGender         = "Genero"
	FeatureTerm           = "Semestre"
	FeatureTrack          = "Carrera"
	FeatureSocioStratum   = "estrato_socioeconomico"
	FeatureWorkOccupation = "ocupacion_laboral"
	FeatureLivesWith      = "con_quien_vive"
	FeatureSupport        = "apoyo_economico"
	FeatureAdmissionMode  = "modalidad_ingreso"
	FeatureHighSchool     = "tipo_colegio"
)

// NumericKeys is the fixed order of numeric features in the model vector.
func NumericKeys() []string {
	return []string{FeatureEnrolled, FeatureFailed, FeatureSecondChance, FeatureAverage, FeatureAge}
}

// CategoricalKeys is the fixed order of categorical features in the model
// vector, following the numeric block.
func CategoricalKeys() []string {
	return []string{
		FeatureGrade, FeatureGender, FeatureTerm, FeatureTrack,
		FeatureSocioStratum, FeatureWorkOccupation, FeatureLivesWith,
		FeatureSupport, FeatureAdmissionMode, FeatureHighSchool,
	}
}

// FeatureRecord is the flat, named-field representation of one student's
// scoring inputs. Every key from NumericKeys and CategoricalKeys is present;
// a nil value means "unknown, to be imputed". Numeric values are float64,
// categorical values are strings.
type FeatureRecord map[string]any

// NewFeatureRecord returns a record with every known key present and nil.
func NewFeatureRecord() FeatureRecord {
	r := make(FeatureRecord, len(NumericKeys())+len(CategoricalKeys()))
	for _, k := range NumericKeys() {
		r[k] = nil
	}
	for _, k := range CategoricalKeys() {
		r[k] = nil
	}
	return r
}

// Numeric returns the numeric value for a key, or nil when the value is
// absent or not numeric.
func (r FeatureRecord) Numeric(key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// Categorical returns the string value for a key, or nil when the value is
// absent or not a string.
func (r FeatureRecord) Categorical(key string) *string {
	if v, ok := r[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

// Clone returns a shallow copy, used when persisting feature snapshots so
// later mutation of the working record cannot leak into stored history.
func (r FeatureRecord) Clone() FeatureRecord {
	out := make(FeatureRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
