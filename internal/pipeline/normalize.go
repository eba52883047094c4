// Package pipeline converts assembled feature records into the numeric
// vectors the classifier expects, reproducing the training-time
// transformations exactly: text normalization, categorical encoding,
// imputation, categorical snapping, optional indicator expansion, and
// numeric scaling.
package pipeline

import "github.com/calderae/atalaya/internal/model"

// canonicalTokens maps known free-text synonyms and diacritic variants to
// the canonical vocabulary tokens the encoders were fitted on. The table is
// fixed per model generation; changing it requires a new pipeline variant.
var canonicalTokens = map[string]map[string]string{
	model.FeatureTrack: {
		"Tecnológicas":    "Tecnologicas",
		"No Tecnológicas": "No Tecnologicas",
	},
	model.FeatureHighSchool: {
		"Público": "Publico",
	},
	model.FeatureAdmissionMode: {
		"Prueba de Suficiencia Académica": "Prueba de Suficiencia Academica",
		"Admisión Especial":               "Admision Especial",
	},
}

// NormalizeText rewrites the categorical values of a record whose spelling
// differs from the training vocabulary. The input record is not modified.
func NormalizeText(record model.FeatureRecord) model.FeatureRecord {
	out := record.Clone()
	for key, replacements := range canonicalTokens {
		value, ok := out[key].(string)
		if !ok {
			continue
		}
		if canonical, found := replacements[value]; found {
			out[key] = canonical
		}
	}
	return out
}
