package pipeline

import (
	"fmt"
	"math"

	"github.com/calderae/atalaya/internal/model"
)

// EncodingTable holds, per categorical key, the ordered vocabulary fixed at
// training time. A value's integer code is its index in the vocabulary.
// The table is loaded once from the model artifacts and never mutated.
type EncodingTable struct {
	vocabularies map[string][]string
	codes        map[string]map[string]int
}

// NewEncodingTable builds an encoding table from per-key vocabularies.
// Every categorical feature key must have a non-empty vocabulary.
func NewEncodingTable(vocabularies map[string][]string) (*EncodingTable, error) {
	for _, key := range model.CategoricalKeys() {
		vocab, ok := vocabularies[key]
		if !ok || len(vocab) == 0 {
			return nil, fmt.Errorf("encoding table missing vocabulary for %q", key)
		}
	}
	if len(vocabularies) != len(model.CategoricalKeys()) {
		return nil, fmt.Errorf("encoding table has %d vocabularies, want %d",
			len(vocabularies), len(model.CategoricalKeys()))
	}

	codes := make(map[string]map[string]int, len(vocabularies))
	for key, vocab := range vocabularies {
		byValue := make(map[string]int, len(vocab))
		for code, value := range vocab {
			if _, dup := byValue[value]; dup {
				return nil, fmt.Errorf("encoding table for %q has duplicate value %q", key, value)
			}
			byValue[value] = code
		}
		codes[key] = byValue
	}

	return &EncodingTable{vocabularies: vocabularies, codes: codes}, nil
}

// Encode returns the integer code for a categorical value as a float64.
// Unknown values and nil encode to NaN: they are a known-unknown case that
// the imputer fills, never an error.
func (t *EncodingTable) Encode(key string, value *string) float64 {
	if value == nil {
		return math.NaN()
	}
	code, ok := t.codes[key][*value]
	if !ok {
		return math.NaN()
	}
	return float64(code)
}

// VocabularySize returns the number of known values for a key.
func (t *EncodingTable) VocabularySize(key string) int {
	return len(t.vocabularies[key])
}

// Decode maps an integer code back to its vocabulary value, used for
// feature snapshots in audit output. Returns false for out-of-range codes.
func (t *EncodingTable) Decode(key string, code int) (string, bool) {
	vocab := t.vocabularies[key]
	if code < 0 || code >= len(vocab) {
		return "", false
	}
	return vocab[code], true
}
