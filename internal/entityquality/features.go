// Package entityquality scores how likely an extracted entity is a real one. It holds the
// fixed feature vector, a heuristic scorer, trainable classifiers with versioned storage,
// and the blacklist-to-training-data sync.
package entityquality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
)

// FeatureNames is the canonical feature order shared by extraction, training and prediction.
var FeatureNames = [NumFeatures]string{
	"length",
	"word_count",
	"vowel_ratio",
	"consonant_ratio",
	"digit_ratio",
	"special_char_ratio",
	"repetitive_char_score",
	"dict_valid_ratio",
	"stop_word_ratio",
	"has_field_label_suffix",
	"title_case",
	"spacy_confidence",
	"is_person",
	"is_organization",
	"is_location",
}

// Feature indexes into Vector.
const (
	FLength = iota
	FWordCount
	FVowelRatio
	FConsonantRatio
	FDigitRatio
	FSpecialCharRatio
	FRepetitiveChar
	FDictValidRatio
	FStopWordRatio
	FFieldLabelSuffix
	FTitleCase
	FNERConfidence
	FIsPerson
	FIsOrganization
	FIsLocation

	NumFeatures
)

// Vector is an entity's features in canonical order.
type Vector [NumFeatures]float64

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// JSON encodes the vector as an object keyed by feature name.
func (v Vector) JSON() (datatypes.JSON, error) {
	raw, err := json.Marshal(v.Map())
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// VectorFromMap rebuilds a vector. Every canonical feature must be present.
func VectorFromMap(m map[string]float64) (Vector, error) {
	var v Vector
	for i, name := range FeatureNames {
		val, ok := m[name]
		if !ok {
			return v, fmt.Errorf("%w: feature %q missing", models.ErrInvalidInput, name)
		}
		v[i] = val
	}
	return v, nil
}

// VectorFromJSON decodes a stored features object.
func VectorFromJSON(raw []byte) (Vector, error) {
	if len(raw) == 0 {
		return Vector{}, fmt.Errorf("%w: empty features", models.ErrInvalidInput)
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return Vector{}, fmt.Errorf("%w: features: %v", models.ErrInvalidInput, err)
	}
	return VectorFromMap(m)
}

// Extractor computes feature vectors with the lexicon of the entity's language.
type Extractor struct {
	lexicons lexicon.Store
}

func NewExtractor(lexicons lexicon.Store) *Extractor {
	return &Extractor{lexicons: lexicons}
}

// Extract returns the feature vector of value.
func (e *Extractor) Extract(ctx context.Context, value, entityType, lang string, nerConfidence float64) (Vector, error) {
	lex, err := e.lexicons.Lexicon(ctx, models.NormalizeLanguage(lang))
	if err != nil {
		return Vector{}, err
	}
	return Extract(lex, value, entityType, nerConfidence), nil
}

// Extract computes the features of value against lex. It is deterministic.
func Extract(lex *lexicon.Lexicon, value, entityType string, nerConfidence float64) Vector {
	if lex == nil {
		lex = lexicon.New(models.DefaultLanguage)
	}
	value = strings.TrimSpace(value)
	words := strings.Fields(value)

	var v Vector
	v[FLength] = float64(utf8.RuneCountInString(value))
	v[FWordCount] = float64(len(words))

	var letters, vowels, digits, special, visible int
	for _, r := range value {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		switch {
		case unicode.IsLetter(r):
			letters++
			if isVowel(r) {
				vowels++
			}
		case unicode.IsDigit(r):
			digits++
		default:
			special++
		}
	}
	if visible > 0 {
		n := float64(visible)
		v[FVowelRatio] = float64(vowels) / n
		v[FConsonantRatio] = float64(letters-vowels) / n
		v[FDigitRatio] = float64(digits) / n
		v[FSpecialCharRatio] = float64(special) / n
	}
	v[FRepetitiveChar] = repetitionScore(LongestRun(value))

	if len(words) > 0 {
		var dict, stop int
		for _, w := range words {
			w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }))
			if w == "" {
				continue
			}
			if lex.InDictionary(w) {
				dict++
			}
			if lex.IsStopWord(w) {
				stop++
			}
		}
		v[FDictValidRatio] = float64(dict) / float64(len(words))
		v[FStopWordRatio] = float64(stop) / float64(len(words))
	}
	if lex.HasFieldLabelSuffix(value) {
		v[FFieldLabelSuffix] = 1
	}
	if IsTitleCase(words) {
		v[FTitleCase] = 1
	}
	v[FNERConfidence] = nerConfidence

	switch strings.ToUpper(strings.TrimSpace(entityType)) {
	case models.EntityPerson:
		v[FIsPerson] = 1
	case models.EntityOrganization:
		v[FIsOrganization] = 1
	case models.EntityLocation:
		v[FIsLocation] = 1
	}
	return v
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouäöüàáâãåèéêëìíîïòóôõùúûæøœ", unicode.ToLower(r))
}

// LongestRun returns the length of the longest run of one character, ignoring case.
func LongestRun(s string) int {
	best, run := 0, 0
	var prev rune = -1
	for _, r := range s {
		r = unicode.ToLower(r)
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > best {
			best = run
		}
	}
	return best
}

func repetitionScore(run int) float64 {
	switch {
	case run <= 2:
		return 0
	case run == 3:
		return 0.5
	default:
		return 1
	}
}

// IsTitleCase reports whether every word with letters starts upper case and continues lower case.
func IsTitleCase(words []string) bool {
	seen := false
	for _, w := range words {
		first := true
		for _, r := range w {
			if !unicode.IsLetter(r) {
				continue
			}
			if first {
				if !unicode.IsUpper(r) {
					return false
				}
				first = false
				seen = true
				continue
			}
			if unicode.IsUpper(r) {
				return false
			}
		}
	}
	return seen
}
