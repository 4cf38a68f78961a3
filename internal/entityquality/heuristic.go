package entityquality

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// Heuristic config keys.
const (
	KeyBaseScore          = "base_score"
	KeyNERWeight          = "ner_weight"
	KeyMinLength          = "min_length"
	KeyShortPenalty       = "short_penalty"
	KeyMaxLength          = "max_length"
	KeyLongPenalty        = "long_penalty"
	KeyRepetitionPenalty  = "repetition_penalty"
	KeyVowelRatioMin      = "vowel_ratio_min"
	KeyVowelRatioMax      = "vowel_ratio_max"
	KeyVowelPenalty       = "vowel_penalty"
	KeyMixedCasePenalty   = "mixed_case_penalty"
	KeySpecialCharMax     = "special_char_max"
	KeyPunctuationPenalty = "punctuation_penalty"
	KeyDigitNamePenalty   = "digit_name_penalty"
	KeyFieldLabelPenalty  = "field_label_penalty"
	KeyStopWordMax        = "stop_word_max"
	KeyStopWordPenalty    = "stop_word_penalty"
	KeyDictBonus          = "dict_bonus"
	KeyTitleCaseBonus     = "title_case_bonus"
	KeyLegalFormBonus     = "legal_form_bonus"
	KeyAddressBonus       = "address_pattern_bonus"
)

func row(key, category string, value, lo, hi float64, desc string) models.EntityQualityConfig {
	return models.EntityQualityConfig{ConfigKey: key, ConfigValue: value, Category: category, MinValue: &lo, MaxValue: &hi, Description: desc}
}

// DefaultConfig is inserted for keys missing from entity_quality_config.
func DefaultConfig() []models.EntityQualityConfig {
	return []models.EntityQualityConfig{
		row(KeyBaseScore, "scoring", 0.5, 0, 1, "starting score before penalties and bonuses"),
		row(KeyNERWeight, "scoring", 0.3, 0, 1, "weight of the upstream NER confidence"),
		row(KeyMinLength, "threshold", 3, 1, 20, "values shorter than this are penalized"),
		row(KeyShortPenalty, "penalty", 0.3, 0, 1, "penalty for too short values"),
		row(KeyMaxLength, "threshold", 60, 10, 500, "values longer than this are penalized"),
		row(KeyLongPenalty, "penalty", 0.2, 0, 1, "penalty for too long values"),
		row(KeyRepetitionPenalty, "penalty", 0.3, 0, 1, "scaled by the repetitive char score"),
		row(KeyVowelRatioMin, "threshold", 0.15, 0, 1, "lowest plausible vowel ratio"),
		row(KeyVowelRatioMax, "threshold", 0.75, 0, 1, "highest plausible vowel ratio"),
		row(KeyVowelPenalty, "penalty", 0.2, 0, 1, "penalty for a vowel ratio out of band"),
		row(KeyMixedCasePenalty, "penalty", 0.2, 0, 1, "penalty for chaotic letter case"),
		row(KeySpecialCharMax, "threshold", 0.2, 0, 1, "highest tolerated special char ratio"),
		row(KeyPunctuationPenalty, "penalty", 0.2, 0, 1, "penalty for excessive punctuation"),
		row(KeyDigitNamePenalty, "penalty", 0.3, 0, 1, "penalty for digits in a person name"),
		row(KeyFieldLabelPenalty, "penalty", 0.4, 0, 1, "penalty for a trailing field label like Tel or Nr"),
		row(KeyStopWordMax, "threshold", 0.5, 0, 1, "highest tolerated stop-word ratio"),
		row(KeyStopWordPenalty, "penalty", 0.2, 0, 1, "penalty for stop-word heavy values"),
		row(KeyDictBonus, "bonus", 0.15, 0, 1, "scaled by the dictionary valid ratio"),
		row(KeyTitleCaseBonus, "bonus", 0.1, 0, 1, "title case person or location"),
		row(KeyLegalFormBonus, "bonus", 0.15, 0, 1, "organization ending in a legal form"),
		row(KeyAddressBonus, "bonus", 0.15, 0, 1, "address with a street and house number"),
	}
}

// Params are the heuristic constants keyed by config key.
type Params map[string]float64

func (p Params) get(key string) float64 { return p[key] }

// DefaultParams returns the built-in constants.
func DefaultParams() Params {
	p := Params{}
	for _, r := range DefaultConfig() {
		p[r.ConfigKey] = r.Value()
	}
	return p
}

var legalForms = map[string]struct{}{
	"gmbh": {}, "ag": {}, "kg": {}, "ug": {}, "ohg": {}, "gbr": {}, "e.v.": {}, "se": {},
	"ltd": {}, "inc": {}, "llc": {}, "corp": {}, "co": {}, "plc": {}, "lp": {}, "llp": {},
	"sa": {}, "sarl": {}, "bv": {}, "nv": {}, "spa": {}, "srl": {}, "ab": {}, "as": {},
}

var (
	streetNumber = regexp.MustCompile(`\p{L}{3,}\.?\s+\d{1,5}\s?[a-zA-Z]?\b`)
	numberStreet = regexp.MustCompile(`^\d{1,5}\s+\p{L}{3,}`)
)

// HeuristicScore scores an entity from its features and raw value. The result lies in [0,1].
func HeuristicScore(p Params, value, entityType string, v Vector) float64 {
	entityType = strings.ToUpper(strings.TrimSpace(entityType))
	score := p.get(KeyBaseScore) + p.get(KeyNERWeight)*v[FNERConfidence]

	if v[FLength] < p.get(KeyMinLength) {
		score -= p.get(KeyShortPenalty)
	}
	if v[FLength] > p.get(KeyMaxLength) {
		score -= p.get(KeyLongPenalty)
	}
	score -= p.get(KeyRepetitionPenalty) * v[FRepetitiveChar]
	if letters := v[FVowelRatio] + v[FConsonantRatio]; letters > 0 {
		ratio := v[FVowelRatio] / letters
		if ratio < p.get(KeyVowelRatioMin) || ratio > p.get(KeyVowelRatioMax) {
			score -= p.get(KeyVowelPenalty)
		}
	}
	if MixedCaseChaos(value) {
		score -= p.get(KeyMixedCasePenalty)
	}
	if v[FSpecialCharRatio] > p.get(KeySpecialCharMax) {
		score -= p.get(KeyPunctuationPenalty)
	}
	if entityType == models.EntityPerson && v[FDigitRatio] > 0 {
		score -= p.get(KeyDigitNamePenalty)
	}
	if v[FFieldLabelSuffix] > 0 {
		score -= p.get(KeyFieldLabelPenalty)
	}
	if v[FStopWordRatio] > p.get(KeyStopWordMax) {
		score -= p.get(KeyStopWordPenalty)
	}

	score += p.get(KeyDictBonus) * v[FDictValidRatio]
	switch entityType {
	case models.EntityPerson, models.EntityLocation:
		if v[FTitleCase] > 0 {
			score += p.get(KeyTitleCaseBonus)
		}
	case models.EntityOrganization:
		if HasLegalForm(value) {
			score += p.get(KeyLegalFormBonus)
		}
	case models.EntityAddress:
		if streetNumber.MatchString(value) || numberStreet.MatchString(value) {
			score += p.get(KeyAddressBonus)
		}
	}
	return utils.Clamp(score, 0, 1)
}

// HasLegalForm reports whether the last word of value is a company legal form such as GmbH or Ltd.
func HasLegalForm(value string) bool {
	words := strings.Fields(strings.ToLower(value))
	if len(words) < 2 {
		return false
	}
	last := words[len(words)-1]
	if _, ok := legalForms[last]; ok {
		return true
	}
	_, ok := legalForms[strings.TrimRight(last, ".,")]
	return ok
}

// MixedCaseChaos reports whether any word switches from lower to upper case more than once, as in "hElLo".
func MixedCaseChaos(value string) bool {
	for _, w := range strings.Fields(value) {
		switches := 0
		var prevLower bool
		for _, r := range w {
			if !unicode.IsLetter(r) {
				prevLower = false
				continue
			}
			if unicode.IsUpper(r) && prevLower {
				switches++
			}
			prevLower = unicode.IsLower(r)
		}
		if switches > 1 {
			return true
		}
	}
	return false
}

// Heuristic loads the constants from entity_quality_config, seeding missing keys once.
type Heuristic struct {
	repos  *repos.Set
	params *cache.LRU[Params]
	logger *zap.Logger
}

// NewHeuristic creates the heuristic scorer. invalidator may be nil.
func NewHeuristic(set *repos.Set, invalidator *cache.Invalidator, logger *zap.Logger) *Heuristic {
	h := &Heuristic{repos: set, params: cache.NewLRU[Params](1), logger: utils.OrNop(logger)}
	if invalidator != nil {
		invalidator.Register(h.params)
	}
	return h
}

// Params returns the current constants, clamped to their bounds.
func (h *Heuristic) Params(ctx context.Context) (Params, error) {
	if p, ok := h.params.Get(cache.EntityConfigKey()); ok {
		return p, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := h.repos.EntityConfig.EnsureDefaults(dbc, DefaultConfig()); err != nil {
		return nil, err
	}
	rows, err := h.repos.EntityConfig.List(dbc)
	if err != nil {
		return nil, err
	}
	p := DefaultParams()
	for _, r := range rows {
		p[r.ConfigKey] = r.Value()
	}
	h.params.Set(cache.EntityConfigKey(), p)
	return p, nil
}

// Score returns the heuristic confidence of an entity. Params load failures fall back to the defaults.
func (h *Heuristic) Score(ctx context.Context, value, entityType string, v Vector) float64 {
	p, err := h.Params(ctx)
	if err != nil {
		h.logger.Warn("entity config unavailable, using defaults", zap.Error(err))
		p = DefaultParams()
	}
	return HeuristicScore(p, value, entityType, v)
}
