package models

import (
	"fmt"
	"strings"
)

// DefaultLanguage is used when a request carries no language code.
const DefaultLanguage = "en"

// LearnRequest is the outcome of a user's classification decision.
type LearnRequest struct {
	DocumentID           string   `json:"document_id"`
	Keywords             []string `json:"keywords"`
	Text                 string   `json:"text,omitempty"`
	PrimaryCategoryID    string   `json:"primary_category_id"`
	SecondaryCategoryIDs []string `json:"secondary_category_ids,omitempty"`
	Language             string   `json:"language"`
	UserID               string   `json:"user_id"`
	// AIPredictedCategoryID is the engine's prior suggestion, nil when none was made.
	AIPredictedCategoryID *string  `json:"ai_predicted_category_id,omitempty"`
	AIConfidence          *float64 `json:"ai_confidence,omitempty"`
}

// Validate checks required fields and normalizes the language code.
func (r *LearnRequest) Validate() error {
	if strings.TrimSpace(r.PrimaryCategoryID) == "" {
		return fmt.Errorf("%w: primary_category_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if len(r.Keywords) == 0 && strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: keywords or text is required", ErrInvalidInput)
	}
	if r.AIPredictedCategoryID != nil && strings.TrimSpace(*r.AIPredictedCategoryID) == "" {
		r.AIPredictedCategoryID = nil
	}
	if r.AIConfidence != nil && (*r.AIConfidence < 0 || *r.AIConfidence > 1) {
		return fmt.Errorf("%w: ai_confidence must be in [0,1]", ErrInvalidInput)
	}
	r.Language = NormalizeLanguage(r.Language)
	return nil
}

// PredictRequest asks for the most likely category of a document.
type PredictRequest struct {
	DocumentID string   `json:"document_id,omitempty"`
	Text       string   `json:"text"`
	Keywords   []string `json:"keywords,omitempty"`
	Language   string   `json:"language"`
	UserID     string   `json:"user_id"`
	// CategoryIDs restricts the candidates; empty means all active categories of the user.
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// Validate checks required fields and normalizes the language code.
func (r *PredictRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Text) == "" && len(r.Keywords) == 0 {
		return fmt.Errorf("%w: text or keywords is required", ErrInvalidInput)
	}
	r.Language = NormalizeLanguage(r.Language)
	return nil
}

// EntityRequest asks for the validity confidence of an extracted entity.
type EntityRequest struct {
	Value         string  `json:"value"`
	EntityType    string  `json:"entity_type"`
	Language      string  `json:"language"`
	NERConfidence float64 `json:"ner_confidence"`
}

// Validate checks required fields and normalizes the language code and entity type.
func (r *EntityRequest) Validate() error {
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("%w: value is required", ErrInvalidInput)
	}
	if r.NERConfidence < 0 || r.NERConfidence > 1 {
		return fmt.Errorf("%w: ner_confidence must be in [0,1]", ErrInvalidInput)
	}
	r.EntityType = strings.ToUpper(strings.TrimSpace(r.EntityType))
	r.Language = NormalizeLanguage(r.Language)
	return nil
}

// KeywordInput adds a keyword to one of the user's categories explicitly.
// IsSystemDefault is only settable in process; it never comes from request bodies.
type KeywordInput struct {
	UserID          string  `json:"user_id"`
	CategoryID      string  `json:"category_id"`
	Keyword         string  `json:"keyword"`
	Language        string  `json:"language"`
	Weight          float64 `json:"weight,omitempty"`
	IsSystemDefault bool    `json:"-"`
}

// Validate checks required fields and normalizes keyword and language.
func (k *KeywordInput) Validate() error {
	k.Keyword = strings.ToLower(strings.TrimSpace(k.Keyword))
	if k.UserID == "" || k.CategoryID == "" || k.Keyword == "" {
		return fmt.Errorf("%w: user_id, category_id and keyword are required", ErrInvalidInput)
	}
	k.Language = NormalizeLanguage(k.Language)
	return nil
}

// NormalizeLanguage lowercases a language code and strips any region suffix.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
