package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// CategoryRole distinguishes the catch-all category from regular ones.
type CategoryRole int

const (
	RoleRegular CategoryRole = iota
	RoleFallback
)

func (r CategoryRole) String() string {
	if r == RoleFallback {
		return "fallback"
	}
	return "regular"
}

// MarshalText encodes the role by name.
func (r CategoryRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Category is a user's document category. Owned by the surrounding application; read here.
type Category struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	Name         string    `gorm:"column:name;size:255;not null" json:"name"`
	ReferenceKey string    `gorm:"column:reference_key;size:32;index" json:"reference_key"`
	IsActive     bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	Role CategoryRole `gorm:"-" json:"role"`
}

func (Category) TableName() string { return "categories" }

// ResolveRole sets Role from the reference key. Called once when the category is loaded.
func (c *Category) ResolveRole(fallbackKey string) {
	if fallbackKey != "" && strings.EqualFold(strings.TrimSpace(c.ReferenceKey), fallbackKey) {
		c.Role = RoleFallback
		return
	}
	c.Role = RoleRegular
}

// IsFallback reports whether c is the catch-all category.
func (c *Category) IsFallback() bool { return c != nil && c.Role == RoleFallback }

// CategoryKeyword is a learned (category, keyword, language) weight.
type CategoryKeyword struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	CategoryID      string     `gorm:"column:category_id;size:36;not null;uniqueIndex:idx_category_keyword,priority:1" json:"category_id"`
	Keyword         string     `gorm:"column:keyword;size:255;not null;uniqueIndex:idx_category_keyword,priority:2;index" json:"keyword"`
	LanguageCode    string     `gorm:"column:language_code;size:8;not null;uniqueIndex:idx_category_keyword,priority:3" json:"language_code"`
	Weight          float64    `gorm:"column:weight;not null" json:"weight"`
	MatchCount      int        `gorm:"column:match_count;not null" json:"match_count"`
	LastMatchedAt   *time.Time `gorm:"column:last_matched_at" json:"last_matched_at,omitempty"`
	IsSystemDefault bool       `gorm:"column:is_system_default;not null" json:"is_system_default"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (CategoryKeyword) TableName() string { return "category_keywords" }

// CategoryTrainingData is the append-only audit row written per learning event.
type CategoryTrainingData struct {
	ID                   string         `gorm:"primaryKey;size:36" json:"id"`
	DocumentID           string         `gorm:"column:document_id;size:64;index" json:"document_id"`
	SuggestedCategoryID  *string        `gorm:"column:suggested_category_id;size:36;index" json:"suggested_category_id,omitempty"`
	ActualCategoryID     string         `gorm:"column:actual_category_id;size:36;not null;index" json:"actual_category_id"`
	SecondaryCategoryIDs datatypes.JSON `gorm:"column:secondary_category_ids" json:"secondary_category_ids,omitempty"`
	WasCorrect           bool           `gorm:"column:was_correct;not null" json:"was_correct"`
	Confidence           *float64       `gorm:"column:confidence" json:"confidence,omitempty"`
	TextSample           string         `gorm:"column:text_sample;type:text" json:"text_sample"`
	LanguageCode         string         `gorm:"column:language_code;size:8;not null" json:"language_code"`
	UserID               string         `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`
}

func (CategoryTrainingData) TableName() string { return "category_training_data" }
