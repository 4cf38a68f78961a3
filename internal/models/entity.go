package models

import (
	"time"

	"gorm.io/datatypes"
)

// Training row sources.
const (
	SourceUserBlacklist = "user_blacklist"
	SourceManualLabel   = "manual_label"
	SourceAutoFeedback  = "auto_feedback"
)

// Entity quality model types.
const (
	ModelLogisticRegression = "logistic_regression"
	ModelRandomForest       = "random_forest"
)

// Entity types recognised by the feature extractor.
const (
	EntityPerson       = "PERSON"
	EntityOrganization = "ORGANIZATION"
	EntityLocation     = "LOCATION"
	EntityAddress      = "ADDRESS"
)

// EntityQualityTrainingData is one labeled example in the entity quality corpus.
type EntityQualityTrainingData struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	EntityValue     string         `gorm:"column:entity_value;size:512;not null;index:idx_eq_training_lookup,priority:1" json:"entity_value"`
	EntityType      string         `gorm:"column:entity_type;size:32;not null" json:"entity_type"`
	Language        string         `gorm:"column:language;size:8;not null;index:idx_eq_training_lookup,priority:2" json:"language"`
	IsValid         bool           `gorm:"column:is_valid;not null" json:"is_valid"`
	ConfidenceScore *float64       `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	Features        datatypes.JSON `gorm:"column:features" json:"features"`
	Source          string         `gorm:"column:source;size:32;not null;index:idx_eq_training_lookup,priority:3" json:"source"`
	UserID          *string        `gorm:"column:user_id;size:64" json:"user_id,omitempty"`
	DocumentID      *string        `gorm:"column:document_id;size:64" json:"document_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (EntityQualityTrainingData) TableName() string { return "entity_quality_training_data" }

// EntityQualityModel is a trained, versioned classifier for one language.
type EntityQualityModel struct {
	ID                   string         `gorm:"primaryKey;size:36" json:"id"`
	ModelVersion         string         `gorm:"column:model_version;size:32;not null;uniqueIndex:idx_eq_model_version,priority:2" json:"model_version"`
	Language             string         `gorm:"column:language;size:8;not null;uniqueIndex:idx_eq_model_version,priority:1;index" json:"language"`
	ModelType            string         `gorm:"column:model_type;size:32;not null" json:"model_type"`
	ModelData            datatypes.JSON `gorm:"column:model_data" json:"-"`
	PerformanceMetrics   datatypes.JSON `gorm:"column:performance_metrics" json:"performance_metrics"`
	TrainingSamplesCount int            `gorm:"column:training_samples_count;not null" json:"training_samples_count"`
	IsActive             bool           `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
}

func (EntityQualityModel) TableName() string { return "entity_quality_models" }

// EntityQualityFeature is the importance of one feature in one model version.
type EntityQualityFeature struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	FeatureName     string    `gorm:"column:feature_name;size:64;not null" json:"feature_name"`
	ImportanceScore float64   `gorm:"column:importance_score;not null" json:"importance_score"`
	Language        string    `gorm:"column:language;size:8;not null;index:idx_eq_feature_model,priority:1" json:"language"`
	ModelVersion    string    `gorm:"column:model_version;size:32;not null;index:idx_eq_feature_model,priority:2" json:"model_version"`
	CreatedAt       time.Time `json:"created_at"`
}

func (EntityQualityFeature) TableName() string { return "entity_quality_features" }

// EntityQualityConfig is one tunable heuristic constant.
type EntityQualityConfig struct {
	ConfigKey   string   `gorm:"primaryKey;column:config_key;size:64" json:"config_key"`
	ConfigValue float64  `gorm:"column:config_value;not null" json:"config_value"`
	Category    string   `gorm:"column:category;size:32" json:"category"`
	MinValue    *float64 `gorm:"column:min_value" json:"min_value,omitempty"`
	MaxValue    *float64 `gorm:"column:max_value" json:"max_value,omitempty"`
	Description string   `gorm:"column:description;size:512" json:"description,omitempty"`
}

func (EntityQualityConfig) TableName() string { return "entity_quality_config" }

// Value returns ConfigValue clamped to the row's bounds.
func (c EntityQualityConfig) Value() float64 {
	v := c.ConfigValue
	if c.MinValue != nil && v < *c.MinValue {
		v = *c.MinValue
	}
	if c.MaxValue != nil && v > *c.MaxValue {
		v = *c.MaxValue
	}
	return v
}

// BlacklistedEntity is an entity a user rejected. Owned by the surrounding application.
type BlacklistedEntity struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	EntityValue string    `gorm:"column:entity_value;size:512;not null" json:"entity_value"`
	EntityType  string    `gorm:"column:entity_type;size:32;not null" json:"entity_type"`
	Language    string    `gorm:"column:language;size:8;not null;index" json:"language"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BlacklistedEntity) TableName() string { return "blacklisted_entities" }
