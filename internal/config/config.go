// Package config provides configuration loading and structs for the bunrui server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug         bool                `yaml:"debug"`
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Cache         CacheConfig         `yaml:"cache"`
	Learning      LearningConfig      `yaml:"learning"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	EntityQuality EntityQualityConfig `yaml:"entity_quality"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds database, corpus index and lexicon locations.
type StorageConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver          string `yaml:"driver"`
	DatabasePath    string `yaml:"database_path"`
	DSN             string `yaml:"dsn"`
	CorpusIndexPath string `yaml:"corpus_index_path"`
	LexiconDir      string `yaml:"lexicon_dir"`
	WatchLexicon    bool   `yaml:"watch_lexicon"`
}

// CacheConfig holds in-process cache size and the optional redis invalidation bus.
type CacheConfig struct {
	Capacity     int    `yaml:"capacity"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
}

// LearningConfig holds the keyword-weight learning constants.
type LearningConfig struct {
	Enabled     *bool  `yaml:"enabled"`
	FallbackKey string `yaml:"fallback_key"`

	WeightMin float64 `yaml:"weight_min"`
	WeightMax float64 `yaml:"weight_max"`

	MinKeywordLength   int `yaml:"min_keyword_length"`
	MinQualityKeywords int `yaml:"min_quality_keywords"`
	MaxOtherCategories int `yaml:"max_other_categories"`

	LearningRate             float64 `yaml:"learning_rate"`
	BasePrimaryWeight        float64 `yaml:"base_primary_weight"`
	CorrectPredictionBonus   float64 `yaml:"correct_prediction_bonus"`
	LowConfidenceThreshold   float64 `yaml:"low_confidence_threshold"`
	LowConfidenceMultiplier  float64 `yaml:"low_confidence_multiplier"`
	WrongPredictionBoost     float64 `yaml:"wrong_prediction_boost"`
	HighConfidenceThreshold  float64 `yaml:"high_confidence_threshold"`
	HighConfidenceMultiplier float64 `yaml:"high_confidence_multiplier"`
	NegativePenalty          float64 `yaml:"negative_penalty"`
	MinDifferential          float64 `yaml:"min_differential"`

	TextSampleLength int `yaml:"text_sample_length"`
}

// EnabledOrDefault returns whether learning is enabled; defaults to true when unset.
func (l *LearningConfig) EnabledOrDefault() bool {
	if l.Enabled != nil {
		return *l.Enabled
	}
	return true
}

// ScoringConfig holds category prediction settings.
type ScoringConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	SubstringBonus      float64 `yaml:"substring_bonus"`
	MaxKeywords         int     `yaml:"max_keywords"`
}

// EntityQualityConfig holds training settings for the entity quality models.
type EntityQualityConfig struct {
	MinTrainingSamples int     `yaml:"min_training_samples"`
	MinClassSamples    int     `yaml:"min_class_samples"`
	TestSize           float64 `yaml:"test_size"`
	DefaultModelType   string  `yaml:"default_model_type"`
	Seed               int64   `yaml:"seed"`

	LogisticIterations   int     `yaml:"logistic_iterations"`
	LogisticLearningRate float64 `yaml:"logistic_learning_rate"`
	LogisticL2           float64 `yaml:"logistic_l2"`

	ForestTrees           int `yaml:"forest_trees"`
	ForestMaxDepth        int `yaml:"forest_max_depth"`
	ForestMinSamplesSplit int `yaml:"forest_min_samples_split"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.CorpusIndexPath = expandPath(cfg.Storage.CorpusIndexPath, configDir)
	if cfg.Storage.LexiconDir != "" {
		cfg.Storage.LexiconDir = expandPath(cfg.Storage.LexiconDir, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MinClassSamplesFloor is the lowest per-class sample count a training run may require.
const MinClassSamplesFloor = 10

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Learning.WeightMin >= c.Learning.WeightMax {
		return fmt.Errorf("invalid config: learning.weight_min (%v) must be below weight_max (%v)",
			c.Learning.WeightMin, c.Learning.WeightMax)
	}
	if c.EntityQuality.TestSize <= 0 || c.EntityQuality.TestSize >= 1 {
		return fmt.Errorf("invalid config: entity_quality.test_size must be in (0,1), got %v", c.EntityQuality.TestSize)
	}
	if c.EntityQuality.MinClassSamples < MinClassSamplesFloor {
		return fmt.Errorf("invalid config: entity_quality.min_class_samples must be at least %d, got %d",
			MinClassSamplesFloor, c.EntityQuality.MinClassSamples)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("invalid config: storage.dsn is required for postgres")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
