package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/bunrui/data/db/bunrui.db"
	}
	if cfg.Storage.CorpusIndexPath == "" {
		cfg.Storage.CorpusIndexPath = "/usr/local/var/bunrui/data/indices/corpus"
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 4096
	}
	if cfg.Cache.RedisChannel == "" {
		cfg.Cache.RedisChannel = "bunrui:cache:invalidate"
	}
	applyLearningDefaults(&cfg.Learning)
	applyScoringDefaults(&cfg.Scoring)
	applyEntityQualityDefaults(&cfg.EntityQuality)
}

func applyLearningDefaults(l *LearningConfig) {
	d := DefaultLearningConfig()
	if l.FallbackKey == "" {
		l.FallbackKey = d.FallbackKey
	}
	if l.WeightMin == 0 {
		l.WeightMin = d.WeightMin
	}
	if l.WeightMax == 0 {
		l.WeightMax = d.WeightMax
	}
	if l.MinKeywordLength == 0 {
		l.MinKeywordLength = d.MinKeywordLength
	}
	if l.MinQualityKeywords == 0 {
		l.MinQualityKeywords = d.MinQualityKeywords
	}
	if l.MaxOtherCategories == 0 {
		l.MaxOtherCategories = d.MaxOtherCategories
	}
	if l.LearningRate == 0 {
		l.LearningRate = d.LearningRate
	}
	if l.BasePrimaryWeight == 0 {
		l.BasePrimaryWeight = d.BasePrimaryWeight
	}
	if l.CorrectPredictionBonus == 0 {
		l.CorrectPredictionBonus = d.CorrectPredictionBonus
	}
	if l.LowConfidenceThreshold == 0 {
		l.LowConfidenceThreshold = d.LowConfidenceThreshold
	}
	if l.LowConfidenceMultiplier == 0 {
		l.LowConfidenceMultiplier = d.LowConfidenceMultiplier
	}
	if l.WrongPredictionBoost == 0 {
		l.WrongPredictionBoost = d.WrongPredictionBoost
	}
	if l.HighConfidenceThreshold == 0 {
		l.HighConfidenceThreshold = d.HighConfidenceThreshold
	}
	if l.HighConfidenceMultiplier == 0 {
		l.HighConfidenceMultiplier = d.HighConfidenceMultiplier
	}
	if l.NegativePenalty == 0 {
		l.NegativePenalty = d.NegativePenalty
	}
	if l.MinDifferential == 0 {
		l.MinDifferential = d.MinDifferential
	}
	if l.TextSampleLength == 0 {
		l.TextSampleLength = d.TextSampleLength
	}
}

// DefaultLearningConfig returns the default learning constants.
func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		FallbackKey:              "OTH",
		WeightMin:                0.1,
		WeightMax:                10.0,
		MinKeywordLength:         3,
		MinQualityKeywords:       3,
		MaxOtherCategories:       3,
		LearningRate:             1.0,
		BasePrimaryWeight:        1.0,
		CorrectPredictionBonus:   0.2,
		LowConfidenceThreshold:   0.5,
		LowConfidenceMultiplier:  1.5,
		WrongPredictionBoost:     0.5,
		HighConfidenceThreshold:  0.8,
		HighConfidenceMultiplier: 1.5,
		NegativePenalty:          0.3,
		MinDifferential:          0.5,
		TextSampleLength:         500,
	}
}

// DefaultScoringConfig returns the default prediction settings.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{ConfidenceThreshold: 0.3, SubstringBonus: 0.1, MaxKeywords: 50}
}

func applyScoringDefaults(s *ScoringConfig) {
	d := DefaultScoringConfig()
	if s.ConfidenceThreshold == 0 {
		s.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if s.SubstringBonus == 0 {
		s.SubstringBonus = d.SubstringBonus
	}
	if s.MaxKeywords == 0 {
		s.MaxKeywords = d.MaxKeywords
	}
}

// DefaultEntityQualityConfig returns the default training settings.
func DefaultEntityQualityConfig() EntityQualityConfig {
	return EntityQualityConfig{
		MinTrainingSamples:    100,
		MinClassSamples:       10,
		TestSize:              0.2,
		DefaultModelType:      "logistic_regression",
		Seed:                  42,
		LogisticIterations:    500,
		LogisticLearningRate:  0.1,
		LogisticL2:            0.01,
		ForestTrees:           50,
		ForestMaxDepth:        8,
		ForestMinSamplesSplit: 4,
	}
}

func applyEntityQualityDefaults(e *EntityQualityConfig) {
	d := DefaultEntityQualityConfig()
	if e.MinTrainingSamples == 0 {
		e.MinTrainingSamples = d.MinTrainingSamples
	}
	if e.MinClassSamples == 0 {
		e.MinClassSamples = d.MinClassSamples
	}
	if e.TestSize == 0 {
		e.TestSize = d.TestSize
	}
	if e.DefaultModelType == "" {
		e.DefaultModelType = d.DefaultModelType
	}
	if e.Seed == 0 {
		e.Seed = d.Seed
	}
	if e.LogisticIterations == 0 {
		e.LogisticIterations = d.LogisticIterations
	}
	if e.LogisticLearningRate == 0 {
		e.LogisticLearningRate = d.LogisticLearningRate
	}
	if e.LogisticL2 == 0 {
		e.LogisticL2 = d.LogisticL2
	}
	if e.ForestTrees == 0 {
		e.ForestTrees = d.ForestTrees
	}
	if e.ForestMaxDepth == 0 {
		e.ForestMaxDepth = d.ForestMaxDepth
	}
	if e.ForestMinSamplesSplit == 0 {
		e.ForestMinSamplesSplit = d.ForestMinSamplesSplit
	}
}
