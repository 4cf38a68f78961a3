package models

// CategoryScore is the raw score of one candidate category.
type CategoryScore struct {
	CategoryID string  `json:"category_id"`
	Score      float64 `json:"score"`
	Multiplier float64 `json:"accuracy_multiplier"`
}

// Prediction is the result of category prediction.
// CategoryID is nil when no candidate reached the confidence threshold.
type Prediction struct {
	CategoryID *string         `json:"category_id"`
	Confidence float64         `json:"confidence"`
	Scores     []CategoryScore `json:"scores,omitempty"`
	Keywords   []Keyword       `json:"keywords,omitempty"`
}

// Entity score sources.
const (
	ScoreSourceML        = "ml"
	ScoreSourceHeuristic = "heuristic"
)

// EntityScore is the validity confidence of an entity.
type EntityScore struct {
	Confidence float64            `json:"confidence"`
	Source     string             `json:"source"`
	Features   map[string]float64 `json:"features,omitempty"`
}

// Overlap severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// OverlapEntry is one category holding an overlapping keyword.
type OverlapEntry struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Weight       float64 `json:"weight"`
}

// KeywordOverlap is a keyword shared by two or more of a user's categories.
type KeywordOverlap struct {
	Keyword            string         `json:"keyword"`
	Severity           string         `json:"severity"`
	RelativeDifference float64        `json:"relative_difference"`
	Categories         []OverlapEntry `json:"categories"`
}

// ModelMetrics are the held-out evaluation metrics of a trained model.
type ModelMetrics struct {
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
}

// Status summarizes the engine state.
type Status struct {
	Keywords        int64             `json:"keywords"`
	TrainingEvents  int64             `json:"training_events"`
	EntitySamples   int64             `json:"entity_samples"`
	ActiveModels    map[string]string `json:"active_models"`
	CorpusDocuments uint64            `json:"corpus_documents"`
	DiskUsageBytes  int64             `json:"disk_usage_bytes"`
	LearningEnabled bool              `json:"learning_enabled"`
}
