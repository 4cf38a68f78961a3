package entityquality

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/models"
)

// Classifier predicts the probability that an entity is valid.
type Classifier interface {
	PredictProba(v Vector) float64
	// Importances returns one non-negative score per feature, summing to 1.
	Importances() Vector
}

// Sample is one labeled training vector.
type Sample struct {
	X     Vector
	Valid bool
}

// Fit trains a classifier of modelType on samples.
func Fit(modelType string, samples []Sample, cfg config.EntityQualityConfig) (Classifier, error) {
	switch modelType {
	case models.ModelLogisticRegression:
		return FitLogistic(samples, cfg.LogisticIterations, cfg.LogisticLearningRate, cfg.LogisticL2), nil
	case models.ModelRandomForest:
		return FitForest(samples, ForestParams{
			Trees:           cfg.ForestTrees,
			MaxDepth:        cfg.ForestMaxDepth,
			MinSamplesSplit: cfg.ForestMinSamplesSplit,
			Seed:            cfg.Seed,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown model type %q", models.ErrInvalidInput, modelType)
	}
}

// Encode serializes a fitted classifier for the model_data column.
func Encode(c Classifier) ([]byte, error) {
	return json.Marshal(c)
}

// Decode restores a classifier stored with Encode.
func Decode(modelType string, data []byte) (Classifier, error) {
	switch modelType {
	case models.ModelLogisticRegression:
		m := &Logistic{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("decode logistic model: %w", err)
		}
		return m, nil
	case models.ModelRandomForest:
		m := &Forest{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("decode random forest: %w", err)
		}
		if len(m.Trees) == 0 {
			return nil, fmt.Errorf("decode random forest: no trees")
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown model type %q", models.ErrInvalidInput, modelType)
	}
}

func normalize(v Vector) Vector {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		for i := range v {
			v[i] = 1.0 / NumFeatures
		}
		return v
	}
	for i := range v {
		v[i] /= sum
	}
	return v
}
