// Package scoring predicts a document's category from learned keyword weights.
package scoring

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// Scorer scores candidate categories for a document.
type Scorer struct {
	repos   *repos.Set
	cfg     config.ScoringConfig
	weights *cache.LRU[map[string]float64]
	logger  *zap.Logger
}

// NewScorer creates a scorer whose per-category weight cache is dropped by invalidator
// whenever a write path touches the category. invalidator may be nil.
func NewScorer(set *repos.Set, cfg config.ScoringConfig, capacity int, invalidator *cache.Invalidator, logger *zap.Logger) *Scorer {
	s := &Scorer{
		repos:   set,
		cfg:     cfg,
		weights: cache.NewLRU[map[string]float64](capacity),
		logger:  utils.OrNop(logger),
	}
	if invalidator != nil {
		invalidator.Register(s.weights)
	}
	return s
}

type candidate struct {
	category *models.Category
	weights  map[string]float64
	score    float64
	ceiling  float64
	mult     float64
}

// Predict returns the best-scoring candidate. CategoryID is nil when no candidate scores
// or the winner's confidence is below the configured threshold.
func (s *Scorer) Predict(ctx context.Context, text string, keywords []models.Keyword, lang string, candidates []*models.Category) (*models.Prediction, error) {
	pred := &models.Prediction{Scores: []models.CategoryScore{}}
	if len(candidates) == 0 {
		return pred, nil
	}
	if s.cfg.MaxKeywords > 0 && len(keywords) > s.cfg.MaxKeywords {
		keywords = keywords[:s.cfg.MaxKeywords]
	}
	dbc := dbctx.Context{Ctx: ctx}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	weights, err := s.categoryWeights(dbc, ids, lang)
	if err != nil {
		return nil, err
	}
	accuracy, err := s.repos.TrainingData.AccuracyBySuggested(dbc, ids)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(text)
	scored := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		cand := &candidate{category: c, weights: weights[c.ID], mult: Multiplier(accuracy[c.ID])}
		cand.score, cand.ceiling = s.score(cand.weights, keywords, lowered)
		cand.score *= cand.mult
		scored = append(scored, cand)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].category.ID < scored[j].category.ID
	})
	for _, c := range scored {
		pred.Scores = append(pred.Scores, models.CategoryScore{CategoryID: c.category.ID, Score: c.score, Multiplier: c.mult})
	}

	best := scored[0]
	if best.score <= 0 || best.ceiling <= 0 {
		return pred, nil
	}
	pred.Confidence = utils.Clamp(best.score/best.ceiling, 0, 1)
	if pred.Confidence < s.cfg.ConfidenceThreshold {
		s.logger.Debug("prediction below threshold",
			zap.String("category_id", best.category.ID), zap.Float64("confidence", pred.Confidence))
		return pred, nil
	}
	id := best.category.ID
	pred.CategoryID = &id
	return pred, nil
}

// score returns the raw keyword score of one category and its maximum attainable score.
func (s *Scorer) score(weights map[string]float64, keywords []models.Keyword, text string) (float64, float64) {
	if len(weights) == 0 {
		return 0, 0
	}
	total, ceiling := 0.0, 0.0
	for _, kw := range keywords {
		total += kw.Relevance * weights[kw.Term]
	}
	for term, w := range weights {
		ceiling += w * (1 + s.cfg.SubstringBonus)
		if text != "" && strings.Contains(text, term) {
			total += w * s.cfg.SubstringBonus
		}
	}
	return total, ceiling
}

// Multiplier maps a category's historical prediction accuracy into [0.5, 1.5].
// A category with no history is neutral.
func Multiplier(a repos.Accuracy) float64 {
	if a.Total <= 0 {
		return 1.0
	}
	return 0.5 + float64(a.Correct)/float64(a.Total)
}

func (s *Scorer) categoryWeights(dbc dbctx.Context, ids []string, lang string) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64, len(ids))
	var missing []string
	for _, id := range ids {
		if w, ok := s.weights.Get(cache.WeightsKey(id, lang)); ok {
			out[id] = w
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	rows, err := s.repos.Keywords.ListByCategories(dbc, missing, lang)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		out[id] = map[string]float64{}
	}
	for _, row := range rows {
		out[row.CategoryID][row.Keyword] = row.Weight
	}
	for _, id := range missing {
		s.weights.Set(cache.WeightsKey(id, lang), out[id])
	}
	return out, nil
}
