// Package learning adjusts per-category keyword weights from users' classification decisions.
package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/keyword"
	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// Engine applies learning events to the keyword weight tables.
type Engine struct {
	db          *gorm.DB
	repos       *repos.Set
	lexicons    lexicon.Store
	cfg         config.LearningConfig
	invalidator *cache.Invalidator
	logger      *zap.Logger
}

// NewEngine creates a learning engine. invalidator may be nil.
func NewEngine(set *repos.Set, lexicons lexicon.Store, cfg config.LearningConfig, invalidator *cache.Invalidator, logger *zap.Logger) *Engine {
	return &Engine{
		db:          set.DB,
		repos:       set,
		lexicons:    lexicons,
		cfg:         cfg,
		invalidator: invalidator,
		logger:      utils.OrNop(logger),
	}
}

// Learn applies one classification decision. It returns false without mutating anything
// when learning is disabled, the decision involves the fallback category, or too few
// quality keywords remain. Any database error rolls back every write of the event.
func (e *Engine) Learn(ctx context.Context, ev *models.LearnRequest) (bool, error) {
	if !e.cfg.EnabledOrDefault() {
		return false, nil
	}
	if err := ev.Validate(); err != nil {
		return false, err
	}
	dbc := dbctx.Context{Ctx: ctx}

	primary, err := e.repos.Categories.GetByID(dbc, ev.PrimaryCategoryID)
	if err != nil {
		return false, err
	}
	if primary.UserID != ev.UserID {
		return false, fmt.Errorf("%w: category %s does not belong to user", models.ErrInvalidInput, primary.ID)
	}
	if primary.IsFallback() {
		e.logger.Debug("learning skipped: fallback primary", zap.String("category_id", primary.ID))
		return false, nil
	}
	secondaries, err := e.repos.Categories.ListByIDs(dbc, ev.SecondaryCategoryIDs)
	if err != nil {
		return false, err
	}
	for _, c := range secondaries {
		if c.IsFallback() {
			e.logger.Debug("learning skipped: fallback secondary", zap.String("category_id", c.ID))
			return false, nil
		}
	}

	lex, err := e.lexicons.Lexicon(ctx, ev.Language)
	if err != nil {
		return false, err
	}
	quality := e.QualityKeywords(ev.Keywords, lex)
	if len(quality) < e.cfg.MinQualityKeywords {
		e.logger.Debug("learning skipped: too few quality keywords",
			zap.Int("quality", len(quality)), zap.Int("required", e.cfg.MinQualityKeywords))
		return false, nil
	}

	touched := map[string]bool{}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := &learnRun{
			engine:  e,
			dbc:     dbctx.Context{Ctx: ctx, Tx: tx},
			ev:      ev,
			primary: primary,
			touched: touched,
		}
		return run.apply(quality)
	})
	if err != nil {
		e.logger.Error("learning event rolled back",
			zap.String("document_id", ev.DocumentID), zap.String("category_id", primary.ID), zap.Error(err))
		return false, fmt.Errorf("learning failed: %w", err)
	}

	e.invalidateWeights(ctx, touched, ev.Language)
	e.logger.Info("learned from classification",
		zap.String("document_id", ev.DocumentID),
		zap.String("category_id", primary.ID),
		zap.String("language", ev.Language),
		zap.Int("keywords", len(quality)))
	return true, nil
}

// QualityKeywords normalizes keywords and drops stop-words, short, numeric and duplicate terms.
func (e *Engine) QualityKeywords(keywords []string, lex *lexicon.Lexicon) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, raw := range keywords {
		kw := keyword.Normalize(raw)
		if kw == "" || seen[kw] {
			continue
		}
		if utf8.RuneCountInString(kw) < e.cfg.MinKeywordLength || keyword.IsNumeric(kw) {
			continue
		}
		if lex != nil && lex.IsStopWord(kw) {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

func (e *Engine) invalidateWeights(ctx context.Context, touched map[string]bool, lang string) {
	if e.invalidator == nil || len(touched) == 0 {
		return
	}
	keys := make([]string, 0, len(touched))
	for id := range touched {
		keys = append(keys, cache.WeightsKey(id, lang))
	}
	e.invalidator.Invalidate(ctx, keys...)
}

func (e *Engine) clamp(w float64) float64 {
	return utils.Clamp(w, e.cfg.WeightMin, e.cfg.WeightMax)
}

// Adjustment returns the additive primary reinforcement for an event.
func (e *Engine) Adjustment(ev *models.LearnRequest) float64 {
	bonus := 0.0
	if ev.AIPredictedCategoryID != nil {
		if *ev.AIPredictedCategoryID == ev.PrimaryCategoryID {
			bonus = e.cfg.CorrectPredictionBonus
			if ev.AIConfidence != nil && *ev.AIConfidence < e.cfg.LowConfidenceThreshold {
				bonus *= e.cfg.LowConfidenceMultiplier
			}
		} else {
			bonus = e.cfg.WrongPredictionBoost
			if ev.AIConfidence != nil && *ev.AIConfidence >= e.cfg.HighConfidenceThreshold {
				bonus *= e.cfg.HighConfidenceMultiplier
			}
		}
	}
	return (e.cfg.BasePrimaryWeight + bonus) * e.cfg.LearningRate
}

// learnRun holds the state of one event inside its transaction.
type learnRun struct {
	engine  *Engine
	dbc     dbctx.Context
	ev      *models.LearnRequest
	primary *models.Category
	others  []string
	touched map[string]bool
}

func (r *learnRun) apply(quality []string) error {
	cats, err := r.engine.repos.Categories.ListActiveByUser(r.dbc, r.ev.UserID)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.ID != r.primary.ID {
			r.others = append(r.others, c.ID)
		}
	}

	if err := r.negativeCorrection(quality); err != nil {
		return fmt.Errorf("negative correction: %w", err)
	}
	distinct, err := r.distinctive(quality)
	if err != nil {
		return fmt.Errorf("distinctiveness filter: %w", err)
	}
	if err := r.reinforce(distinct); err != nil {
		return fmt.Errorf("primary reinforcement: %w", err)
	}
	if err := r.preserveDifferential(distinct); err != nil {
		return fmt.Errorf("differential preservation: %w", err)
	}
	return r.audit(quality)
}

// negativeCorrection lowers the weights the wrongly predicted category holds for the event's keywords.
func (r *learnRun) negativeCorrection(quality []string) error {
	pred := r.ev.AIPredictedCategoryID
	if pred == nil || *pred == "" || *pred == r.primary.ID {
		return nil
	}
	wrong, err := r.engine.repos.Categories.GetByID(r.dbc, *pred)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if wrong.IsFallback() || wrong.UserID != r.ev.UserID {
		return nil
	}
	rows, err := r.engine.repos.Keywords.ListForKeywords(r.dbc, []string{wrong.ID}, quality, r.ev.Language)
	if err != nil {
		return err
	}
	for _, row := range rows {
		w := r.engine.clamp(row.Weight - r.engine.cfg.NegativePenalty)
		if w == row.Weight {
			continue
		}
		if err := r.engine.repos.Keywords.UpdateWeight(r.dbc, row.ID, w, false); err != nil {
			return err
		}
		r.touched[wrong.ID] = true
	}
	return nil
}

type competition struct {
	categories int
	maxWeight  float64
}

func (r *learnRun) competitors(keywords []string) (map[string]competition, error) {
	rows, err := r.engine.repos.Keywords.ListForKeywords(r.dbc, r.others, keywords, r.ev.Language)
	if err != nil {
		return nil, err
	}
	out := map[string]competition{}
	for _, row := range rows {
		c := out[row.Keyword]
		c.categories++
		if row.Weight > c.maxWeight {
			c.maxWeight = row.Weight
		}
		out[row.Keyword] = c
	}
	return out, nil
}

func (r *learnRun) primaryRows(keywords []string) (map[string]*models.CategoryKeyword, error) {
	rows, err := r.engine.repos.Keywords.ListForKeywords(r.dbc, []string{r.primary.ID}, keywords, r.ev.Language)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.CategoryKeyword, len(rows))
	for _, row := range rows {
		out[row.Keyword] = row
	}
	return out, nil
}

// distinctive drops keywords that are too generic or dominated by another category.
// A keyword new to the primary category counts with a current weight of zero.
func (r *learnRun) distinctive(quality []string) ([]string, error) {
	comp, err := r.competitors(quality)
	if err != nil {
		return nil, err
	}
	current, err := r.primaryRows(quality)
	if err != nil {
		return nil, err
	}
	cfg := r.engine.cfg
	out := make([]string, 0, len(quality))
	for _, kw := range quality {
		c := comp[kw]
		if c.categories >= cfg.MaxOtherCategories {
			continue
		}
		w := 0.0
		if row := current[kw]; row != nil {
			w = row.Weight
		}
		if c.categories > 0 && c.maxWeight > w+cfg.MinDifferential {
			continue
		}
		out = append(out, kw)
	}
	if dropped := len(quality) - len(out); dropped > 0 {
		r.engine.logger.Debug("non-distinctive keywords dropped", zap.Int("dropped", dropped))
	}
	return out, nil
}

func (r *learnRun) reinforce(keywords []string) error {
	if len(keywords) == 0 {
		return nil
	}
	current, err := r.primaryRows(keywords)
	if err != nil {
		return err
	}
	adj := r.engine.Adjustment(r.ev)
	now := time.Now().UTC()
	for _, kw := range keywords {
		if row := current[kw]; row != nil {
			if err := r.engine.repos.Keywords.UpdateWeight(r.dbc, row.ID, r.engine.clamp(row.Weight+adj), true); err != nil {
				return err
			}
			continue
		}
		row := &models.CategoryKeyword{
			CategoryID:    r.primary.ID,
			Keyword:       kw,
			LanguageCode:  r.ev.Language,
			Weight:        r.engine.clamp(adj),
			MatchCount:    1,
			LastMatchedAt: &now,
		}
		if err := r.engine.repos.Keywords.Create(r.dbc, row); err != nil {
			return err
		}
	}
	r.touched[r.primary.ID] = true
	return nil
}

// preserveDifferential raises primary weights that sit less than MinDifferential above
// the keyword's best weight in any other category. The result never exceeds WeightMax.
func (r *learnRun) preserveDifferential(keywords []string) error {
	if len(keywords) == 0 {
		return nil
	}
	comp, err := r.competitors(keywords)
	if err != nil {
		return err
	}
	current, err := r.primaryRows(keywords)
	if err != nil {
		return err
	}
	cfg := r.engine.cfg
	for _, kw := range keywords {
		c, row := comp[kw], current[kw]
		if c.categories == 0 || row == nil {
			continue
		}
		target := c.maxWeight + cfg.MinDifferential
		if row.Weight >= target {
			continue
		}
		w := r.engine.clamp(target)
		if w < target {
			r.engine.logger.Debug("differential capped at weight_max",
				zap.String("keyword", kw), zap.Float64("target", target))
		}
		if w <= row.Weight {
			continue
		}
		if err := r.engine.repos.Keywords.UpdateWeight(r.dbc, row.ID, w, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *learnRun) audit(quality []string) error {
	var secondary datatypes.JSON
	if len(r.ev.SecondaryCategoryIDs) > 0 {
		raw, err := json.Marshal(r.ev.SecondaryCategoryIDs)
		if err != nil {
			return err
		}
		secondary = datatypes.JSON(raw)
	}
	sample := r.ev.Text
	if sample == "" {
		sample = utils.JoinSample(quality, 0)
	}
	pred := r.ev.AIPredictedCategoryID
	row := &models.CategoryTrainingData{
		DocumentID:           r.ev.DocumentID,
		SuggestedCategoryID:  pred,
		ActualCategoryID:     r.primary.ID,
		SecondaryCategoryIDs: secondary,
		WasCorrect:           pred != nil && *pred == r.primary.ID,
		Confidence:           r.ev.AIConfidence,
		TextSample:           utils.Truncate(sample, r.engine.cfg.TextSampleLength),
		LanguageCode:         r.ev.Language,
		UserID:               r.ev.UserID,
	}
	return r.engine.repos.TrainingData.Create(r.dbc, row)
}
