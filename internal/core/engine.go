// Package core wires the learning, scoring and entity quality components behind the
// call contracts used by the HTTP server and the CLI.
package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/entityquality"
	"github.com/hyperjump/bunrui/internal/keyword"
	"github.com/hyperjump/bunrui/internal/learning"
	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/overlap"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/internal/scoring"
	"github.com/hyperjump/bunrui/internal/storage"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// Engine is the entry point of the classification and entity quality core.
type Engine struct {
	cfg      *config.Config
	repos    *repos.Set
	lexicons lexicon.Store
	corpus   *keyword.CorpusIndex

	keywords  *keyword.Extractor
	learner   *learning.Engine
	scorer    *scoring.Scorer
	overlaps  *overlap.Detector
	features  *entityquality.Extractor
	heuristic *entityquality.Heuristic
	trainer   *entityquality.Trainer
	predictor *entityquality.Predictor
	syncer    *entityquality.Syncer

	logger *zap.Logger
}

// NewEngine builds the core over an open database. corpus and invalidator may be nil;
// without a corpus keyword extraction uses term frequency only.
func NewEngine(
	db *gorm.DB,
	corpus *keyword.CorpusIndex,
	lexicons lexicon.Store,
	cfg *config.Config,
	invalidator *cache.Invalidator,
	logger *zap.Logger,
) *Engine {
	logger = utils.OrNop(logger)
	set := repos.NewSet(db, cfg.Learning.FallbackKey, logger)

	var df keyword.DocFrequencySource
	if corpus != nil {
		df = corpus
	}
	features := entityquality.NewExtractor(lexicons)
	return &Engine{
		cfg:      cfg,
		repos:    set,
		lexicons: lexicons,
		corpus:   corpus,
		keywords: keyword.NewExtractor(lexicons, df,
			keyword.RepoImportance{Categories: set.Categories, Keywords: set.Keywords},
			keyword.ExtractorConfig{
				MinKeywordLength: cfg.Learning.MinKeywordLength,
				WeightMax:        cfg.Learning.WeightMax,
				DefaultLimit:     cfg.Scoring.MaxKeywords,
			}, logger.Named("keyword")),
		learner:   learning.NewEngine(set, lexicons, cfg.Learning, invalidator, logger.Named("learning")),
		scorer:    scoring.NewScorer(set, cfg.Scoring, cfg.Cache.Capacity, invalidator, logger.Named("scoring")),
		overlaps:  overlap.NewDetector(set, logger.Named("overlap")),
		features:  features,
		heuristic: entityquality.NewHeuristic(set, invalidator, logger.Named("heuristic")),
		trainer:   entityquality.NewTrainer(set, cfg.EntityQuality, invalidator, logger.Named("trainer")),
		predictor: entityquality.NewPredictor(set, invalidator, logger.Named("predictor")),
		syncer:    entityquality.NewSyncer(set, features, logger.Named("sync")),
		logger:    logger,
	}
}

// Repos exposes the repositories, for seeding and administration.
func (e *Engine) Repos() *repos.Set { return e.repos }

// LearnFromClassification applies a user's classification decision. When the request
// carries text but no keywords, keywords are extracted from the text first.
func (e *Engine) LearnFromClassification(ctx context.Context, req *models.LearnRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	if len(req.Keywords) == 0 {
		kws, err := e.keywords.Extract(ctx, req.Text, req.Language, req.UserID, 0)
		if err != nil {
			return false, err
		}
		req.Keywords = models.Terms(kws)
	}
	ok, err := e.learner.Learn(ctx, req)
	if err != nil {
		return false, err
	}
	e.indexDocument(ctx, req.DocumentID, req.UserID, req.Language, req.Text)
	return ok, nil
}

// PredictCategory scores the user's categories for a document. Explicit keywords are
// used with full relevance; otherwise they are extracted from the text.
func (e *Engine) PredictCategory(ctx context.Context, req *models.PredictRequest) (*models.Prediction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	kws, err := e.requestKeywords(ctx, req)
	if err != nil {
		return nil, err
	}
	candidates, err := e.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	pred, err := e.scorer.Predict(ctx, req.Text, kws, req.Language, candidates)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	pred.Keywords = kws
	return pred, nil
}

// ClassifyText predicts the category of a document and adds its text to the corpus index.
func (e *Engine) ClassifyText(ctx context.Context, req *models.PredictRequest) (*models.Prediction, error) {
	pred, err := e.PredictCategory(ctx, req)
	if err != nil {
		return nil, err
	}
	e.indexDocument(ctx, req.DocumentID, req.UserID, req.Language, req.Text)
	return pred, nil
}

func (e *Engine) requestKeywords(ctx context.Context, req *models.PredictRequest) ([]models.Keyword, error) {
	if len(req.Keywords) == 0 {
		return e.keywords.Extract(ctx, req.Text, req.Language, req.UserID, 0)
	}
	seen := map[string]bool{}
	out := make([]models.Keyword, 0, len(req.Keywords))
	for _, raw := range req.Keywords {
		term := keyword.Normalize(raw)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		out = append(out, models.Keyword{Term: term, Relevance: 1})
	}
	return out, nil
}

// candidates returns the user's active categories, restricted to req.CategoryIDs when set.
func (e *Engine) candidates(ctx context.Context, req *models.PredictRequest) ([]*models.Category, error) {
	cats, err := e.repos.Categories.ListActiveByUser(dbctx.Context{Ctx: ctx}, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(req.CategoryIDs) == 0 {
		return cats, nil
	}
	wanted := make(map[string]bool, len(req.CategoryIDs))
	for _, id := range req.CategoryIDs {
		wanted[id] = true
	}
	out := make([]*models.Category, 0, len(req.CategoryIDs))
	for _, c := range cats {
		if wanted[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (e *Engine) indexDocument(ctx context.Context, id, userID, lang, text string) {
	if e.corpus == nil || id == "" || text == "" {
		return
	}
	doc := &models.Document{ID: id, UserID: userID, Language: lang, Content: text}
	if err := e.corpus.Index(ctx, doc); err != nil {
		e.logger.Warn("corpus index failed", zap.String("document_id", id), zap.Error(err))
	}
}

// ScoreEntity returns the validity confidence of an entity. The trained model of the
// entity's language is used when one is active; otherwise, or when it fails, the heuristic.
func (e *Engine) ScoreEntity(ctx context.Context, req *models.EntityRequest) (*models.EntityScore, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	v, err := e.features.Extract(ctx, req.Value, req.EntityType, req.Language, req.NERConfidence)
	if err != nil {
		return nil, err
	}
	out := &models.EntityScore{Features: v.Map()}

	p, ok, err := e.predictor.Predict(ctx, v, req.Language)
	if err != nil {
		e.logger.Warn("entity model unavailable, using heuristic", zap.String("language", req.Language), zap.Error(err))
	}
	if err == nil && ok {
		out.Confidence = p
		out.Source = models.ScoreSourceML
		return out, nil
	}
	out.Confidence = e.heuristic.Score(ctx, req.Value, req.EntityType, v)
	out.Source = models.ScoreSourceHeuristic
	return out, nil
}

// TrainModel trains and activates a model for language. It returns nil when a data gate fails.
func (e *Engine) TrainModel(ctx context.Context, language, modelType string) (*string, error) {
	version, ok, err := e.trainer.Train(ctx, language, modelType, 0)
	if err != nil || !ok {
		return nil, err
	}
	return &version, nil
}

// RetrainAll trains every language present in the training corpus.
func (e *Engine) RetrainAll(ctx context.Context) (map[string]*string, error) {
	return e.trainer.RetrainAll(ctx)
}

// Models lists the stored models of a language, newest first.
func (e *Engine) Models(ctx context.Context, language string, limit int) ([]*models.EntityQualityModel, error) {
	return e.repos.Models.ListByLanguage(dbctx.Context{Ctx: ctx}, models.NormalizeLanguage(language), limit)
}

// SyncBlacklist copies blacklisted entities into the training corpus. A nil language syncs all.
func (e *Engine) SyncBlacklist(ctx context.Context, language *string) (int, error) {
	return e.syncer.Sync(ctx, language)
}

// DetectOverlaps reports keywords shared between the user's categories.
func (e *Engine) DetectOverlaps(ctx context.Context, userID, language string) ([]models.KeywordOverlap, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrInvalidInput)
	}
	return e.overlaps.Detect(ctx, userID, language)
}

// AddKeyword adds or reweights a keyword of a category.
func (e *Engine) AddKeyword(ctx context.Context, in *models.KeywordInput) (*models.CategoryKeyword, error) {
	return e.learner.AddKeyword(ctx, in)
}

// DeleteKeyword removes a user keyword.
func (e *Engine) DeleteKeyword(ctx context.Context, userID, keywordID string) error {
	return e.learner.DeleteKeyword(ctx, userID, keywordID)
}

// Status summarizes stored data and active models.
func (e *Engine) Status(ctx context.Context) (*models.Status, error) {
	dbc := dbctx.Context{Ctx: ctx}
	s := &models.Status{LearningEnabled: e.cfg.Learning.EnabledOrDefault()}
	var err error
	if s.Keywords, err = e.repos.Keywords.Count(dbc); err != nil {
		return nil, err
	}
	if s.TrainingEvents, err = e.repos.TrainingData.Count(dbc); err != nil {
		return nil, err
	}
	if s.EntitySamples, err = e.repos.EntityTraining.Count(dbc); err != nil {
		return nil, err
	}
	if s.ActiveModels, err = e.repos.Models.ActiveVersions(dbc); err != nil {
		return nil, err
	}
	if e.corpus != nil {
		if s.CorpusDocuments, err = e.corpus.DocCount(); err != nil {
			return nil, err
		}
	}
	var paths []string
	if e.cfg.Storage.Driver == "sqlite" {
		paths = append(paths, e.cfg.Storage.DatabasePath)
	}
	if e.corpus != nil {
		paths = append(paths, e.cfg.Storage.CorpusIndexPath)
	}
	if n, err := storage.DiskUsage(paths...); err == nil {
		s.DiskUsageBytes = n
	} else {
		e.logger.Debug("disk usage unavailable", zap.Error(err))
	}
	return s, nil
}
