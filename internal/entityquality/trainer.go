package entityquality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// VersionLayout formats model versions. Versions sort lexically in creation order.
const VersionLayout = "20060102T150405.000000Z"

// Trainer fits and stores entity quality models.
type Trainer struct {
	db          *gorm.DB
	repos       *repos.Set
	cfg         config.EntityQualityConfig
	invalidator *cache.Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewTrainer creates a trainer. invalidator may be nil.
func NewTrainer(set *repos.Set, cfg config.EntityQualityConfig, invalidator *cache.Invalidator, logger *zap.Logger) *Trainer {
	return &Trainer{
		db:          set.DB,
		repos:       set,
		cfg:         cfg,
		invalidator: invalidator,
		logger:      utils.OrNop(logger),
		now:         time.Now,
	}
}

// Train fits a model for lang on the whole training corpus and activates it.
// It returns ok=false without error when the corpus is too small or unbalanced.
// An empty modelType selects the configured default; testSize <= 0 selects the configured split.
func (t *Trainer) Train(ctx context.Context, lang, modelType string, testSize float64) (string, bool, error) {
	lang = models.NormalizeLanguage(lang)
	if modelType == "" {
		modelType = t.cfg.DefaultModelType
	}
	if modelType != models.ModelLogisticRegression && modelType != models.ModelRandomForest {
		return "", false, fmt.Errorf("%w: unknown model type %q", models.ErrInvalidInput, modelType)
	}
	if testSize <= 0 {
		testSize = t.cfg.TestSize
	}
	if testSize >= 1 {
		return "", false, fmt.Errorf("%w: test size must be below 1", models.ErrInvalidInput)
	}
	log := t.logger.With(zap.String("language", lang), zap.String("model_type", modelType))

	rows, err := t.repos.EntityTraining.ListByLanguage(dbctx.Context{Ctx: ctx}, lang)
	if err != nil {
		return "", false, err
	}
	samples := make([]Sample, 0, len(rows))
	skipped, positives := 0, 0
	for _, r := range rows {
		v, err := VectorFromJSON(r.Features)
		if err != nil {
			skipped++
			continue
		}
		samples = append(samples, Sample{X: v, Valid: r.IsValid})
		if r.IsValid {
			positives++
		}
	}
	if skipped > 0 {
		log.Warn("training rows with unusable features skipped", zap.Int("skipped", skipped))
	}
	negatives := len(samples) - positives
	if len(samples) < t.cfg.MinTrainingSamples {
		log.Warn("not enough training samples",
			zap.Int("samples", len(samples)), zap.Int("required", t.cfg.MinTrainingSamples))
		return "", false, nil
	}
	if positives < t.cfg.MinClassSamples || negatives < t.cfg.MinClassSamples {
		log.Warn("training samples too unbalanced",
			zap.Int("positives", positives), zap.Int("negatives", negatives), zap.Int("required", t.cfg.MinClassSamples))
		return "", false, nil
	}

	train, test := StratifiedSplit(samples, testSize, t.cfg.Seed)
	clf, err := Fit(modelType, train, t.cfg)
	if err != nil {
		return "", false, err
	}
	metrics := Evaluate(clf, test, len(train))
	data, err := Encode(clf)
	if err != nil {
		return "", false, err
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return "", false, err
	}

	var version string
	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		latest, err := t.repos.Models.Latest(dbc, lang)
		if err != nil {
			return err
		}
		version = t.nextVersion(latest)
		if err := t.repos.Models.DeactivateLanguage(dbc, lang); err != nil {
			return err
		}
		model := &models.EntityQualityModel{
			ModelVersion:         version,
			Language:             lang,
			ModelType:            modelType,
			ModelData:            datatypes.JSON(data),
			PerformanceMetrics:   datatypes.JSON(metricsJSON),
			TrainingSamplesCount: len(samples),
			IsActive:             true,
		}
		if err := t.repos.Models.Create(dbc, model); err != nil {
			return err
		}
		importances := clf.Importances()
		features := make([]*models.EntityQualityFeature, NumFeatures)
		for i, name := range FeatureNames {
			features[i] = &models.EntityQualityFeature{
				FeatureName:     name,
				ImportanceScore: importances[i],
				Language:        lang,
				ModelVersion:    version,
			}
		}
		return t.repos.Features.CreateBatch(dbc, features)
	})
	if err != nil {
		return "", false, fmt.Errorf("store model: %w", err)
	}
	if t.invalidator != nil {
		t.invalidator.Invalidate(ctx, cache.ModelKey(lang))
	}
	log.Info("entity quality model trained",
		zap.String("version", version),
		zap.Int("samples", len(samples)),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1))
	return version, true, nil
}

// nextVersion derives a version from the clock, strictly greater than latest.
func (t *Trainer) nextVersion(latest *models.EntityQualityModel) string {
	now := t.now().UTC().Truncate(time.Microsecond)
	if latest != nil {
		if prev, err := time.Parse(VersionLayout, latest.ModelVersion); err == nil && !now.After(prev) {
			now = prev.Add(time.Microsecond)
		}
	}
	return now.Format(VersionLayout)
}

// RetrainAll trains the default model type for every language in the training corpus.
// Languages that fail a gate map to nil. Errors of single languages are joined.
func (t *Trainer) RetrainAll(ctx context.Context) (map[string]*string, error) {
	langs, err := t.repos.EntityTraining.Languages(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*string, len(langs))
	var errs []error
	for _, lang := range langs {
		version, ok, err := t.Train(ctx, lang, "", 0)
		if err != nil {
			t.logger.Error("retraining failed", zap.String("language", lang), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", lang, err))
			out[lang] = nil
			continue
		}
		if !ok {
			out[lang] = nil
			continue
		}
		out[lang] = &version
	}
	return out, errors.Join(errs...)
}
