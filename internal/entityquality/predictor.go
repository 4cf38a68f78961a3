package entityquality

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// loaded is a cached active model. A nil classifier records that the language has none.
type loaded struct {
	version    string
	classifier Classifier
}

// Predictor scores vectors with the active model of a language.
type Predictor struct {
	repos  *repos.Set
	active *cache.LRU[*loaded]
	group  singleflight.Group
	logger *zap.Logger
}

// NewPredictor creates a predictor whose model cache is dropped by invalidator after training.
func NewPredictor(set *repos.Set, invalidator *cache.Invalidator, logger *zap.Logger) *Predictor {
	p := &Predictor{repos: set, active: cache.NewLRU[*loaded](32), logger: utils.OrNop(logger)}
	if invalidator != nil {
		invalidator.Register(p.active)
	}
	return p
}

// Predict returns the probability that v is a valid entity. ok is false when lang has no active model.
func (p *Predictor) Predict(ctx context.Context, v Vector, lang string) (float64, bool, error) {
	lang = models.NormalizeLanguage(lang)
	m, err := p.load(ctx, lang)
	if err != nil {
		return 0, false, err
	}
	if m.classifier == nil {
		return 0, false, nil
	}
	return utils.Clamp(m.classifier.PredictProba(v), 0, 1), true, nil
}

// ActiveVersion returns the version of the cached active model of lang, or "".
func (p *Predictor) ActiveVersion(ctx context.Context, lang string) (string, error) {
	m, err := p.load(ctx, models.NormalizeLanguage(lang))
	if err != nil {
		return "", err
	}
	return m.version, nil
}

func (p *Predictor) load(ctx context.Context, lang string) (*loaded, error) {
	key := cache.ModelKey(lang)
	if m, ok := p.active.Get(key); ok {
		return m, nil
	}
	v, err, _ := p.group.Do(key, func() (any, error) {
		if m, ok := p.active.Get(key); ok {
			return m, nil
		}
		row, err := p.repos.Models.GetActive(dbctx.Context{Ctx: ctx}, lang)
		if err != nil {
			return nil, err
		}
		m := &loaded{}
		if row != nil {
			clf, err := Decode(row.ModelType, row.ModelData)
			if err != nil {
				return nil, err
			}
			m.version = row.ModelVersion
			m.classifier = clf
			p.logger.Info("entity quality model loaded",
				zap.String("language", lang), zap.String("version", row.ModelVersion), zap.String("model_type", row.ModelType))
		}
		p.active.Set(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*loaded), nil
}
