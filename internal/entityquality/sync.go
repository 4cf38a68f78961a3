package entityquality

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// Syncer copies user-blacklisted entities into the training corpus as negative examples.
type Syncer struct {
	db        *gorm.DB
	repos     *repos.Set
	extractor *Extractor
	logger    *zap.Logger
}

func NewSyncer(set *repos.Set, extractor *Extractor, logger *zap.Logger) *Syncer {
	return &Syncer{db: set.DB, repos: set, extractor: extractor, logger: utils.OrNop(logger)}
}

// Sync inserts every blacklisted entity of lang (all languages when nil) that has no
// user_blacklist training row with the same value and language. It returns the number inserted.
func (s *Syncer) Sync(ctx context.Context, lang *string) (int, error) {
	if lang != nil {
		l := models.NormalizeLanguage(*lang)
		lang = &l
	}
	dbc := dbctx.Context{Ctx: ctx}
	entities, err := s.repos.Blacklist.List(dbc, lang)
	if err != nil {
		return 0, err
	}

	existing := map[string]map[string]bool{}
	var rows []*models.EntityQualityTrainingData
	for _, e := range entities {
		l := models.NormalizeLanguage(e.Language)
		seen, ok := existing[l]
		if !ok {
			if seen, err = s.repos.EntityTraining.ExistingValues(dbc, l, models.SourceUserBlacklist); err != nil {
				return 0, err
			}
			existing[l] = seen
		}
		if seen[e.EntityValue] {
			continue
		}
		seen[e.EntityValue] = true

		v, err := s.extractor.Extract(ctx, e.EntityValue, e.EntityType, l, 0)
		if err != nil {
			return 0, err
		}
		features, err := v.JSON()
		if err != nil {
			return 0, err
		}
		userID := e.UserID
		rows = append(rows, &models.EntityQualityTrainingData{
			EntityValue: e.EntityValue,
			EntityType:  e.EntityType,
			Language:    l,
			IsValid:     false,
			Features:    features,
			Source:      models.SourceUserBlacklist,
			UserID:      &userID,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repos.EntityTraining.CreateBatch(dbctx.Context{Ctx: ctx, Tx: tx}, rows)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("blacklist synced to training data", zap.Int("synced", len(rows)))
	return len(rows), nil
}
