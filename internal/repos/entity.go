package repos

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
)

// EntityTrainingRepo stores the labeled entity quality corpus.
type EntityTrainingRepo interface {
	Create(dbc dbctx.Context, row *models.EntityQualityTrainingData) error
	CreateBatch(dbc dbctx.Context, rows []*models.EntityQualityTrainingData) error
	ListByLanguage(dbc dbctx.Context, lang string) ([]*models.EntityQualityTrainingData, error)
	Languages(dbc dbctx.Context) ([]string, error)
	// ExistingValues returns the entity values already present for (language, source).
	ExistingValues(dbc dbctx.Context, lang, source string) (map[string]bool, error)
	Count(dbc dbctx.Context) (int64, error)
}

type entityTrainingRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEntityTrainingRepo(db *gorm.DB, logger *zap.Logger) EntityTrainingRepo {
	return &entityTrainingRepo{db: db, log: logger.With(zap.String("repo", "EntityTrainingRepo"))}
}

func (r *entityTrainingRepo) Create(dbc dbctx.Context, row *models.EntityQualityTrainingData) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *entityTrainingRepo) CreateBatch(dbc dbctx.Context, rows []*models.EntityQualityTrainingData) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(rows, 200).Error
}

func (r *entityTrainingRepo) ListByLanguage(dbc dbctx.Context, lang string) ([]*models.EntityQualityTrainingData, error) {
	out := []*models.EntityQualityTrainingData{}
	if err := dbc.DB(r.db).Where("language = ?", lang).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityTrainingRepo) Languages(dbc dbctx.Context) ([]string, error) {
	var out []string
	err := dbc.DB(r.db).
		Model(&models.EntityQualityTrainingData{}).
		Distinct("language").
		Order("language").
		Pluck("language", &out).Error
	return out, err
}

func (r *entityTrainingRepo) ExistingValues(dbc dbctx.Context, lang, source string) (map[string]bool, error) {
	var values []string
	if err := dbc.DB(r.db).
		Model(&models.EntityQualityTrainingData{}).
		Where("language = ? AND source = ?", lang, source).
		Pluck("entity_value", &values).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out, nil
}

func (r *entityTrainingRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.EntityQualityTrainingData{}).Count(&n).Error
	return n, err
}

// BlacklistRepo reads user-blacklisted entities.
type BlacklistRepo interface {
	Create(dbc dbctx.Context, row *models.BlacklistedEntity) error
	// List returns every blacklisted entity, restricted to lang when non-nil.
	List(dbc dbctx.Context, lang *string) ([]*models.BlacklistedEntity, error)
}

type blacklistRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBlacklistRepo(db *gorm.DB, logger *zap.Logger) BlacklistRepo {
	return &blacklistRepo{db: db, log: logger.With(zap.String("repo", "BlacklistRepo"))}
}

func (r *blacklistRepo) Create(dbc dbctx.Context, row *models.BlacklistedEntity) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *blacklistRepo) List(dbc dbctx.Context, lang *string) ([]*models.BlacklistedEntity, error) {
	all := []*models.BlacklistedEntity{}
	if err := dbc.DB(r.db).Order("created_at, id").Find(&all).Error; err != nil {
		return nil, err
	}
	if lang == nil {
		return all, nil
	}
	// Rows are written by the surrounding application and may carry region codes.
	want := models.NormalizeLanguage(*lang)
	out := all[:0]
	for _, e := range all {
		if models.NormalizeLanguage(e.Language) == want {
			out = append(out, e)
		}
	}
	return out, nil
}

// EntityConfigRepo reads and seeds the heuristic scorer constants.
type EntityConfigRepo interface {
	List(dbc dbctx.Context) ([]models.EntityQualityConfig, error)
	// EnsureDefaults inserts rows whose key is missing and leaves existing values alone.
	EnsureDefaults(dbc dbctx.Context, rows []models.EntityQualityConfig) error
	Save(dbc dbctx.Context, row models.EntityQualityConfig) error
}

type entityConfigRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEntityConfigRepo(db *gorm.DB, logger *zap.Logger) EntityConfigRepo {
	return &entityConfigRepo{db: db, log: logger.With(zap.String("repo", "EntityConfigRepo"))}
}

func (r *entityConfigRepo) List(dbc dbctx.Context) ([]models.EntityQualityConfig, error) {
	out := []models.EntityQualityConfig{}
	if err := dbc.DB(r.db).Order("config_key").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityConfigRepo) EnsureDefaults(dbc dbctx.Context, rows []models.EntityQualityConfig) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *entityConfigRepo) Save(dbc dbctx.Context, row models.EntityQualityConfig) error {
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"config_value", "category", "min_value", "max_value", "description"}),
		}).
		Create(&row).Error
}
