package repos

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
)

// ModelRepo stores versioned entity quality models.
type ModelRepo interface {
	Create(dbc dbctx.Context, m *models.EntityQualityModel) error
	// GetActive returns nil, nil when the language has no active model.
	GetActive(dbc dbctx.Context, lang string) (*models.EntityQualityModel, error)
	Latest(dbc dbctx.Context, lang string) (*models.EntityQualityModel, error)
	ListByLanguage(dbc dbctx.Context, lang string, limit int) ([]*models.EntityQualityModel, error)
	DeactivateLanguage(dbc dbctx.Context, lang string) error
	ActiveVersions(dbc dbctx.Context) (map[string]string, error)
	CountActive(dbc dbctx.Context, lang string) (int64, error)
}

type modelRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewModelRepo(db *gorm.DB, logger *zap.Logger) ModelRepo {
	return &modelRepo{db: db, log: logger.With(zap.String("repo", "ModelRepo"))}
}

func (r *modelRepo) Create(dbc dbctx.Context, m *models.EntityQualityModel) error {
	if m == nil || m.Language == "" {
		return nil
	}
	return dbc.DB(r.db).Create(m).Error
}

func (r *modelRepo) GetActive(dbc dbctx.Context, lang string) (*models.EntityQualityModel, error) {
	return r.first(dbc.DB(r.db).Where("language = ? AND is_active = ?", lang, true))
}

func (r *modelRepo) Latest(dbc dbctx.Context, lang string) (*models.EntityQualityModel, error) {
	return r.first(dbc.DB(r.db).Where("language = ?", lang))
}

func (r *modelRepo) first(q *gorm.DB) (*models.EntityQualityModel, error) {
	row := &models.EntityQualityModel{}
	if err := q.Order("model_version DESC").Limit(1).First(row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *modelRepo) ListByLanguage(dbc dbctx.Context, lang string, limit int) ([]*models.EntityQualityModel, error) {
	out := []*models.EntityQualityModel{}
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if err := dbc.DB(r.db).
		Where("language = ?", lang).
		Order("model_version DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelRepo) DeactivateLanguage(dbc dbctx.Context, lang string) error {
	return dbc.DB(r.db).
		Model(&models.EntityQualityModel{}).
		Where("language = ? AND is_active = ?", lang, true).
		Update("is_active", false).Error
}

func (r *modelRepo) ActiveVersions(dbc dbctx.Context) (map[string]string, error) {
	var rows []*models.EntityQualityModel
	if err := dbc.DB(r.db).
		Select("language", "model_version").
		Where("is_active = ?", true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, m := range rows {
		out[m.Language] = m.ModelVersion
	}
	return out, nil
}

func (r *modelRepo) CountActive(dbc dbctx.Context, lang string) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&models.EntityQualityModel{}).
		Where("language = ? AND is_active = ?", lang, true).
		Count(&n).Error
	return n, err
}

// FeatureRepo stores per-model feature importances.
type FeatureRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*models.EntityQualityFeature) error
	ListByVersion(dbc dbctx.Context, lang, version string) ([]*models.EntityQualityFeature, error)
}

type featureRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewFeatureRepo(db *gorm.DB, logger *zap.Logger) FeatureRepo {
	return &featureRepo{db: db, log: logger.With(zap.String("repo", "FeatureRepo"))}
}

func (r *featureRepo) CreateBatch(dbc dbctx.Context, rows []*models.EntityQualityFeature) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&rows).Error
}

func (r *featureRepo) ListByVersion(dbc dbctx.Context, lang, version string) ([]*models.EntityQualityFeature, error) {
	out := []*models.EntityQualityFeature{}
	if err := dbc.DB(r.db).
		Where("language = ? AND model_version = ?", lang, version).
		Order("importance_score DESC, feature_name").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
