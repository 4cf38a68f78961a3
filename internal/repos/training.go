package repos

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
)

// Accuracy is the prediction record of one suggested category.
type Accuracy struct {
	CategoryID string
	Correct    int64
	Total      int64
}

// TrainingDataRepo appends and aggregates classification audit rows.
type TrainingDataRepo interface {
	Create(dbc dbctx.Context, row *models.CategoryTrainingData) error
	// AccuracyBySuggested aggregates rows whose suggested category is in categoryIDs.
	AccuracyBySuggested(dbc dbctx.Context, categoryIDs []string) (map[string]Accuracy, error)
	Count(dbc dbctx.Context) (int64, error)
}

type trainingDataRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTrainingDataRepo(db *gorm.DB, logger *zap.Logger) TrainingDataRepo {
	return &trainingDataRepo{db: db, log: logger.With(zap.String("repo", "TrainingDataRepo"))}
}

func (r *trainingDataRepo) Create(dbc dbctx.Context, row *models.CategoryTrainingData) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *trainingDataRepo) AccuracyBySuggested(dbc dbctx.Context, categoryIDs []string) (map[string]Accuracy, error) {
	out := map[string]Accuracy{}
	if len(categoryIDs) == 0 {
		return out, nil
	}
	var rows []Accuracy
	err := dbc.DB(r.db).
		Model(&models.CategoryTrainingData{}).
		Select("suggested_category_id AS category_id, " +
			"SUM(CASE WHEN was_correct THEN 1 ELSE 0 END) AS correct, COUNT(*) AS total").
		Where("suggested_category_id IN ?", categoryIDs).
		Group("suggested_category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.CategoryID] = a
	}
	return out, nil
}

func (r *trainingDataRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.CategoryTrainingData{}).Count(&n).Error
	return n, err
}
