package repos

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
)

// KeywordRepo persists learned category keyword weights.
type KeywordRepo interface {
	Create(dbc dbctx.Context, k *models.CategoryKeyword) error
	GetByID(dbc dbctx.Context, id string) (*models.CategoryKeyword, error)
	// Find returns nil, nil when the (category, keyword, language) row does not exist.
	Find(dbc dbctx.Context, categoryID, keyword, lang string) (*models.CategoryKeyword, error)
	ListByCategories(dbc dbctx.Context, categoryIDs []string, lang string) ([]*models.CategoryKeyword, error)
	ListForKeywords(dbc dbctx.Context, categoryIDs, keywords []string, lang string) ([]*models.CategoryKeyword, error)
	UpdateWeight(dbc dbctx.Context, id string, weight float64, matched bool) error
	Delete(dbc dbctx.Context, id string) error
	Count(dbc dbctx.Context) (int64, error)
}

type keywordRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewKeywordRepo(db *gorm.DB, logger *zap.Logger) KeywordRepo {
	return &keywordRepo{db: db, log: logger.With(zap.String("repo", "KeywordRepo"))}
}

func (r *keywordRepo) Create(dbc dbctx.Context, k *models.CategoryKeyword) error {
	if k == nil || k.Keyword == "" || k.CategoryID == "" {
		return nil
	}
	return dbc.DB(r.db).Create(k).Error
}

func (r *keywordRepo) GetByID(dbc dbctx.Context, id string) (*models.CategoryKeyword, error) {
	var k models.CategoryKeyword
	if err := dbc.DB(r.db).Where("id = ?", id).First(&k).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("keyword %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &k, nil
}

func (r *keywordRepo) Find(dbc dbctx.Context, categoryID, keyword, lang string) (*models.CategoryKeyword, error) {
	var k models.CategoryKeyword
	err := dbc.DB(r.db).
		Where("category_id = ? AND keyword = ? AND language_code = ?", categoryID, keyword, lang).
		Limit(1).
		Find(&k).Error
	if err != nil {
		return nil, err
	}
	if k.ID == "" {
		return nil, nil
	}
	return &k, nil
}

func (r *keywordRepo) ListByCategories(dbc dbctx.Context, categoryIDs []string, lang string) ([]*models.CategoryKeyword, error) {
	out := []*models.CategoryKeyword{}
	if len(categoryIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("category_id IN ? AND language_code = ?", categoryIDs, lang).
		Order("category_id, keyword").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *keywordRepo) ListForKeywords(dbc dbctx.Context, categoryIDs, keywords []string, lang string) ([]*models.CategoryKeyword, error) {
	out := []*models.CategoryKeyword{}
	if len(categoryIDs) == 0 || len(keywords) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("category_id IN ? AND keyword IN ? AND language_code = ?", categoryIDs, keywords, lang).
		Order("keyword, category_id").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWeight stores a new weight. When matched is set, match_count and last_matched_at advance too.
func (r *keywordRepo) UpdateWeight(dbc dbctx.Context, id string, weight float64, matched bool) error {
	updates := map[string]any{"weight": weight, "updated_at": time.Now().UTC()}
	if matched {
		updates["match_count"] = gorm.Expr("match_count + 1")
		updates["last_matched_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).Model(&models.CategoryKeyword{}).Where("id = ?", id).Updates(updates).Error
}

func (r *keywordRepo) Delete(dbc dbctx.Context, id string) error {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&models.CategoryKeyword{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("keyword %s: %w", id, models.ErrNotFound)
	}
	r.log.Debug("keyword deleted", zap.String("id", id))
	return nil
}

func (r *keywordRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.CategoryKeyword{}).Count(&n).Error
	return n, err
}
