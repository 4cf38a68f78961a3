package repos

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
)

// CategoryRepo reads categories and resolves their role.
type CategoryRepo interface {
	Create(dbc dbctx.Context, c *models.Category) error
	GetByID(dbc dbctx.Context, id string) (*models.Category, error)
	ListByIDs(dbc dbctx.Context, ids []string) ([]*models.Category, error)
	ListActiveByUser(dbc dbctx.Context, userID string) ([]*models.Category, error)
}

type categoryRepo struct {
	db          *gorm.DB
	fallbackKey string
	log         *zap.Logger
}

func NewCategoryRepo(db *gorm.DB, fallbackKey string, logger *zap.Logger) CategoryRepo {
	return &categoryRepo{db: db, fallbackKey: fallbackKey, log: logger.With(zap.String("repo", "CategoryRepo"))}
}

func (r *categoryRepo) Create(dbc dbctx.Context, c *models.Category) error {
	if c == nil {
		return nil
	}
	if err := dbc.DB(r.db).Create(c).Error; err != nil {
		return err
	}
	c.ResolveRole(r.fallbackKey)
	return nil
}

// GetByID returns models.ErrNotFound when no category has id.
func (r *categoryRepo) GetByID(dbc dbctx.Context, id string) (*models.Category, error) {
	var c models.Category
	if err := dbc.DB(r.db).Where("id = ?", id).First(&c).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	c.ResolveRole(r.fallbackKey)
	return &c, nil
}

func (r *categoryRepo) ListByIDs(dbc dbctx.Context, ids []string) ([]*models.Category, error) {
	out := []*models.Category{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	r.resolve(out)
	return out, nil
}

func (r *categoryRepo) ListActiveByUser(dbc dbctx.Context, userID string) ([]*models.Category, error) {
	out := []*models.Category{}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id").
		Find(&out).Error; err != nil {
		return nil, err
	}
	r.resolve(out)
	return out, nil
}

func (r *categoryRepo) resolve(cats []*models.Category) {
	for _, c := range cats {
		c.ResolveRole(r.fallbackKey)
	}
}
