package learning

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/keyword"
	"github.com/hyperjump/bunrui/internal/models"
)

// AddKeyword adds a keyword to a category of in.UserID or updates the weight of an existing one.
// A zero weight means BasePrimaryWeight. The fallback category never holds keywords.
func (e *Engine) AddKeyword(ctx context.Context, in *models.KeywordInput) (*models.CategoryKeyword, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Keyword = keyword.Normalize(in.Keyword)
	if in.Keyword == "" {
		return nil, fmt.Errorf("%w: keyword has no letters or digits", models.ErrInvalidInput)
	}
	dbc := dbctx.Context{Ctx: ctx}
	cat, err := e.repos.Categories.GetByID(dbc, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat.UserID != in.UserID {
		return nil, fmt.Errorf("category %s: %w", in.CategoryID, models.ErrNotFound)
	}
	if cat.IsFallback() {
		return nil, fmt.Errorf("%w: the fallback category does not hold keywords", models.ErrInvalidInput)
	}
	weight := in.Weight
	if weight == 0 {
		weight = e.cfg.BasePrimaryWeight
	}
	weight = e.clamp(weight)

	existing, err := e.repos.Keywords.Find(dbc, cat.ID, in.Keyword, in.Language)
	if err != nil {
		return nil, err
	}
	var row *models.CategoryKeyword
	if existing != nil {
		if err := e.repos.Keywords.UpdateWeight(dbc, existing.ID, weight, false); err != nil {
			return nil, err
		}
		existing.Weight = weight
		row = existing
	} else {
		row = &models.CategoryKeyword{
			CategoryID:      cat.ID,
			Keyword:         in.Keyword,
			LanguageCode:    in.Language,
			Weight:          weight,
			IsSystemDefault: in.IsSystemDefault,
		}
		if err := e.repos.Keywords.Create(dbc, row); err != nil {
			return nil, err
		}
	}
	e.invalidateWeights(ctx, map[string]bool{cat.ID: true}, in.Language)
	return row, nil
}

// DeleteKeyword removes a keyword owned by userID. System defaults are refused with ErrProtectedKeyword.
func (e *Engine) DeleteKeyword(ctx context.Context, userID, keywordID string) error {
	dbc := dbctx.Context{Ctx: ctx}
	row, err := e.repos.Keywords.GetByID(dbc, keywordID)
	if err != nil {
		return err
	}
	cat, err := e.repos.Categories.GetByID(dbc, row.CategoryID)
	if err != nil {
		return err
	}
	if cat.UserID != userID {
		return fmt.Errorf("keyword %s: %w", keywordID, models.ErrNotFound)
	}
	if row.IsSystemDefault {
		return models.ErrProtectedKeyword
	}
	if err := e.repos.Keywords.Delete(dbc, row.ID); err != nil {
		return err
	}
	if e.invalidator != nil {
		e.invalidator.Invalidate(ctx, cache.WeightsKey(row.CategoryID, row.LanguageCode))
	}
	e.logger.Info("keyword deleted", zap.String("keyword", row.Keyword), zap.String("category_id", row.CategoryID))
	return nil
}
