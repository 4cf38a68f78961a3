package repos

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
)

// LexiconRepo stores per-language lexicon entries.
type LexiconRepo interface {
	ListByLanguage(dbc dbctx.Context, lang string) ([]*models.LexiconEntry, error)
	// Upsert inserts entries, updating the replacement of existing (kind, language, term) rows.
	Upsert(dbc dbctx.Context, entries []*models.LexiconEntry) error
	Languages(dbc dbctx.Context) ([]string, error)
}

type lexiconRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewLexiconRepo(db *gorm.DB, logger *zap.Logger) LexiconRepo {
	return &lexiconRepo{db: db, log: logger.With(zap.String("repo", "LexiconRepo"))}
}

func (r *lexiconRepo) ListByLanguage(dbc dbctx.Context, lang string) ([]*models.LexiconEntry, error) {
	out := []*models.LexiconEntry{}
	if err := dbc.DB(r.db).Where("language = ?", lang).Order("kind, term").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lexiconRepo) Upsert(dbc dbctx.Context, entries []*models.LexiconEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "language"}, {Name: "term"}},
			DoUpdates: clause.AssignmentColumns([]string{"replacement"}),
		}).
		CreateInBatches(entries, 200).Error
}

func (r *lexiconRepo) Languages(dbc dbctx.Context) ([]string, error) {
	var out []string
	err := dbc.DB(r.db).Model(&models.LexiconEntry{}).Distinct("language").Order("language").Pluck("language", &out).Error
	return out, err
}
