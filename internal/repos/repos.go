// Package repos holds the gorm repositories of the engine's tables.
// Every call takes a dbctx.Context and runs inside its transaction when one is set.
package repos

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Set groups every repository over one database.
type Set struct {
	DB             *gorm.DB
	Categories     CategoryRepo
	Keywords       KeywordRepo
	TrainingData   TrainingDataRepo
	EntityTraining EntityTrainingRepo
	Models         ModelRepo
	Features       FeatureRepo
	EntityConfig   EntityConfigRepo
	Blacklist      BlacklistRepo
	Lexicon        LexiconRepo
}

// NewSet builds all repositories. fallbackKey resolves category roles on load.
func NewSet(db *gorm.DB, fallbackKey string, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{
		DB:             db,
		Categories:     NewCategoryRepo(db, fallbackKey, logger),
		Keywords:       NewKeywordRepo(db, logger),
		TrainingData:   NewTrainingDataRepo(db, logger),
		EntityTraining: NewEntityTrainingRepo(db, logger),
		Models:         NewModelRepo(db, logger),
		Features:       NewFeatureRepo(db, logger),
		EntityConfig:   NewEntityConfigRepo(db, logger),
		Blacklist:      NewBlacklistRepo(db, logger),
		Lexicon:        NewLexiconRepo(db, logger),
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
