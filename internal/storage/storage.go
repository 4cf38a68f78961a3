// Package storage opens the relational database behind the engine.
package storage

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/models"
)

// Open connects to the configured database and migrates the schema.
func Open(cfg config.StorageConfig, debug bool, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gcfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if debug {
		gcfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		db, err = openSQLite(cfg.DatabasePath, gcfg)
	case "postgres":
		db, err = openPostgres(cfg.DSN, gcfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		_ = Close(db)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Debug("database ready", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

// oneActiveModelIndex allows at most one active entity-quality model per language.
const oneActiveModelIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_eq_model_one_active
	ON entity_quality_models (language) WHERE is_active`

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return db.Exec(oneActiveModelIndex).Error
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
