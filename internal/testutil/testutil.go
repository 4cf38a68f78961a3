// Package testutil provides database fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/storage"
)

// DB opens a migrated SQLite database in a temp dir, closed on cleanup.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.db")
	db, err := storage.Open(config.StorageConfig{Driver: "sqlite", DatabasePath: path}, false, zap.NewNop())
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close(db) })
	return db
}

// Tx begins a transaction that is rolled back on cleanup.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { _ = tx.Rollback().Error })
	return tx
}

// Category inserts an active category for userID with the given reference key.
func Category(tb testing.TB, db *gorm.DB, userID, name, refKey string) *models.Category {
	tb.Helper()
	c := &models.Category{UserID: userID, Name: name, ReferenceKey: refKey, IsActive: true}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("create category: %v", err)
	}
	c.ResolveRole("OTH")
	return c
}

// Keyword inserts a keyword weight.
func Keyword(tb testing.TB, db *gorm.DB, categoryID, term, lang string, weight float64) *models.CategoryKeyword {
	tb.Helper()
	k := &models.CategoryKeyword{CategoryID: categoryID, Keyword: term, LanguageCode: lang, Weight: weight}
	if err := db.Create(k).Error; err != nil {
		tb.Fatalf("create keyword: %v", err)
	}
	return k
}
