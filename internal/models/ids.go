package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (c *Category) BeforeCreate(*gorm.DB) error                  { ensureID(&c.ID); return nil }
func (k *CategoryKeyword) BeforeCreate(*gorm.DB) error           { ensureID(&k.ID); return nil }
func (d *CategoryTrainingData) BeforeCreate(*gorm.DB) error      { ensureID(&d.ID); return nil }
func (d *EntityQualityTrainingData) BeforeCreate(*gorm.DB) error { ensureID(&d.ID); return nil }
func (m *EntityQualityModel) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (f *EntityQualityFeature) BeforeCreate(*gorm.DB) error      { ensureID(&f.ID); return nil }
func (b *BlacklistedEntity) BeforeCreate(*gorm.DB) error         { ensureID(&b.ID); return nil }
func (e *LexiconEntry) BeforeCreate(*gorm.DB) error              { ensureID(&e.ID); return nil }
