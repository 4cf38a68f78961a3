package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/core"
	"github.com/hyperjump/bunrui/internal/keyword"
	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/internal/storage"
)

// Components holds the opened resources behind the engine.
type Components struct {
	DB          *gorm.DB
	Corpus      *keyword.CorpusIndex
	Bus         *cache.RedisBus
	Invalidator *cache.Invalidator
	Lexicons    *lexicon.DBStore
	Engine      *core.Engine
}

// Close releases every opened resource.
func (c *Components) Close() {
	if c.Corpus != nil {
		_ = c.Corpus.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.DB != nil {
		_ = storage.Close(c.DB)
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	db, err := storage.Open(cfg.Storage, debug, logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{DB: db}

	if cfg.Cache.RedisAddr != "" {
		bus, err := cache.NewRedisBus(cfg.Cache.RedisAddr, cfg.Cache.RedisChannel, logger)
		if err != nil {
			// A single process stays consistent without the bus.
			logger.Warn("redis unavailable, cache invalidation is local only",
				zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			c.Bus = bus
		}
	}
	var bus cache.Bus
	if c.Bus != nil {
		bus = c.Bus
	}
	c.Invalidator = cache.NewInvalidator(bus, logger.Named("cache"))

	c.Lexicons = lexicon.NewDBStore(repos.NewSet(db, cfg.Learning.FallbackKey, logger).Lexicon, c.Invalidator, logger.Named("lexicon"))
	if err := c.Lexicons.EnsureBuiltin(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to seed lexicons: %w", err)
	}

	if cfg.Storage.CorpusIndexPath != "" {
		corpus, err := keyword.NewCorpusIndex(cfg.Storage.CorpusIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to open corpus index: %w", err)
		}
		c.Corpus = corpus
	}

	c.Engine = core.NewEngine(db, c.Corpus, c.Lexicons, cfg, c.Invalidator, logger)
	return c, nil
}
