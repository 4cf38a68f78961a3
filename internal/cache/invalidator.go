package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Key prefixes shared by every cache that reacts to invalidation.
const (
	PrefixWeights      = "kw:"
	PrefixLexicon      = "lex:"
	PrefixModel        = "model:"
	PrefixEntityConfig = "eqcfg:"
)

// WeightsKey is the cache key of one category's weights in one language.
func WeightsKey(categoryID, lang string) string { return PrefixWeights + categoryID + ":" + lang }

// LexiconKey is the cache key of one language's lexicon.
func LexiconKey(lang string) string { return PrefixLexicon + lang }

// ModelKey is the cache key of one language's active model.
func ModelKey(lang string) string { return PrefixModel + lang }

// EntityConfigKey is the cache key of the heuristic entity scorer constants.
func EntityConfigKey() string { return PrefixEntityConfig + "all" }

// PrefixInvalidator is any cache that can drop keys by prefix.
type PrefixInvalidator interface {
	InvalidatePrefix(prefix string) int
}

// Bus broadcasts invalidated prefixes to other processes.
type Bus interface {
	Publish(ctx context.Context, prefixes ...string) error
	Subscribe(ctx context.Context, onInvalidate func(prefixes []string)) error
	Close() error
}

// Invalidator fans an invalidation out to every registered cache and to the bus.
type Invalidator struct {
	mu     sync.RWMutex
	caches []PrefixInvalidator
	bus    Bus
	logger *zap.Logger
}

// NewInvalidator returns an Invalidator. bus may be nil for a single process.
func NewInvalidator(bus Bus, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{bus: bus, logger: logger}
}

// Register adds a cache to receive invalidations.
func (i *Invalidator) Register(c PrefixInvalidator) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.caches = append(i.caches, c)
}

// Invalidate drops the prefixes locally and publishes them. Publish failures are logged only.
func (i *Invalidator) Invalidate(ctx context.Context, prefixes ...string) {
	if i == nil || len(prefixes) == 0 {
		return
	}
	i.invalidateLocal(prefixes)
	if i.bus == nil {
		return
	}
	if err := i.bus.Publish(ctx, prefixes...); err != nil {
		i.logger.Warn("cache invalidation publish failed", zap.Strings("prefixes", prefixes), zap.Error(err))
	}
}

// Start subscribes to remote invalidations until ctx is done. No-op without a bus.
func (i *Invalidator) Start(ctx context.Context) error {
	if i == nil || i.bus == nil {
		return nil
	}
	return i.bus.Subscribe(ctx, i.invalidateLocal)
}

func (i *Invalidator) invalidateLocal(prefixes []string) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, p := range prefixes {
		n := 0
		for _, c := range i.caches {
			n += c.InvalidatePrefix(p)
		}
		i.logger.Debug("cache invalidated", zap.String("prefix", p), zap.Int("entries", n))
	}
}
