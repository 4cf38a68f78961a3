package lexicon

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/repos"
)

// DBStore reads lexicons from the lexicon_entries table through an LRU cache.
type DBStore struct {
	repo        repos.LexiconRepo
	cache       *cache.LRU[*Lexicon]
	invalidator *cache.Invalidator
	logger      *zap.Logger
}

// NewDBStore creates a store and registers its cache with inv (may be nil).
func NewDBStore(repo repos.LexiconRepo, inv *cache.Invalidator, logger *zap.Logger) *DBStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DBStore{
		repo:        repo,
		cache:       cache.NewLRU[*Lexicon](32),
		invalidator: inv,
		logger:      logger,
	}
	if inv != nil {
		inv.Register(s.cache)
	}
	return s
}

// Lexicon implements Store.
func (s *DBStore) Lexicon(ctx context.Context, lang string) (*Lexicon, error) {
	key := cache.LexiconKey(lang)
	if l, ok := s.cache.Get(key); ok {
		return l, nil
	}
	entries, err := s.repo.ListByLanguage(dbctx.Context{Ctx: ctx}, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon %s: %w", lang, err)
	}
	l := FromEntries(lang, entries)
	s.cache.Set(key, l)
	return l, nil
}

// Seed upserts the entries of f and invalidates its language. Returns the number of entries written.
func (s *DBStore) Seed(ctx context.Context, f *File) (int, error) {
	entries := f.Entries()
	if err := s.repo.Upsert(dbctx.Context{Ctx: ctx}, entries); err != nil {
		return 0, fmt.Errorf("failed to seed lexicon %s: %w", f.Language, err)
	}
	s.invalidate(ctx, f.Language)
	s.logger.Info("lexicon seeded", zap.String("language", f.Language), zap.Int("entries", len(entries)))
	return len(entries), nil
}

// SeedPath loads a YAML lexicon file from disk and seeds it.
func (s *DBStore) SeedPath(ctx context.Context, path string) (int, error) {
	f, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	return s.Seed(ctx, f)
}

// SeedBuiltin seeds the embedded default lexicons.
func (s *DBStore) SeedBuiltin(ctx context.Context) (int, error) {
	files, err := BuiltinFiles()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range files {
		n, err := s.Seed(ctx, f)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// EnsureBuiltin seeds the embedded lexicons when the table is empty.
func (s *DBStore) EnsureBuiltin(ctx context.Context) error {
	langs, err := s.repo.Languages(dbctx.Context{Ctx: ctx})
	if err != nil {
		return err
	}
	if len(langs) > 0 {
		return nil
	}
	_, err = s.SeedBuiltin(ctx)
	return err
}

func (s *DBStore) invalidate(ctx context.Context, lang string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, cache.LexiconKey(lang))
		return
	}
	s.cache.Invalidate(cache.LexiconKey(lang))
}
