package keyword

import (
	"context"
	"math"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
)

// ImportanceSource returns the highest learned weight each term holds for a user.
type ImportanceSource interface {
	MaxWeights(ctx context.Context, userID, lang string, terms []string) (map[string]float64, error)
}

// ExtractorConfig tunes keyword extraction.
type ExtractorConfig struct {
	MinKeywordLength int
	WeightMax        float64
	DefaultLimit     int
}

// Extractor scores candidate keywords by tf x idf x (1 + learned importance).
type Extractor struct {
	lexicons   lexicon.Store
	corpus     DocFrequencySource
	importance ImportanceSource
	cfg        ExtractorConfig
	logger     *zap.Logger
}

// NewExtractor creates an extractor. corpus and importance may be nil.
func NewExtractor(lexicons lexicon.Store, corpus DocFrequencySource, importance ImportanceSource, cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinKeywordLength <= 0 {
		cfg.MinKeywordLength = 3
	}
	if cfg.WeightMax <= 0 {
		cfg.WeightMax = 10
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	return &Extractor{lexicons: lexicons, corpus: corpus, importance: importance, cfg: cfg, logger: logger}
}

// Extract returns up to limit keywords of text ordered by relevance. userID may be empty,
// in which case learned importance is not applied. Corpus and importance lookups that fail
// are logged and skipped.
func (e *Extractor) Extract(ctx context.Context, text, lang, userID string, limit int) ([]models.Keyword, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	lex, err := e.lexicons.Lexicon(ctx, lang)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	total := 0
	for _, tok := range Tokenize(text, lex) {
		total++
		if !e.Keep(tok, lex) {
			continue
		}
		counts[tok]++
	}
	if len(counts) == 0 {
		return []models.Keyword{}, nil
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	idf := e.idf(ctx, lang, terms)
	importance := e.learnedImportance(ctx, userID, lang, terms)

	out := make([]models.Keyword, 0, len(terms))
	best := 0.0
	for _, t := range terms {
		score := float64(counts[t]) / float64(total) * idf[t] * (1 + importance[t])
		if score > best {
			best = score
		}
		out = append(out, models.Keyword{Term: t, Relevance: score})
	}
	for i := range out {
		out[i].Relevance /= best
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Keep reports whether tok passes the stop-word, length and numeric filters.
func (e *Extractor) Keep(tok string, lex *lexicon.Lexicon) bool {
	if utf8.RuneCountInString(tok) < e.cfg.MinKeywordLength || IsNumeric(tok) {
		return false
	}
	return lex == nil || !lex.IsStopWord(tok)
}

func (e *Extractor) idf(ctx context.Context, lang string, terms []string) map[string]float64 {
	out := make(map[string]float64, len(terms))
	for _, t := range terms {
		out[t] = 1
	}
	if e.corpus == nil {
		return out
	}
	n, df, err := e.corpus.DocFrequencies(ctx, lang, terms)
	if err != nil {
		e.logger.Warn("corpus statistics unavailable", zap.String("language", lang), zap.Error(err))
		return out
	}
	if n == 0 {
		return out
	}
	for _, t := range terms {
		out[t] = math.Log(float64(n+1)/float64(df[t]+1)) + 1
	}
	return out
}

func (e *Extractor) learnedImportance(ctx context.Context, userID, lang string, terms []string) map[string]float64 {
	out := make(map[string]float64, len(terms))
	if e.importance == nil || userID == "" {
		return out
	}
	weights, err := e.importance.MaxWeights(ctx, userID, lang, terms)
	if err != nil {
		e.logger.Warn("learned importance unavailable", zap.String("user_id", userID), zap.Error(err))
		return out
	}
	for t, w := range weights {
		out[t] = math.Min(1, w/e.cfg.WeightMax)
	}
	return out
}

// RepoImportance reads learned weights from the keyword tables.
type RepoImportance struct {
	Categories repos.CategoryRepo
	Keywords   repos.KeywordRepo
}

// MaxWeights implements ImportanceSource.
func (r RepoImportance) MaxWeights(ctx context.Context, userID, lang string, terms []string) (map[string]float64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cats, err := r.Categories.ListActiveByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	rows, err := r.Keywords.ListForKeywords(dbc, ids, terms, lang)
	if err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, k := range rows {
		if k.Weight > out[k.Keyword] {
			out[k.Keyword] = k.Weight
		}
	}
	return out, nil
}
