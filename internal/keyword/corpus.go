// Package keyword extracts weighted candidate keywords from document text.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/bunrui/internal/models"
)

// DocFrequencySource reports how many documents of a language contain each term.
type DocFrequencySource interface {
	DocFrequencies(ctx context.Context, lang string, terms []string) (total int, df map[string]int, err error)
}

// CorpusIndex is a bleve index of document text used for IDF statistics.
type CorpusIndex struct {
	index bleve.Index
}

type corpusDoc struct {
	Content  string `json:"content"`
	Language string `json:"language"`
	UserID   string `json:"user_id"`
}

func corpusMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	docMapping.AddFieldMappingsAt("content", text)
	docMapping.AddFieldMappingsAt("language", bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("user_id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// NewCorpusIndex creates or opens a corpus index at path.
func NewCorpusIndex(path string) (*CorpusIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open corpus index: %w", openErr)
		}
		return &CorpusIndex{index: index}, nil
	}
	index, err := bleve.New(path, corpusMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create corpus index: %w", err)
	}
	return &CorpusIndex{index: index}, nil
}

// NewMemCorpusIndex creates an in-memory corpus index.
func NewMemCorpusIndex() (*CorpusIndex, error) {
	index, err := bleve.NewMemOnly(corpusMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create corpus index: %w", err)
	}
	return &CorpusIndex{index: index}, nil
}

// Index adds or replaces a document.
func (c *CorpusIndex) Index(_ context.Context, doc *models.Document) error {
	if doc == nil || doc.ID == "" || strings.TrimSpace(doc.Content) == "" {
		return nil
	}
	return c.index.Index(doc.ID, corpusDoc{
		Content:  strings.ToLower(doc.Content),
		Language: doc.Language,
		UserID:   doc.UserID,
	})
}

// Delete removes a document.
func (c *CorpusIndex) Delete(_ context.Context, id string) error {
	return c.index.Delete(id)
}

// DocCount returns the total number of indexed documents.
func (c *CorpusIndex) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the index.
func (c *CorpusIndex) Close() error {
	return c.index.Close()
}

// DocFrequencies returns the number of documents in lang and, per term, how many contain it.
// Multi-word terms are matched as phrases.
func (c *CorpusIndex) DocFrequencies(ctx context.Context, lang string, terms []string) (int, map[string]int, error) {
	langQuery := bleve.NewTermQuery(lang)
	langQuery.SetField("language")

	total, err := c.count(ctx, langQuery)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count corpus documents: %w", err)
	}
	df := make(map[string]int, len(terms))
	if total == 0 {
		return 0, df, nil
	}
	for _, term := range terms {
		var tq blevequery.Query
		if strings.Contains(term, " ") {
			pq := bleve.NewMatchPhraseQuery(term)
			pq.SetField("content")
			tq = pq
		} else {
			q := bleve.NewTermQuery(term)
			q.SetField("content")
			tq = q
		}
		n, err := c.count(ctx, bleve.NewConjunctionQuery(langQuery, tq))
		if err != nil {
			return 0, nil, fmt.Errorf("failed to count term %q: %w", term, err)
		}
		df[term] = n
	}
	return total, df, nil
}

func (c *CorpusIndex) count(ctx context.Context, q blevequery.Query) (int, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, err
	}
	return int(res.Total), nil
}
