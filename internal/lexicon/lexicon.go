// Package lexicon provides the per-language word lists used by keyword extraction,
// learning and entity feature extraction.
package lexicon

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/hyperjump/bunrui/internal/models"
)

// Lexicon holds the word lists of one language. All terms are lowercase.
type Lexicon struct {
	Language    string
	StopWords   map[string]struct{}
	FieldLabels map[string]struct{}
	// NGrams are multi-word phrases kept together by the tokenizer, longest first.
	NGrams     []string
	Spelling   map[string]string
	Dictionary map[string]struct{}
}

// Store returns the lexicon of a language. Unknown languages yield an empty lexicon.
type Store interface {
	Lexicon(ctx context.Context, lang string) (*Lexicon, error)
}

// New returns an empty lexicon for lang.
func New(lang string) *Lexicon {
	return &Lexicon{
		Language:    lang,
		StopWords:   map[string]struct{}{},
		FieldLabels: map[string]struct{}{},
		Spelling:    map[string]string{},
		Dictionary:  map[string]struct{}{},
	}
}

// FromEntries builds a lexicon from stored entries.
func FromEntries(lang string, entries []*models.LexiconEntry) *Lexicon {
	l := New(lang)
	for _, e := range entries {
		l.add(e.Kind, e.Term, e.Replacement)
	}
	l.sortNGrams()
	return l
}

func (l *Lexicon) add(kind, term, replacement string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return
	}
	switch kind {
	case models.LexiconStopWord:
		l.StopWords[term] = struct{}{}
	case models.LexiconFieldLabel:
		l.FieldLabels[term] = struct{}{}
	case models.LexiconNGram:
		l.NGrams = append(l.NGrams, strings.Join(strings.Fields(term), " "))
	case models.LexiconSpelling:
		if r := strings.ToLower(strings.TrimSpace(replacement)); r != "" {
			l.Spelling[term] = r
		}
	case models.LexiconDictionary:
		l.Dictionary[term] = struct{}{}
	}
}

func (l *Lexicon) sortNGrams() {
	sort.SliceStable(l.NGrams, func(i, j int) bool {
		ni, nj := len(strings.Fields(l.NGrams[i])), len(strings.Fields(l.NGrams[j]))
		if ni != nj {
			return ni > nj
		}
		return l.NGrams[i] < l.NGrams[j]
	})
}

// IsStopWord reports whether word (any case) is a stop-word.
func (l *Lexicon) IsStopWord(word string) bool {
	_, ok := l.StopWords[strings.ToLower(word)]
	return ok
}

// InDictionary reports whether word (any case) is a known dictionary word.
func (l *Lexicon) InDictionary(word string) bool {
	_, ok := l.Dictionary[strings.ToLower(word)]
	return ok
}

// Correct returns the spelling correction of word, or word itself.
func (l *Lexicon) Correct(word string) string {
	if r, ok := l.Spelling[word]; ok {
		return r
	}
	return word
}

// HasFieldLabelSuffix reports whether the last word of value is a field label such as "Tel" or "Nr".
// Trailing punctuation like "Tel." or "Nr:" is ignored.
func (l *Lexicon) HasFieldLabelSuffix(value string) bool {
	words := strings.Fields(value)
	if len(words) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimRightFunc(words[len(words)-1], func(r rune) bool {
		return unicode.IsPunct(r) && r != '-'
	}))
	_, ok := l.FieldLabels[last]
	return ok
}

// StaticStore serves fixed lexicons, falling back to an empty one.
type StaticStore map[string]*Lexicon

// Lexicon implements Store.
func (s StaticStore) Lexicon(_ context.Context, lang string) (*Lexicon, error) {
	if l, ok := s[lang]; ok {
		return l, nil
	}
	return New(lang), nil
}
