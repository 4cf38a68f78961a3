package lexicon

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/bunrui/internal/models"
)

//go:embed data/*.yaml
var builtinFS embed.FS

// File is the YAML layout of a lexicon file.
type File struct {
	Language    string            `yaml:"language"`
	StopWords   []string          `yaml:"stop_words"`
	FieldLabels []string          `yaml:"field_labels"`
	NGrams      []string          `yaml:"ngrams"`
	Spelling    map[string]string `yaml:"spelling"`
	Dictionary  []string          `yaml:"dictionary"`
}

// ParseFile decodes a lexicon file. The language code is required.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if strings.TrimSpace(f.Language) == "" {
		return nil, fmt.Errorf("lexicon file has no language")
	}
	f.Language = models.NormalizeLanguage(f.Language)
	return &f, nil
}

// LoadFile reads and parses a lexicon file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return ParseFile(data)
}

// Entries flattens the file into deduplicated lexicon rows.
func (f *File) Entries() []*models.LexiconEntry {
	seen := map[string]bool{}
	var out []*models.LexiconEntry
	add := func(kind, term, replacement string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if kind == models.LexiconNGram {
			term = strings.Join(strings.Fields(term), " ")
		}
		key := kind + "\x00" + term
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, &models.LexiconEntry{Kind: kind, Language: f.Language, Term: term, Replacement: replacement})
	}
	for _, w := range f.StopWords {
		add(models.LexiconStopWord, w, "")
	}
	for _, w := range f.FieldLabels {
		add(models.LexiconFieldLabel, w, "")
	}
	for _, w := range f.NGrams {
		add(models.LexiconNGram, w, "")
	}
	wrong := make([]string, 0, len(f.Spelling))
	for w := range f.Spelling {
		wrong = append(wrong, w)
	}
	sort.Strings(wrong)
	for _, w := range wrong {
		add(models.LexiconSpelling, w, strings.ToLower(strings.TrimSpace(f.Spelling[w])))
	}
	for _, w := range f.Dictionary {
		add(models.LexiconDictionary, w, "")
	}
	return out
}

// Lexicon builds the in-memory lexicon of the file.
func (f *File) Lexicon() *Lexicon {
	return FromEntries(f.Language, f.Entries())
}

// BuiltinFiles returns the embedded default lexicons.
func BuiltinFiles() ([]*File, error) {
	entries, err := builtinFS.ReadDir("data")
	if err != nil {
		return nil, err
	}
	var out []*File
	for _, e := range entries {
		data, err := builtinFS.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, err
		}
		f, err := ParseFile(data)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", e.Name(), err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Builtin returns a StaticStore over the embedded lexicons.
func Builtin() (StaticStore, error) {
	files, err := BuiltinFiles()
	if err != nil {
		return nil, err
	}
	s := StaticStore{}
	for _, f := range files {
		s[f.Language] = f.Lexicon()
	}
	return s, nil
}
