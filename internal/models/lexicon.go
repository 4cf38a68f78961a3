package models

// Lexicon entry kinds.
const (
	LexiconStopWord   = "stop_word"
	LexiconFieldLabel = "field_label"
	LexiconNGram      = "ngram"
	LexiconSpelling   = "spelling"
	LexiconDictionary = "dictionary"
)

// LexiconKinds lists every lexicon entry kind.
var LexiconKinds = []string{LexiconStopWord, LexiconFieldLabel, LexiconNGram, LexiconSpelling, LexiconDictionary}

// LexiconEntry is one per-language lexicon term. Replacement is set for spelling corrections.
type LexiconEntry struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Kind        string `gorm:"column:kind;size:16;not null;uniqueIndex:idx_lexicon_entry,priority:1" json:"kind"`
	Language    string `gorm:"column:language;size:8;not null;uniqueIndex:idx_lexicon_entry,priority:2" json:"language"`
	Term        string `gorm:"column:term;size:255;not null;uniqueIndex:idx_lexicon_entry,priority:3" json:"term"`
	Replacement string `gorm:"column:replacement;size:255" json:"replacement,omitempty"`
}

func (LexiconEntry) TableName() string { return "lexicon_entries" }

// All returns every table model, in migration order.
func All() []any {
	return []any{
		&Category{},
		&CategoryKeyword{},
		&CategoryTrainingData{},
		&EntityQualityTrainingData{},
		&EntityQualityModel{},
		&EntityQualityFeature{},
		&EntityQualityConfig{},
		&BlacklistedEntity{},
		&LexiconEntry{},
	}
}
