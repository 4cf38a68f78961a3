package lexicon

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestParseFile(t *testing.T) {
	data := []byte(`
language: EN-gb
stop_words: [The, and, the]
field_labels: [Tel, nr]
ngrams: ["due   date", "value added tax"]
spelling:
  Invoce: Invoice
dictionary: [invoice]
`)
	f, err := ParseFile(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Language != "en" {
		t.Errorf("language = %q, want en", f.Language)
	}
	entries := f.Entries()
	if len(entries) != 8 {
		t.Errorf("entries = %d, want 8 (duplicate stop-word dropped)", len(entries))
	}

	l := f.Lexicon()
	if !l.IsStopWord("THE") || l.IsStopWord("invoice") {
		t.Error("stop-word lookup is wrong")
	}
	if l.Correct("invoce") != "invoice" {
		t.Errorf("Correct(invoce) = %q", l.Correct("invoce"))
	}
	if l.Correct("payment") != "payment" {
		t.Error("unknown words must pass through")
	}
	if len(l.NGrams) != 2 || l.NGrams[0] != "value added tax" || l.NGrams[1] != "due date" {
		t.Errorf("ngrams = %v, want longest first and whitespace-normalized", l.NGrams)
	}
	if !l.InDictionary("Invoice") {
		t.Error("dictionary lookup should be case-insensitive")
	}
}

func TestParseFile_requiresLanguage(t *testing.T) {
	if _, err := ParseFile([]byte("stop_words: [a]\n")); err == nil {
		t.Error("expected error for missing language")
	}
}

func TestHasFieldLabelSuffix(t *testing.T) {
	l := New("de")
	l.FieldLabels["tel"] = struct{}{}
	l.FieldLabels["nr"] = struct{}{}
	tests := []struct {
		value string
		want  bool
	}{
		{"Max Mustermann Tel", true},
		{"Max Mustermann Tel.", true},
		{"Kunden Nr:", true},
		{"Telekom", false},
		{"", false},
		{"Max Mustermann", false},
	}
	for _, tt := range tests {
		if got := l.HasFieldLabelSuffix(tt.value); got != tt.want {
			t.Errorf("HasFieldLabelSuffix(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestBuiltin(t *testing.T) {
	store, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}
	for _, lang := range []string{"en", "de"} {
		l, err := store.Lexicon(context.Background(), lang)
		if err != nil {
			t.Fatal(err)
		}
		if len(l.StopWords) == 0 || len(l.FieldLabels) == 0 || len(l.Dictionary) == 0 {
			t.Errorf("builtin %s lexicon is incomplete", lang)
		}
	}
	en, _ := store.Lexicon(context.Background(), "en")
	if !en.IsStopWord("the") || !en.HasFieldLabelSuffix("John Smith Tel") {
		t.Error("builtin en lexicon missing expected entries")
	}
	fr, _ := store.Lexicon(context.Background(), "fr")
	if fr == nil || len(fr.StopWords) != 0 {
		t.Error("unknown language should yield an empty lexicon")
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }
