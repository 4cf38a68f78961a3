package entityquality

import (
	"errors"
	"testing"

	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/pkg/utils"
)

func testLexicon() *lexicon.Lexicon {
	lex := lexicon.New("en")
	for _, w := range []string{"john", "smith", "street", "bank"} {
		lex.Dictionary[w] = struct{}{}
	}
	for _, w := range []string{"the", "of", "and"} {
		lex.StopWords[w] = struct{}{}
	}
	for _, w := range []string{"tel", "nr"} {
		lex.FieldLabels[w] = struct{}{}
	}
	return lex
}

func TestFeatureNamesCanonical(t *testing.T) {
	if len(FeatureNames) != 15 {
		t.Fatalf("len(FeatureNames) = %d, want 15", len(FeatureNames))
	}
	if FeatureNames[FRepetitiveChar] != "repetitive_char_score" || FeatureNames[FNERConfidence] != "spacy_confidence" {
		t.Errorf("feature index constants out of order")
	}
	seen := map[string]bool{}
	for _, n := range FeatureNames {
		if seen[n] {
			t.Errorf("duplicate feature %s", n)
		}
		seen[n] = true
	}
}

func TestExtract_person(t *testing.T) {
	v := Extract(testLexicon(), "  John Smith ", "person", 0.87)
	want := map[int]float64{
		FLength:           10,
		FWordCount:        2,
		FVowelRatio:       2.0 / 9.0,
		FConsonantRatio:   7.0 / 9.0,
		FDigitRatio:       0,
		FSpecialCharRatio: 0,
		FRepetitiveChar:   0,
		FDictValidRatio:   1,
		FStopWordRatio:    0,
		FFieldLabelSuffix: 0,
		FTitleCase:        1,
		FNERConfidence:    0.87,
		FIsPerson:         1,
		FIsOrganization:   0,
		FIsLocation:       0,
	}
	for i, w := range want {
		if !utils.ApproxEqual(v[i], w, 1e-9) {
			t.Errorf("%s = %v, want %v", FeatureNames[i], v[i], w)
		}
	}
}

func TestExtract_junk(t *testing.T) {
	v := Extract(testLexicon(), "of the Tel.", "LOCATION", 0.4)
	if v[FFieldLabelSuffix] != 1 {
		t.Error("expected field label suffix")
	}
	if !utils.ApproxEqual(v[FStopWordRatio], 2.0/3.0, 1e-9) {
		t.Errorf("stop word ratio = %v", v[FStopWordRatio])
	}
	if v[FTitleCase] != 0 || v[FIsLocation] != 1 {
		t.Errorf("title_case = %v is_location = %v", v[FTitleCase], v[FIsLocation])
	}
	if v[FSpecialCharRatio] <= 0 {
		t.Error("expected special chars")
	}
}

func TestLongestRunBuckets(t *testing.T) {
	tests := []struct {
		in    string
		run   int
		score float64
	}{
		{"", 0, 0},
		{"Anna", 2, 0},
		{"Abc", 1, 0},
		{"Hello", 2, 0},
		{"Aaab", 3, 0.5},
		{"xxxxx", 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			run := LongestRun(tt.in)
			if run != tt.run {
				t.Errorf("LongestRun = %d, want %d", run, tt.run)
			}
			if got := Extract(nil, tt.in, "", 0)[FRepetitiveChar]; got != tt.score {
				t.Errorf("repetitive_char_score = %v, want %v", got, tt.score)
			}
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := Extract(testLexicon(), "Bank Street 12", models.EntityAddress, 0.5)
	raw, err := v.JSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := VectorFromJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != v {
		t.Errorf("round trip = %v, want %v", got, v)
	}
}

func TestVectorFromJSON_invalid(t *testing.T) {
	for _, raw := range []string{``, `{"length": 3}`, `[1,2,3]`, `{"length": "x"}`} {
		if _, err := VectorFromJSON([]byte(raw)); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("VectorFromJSON(%q) err = %v, want ErrInvalidInput", raw, err)
		}
	}
}

func TestHeuristicScore(t *testing.T) {
	lex := testLexicon()
	p := DefaultParams()
	score := func(value, typ string, ner float64) float64 {
		return HeuristicScore(p, value, typ, Extract(lex, value, typ, ner))
	}

	if got := score("John Smith", models.EntityPerson, 0.9); got != 1 {
		t.Errorf("clean person = %v, want 1", got)
	}
	if got := score("xxxx Tel", models.EntityPerson, 0.9); got != 0 {
		t.Errorf("junk person = %v, want 0", got)
	}
	plain := score("Acme Widgets", models.EntityOrganization, 0.5)
	legal := score("Acme Widgets GmbH", models.EntityOrganization, 0.5)
	if legal <= plain {
		t.Errorf("legal form bonus missing: %v <= %v", legal, plain)
	}
	digits := score("J0hn Sm1th", models.EntityPerson, 0.5)
	if digits >= score("John Smith", models.EntityPerson, 0.5) {
		t.Errorf("digits in a name should be penalized")
	}
	address := score("Bank Street 12", models.EntityAddress, 0.5)
	noNumber := score("Bank Street", models.EntityAddress, 0.5)
	if address <= noNumber {
		t.Errorf("street number bonus missing: %v <= %v", address, noNumber)
	}
}

func TestMixedCaseChaos(t *testing.T) {
	tests := map[string]bool{
		"hElLo":     true,
		"McDonald":  false,
		"iPhone":    false,
		"John":      false,
		"aBcDeF gh": true,
	}
	for in, want := range tests {
		if got := MixedCaseChaos(in); got != want {
			t.Errorf("MixedCaseChaos(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHasLegalForm(t *testing.T) {
	tests := map[string]bool{
		"Acme GmbH":     true,
		"Acme Ltd.":     true,
		"Example e.V.":  true,
		"GmbH":          false,
		"Acme Holdings": false,
	}
	for in, want := range tests {
		if got := HasLegalForm(in); got != want {
			t.Errorf("HasLegalForm(%q) = %v, want %v", in, got, want)
		}
	}
}
