package repos

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestCategoryRepo_resolvesRole(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", zap.NewNop())
	dbc := dbctx.Context{Ctx: context.Background()}

	bank := testutil.Category(t, db, "u1", "Banking", "BNK")
	other := testutil.Category(t, db, "u1", "Other", "OTH")
	testutil.Category(t, db, "u2", "Legal", "LEG")

	got, err := set.Categories.GetByID(dbc, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsFallback() {
		t.Error("OTH category should resolve to fallback role")
	}
	got, err = set.Categories.GetByID(dbc, bank.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsFallback() {
		t.Error("BNK category should be regular")
	}

	cats, err := set.Categories.ListActiveByUser(dbc, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Errorf("ListActiveByUser = %d categories, want 2", len(cats))
	}

	if _, err := set.Categories.GetByID(dbc, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestKeywordRepo_findUpdateDelete(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}
	cat := testutil.Category(t, db, "u1", "Banking", "BNK")

	missing, err := set.Keywords.Find(dbc, cat.ID, "invoice", "en")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("Find on empty table should return nil")
	}

	k := testutil.Keyword(t, db, cat.ID, "invoice", "en", 1.0)
	if err := set.Keywords.UpdateWeight(dbc, k.ID, 2.5, true); err != nil {
		t.Fatal(err)
	}
	got, err := set.Keywords.Find(dbc, cat.ID, "invoice", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got.Weight != 2.5 || got.MatchCount != 1 || got.LastMatchedAt == nil {
		t.Errorf("after update: weight=%v count=%d last=%v", got.Weight, got.MatchCount, got.LastMatchedAt)
	}

	if other, _ := set.Keywords.Find(dbc, cat.ID, "invoice", "de"); other != nil {
		t.Error("language must be part of the keyword identity")
	}

	if err := set.Keywords.Delete(dbc, k.ID); err != nil {
		t.Fatal(err)
	}
	if err := set.Keywords.Delete(dbc, k.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestKeywordRepo_uniqueIdentity(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}
	cat := testutil.Category(t, db, "u1", "Banking", "BNK")
	testutil.Keyword(t, db, cat.ID, "invoice", "en", 1.0)

	dup := &models.CategoryKeyword{CategoryID: cat.ID, Keyword: "invoice", LanguageCode: "en", Weight: 2}
	if err := set.Keywords.Create(dbc, dup); err == nil {
		t.Error("expected unique constraint violation")
	}
}

func TestTrainingDataRepo_accuracy(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	rows := []*models.CategoryTrainingData{
		{SuggestedCategoryID: strPtr("a"), ActualCategoryID: "a", WasCorrect: true, LanguageCode: "en", UserID: "u"},
		{SuggestedCategoryID: strPtr("a"), ActualCategoryID: "b", WasCorrect: false, LanguageCode: "en", UserID: "u"},
		{SuggestedCategoryID: strPtr("a"), ActualCategoryID: "a", WasCorrect: true, LanguageCode: "en", UserID: "u"},
		{SuggestedCategoryID: nil, ActualCategoryID: "b", WasCorrect: false, LanguageCode: "en", UserID: "u"},
	}
	for _, r := range rows {
		if err := set.TrainingData.Create(dbc, r); err != nil {
			t.Fatal(err)
		}
	}
	acc, err := set.TrainingData.AccuracyBySuggested(dbc, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if acc["a"].Correct != 2 || acc["a"].Total != 3 {
		t.Errorf("accuracy[a] = %+v, want 2/3", acc["a"])
	}
	if _, ok := acc["b"]; ok {
		t.Error("category b was never suggested")
	}
}

func TestModelRepo_activeVersions(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	if m, err := set.Models.GetActive(dbc, "en"); err != nil || m != nil {
		t.Fatalf("GetActive on empty = %v, %v", m, err)
	}
	for _, v := range []string{"20260101T000000.000001Z", "20260101T000000.000002Z"} {
		if err := set.Models.DeactivateLanguage(dbc, "en"); err != nil {
			t.Fatal(err)
		}
		m := &models.EntityQualityModel{ModelVersion: v, Language: "en", ModelType: models.ModelLogisticRegression, IsActive: true}
		if err := set.Models.Create(dbc, m); err != nil {
			t.Fatal(err)
		}
	}
	n, err := set.Models.CountActive(dbc, "en")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("active models = %d, want 1", n)
	}
	active, err := set.Models.ActiveVersions(dbc)
	if err != nil {
		t.Fatal(err)
	}
	if active["en"] != "20260101T000000.000002Z" {
		t.Errorf("active version = %q", active["en"])
	}
	latest, err := set.Models.Latest(dbc, "en")
	if err != nil {
		t.Fatal(err)
	}
	if latest.ModelVersion != "20260101T000000.000002Z" {
		t.Errorf("latest = %q", latest.ModelVersion)
	}
}

func TestEntityTrainingRepo_existingValues(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	rows := []*models.EntityQualityTrainingData{
		{EntityValue: "Tel", EntityType: models.EntityPerson, Language: "de", Source: models.SourceUserBlacklist},
		{EntityValue: "Max Mustermann", EntityType: models.EntityPerson, Language: "de", Source: models.SourceManualLabel, IsValid: true},
		{EntityValue: "Fax", EntityType: models.EntityPerson, Language: "en", Source: models.SourceUserBlacklist},
	}
	if err := set.EntityTraining.CreateBatch(dbc, rows); err != nil {
		t.Fatal(err)
	}
	got, err := set.EntityTraining.ExistingValues(dbc, "de", models.SourceUserBlacklist)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got["Tel"] {
		t.Errorf("ExistingValues = %v", got)
	}
	langs, err := set.EntityTraining.Languages(dbc)
	if err != nil {
		t.Fatal(err)
	}
	if len(langs) != 2 || langs[0] != "de" || langs[1] != "en" {
		t.Errorf("Languages = %v", langs)
	}
}

func TestEntityConfigRepo_ensureDefaultsKeepsExisting(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	if err := set.EntityConfig.Save(dbc, models.EntityQualityConfig{ConfigKey: "base_score", ConfigValue: 0.7}); err != nil {
		t.Fatal(err)
	}
	defaults := []models.EntityQualityConfig{
		{ConfigKey: "base_score", ConfigValue: 0.5},
		{ConfigKey: "ner_weight", ConfigValue: 0.3},
	}
	if err := set.EntityConfig.EnsureDefaults(dbc, defaults); err != nil {
		t.Fatal(err)
	}
	rows, err := set.EntityConfig.List(dbc)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ConfigKey != "base_score" || rows[0].ConfigValue != 0.7 {
		t.Errorf("existing row overwritten: %+v", rows[0])
	}
}

func TestLexiconRepo_upsert(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}

	first := []*models.LexiconEntry{
		{Kind: models.LexiconSpelling, Language: "en", Term: "invoce", Replacement: "invoce-x"},
		{Kind: models.LexiconStopWord, Language: "en", Term: "the"},
	}
	if err := set.Lexicon.Upsert(dbc, first); err != nil {
		t.Fatal(err)
	}
	second := []*models.LexiconEntry{
		{Kind: models.LexiconSpelling, Language: "en", Term: "invoce", Replacement: "invoice"},
	}
	if err := set.Lexicon.Upsert(dbc, second); err != nil {
		t.Fatal(err)
	}
	rows, err := set.Lexicon.ListByLanguage(dbc, "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Kind == models.LexiconSpelling && r.Replacement != "invoice" {
			t.Errorf("replacement = %q, want invoice", r.Replacement)
		}
	}
}

func TestBlacklistRepo_listFiltersLanguage(t *testing.T) {
	db := testutil.DB(t)
	set := NewSet(db, "OTH", nil)
	dbc := dbctx.Context{Ctx: context.Background()}
	for _, lang := range []string{"en", "de", "de"} {
		if err := set.Blacklist.Create(dbc, &models.BlacklistedEntity{UserID: "u", EntityValue: "x" + lang, EntityType: models.EntityPerson, Language: lang}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := set.Blacklist.List(dbc, nil)
	if err != nil {
		t.Fatal(err)
	}
	de := "de"
	filtered, err := set.Blacklist.List(dbc, &de)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || len(filtered) != 2 {
		t.Errorf("all=%d filtered=%d", len(all), len(filtered))
	}
}
