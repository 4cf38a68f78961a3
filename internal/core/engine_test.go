package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/bunrui/internal/cache"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/entityquality"
	"github.com/hyperjump/bunrui/internal/keyword"
	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/testutil"
)

type fixture struct {
	engine  *Engine
	corpus  *keyword.CorpusIndex
	banking *models.Category
	legal   *models.Category
	other   *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = ""

	corpus, err := keyword.NewMemCorpusIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = corpus.Close() })
	lexicons, err := lexicon.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		engine:  NewEngine(db, corpus, lexicons, cfg, cache.NewInvalidator(nil, nil), nil),
		corpus:  corpus,
		banking: testutil.Category(t, db, "u1", "Banking", "BNK"),
		legal:   testutil.Category(t, db, "u1", "Legal", "LEG"),
		other:   testutil.Category(t, db, "u1", "Other", "OTH"),
	}
}

func TestLearnThenPredict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.engine.LearnFromClassification(ctx, &models.LearnRequest{
		DocumentID:        "doc-1",
		Keywords:          []string{"invoice", "payment", "total"},
		Text:              "Invoice payment total",
		PrimaryCategoryID: f.banking.ID,
		UserID:            "u1",
	})
	if err != nil || !ok {
		t.Fatalf("Learn = %v, %v", ok, err)
	}

	pred, err := f.engine.PredictCategory(ctx, &models.PredictRequest{
		Text:     "invoice payment total",
		Keywords: []string{"Invoice", "payment", "total", "invoice"},
		UserID:   "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if pred.CategoryID == nil || *pred.CategoryID != f.banking.ID {
		t.Fatalf("predicted %v, want banking", pred.CategoryID)
	}
	if pred.Confidence < 0.99 {
		t.Errorf("confidence = %v, want ~1", pred.Confidence)
	}
	if len(pred.Keywords) != 3 {
		t.Errorf("keywords = %v, want deduplicated", pred.Keywords)
	}

	restricted, err := f.engine.PredictCategory(ctx, &models.PredictRequest{
		Keywords:    []string{"invoice"},
		UserID:      "u1",
		CategoryIDs: []string{f.legal.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if restricted.CategoryID != nil {
		t.Errorf("restricted prediction = %v, want nil", *restricted.CategoryID)
	}
}

func TestLearnFromText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.engine.LearnFromClassification(ctx, &models.LearnRequest{
		DocumentID:        "doc-2",
		Text:              "Contract court lawyer agreement",
		PrimaryCategoryID: f.legal.ID,
		UserID:            "u1",
	})
	if err != nil || !ok {
		t.Fatalf("Learn = %v, %v", ok, err)
	}
	row, err := f.engine.Repos().Keywords.Find(dbctx.Context{}, f.legal.ID, "contract", "en")
	if err != nil || row == nil {
		t.Fatalf("extracted keyword not learned: %v, %v", row, err)
	}
	n, err := f.corpus.DocCount()
	if err != nil || n != 1 {
		t.Errorf("corpus documents = %d, %v; want 1", n, err)
	}
}

func TestLearn_fallbackIsNoop(t *testing.T) {
	f := newFixture(t)
	ok, err := f.engine.LearnFromClassification(context.Background(), &models.LearnRequest{
		Keywords:          []string{"invoice", "payment", "total"},
		PrimaryCategoryID: f.other.ID,
		UserID:            "u1",
	})
	if err != nil || ok {
		t.Errorf("Learn = %v, %v; want false, nil", ok, err)
	}
}

func TestClassifyTextIndexesCorpus(t *testing.T) {
	f := newFixture(t)
	pred, err := f.engine.ClassifyText(context.Background(), &models.PredictRequest{
		DocumentID: "doc-3",
		Text:       "Quarterly rent statement",
		UserID:     "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if pred.CategoryID != nil {
		t.Errorf("nothing learned yet, got %v", *pred.CategoryID)
	}
	if n, _ := f.corpus.DocCount(); n != 1 {
		t.Errorf("corpus documents = %d, want 1", n)
	}
}

func seedEntities(t *testing.T, f *fixture, perClass int) {
	t.Helper()
	var rows []*models.EntityQualityTrainingData
	for i := 0; i < perClass; i++ {
		for _, valid := range []bool{true, false} {
			var v entityquality.Vector
			v[entityquality.FWordCount] = 2
			v[entityquality.FNERConfidence] = 0.1 + float64(i%10)*0.02
			if valid {
				v[entityquality.FNERConfidence] += 0.6
				v[entityquality.FDictValidRatio] = 1
				v[entityquality.FTitleCase] = 1
			} else {
				v[entityquality.FRepetitiveChar] = 1
				v[entityquality.FFieldLabelSuffix] = 1
			}
			raw, err := v.JSON()
			if err != nil {
				t.Fatal(err)
			}
			rows = append(rows, &models.EntityQualityTrainingData{
				EntityValue: fmt.Sprintf("e-%t-%d", valid, i),
				EntityType:  models.EntityPerson,
				Language:    "en",
				IsValid:     valid,
				Features:    raw,
				Source:      models.SourceManualLabel,
			})
		}
	}
	if err := f.engine.Repos().EntityTraining.CreateBatch(dbctx.Context{}, rows); err != nil {
		t.Fatal(err)
	}
}

func TestScoreEntity_heuristicThenModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &models.EntityRequest{Value: "John Smith", EntityType: "person", Language: "en-GB", NERConfidence: 0.9}

	got, err := f.engine.ScoreEntity(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != models.ScoreSourceHeuristic || got.Confidence <= 0.5 {
		t.Errorf("heuristic score = %+v", got)
	}
	if got.Features["is_person"] != 1 {
		t.Errorf("features = %v", got.Features)
	}

	if v, err := f.engine.TrainModel(ctx, "en", ""); err != nil || v != nil {
		t.Fatalf("TrainModel on empty corpus = %v, %v; want nil, nil", v, err)
	}
	seedEntities(t, f, 60)
	version, err := f.engine.TrainModel(ctx, "en", models.ModelLogisticRegression)
	if err != nil || version == nil {
		t.Fatalf("TrainModel = %v, %v", version, err)
	}

	got, err = f.engine.ScoreEntity(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != models.ScoreSourceML {
		t.Errorf("source = %s, want ml", got.Source)
	}
	if got.Confidence < 0 || got.Confidence > 1 {
		t.Errorf("confidence = %v out of range", got.Confidence)
	}

	status, err := f.engine.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.ActiveModels["en"] != *version || status.EntitySamples != 120 || !status.LearningEnabled {
		t.Errorf("status = %+v", status)
	}

	list, err := f.engine.Models(ctx, "EN", 0)
	if err != nil || len(list) != 1 {
		t.Errorf("Models = %v, %v", list, err)
	}
}

func TestScoreEntity_invalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ScoreEntity(context.Background(), &models.EntityRequest{Value: " "})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSyncBlacklistAndOverlaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	row := &models.BlacklistedEntity{UserID: "u1", EntityValue: "Tel Nr", EntityType: models.EntityPerson, Language: "en"}
	if err := f.engine.Repos().Blacklist.Create(dbctx.Context{}, row); err != nil {
		t.Fatal(err)
	}
	n, err := f.engine.SyncBlacklist(ctx, nil)
	if err != nil || n != 1 {
		t.Errorf("SyncBlacklist = %d, %v; want 1", n, err)
	}

	for _, c := range []*models.Category{f.banking, f.legal} {
		if _, err := f.engine.AddKeyword(ctx, &models.KeywordInput{UserID: "u1", CategoryID: c.ID, Keyword: "bank", Weight: 3}); err != nil {
			t.Fatal(err)
		}
	}
	overlaps, err := f.engine.DetectOverlaps(ctx, "u1", "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(overlaps) != 1 || overlaps[0].Severity != models.SeverityHigh {
		t.Errorf("overlaps = %+v", overlaps)
	}
	if _, err := f.engine.DetectOverlaps(ctx, "", "en"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
