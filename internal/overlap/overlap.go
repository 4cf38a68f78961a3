// Package overlap reports keywords that several of a user's categories compete for.
package overlap

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/repos"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// Severity thresholds on the relative difference of the two highest weights.
const (
	HighBelow  = 0.20
	MediumUpTo = 0.50
)

var severityRank = map[string]int{
	models.SeverityHigh:   0,
	models.SeverityMedium: 1,
	models.SeverityLow:    2,
}

// Detector finds overlapping keywords. It never writes.
type Detector struct {
	repos  *repos.Set
	logger *zap.Logger
}

func NewDetector(set *repos.Set, logger *zap.Logger) *Detector {
	return &Detector{repos: set, logger: utils.OrNop(logger)}
}

// Detect groups the keywords of userID's active categories in lang that occur in at least
// two categories. Results are ordered by severity, then category count descending, then keyword.
func (d *Detector) Detect(ctx context.Context, userID, lang string) ([]models.KeywordOverlap, error) {
	dbc := dbctx.Context{Ctx: ctx}
	lang = models.NormalizeLanguage(lang)
	cats, err := d.repos.Categories.ListActiveByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	out := []models.KeywordOverlap{}
	if len(cats) < 2 {
		return out, nil
	}
	names := make(map[string]string, len(cats))
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
		names[c.ID] = c.Name
	}
	rows, err := d.repos.Keywords.ListByCategories(dbc, ids, lang)
	if err != nil {
		return nil, err
	}

	groups := map[string]map[string]float64{}
	for _, row := range rows {
		kw := strings.ToLower(row.Keyword)
		g := groups[kw]
		if g == nil {
			g = map[string]float64{}
			groups[kw] = g
		}
		if w, ok := g[row.CategoryID]; !ok || row.Weight > w {
			g[row.CategoryID] = row.Weight
		}
	}

	for kw, g := range groups {
		if len(g) < 2 {
			continue
		}
		entries := make([]models.OverlapEntry, 0, len(g))
		for id, w := range g {
			entries = append(entries, models.OverlapEntry{CategoryID: id, CategoryName: names[id], Weight: w})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Weight != entries[j].Weight {
				return entries[i].Weight > entries[j].Weight
			}
			return entries[i].CategoryID < entries[j].CategoryID
		})
		diff := RelativeDifference(entries[0].Weight, entries[1].Weight)
		out = append(out, models.KeywordOverlap{
			Keyword:            kw,
			Severity:           Severity(diff),
			RelativeDifference: diff,
			Categories:         entries,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := severityRank[out[i].Severity], severityRank[out[j].Severity]
		if ri != rj {
			return ri < rj
		}
		if len(out[i].Categories) != len(out[j].Categories) {
			return len(out[i].Categories) > len(out[j].Categories)
		}
		return out[i].Keyword < out[j].Keyword
	})
	d.logger.Debug("keyword overlaps detected",
		zap.String("user_id", userID), zap.String("language", lang), zap.Int("overlaps", len(out)))
	return out, nil
}

// RelativeDifference returns |w1-w2|/w1 for the highest weight w1 and the runner-up w2.
func RelativeDifference(w1, w2 float64) float64 {
	if w1 == 0 {
		return 0
	}
	return math.Abs(w1-w2) / w1
}

// Severity classifies a relative difference.
func Severity(diff float64) string {
	switch {
	case diff < HighBelow:
		return models.SeverityHigh
	case diff <= MediumUpTo:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
