// Package cli renders bunrui results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", models.ErrInvalidInput, s)
	}
}

func write(w io.Writer, format OutputFormat, v any, text func()) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

// WritePrediction writes a category prediction. names maps category ids to display names.
func WritePrediction(w io.Writer, p *models.Prediction, names map[string]string, format OutputFormat) error {
	return write(w, format, p, func() {
		if p.CategoryID == nil {
			fmt.Fprintf(w, "No confident category (best confidence %.2f)\n", p.Confidence)
		} else {
			fmt.Fprintf(w, "Category: %s (confidence %.2f)\n", label(names, *p.CategoryID), p.Confidence)
		}
		if len(p.Keywords) > 0 {
			fmt.Fprintf(w, "Keywords: %s\n", utils.Truncate(strings.Join(models.Terms(p.Keywords), ", "), 120))
		}
		for _, s := range p.Scores {
			fmt.Fprintf(w, "  %-24s score %.3f  accuracy x%.2f\n", label(names, s.CategoryID), s.Score, s.Multiplier)
		}
	})
}

// WriteOverlaps writes keyword overlaps, one block per keyword.
func WriteOverlaps(w io.Writer, overlaps []models.KeywordOverlap, format OutputFormat) error {
	return write(w, format, overlaps, func() {
		if len(overlaps) == 0 {
			fmt.Fprintln(w, "No overlapping keywords")
			return
		}
		for _, o := range overlaps {
			fmt.Fprintf(w, "[%s] %s (difference %.0f%%)\n", strings.ToUpper(o.Severity), o.Keyword, o.RelativeDifference*100)
			for _, c := range o.Categories {
				fmt.Fprintf(w, "    %-24s %.2f\n", c.CategoryName, c.Weight)
			}
		}
	})
}

// WriteEntityScore writes an entity confidence and, in text mode, its features in canonical order.
func WriteEntityScore(w io.Writer, s *models.EntityScore, featureOrder []string, format OutputFormat) error {
	return write(w, format, s, func() {
		fmt.Fprintf(w, "Confidence: %.3f (%s)\n", s.Confidence, s.Source)
		for _, name := range featureOrder {
			if v, ok := s.Features[name]; ok {
				fmt.Fprintf(w, "  %-24s %.3f\n", name, v)
			}
		}
	})
}

// WriteVersions writes the outcome of training one or more languages.
// A nil version means the language did not pass the data gates.
func WriteVersions(w io.Writer, versions map[string]*string, format OutputFormat) error {
	return write(w, format, versions, func() {
		if len(versions) == 0 {
			fmt.Fprintln(w, "No training data")
			return
		}
		langs := make([]string, 0, len(versions))
		for lang := range versions {
			langs = append(langs, lang)
		}
		slices.Sort(langs)
		for _, lang := range langs {
			if v := versions[lang]; v != nil {
				fmt.Fprintf(w, "%s: trained %s\n", lang, *v)
			} else {
				fmt.Fprintf(w, "%s: skipped (insufficient data)\n", lang)
			}
		}
	})
}

// WriteStatus writes stored data counts and active models.
func WriteStatus(w io.Writer, s *models.Status, format OutputFormat) error {
	return write(w, format, s, func() {
		fmt.Fprintf(w, "Learning enabled:  %t\n", s.LearningEnabled)
		fmt.Fprintf(w, "Keywords:          %d\n", s.Keywords)
		fmt.Fprintf(w, "Training events:   %d\n", s.TrainingEvents)
		fmt.Fprintf(w, "Entity samples:    %d\n", s.EntitySamples)
		fmt.Fprintf(w, "Corpus documents:  %d\n", s.CorpusDocuments)
		fmt.Fprintf(w, "Disk usage:        %s\n", FormatBytes(s.DiskUsageBytes))
		if len(s.ActiveModels) == 0 {
			fmt.Fprintln(w, "Active models:     none")
			return
		}
		fmt.Fprintln(w, "Active models:")
		langs := make([]string, 0, len(s.ActiveModels))
		for lang := range s.ActiveModels {
			langs = append(langs, lang)
		}
		slices.Sort(langs)
		for _, lang := range langs {
			fmt.Fprintf(w, "  %s  %s\n", lang, s.ActiveModels[lang])
		}
	})
}

func label(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
