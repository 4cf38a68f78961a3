// Package extract turns document files into plain text for classification.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/bunrui/internal/models"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatODT  Format = "odt"
	FormatRTF  Format = "rtf"
	FormatText Format = "text"
)

// DefaultMaxBytes caps the size of a file handed to Extract.
const DefaultMaxBytes = 32 << 20

var extensions = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".xlsx": FormatXLSX,
	".odt":  FormatODT,
	".rtf":  FormatRTF,
	".txt":  FormatText,
	".md":   FormatText,
	".csv":  FormatText,
	".eml":  FormatText,
}

var decoders = map[Format]func([]byte) (string, error){
	FormatPDF:  pdfText,
	FormatDOCX: docxText,
	FormatXLSX: sheetText,
	FormatODT:  catText,
	FormatRTF:  catText,
	FormatText: func(b []byte) (string, error) { return string(b), nil },
}

// FormatOf returns the format for a file name based on its extension.
func FormatOf(path string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Extensions lists the supported file extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Extractor reads document files and returns normalized text.
type Extractor struct {
	maxBytes int64
}

// NewExtractor returns an Extractor that rejects files larger than maxBytes.
// A non-positive maxBytes uses DefaultMaxBytes.
func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{maxBytes: maxBytes}
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	format, ok := FormatOf(path)
	if !ok {
		return "", fmt.Errorf("%w: unsupported file type %q", models.ErrInvalidInput, filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > e.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", models.ErrInvalidInput, filepath.Base(path), info.Size(), e.maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, format)
}

// ExtractBytes decodes content in the given format and normalizes the text.
func (e *Extractor) ExtractBytes(content []byte, format Format) (string, error) {
	decode, ok := decoders[format]
	if !ok {
		return "", fmt.Errorf("%w: unknown format %q", models.ErrInvalidInput, format)
	}
	if int64(len(content)) > e.maxBytes {
		return "", fmt.Errorf("%w: content is %d bytes, limit is %d", models.ErrInvalidInput, len(content), e.maxBytes)
	}
	text, err := decode(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	return Normalize(text), nil
}

// Normalize repairs invalid UTF-8, drops control characters other than tab and
// newline, trims every line and removes blank lines.
func Normalize(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		if r == '\r' {
			return -1
		}
		return ' '
	}, text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
