// Package fileid derives stable document ids for inputs that arrive without one.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	pathPrefix = "file:"
	textPrefix = "text:"
)

// ForPath returns the document id of a file. Paths are made absolute and cleaned,
// so different spellings of the same path share an id.
func ForPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return pathPrefix + digest(filepath.Clean(path))
}

// ForText returns the document id of inline text. Surrounding whitespace is ignored.
func ForText(text string) string {
	return textPrefix + digest(strings.TrimSpace(text))
}

// Resolve returns explicit when set, else the id of path, else the id of text.
func Resolve(explicit, path, text string) string {
	switch {
	case explicit != "":
		return explicit
	case path != "":
		return ForPath(path)
	case strings.TrimSpace(text) != "":
		return ForText(text)
	default:
		return ""
	}
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
