package keyword

import (
	"strings"
	"unicode"

	"github.com/hyperjump/bunrui/internal/lexicon"
)

// Normalize lowercases term, collapses inner whitespace and trims surrounding punctuation.
func Normalize(term string) string {
	term = strings.Join(strings.Fields(strings.ToLower(term)), " ")
	return strings.TrimFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsNumeric reports whether term consists only of digits and number punctuation.
func IsNumeric(term string) bool {
	hasDigit := false
	for _, r := range term {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '.' || r == ',' || r == '-' || r == '/' || r == ' ':
		default:
			return false
		}
	}
	return hasDigit
}

// Words splits lowercased text into words. Hyphens inside a word are kept.
func Words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Tokenize splits text into words, applies spelling corrections and joins
// the lexicon's n-gram phrases into single tokens.
func Tokenize(text string, lex *lexicon.Lexicon) []string {
	words := Words(text)
	if lex == nil {
		return words
	}
	for i, w := range words {
		words[i] = lex.Correct(w)
	}
	if len(lex.NGrams) == 0 {
		return words
	}

	phrases := make([][]string, len(lex.NGrams))
	for i, p := range lex.NGrams {
		phrases[i] = strings.Fields(p)
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := 0
		for j, p := range phrases {
			if len(p) > 1 && matchAt(words, i, p) {
				out = append(out, lex.NGrams[j])
				matched = len(p)
				break
			}
		}
		if matched == 0 {
			out = append(out, words[i])
			matched = 1
		}
		i += matched
	}
	return out
}

func matchAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for k, p := range phrase {
		if words[i+k] != p {
			return false
		}
	}
	return true
}
