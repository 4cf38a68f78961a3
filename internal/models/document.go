// Package models defines the persisted tables and request/response types of the
// classification and entity-quality engine.
package models

import "time"

// Document is a piece of document text indexed into the corpus for IDF statistics.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Keyword is an extracted candidate keyword with its relevance in (0,1].
type Keyword struct {
	Term      string  `json:"term"`
	Relevance float64 `json:"relevance"`
}

// Terms returns the keyword terms in order.
func Terms(kws []Keyword) []string {
	out := make([]string, 0, len(kws))
	for _, k := range kws {
		out = append(out, k.Term)
	}
	return out
}
