package models

import "time"

// KnowledgeBaseEntry references an uploaded document. Embedded only ever
// flips from false to true.
type KnowledgeBaseEntry struct {
	ID       string    `json:"id" badgerhold:"key"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	URL      string    `json:"url"`
	Date     time.Time `json:"date"`
	Embedded bool      `json:"embedded"`
}
