package models

import "time"

// SourceKind is the adapter type of a configured content source
type SourceKind string

const (
	SourceKindRSS       SourceKind = "rss"
	SourceKindWeb       SourceKind = "web"
	SourceKindWebSearch SourceKind = "web_search"
)

// SourceConfig is a persisted content source. URL holds a feed or page URL,
// or comma-joined search queries for web_search sources.
type SourceConfig struct {
	ID               string     `json:"id" toml:"id" badgerhold:"key"`
	Type             SourceKind `json:"type" toml:"type" validate:"required,oneof=rss web web_search"`
	URL              string     `json:"url" toml:"url" validate:"required"`
	MatchKeywords    string     `json:"match_keywords" toml:"match_keywords"`
	NegativeKeywords string     `json:"negative_keywords" toml:"negative_keywords"`
	Selector         string     `json:"selector" toml:"selector"` // web only
	CreatedAt        time.Time  `json:"created_at" toml:"-"`
}
