package models

import "strings"

// SourceType identifies where a ContentItem came from
type SourceType string

const (
	SourceTypeRSS                    SourceType = "rss"
	SourceTypeWeb                    SourceType = "web"
	SourceTypeWebAuto                SourceType = "web_auto"
	SourceTypeFile                   SourceType = "file"
	SourceTypeKBInternal             SourceType = "kb_internal"
	SourceTypeGoogleAIMode           SourceType = "google_ai_mode"
	SourceTypeBingCopilot            SourceType = "bing_copilot"
	SourceTypeGoogleAIOverview       SourceType = "google_ai_overview"
	SourceTypeGoogleStandardFallback SourceType = "google_standard_fallback"
	SourceTypeBraveSearch            SourceType = "brave_search"
	SourceTypeRefresh                SourceType = "refresh"
)

// IsSearchDerived reports whether items of this type come from a query rather
// than a stable URL. Published posts for these types never update an existing post.
func (t SourceType) IsSearchDerived() bool {
	switch t {
	case SourceTypeGoogleAIMode, SourceTypeBingCopilot, SourceTypeGoogleAIOverview,
		SourceTypeGoogleStandardFallback, SourceTypeBraveSearch, SourceTypeKBInternal:
		return true
	}
	return false
}

// ContentItem is a candidate for article generation. It lives for one run.
type ContentItem struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	SourceType  SourceType `json:"source_type"`
	SourceURL   string     `json:"source_url"`
	Link        string     `json:"link,omitempty"`
	Description string     `json:"description,omitempty"`
	PubDate     string     `json:"pub_date,omitempty"`
	GUID        string     `json:"guid,omitempty"`
}

// Text returns the title and body used for keyword matching
func (c ContentItem) Text() string {
	return strings.TrimSpace(c.Title + " " + c.Description + " " + c.Content)
}
