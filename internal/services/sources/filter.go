package sources

import (
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

// KeywordFilter keeps items that mention at least one match keyword (when any
// are configured) and none of the negative keywords. Matching is
// case-insensitive over the item's title, description and content.
type KeywordFilter struct {
	match    []string
	negative []string
}

// NewKeywordFilter parses comma-separated keyword lists
func NewKeywordFilter(matchKeywords, negativeKeywords string) KeywordFilter {
	return KeywordFilter{
		match:    splitKeywords(matchKeywords),
		negative: splitKeywords(negativeKeywords),
	}
}

// Allows reports whether an item passes the filter
func (f KeywordFilter) Allows(item models.ContentItem) bool {
	text := strings.ToLower(item.Text())

	for _, kw := range f.negative {
		if strings.Contains(text, kw) {
			return false
		}
	}

	if len(f.match) == 0 {
		return true
	}
	for _, kw := range f.match {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Apply returns the items that pass the filter, preserving order
func (f KeywordFilter) Apply(items []models.ContentItem) []models.ContentItem {
	kept := make([]models.ContentItem, 0, len(items))
	for _, item := range items {
		if f.Allows(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

func splitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if kw := strings.ToLower(strings.TrimSpace(part)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
