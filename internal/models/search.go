package models

// SearchResult is one organic web search hit
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Rank    int    `json:"rank"`
}

// SearchResponse holds the organic results and, when the engine produced one,
// an AI answer with its references.
type SearchResponse struct {
	Query      string         `json:"query"`
	Answer     string         `json:"answer,omitempty"`
	References []SearchResult `json:"references,omitempty"`
	Results    []SearchResult `json:"results"`
	SourceType SourceType     `json:"source_type"`
}
