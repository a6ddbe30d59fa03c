package models

// Article is the post-processed writer output
type Article struct {
	Title    string      `json:"title"`
	HTML     string      `json:"html"`
	Category string      `json:"category,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
	Chart    *ChartSpec  `json:"chart,omitempty"`
	Media    *MediaEmbed `json:"media,omitempty"`
}

// ChartSpec is the chart block the model may embed in its output
type ChartSpec struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
	Type   string    `json:"type"`
	Title  string    `json:"title"`
}

// MediaKind identifies an embeddable media provider
type MediaKind string

const (
	MediaYouTube MediaKind = "youtube"
	MediaTwitter MediaKind = "twitter"
)

// MediaEmbed is an embeddable video or post
type MediaEmbed struct {
	Kind MediaKind `json:"kind"`
	ID   string    `json:"id"`
}
