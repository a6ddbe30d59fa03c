package models

import "time"

// PostInput is what the pipeline hands to the publishing collaborator
type PostInput struct {
	Title        string
	SourceURL    string
	SourceType   SourceType
	HTMLContent  string
	ThumbnailURL string
	Category     string
	Tags         []string
}

// Post is a published article as stored by the local publisher
type Post struct {
	ID           string     `json:"id" badgerhold:"key"`
	Title        string     `json:"title"`
	SourceURL    string     `json:"source_url" badgerhold:"index"`
	SourceType   SourceType `json:"source_type"`
	HTMLContent  string     `json:"html_content"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Category     string     `json:"category,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Link         string     `json:"link,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
