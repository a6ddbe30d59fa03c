package models

import "time"

// Chunk is the unit of retrieval: a bounded text segment and its embedding.
// Vector length is fixed per Provider.
type Chunk struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"vector"`
	Source   string    `json:"source"`
	Provider string    `json:"provider"`
}

// ScoredChunk is a search hit
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// TopicPreview is a display form of a recently added chunk
type TopicPreview struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// VectorDocument is the persisted form of the whole vector store.
// Chunks keep insertion order.
type VectorDocument struct {
	ID        string    `json:"id" badgerhold:"key"`
	Chunks    []Chunk   `json:"chunks"`
	UpdatedAt time.Time `json:"updated_at"`
}
