package common

import (
	"github.com/google/uuid"
)

// NewChunkID generates a chunk ID. Format: chunk_<uuid>
func NewChunkID() string {
	return "chunk_" + uuid.New().String()
}

// NewPostID generates a local post ID. Format: post_<uuid>
func NewPostID() string {
	return "post_" + uuid.New().String()
}

// NewKnowledgeBaseID generates a KB entry ID. Format: kb_<uuid>
func NewKnowledgeBaseID() string {
	return "kb_" + uuid.New().String()
}

// NewSourceID generates a source ID. Format: src_<uuid>
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewImageID generates a generated-image file ID. Format: img_<uuid>
func NewImageID() string {
	return "img_" + uuid.New().String()
}
