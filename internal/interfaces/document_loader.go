package interfaces

import "context"

// DocumentLoader extracts plain text from a KB file
type DocumentLoader interface {
	Load(ctx context.Context, path string) (string, error)
}
