package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a name is not in the options store
var ErrKeyNotFound = errors.New("key not found")

// StoredOption is one entry of the options store. Names are lower case.
type StoredOption struct {
	Name      string    `json:"name" badgerhold:"key"`
	Value     string    `json:"value"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValueStorage is the options store: credentials and small settings
// that override the config file at runtime. Names are case-insensitive.
type KeyValueStorage interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value, note string) error
	Delete(ctx context.Context, name string) error

	// List returns every stored option sorted by name
	List(ctx context.Context) ([]StoredOption, error)
}
