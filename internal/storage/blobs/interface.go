package blobs

import "context"

// Repository stores opaque values under string keys.
type Repository interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// SetMany writes every pair atomically.
	SetMany(ctx context.Context, values map[string][]byte) error

	// List returns all pairs whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
