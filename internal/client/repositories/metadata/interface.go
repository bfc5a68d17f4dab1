// Package metadata is the client's durable key/value store: the terminal
// counterpart of browser localStorage. Values are opaque bytes.
package metadata

import (
	"context"
)

// Repository is a plain key/value store with no transactional guarantees
// across keys. Get returns (nil, nil) for an absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
