package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching services.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
