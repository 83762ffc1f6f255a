package ports

import (
	"context"
	"errors"
	"time"

	"github.com/seu-repo/vitrina-voz/internal/domain"
)

// CartStore persists cart snapshots in a key-value slot.
type CartStore interface {
	Load(ctx context.Context, cartID string) ([]domain.CartItem, error)
	Save(ctx context.Context, cartID string, items []domain.CartItem) error
}

// ProductRepository searches a catalog database by name.
type ProductRepository interface {
	SearchByName(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error)
}

// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a string key-value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
