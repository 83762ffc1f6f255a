package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/pkg/textnorm"
)

// CachedSearcher memoizes successful searches. Failures are never cached.
type CachedSearcher struct {
	next  ports.ProductSearcher
	cache ports.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedSearcher(next ports.ProductSearcher, cache ports.Cache, ttl time.Duration, log *zap.Logger) *CachedSearcher {
	return &CachedSearcher{next: next, cache: cache, ttl: ttl, log: log}
}

func cacheKey(query string) string {
	return "search:" + textnorm.Squash(textnorm.Fold(query))
}

func (s *CachedSearcher) Search(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	key := cacheKey(query)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var hit []domain.ProductCandidate
		if err := json.Unmarshal([]byte(raw), &hit); err == nil {
			return hit, nil
		}
		s.log.Warn("Dropping corrupt search cache entry", zap.String("key", key))
		s.cache.Delete(ctx, key)
	case !errors.Is(err, ports.ErrCacheMiss):
		s.log.Warn("Search cache unavailable", zap.Error(err))
	}

	products, err := s.next.Search(ctx, query)
	if err != nil {
		return products, err
	}

	if data, err := json.Marshal(products); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
			s.log.Warn("Failed to cache search result", zap.String("key", key), zap.Error(err))
		}
	}
	return products, nil
}

var _ ports.ProductSearcher = (*CachedSearcher)(nil)
