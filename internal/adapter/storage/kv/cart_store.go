package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

const keyPrefix = "cart:"

// CartStore keeps each cart as one serialized snapshot in a cache slot.
type CartStore struct {
	cache ports.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCartStore(cache ports.Cache, ttl time.Duration, log *zap.Logger) *CartStore {
	return &CartStore{cache: cache, ttl: ttl, log: log}
}

type snapshot struct {
	Items   []domain.CartItem `json:"items"`
	SavedAt time.Time         `json:"saved_at"`
}

// Load returns the stored items. Absent or malformed slots read as an empty
// cart; only backend failures are reported.
func (s *CartStore) Load(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	raw, err := s.cache.Get(ctx, keyPrefix+cartID)
	if errors.Is(err, ports.ErrCacheMiss) {
		return []domain.CartItem{}, nil
	}
	if err != nil {
		return []domain.CartItem{}, fmt.Errorf("failed to load cart %s: %w", cartID, err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warn("Discarding malformed cart snapshot", zap.String("cart_id", cartID), zap.Error(err))
		return []domain.CartItem{}, nil
	}
	if snap.Items == nil {
		snap.Items = []domain.CartItem{}
	}
	return snap.Items, nil
}

func (s *CartStore) Save(ctx context.Context, cartID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(snapshot{Items: items, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", cartID, err)
	}
	if err := s.cache.Set(ctx, keyPrefix+cartID, string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", cartID, err)
	}
	return nil
}

var _ ports.CartStore = (*CartStore)(nil)
