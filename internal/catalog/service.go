// Package catalog is the read-only gateway to sellers and items. It
// owns no data: everything lives in the storefronts and products
// tables, reached through the Store port.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/paylo/checkout-mcp/internal/pkg/cache"
)

const (
	defaultSellerLimit = 10
	defaultSearchLimit = 20
	maxLimit           = 100

	cacheTTL = 5 * time.Minute
)

// Store is the port to the catalog tables.
type Store interface {
	ListSellers(ctx context.Context, limit int) ([]Seller, error)
	SearchItems(ctx context.Context, q SearchQuery) ([]Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
}

// Service applies limit capping and read-through caching in front of
// the Store. A nil cache disables caching entirely.
type Service struct {
	store Store
	cache cache.Cache
}

func NewService(store Store, c cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// ListSellers returns up to limit active sellers. The category filter
// is accepted for interface stability but not applied yet.
func (s *Service) ListSellers(ctx context.Context, limit int, category string) ([]Seller, error) {
	_ = category
	limit = capLimit(limit, defaultSellerLimit)
	return s.store.ListSellers(ctx, limit)
}

// SearchItems performs a case-insensitive substring match on item names
// over available items, optionally scoped to one seller.
func (s *Service) SearchItems(ctx context.Context, q SearchQuery) ([]Item, error) {
	q.Limit = capLimit(q.Limit, defaultSearchLimit)
	return s.store.SearchItems(ctx, q)
}

// GetItem resolves a single item with its seller summary. Successful
// lookups are cached; a cache failure falls through to the store.
func (s *Service) GetItem(ctx context.Context, id string) (*Item, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey("item", id)
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var item Item
			if err := json.Unmarshal([]byte(raw), &item); err == nil {
				return &item, nil
			}
		}
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(item); err == nil {
			key := s.cache.GenerateKey("item", id)
			if err := s.cache.Set(ctx, key, string(raw), cacheTTL); err != nil {
				slog.WarnContext(ctx, "catalog cache write failed", "item_id", id, "error", err)
			}
		}
	}

	return item, nil
}

// capLimit applies the default for unset values and the hard ceiling
// that keeps bulk scraping off the catalog.
func capLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
