// Package postgrest implements the catalog Store against the Supabase
// PostgREST API.
package postgrest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/supabase-community/postgrest-go"

	"github.com/paylo/checkout-mcp/internal/catalog"
)

const itemColumns = "id, name, description, price, image_url, storefront_id, is_available, storefronts(name, slug, currency)"

// Store reads the storefronts and products tables. All calls are
// synchronous HTTP round trips; deadlines are the transport's concern.
type Store struct {
	db *postgrest.Client
}

func NewStore(db *postgrest.Client) *Store {
	return &Store{db: db}
}

var _ catalog.Store = (*Store)(nil)

func (s *Store) ListSellers(ctx context.Context, limit int) ([]catalog.Seller, error) {
	var sellers []catalog.Seller
	_, err := s.db.From("storefronts").
		Select("id, name, slug, description, logo_url, currency", "", false).
		Eq("status", "active").
		Limit(limit, "").
		ExecuteTo(&sellers)
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}
	return sellers, nil
}

func (s *Store) SearchItems(ctx context.Context, q catalog.SearchQuery) ([]catalog.Item, error) {
	query := s.db.From("products").
		Select(itemColumns, "", false).
		Eq("is_available", strconv.FormatBool(true)).
		Ilike("name", "%"+q.Query+"%").
		Limit(q.Limit, "")

	if q.SellerID != "" {
		query = query.Eq("storefront_id", q.SellerID)
	}

	var items []catalog.Item
	if _, err := query.ExecuteTo(&items); err != nil {
		return nil, fmt.Errorf("search items %q: %w", q.Query, err)
	}
	return items, nil
}

// GetItem resolves by primary key. Zero rows maps to ErrItemNotFound so
// callers never have to inspect PostgREST error codes.
func (s *Store) GetItem(ctx context.Context, id string) (*catalog.Item, error) {
	var items []catalog.Item
	_, err := s.db.From("products").
		Select(itemColumns, "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&items)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %s: %w", id, catalog.ErrItemNotFound)
	}
	return &items[0], nil
}
