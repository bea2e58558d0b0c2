// Package postgrest implements the order Ledger against the Supabase
// PostgREST API. PostgREST exposes row operations only — there is no
// multi-statement transaction — so atomicity across the header and line
// tables is the coordinator's job, not this adapter's.
package postgrest

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"

	"github.com/paylo/checkout-mcp/internal/order"
)

const (
	headersTable = "unified_payments"
	linesTable   = "payment_items"

	headerColumns = "id, customer_email, total_amount_kobo, currency, status, paid_at, reference"
)

type Ledger struct {
	db *postgrest.Client
}

func NewLedger(db *postgrest.Client) *Ledger {
	return &Ledger{db: db}
}

var _ order.Ledger = (*Ledger)(nil)

func (l *Ledger) InsertHeader(ctx context.Context, h *order.Header) error {
	_, _, err := l.db.From(headersTable).
		Insert(h, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert header %s: %w", h.ID, err)
	}
	return nil
}

func (l *Ledger) InsertLines(ctx context.Context, lines []order.Line) error {
	_, _, err := l.db.From(linesTable).
		Insert(lines, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert %d lines: %w", len(lines), err)
	}
	return nil
}

func (l *Ledger) DeleteHeader(ctx context.Context, id string) error {
	_, _, err := l.db.From(headersTable).
		Delete("minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("delete header %s: %w", id, err)
	}
	return nil
}

func (l *Ledger) GetHeader(ctx context.Context, id string) (*order.Header, error) {
	var headers []order.Header
	_, err := l.db.From(headersTable).
		Select(headerColumns, "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&headers)
	if err != nil {
		return nil, fmt.Errorf("get header %s: %w", id, err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("order %s: %w", id, order.ErrOrderNotFound)
	}
	return &headers[0], nil
}

// UpdateReference asks for the updated rows back so a vanished id is
// distinguishable from a successful overwrite.
func (l *Ledger) UpdateReference(ctx context.Context, id, reference string) error {
	var updated []struct {
		ID string `json:"id"`
	}
	_, err := l.db.From(headersTable).
		Update(map[string]string{"reference": reference}, "representation", "").
		Eq("id", id).
		ExecuteTo(&updated)
	if err != nil {
		return fmt.Errorf("update reference on %s: %w", id, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("order %s: %w", id, order.ErrOrderNotFound)
	}
	return nil
}
