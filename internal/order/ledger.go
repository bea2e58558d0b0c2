package order

import "context"

// Ledger is the port to the durable order store. The backing API is
// row-oriented with no cross-table transaction, which is why the
// coordinator layers its own compensation on top (see CreateOrder).
type Ledger interface {
	// InsertHeader persists a new header row.
	InsertHeader(ctx context.Context, h *Header) error

	// InsertLines persists all lines of one order in a single call.
	InsertLines(ctx context.Context, lines []Line) error

	// DeleteHeader removes a header by id. Used only as the compensating
	// action of a failed creation.
	DeleteHeader(ctx context.Context, id string) error

	// GetHeader returns the header for id, or ErrOrderNotFound.
	GetHeader(ctx context.Context, id string) (*Header, error)

	// UpdateReference overwrites the reference field (last write wins),
	// or returns ErrOrderNotFound when the id does not resolve.
	UpdateReference(ctx context.Context, id, reference string) error
}
