package order

import (
	"errors"
	"fmt"
	"time"
)

// Status values of an order header. The coordinator only ever writes
// StatusPending; paid/failed are written by the settlement process on
// the backend side.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

const (
	// GuestEmail is the sentinel customer address for orders created
	// without an email.
	GuestEmail = "guest@paylo.ai"

	// Currency is the single supported currency of the deployment.
	// Amounts are stored in its minor unit (kobo).
	Currency = "NGN"

	paymentTypeSingleStore = "single_store"
)

// ErrOrderNotFound is returned when an order id does not resolve to a
// header row.
var ErrOrderNotFound = errors.New("order not found")

// Header is one row in the unified_payments table.
type Header struct {
	ID               string            `json:"id"`
	CustomerEmail    string            `json:"customer_email"`
	TotalAmountMinor int64             `json:"total_amount_kobo"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	PaidAt           *time.Time        `json:"paid_at"`
	Reference        string            `json:"reference"`
	PaymentType      string            `json:"payment_type"`
	Metadata         map[string]string `json:"metadata"`
}

// Line is one row in the payment_items table. Seller, name and price
// are snapshots taken at creation time and never re-synced with the
// catalog.
type Line struct {
	OrderID        string `json:"payment_id"`
	SellerID       string `json:"storefront_id"`
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	ItemType       string `json:"item_type"`
	Quantity       int    `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_kobo"`
	LineTotalMinor int64  `json:"line_total_kobo"`
}

// ItemRequest is one requested (item, quantity) pair of a create call.
type ItemRequest struct {
	ItemID   string `json:"productId"`
	Quantity int    `json:"quantity"`
}

// CreateResult is the caller-facing summary of a successful creation.
// TotalAmount is in major units.
type CreateResult struct {
	OrderID     string  `json:"orderId"`
	TotalAmount float64 `json:"totalAmount"`
	Currency    string  `json:"currency"`
	ItemCount   int     `json:"itemCount"`
}

// StatusProjection is the read-only view served by GetOrderStatus.
type StatusProjection struct {
	Status           string     `json:"status"`
	TotalAmountMinor int64      `json:"total_amount_kobo"`
	Currency         string     `json:"currency"`
	PaidAt           *time.Time `json:"paid_at"`
	CustomerEmail    string     `json:"customer_email"`
}

// ValidationError marks a malformed request rejected before any side
// effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid order request: " + e.Reason
}

// CompensationError reports the worst failure mode of order creation:
// the line insert failed AND the compensating delete of the header
// failed, so an orphan header may remain in the ledger. Both causes are
// carried so neither is lost.
type CompensationError struct {
	OrderID       string
	Cause         error
	CompensateErr error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf(
		"order %s: line persistence failed (%v) and compensating header delete failed (%v); orphan header may remain",
		e.OrderID, e.Cause, e.CompensateErr,
	)
}

func (e *CompensationError) Unwrap() []error {
	return []error{e.Cause, e.CompensateErr}
}
