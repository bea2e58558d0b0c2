// Package order implements the order-and-payment coordinator: pricing
// requested items against the catalog, persisting header+lines as one
// logical unit, and answering status and reference updates.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paylo/checkout-mcp/internal/catalog"
	"github.com/paylo/checkout-mcp/internal/order/oplog"
)

// Catalog is the slice of the catalog gateway the coordinator needs:
// resolving one item to its price and owning seller.
type Catalog interface {
	GetItem(ctx context.Context, id string) (*catalog.Item, error)
}

// Coordinator turns requested line items into durable order records.
// All shared state lives in the ledger; the coordinator itself is
// stateless and safe for concurrent use.
type Coordinator struct {
	ledger  Ledger
	catalog Catalog
	oplog   oplog.Recorder // nil-safe: recording skipped if nil
	tracer  trace.Tracer
}

func NewCoordinator(ledger Ledger, cat Catalog, rec oplog.Recorder) *Coordinator {
	return &Coordinator{
		ledger:  ledger,
		catalog: cat,
		oplog:   rec,
		tracer:  otel.Tracer("checkout/order"),
	}
}

// CreateOrder prices the requested items, then persists one header and
// its lines. The ledger has no cross-table transaction, so the two
// writes form a pseudo-transaction: if the line insert fails after the
// header insert succeeded, the header is deleted again before the error
// is surfaced. If that compensating delete fails too, both failures are
// returned as a CompensationError — an orphan header is never silent.
//
// No persistence happens before every item has resolved to a price, so
// an unknown item id leaves the ledger untouched.
func (c *Coordinator) CreateOrder(ctx context.Context, items []ItemRequest, customerEmail string) (*CreateResult, error) {
	ctx, span := c.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	if err := validateItems(items); err != nil {
		return nil, err
	}
	if customerEmail == "" {
		customerEmail = GuestEmail
	}

	// Price every item before touching the ledger. Seller, name and unit
	// price are frozen into the lines here; they are never re-read from
	// the catalog after this point.
	lines := make([]Line, 0, len(items))
	var totalMinor int64
	for _, it := range items {
		item, err := c.catalog.GetItem(ctx, it.ItemID)
		if err != nil {
			c.record(ctx, "", oplog.StagePricingFailed, err.Error())
			return nil, fmt.Errorf("resolve item: %w", err)
		}

		unitMinor := toMinorUnits(item.Price)
		lineTotal := unitMinor * int64(it.Quantity)
		totalMinor += lineTotal

		lines = append(lines, Line{
			SellerID:       item.SellerID,
			ItemID:         it.ItemID,
			ItemName:       item.Name,
			ItemType:       "product",
			Quantity:       it.Quantity,
			UnitPriceMinor: unitMinor,
			LineTotalMinor: lineTotal,
		})
	}

	header := &Header{
		ID:               uuid.NewString(),
		CustomerEmail:    customerEmail,
		TotalAmountMinor: totalMinor,
		Currency:         Currency,
		Status:           StatusPending,
		Reference:        NewReference(),
		PaymentType:      paymentTypeSingleStore,
		Metadata:         map[string]string{"source": "checkout-mcp-agent"},
	}
	span.SetAttributes(
		attribute.String("order.id", header.ID),
		attribute.Int64("order.total_minor", totalMinor),
	)
	c.record(ctx, header.ID, oplog.StageStarted, "")

	if err := c.ledger.InsertHeader(ctx, header); err != nil {
		c.record(ctx, header.ID, oplog.StageHeaderInsertFailed, err.Error())
		return nil, fmt.Errorf("persist order header: %w", err)
	}

	for i := range lines {
		lines[i].OrderID = header.ID
	}

	if err := c.ledger.InsertLines(ctx, lines); err != nil {
		c.record(ctx, header.ID, oplog.StageLineInsertFailed, err.Error())

		// Compensate: a header without lines must not stay observable.
		if delErr := c.ledger.DeleteHeader(ctx, header.ID); delErr != nil {
			compErr := &CompensationError{OrderID: header.ID, Cause: err, CompensateErr: delErr}
			c.record(ctx, header.ID, oplog.StageCompensationFailed, compErr.Error())
			slog.ErrorContext(ctx, "compensating delete failed, orphan header may remain",
				"order_id", header.ID,
				"insert_error", err,
				"delete_error", delErr,
			)
			return nil, compErr
		}

		c.record(ctx, header.ID, oplog.StageCompensated, err.Error())
		return nil, fmt.Errorf("persist order lines: %w", err)
	}

	c.record(ctx, header.ID, oplog.StageCompleted, "")
	slog.InfoContext(ctx, "order created",
		"order_id", header.ID,
		"total_minor", totalMinor,
		"item_count", len(items),
	)

	return &CreateResult{
		OrderID:     header.ID,
		TotalAmount: float64(totalMinor) / 100,
		Currency:    Currency,
		ItemCount:   len(items),
	}, nil
}

// GetOrderStatus is a read-only projection of the stored header. It
// reports local state only; it does not re-query the payment backend
// for pending orders.
func (c *Coordinator) GetOrderStatus(ctx context.Context, orderID string) (*StatusProjection, error) {
	header, err := c.ledger.GetHeader(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusProjection{
		Status:           header.Status,
		TotalAmountMinor: header.TotalAmountMinor,
		Currency:         header.Currency,
		PaidAt:           header.PaidAt,
		CustomerEmail:    header.CustomerEmail,
	}, nil
}

// AttachReference overwrites the reference field of an existing order.
// Last write wins; status and total are untouched. A caller generating
// a fresh payment link for the same order re-enters here.
func (c *Coordinator) AttachReference(ctx context.Context, orderID, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return &ValidationError{Reason: "reference must not be empty"}
	}
	if err := c.ledger.UpdateReference(ctx, orderID, reference); err != nil {
		return err
	}
	slog.InfoContext(ctx, "order reference attached", "order_id", orderID, "reference", reference)
	return nil
}

func (c *Coordinator) record(ctx context.Context, orderID string, stage oplog.Stage, detail string) {
	if c.oplog == nil {
		return
	}
	if err := c.oplog.Record(ctx, oplog.NewEntry(ctx, orderID, stage, detail)); err != nil {
		slog.WarnContext(ctx, "oplog record failed", "order_id", orderID, "stage", string(stage), "error", err)
	}
}

// NewReference mints the tracking token written onto a fresh header:
// a timestamp for operator readability plus a random UUID fragment wide
// enough that collisions are not a practical concern. The ledger still
// enforces uniqueness; a conflict surfaces as a retryable insert error.
func NewReference() string {
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), frag)
}

// toMinorUnits converts a major-unit price to minor units, rounding to
// the nearest. Decimal arithmetic avoids the float drift of prices like
// 99.99 * 100.
func toMinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func validateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return &ValidationError{Reason: "at least one item is required"}
	}
	for _, it := range items {
		if strings.TrimSpace(it.ItemID) == "" {
			return &ValidationError{Reason: "item id must not be empty"}
		}
		if it.Quantity <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("quantity for item %s must be a positive integer", it.ItemID)}
		}
	}
	return nil
}
