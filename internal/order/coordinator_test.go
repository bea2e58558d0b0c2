package order_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylo/checkout-mcp/internal/catalog"
	"github.com/paylo/checkout-mcp/internal/order"
	"github.com/paylo/checkout-mcp/internal/order/oplog"
)

func setup(t *testing.T) (*order.Coordinator, *fakeLedger, *fakeCatalog, *fakeRecorder) {
	t.Helper()
	ledger := &fakeLedger{
		headers: make(map[string]*order.Header),
		lines:   make(map[string][]order.Line),
	}
	cat := &fakeCatalog{items: map[string]*catalog.Item{
		"item-a": {ID: "item-a", Name: "Ankara Tote", Price: 500.00, SellerID: "store-1"},
		"item-b": {ID: "item-b", Name: "Beaded Necklace", Price: 99.99, SellerID: "store-2"},
		"item-c": {ID: "item-c", Name: "Cowrie Bracelet", Price: 10.50, SellerID: "store-1"},
	}}
	rec := &fakeRecorder{}
	return order.NewCoordinator(ledger, cat, rec), ledger, cat, rec
}

func TestCreateOrderPricing(t *testing.T) {
	coordinator, ledger, _, _ := setup(t)

	result, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 2},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, 1000.00, result.TotalAmount)
	assert.Equal(t, "NGN", result.Currency)
	assert.Equal(t, 1, result.ItemCount)
	assert.NotEmpty(t, result.OrderID)

	header := ledger.headers[result.OrderID]
	require.NotNil(t, header)
	assert.Equal(t, order.StatusPending, header.Status)
	assert.Equal(t, int64(100000), header.TotalAmountMinor)
	assert.Equal(t, order.GuestEmail, header.CustomerEmail)
	assert.True(t, strings.HasPrefix(header.Reference, "ORD-"))
	assert.Nil(t, header.PaidAt)

	lines := ledger.lines[result.OrderID]
	require.Len(t, lines, 1)
	assert.Equal(t, result.OrderID, lines[0].OrderID)
	assert.Equal(t, "item-a", lines[0].ItemID)
	assert.Equal(t, "Ankara Tote", lines[0].ItemName)
	assert.Equal(t, "store-1", lines[0].SellerID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, int64(50000), lines[0].UnitPriceMinor)
	assert.Equal(t, int64(100000), lines[0].LineTotalMinor)
}

func TestCreateOrderSumsLineTotals(t *testing.T) {
	coordinator, ledger, _, _ := setup(t)

	result, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-b", Quantity: 3}, // 9999 * 3 = 29997
		{ItemID: "item-c", Quantity: 1}, // 1050
	}, "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, 310.47, result.TotalAmount)
	assert.Equal(t, 2, result.ItemCount)

	header := ledger.headers[result.OrderID]
	require.NotNil(t, header)
	assert.Equal(t, int64(31047), header.TotalAmountMinor)
	assert.Equal(t, "ada@example.com", header.CustomerEmail)

	lines := ledger.lines[result.OrderID]
	require.Len(t, lines, 2)
	var sum int64
	for _, l := range lines {
		sum += l.LineTotalMinor
	}
	assert.Equal(t, header.TotalAmountMinor, sum)
}

func TestCreateOrderValidation(t *testing.T) {
	coordinator, ledger, _, _ := setup(t)

	cases := []struct {
		name  string
		items []order.ItemRequest
	}{
		{"empty item list", nil},
		{"zero quantity", []order.ItemRequest{{ItemID: "item-a", Quantity: 0}}},
		{"negative quantity", []order.ItemRequest{{ItemID: "item-a", Quantity: -1}}},
		{"blank item id", []order.ItemRequest{{ItemID: "  ", Quantity: 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := coordinator.CreateOrder(context.Background(), tc.items, "")

			var verr *order.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, ledger.headers)
			assert.Empty(t, ledger.lines)
		})
	}
}

func TestCreateOrderUnknownItem(t *testing.T) {
	coordinator, ledger, _, _ := setup(t)

	_, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 1},
		{ItemID: "no-such-item", Quantity: 1},
	}, "")

	require.ErrorIs(t, err, catalog.ErrItemNotFound)
	assert.Empty(t, ledger.headers, "no header may be created when any item fails to resolve")
	assert.Empty(t, ledger.lines)
}

func TestCreateOrderCompensatesOnLineFailure(t *testing.T) {
	coordinator, ledger, _, rec := setup(t)
	ledger.lineInsertErr = errors.New("payment_items insert rejected")

	_, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 1},
	}, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.lineInsertErr)
	assert.Empty(t, ledger.headers, "header must be deleted after line insert failure")
	assert.Empty(t, ledger.lines)
	assert.Equal(t, 1, ledger.deletes)

	require.True(t, rec.has(oplog.StageLineInsertFailed))
	require.True(t, rec.has(oplog.StageCompensated))
}

func TestCreateOrderSurfacesCompensationFailure(t *testing.T) {
	coordinator, ledger, _, rec := setup(t)
	ledger.lineInsertErr = errors.New("payment_items insert rejected")
	ledger.deleteErr = errors.New("unified_payments delete timed out")

	_, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 1},
	}, "")

	var compErr *order.CompensationError
	require.ErrorAs(t, err, &compErr)
	assert.ErrorIs(t, err, ledger.lineInsertErr)
	assert.ErrorIs(t, err, ledger.deleteErr)
	assert.NotEmpty(t, compErr.OrderID)

	// The orphan is loud: both in the error and in the audit trail.
	require.True(t, rec.has(oplog.StageCompensationFailed))
	assert.Len(t, ledger.headers, 1, "orphan header remains when the delete itself failed")
}

func TestGetOrderStatus(t *testing.T) {
	coordinator, _, _, _ := setup(t)

	result, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 1},
	}, "")
	require.NoError(t, err)

	status, err := coordinator.GetOrderStatus(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, status.Status)
	assert.Nil(t, status.PaidAt)
	assert.Equal(t, int64(50000), status.TotalAmountMinor)
	assert.Equal(t, "NGN", status.Currency)
	assert.Equal(t, order.GuestEmail, status.CustomerEmail)

	_, err = coordinator.GetOrderStatus(context.Background(), "missing-id")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestAttachReferenceLastWriteWins(t *testing.T) {
	coordinator, ledger, _, _ := setup(t)

	result, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 1},
	}, "")
	require.NoError(t, err)

	before := *ledger.headers[result.OrderID]

	require.NoError(t, coordinator.AttachReference(context.Background(), result.OrderID, "ref-first"))
	require.NoError(t, coordinator.AttachReference(context.Background(), result.OrderID, "ref-second"))

	header := ledger.headers[result.OrderID]
	assert.Equal(t, "ref-second", header.Reference)
	assert.Equal(t, before.Status, header.Status)
	assert.Equal(t, before.TotalAmountMinor, header.TotalAmountMinor)
}

func TestAttachReferenceErrors(t *testing.T) {
	coordinator, _, _, _ := setup(t)

	err := coordinator.AttachReference(context.Background(), "missing-id", "ref-1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	var verr *order.ValidationError
	err = coordinator.AttachReference(context.Background(), "any-id", "   ")
	require.ErrorAs(t, err, &verr)
}

func TestCreateOrderWorksWithoutRecorder(t *testing.T) {
	ledger := &fakeLedger{headers: make(map[string]*order.Header), lines: make(map[string][]order.Line)}
	cat := &fakeCatalog{items: map[string]*catalog.Item{
		"item-a": {ID: "item-a", Name: "Ankara Tote", Price: 500.00, SellerID: "store-1"},
	}}
	coordinator := order.NewCoordinator(ledger, cat, nil)

	_, err := coordinator.CreateOrder(context.Background(), []order.ItemRequest{
		{ItemID: "item-a", Quantity: 1},
	}, "")
	require.NoError(t, err)
}

func TestNewReference(t *testing.T) {
	a := order.NewReference()
	b := order.NewReference()

	assert.True(t, strings.HasPrefix(a, "ORD-"))
	assert.NotEqual(t, a, b)
}

var _ order.Ledger = (*fakeLedger)(nil)

type fakeLedger struct {
	headers map[string]*order.Header
	lines   map[string][]order.Line

	headerInsertErr error
	lineInsertErr   error
	deleteErr       error
	deletes         int
}

func (f *fakeLedger) InsertHeader(_ context.Context, h *order.Header) error {
	if f.headerInsertErr != nil {
		return f.headerInsertErr
	}
	stored := *h
	f.headers[h.ID] = &stored
	return nil
}

func (f *fakeLedger) InsertLines(_ context.Context, lines []order.Line) error {
	if f.lineInsertErr != nil {
		return f.lineInsertErr
	}
	for _, l := range lines {
		f.lines[l.OrderID] = append(f.lines[l.OrderID], l)
	}
	return nil
}

func (f *fakeLedger) DeleteHeader(_ context.Context, id string) error {
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.headers, id)
	delete(f.lines, id)
	return nil
}

func (f *fakeLedger) GetHeader(_ context.Context, id string) (*order.Header, error) {
	header, ok := f.headers[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	clone := *header
	return &clone, nil
}

func (f *fakeLedger) UpdateReference(_ context.Context, id, reference string) error {
	header, ok := f.headers[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	header.Reference = reference
	return nil
}

type fakeCatalog struct {
	items map[string]*catalog.Item
}

func (f *fakeCatalog) GetItem(_ context.Context, id string) (*catalog.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, catalog.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

var _ oplog.Recorder = (*fakeRecorder)(nil)

type fakeRecorder struct {
	entries []oplog.Entry
}

func (f *fakeRecorder) Record(_ context.Context, entry *oplog.Entry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRecorder) has(stage oplog.Stage) bool {
	for _, e := range f.entries {
		if e.Stage == stage {
			return true
		}
	}
	return false
}
