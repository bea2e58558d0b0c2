// Package mcpx is the transport adapter: it exposes the catalog,
// coordinator and payment bridge as MCP tools. Handlers catch every
// failure at their own boundary and answer with an error-flagged text
// result — the protocol layer never sees a raw error from these
// operations.
package mcpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/paylo/checkout-mcp/internal/catalog"
	"github.com/paylo/checkout-mcp/internal/order"
	"github.com/paylo/checkout-mcp/internal/payment"
)

// Handler holds the injected collaborators behind the tool surface.
type Handler struct {
	catalog *catalog.Service
	orders  *order.Coordinator
	bridge  *payment.Bridge
}

func NewHandler(cat *catalog.Service, orders *order.Coordinator, bridge *payment.Bridge) *Handler {
	return &Handler{
		catalog: cat,
		orders:  orders,
		bridge:  bridge,
	}
}

// Register adds all six tools to the server.
func (h *Handler) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_merchants",
		mcp.WithDescription("List available Paylo merchants and storefronts. Use this to discover stores before searching for products."),
		mcp.WithString("category", mcp.Description("Filter merchants by category")),
		mcp.WithNumber("limit", mcp.Description("Limit number of results (default: 10, max: 100)")),
	), h.listMerchants)

	s.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Search for products across Paylo stores. Can filter by merchant or category."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query for products")),
		mcp.WithString("merchantId", mcp.Description("Filter by specific merchant ID")),
		mcp.WithString("category", mcp.Description("Filter by product category")),
		mcp.WithNumber("limit", mcp.Description("Limit number of results (default: 20, max: 100)")),
	), h.searchProducts)

	s.AddTool(mcp.NewTool("get_product_details",
		mcp.WithDescription("Get detailed information about a specific product including price, description, and availability."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Unique identifier of the product")),
	), h.getProductDetails)

	s.AddTool(mcp.NewTool("create_order",
		mcp.WithDescription("Create a new order for products. Returns an order ID that can be used to generate a payment link."),
		mcp.WithArray("items", mcp.Required(),
			mcp.Description("List of items to purchase"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"productId": map[string]any{"type": "string"},
					"quantity":  map[string]any{"type": "number"},
				},
				"required": []string{"productId", "quantity"},
			}),
		),
		mcp.WithString("customerEmail", mcp.Description("Customer email for receipt (defaults to "+order.GuestEmail+")")),
	), h.createOrder)

	s.AddTool(mcp.NewTool("generate_payment_link",
		mcp.WithDescription("Generate a payment link for an existing order. Returns the URL to share with the user."),
		mcp.WithString("orderId", mcp.Required(), mcp.Description("The ID of the order to pay for")),
	), h.generatePaymentLink)

	s.AddTool(mcp.NewTool("check_payment_status",
		mcp.WithDescription("Check the payment status of an order as recorded locally. Returns 'pending', 'paid', or 'failed'; settlement is written by the payment backend, not re-queried here."),
		mcp.WithString("orderId", mcp.Required(), mcp.Description("The ID of the order to check")),
	), h.checkPaymentStatus)
}

func (h *Handler) listMerchants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	category := req.GetString("category", "")

	sellers, err := h.catalog.ListSellers(ctx, limit, category)
	if err != nil {
		return toolError(ctx, "Error listing merchants", err), nil
	}
	if sellers == nil {
		sellers = []catalog.Seller{}
	}
	return toolJSON(sellers)
}

func (h *Handler) searchProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items, err := h.catalog.SearchItems(ctx, catalog.SearchQuery{
		Query:    query,
		SellerID: req.GetString("merchantId", ""),
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", 0),
	})
	if err != nil {
		return toolError(ctx, "Error searching products", err), nil
	}
	if items == nil {
		items = []catalog.Item{}
	}
	return toolJSON(items)
}

func (h *Handler) getProductDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	item, err := h.catalog.GetItem(ctx, id)
	if err != nil {
		return toolError(ctx, "Error fetching product details", err), nil
	}
	return toolJSON(item)
}

func (h *Handler) createOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Items         []order.ItemRequest `json:"items"`
		CustomerEmail string              `json:"customerEmail"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}

	result, err := h.orders.CreateOrder(ctx, args.Items, args.CustomerEmail)
	if err != nil {
		return toolError(ctx, "Error creating order", err), nil
	}
	return toolJSON(result)
}

// generatePaymentLink is the orchestrating flow around the bridge:
// read the stored amount and email, mint the link, then write the
// backend's reference onto the order. The amount handed to the bridge
// is always the stored total — never recomputed here.
func (h *Handler) generatePaymentLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := req.RequireString("orderId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := h.orders.GetOrderStatus(ctx, orderID)
	if err != nil {
		return toolError(ctx, "Error generating payment link", err), nil
	}

	email := status.CustomerEmail
	if email == "" {
		email = order.GuestEmail
	}

	link, err := h.bridge.GeneratePaymentLink(ctx, orderID, email, status.TotalAmountMinor)
	if err != nil {
		return toolError(ctx, "Error generating payment link", err), nil
	}

	if err := h.orders.AttachReference(ctx, orderID, link.Reference); err != nil {
		return toolError(ctx, "Error generating payment link", err), nil
	}

	return toolJSON(link)
}

func (h *Handler) checkPaymentStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := req.RequireString("orderId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := h.orders.GetOrderStatus(ctx, orderID)
	if err != nil {
		return toolError(ctx, "Error checking payment status", err), nil
	}

	return toolJSON(map[string]any{
		"status":  status.Status,
		"paid_at": status.PaidAt,
	})
}

// toolJSON serialises a success payload as one indented JSON text block.
func toolJSON(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode response: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError logs the failure and converts it into an error-flagged
// result with a human-readable message.
func toolError(ctx context.Context, prefix string, err error) *mcp.CallToolResult {
	slog.ErrorContext(ctx, prefix, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}
