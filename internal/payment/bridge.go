// Package payment bridges a priced order to the external payment
// backend that mints payable links. The bridge never touches the order
// ledger and never recomputes amounts: the minor-unit amount it is
// handed is authoritative.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Link is the backend's response, passed through to the caller
// verbatim.
type Link struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// BackendError is a non-success response from the payment backend. The
// status and body are kept for diagnosis.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("payment backend returned %d: %s", e.StatusCode, e.Body)
}

type checkoutRequest struct {
	OrderID    string            `json:"orderId"`
	Email      string            `json:"email"`
	AmountKobo int64             `json:"amountKobo"`
	Metadata   map[string]string `json:"metadata"`
}

// Bridge calls the checkout endpoint over plain HTTP. Construct it once
// and share it; it is stateless and safe for concurrent use.
type Bridge struct {
	endpoint string
	httpc    *http.Client
	tracer   trace.Tracer
}

// NewBridge wires the bridge to the given checkout endpoint. A nil
// client gets a default with a 30s timeout — the only deadline in this
// path, since no retry or cancellation happens below it.
func NewBridge(endpoint string, httpc *http.Client) *Bridge {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Bridge{
		endpoint: endpoint,
		httpc:    httpc,
		tracer:   otel.Tracer("checkout/payment"),
	}
}

// GeneratePaymentLink asks the backend for a payable link covering
// amountMinor. A non-2xx response surfaces as a BackendError; the
// caller must not attach a reference in that case.
func (b *Bridge) GeneratePaymentLink(ctx context.Context, orderID, email string, amountMinor int64) (*Link, error) {
	ctx, span := b.tracer.Start(ctx, "GeneratePaymentLink")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("order.amount_minor", amountMinor),
	)

	payload, err := json.Marshal(checkoutRequest{
		OrderID:    orderID,
		Email:      email,
		AmountKobo: amountMinor,
		Metadata:   map[string]string{"source": "paylo-mcp-public"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call payment backend: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read payment backend response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var link Link
	if err := json.Unmarshal(body, &link); err != nil {
		return nil, fmt.Errorf("decode payment backend response: %w", err)
	}
	return &link, nil
}
