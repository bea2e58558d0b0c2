package oplog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Recorder is the port for persisting oplog entries. The coordinator
// depends on this abstraction so the SQLite adapter can be swapped for
// an in-memory one in tests.
type Recorder interface {
	// Record appends one entry. The table is append-only; entries are
	// never updated.
	Record(ctx context.Context, entry *Entry) error
}

// NewEntry builds an entry stamped with the current time and the trace
// identifiers of the span active in ctx (empty strings when there is
// no active span, e.g. in unit tests).
func NewEntry(ctx context.Context, orderID string, stage Stage, detail string) *Entry {
	entry := &Entry{
		OrderID:   orderID,
		Stage:     stage,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry.TraceID = sc.TraceID().String()
		entry.SpanID = sc.SpanID().String()
	}

	return entry
}
