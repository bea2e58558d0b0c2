// Package oplog defines a durable audit trail of order creation
// attempts. Each entry is an immutable event; reading the entries for
// one order shows exactly how far a creation got and whether its
// compensation succeeded. This is what lets an operator find and
// garbage-collect orphan headers after a failed compensating delete
// without scanning the remote ledger.
package oplog

import "time"

// Stage is the lifecycle point an entry was written at.
type Stage string

const (
	StageStarted            Stage = "STARTED"
	StageCompleted          Stage = "COMPLETED"
	StagePricingFailed      Stage = "PRICING_FAILED"
	StageHeaderInsertFailed Stage = "HEADER_INSERT_FAILED"
	StageLineInsertFailed   Stage = "LINE_INSERT_FAILED"
	StageCompensated        Stage = "COMPENSATED"
	StageCompensationFailed Stage = "COMPENSATION_FAILED"
)

// Entry is a single row in the order_oplog table.
type Entry struct {
	// OrderID is the header id the entry belongs to. Empty for failures
	// that happen before a header id is assigned.
	OrderID string

	// Stage is the lifecycle point this entry records.
	Stage Stage

	// Detail carries the error text for failure stages, empty otherwise.
	Detail string

	// TraceID and SpanID are the W3C identifiers of the span active when
	// the entry was written, so the row can be joined with its trace.
	TraceID string
	SpanID  string

	// CreatedAt is the wall-clock time of the event.
	CreatedAt time.Time
}
