// Package sqlite provides a SQLite-backed implementation of
// oplog.Recorder.
//
// WAL mode is enabled on Open so a reader inspecting the trail never
// blocks the coordinator writing to it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paylo/checkout-mcp/internal/order/oplog"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps the binary trivially cross-compilable.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. The table is append-only:
// one immutable row per lifecycle event of a creation attempt.
const schema = `
CREATE TABLE IF NOT EXISTS order_oplog (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Header id of the creation attempt. Empty when the failure happened
    -- before an id was assigned.
    order_id    TEXT        NOT NULL DEFAULT '',

    -- Lifecycle stage, e.g. STARTED, COMPENSATION_FAILED.
    stage       TEXT        NOT NULL,

    -- Error text for failure stages.
    detail      TEXT        NOT NULL DEFAULT '',

    -- W3C trace/span ids of the active span, for jumping to the trace.
    trace_id    TEXT        NOT NULL DEFAULT '',
    span_id     TEXT        NOT NULL DEFAULT '',

    -- RFC3339 timestamp stored as TEXT, SQLite idiom.
    created_at  TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_oplog_order_id ON order_oplog(order_id, created_at);
CREATE INDEX IF NOT EXISTS idx_order_oplog_stage ON order_oplog(stage);
`

// Repository is the SQLite implementation of oplog.Recorder.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("oplog: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("oplog: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Record appends one entry. Safe for concurrent use.
func (r *Repository) Record(ctx context.Context, entry *oplog.Entry) error {
	const q = `
		INSERT INTO order_oplog (order_id, stage, detail, trace_id, span_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID,
		string(entry.Stage),
		entry.Detail,
		entry.TraceID,
		entry.SpanID,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("oplog: record %s for %q: %w", entry.Stage, entry.OrderID, err)
	}
	return nil
}

// ListByOrder returns all entries for one order id, oldest first. Meant
// for operator tooling and tests.
func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]oplog.Entry, error) {
	const q = `
		SELECT order_id, stage, detail, trace_id, span_id, created_at
		FROM   order_oplog
		WHERE  order_id = ?
		ORDER  BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("oplog: list for %q: %w", orderID, err)
	}
	defer rows.Close()

	var entries []oplog.Entry
	for rows.Next() {
		var e oplog.Entry
		var createdAt string
		if err := rows.Scan(&e.OrderID, &e.Stage, &e.Detail, &e.TraceID, &e.SpanID, &createdAt); err != nil {
			return nil, fmt.Errorf("oplog: scan entry for %q: %w", orderID, err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("oplog: parse time %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
