package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// timeLayout is fixed-width so occurred_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const defaultUsageLimit = 50

// Compile-time interface satisfaction check.
var _ driven.UsageStore = (*UsageRepo)(nil)

// UsageRepo is the SQLite implementation of the UsageStore port interface.
type UsageRepo struct {
	db *DB
}

// NewUsageRepo creates a new UsageRepo backed by the given DB.
func NewUsageRepo(db *DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// Record appends an event. A zero OccurredAt is stamped with the current time.
func (r *UsageRepo) Record(ctx context.Context, event model.UsageEvent) (model.UsageEvent, error) {
	const query = `
		INSERT INTO connection_usage (owner, kind, connection_id, operation, success, message, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	event.OccurredAt = event.OccurredAt.UTC()

	success := 0
	if event.Success {
		success = 1
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		event.Owner, string(event.Kind), event.ConnectionID, event.Operation,
		success, event.Message, event.OccurredAt.Format(timeLayout),
	)
	if err != nil {
		return model.UsageEvent{}, fmt.Errorf("record usage of %s: %w", event.ConnectionID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.UsageEvent{}, fmt.Errorf("get inserted usage id: %w", err)
	}
	event.ID = id

	return event, nil
}

// ListByOwner returns the owner's most recent events, newest first. A
// non-positive limit falls back to 50.
func (r *UsageRepo) ListByOwner(ctx context.Context, owner string, limit int) ([]model.UsageEvent, error) {
	const query = `
		SELECT id, owner, kind, connection_id, operation, success, message, occurred_at
		FROM connection_usage
		WHERE owner = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`

	if limit <= 0 {
		limit = defaultUsageLimit
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("query usage for %q: %w", owner, err)
	}
	defer rows.Close()

	events := []model.UsageEvent{}
	for rows.Next() {
		var (
			e          model.UsageEvent
			kind       string
			success    int
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &e.Owner, &kind, &e.ConnectionID, &e.Operation, &success, &e.Message, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}

		e.Kind = model.Kind(kind)
		e.Success = success != 0
		if e.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("parse occurred_at: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage events: %w", err)
	}

	return events, nil
}
