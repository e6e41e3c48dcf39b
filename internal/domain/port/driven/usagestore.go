package driven

import (
	"context"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// UsageStore defines the driven port for the connection usage ledger.
type UsageStore interface {
	// Record appends an event and returns it with its assigned ID.
	Record(ctx context.Context, event model.UsageEvent) (model.UsageEvent, error)

	// ListByOwner returns the owner's most recent events, newest first.
	ListByOwner(ctx context.Context, owner string, limit int) ([]model.UsageEvent, error)
}
