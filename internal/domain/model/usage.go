package model

import "time"

// UsageEvent records one use of a connection's credentials.
type UsageEvent struct {
	ID           int64
	Owner        string
	Kind         Kind
	ConnectionID string
	Operation    string // e.g. "create_post", "verify".
	Success      bool
	Message      string
	OccurredAt   time.Time
}
