package core

import (
	"context"
	"time"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// Field names a raw-data key that a query can require to be present.
type Field string

const (
	FieldStatus         Field = "status"
	FieldModel          Field = "model"
	FieldTotalUsageTime Field = "total_usage_time"
)

// Query filters one of the event logs. Zero values mean "no constraint".
type Query struct {
	VehicleIDs []string

	// Start and End bound the timestamp, both inclusive.
	Start time.Time
	End   time.Time

	// Require keeps only events whose raw data carries every listed field.
	Require []Field

	// Ascending orders by (timestamp, id) oldest first; the default is newest first.
	Ascending bool

	Offset int
	Limit  int
}

// EventStore is the append-only log of status and heartbeat events.
// Appends never deduplicate: the same message delivered twice is stored twice.
type EventStore interface {
	AppendStatus(ctx context.Context, ev *model.StatusEvent) error
	AppendHeartbeats(ctx context.Context, evs []*model.HeartbeatEvent) error

	FindStatuses(ctx context.Context, q Query) ([]model.StatusEvent, error)
	FindHeartbeats(ctx context.Context, q Query) ([]model.HeartbeatEvent, error)

	// CountHeartbeats counts matches ignoring Offset and Limit.
	CountHeartbeats(ctx context.Context, q Query) (int64, error)

	Ping(ctx context.Context) error
	Close()
}
