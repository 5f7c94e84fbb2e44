package core

import (
	"context"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// BalanceChecker asks the billing service about a device. It reports every
// failure through the outcome and never returns an error.
type BalanceChecker interface {
	CheckBalance(ctx context.Context, serialNumber string) model.BalanceOutcome
}

// LiveStateSink mirrors accepted telemetry for live consumers.
type LiveStateSink interface {
	MirrorStatus(ctx context.Context, ev *model.StatusEvent) error
	MirrorHeartbeats(ctx context.Context, evs []*model.HeartbeatEvent) error
}

// DeadLetter is a rejected delivery.
type DeadLetter struct {
	Topic   string
	Payload []byte
	Reason  string
}

// DeadLetterSink archives deliveries that could not be decoded.
type DeadLetterSink interface {
	Archive(ctx context.Context, dl DeadLetter) error
}

// LiveFeed follows the live telemetry announcements of one vehicle.
type LiveFeed interface {
	// Follow calls fn for every announcement until ctx is done or fn fails.
	Follow(ctx context.Context, vehicleID string, fn func(payload []byte) error) error
}
