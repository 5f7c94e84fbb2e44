package core

import (
	"context"
)

// CommandPublisher sends operator commands to vehicles.
// In fleetpulse, this is implemented by the MQTT Outbound Adapter.
type CommandPublisher interface {
	// PublishStatus delivers a status command and returns the topic it was sent on.
	PublishStatus(ctx context.Context, vehicleID string, status int) (string, error)
}
