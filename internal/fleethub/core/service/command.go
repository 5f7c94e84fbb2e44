package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
)

// ErrPublisherUnavailable is returned when no command publisher is configured.
var ErrPublisherUnavailable = errors.New("command publisher is not configured")

// PublishStatus sends a status command to a vehicle and returns the topic used.
func (s *Service) PublishStatus(ctx context.Context, vehicleID string, status int) (string, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return "", core.Validationf("Invalid request: status must be a number and vehicleId is required")
	}
	if s.publisher == nil {
		return "", ErrPublisherUnavailable
	}

	topic, err := s.publisher.PublishStatus(ctx, vehicleID, status)
	if err != nil {
		return "", fmt.Errorf("failed to publish status command: %w", err)
	}

	s.logger.Info("Status command published", "vehicleId", vehicleID, "status", status, "topic", topic)
	return topic, nil
}
