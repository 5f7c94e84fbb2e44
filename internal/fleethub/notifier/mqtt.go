package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpulse/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

// commandQoS makes the broker acknowledge every command (PUBACK).
const commandQoS = 1

var _ core.CommandPublisher = (*MQTTNotifier)(nil)

// MQTTNotifier publishes operator commands on a dedicated egress connection,
// separate from the telemetry subscriptions.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
}

func NewMQTTNotifier(client pkgmqtt.Client, topics *topic.Builder) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics}
}

// Start runs the egress connection until ctx is done.
func (n *MQTTNotifier) Start(ctx context.Context) error {
	if err := n.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notifier client: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n.client.Disconnect(shutdownCtx)
	return nil
}

type statusCommand struct {
	Status int `json:"status"`
}

// PublishStatus sends {"status": n} to {root}/{vehicleID}/wrstatus.
func (n *MQTTNotifier) PublishStatus(ctx context.Context, vehicleID string, status int) (string, error) {
	topicName := n.topics.Build(paths.WriteStatus, vehicleID)

	payload, err := json.Marshal(statusCommand{Status: status})
	if err != nil {
		return "", err
	}

	if err := n.client.Publish(ctx, topicName, commandQoS, false, payload); err != nil {
		metrics.CommandSentTotal.WithLabelValues("failed").Inc()
		log.Error(err, "Failed to publish command", "topic", topicName)
		return "", err
	}

	metrics.CommandSentTotal.WithLabelValues("success").Inc()
	return topicName, nil
}
