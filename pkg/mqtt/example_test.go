package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt"
)

// ExampleClient shows the lifecycle used by the ingestion server: start,
// subscribe to the telemetry filters, wait for the broker, publish a command.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "fleetpulse-example",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		// Keep the session so telemetry published while we were offline is delivered.
		CleanStart:    false,
		SessionExpiry: 300,
		OnStateChange: func(from, to string) {
			log.Info("MQTT state changed", "from", from, "to", to)
		},
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}

	onHeartbeat := func(ctx context.Context, topic string, payload []byte) {
		fmt.Printf("heartbeat on %s: %s\n", topic, payload)
	}

	// Registered before the connection is up; it is sent once connected and
	// again after every reconnect.
	if err := client.Subscribe(ctx, "vehicle/+/heartbeat", 1, onHeartbeat); err != nil {
		log.Error(err, "Failed to subscribe")
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	if err := client.Publish(ctx, "vehicle/V1/wrstatus", 1, false, []byte(`{"status":1}`)); err != nil {
		log.Error(err, "Failed to publish command")
	}

	client.Disconnect(ctx)
}
