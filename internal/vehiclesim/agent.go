// Package vehiclesim simulates a vehicle speaking the fleetpulse MQTT protocol.
package vehiclesim

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

const telemetryQoS = 1

type heartbeatBatch struct {
	Data []model.HeartbeatData `json:"data"`
}

type Agent struct {
	vehicleID string
	client    mqtt.Client
	topics    *topic.Builder
	sensors   Sensors

	interval  time.Duration
	batchSize int

	mu     sync.Mutex
	status int
	model  int

	logger log.Logger
}

func NewAgent(vehicleID string, client mqtt.Client, topics *topic.Builder, sensors Sensors, status, modelNo int, interval time.Duration, batchSize int) *Agent {
	return &Agent{
		vehicleID: vehicleID,
		client:    client,
		topics:    topics,
		sensors:   sensors,
		interval:  interval,
		batchSize: batchSize,
		status:    status,
		model:     modelNo,
		logger:    log.WithName("vehiclesim").WithValues("vehicleID", vehicleID),
	}
}

// Run connects, reports the current status and streams heartbeats until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("Starting simulated vehicle", "interval", a.interval, "batchSize", a.batchSize)

	if err := a.client.Start(ctx); err != nil {
		return err
	}
	defer func() {
		a.logger.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.client.Disconnect(shutdownCtx)
	}()

	if err := a.client.AwaitConnection(ctx); err != nil {
		return err
	}

	commands := a.topics.Build(paths.WriteStatus, a.vehicleID)
	if err := a.client.Subscribe(ctx, commands, telemetryQoS, a.onWriteStatus); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %s, err: %w", commands, err)
	}

	if err := a.publishStatus(ctx, paths.Status); err != nil {
		a.logger.Error(err, "Failed to publish initial status")
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	batch := make([]model.HeartbeatData, 0, a.batchSize)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Vehicle shutting down...")
			return nil
		case <-ticker.C:
			batch = append(batch, a.sensors.Read())
			if len(batch) < a.batchSize {
				continue
			}
			if err := a.publish(ctx, paths.Heartbeat, heartbeatBatch{Data: batch}); err != nil {
				a.logger.Error(err, "Failed to publish heartbeat batch", "samples", len(batch))
			}
			batch = batch[:0]
		}
	}
}

// onWriteStatus applies an operator command and answers on the read-status topic.
func (a *Agent) onWriteStatus(ctx context.Context, topicName string, payload []byte) {
	var cmd struct {
		Status *int `json:"status"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Status == nil {
		a.logger.Warn("Ignoring malformed command", "topic", topicName, "payload", string(payload))
		return
	}

	a.mu.Lock()
	a.status = *cmd.Status
	a.mu.Unlock()

	a.logger.Info("Status changed by command", "status", *cmd.Status)
	if err := a.publishStatus(ctx, paths.ReadStatus); err != nil {
		a.logger.Error(err, "Failed to confirm status")
	}
}

func (a *Agent) publishStatus(ctx context.Context, segment string) error {
	a.mu.Lock()
	status, modelNo := a.status, a.model
	a.mu.Unlock()

	return a.publish(ctx, segment, model.StatusData{Status: &status, Model: &modelNo})
}

func (a *Agent) publish(ctx context.Context, segment string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return a.client.Publish(ctx, a.topics.Build(segment, a.vehicleID), telemetryQoS, false, payload)
}
