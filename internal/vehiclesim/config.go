package vehiclesim

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/autopeer-io/fleetpulse/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

// VehicleIDEnv names the environment variable consulted when no id is configured.
const VehicleIDEnv = "FLEETPULSE_VEHICLE_ID"

type Config struct {
	MqttOptions *options.MqttOptions
	SimOptions  *options.SimOptions
}

func (cfg *Config) NewAgent() (*Agent, error) {
	vid := cfg.SimOptions.VehicleID
	if vid == "" {
		vid = os.Getenv(VehicleIDEnv)
	}
	if vid == "" {
		return nil, fmt.Errorf("no vehicle id: set --sim.vehicle-id or %s", VehicleIDEnv)
	}

	topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)

	mqttClient, err := cfg.initMqttClient(vid, topics)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(vid))

	return NewAgent(
		vid,
		mqttClient,
		topics,
		NewSensors(cfg.SimOptions.UsageStep, h.Sum64()),
		cfg.SimOptions.Status,
		cfg.SimOptions.Model,
		cfg.SimOptions.Interval,
		cfg.SimOptions.BatchSize,
	), nil
}

// The broker reports status 0 for the vehicle if it drops without DISCONNECT.
func (cfg *Config) initMqttClient(vid string, topics *topic.Builder) (mqtt.Client, error) {
	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("fleetpulse-sim-%s", vid)
	}

	mqttConfig.WillTopic = topics.Build(paths.Status, vid)
	mqttConfig.WillPayload = []byte(`{"status":0}`)
	mqttConfig.WillQoS = telemetryQoS
	mqttConfig.WillRetain = false

	client, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		log.Error(err, "failed to new mqtt client", "clientID", mqttConfig.ClientID)
		return nil, err
	}
	return client, nil
}
