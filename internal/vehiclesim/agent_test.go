package vehiclesim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/ingest"
	pkgmqtt "github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	pkgmqtt.Client

	mu           sync.Mutex
	published    []published
	handlers     map[string]pkgmqtt.MessageHandler
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]pkgmqtt.MessageHandler{}}
}

func (f *fakeClient) Start(context.Context) error           { return nil }
func (f *fakeClient) AwaitConnection(context.Context) error { return nil }

func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) Subscribe(_ context.Context, filter string, _ int, h pkgmqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[filter] = h
	return nil
}

func (f *fakeClient) Publish(_ context.Context, topicName string, _ int, _ bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topicName, payload: payload})
	return nil
}

func (f *fakeClient) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func (f *fakeClient) handler(filter string) pkgmqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[filter]
}

func TestAgentPublishesDecodableTelemetry(t *testing.T) {
	client := newFakeClient()
	topics := topic.NewBuilder("vehicle")
	agent := NewAgent("V7", client, topics, NewSensors(2, 1), 1, 3, 2*time.Millisecond, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, p := range client.snapshot() {
			if p.topic == "vehicle/V7/heartbeat" {
				return true
			}
		}
		return false
	}, time.Second, 2*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, client.disconnected)

	msgs := client.snapshot()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, "vehicle/V7/status", msgs[0].topic)

	status, err := ingest.Decode(topics, msgs[0].topic, msgs[0].payload)
	require.NoError(t, err)
	assert.Equal(t, 1, *status.Status.Status)
	assert.Equal(t, 3, *status.Status.Model)

	hb, err := ingest.Decode(topics, msgs[1].topic, msgs[1].payload)
	require.NoError(t, err)
	require.Len(t, hb.Heartbeats, 2)
	assert.Empty(t, hb.Skipped)
	assert.Equal(t, 2.0, *hb.Heartbeats[0].TotalUsageTime)
	assert.Equal(t, 4.0, *hb.Heartbeats[1].TotalUsageTime)
}

func TestAgentAppliesWriteStatus(t *testing.T) {
	client := newFakeClient()
	topics := topic.NewBuilder("vehicle")
	agent := NewAgent("V7", client, topics, NewSensors(1, 1), 1, 3, time.Hour, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = agent.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.handler("vehicle/V7/wrstatus") != nil
	}, time.Second, 2*time.Millisecond)

	h := client.handler("vehicle/V7/wrstatus")
	h(ctx, "vehicle/V7/wrstatus", []byte(`not json`))
	h(ctx, "vehicle/V7/wrstatus", []byte(`{"status":0}`))

	require.Eventually(t, func() bool {
		for _, p := range client.snapshot() {
			if p.topic == "vehicle/V7/rdstatus" {
				return true
			}
		}
		return false
	}, time.Second, 2*time.Millisecond)

	var reply published
	for _, p := range client.snapshot() {
		if p.topic == "vehicle/V7/rdstatus" {
			reply = p
		}
	}
	assert.JSONEq(t, `{"status":0,"model":3}`, string(reply.payload))
}

func TestSensorsAreMonotonic(t *testing.T) {
	s := NewSensors(1.5, 42)
	prev := 0.0
	for range 50 {
		r := s.Read()
		require.NotNil(t, r.TotalUsageTime)
		assert.Greater(t, *r.TotalUsageTime, prev)
		prev = *r.TotalUsageTime
		assert.GreaterOrEqual(t, *r.Battery, 5.0)
	}
}

func TestConfigRequiresVehicleID(t *testing.T) {
	t.Setenv(VehicleIDEnv, "")
	cfg := &Config{MqttOptions: options.NewMqttOptions(), SimOptions: options.NewSimOptions()}

	_, err := cfg.NewAgent()
	assert.ErrorContains(t, err, VehicleIDEnv)

	t.Setenv(VehicleIDEnv, "V9")
	agent, err := cfg.NewAgent()
	require.NoError(t, err)
	assert.Equal(t, "V9", agent.vehicleID)
}
