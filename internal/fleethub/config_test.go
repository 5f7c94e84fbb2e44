package fleethub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/storage/memory"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

func newTestConfig() *Config {
	store := options.NewStoreOptions()
	store.Driver = options.StoreDriverMemory
	query := options.NewQueryOptions()
	query.Timezone = "UTC"

	return &Config{
		HttpOptions:    options.NewHttpOptions(),
		MqttOptions:    options.NewMqttOptions(),
		StoreOptions:   store,
		RedisOptions:   options.NewRedisOptions(),
		S3Options:      options.NewS3Options(),
		BalanceOptions: options.NewBalanceOptions(),
		IngestOptions:  options.NewIngestOptions(),
		QueryOptions:   query,
	}
}

func TestNewServerWithMemoryStore(t *testing.T) {
	srv, err := newTestConfig().NewServer(context.Background())
	require.NoError(t, err)
	require.NotNil(t, srv.serverManager)
	assert.Len(t, srv.closers, 1)
}

func TestNewServerRejectsUnknownTimezone(t *testing.T) {
	cfg := newTestConfig()
	cfg.QueryOptions.Timezone = "Mars/Olympus"

	_, err := cfg.NewServer(context.Background())
	assert.Error(t, err)
}

func TestNewEventStore(t *testing.T) {
	store, err := NewEventStore(context.Background(), &options.StoreOptions{Driver: options.StoreDriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	_, err = NewEventStore(context.Background(), &options.StoreOptions{Driver: "sqlite"})
	assert.ErrorContains(t, err, `unknown store driver "sqlite"`)
}

func TestInitializeMQTTClientIDs(t *testing.T) {
	opts := options.NewMqttOptions()
	opts.ClientID = "node-a"

	c, err := InitializeMQTTClient(opts, "notifier")
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
	assert.Equal(t, "node-a", opts.ClientID)
}
