package options

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0.0.0.0:8080"))
	assert.NoError(t, ValidateAddress(":8080"))
	assert.NoError(t, ValidateAddress("redis.internal:6379"))
	assert.Error(t, ValidateAddress("8080"))
	assert.Error(t, ValidateAddress("localhost:http"))
	assert.Error(t, ValidateAddress("localhost:70000"))
	assert.Error(t, ValidateAddress("bad_host!:80"))
}

func TestDefaultsAreValid(t *testing.T) {
	groups := map[string]IOptions{
		"http":    NewHttpOptions(),
		"mqtt":    NewMqttOptions(),
		"s3":      NewS3Options(),
		"store":   NewStoreOptions(),
		"redis":   NewRedisOptions(),
		"balance": NewBalanceOptions(),
		"ingest":  NewIngestOptions(),
		"query":   NewQueryOptions(),
		"sim":     NewSimOptions(),
	}

	for name, o := range groups {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, o.Validate())
		})
	}
}

func TestOptionalBackendsValidateOnlyWhenEnabled(t *testing.T) {
	s3 := NewS3Options()
	assert.False(t, s3.Enabled())
	s3.Endpoint = "minio:9000"
	assert.Len(t, s3.Validate(), 1)

	r := NewRedisOptions()
	r.Addr = "no-port"
	assert.Len(t, r.Validate(), 1)

	b := NewBalanceOptions()
	b.BaseURL = "/relative"
	b.Attempts = 0
	assert.Len(t, b.Validate(), 2)
}

func TestStoreDriver(t *testing.T) {
	o := NewStoreOptions()
	o.Driver = "mongo"
	assert.Len(t, o.Validate(), 1)

	o.Driver = StoreDriverMemory
	o.DSN = ""
	assert.Empty(t, o.Validate())
}

func TestMqttFlagsToClientConfig(t *testing.T) {
	o := NewMqttOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--mqtt.broker=ssl://broker:8883",
		"--mqtt.keep-alive=30s",
		"--mqtt.clean-start=false",
		"--mqtt.will-topic=fleetpulse/offline",
		"--mqtt.will-qos=1",
	}))

	cfg := o.ToClientConfig()
	assert.Equal(t, "ssl://broker:8883", cfg.BrokerURL)
	assert.EqualValues(t, 30, cfg.KeepAlive)
	assert.False(t, cfg.CleanStart)
	assert.Equal(t, "fleetpulse/offline", cfg.WillTopic)
	assert.EqualValues(t, 1, cfg.WillQoS)
	assert.Equal(t, 3*time.Second, cfg.ReconnectBackoff)
}

func TestQueryLocation(t *testing.T) {
	o := NewQueryOptions()
	o.Timezone = "Asia/Bangkok"
	loc, err := o.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())

	o.Timezone = "Mars/Olympus"
	assert.Len(t, o.Validate(), 1)
}

func TestSimOptionsValidate(t *testing.T) {
	o := NewSimOptions()
	o.Interval = 0
	o.BatchSize = 0
	assert.Len(t, o.Validate(), 2)
}
