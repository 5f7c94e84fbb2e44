package fleethub

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/balance"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/cache"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/service"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/deadletter"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/ingest"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/notifier"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/server"
	httpserver "github.com/autopeer-io/fleetpulse/internal/fleethub/server/http"
	mqttserver "github.com/autopeer-io/fleetpulse/internal/fleethub/server/mqtt"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/storage/memory"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/storage/postgres"
	"github.com/autopeer-io/fleetpulse/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpulse/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

type Config struct {
	HttpOptions    *options.HttpOptions
	MqttOptions    *options.MqttOptions
	StoreOptions   *options.StoreOptions
	RedisOptions   *options.RedisOptions
	S3Options      *options.S3Options
	BalanceOptions *options.BalanceOptions
	IngestOptions  *options.IngestOptions
	QueryOptions   *options.QueryOptions
}

// NewServer wires every adapter around the core service.
// Resources opened before a failure are released before returning.
func (cfg *Config) NewServer(ctx context.Context) (_ *FleetPulseServer, err error) {
	s := &FleetPulseServer{}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	// 1. Infrastructure: Event store
	store, err := NewEventStore(ctx, cfg.StoreOptions)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error { store.Close(); return nil })

	topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)

	// 2. Infrastructure: Notifier
	notifierClient, err := InitializeMQTTClient(cfg.MqttOptions, "notifier")
	if err != nil {
		return nil, fmt.Errorf("failed to init notifier: %w", err)
	}
	notifierAdapter := notifier.NewMQTTNotifier(notifierClient, topics)

	// 3. Core service
	loc, err := cfg.QueryOptions.Location()
	if err != nil {
		return nil, err
	}
	svc := service.New(store, notifierAdapter,
		service.WithLocation(loc),
		service.WithConcurrency(cfg.QueryOptions.Concurrency),
	)

	// 4. Ingest pipeline with its optional collaborators
	ingestOpts := []ingest.Option{ingest.WithQueueSize(cfg.IngestOptions.QueueSize)}
	var feed core.LiveFeed
	if cfg.BalanceOptions.Enabled() {
		ingestOpts = append(ingestOpts, ingest.WithBalanceChecker(balance.NewClient(cfg.BalanceOptions, &http.Client{})))
	}
	if cfg.RedisOptions.Enabled() {
		live, err := cache.NewLiveState(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, live.Close)
		ingestOpts = append(ingestOpts, ingest.WithLiveState(live))
		feed = live
	}
	if cfg.S3Options.Enabled() {
		archive, err := deadletter.NewArchive(cfg.S3Options)
		if err != nil {
			return nil, err
		}
		ingestOpts = append(ingestOpts, ingest.WithDeadLetters(archive))
	}
	ingestor := ingest.New(topics, store, ingestOpts...)

	// 5. Ingress servers
	ingressClient, err := InitializeMQTTClient(cfg.MqttOptions, "")
	if err != nil {
		return nil, err
	}
	mqttSrv := mqttserver.NewServer(
		ingressClient,
		topics.Shared(cfg.MqttOptions.SharedGroup),
		ingestor,
		cfg.IngestOptions.Segments,
		cfg.IngestOptions.QoS,
	)

	httpSrv := httpserver.NewServer(cfg.HttpOptions, svc, feed,
		httpserver.Probe{Name: "store", Check: store.Ping},
		httpserver.Probe{Name: "mqtt", Check: connected(ingressClient)},
	)

	s.serverManager = server.NewManager(mqttSrv, notifierAdapter, httpSrv)
	return s, nil
}

// NewEventStore opens the configured event log backend.
func NewEventStore(ctx context.Context, opts *options.StoreOptions) (core.EventStore, error) {
	switch opts.Driver {
	case options.StoreDriverMemory:
		log.Warn("Using the in-memory event store, telemetry is lost on restart")
		return memory.New(), nil
	case options.StoreDriverPostgres:
		return postgres.NewStore(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// InitializeMQTTClient creates a client from opts. role is appended to the
// client id so the ingress and notifier sessions never collide.
func InitializeMQTTClient(opts *options.MqttOptions, role string) (mqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("%s-%s", paths.GroupFleetPulse, hostname)
	}
	if role != "" {
		cfg.ClientID += "-" + role
	} else {
		cfg.OnStateChange = func(_, to string) {
			if to == mqtt.StateConnected {
				metrics.MQTTConnected.Set(1)
			} else {
				metrics.MQTTConnected.Set(0)
			}
		}
	}

	mqttclient, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client", "clientID", cfg.ClientID)
		return nil, err
	}

	return mqttclient, nil
}

func connected(c mqtt.Client) func(context.Context) error {
	return func(context.Context) error {
		if !c.IsConnected() {
			return fmt.Errorf("mqtt client is %s", c.State())
		}
		return nil
	}
}
