package mqtt

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/ingest"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

// Server implements the MQTT ingress layer: it owns the telemetry
// connection and feeds every delivery to the ingestor.
type Server struct {
	client   pkgmqtt.Client
	topics   *topic.Builder
	ingestor *ingest.Ingestor
	segments []string
	qos      int
}

// NewServer creates the ingress server. topics may carry a shared
// subscription group; segments are subscribed as {root}/+/{segment}.
func NewServer(client pkgmqtt.Client, topics *topic.Builder, ingestor *ingest.Ingestor, segments []string, qos int) *Server {
	return &Server{
		client:   client,
		topics:   topics,
		ingestor: ingestor,
		segments: segments,
		qos:      qos,
	}
}

// Start connects to the broker, subscribes and runs the ingestor until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.ingestor.Run(ctx)
	})
	g.Go(func() error {
		log.Info("Waiting for MQTT connection...")
		if err := s.client.AwaitConnection(ctx); err != nil {
			return err
		}
		log.Info("MQTT Connected")
		return s.initMQTTSubscriptions(ctx)
	})

	return g.Wait()
}

// Subscriptions are registered once; the client restores them after every reconnect.
func (s *Server) initMQTTSubscriptions(ctx context.Context) error {
	for _, segment := range s.segments {
		filter := s.topics.BuildWildcard(segment)
		if err := s.client.Subscribe(ctx, filter, s.qos, s.ingestor.OnMessage); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
		}
		log.Info("Subscribed", "filter", filter, "qos", s.qos)
	}
	return nil
}
