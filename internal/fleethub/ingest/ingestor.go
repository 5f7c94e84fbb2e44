// Package ingest turns MQTT telemetry deliveries into event-log rows.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

const defaultQueueSize = 1024

type delivery struct {
	topic   string
	payload []byte
}

// Ingestor receives deliveries from the MQTT client and appends them to the
// event store one at a time, in arrival order.
//
// OnMessage only enqueues; Run is the single consumer. Balance checks,
// live-state mirroring and dead-letter uploads run as side tasks so a slow
// collaborator never holds up the next delivery.
type Ingestor struct {
	topics *topic.Builder
	store  core.EventStore

	balance     core.BalanceChecker
	live        core.LiveStateSink
	deadLetters core.DeadLetterSink

	clock  clock.PassiveClock
	queue  chan delivery
	side   sync.WaitGroup
	logger log.Logger
}

// Option customizes an Ingestor.
type Option func(*Ingestor)

// WithBalanceChecker enables balance checks for status messages.
func WithBalanceChecker(b core.BalanceChecker) Option {
	return func(i *Ingestor) { i.balance = b }
}

// WithLiveState mirrors accepted events to a live-state sink.
func WithLiveState(s core.LiveStateSink) Option {
	return func(i *Ingestor) { i.live = s }
}

// WithDeadLetters archives rejected deliveries.
func WithDeadLetters(s core.DeadLetterSink) Option {
	return func(i *Ingestor) { i.deadLetters = s }
}

// WithClock sets the clock that stamps events.
func WithClock(c clock.PassiveClock) Option {
	return func(i *Ingestor) { i.clock = c }
}

// WithQueueSize sets the capacity of the delivery queue.
func WithQueueSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.queue = make(chan delivery, n)
		}
	}
}

// New creates an Ingestor that writes to store.
func New(topics *topic.Builder, store core.EventStore, opts ...Option) *Ingestor {
	i := &Ingestor{
		topics: topics,
		store:  store,
		clock:  clock.RealClock{},
		queue:  make(chan delivery, defaultQueueSize),
		logger: log.WithName("ingest"),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// OnMessage is the MQTT message handler. The payload is copied because the
// transport may reuse its buffer. When the queue is full it blocks, which
// pushes back on the broker through flow control.
func (i *Ingestor) OnMessage(ctx context.Context, topicName string, payload []byte) {
	d := delivery{topic: topicName, payload: append([]byte(nil), payload...)}

	select {
	case i.queue <- d:
		metrics.IngestQueueDepth.Inc()
	case <-ctx.Done():
		i.logger.Warn("Dropping delivery during shutdown", "topic", topicName)
	}
}

// Run consumes the queue until ctx is done, then waits for side tasks.
func (i *Ingestor) Run(ctx context.Context) error {
	i.logger.Info("Ingestor started", "queueSize", cap(i.queue))
	defer i.logger.Info("Ingestor stopped")

	for {
		select {
		case <-ctx.Done():
			i.Wait()
			return nil
		case d := <-i.queue:
			metrics.IngestQueueDepth.Dec()
			// Errors are already logged and counted; the stream goes on.
			_ = i.Handle(ctx, d.topic, d.payload)
		}
	}
}

// Wait blocks until every side task started so far has finished.
func (i *Ingestor) Wait() {
	i.side.Wait()
}

// Handle processes one delivery synchronously. The returned error is for
// callers that care; Run ignores it.
func (i *Ingestor) Handle(ctx context.Context, topicName string, payload []byte) error {
	segment := topic.Segment(topicName)

	msg, err := Decode(i.topics, topicName, payload)
	if err != nil {
		metrics.IngestMessagesTotal.WithLabelValues(segment, "rejected").Inc()
		i.logger.Error(err, "Discarding message", "topic", topicName, "bytes", len(payload))
		i.archive(ctx, topicName, payload, err)
		return err
	}

	switch msg.Kind {
	case KindStatus:
		err = i.storeStatus(ctx, msg)
	case KindHeartbeatBatch:
		err = i.storeHeartbeats(ctx, msg)
	}
	if err != nil {
		metrics.IngestMessagesTotal.WithLabelValues(segment, "failed").Inc()
		i.logger.Error(err, "Failed to store message", "topic", topicName, "vehicleId", msg.VehicleID)
		return err
	}

	metrics.IngestMessagesTotal.WithLabelValues(segment, "stored").Inc()
	return nil
}

func (i *Ingestor) storeStatus(ctx context.Context, msg *Message) error {
	ev := &model.StatusEvent{
		VehicleID: msg.VehicleID,
		Timestamp: i.clock.Now(),
		RawData:   msg.Status,
	}
	if err := i.store.AppendStatus(ctx, ev); err != nil {
		return fmt.Errorf("append status: %w", err)
	}
	metrics.IngestEventsTotal.WithLabelValues(KindStatus.String()).Inc()
	i.logger.Debug("Stored status", "vehicleId", ev.VehicleID, "id", ev.ID)

	if i.live != nil {
		i.side.Go(func() {
			if err := i.live.MirrorStatus(ctx, ev); err != nil {
				i.logger.Error(err, "Failed to mirror status", "vehicleId", ev.VehicleID)
			}
		})
	}

	if msg.Status.Status != nil && i.balance != nil {
		i.side.Go(func() {
			// The outcome is logged and counted by the checker itself.
			_ = i.balance.CheckBalance(ctx, ev.VehicleID)
		})
	}
	return nil
}

func (i *Ingestor) storeHeartbeats(ctx context.Context, msg *Message) error {
	for _, err := range msg.Skipped {
		i.logger.Warn("Skipping heartbeat element", "vehicleId", msg.VehicleID, "reason", err.Error())
	}
	if len(msg.Heartbeats) == 0 {
		i.logger.Debug("Heartbeat batch has no usable elements", "vehicleId", msg.VehicleID, "skipped", len(msg.Skipped))
		return nil
	}

	now := i.clock.Now()
	evs := make([]*model.HeartbeatEvent, len(msg.Heartbeats))
	for n, hb := range msg.Heartbeats {
		evs[n] = &model.HeartbeatEvent{
			VehicleID: msg.VehicleID,
			Timestamp: now,
			RawData:   hb,
		}
	}

	if err := i.store.AppendHeartbeats(ctx, evs); err != nil {
		return fmt.Errorf("append %d heartbeats: %w", len(evs), err)
	}
	metrics.IngestEventsTotal.WithLabelValues(KindHeartbeatBatch.String()).Add(float64(len(evs)))
	i.logger.Debug("Stored heartbeats", "vehicleId", msg.VehicleID, "count", len(evs), "skipped", len(msg.Skipped))

	if i.live != nil {
		i.side.Go(func() {
			if err := i.live.MirrorHeartbeats(ctx, evs); err != nil {
				i.logger.Error(err, "Failed to mirror heartbeats", "vehicleId", msg.VehicleID)
			}
		})
	}
	return nil
}

func (i *Ingestor) archive(ctx context.Context, topicName string, payload []byte, reason error) {
	if i.deadLetters == nil {
		return
	}

	dl := core.DeadLetter{Topic: topicName, Payload: payload, Reason: reason.Error()}
	i.side.Go(func() {
		if err := i.deadLetters.Archive(ctx, dl); err != nil {
			i.logger.Error(err, "Failed to archive rejected message", "topic", topicName)
		}
	})
}
