// Package cache mirrors accepted telemetry into Redis for live dashboards.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

var (
	_ core.LiveStateSink = (*LiveState)(nil)
	_ core.LiveFeed      = (*LiveState)(nil)
)

// LiveState writes the newest status and heartbeat of each vehicle into
// expiring hashes and announces every update on a per-vehicle channel.
type LiveState struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLiveState(ctx context.Context, opts *options.RedisOptions) (*LiveState, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &LiveState{client: client, ttl: opts.StateTTL}, nil
}

func (l *LiveState) Close() error {
	return l.client.Close()
}

func (l *LiveState) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Follow subscribes to the telemetry channel of vehicleID. Announcements
// published before the subscription is confirmed are not replayed.
func (l *LiveState) Follow(ctx context.Context, vehicleID string, fn func(payload []byte) error) error {
	sub := l.client.Subscribe(ctx, telemetryChannel(vehicleID))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", telemetryChannel(vehicleID), err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := fn([]byte(msg.Payload)); err != nil {
				return err
			}
		}
	}
}

func (l *LiveState) MirrorStatus(ctx context.Context, ev *model.StatusEvent) error {
	raw, err := json.Marshal(ev.RawData)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	pipe := l.client.Pipeline()
	l.queue(ctx, pipe, statusKey(ev.VehicleID), "status", ev.VehicleID, ev.ID, ev.Timestamp, raw)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// MirrorHeartbeats keeps only the last element of the batch in the hash but
// publishes every element.
func (l *LiveState) MirrorHeartbeats(ctx context.Context, evs []*model.HeartbeatEvent) error {
	if len(evs) == 0 {
		return nil
	}

	pipe := l.client.Pipeline()
	for _, ev := range evs {
		raw, err := json.Marshal(ev.RawData)
		if err != nil {
			return fmt.Errorf("failed to marshal heartbeat: %w", err)
		}
		l.queue(ctx, pipe, heartbeatKey(ev.VehicleID), "heartbeat", ev.VehicleID, ev.ID, ev.Timestamp, raw)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (l *LiveState) queue(ctx context.Context, pipe redis.Pipeliner, key, kind, vehicleID string, id int64, ts time.Time, raw []byte) {
	state := stateFields(vehicleID, id, ts, raw)

	pipe.HSet(ctx, key, state)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	pipe.Publish(ctx, telemetryChannel(vehicleID), announcement(kind, vehicleID, ts, raw))
}

func stateFields(vehicleID string, id int64, ts time.Time, raw []byte) map[string]any {
	return map[string]any{
		"vehicle_id": vehicleID,
		"id":         id,
		"timestamp":  ts.UTC().Format(time.RFC3339Nano),
		"raw_data":   string(raw),
	}
}

func announcement(kind, vehicleID string, ts time.Time, raw []byte) []byte {
	b, _ := json.Marshal(struct {
		Kind      string          `json:"kind"`
		VehicleID string          `json:"vehicleId"`
		Timestamp time.Time       `json:"timestamp"`
		RawData   json.RawMessage `json:"rawData"`
	}{kind, vehicleID, ts, raw})
	return b
}

func statusKey(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:status", vehicleID)
}

func heartbeatKey(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:heartbeat", vehicleID)
}

func telemetryChannel(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:telemetry", vehicleID)
}
