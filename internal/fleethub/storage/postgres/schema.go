package postgres

import (
	"context"
	"fmt"
)

const (
	statusTable    = "vehicle_status_log"
	heartbeatTable = "vehicle_heartbeat_log"
)

// schema creates the two append-only logs. Rows are never updated, so the
// only index needed is the per-vehicle time lookup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicle_status_log (
		id          BIGSERIAL PRIMARY KEY,
		vehicle_id  TEXT        NOT NULL,
		ts          TIMESTAMPTZ NOT NULL,
		raw_data    JSONB       NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS vehicle_status_log_vehicle_ts_idx
		ON vehicle_status_log (vehicle_id, ts DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS vehicle_heartbeat_log (
		id          BIGSERIAL PRIMARY KEY,
		vehicle_id  TEXT        NOT NULL,
		ts          TIMESTAMPTZ NOT NULL,
		raw_data    JSONB       NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS vehicle_heartbeat_log_vehicle_ts_idx
		ON vehicle_heartbeat_log (vehicle_id, ts DESC, id DESC)`,
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
