package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

var _ core.EventStore = (*Store)(nil)

// Store keeps the event logs in PostgreSQL (TimescaleDB works unchanged).
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects the pool, verifies it and optionally applies the schema.
func NewStore(ctx context.Context, opts *options.StoreOptions) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid store dsn: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &Store{pool: pool}
	if opts.Migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	log.Info("Event store connected", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) AppendStatus(ctx context.Context, ev *model.StatusEvent) error {
	raw, err := json.Marshal(ev.RawData)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO vehicle_status_log (vehicle_id, ts, raw_data) VALUES ($1, $2, $3) RETURNING id`,
		ev.VehicleID, ev.Timestamp, raw,
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("failed to insert status for %s: %w", ev.VehicleID, err)
	}
	return nil
}

var heartbeatColumns = []string{"vehicle_id", "ts", "raw_data"}

// AppendHeartbeats writes a batch with COPY. IDs are not read back.
func (s *Store) AppendHeartbeats(ctx context.Context, evs []*model.HeartbeatEvent) error {
	if len(evs) == 0 {
		return nil
	}

	rows := make([][]any, len(evs))
	for i, ev := range evs {
		raw, err := json.Marshal(ev.RawData)
		if err != nil {
			return fmt.Errorf("failed to encode heartbeat: %w", err)
		}
		rows[i] = []any{ev.VehicleID, ev.Timestamp, raw}
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{heartbeatTable}, heartbeatColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(evs), err)
	}
	return nil
}

func (s *Store) FindStatuses(ctx context.Context, q core.Query) ([]model.StatusEvent, error) {
	sql, args := selectSQL(statusTable, q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.StatusEvent, error) {
		var ev model.StatusEvent
		err := row.Scan(&ev.ID, &ev.VehicleID, &ev.Timestamp, &ev.RawData)
		return ev, err
	})
}

func (s *Store) FindHeartbeats(ctx context.Context, q core.Query) ([]model.HeartbeatEvent, error) {
	sql, args := selectSQL(heartbeatTable, q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query heartbeats: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.HeartbeatEvent, error) {
		var ev model.HeartbeatEvent
		err := row.Scan(&ev.ID, &ev.VehicleID, &ev.Timestamp, &ev.RawData)
		return ev, err
	})
}

func (s *Store) CountHeartbeats(ctx context.Context, q core.Query) (int64, error) {
	where, args := whereClause(q)

	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+heartbeatTable+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count heartbeats: %w", err)
	}
	return n, nil
}

func selectSQL(table string, q core.Query) (string, []any) {
	where, args := whereClause(q)

	var b strings.Builder
	b.WriteString("SELECT id, vehicle_id, ts, raw_data FROM ")
	b.WriteString(table)
	b.WriteString(where)
	if q.Ascending {
		b.WriteString(" ORDER BY ts ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY ts DESC, id DESC")
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func whereClause(q core.Query) (string, []any) {
	var conds []string
	var args []any
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch len(q.VehicleIDs) {
	case 0:
	case 1:
		conds = append(conds, "vehicle_id = "+param(q.VehicleIDs[0]))
	default:
		conds = append(conds, "vehicle_id = ANY("+param(q.VehicleIDs)+")")
	}
	if !q.Start.IsZero() {
		conds = append(conds, "ts >= "+param(q.Start))
	}
	if !q.End.IsZero() {
		conds = append(conds, "ts <= "+param(q.End))
	}
	for _, f := range q.Require {
		conds = append(conds, "raw_data ->> "+param(string(f))+" IS NOT NULL")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
