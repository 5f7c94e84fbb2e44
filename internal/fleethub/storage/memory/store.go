package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

var _ core.EventStore = (*Store)(nil)

// Store is an in-process EventStore. Events live only as long as the process.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	statuses   []model.StatusEvent
	heartbeats []model.HeartbeatEvent
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) AppendStatus(ctx context.Context, ev *model.StatusEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev.ID = s.seq
	s.statuses = append(s.statuses, *ev)
	return nil
}

func (s *Store) AppendHeartbeats(ctx context.Context, evs []*model.HeartbeatEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range evs {
		s.seq++
		ev.ID = s.seq
		s.heartbeats = append(s.heartbeats, *ev)
	}
	return nil
}

func (s *Store) FindStatuses(ctx context.Context, q core.Query) ([]model.StatusEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []model.StatusEvent
	for _, ev := range s.statuses {
		if matchCommon(q, ev.VehicleID, ev.Timestamp) && hasStatusFields(ev, q.Require) {
			out = append(out, ev)
		}
	}
	s.mu.RUnlock()

	sortEvents(out, q.Ascending, func(e model.StatusEvent) (int64, int64) { return e.Timestamp.UnixNano(), e.ID })
	return page(out, q), nil
}

func (s *Store) FindHeartbeats(ctx context.Context, q core.Query) ([]model.HeartbeatEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := s.matchHeartbeats(q)
	sortEvents(out, q.Ascending, func(e model.HeartbeatEvent) (int64, int64) { return e.Timestamp.UnixNano(), e.ID })
	return page(out, q), nil
}

func (s *Store) CountHeartbeats(ctx context.Context, q core.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(s.matchHeartbeats(q))), nil
}

func (s *Store) matchHeartbeats(q core.Query) []model.HeartbeatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.HeartbeatEvent
	for _, ev := range s.heartbeats {
		if matchCommon(q, ev.VehicleID, ev.Timestamp) && hasHeartbeatFields(ev, q.Require) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

func matchCommon(q core.Query, vehicleID string, ts time.Time) bool {
	if len(q.VehicleIDs) > 0 && !slices.Contains(q.VehicleIDs, vehicleID) {
		return false
	}
	if !q.Start.IsZero() && ts.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ts.After(q.End) {
		return false
	}
	return true
}

func hasStatusFields(ev model.StatusEvent, fields []core.Field) bool {
	for _, f := range fields {
		switch f {
		case core.FieldStatus:
			if ev.RawData.Status == nil {
				return false
			}
		case core.FieldModel:
			if ev.RawData.Model == nil {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func hasHeartbeatFields(ev model.HeartbeatEvent, fields []core.Field) bool {
	for _, f := range fields {
		if f != core.FieldTotalUsageTime || ev.RawData.TotalUsageTime == nil {
			return false
		}
	}
	return true
}

func sortEvents[E any](evs []E, ascending bool, key func(E) (int64, int64)) {
	slices.SortStableFunc(evs, func(a, b E) int {
		at, aid := key(a)
		bt, bid := key(b)
		c := cmp.Compare(at, bt)
		if c == 0 {
			c = cmp.Compare(aid, bid)
		}
		if !ascending {
			c = -c
		}
		return c
	})
}

func page[E any](evs []E, q core.Query) []E {
	if q.Offset > 0 {
		if q.Offset >= len(evs) {
			return nil
		}
		evs = evs[q.Offset:]
	}
	if q.Limit > 0 && len(evs) > q.Limit {
		evs = evs[:q.Limit]
	}
	return evs
}
