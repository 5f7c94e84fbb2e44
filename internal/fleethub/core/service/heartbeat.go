package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// ListHeartbeats returns heartbeat events newest first, at most Limit (default 100).
func (s *Service) ListHeartbeats(ctx context.Context, p ListParams) ([]model.HeartbeatEvent, error) {
	q, err := s.listQuery(p)
	if err != nil {
		return nil, err
	}
	return s.store.FindHeartbeats(ctx, q)
}

// LatestHeartbeat returns the newest heartbeat of a vehicle, or of the fleet
// when vehicleID is empty.
func (s *Service) LatestHeartbeat(ctx context.Context, vehicleID string) (*model.HeartbeatEvent, error) {
	vehicleID = strings.TrimSpace(vehicleID)

	events, err := s.store.FindHeartbeats(ctx, core.Query{VehicleIDs: vehicleFilter(vehicleID), Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		if vehicleID == "" {
			vehicleID = "any vehicle"
		}
		return nil, core.NotFoundf("No heartbeat found for vehicle %s", vehicleID)
	}
	return &events[0], nil
}

// LatestHeartbeatBulk returns the newest heartbeat per vehicle inside the
// window, which defaults to the current calendar month. Vehicles without a
// heartbeat in the window are left out.
func (s *Service) LatestHeartbeatBulk(ctx context.Context, vehicleIDs []string, startDateTime, endDateTime string) ([]model.HeartbeatEvent, error) {
	ids := cleanIDs(vehicleIDs)
	if len(ids) == 0 {
		return nil, core.Validationf("Missing vehicleId in query")
	}

	from, to, err := s.rangeOrCurrentMonth("startDateTime", startDateTime, "endDateTime", endDateTime)
	if err != nil {
		return nil, err
	}

	found := make([]*model.HeartbeatEvent, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			events, err := s.store.FindHeartbeats(gctx, core.Query{
				VehicleIDs: []string{id},
				Start:      from,
				End:        to,
				Limit:      1,
			})
			if err == nil && len(events) > 0 {
				found[i] = &events[0]
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.HeartbeatEvent, 0, len(ids))
	for _, ev := range found {
		if ev != nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}
