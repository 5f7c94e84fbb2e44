package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// ListParams filters the raw log listings.
type ListParams struct {
	VehicleID string
	StartDate string
	EndDate   string
	Limit     int
}

// ListStatuses returns status events newest first, at most Limit (default 100).
func (s *Service) ListStatuses(ctx context.Context, p ListParams) ([]model.StatusEvent, error) {
	q, err := s.listQuery(p)
	if err != nil {
		return nil, err
	}
	return s.store.FindStatuses(ctx, q)
}

func (s *Service) listQuery(p ListParams) (core.Query, error) {
	from, to, err := s.parseRange("startDate", p.StartDate, "endDate", p.EndDate)
	if err != nil {
		return core.Query{}, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	return core.Query{
		VehicleIDs: vehicleFilter(strings.TrimSpace(p.VehicleID)),
		Start:      from,
		End:        to,
		Limit:      limit,
	}, nil
}

// LatestStatus returns the newest status event that carries a status value,
// for one vehicle or, with an empty id, for the whole fleet.
func (s *Service) LatestStatus(ctx context.Context, vehicleID string) (*model.LatestStatus, error) {
	vehicleID = strings.TrimSpace(vehicleID)

	events, err := s.store.FindStatuses(ctx, core.Query{
		VehicleIDs: vehicleFilter(vehicleID),
		Require:    []core.Field{core.FieldStatus},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		if vehicleID == "" {
			vehicleID = "any vehicle"
		}
		return nil, core.NotFoundf("No status found for vehicle %s", vehicleID)
	}

	ev := events[0]
	return &model.LatestStatus{
		VehicleID: ev.VehicleID,
		Timestamp: ev.Timestamp,
		Status:    *ev.RawData.Status,
	}, nil
}

// LatestModelStatus returns the newest reported model of a vehicle.
func (s *Service) LatestModelStatus(ctx context.Context, vehicleID string) (*model.ModelStatus, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, core.Validationf("Vehicle ID is required.")
	}

	ms, err := s.latestModel(ctx, vehicleID, core.Query{})
	if err != nil {
		return nil, err
	}
	if ms == nil {
		return nil, core.NotFoundf("No status with a model found for vehicle %s", vehicleID)
	}
	return ms, nil
}

// LatestModelStatusBulk returns the newest model per vehicle inside the
// optional range, in input order. Vehicles without a match are left out.
func (s *Service) LatestModelStatusBulk(ctx context.Context, vehicleIDs []string, startDate, endDate string) ([]model.ModelStatus, error) {
	ids := cleanIDs(vehicleIDs)
	if len(ids) == 0 {
		return nil, core.Validationf("Missing vehicleId in query")
	}

	from, to, err := s.parseRange("startDate", startDate, "endDate", endDate)
	if err != nil {
		return nil, err
	}

	found := make([]*model.ModelStatus, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			ms, err := s.latestModel(gctx, id, core.Query{Start: from, End: to})
			found[i] = ms
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.ModelStatus, 0, len(ids))
	for _, ms := range found {
		if ms != nil {
			out = append(out, *ms)
		}
	}
	return out, nil
}

func (s *Service) latestModel(ctx context.Context, vehicleID string, q core.Query) (*model.ModelStatus, error) {
	q.VehicleIDs = []string{vehicleID}
	q.Require = []core.Field{core.FieldModel}
	q.Limit = 1

	events, err := s.store.FindStatuses(ctx, q)
	if err != nil || len(events) == 0 {
		return nil, err
	}

	ev := events[0]
	return &model.ModelStatus{
		VehicleID: ev.VehicleID,
		Model:     *ev.RawData.Model,
		Timestamp: ev.Timestamp,
	}, nil
}

// VehicleData returns the recent statuses and heartbeats of one vehicle.
func (s *Service) VehicleData(ctx context.Context, vehicleID string) (*model.VehicleData, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, core.Validationf("Vehicle ID is required in the URL path.")
	}

	var data model.VehicleData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Statuses, err = s.ListStatuses(gctx, ListParams{VehicleID: vehicleID})
		return err
	})
	g.Go(func() (err error) {
		data.Heartbeats, err = s.ListHeartbeats(gctx, ListParams{VehicleID: vehicleID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
