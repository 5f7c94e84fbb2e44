package service

import (
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// UsageTimeSeries returns, for every requested vehicle, its usage samples in
// ascending time with the clamped delta to the previous sample. The window
// defaults to the current calendar month.
func (s *Service) UsageTimeSeries(ctx context.Context, vehicleIDs []string, startDateTime, endDateTime string) ([]model.VehicleSeries, error) {
	ids := cleanIDs(vehicleIDs)
	if len(ids) == 0 {
		return nil, core.Validationf("Missing vehicleId in query")
	}

	from, to, err := s.rangeOrCurrentMonth("startDateTime", startDateTime, "endDateTime", endDateTime)
	if err != nil {
		return nil, err
	}

	out := make([]model.VehicleSeries, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			events, err := s.store.FindHeartbeats(gctx, usageQuery(id, from, to))
			if err != nil {
				return err
			}
			out[i] = model.VehicleSeries{
				VehicleID:     id,
				StartDateTime: from,
				EndDateTime:   to,
				Points:        toPoints(events, nil),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// UsageTimeSeriesBulk pages each vehicle's series independently, then
// optionally folds the page into hourly or daily buckets.
func (s *Service) UsageTimeSeriesBulk(ctx context.Context, req model.BulkSeriesRequest) ([]model.PagedSeries, error) {
	if len(req.Vehicles) == 0 {
		return nil, core.Validationf("vehicles must contain at least one entry")
	}

	interval, err := parseInterval(req.Interval)
	if err != nil {
		return nil, err
	}

	page, limit := req.Page, req.Limit
	switch {
	case page < 0:
		return nil, core.Validationf("page must be a positive number")
	case page == 0:
		page = 1
	}
	switch {
	case limit < 0:
		return nil, core.Validationf("limit must be a positive number")
	case limit == 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}
	if page-1 > math.MaxInt/limit-1 {
		return nil, core.Validationf("page %d is out of range for limit %d", page, limit)
	}

	type window struct {
		id       string
		from, to time.Time
	}
	windows := make([]window, len(req.Vehicles))
	for i, cfg := range req.Vehicles {
		id := strings.TrimSpace(cfg.VehicleID)
		if id == "" {
			return nil, core.Validationf("vehicles[%d].vehicleId is required", i)
		}
		from, to, err := s.rangeOrCurrentMonth("startDateTime", cfg.StartDateTime, "endDateTime", cfg.EndDateTime)
		if err != nil {
			return nil, err
		}
		windows[i] = window{id: id, from: from, to: to}
	}

	out := make([]model.PagedSeries, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, w := range windows {
		g.Go(func() error {
			series, err := s.pagedSeries(gctx, w.id, w.from, w.to, page, limit)
			if err != nil {
				return err
			}
			if interval != model.IntervalNone {
				series.Points = bucketize(series.Points, interval, s.loc)
				series.Interval = interval
			}
			out[i] = *series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) pagedSeries(ctx context.Context, vehicleID string, from, to time.Time, page, limit int) (*model.PagedSeries, error) {
	q := usageQuery(vehicleID, from, to)

	total, err := s.store.CountHeartbeats(ctx, q)
	if err != nil {
		return nil, err
	}

	// Fetch one record before the page so its first delta has a predecessor.
	offset := (page - 1) * limit
	q.Offset, q.Limit = offset, limit
	if offset > 0 {
		q.Offset, q.Limit = offset-1, limit+1
	}

	events, err := s.store.FindHeartbeats(ctx, q)
	if err != nil {
		return nil, err
	}

	var prev *model.HeartbeatEvent
	if offset > 0 && len(events) > 0 {
		prev, events = &events[0], events[1:]
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &model.PagedSeries{
		VehicleSeries: model.VehicleSeries{
			VehicleID:     vehicleID,
			StartDateTime: from,
			EndDateTime:   to,
			Points:        toPoints(events, prev),
		},
		Pagination: model.Pagination{
			Page:         page,
			Limit:        limit,
			TotalRecords: total,
			TotalPages:   totalPages,
			HasMore:      int64(offset)+int64(len(events)) < total,
		},
	}, nil
}

func usageQuery(vehicleID string, from, to time.Time) core.Query {
	return core.Query{
		VehicleIDs: []string{vehicleID},
		Start:      from,
		End:        to,
		Require:    []core.Field{core.FieldTotalUsageTime},
		Ascending:  true,
	}
}

// toPoints converts ascending heartbeats into points. The first point's delta
// is measured against prev, or is zero when there is none.
func toPoints(events []model.HeartbeatEvent, prev *model.HeartbeatEvent) []model.TimeSeriesPoint {
	points := make([]model.TimeSeriesPoint, 0, len(events))

	var last float64
	havePrev := false
	if prev != nil {
		last, havePrev = prev.Usage()
	}

	for i := range events {
		usage, _ := events[i].Usage()
		p := model.TimeSeriesPoint{Timestamp: events[i].Timestamp, TotalUsage: usage}
		if havePrev {
			p.UsageDelta = clampDelta(usage, last)
		}
		points = append(points, p)
		last, havePrev = usage, true
	}
	return points
}

func parseInterval(v string) (model.Interval, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return model.IntervalNone, nil
	case "hour", "hourly":
		return model.IntervalHour, nil
	case "day", "daily":
		return model.IntervalDay, nil
	default:
		return model.IntervalNone, core.Validationf("interval must be one of hour, hourly, day, daily; got %q", v)
	}
}

// bucketize folds ascending points into buckets starting at the hour or day
// boundary. A bucket reports its last usage and last minus first as delta.
func bucketize(points []model.TimeSeriesPoint, interval model.Interval, loc *time.Location) []model.TimeSeriesPoint {
	out := make([]model.TimeSeriesPoint, 0)

	var first float64
	for _, p := range points {
		start := bucketStart(p.Timestamp, interval, loc)

		n := len(out)
		if n == 0 || !out[n-1].Timestamp.Equal(start) {
			first = p.TotalUsage
			out = append(out, model.TimeSeriesPoint{Timestamp: start})
			n++
		}

		b := &out[n-1]
		b.TotalUsage = p.TotalUsage
		b.UsageDelta = clampDelta(p.TotalUsage, first)
		b.RecordCount++
	}
	return out
}

func bucketStart(t time.Time, interval model.Interval, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	if interval == model.IntervalHour {
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
