package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// DailyUsage returns one entry per requested vehicle for the calendar day
// containing date. Vehicles without usable heartbeats get a zero entry.
func (s *Service) DailyUsage(ctx context.Context, vehicleIDs []string, date string) ([]model.DailyUsage, error) {
	ids := cleanIDs(vehicleIDs)
	if len(ids) == 0 {
		return nil, core.Validationf("Missing vehicleId in query")
	}
	if date == "" {
		return nil, core.Validationf("date is required")
	}

	day, err := s.parseDate("date", date)
	if err != nil {
		return nil, err
	}
	from, to := dayWindow(day, s.loc)
	label := from.Format(time.DateOnly)

	out := make([]model.DailyUsage, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			events, err := s.store.FindHeartbeats(gctx, core.Query{
				VehicleIDs: []string{id},
				Start:      from,
				End:        to,
				Require:    []core.Field{core.FieldTotalUsageTime},
				Ascending:  true,
			})
			if err != nil {
				return err
			}

			entry := model.DailyUsage{VehicleID: id, Date: label, RecordCount: len(events)}
			if len(events) > 0 {
				first, last := events[0], events[len(events)-1]
				startUsage, _ := first.Usage()
				endUsage, _ := last.Usage()
				entry.DailyUsage = clampDelta(endUsage, startUsage)
				entry.StartUsage, entry.EndUsage = &startUsage, &endUsage
				entry.StartTime, entry.EndTime = &first.Timestamp, &last.Timestamp
			}
			out[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyUsage is the last minus the first usage counter reported during the
// month. Resets inside the month are not detected.
func (s *Service) MonthlyUsage(ctx context.Context, year, month int, vehicleID string) (*model.MonthlyUsage, error) {
	if year < 1 || year > 9999 {
		return nil, core.Validationf("Year parameter is required and must be a valid number.")
	}
	if month < 1 || month > 12 {
		return nil, core.Validationf("Month parameter is required and must be a valid number between 1 and 12.")
	}

	from, to := monthWindow(year, time.Month(month), s.loc)
	q := core.Query{
		VehicleIDs: vehicleFilter(vehicleID),
		Start:      from,
		End:        to,
		Require:    []core.Field{core.FieldTotalUsageTime},
		Limit:      1,
	}

	var first, last []model.HeartbeatEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		asc := q
		asc.Ascending = true
		first, err = s.store.FindHeartbeats(gctx, asc)
		return err
	})
	g.Go(func() (err error) {
		last, err = s.store.FindHeartbeats(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	usage := &model.MonthlyUsage{Year: year, Month: month, VehicleID: vehicleID}
	if len(first) == 0 || len(last) == 0 {
		return usage, nil
	}

	startUsage, _ := first[0].Usage()
	endUsage, _ := last[0].Usage()
	usage.StartUsage, usage.EndUsage = &startUsage, &endUsage
	usage.StartDate, usage.EndDate = &first[0].Timestamp, &last[0].Timestamp
	if first[0].ID != last[0].ID {
		usage.MonthlyUsage = clampDelta(endUsage, startUsage)
	}
	return usage, nil
}

// YearlyUsage sums the twelve monthly usages of the year, so a counter reset
// only hides usage within the month it happened in.
func (s *Service) YearlyUsage(ctx context.Context, year int, vehicleID string) (*model.YearlyUsage, error) {
	if year < 1 || year > 9999 {
		return nil, core.Validationf("Year parameter is required and must be a valid number.")
	}

	months := make([]model.MonthlyUsage, 12)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range months {
		g.Go(func() error {
			m, err := s.MonthlyUsage(gctx, year, i+1, vehicleID)
			if err != nil {
				return err
			}
			months[i] = *m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	yearly := &model.YearlyUsage{Year: year, VehicleID: vehicleID, MonthlyBreakdown: months}
	for _, m := range months {
		yearly.TotalYearlyUsage += m.MonthlyUsage
	}
	return yearly, nil
}

// clampDelta returns cur - prev, or zero when the counter went backwards.
func clampDelta(cur, prev float64) float64 {
	if d := cur - prev; d > 0 {
		return d
	}
	return 0
}
