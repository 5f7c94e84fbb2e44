package service

import (
	"strings"
	"time"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
)

// Layouts accepted for date parameters. Those without an offset are read in
// the service location.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}
)

func (s *Service) parseDate(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.Validationf("Invalid %s: %q", name, value)
}

// parseRange parses optional bounds. Empty strings leave the bound zero.
func (s *Service) parseRange(startName, start, endName, end string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if start != "" {
		if from, err = s.parseDate(startName, start); err != nil {
			return from, to, err
		}
	}
	if end != "" {
		if to, err = s.parseDate(endName, end); err != nil {
			return from, to, err
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, core.Validationf("%s must not be after %s", startName, endName)
	}
	return from, to, nil
}

// rangeOrCurrentMonth parses bounds. With neither bound the window is the
// current calendar month; a single bound is completed from its own month.
func (s *Service) rangeOrCurrentMonth(startName, start, endName, end string) (time.Time, time.Time, error) {
	from, to, err := s.parseRange(startName, start, endName, end)
	if err != nil {
		return from, to, err
	}

	switch {
	case from.IsZero() && to.IsZero():
		now := s.clock.Now().In(s.loc)
		from, to = monthWindow(now.Year(), now.Month(), s.loc)
	case from.IsZero():
		t := to.In(s.loc)
		from, _ = monthWindow(t.Year(), t.Month(), s.loc)
	case to.IsZero():
		t := from.In(s.loc)
		_, to = monthWindow(t.Year(), t.Month(), s.loc)
	}
	return from, to, nil
}

// monthWindow returns the first and last instant of a calendar month.
func monthWindow(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// dayWindow returns the first and last instant of the calendar day containing t.
func dayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// cleanIDs trims ids and drops empty ones, keeping order.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func vehicleFilter(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
