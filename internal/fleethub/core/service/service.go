package service

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

const (
	defaultListLimit   = 100
	defaultPageLimit   = 100
	maxPageLimit       = 1000
	defaultConcurrency = 8
)

// Service implements the read side of fleetpulse (latest-state projections
// and usage rollups over the event logs) plus operator commands.
type Service struct {
	store     core.EventStore
	publisher core.CommandPublisher

	clock       clock.PassiveClock
	loc         *time.Location
	concurrency int
	logger      log.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for "current month" defaults.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the zone of calendar windows and offset-less dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithConcurrency bounds the per-vehicle fan-out of bulk queries.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates the core service. publisher may be nil for read-only use.
func New(store core.EventStore, publisher core.CommandPublisher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		publisher:   publisher,
		clock:       clock.RealClock{},
		loc:         time.Local,
		concurrency: defaultConcurrency,
		logger:      log.WithName("service"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the zone used for calendar windows.
func (s *Service) Location() *time.Location {
	return s.loc
}
