// Package fleethub assembles the telemetry ingestion, query and command
// components into one runnable server.
package fleethub

import (
	"context"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/server"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

// FleetPulseServer is the main application struct.
type FleetPulseServer struct {
	serverManager *server.Manager
	closers       []func() error
}

// Run starts every server and blocks until ctx is done or one of them fails.
// Backends are closed once all servers have returned.
func (a *FleetPulseServer) Run(ctx context.Context) error {
	log.Info("Starting FleetPulse...")
	defer a.close()

	return a.serverManager.Start(ctx)
}

func (a *FleetPulseServer) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		log.Error(err, "Failed to release resources")
	}
	a.closers = nil
}
