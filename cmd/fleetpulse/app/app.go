package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpulse/cmd/fleetpulse/app/options"
	"github.com/autopeer-io/fleetpulse/pkg/app"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

const (
	commandName = "fleetpulse"
	commandDesc = `FleetPulse ingests vehicle telemetry from an MQTT broker into an
append-only event log, serves latest-state and usage reports over HTTP,
and publishes status commands back to vehicles.`
)

func NewApp() *app.App {
	opts := options.NewFleetOptions()
	application := app.NewApp(
		commandName,
		"Launch a FleetPulse telemetry server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithCommands(newReportCommand(opts)),
	)
	return application
}

func run(opts *options.FleetOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync() //nolint:errcheck

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create fleetpulse server: %w", err)
		}

		return server.Run(ctx)
	}
}
