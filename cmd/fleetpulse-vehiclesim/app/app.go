package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpulse/cmd/fleetpulse-vehiclesim/app/options"
	"github.com/autopeer-io/fleetpulse/pkg/app"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

const (
	commandName = "fleetpulse-vehiclesim"
	commandDesc = `The FleetPulse vehicle simulator publishes status and heartbeat
telemetry for one vehicle and applies status commands sent on wrstatus.`
)

func NewApp() *app.App {
	opts := options.NewSimulatorOptions()
	application := app.NewApp(
		commandName,
		"Launch a simulated vehicle",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.SimulatorOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync() //nolint:errcheck

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create simulated vehicle: %w", err)
		}

		return agent.Run(ctx)
	}
}
