package main

import (
	"github.com/autopeer-io/fleetpulse/cmd/fleetpulse-vehiclesim/app"
)

func main() {
	app.NewApp().Run()
}
