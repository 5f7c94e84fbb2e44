package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/fleetpulse/cmd/fleetpulse/app"
)

func main() {
	app.NewApp().Run()
}
