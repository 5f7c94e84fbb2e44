package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SimOptions)(nil)

// SimOptions configures a simulated vehicle.
type SimOptions struct {
	// VehicleID is the id published under; empty falls back to FLEETPULSE_VEHICLE_ID.
	VehicleID string `json:"vehicle-id" mapstructure:"vehicle-id"`

	Model  int `json:"model" mapstructure:"model"`
	Status int `json:"status" mapstructure:"status"`

	// Interval between two sensor samples.
	Interval time.Duration `json:"interval" mapstructure:"interval"`

	// BatchSize samples are sent together in one heartbeat message.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`

	// UsageStep is added to the cumulative usage counter on every sample.
	UsageStep float64 `json:"usage-step" mapstructure:"usage-step"`
}

func NewSimOptions() *SimOptions {
	return &SimOptions{
		Model:     1,
		Status:    1,
		Interval:  5 * time.Second,
		BatchSize: 6,
		UsageStep: 1,
	}
}

func (o *SimOptions) Validate() []error {
	errors := []error{}

	if o.Interval <= 0 {
		errors = append(errors, fmt.Errorf("--sim.interval must be positive"))
	}
	if o.BatchSize < 1 {
		errors = append(errors, fmt.Errorf("--sim.batch-size must be at least 1"))
	}
	if o.UsageStep < 0 {
		errors = append(errors, fmt.Errorf("--sim.usage-step must not be negative"))
	}

	return errors
}

func (o *SimOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.VehicleID, "sim.vehicle-id", o.VehicleID, "Vehicle id to publish under.")
	fs.IntVar(&o.Model, "sim.model", o.Model, "Model number reported with every status.")
	fs.IntVar(&o.Status, "sim.status", o.Status, "Initial status reported at startup.")
	fs.DurationVar(&o.Interval, "sim.interval", o.Interval, "Interval between sensor samples.")
	fs.IntVar(&o.BatchSize, "sim.batch-size", o.BatchSize, "Samples per heartbeat message.")
	fs.Float64Var(&o.UsageStep, "sim.usage-step", o.UsageStep, "Usage added to total_usage_time per sample.")
}
