package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpulse/internal/vehiclesim"
	"github.com/autopeer-io/fleetpulse/pkg/app"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

type SimulatorOptions struct {
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	SimOptions  *options.SimOptions  `json:"sim" mapstructure:"sim"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*SimulatorOptions)(nil)

func NewSimulatorOptions() *SimulatorOptions {
	o := &SimulatorOptions{
		MqttOptions: options.NewMqttOptions(),
		SimOptions:  options.NewSimOptions(),
		Log:         log.NewOptions(),
	}

	return o
}

func (o *SimulatorOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.SimOptions.AddFlags(fss.FlagSet("sim"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *SimulatorOptions) Complete() error {
	return nil
}

func (o *SimulatorOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.SimOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *SimulatorOptions) Config() (*vehiclesim.Config, error) {
	return &vehiclesim.Config{
		MqttOptions: o.MqttOptions,
		SimOptions:  o.SimOptions,
	}, nil
}
