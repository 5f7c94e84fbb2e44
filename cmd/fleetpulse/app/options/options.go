package options

import (
	"fmt"
	"os"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpulse/internal/fleethub"
	"github.com/autopeer-io/fleetpulse/pkg/app"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

type FleetOptions struct {
	HttpOptions    *options.HttpOptions    `json:"http" mapstructure:"http"`
	MqttOptions    *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	StoreOptions   *options.StoreOptions   `json:"store" mapstructure:"store"`
	RedisOptions   *options.RedisOptions   `json:"redis" mapstructure:"redis"`
	S3Options      *options.S3Options      `json:"s3" mapstructure:"s3"`
	BalanceOptions *options.BalanceOptions `json:"balance" mapstructure:"balance"`
	IngestOptions  *options.IngestOptions  `json:"ingest" mapstructure:"ingest"`
	QueryOptions   *options.QueryOptions   `json:"query" mapstructure:"query"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*FleetOptions)(nil)

func NewFleetOptions() *FleetOptions {
	o := &FleetOptions{
		HttpOptions:    options.NewHttpOptions(),
		MqttOptions:    options.NewMqttOptions(),
		StoreOptions:   options.NewStoreOptions(),
		RedisOptions:   options.NewRedisOptions(),
		S3Options:      options.NewS3Options(),
		BalanceOptions: options.NewBalanceOptions(),
		IngestOptions:  options.NewIngestOptions(),
		QueryOptions:   options.NewQueryOptions(),
		Log:            log.NewOptions(),
	}

	return o
}

func (o *FleetOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.BalanceOptions.AddFlags(fss.FlagSet("balance"))
	o.IngestOptions.AddFlags(fss.FlagSet("ingest"))
	o.QueryOptions.AddFlags(fss.FlagSet("query"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete fills the MQTT client id from the hostname so replicas never
// share a session.
func (o *FleetOptions) Complete() error {
	if o.MqttOptions.ClientID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to derive mqtt client id: %w", err)
		}
		o.MqttOptions.ClientID = "fleetpulse-" + hostname
	}
	return nil
}

func (o *FleetOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.BalanceOptions.Validate()...)
	errs = append(errs, o.IngestOptions.Validate()...)
	errs = append(errs, o.QueryOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *FleetOptions) Config() (*fleethub.Config, error) {
	return &fleethub.Config{
		HttpOptions:    o.HttpOptions,
		MqttOptions:    o.MqttOptions,
		StoreOptions:   o.StoreOptions,
		RedisOptions:   o.RedisOptions,
		S3Options:      o.S3Options,
		BalanceOptions: o.BalanceOptions,
		IngestOptions:  o.IngestOptions,
		QueryOptions:   o.QueryOptions,
	}, nil
}
