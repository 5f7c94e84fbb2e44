package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*QueryOptions)(nil)

// QueryOptions tunes the aggregation engine.
type QueryOptions struct {
	// Timezone is the IANA location used for calendar windows and for dates
	// given without an offset. "Local" uses the server's zone.
	Timezone string `json:"timezone" mapstructure:"timezone"`

	// Concurrency bounds the per-vehicle fan-out of bulk queries.
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`
}

func NewQueryOptions() *QueryOptions {
	return &QueryOptions{
		Timezone:    "Local",
		Concurrency: 8,
	}
}

// Location resolves Timezone.
func (o *QueryOptions) Location() (*time.Location, error) {
	return time.LoadLocation(o.Timezone)
}

func (o *QueryOptions) Validate() []error {
	errors := []error{}

	if _, err := o.Location(); err != nil {
		errors = append(errors, fmt.Errorf("--query.timezone: %w", err))
	}
	if o.Concurrency < 1 {
		errors = append(errors, fmt.Errorf("--query.concurrency must be at least 1"))
	}

	return errors
}

func (o *QueryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Timezone, "query.timezone", o.Timezone, "Time zone for calendar windows and offset-less dates.")
	fs.IntVar(&o.Concurrency, "query.concurrency", o.Concurrency, "Maximum vehicles queried in parallel by bulk endpoints.")
}
