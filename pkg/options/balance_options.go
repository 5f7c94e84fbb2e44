package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BalanceOptions)(nil)

// BalanceOptions configures the external balance-check service.
// An empty BaseURL disables balance checks.
type BalanceOptions struct {
	BaseURL  string        `json:"base-url" mapstructure:"base-url"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Attempts int           `json:"attempts" mapstructure:"attempts"`
	Delay    time.Duration `json:"delay" mapstructure:"delay"`
}

func NewBalanceOptions() *BalanceOptions {
	return &BalanceOptions{
		Timeout:  10 * time.Second,
		Attempts: 3,
		Delay:    1000 * time.Millisecond,
	}
}

// Enabled reports whether a balance service is configured.
func (o *BalanceOptions) Enabled() bool {
	return o != nil && o.BaseURL != ""
}

func (o *BalanceOptions) Validate() []error {
	errors := []error{}

	if !o.Enabled() {
		return errors
	}
	if u, err := url.Parse(o.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Errorf("--balance.base-url %q is not an absolute url", o.BaseURL))
	}
	if o.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("--balance.timeout must be positive"))
	}
	if o.Attempts < 1 {
		errors = append(errors, fmt.Errorf("--balance.attempts must be at least 1"))
	}
	if o.Delay < 0 {
		errors = append(errors, fmt.Errorf("--balance.delay must not be negative"))
	}

	return errors
}

func (o *BalanceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "balance.base-url", o.BaseURL, "Base URL of the balance-check service (empty disables checks).")
	fs.DurationVar(&o.Timeout, "balance.timeout", o.Timeout, "Timeout of a single balance-check attempt.")
	fs.IntVar(&o.Attempts, "balance.attempts", o.Attempts, "Attempts per balance check, including the first.")
	fs.DurationVar(&o.Delay, "balance.delay", o.Delay, "Delay between balance-check attempts.")
}
