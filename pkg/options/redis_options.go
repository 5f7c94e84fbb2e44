package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RedisOptions)(nil)

// RedisOptions configures the live-state mirror. An empty Addr disables it.
type RedisOptions struct {
	Addr     string        `json:"addr" mapstructure:"addr"`
	Password string        `json:"password" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db"`
	PoolSize int           `json:"pool-size" mapstructure:"pool-size"`
	StateTTL time.Duration `json:"state-ttl" mapstructure:"state-ttl"`
}

func NewRedisOptions() *RedisOptions {
	return &RedisOptions{
		PoolSize: 20,
		StateTTL: 10 * time.Minute,
	}
}

// Enabled reports whether a Redis address is configured.
func (o *RedisOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

func (o *RedisOptions) Validate() []error {
	errors := []error{}

	if !o.Enabled() {
		return errors
	}
	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "redis.addr", o.Addr, "Redis address for the live vehicle state mirror (empty disables it).")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Redis password.")
	fs.IntVar(&o.DB, "redis.db", o.DB, "Redis database number.")
	fs.IntVar(&o.PoolSize, "redis.pool-size", o.PoolSize, "Redis connection pool size.")
	fs.DurationVar(&o.StateTTL, "redis.state-ttl", o.StateTTL, "Expiry of mirrored vehicle state keys.")
}
