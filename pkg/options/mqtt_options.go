package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/fleetpulse/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains configuration for MQTT client and topics.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	ClientID string `json:"client-id" mapstructure:"client-id"`

	// Client behavior
	KeepAlive        time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout   time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	ReconnectBackoff time.Duration `json:"reconnect-backoff" mapstructure:"reconnect-backoff"`
	SessionExpiry    uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart       bool          `json:"clean-start" mapstructure:"clean-start"`
	Debug            bool          `json:"debug" mapstructure:"debug"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// Last will
	WillTopic   string `json:"will-topic" mapstructure:"will-topic"`
	WillPayload string `json:"will-payload" mapstructure:"will-payload"`
	WillQoS     int    `json:"will-qos" mapstructure:"will-qos"`
	WillRetain  bool   `json:"will-retain" mapstructure:"will-retain"`

	// TopicRoot is the namespace in front of the vehicle id: {TopicRoot}/{vehicleID}/{segment}.
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`

	// SharedGroup, when set, turns the telemetry subscriptions into $share subscriptions.
	SharedGroup string `json:"shared-group" mapstructure:"shared-group"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:           "tcp://localhost:1883",
		KeepAlive:        60 * time.Second,
		ConnectTimeout:   5 * time.Second,
		ReconnectBackoff: 3 * time.Second,
		SessionExpiry:    300,
		CleanStart:       true,
		TopicRoot:        "vehicle",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.Broker == "" {
		errors = append(errors, fmt.Errorf("--mqtt.broker is required"))
	} else if u, err := url.Parse(o.Broker); err != nil || u.Host == "" {
		errors = append(errors, fmt.Errorf("--mqtt.broker %q is not a valid url", o.Broker))
	}
	if o.TopicRoot == "" {
		errors = append(errors, fmt.Errorf("--mqtt.topic-root must not be empty"))
	}
	if o.WillQoS < 0 || o.WillQoS > 2 {
		errors = append(errors, fmt.Errorf("--mqtt.will-qos must be 0, 1 or 2"))
	}
	if o.KeepAlive < time.Second || o.KeepAlive.Seconds() > 65535 {
		errors = append(errors, fmt.Errorf("--mqtt.keep-alive must be between 1s and 65535s"))
	}

	return errors
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "The URL of the MQTT broker.")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "Explicit Client ID (optional, derived from the hostname when empty).")

	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout for establishing MQTT connection.")
	fs.DurationVar(&o.ReconnectBackoff, "mqtt.reconnect-backoff", o.ReconnectBackoff, "Delay between reconnection attempts.")
	fs.Uint32Var(&o.SessionExpiry, "mqtt.session-expiry", o.SessionExpiry, "MQTT Session Expiry Interval in seconds.")
	fs.BoolVar(&o.CleanStart, "mqtt.clean-start", o.CleanStart, "Start a clean session; set false to receive telemetry queued while offline.")
	fs.BoolVar(&o.Debug, "mqtt.debug", o.Debug, "Log the MQTT library's internal trace at debug verbosity.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	fs.StringVar(&o.WillTopic, "mqtt.will-topic", o.WillTopic, "Topic of the last-will message (disabled when empty).")
	fs.StringVar(&o.WillPayload, "mqtt.will-payload", o.WillPayload, "Payload of the last-will message.")
	fs.IntVar(&o.WillQoS, "mqtt.will-qos", o.WillQoS, "QoS of the last-will message.")
	fs.BoolVar(&o.WillRetain, "mqtt.will-retain", o.WillRetain, "Retain the last-will message.")

	// Topics
	fs.StringVar(&o.TopicRoot, "mqtt.topic-root", o.TopicRoot, "Topic namespace in front of the vehicle id.")
	fs.StringVar(&o.SharedGroup, "mqtt.shared-group", o.SharedGroup, "Shared subscription group for telemetry (empty disables sharing).")
}

func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	cfg := &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           o.ClientID,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		SessionExpiry:      o.SessionExpiry,
		ConnectTimeout:     o.ConnectTimeout,
		ReconnectBackoff:   o.ReconnectBackoff,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
		Debug:              o.Debug,
	}

	if o.WillTopic != "" {
		cfg.WillTopic = o.WillTopic
		cfg.WillPayload = []byte(o.WillPayload)
		cfg.WillQoS = byte(o.WillQoS)
		cfg.WillRetain = o.WillRetain
	}

	return cfg
}
