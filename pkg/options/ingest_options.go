package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*IngestOptions)(nil)

// IngestOptions tunes the telemetry consumer.
type IngestOptions struct {
	// QueueSize is the capacity of the channel between the MQTT receive path
	// and the single consumer loop.
	QueueSize int `json:"queue-size" mapstructure:"queue-size"`

	// Segments are the topic levels subscribed to under {root}/+/.
	Segments []string `json:"segments" mapstructure:"segments"`

	QoS int `json:"qos" mapstructure:"qos"`
}

func NewIngestOptions() *IngestOptions {
	return &IngestOptions{
		QueueSize: 1024,
		Segments:  []string{"rdstatus", "status", "heartbeat"},
		QoS:       1,
	}
}

func (o *IngestOptions) Validate() []error {
	errors := []error{}

	if o.QueueSize < 1 {
		errors = append(errors, fmt.Errorf("--ingest.queue-size must be at least 1"))
	}
	if len(o.Segments) == 0 {
		errors = append(errors, fmt.Errorf("--ingest.segments must name at least one topic"))
	}
	if o.QoS < 0 || o.QoS > 2 {
		errors = append(errors, fmt.Errorf("--ingest.qos must be 0, 1 or 2"))
	}

	return errors
}

func (o *IngestOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.QueueSize, "ingest.queue-size", o.QueueSize, "Buffered deliveries between the MQTT client and the consumer loop.")
	fs.StringSliceVar(&o.Segments, "ingest.segments", o.Segments, "Telemetry topic segments to subscribe to under {root}/+/.")
	fs.IntVar(&o.QoS, "ingest.qos", o.QoS, "QoS of the telemetry subscriptions.")
}
