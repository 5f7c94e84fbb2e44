package topic

import (
	"strings"
)

// Builder constructs and parses the per-vehicle topic layout used on the bus.
//
//	{root}/{vehicleID}/{segment}
//
// Devices publish telemetry under their own id and the server publishes
// commands back under the same prefix, so one builder serves both directions.
type Builder struct {
	// root is the base namespace for all topics (e.g., "vehicle", "fleet/prod").
	root string

	// share is the shared-subscription group, empty for ordinary subscriptions.
	share string
}

// NewBuilder creates a Builder for the given root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Root returns the namespace this builder was created with.
func (b *Builder) Root() string {
	return b.root
}

// Shared returns a copy of the builder whose wildcard filters are prefixed
// with $share/{group}/, letting several server replicas split the load.
// An empty group returns the builder unchanged.
func (b *Builder) Shared(group string) *Builder {
	if group == "" {
		return b
	}
	return &Builder{root: b.root, share: group}
}

// Build returns the concrete topic for one vehicle.
func (b *Builder) Build(segment, vehicleID string) string {
	return b.root + "/" + vehicleID + "/" + segment
}

// BuildWildcard returns the filter matching segment for every vehicle.
// Result: [$share/{group}/]{root}/+/{segment}
func (b *Builder) BuildWildcard(segment string) string {
	filter := b.Build(segment, Wildcard)
	if b.share != "" {
		return "$share/" + b.share + "/" + filter
	}
	return filter
}

// VehicleID extracts the vehicle identifier, the level directly below root.
// It reports false when the topic is outside the namespace or the id is empty.
func (b *Builder) VehicleID(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.root+"/")
	if !ok {
		return "", false
	}

	id, _, _ := strings.Cut(rest, "/")
	if id == "" || id == Wildcard || id == MultiWildcard {
		return "", false
	}
	return id, true
}

// Segment returns the last level of the topic.
func Segment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
