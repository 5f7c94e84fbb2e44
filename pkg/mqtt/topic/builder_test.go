package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("vehicle")

	assert.Equal(t, "vehicle/V7/wrstatus", b.Build("wrstatus", "V7"))
	assert.Equal(t, "vehicle/+/heartbeat", b.BuildWildcard("heartbeat"))
	assert.Equal(t, "$share/fleetpulse/vehicle/+/status", b.Shared("fleetpulse").BuildWildcard("status"))
	assert.Same(t, b, b.Shared(""))
}

func TestBuilderNestedRoot(t *testing.T) {
	b := NewBuilder("/fleet/prod/")

	assert.Equal(t, "fleet/prod", b.Root())
	assert.Equal(t, "fleet/prod/V7/status", b.Build("status", "V7"))

	id, ok := b.VehicleID("fleet/prod/V7/status")
	assert.True(t, ok)
	assert.Equal(t, "V7", id)
}

func TestVehicleID(t *testing.T) {
	b := NewBuilder("vehicle")

	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"vehicle/ABC123/status", "ABC123", true},
		{"vehicle/ABC123/rdstatus", "ABC123", true},
		{"vehicle/ABC123", "ABC123", true},
		{"vehicle//status", "", false},
		{"vehicles/ABC123/status", "", false},
		{"other/ABC123/status", "", false},
		{"vehicle", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := b.VehicleID(tt.topic)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSegment(t *testing.T) {
	assert.Equal(t, "rdstatus", Segment("vehicle/V1/rdstatus"))
	assert.Equal(t, "status", Segment("status"))
}
