package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

func TestDecode(t *testing.T) {
	topics := topic.NewBuilder("vehicle")

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
		check   func(t *testing.T, m *Message)
	}{
		{
			name:    "status",
			topic:   "vehicle/V1/status",
			payload: `{"status":1,"model":3}`,
			check: func(t *testing.T, m *Message) {
				assert.Equal(t, KindStatus, m.Kind)
				assert.Equal(t, "V1", m.VehicleID)
				require.NotNil(t, m.Status.Status)
				assert.Equal(t, 1, *m.Status.Status)
				require.NotNil(t, m.Status.Model)
				assert.Equal(t, 3, *m.Status.Model)
			},
		},
		{
			name:    "rdstatus without status",
			topic:   "vehicle/V1/rdstatus",
			payload: `{"model":2}`,
			check: func(t *testing.T, m *Message) {
				assert.Equal(t, KindStatus, m.Kind)
				assert.Nil(t, m.Status.Status)
			},
		},
		{
			name:    "heartbeat batch skips bad elements",
			topic:   "vehicle/V2/heartbeat",
			payload: `{"data":[{"mode":1,"temp":30,"total_usage_time":12.5},{"mode":1},"x",{"mode":2,"temp":31}]}`,
			check: func(t *testing.T, m *Message) {
				assert.Equal(t, KindHeartbeatBatch, m.Kind)
				require.Len(t, m.Heartbeats, 2)
				assert.Equal(t, 12.5, *m.Heartbeats[0].TotalUsageTime)
				assert.Nil(t, m.Heartbeats[1].TotalUsageTime)
				assert.Len(t, m.Skipped, 2)
			},
		},
		{
			name:    "empty batch",
			topic:   "vehicle/V2/heartbeat",
			payload: `{"data":[]}`,
			check: func(t *testing.T, m *Message) {
				assert.Empty(t, m.Heartbeats)
				assert.Empty(t, m.Skipped)
			},
		},
		{name: "not json", topic: "vehicle/V1/status", payload: `{status:`, wantErr: ErrMalformedPayload},
		{name: "status not object", topic: "vehicle/V1/status", payload: `[1]`, wantErr: ErrInvalidShape},
		{name: "status wrong type", topic: "vehicle/V1/status", payload: `{"status":"on"}`, wantErr: ErrInvalidShape},
		{name: "batch missing data", topic: "vehicle/V1/heartbeat", payload: `{"mode":1}`, wantErr: ErrInvalidShape},
		{name: "batch data not array", topic: "vehicle/V1/heartbeat", payload: `{"data":{"mode":1}}`, wantErr: ErrInvalidShape},
		{name: "outside root", topic: "fleet/V1/status", payload: `{}`, wantErr: ErrInvalidTopic},
		{name: "empty id", topic: "vehicle//status", payload: `{}`, wantErr: ErrInvalidTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(topics, tt.topic, []byte(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}
