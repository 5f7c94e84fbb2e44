package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgmqtt "github.com/autopeer-io/fleetpulse/pkg/mqtt"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

type published struct {
	topic   string
	qos     int
	retain  bool
	payload string
}

type fakeClient struct {
	pkgmqtt.Client
	err  error
	sent []published
}

func (f *fakeClient) Publish(_ context.Context, topic string, qos int, retain bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic, qos, retain, string(payload)})
	return nil
}

func TestPublishStatus(t *testing.T) {
	client := &fakeClient{}
	n := NewMQTTNotifier(client, topic.NewBuilder("vehicle"))

	got, err := n.PublishStatus(context.Background(), "V7", 0)
	require.NoError(t, err)

	assert.Equal(t, "vehicle/V7/wrstatus", got)
	require.Len(t, client.sent, 1)
	assert.Equal(t, published{"vehicle/V7/wrstatus", 1, false, `{"status":0}`}, client.sent[0])
}

func TestPublishStatusFailure(t *testing.T) {
	n := NewMQTTNotifier(&fakeClient{err: errors.New("not connected")}, topic.NewBuilder("vehicle"))

	_, err := n.PublishStatus(context.Background(), "V7", 1)
	assert.EqualError(t, err, "not connected")
}
