package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetpulse/pkg/mqtt/topic"
)

var (
	// ErrInvalidTopic means the topic carries no usable vehicle id.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrMalformedPayload means the payload is not JSON.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidShape means the payload is JSON but not the expected structure.
	ErrInvalidShape = errors.New("invalid payload shape")
)

// Kind tags a decoded message.
type Kind int

const (
	KindStatus Kind = iota + 1
	KindHeartbeatBatch
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindHeartbeatBatch:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Message is a delivery that passed decoding. Exactly one of Status or
// Heartbeats is meaningful, selected by Kind.
type Message struct {
	Kind      Kind
	VehicleID string
	Segment   string

	Status     model.StatusData
	Heartbeats []model.HeartbeatData

	// Skipped lists batch elements that were dropped, one error each.
	Skipped []error
}

// Decode turns a raw delivery into a Message. Nothing is stored for a
// delivery that fails here.
func Decode(topics *topic.Builder, topicName string, payload []byte) (*Message, error) {
	vehicleID, ok := topics.VehicleID(topicName)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not under %s/<vehicleId>/", ErrInvalidTopic, topicName, topics.Root())
	}

	if !json.Valid(payload) {
		return nil, ErrMalformedPayload
	}

	msg := &Message{
		VehicleID: vehicleID,
		Segment:   topic.Segment(topicName),
	}

	if paths.IsSingleRecord(msg.Segment) {
		msg.Kind = KindStatus
		status, err := decodeStatus(payload)
		if err != nil {
			return nil, err
		}
		msg.Status = status
		return msg, nil
	}

	msg.Kind = KindHeartbeatBatch
	elems, err := decodeBatch(payload)
	if err != nil {
		return nil, err
	}
	for i, raw := range elems {
		hb, err := decodeHeartbeat(raw)
		if err != nil {
			msg.Skipped = append(msg.Skipped, fmt.Errorf("data[%d]: %w", i, err))
			continue
		}
		msg.Heartbeats = append(msg.Heartbeats, hb)
	}
	return msg, nil
}

func decodeStatus(payload []byte) (model.StatusData, error) {
	var status model.StatusData
	if !isObject(payload) {
		return status, fmt.Errorf("%w: status record must be an object", ErrInvalidShape)
	}
	if err := json.Unmarshal(payload, &status); err != nil {
		return status, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return status, nil
}

func decodeBatch(payload []byte) ([]json.RawMessage, error) {
	if !isObject(payload) {
		return nil, fmt.Errorf("%w: batch must be an object", ErrInvalidShape)
	}

	var batch struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	trimmed := bytes.TrimSpace(batch.Data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: data must be an array", ErrInvalidShape)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return elems, nil
}

func decodeHeartbeat(raw json.RawMessage) (model.HeartbeatData, error) {
	var hb model.HeartbeatData
	if !isObject(raw) {
		return hb, fmt.Errorf("%w: element must be an object", ErrInvalidShape)
	}

	var required struct {
		Mode *int `json:"mode"`
		Temp *int `json:"temp"`
	}
	if err := json.Unmarshal(raw, &required); err != nil {
		return hb, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	if required.Mode == nil || required.Temp == nil {
		return hb, fmt.Errorf("%w: mode and temp are required", ErrInvalidShape)
	}

	if err := json.Unmarshal(raw, &hb); err != nil {
		return hb, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return hb, nil
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
