package model

import "time"

// StatusData is the device-reported body of a status message.
type StatusData struct {
	Status *int `json:"status,omitempty"`
	Model  *int `json:"model,omitempty"`
}

// StatusEvent is one immutable row of the status log.
type StatusEvent struct {
	// ID is the store-assigned insertion sequence; it breaks timestamp ties.
	ID        int64      `json:"id"`
	VehicleID string     `json:"vehicleId"`
	Timestamp time.Time  `json:"timestamp"`
	RawData   StatusData `json:"rawData"`
}

// LatestStatus is the projection returned for the newest status of a vehicle.
type LatestStatus struct {
	VehicleID string    `json:"vehicleId"`
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
}

// ModelStatus is the newest reported model of a vehicle.
type ModelStatus struct {
	VehicleID string    `json:"vehicleId"`
	Model     int       `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// VehicleData bundles the recent history of one vehicle.
type VehicleData struct {
	Statuses   []StatusEvent    `json:"statuses"`
	Heartbeats []HeartbeatEvent `json:"heartbeats"`
}
