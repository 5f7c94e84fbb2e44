package model

import "time"

// HeartbeatData is one element of a heartbeat batch. Mode and Temp are
// required; the remaining readings are optional and may be fractional.
type HeartbeatData struct {
	Mode            int      `json:"mode"`
	Temp            int      `json:"temp"`
	Voltage         *float64 `json:"voltage,omitempty"`
	Battery         *float64 `json:"battery,omitempty"`
	TotalUsageTime  *float64 `json:"total_usage_time,omitempty"`
	SessionUsage    *float64 `json:"sesstion_usage,omitempty"`
	UsageTimeMn     *float64 `json:"usage_time_mn,omitempty"`
	CreditRemaining *float64 `json:"credit_remaining,omitempty"`
	CreditOveruse   *float64 `json:"credit_overuse,omitempty"`
}

// HeartbeatEvent is one immutable row of the heartbeat log.
type HeartbeatEvent struct {
	ID        int64         `json:"id"`
	VehicleID string        `json:"vehicleId"`
	Timestamp time.Time     `json:"timestamp"`
	RawData   HeartbeatData `json:"rawData"`
}

// Usage returns the cumulative usage counter, if the device reported one.
func (h *HeartbeatEvent) Usage() (float64, bool) {
	if h.RawData.TotalUsageTime == nil {
		return 0, false
	}
	return *h.RawData.TotalUsageTime, true
}
