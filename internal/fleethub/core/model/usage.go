package model

import "time"

// DailyUsage is the usage of one vehicle over one calendar day.
// StartTime and EndTime are nil when the vehicle reported nothing that day.
type DailyUsage struct {
	VehicleID   string     `json:"vehicleId"`
	Date        string     `json:"date"`
	DailyUsage  float64    `json:"dailyUsage"`
	StartUsage  *float64   `json:"startUsage"`
	EndUsage    *float64   `json:"endUsage"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	RecordCount int        `json:"recordCount"`
}

// MonthlyUsage is the difference between the first and last usage counter
// reported inside a calendar month.
type MonthlyUsage struct {
	Year         int        `json:"year"`
	Month        int        `json:"month"`
	VehicleID    string     `json:"vehicleId,omitempty"`
	MonthlyUsage float64    `json:"monthlyUsage"`
	StartUsage   *float64   `json:"startUsage"`
	EndUsage     *float64   `json:"endUsage"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
}

// YearlyUsage sums twelve independent monthly windows.
type YearlyUsage struct {
	Year             int            `json:"year"`
	VehicleID        string         `json:"vehicleId,omitempty"`
	TotalYearlyUsage float64        `json:"totalYearlyUsage"`
	MonthlyBreakdown []MonthlyUsage `json:"monthlyBreakdown"`
}

// TimeSeriesPoint is one sample of the usage counter. RecordCount is set only
// for bucketed series.
type TimeSeriesPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalUsage  float64   `json:"totalUsage"`
	UsageDelta  float64   `json:"usageDelta"`
	RecordCount int       `json:"recordCount,omitempty"`
}

// VehicleSeries is the usage series of one vehicle.
type VehicleSeries struct {
	VehicleID     string            `json:"vehicleId"`
	StartDateTime time.Time         `json:"startDateTime"`
	EndDateTime   time.Time         `json:"endDateTime"`
	Points        []TimeSeriesPoint `json:"points"`
}

// SeriesConfig is one vehicle's window in a bulk series request.
type SeriesConfig struct {
	VehicleID     string `json:"vehicleId"`
	StartDateTime string `json:"startDateTime,omitempty"`
	EndDateTime   string `json:"endDateTime,omitempty"`
}

// Interval names a bucket width for bulk series.
type Interval string

const (
	IntervalNone Interval = ""
	IntervalHour Interval = "hour"
	IntervalDay  Interval = "day"
)

// BulkSeriesRequest asks for paginated usage series of several vehicles.
type BulkSeriesRequest struct {
	Vehicles []SeriesConfig `json:"vehicles"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
	Interval string         `json:"interval,omitempty"`
}

// Pagination describes one vehicle's page inside a bulk series response.
type Pagination struct {
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalRecords int64 `json:"totalRecords"`
	TotalPages   int   `json:"totalPages"`
	HasMore      bool  `json:"hasMore"`
}

// PagedSeries is a VehicleSeries together with its pagination.
type PagedSeries struct {
	VehicleSeries
	Interval   Interval   `json:"interval,omitempty"`
	Pagination Pagination `json:"pagination"`
}
