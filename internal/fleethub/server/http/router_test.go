package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/service"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/storage/memory"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	err    error
	topics []string
}

func (p *recordingPublisher) PublishStatus(_ context.Context, vehicleID string, _ int) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	topic := "vehicle/" + vehicleID + "/wrstatus"
	p.topics = append(p.topics, topic)
	return topic, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Details string          `json:"details"`
	Topic   string          `json:"topic"`
}

func setup(t *testing.T, pub *recordingPublisher, probes ...Probe) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := service.New(store, pub,
		service.WithClock(clocktesting.NewFakePassiveClock(now)),
		service.WithLocation(time.UTC))
	return NewRouter(svc, nil, time.Second, probes...), store
}

func do(t *testing.T, h http.Handler, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AppendStatus(ctx, &model.StatusEvent{
		VehicleID: "V1", Timestamp: now.Add(-time.Hour), RawData: model.StatusData{Status: ptr(1), Model: ptr(7)},
	}))
	for i, v := range []float64{100, 80, 150} {
		require.NoError(t, store.AppendHeartbeats(ctx, []*model.HeartbeatEvent{{
			VehicleID: "V1",
			Timestamp: time.Date(2025, 6, 10, i+1, 0, 0, 0, time.UTC),
			RawData:   model.HeartbeatData{Mode: 1, Temp: 20, TotalUsageTime: ptr(v)},
		}}))
	}
}

func TestLatestStatusRoutes(t *testing.T) {
	h, store := setup(t, nil)
	seed(t, store)

	code, env := do(t, h, http.MethodGet, "/api/v1/status/latest/V1", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Equal(t, 1, *env.Count)
	assert.JSONEq(t, `{"vehicleId":"V1","timestamp":"2025-06-15T11:00:00Z","status":1}`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/api/v1/status/latest?vehicleId=V1", "")
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, h, http.MethodGet, "/api/v1/status/latest/V404", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "No status found for vehicle V404", env.Message)

	code, env = do(t, h, http.MethodGet, "/api/v1/status/latest-model/V1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"vehicleId":"V1","model":7,"timestamp":"2025-06-15T11:00:00Z"}`, string(env.Data))
}

func TestBulkRoutesAreSparseOrZeroFilled(t *testing.T) {
	h, store := setup(t, nil)
	seed(t, store)

	code, env := do(t, h, http.MethodGet, "/api/v1/status/latest-model-status?vehicleId=V1,V2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *env.Count)

	code, env = do(t, h, http.MethodGet, "/api/v1/heartbeat/latest-bulk?vehicleId=V1&vehicleId=V2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *env.Count)

	code, env = do(t, h, http.MethodGet, "/api/v1/heartbeat/daily-usage?vehicleId=V1,V2&date=2025-06-10", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, *env.Count)

	var daily []model.DailyUsage
	require.NoError(t, json.Unmarshal(env.Data, &daily))
	assert.Equal(t, 50.0, daily[0].DailyUsage)
	assert.Zero(t, daily[1].RecordCount)

	code, env = do(t, h, http.MethodGet, "/api/v1/heartbeat/daily-usage?date=2025-06-10", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing vehicleId in query", env.Message)
}

func TestUsageReports(t *testing.T) {
	h, store := setup(t, nil)
	seed(t, store)

	code, env := do(t, h, http.MethodGet, "/api/v1/heartbeat/reportUsagePerMonth/2025/6/V1", "")
	require.Equal(t, http.StatusOK, code)
	var monthly model.MonthlyUsage
	require.NoError(t, json.Unmarshal(env.Data, &monthly))
	assert.Equal(t, 50.0, monthly.MonthlyUsage)
	assert.Nil(t, env.Count)

	code, env = do(t, h, http.MethodGet, "/api/v1/heartbeat/reportUsagePerYear/2025", "")
	require.Equal(t, http.StatusOK, code)
	var yearly model.YearlyUsage
	require.NoError(t, json.Unmarshal(env.Data, &yearly))
	assert.Equal(t, 50.0, yearly.TotalYearlyUsage)

	code, env = do(t, h, http.MethodGet, "/api/v1/heartbeat/reportUsagePerMonth/2025/13", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "between 1 and 12")

	code, _ = do(t, h, http.MethodGet, "/api/v1/heartbeat/reportUsagePerYear/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUsageTimeSeriesRoutes(t *testing.T) {
	h, store := setup(t, nil)
	seed(t, store)

	code, env := do(t, h, http.MethodGet, "/api/v1/heartbeat/usage-timeseries?vehicleId=V1", "")
	require.Equal(t, http.StatusOK, code)
	var series []model.VehicleSeries
	require.NoError(t, json.Unmarshal(env.Data, &series))
	require.Len(t, series[0].Points, 3)
	assert.Equal(t, 70.0, series[0].Points[2].UsageDelta)

	body := `{"vehicles":[{"vehicleId":"V1"}],"page":1,"limit":2,"interval":"day"}`
	code, env = do(t, h, http.MethodPost, "/api/v1/heartbeat/usage-timeseries/bulk", body)
	require.Equal(t, http.StatusOK, code)
	var paged []model.PagedSeries
	require.NoError(t, json.Unmarshal(env.Data, &paged))
	assert.Equal(t, model.Pagination{Page: 1, Limit: 2, TotalRecords: 3, TotalPages: 2, HasMore: true}, paged[0].Pagination)
	require.Len(t, paged[0].Points, 1)
	assert.Equal(t, 2, paged[0].Points[0].RecordCount)

	code, _ = do(t, h, http.MethodPost, "/api/v1/heartbeat/usage-timeseries/bulk", `{"vehicles":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListRoutes(t *testing.T) {
	h, store := setup(t, nil)
	seed(t, store)

	code, env := do(t, h, http.MethodGet, "/api/v1/heartbeat/V1?startDate=2025-06-10T02:00:00Z", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, *env.Count)

	code, env = do(t, h, http.MethodGet, "/api/v1/heartbeat/V2", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/api/v1/status/latest/V1/2025-06-01", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, *env.Count)

	code, env = do(t, h, http.MethodGet, "/api/v1/status?startDate=not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "startDate")

	code, env = do(t, h, http.MethodGet, "/api/v1/status/all/V1", "")
	require.Equal(t, http.StatusOK, code)
	var data model.VehicleData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Statuses, 1)
	assert.Len(t, data.Heartbeats, 3)
}

func TestWriteStatus(t *testing.T) {
	pub := &recordingPublisher{}
	h, _ := setup(t, pub)

	code, env := do(t, h, http.MethodPost, "/api/v1/status/wrstatus", `{"vehicleId":"V1","status":0}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Equal(t, "vehicle/V1/wrstatus", env.Topic)
	assert.Equal(t, []string{"vehicle/V1/wrstatus"}, pub.topics)

	for _, body := range []string{
		`{"vehicleId":"V1","status":"0"}`,
		`{"vehicleId":"V1"}`,
		`{"status":1}`,
		`{"vehicleId":"V1","status":1.5}`,
		`not json`,
	} {
		code, env = do(t, h, http.MethodPost, "/api/v1/status/wrstatus", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, invalidWriteStatus, env.Message)
	}

	pub.err = errors.New("not connected")
	code, env = do(t, h, http.MethodPost, "/api/v1/status/wrstatus", `{"vehicleId":"V1","status":1}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to publish to MQTT", env.Message)
	assert.Contains(t, env.Details, "not connected")
}

func TestProbesAndFallbacks(t *testing.T) {
	broken := Probe{Name: "mqtt", Check: func(context.Context) error { return errors.New("disconnected") }}
	h, _ := setup(t, nil, broken)

	code, _ := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)

	code, env := do(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Server is healthy", env.Message)

	code, env = do(t, h, http.MethodGet, "/api/v2/unknown", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Endpoint not found", env.Message)
}
