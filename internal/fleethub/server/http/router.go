package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/service"
	"github.com/autopeer-io/fleetpulse/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpulse/internal/pkg/middleware"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

// Probe is one readiness check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter builds the API, probe and metrics routes. Static paths are
// registered before the parameterized ones they would otherwise match.
// feed may be nil, in which case the live route answers 503.
func NewRouter(svc *service.Service, feed core.LiveFeed, timeout time.Duration, probes ...Probe) *mux.Router {
	h := &handler{svc: svc}
	live := &liveHandler{feed: feed, logger: log.WithName("live")}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.Use(middleware.RequestID, middleware.Observe(log.WithName("http")))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyz(probes)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Long-lived, so it stays outside the request timeout below.
	r.HandleFunc("/api/v1/live/{vehicleId}", live.follow).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Timeout(timeout))
	api.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is healthy"})
	}).Methods(http.MethodGet)

	status := api.PathPrefix("/v1/status").Subrouter()
	status.HandleFunc("", h.listStatuses).Methods(http.MethodGet)
	status.HandleFunc("/latest", h.latestStatus).Methods(http.MethodGet)
	status.HandleFunc("/latest/{vehicleId}", h.latestStatus).Methods(http.MethodGet)
	status.HandleFunc("/latest/{vehicleId}/{endDate}", h.statusesUntil).Methods(http.MethodGet)
	status.HandleFunc("/latest-model-status", h.latestModelBulk).Methods(http.MethodGet)
	status.HandleFunc("/latest-model/{vehicleId}", h.latestModel).Methods(http.MethodGet)
	status.HandleFunc("/all/{vehicleId}", h.vehicleData).Methods(http.MethodGet)
	status.HandleFunc("/wrstatus", h.writeStatus).Methods(http.MethodPost)

	hb := api.PathPrefix("/v1/heartbeat").Subrouter()
	hb.HandleFunc("/latest-bulk", h.latestHeartbeatBulk).Methods(http.MethodGet)
	hb.HandleFunc("/latest/{vehicleId}", h.latestHeartbeat).Methods(http.MethodGet)
	hb.HandleFunc("/daily-usage", h.dailyUsage).Methods(http.MethodGet)
	hb.HandleFunc("/reportUsagePerMonth/{year}/{month}", h.monthlyUsage).Methods(http.MethodGet)
	hb.HandleFunc("/reportUsagePerMonth/{year}/{month}/{vehicleId}", h.monthlyUsage).Methods(http.MethodGet)
	hb.HandleFunc("/reportUsagePerYear/{year}", h.yearlyUsage).Methods(http.MethodGet)
	hb.HandleFunc("/reportUsagePerYear/{year}/{vehicleId}", h.yearlyUsage).Methods(http.MethodGet)
	hb.HandleFunc("/usage-timeseries", h.usageTimeSeries).Methods(http.MethodGet)
	hb.HandleFunc("/usage-timeseries/bulk", h.usageTimeSeriesBulk).Methods(http.MethodPost)
	hb.HandleFunc("/{vehicleId}", h.listHeartbeats).Methods(http.MethodGet)

	return r
}

func readyz(probes []Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				log.Warn("Readiness check failed", "probe", p.Name, "error", err.Error())
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(p.Name + ": " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
