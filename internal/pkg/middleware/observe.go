package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetpulse/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Observe records latency and status per route template and logs each request.
func Observe(logger log.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					logger.Error(nil, "Handler panicked", "panic", p, "path", r.URL.Path,
						"requestId", RequestIDFrom(r.Context()))
					rec.code = http.StatusInternalServerError
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(rec.code)
					_, _ = w.Write([]byte(`{"success":false,"message":"Internal Server Error"}`))
				}

				route := routeTemplate(r)
				elapsed := time.Since(start)
				metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.code)).Inc()
				metrics.HTTPRequestLatency.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
				logger.Debug("Handled request", "method", r.Method, "path", r.URL.Path, "code", rec.code,
					"duration", elapsed, "requestId", RequestIDFrom(r.Context()))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
