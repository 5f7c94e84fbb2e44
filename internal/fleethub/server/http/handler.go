package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/service"
)

const maxBodyBytes = 1 << 20

type handler struct {
	svc *service.Service
}

// vehicleIDs reads ?vehicleId=a,b and repeated ?vehicleId=a&vehicleId=b.
func vehicleIDs(r *http.Request) []string {
	var ids []string
	for _, v := range r.URL.Query()["vehicleId"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (h *handler) listStatuses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	statuses, err := h.svc.ListStatuses(r.Context(), service.ListParams{
		VehicleID: q.Get("vehicleId"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, orEmpty(statuses), len(statuses))
}

// statusesUntil serves /status/latest/{vehicleId}/{endDate}.
func (h *handler) statusesUntil(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	statuses, err := h.svc.ListStatuses(r.Context(), service.ListParams{
		VehicleID: vars["vehicleId"],
		EndDate:   vars["endDate"],
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, orEmpty(statuses), len(statuses))
}

func (h *handler) latestStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["vehicleId"]
	if id == "" {
		id = r.URL.Query().Get("vehicleId")
	}

	status, err := h.svc.LatestStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, status, 1)
}

func (h *handler) latestModel(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.LatestModelStatus(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, ms)
}

func (h *handler) latestModelBulk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found, err := h.svc.LatestModelStatusBulk(r.Context(), vehicleIDs(r), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, found, len(found))
}

func (h *handler) vehicleData(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.VehicleData(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	data.Statuses = orEmpty(data.Statuses)
	data.Heartbeats = orEmpty(data.Heartbeats)
	writeData(w, data)
}

type writeStatusRequest struct {
	VehicleID string `json:"vehicleId"`
	Status    any    `json:"status"`
}

type writeStatusResponse struct {
	Success bool   `json:"success"`
	Topic   string `json:"topic"`
	Status  int    `json:"status"`
}

const invalidWriteStatus = "Invalid request: status must be a number and vehicleId is required"

func (h *handler) writeStatus(w http.ResponseWriter, r *http.Request) {
	var req writeStatusRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidWriteStatus)
		return
	}

	num, ok := req.Status.(json.Number)
	if !ok || strings.TrimSpace(req.VehicleID) == "" {
		writeMessage(w, http.StatusBadRequest, invalidWriteStatus)
		return
	}
	status, err := strconv.Atoi(num.String())
	if err != nil {
		writeMessage(w, http.StatusBadRequest, invalidWriteStatus)
		return
	}

	topic, err := h.svc.PublishStatus(r.Context(), req.VehicleID, status)
	if err != nil {
		if errors.Is(err, service.ErrPublisherUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "Failed to publish to MQTT",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, writeStatusResponse{Success: true, Topic: topic, Status: status})
}

func (h *handler) listHeartbeats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	heartbeats, err := h.svc.ListHeartbeats(r.Context(), service.ListParams{
		VehicleID: mux.Vars(r)["vehicleId"],
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, orEmpty(heartbeats), len(heartbeats))
}

func (h *handler) latestHeartbeat(w http.ResponseWriter, r *http.Request) {
	hb, err := h.svc.LatestHeartbeat(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, hb, 1)
}

func (h *handler) latestHeartbeatBulk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found, err := h.svc.LatestHeartbeatBulk(r.Context(), vehicleIDs(r), q.Get("startDateTime"), q.Get("endDateTime"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, found, len(found))
}

func (h *handler) dailyUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.svc.DailyUsage(r.Context(), vehicleIDs(r), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, usage, len(usage))
}

func (h *handler) monthlyUsage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Year parameter is required and must be a valid number.")
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Month parameter is required and must be a valid number between 1 and 12.")
		return
	}

	usage, err := h.svc.MonthlyUsage(r.Context(), year, month, vars["vehicleId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, usage)
}

func (h *handler) yearlyUsage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Year parameter is required and must be a valid number.")
		return
	}

	usage, err := h.svc.YearlyUsage(r.Context(), year, vars["vehicleId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, usage)
}

func (h *handler) usageTimeSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	series, err := h.svc.UsageTimeSeries(r.Context(), vehicleIDs(r), q.Get("startDateTime"), q.Get("endDateTime"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, series, len(series))
}

func (h *handler) usageTimeSeriesBulk(w http.ResponseWriter, r *http.Request) {
	var req model.BulkSeriesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	series, err := h.svc.UsageTimeSeriesBulk(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCounted(w, series, len(series))
}
