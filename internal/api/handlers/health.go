package handlers

import (
	"net/http"

	"github.com/ayushhealth/go-ayush/internal/clock"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/pkg/workerpool"
)

const msgHealthy = "AYUSH Healthcare API is running"

// EventStats reports event dispatch statistics
type EventStats interface {
	Stats() workerpool.Stats
}

// HealthResponse is the data of GET /health
type HealthResponse struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	Timestamp  string            `json:"timestamp"`
	Patients   int               `json:"patients"`
	Conditions int               `json:"conditions"`
	Events     *workerpool.Stats `json:"events,omitempty"`
}

// HealthHandler serves liveness
type HealthHandler struct {
	service string
	version string
	store   clinical.Store
	events  EventStats
	now     clock.Func
	resp    *Responder
}

// NewHealthHandler creates a new handler. events may be nil.
func NewHealthHandler(service, version string, store clinical.Store, events EventStats, now clock.Func, resp *Responder) *HealthHandler {
	if now == nil {
		now = clock.Now
	}
	return &HealthHandler{service: service, version: version, store: store, events: events, now: now, resp: resp}
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats(r.Context())
	body := HealthResponse{
		Status:     "OK",
		Service:    h.service,
		Version:    h.version,
		Timestamp:  clock.Format(h.now()),
		Patients:   stats.Patients,
		Conditions: stats.Conditions,
	}
	if h.events != nil {
		s := h.events.Stats()
		body.Events = &s
	}
	h.resp.Success(w, r, http.StatusOK, body, msgHealthy, nil)
}
