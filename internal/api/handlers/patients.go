package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/api/middleware"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

// PatientHandler handles patient and condition endpoints
type PatientHandler struct {
	store   clinical.Store
	metrics *metrics.Metrics
	resp    *Responder
	logger  *zap.Logger
}

// NewPatientHandler creates a new handler
func NewPatientHandler(store clinical.Store, m *metrics.Metrics, resp *Responder, logger *zap.Logger) *PatientHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientHandler{store: store, metrics: m, resp: resp, logger: logger}
}

// Routes returns the handler routes
func (h *PatientHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{patientId}/conditions", h.CreateCondition)
	r.Get("/{patientId}/conditions", h.ListConditions)
	return r
}

// Create handles POST /patients
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("patient-handler").Start(r.Context(), "create_patient")
	defer span.End()

	var in clinical.Patient
	if err := decodeBody(r, &in); err != nil {
		h.resp.Error(w, r, err, "Error creating patient")
		return
	}

	p, err := h.store.CreatePatient(ctx, &in)
	if err != nil {
		span.RecordError(err)
		h.resp.Error(w, r, err, "Error creating patient")
		return
	}
	span.SetAttributes(attribute.String("patient_id", p.ID))
	h.metrics.PatientsCreated.Inc()

	h.logger.Info("patient created",
		zap.String("patient_id", p.ID),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	h.resp.Success(w, r, http.StatusCreated, p, "Patient created successfully", nil)
}

// Get handles GET /patients/{id}
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPatient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching patient")
		return
	}
	h.resp.Success(w, r, http.StatusOK, p, "", nil)
}

// List handles GET /patients
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patients, meta, err := h.store.ListPatients(r.Context(), clinical.PatientQuery{
		Search: q.Get("search"),
		Page:   pagination.Parse(q.Get("limit"), q.Get("offset"), clinical.DefaultPatientLimit),
	})
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching patients")
		return
	}
	h.resp.Success(w, r, http.StatusOK, patients, "", &meta)
}

// CreateCondition handles POST /patients/{patientId}/conditions
func (h *PatientHandler) CreateCondition(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("patient-handler").Start(r.Context(), "create_condition")
	defer span.End()

	patientID := chi.URLParam(r, "patientId")
	span.SetAttributes(attribute.String("patient_id", patientID))

	var in clinical.Condition
	if err := decodeBody(r, &in); err != nil {
		h.resp.Error(w, r, err, "Error creating condition")
		return
	}

	c, err := h.store.CreateCondition(ctx, patientID, &in)
	if err != nil {
		span.RecordError(err)
		h.resp.Error(w, r, err, "Error creating condition")
		return
	}
	h.metrics.ConditionsCreated.Inc()

	h.logger.Info("condition created",
		zap.String("condition_id", c.ID),
		zap.String("patient_id", patientID),
		zap.String("disease_id", c.DiseaseID),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	h.resp.Success(w, r, http.StatusCreated, c, "Condition created successfully", nil)
}

// ListConditions handles GET /patients/{patientId}/conditions
func (h *PatientHandler) ListConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := h.store.ListConditionsForPatient(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching patient conditions")
		return
	}
	h.resp.Success(w, r, http.StatusOK, conditions, "", nil)
}
