package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/fhir/mapper"
	"github.com/ayushhealth/go-ayush/internal/fhir/validator"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
)

const (
	msgBundleGenerated = "FHIR bundle generated successfully"
	msgBundleFailed    = "Error generating FHIR bundle"
	msgResourceValid   = "FHIR resource is valid"
	msgResourceInvalid = "FHIR resource has validation errors"
	msgValidateFailed  = "Error validating FHIR resource"

	// FormatOperationOutcome selects the OperationOutcome rendering of a validation
	FormatOperationOutcome = "OperationOutcome"
)

// FHIRHandler renders clinical data as FHIR R4 and validates FHIR input
type FHIRHandler struct {
	store   clinical.Store
	mapper  *mapper.Mapper
	metrics *metrics.Metrics
	resp    *Responder
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewFHIRHandler creates a new handler
func NewFHIRHandler(store clinical.Store, m *mapper.Mapper, met *metrics.Metrics, resp *Responder, logger *zap.Logger) *FHIRHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FHIRHandler{
		store:   store,
		mapper:  m,
		metrics: met,
		resp:    resp,
		logger:  logger,
		tracer:  otel.Tracer("fhir-handler"),
	}
}

// Routes returns the handler routes
func (h *FHIRHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/patient/{patientId}", h.PatientBundle)
	r.Post("/generate", h.Generate)
	r.Post("/validate", h.Validate)
	return r
}

// PatientBundle handles GET /fhir/patient/{patientId}
func (h *FHIRHandler) PatientBundle(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientId")
	ctx, span := h.tracer.Start(r.Context(), "fhir.patient_bundle",
		trace.WithAttributes(attribute.String("patient_id", patientID)))
	defer span.End()

	p, err := h.store.GetPatient(ctx, patientID)
	if err != nil {
		h.resp.Error(w, r, err, msgBundleFailed)
		return
	}
	conditions, err := h.store.ListConditionsForPatient(ctx, patientID)
	if err != nil {
		span.RecordError(err)
		h.resp.Error(w, r, err, msgBundleFailed)
		return
	}

	bundle := h.mapper.MapBundle(p, conditions)
	span.SetAttributes(
		attribute.String("bundle_id", bundle.ID),
		attribute.Int("entries", len(bundle.Entry)))
	h.metrics.BundlesGenerated.WithLabelValues("stored").Inc()

	h.resp.Success(w, r, http.StatusOK, bundle, msgBundleGenerated, nil)
}

// Generate handles POST /fhir/generate
func (h *FHIRHandler) Generate(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "fhir.generate")
	defer span.End()

	var req mapper.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		h.resp.Error(w, r, err, msgBundleFailed)
		return
	}

	bundle, err := h.mapper.GenerateBundle(&req)
	if err != nil {
		span.RecordError(err)
		h.resp.Error(w, r, err, msgBundleFailed)
		return
	}
	span.SetAttributes(attribute.String("bundle_id", bundle.ID))
	h.metrics.BundlesGenerated.WithLabelValues("adhoc").Inc()

	h.resp.Success(w, r, http.StatusOK, bundle, msgBundleGenerated, nil)
}

// Validate handles POST /fhir/validate
func (h *FHIRHandler) Validate(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "fhir.validate")
	defer span.End()

	var resource any
	if err := decodeBody(r, &resource); err != nil {
		h.resp.Error(w, r, err, msgValidateFailed)
		return
	}

	result := validator.Validate(resource)
	outcome := "valid"
	message := msgResourceValid
	if !result.Valid {
		outcome = "invalid"
		message = msgResourceInvalid
	}
	span.SetAttributes(
		attribute.Bool("valid", result.Valid),
		attribute.Int("errors", len(result.Errors)),
		attribute.Int("warnings", len(result.Warnings)))
	h.metrics.ValidationsRun.WithLabelValues(outcome).Inc()

	if r.URL.Query().Get("format") == FormatOperationOutcome {
		h.resp.Success(w, r, http.StatusOK, result.OperationOutcome(), message, nil)
		return
	}
	h.resp.Success(w, r, http.StatusOK, result, message, nil)
}
