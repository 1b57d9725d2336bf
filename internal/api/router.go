// Package api assembles the HTTP surface of the AYUSH API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/api/handlers"
	"github.com/ayushhealth/go-ayush/internal/api/middleware"
	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/clock"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/fhir/mapper"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/pkg/idempotency"
)

// Deps are the collaborators the router wires into handlers
type Deps struct {
	ServiceName  string
	Version      string
	Dev          bool
	CORSOrigins  []string
	RateLimitRPS int

	Catalog  *catalog.Catalog
	Store    clinical.Store
	Mapper   *mapper.Mapper
	Inbox    *idempotency.Inbox
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// Events is optional
	Events handlers.EventStats
	Now    clock.Func
	Logger *zap.Logger
}

// NewRouter builds the chi router
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resp := handlers.NewResponder(d.Dev, logger)
	notFound := routeNotFound(resp)

	r := chi.NewRouter()
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(d.ServiceName))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.Recover(logger, d.Dev))
	r.Use(middleware.CORS(d.CORSOrigins))

	r.Handle("/metrics", metrics.Handler(d.Gatherer))

	health := handlers.NewHealthHandler(d.ServiceName, d.Version, d.Store, d.Events, d.Now, resp)
	diseases := handlers.NewDiseaseHandler(d.Catalog, resp)
	patients := handlers.NewPatientHandler(d.Store, d.Metrics, resp, logger)
	fhir := handlers.NewFHIRHandler(d.Store, d.Mapper, d.Metrics, resp, logger)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(notFound)
		r.MethodNotAllowed(notFound)

		r.Use(middleware.RateLimit(d.RateLimitRPS))
		if d.Inbox != nil {
			r.Use(middleware.Idempotency(d.Inbox, d.Metrics, logger))
		}

		r.Get("/health", health.ServeHTTP)
		r.Mount("/diseases", diseases.Routes())
		r.Mount("/patients", patients.Routes())
		r.Mount("/fhir", fhir.Routes())
	})

	return r
}

func routeNotFound(resp *handlers.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uri := r.RequestURI
		if uri == "" {
			uri = r.URL.RequestURI()
		}
		resp.Fail(w, http.StatusNotFound, "Route "+uri+" not found")
	}
}
