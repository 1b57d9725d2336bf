package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

// DiseaseHandler serves the reference catalog
type DiseaseHandler struct {
	catalog *catalog.Catalog
	resp    *Responder
}

// NewDiseaseHandler creates a new handler
func NewDiseaseHandler(c *catalog.Catalog, resp *Responder) *DiseaseHandler {
	return &DiseaseHandler{catalog: c, resp: resp}
}

// Routes returns the handler routes
func (h *DiseaseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/categories", h.Categories)
	r.Get("/{id}", h.Get)
	return r
}

// List handles GET /diseases
func (h *DiseaseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	diseases, meta := h.catalog.List(catalog.Filter{
		Query:    q.Get("query"),
		Category: q.Get("category"),
		Page:     pagination.Parse(q.Get("limit"), q.Get("offset"), catalog.DefaultLimit),
	})
	h.resp.Success(w, r, http.StatusOK, diseases, "", &meta)
}

// Categories handles GET /diseases/categories
func (h *DiseaseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.resp.Success(w, r, http.StatusOK, h.catalog.Categories(), "", nil)
}

// Get handles GET /diseases/{id}
func (h *DiseaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	disease, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching disease")
		return
	}
	h.resp.Success(w, r, http.StatusOK, disease, "", nil)
}
