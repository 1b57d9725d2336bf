package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorKindsMapToStatus(t *testing.T) {
	rs := NewResponder(false, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tests := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.Validation("bad input"), http.StatusBadRequest, "bad input"},
		{apperr.NotFound("Patient not found"), http.StatusNotFound, "Patient not found"},
		{apperr.Conflict("busy"), http.StatusConflict, "busy"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Error fetching patients"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		rs.Error(rec, req, tt.err, "Error fetching patients")

		assert.Equal(t, tt.status, rec.Code)
		body := decodeEnvelope(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, tt.message, body["message"])
		assert.NotContains(t, body, "data")
	}
}

func TestInternalErrorRedaction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	cause := apperr.Internal("ignored", errors.New("nil pointer"))

	rec := httptest.NewRecorder()
	NewResponder(false, nil).Error(rec, req, cause, "Error creating patient")
	assert.Equal(t, MsgRedactedError, decodeEnvelope(t, rec)["error"])

	rec = httptest.NewRecorder()
	NewResponder(true, nil).Error(rec, req, cause, "Error creating patient")
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Error creating patient", body["message"])
	assert.True(t, strings.Contains(body["error"].(string), "nil pointer"))
}

func TestSuccessKeepsEmptyLists(t *testing.T) {
	rec := httptest.NewRecorder()
	meta := pagination.Meta{Limit: 10}
	NewResponder(false, nil).Success(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, []string{}, "", &meta)

	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0,"limit":10,"offset":0,"hasMore":false}}`, rec.Body.String())
	assert.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))
}
