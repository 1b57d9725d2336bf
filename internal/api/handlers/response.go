// Package handlers provides the HTTP handlers of the AYUSH API.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/api/middleware"
	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

// Messages shared across handlers
const (
	MsgInvalidBody    = "Invalid request body"
	MsgInternalError  = "Internal server error"
	MsgRedactedError  = "Something went wrong"
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json; charset=utf-8"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
	Meta    *pagination.Meta `json:"meta,omitempty"`
}

// Responder writes envelopes. In development, internal error causes are
// returned to the caller.
type Responder struct {
	dev    bool
	logger *zap.Logger
}

// NewResponder creates a Responder
func NewResponder(dev bool, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{dev: dev, logger: logger}
}

// Success writes a success envelope around data
func (rs *Responder) Success(w http.ResponseWriter, r *http.Request, status int, data any, message string, meta *pagination.Meta) {
	raw, err := json.Marshal(data)
	if err != nil {
		rs.Error(w, r, apperr.Internal(MsgInternalError, err), MsgInternalError)
		return
	}
	rs.write(w, status, Envelope{Success: true, Data: raw, Message: message, Meta: meta})
}

// Error translates err into a failure envelope. fallback is the message used
// for internal errors.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		rs.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		rs.Internal(w, fallback, err)
		return
	}

	rs.write(w, appErr.Kind.HTTPStatus(), Envelope{Message: appErr.Message})
}

// Internal writes a 500 envelope, redacting cause outside development.
func (rs *Responder) Internal(w http.ResponseWriter, message string, cause error) {
	detail := MsgRedactedError
	if rs.dev && cause != nil {
		detail = cause.Error()
	}
	rs.write(w, http.StatusInternalServerError, Envelope{Message: message, Error: detail})
}

// Fail writes a failure envelope with an explicit status
func (rs *Responder) Fail(w http.ResponseWriter, status int, message string) {
	rs.write(w, status, Envelope{Message: message})
}

func (rs *Responder) write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		rs.logger.Warn("failed to write response", zap.Error(err))
	}
}

// decodeBody decodes the JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation(MsgInvalidBody)
	}
	return nil
}
