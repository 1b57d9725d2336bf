package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/pkg/idempotency"
)

const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"

	msgRequestInProgress = "A request with this Idempotency-Key is already in progress"
	msgKeyReused         = "Idempotency-Key was already used with a different request body"
)

// Idempotency replays the first completed response of a POST carrying an
// Idempotency-Key header. The key is scoped to method and path; reusing it
// with a different body is rejected with 422. Requests without the header
// pass through.
func Idempotency(inbox *idempotency.Inbox, m *metrics.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headerKey := r.Header.Get(HeaderIdempotencyKey)
			if r.Method != http.MethodPost || headerKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeEnvelope(w, http.StatusBadRequest, "Invalid request body", "")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := idempotency.GenerateKey(r.Method, r.URL.Path, headerKey)
			var rec *captureWriter

			res, err := inbox.Process(r.Context(), key, idempotency.Fingerprint(body), func(ctx context.Context) (*idempotency.Response, error) {
				rec = newCaptureWriter()
				next.ServeHTTP(rec, r.WithContext(ctx))
				return rec.response(), nil
			})
			if errors.Is(err, idempotency.ErrRequestInProgress) {
				writeEnvelope(w, http.StatusConflict, msgRequestInProgress, "")
				return
			}
			if errors.Is(err, idempotency.ErrFingerprintMismatch) {
				writeEnvelope(w, http.StatusUnprocessableEntity, msgKeyReused, "")
				return
			}
			if err != nil {
				logger.Error("idempotent request failed", zap.Error(err))
				writeEnvelope(w, http.StatusInternalServerError, "Internal server error", "")
				return
			}

			if res.Replayed {
				m.IdempotentReplays.Inc()
				logger.Debug("idempotent replay",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Int("status", res.Response.StatusCode))
				w.Header().Set(HeaderIdempotentReplayed, "true")
				writeStored(w, res.Response)
				return
			}

			rec.flushTo(w)
		})
	}
}

func writeStored(w http.ResponseWriter, resp *idempotency.Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// captureWriter buffers a handler's response so it can be stored and replayed
type captureWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(b)
}

func (c *captureWriter) response() *idempotency.Response {
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return &idempotency.Response{
		StatusCode:  status,
		ContentType: c.header.Get("Content-Type"),
		Body:        bytes.Clone(c.body.Bytes()),
	}
}

func (c *captureWriter) flushTo(w http.ResponseWriter) {
	for k, v := range c.header {
		w.Header()[k] = v
	}
	resp := c.response()
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
