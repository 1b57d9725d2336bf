package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/pkg/idempotency"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestRecoverRedactsOutsideDevelopment(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("nil map write"))
	})

	for _, tc := range []struct {
		dev    bool
		detail string
	}{
		{dev: false, detail: "Something went wrong"},
		{dev: true, detail: "nil map write"},
	} {
		rec := httptest.NewRecorder()
		Recover(zap.NewNop(), tc.dev)(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Internal server error", body["message"])
		assert.Equal(t, tc.detail, body["error"])
	}
}

func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	RateLimit(0)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRateLimitRejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimit(1)(next)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}

func TestIdempotencyConflictWhileInFlight(t *testing.T) {
	inbox := idempotency.NewInbox(idempotency.DefaultConfig(), nil)
	m := metrics.New(prometheus.NewRegistry())

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	h := Idempotency(inbox, m, zap.NewNop())(slow)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(`{}`))
		req.Header.Set(HeaderIdempotencyKey, "k1")
		return req
	}

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newReq())
		done <- rec.Code
	}()

	<-entered
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newReq())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, msgRequestInProgress, decode(t, rec)["message"])

	close(release)
	assert.Equal(t, http.StatusCreated, <-done)
}

func TestIdempotencyIgnoresGetAndMissingKey(t *testing.T) {
	inbox := idempotency.NewInbox(idempotency.DefaultConfig(), nil)
	m := metrics.New(prometheus.NewRegistry())

	var calls int
	h := Idempotency(inbox, m, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	get := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	get.Header.Set(HeaderIdempotencyKey, "k")
	h.ServeHTTP(httptest.NewRecorder(), get)
	h.ServeHTTP(httptest.NewRecorder(), get)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/patients", nil))

	assert.Equal(t, 3, calls)
	assert.Zero(t, inbox.Stats().TotalEntries)
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	inbox := idempotency.NewInbox(idempotency.DefaultConfig(), nil)
	m := metrics.New(prometheus.NewRegistry())

	status := http.StatusInternalServerError
	h := Idempotency(inbox, m, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/fhir/generate", nil)
		r.Header.Set(HeaderIdempotencyKey, "k")
		return r
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	status = http.StatusOK
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderIdempotentReplayed))
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	inbox := idempotency.NewInbox(idempotency.DefaultConfig(), nil)
	m := metrics.New(prometheus.NewRegistry())

	var calls int
	h := Idempotency(inbox, m, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"` + in["name"].(string) + `"}`))
	}))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(body))
		req.Header.Set(HeaderIdempotencyKey, "k")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := post(`{"name":"Asha"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.JSONEq(t, `{"name":"Asha"}`, first.Body.String())

	reused := post(`{"name":"Ravi"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
	assert.Equal(t, msgKeyReused, decode(t, reused)["message"])

	replay := post(`{"name":"Asha"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(HeaderIdempotentReplayed))
	assert.JSONEq(t, `{"name":"Asha"}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}
