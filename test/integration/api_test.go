// Package integration exercises the AYUSH API end to end over HTTP.
package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushhealth/go-ayush/internal/api"
	"github.com/ayushhealth/go-ayush/internal/api/middleware"
	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/events"
	"github.com/ayushhealth/go-ayush/internal/fhir/mapper"
	"github.com/ayushhealth/go-ayush/internal/infrastructure/redpanda"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/pkg/idempotency"
)

type published struct {
	topic   string
	value   []byte
	headers map[string]string
}

type memoryPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *memoryPublisher) ProduceMessage(_ context.Context, topic, _ string, value []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, value: value, headers: headers})
	return nil
}

func (p *memoryPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type harness struct {
	server     *httptest.Server
	publisher  *memoryPublisher
	dispatcher *events.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cat := catalog.Default()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pub := &memoryPublisher{}

	dispatcher, err := events.NewDispatcher(events.DefaultConfig(), pub, m, nil)
	require.NoError(t, err)
	dispatcher.Start()

	store := clinical.NewMemoryStore(cat,
		clinical.WithEventSink(dispatcher),
		clinical.WithCorrelation(middleware.GetRequestID))

	srv := httptest.NewServer(api.NewRouter(api.Deps{
		ServiceName: "ayush-api",
		Version:     "integration",
		CORSOrigins: []string{"*"},
		Catalog:     cat,
		Store:       store,
		Mapper:      mapper.New(),
		Inbox:       idempotency.NewInbox(idempotency.DefaultConfig(), nil),
		Metrics:     m,
		Gatherer:    reg,
		Events:      dispatcher,
	}))
	t.Cleanup(srv.Close)

	return &harness{server: srv, publisher: pub, dispatcher: dispatcher}
}

func (h *harness) call(t *testing.T, method, path string, body []byte, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestClinicalFlow(t *testing.T) {
	h := newHarness(t)

	resp, env := h.call(t, http.MethodPost, "/api/patients",
		[]byte(`{"name":"Asha Devi","dob":"1990-01-01","gender":"female","phone":"9845012345","address":{"line":"12 MG Road","city":"Pune"}}`),
		map[string]string{"X-Request-ID": "req-flow-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var patient struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &patient))
	require.NotEmpty(t, patient.ID)

	resp, _ = h.call(t, http.MethodPost, "/api/patients/"+patient.ID+"/conditions",
		[]byte(`{"diseaseId":"1","notes":"worse after meals"}`), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = h.call(t, http.MethodGet, "/api/fhir/patient/"+patient.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the rendered bundle passes the validator
	resp, env = h.call(t, http.MethodPost, "/api/fhir/validate", env.Data, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FHIR resource is valid", env.Message)

	resp, env = h.call(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health struct {
		Patients   int `json:"patients"`
		Conditions int `json:"conditions"`
		Events     *struct {
			TasksSubmitted int64 `json:"tasksSubmitted"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, 1, health.Patients)
	assert.Equal(t, 1, health.Conditions)
	require.NotNil(t, health.Events)
	assert.Equal(t, int64(2), health.Events.TasksSubmitted)

	require.NoError(t, h.dispatcher.Stop(context.Background()))

	msgs := h.publisher.all()
	require.Len(t, msgs, 2)
	topics := map[string]published{}
	for _, msg := range msgs {
		topics[msg.topic] = msg
	}
	require.Contains(t, topics, redpanda.TopicPatientEvents)
	require.Contains(t, topics, redpanda.TopicConditionEvents)

	registered := topics[redpanda.TopicPatientEvents]
	assert.Equal(t, "req-flow-1", registered.headers[events.HeaderCorrelationID])
	e, err := events.Decode(registered.value)
	require.NoError(t, err)
	assert.Equal(t, clinical.EventPatientRegistered, e.EventType)
	assert.Equal(t, patient.ID, e.AggregateID)
	assert.NotContains(t, string(e.EventData), "Asha Devi")

	recorded, err := events.Decode(topics[redpanda.TopicConditionEvents].value)
	require.NoError(t, err)
	var data clinical.ConditionRecordedData
	require.NoError(t, json.Unmarshal(recorded.EventData, &data))
	assert.Equal(t, "K25.9", data.ICD)
	assert.Equal(t, "TM2001", data.TM2)
}

func TestValidateFixture(t *testing.T) {
	fixture, err := os.ReadFile("../fixtures/condition_amlapitta.json")
	if err != nil {
		t.Skipf("fixture not found: %v", err)
	}

	h := newHarness(t)
	resp, env := h.call(t, http.MethodPost, "/api/fhir/validate", fixture, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	var result struct {
		Valid        bool     `json:"valid"`
		Warnings     []string `json:"warnings"`
		ResourceType string   `json:"resourceType"`
		ResourceID   string   `json:"resourceId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "Condition", result.ResourceType)
	assert.Equal(t, "cond-amlapitta-001", result.ResourceID)
}

func TestIdempotentGenerate(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"patient":{"name":"Ravi Kumar","gender":"male"},"disease":{"id":"10","name":"Apasmara","icd":"G40.9","tm2":"TM2010"}}`)
	headers := map[string]string{"Idempotency-Key": "gen-1"}

	first, env1 := h.call(t, http.MethodPost, "/api/fhir/generate", body, headers)
	second, env2 := h.call(t, http.MethodPost, "/api/fhir/generate", body, headers)

	require.Equal(t, http.StatusOK, first.StatusCode)
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))
	assert.JSONEq(t, string(env1.Data), string(env2.Data))

	// without the header every call mints a new bundle
	_, env3 := h.call(t, http.MethodPost, "/api/fhir/generate", body, nil)
	assert.NotEqual(t, string(env1.Data), string(env3.Data))
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	resp, env := h.call(t, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Route /api/nope not found", env.Message)
}
