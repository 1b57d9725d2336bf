package clinical

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/clock"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recordingSink) Emit(_ context.Context, e *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func sequentialIDs() func() string {
	var n int
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(opts ...Option) *MemoryStore {
	base := []Option{WithClock(clock.Fixed(fixedNow)), WithIDGenerator(sequentialIDs())}
	return NewMemoryStore(catalog.Default(), append(base, opts...)...)
}

func TestCreatePatientRequiresNameDOBGender(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	cases := []*Patient{
		nil,
		{DOB: "1990-01-01", Gender: "female"},
		{Name: "Asha Devi", Gender: "female"},
		{Name: "Asha Devi", DOB: "1990-01-01"},
	}
	for i, p := range cases {
		_, err := s.CreatePatient(ctx, p)
		require.Error(t, err, "case %d", i)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, MsgPatientRequiredFields, err.Error())
	}
	assert.Equal(t, 0, s.Stats(ctx).Patients)
}

func TestCreatePatientAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s := newTestStore(WithEventSink(sink), WithCorrelation(func(context.Context) string { return "req-1" }))

	in := &Patient{ID: "caller-id", Name: "Asha Devi", DOB: "1990-01-01", Gender: "female"}
	p, err := s.CreatePatient(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, fixedNow, p.CreatedAt)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.Equal(t, "caller-id", in.ID, "input must not be mutated")

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, EventPatientRegistered, e.EventType)
	assert.Equal(t, "id-1", e.AggregateID)
	assert.Equal(t, "req-1", e.CorrelationID)

	var data PatientRegisteredData
	require.NoError(t, json.Unmarshal(e.EventData, &data))
	assert.Equal(t, PatientHash("Asha Devi", "1990-01-01"), data.PatientHash)
	assert.NotContains(t, string(e.EventData), "Asha")
}

func TestGetPatientNotFound(t *testing.T) {
	_, err := newTestStore().GetPatient(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, MsgPatientNotFound, err.Error())
}

func TestListPatientsSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	for _, p := range []*Patient{
		{Name: "Asha Devi", DOB: "1990-01-01", Gender: "female", Email: "asha@example.org", Phone: "98450"},
		{Name: "Ravi Kumar", DOB: "1985-05-05", Gender: "male", Email: "RAVI@example.org", Phone: "99000"},
		{Name: "Meena Iyer", DOB: "1970-07-07", Gender: "female", Phone: "Ext-7"},
	} {
		_, err := s.CreatePatient(ctx, p)
		require.NoError(t, err)
	}

	page := pagination.Params{Limit: DefaultPatientLimit}

	got, meta, err := s.ListPatients(ctx, PatientQuery{Search: "ravi@", Page: page})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ravi Kumar", got[0].Name)
	assert.Equal(t, 1, meta.Total)

	got, _, _ = s.ListPatients(ctx, PatientQuery{Search: "984", Page: page})
	require.Len(t, got, 1)
	assert.Equal(t, "Asha Devi", got[0].Name)

	// phone comparison is case-sensitive
	got, _, _ = s.ListPatients(ctx, PatientQuery{Search: "ext-7", Page: page})
	assert.Empty(t, got)

	got, meta, _ = s.ListPatients(ctx, PatientQuery{Page: pagination.Params{Limit: 2, Offset: 0}})
	assert.Len(t, got, 2)
	assert.True(t, meta.HasMore)
	assert.Equal(t, "Asha Devi", got[0].Name)
}

func TestCreateConditionUnknownPatient(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.CreateCondition(ctx, "nobody", &Condition{DiseaseID: "1"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, MsgPatientNotFound, err.Error())
	assert.Equal(t, 0, s.Stats(ctx).Conditions)
}

func TestCreateConditionUnknownDisease(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	p, err := s.CreatePatient(ctx, &Patient{Name: "Asha", DOB: "1990-01-01", Gender: "female"})
	require.NoError(t, err)

	_, err = s.CreateCondition(ctx, p.ID, &Condition{DiseaseID: "999"})
	assert.Equal(t, MsgDiseaseNotFound, err.Error())
	assert.Equal(t, 0, s.Stats(ctx).Conditions)
}

func TestConditionsAreEnrichedInOrder(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s := newTestStore(WithEventSink(sink))

	p, err := s.CreatePatient(ctx, &Patient{Name: "Asha", DOB: "1990-01-01", Gender: "female"})
	require.NoError(t, err)
	other, err := s.CreatePatient(ctx, &Patient{Name: "Ravi", DOB: "1985-05-05", Gender: "male"})
	require.NoError(t, err)

	first, err := s.CreateCondition(ctx, p.ID, &Condition{DiseaseID: "4", OnsetDate: "2023-01-01"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, first.PatientID)
	_, err = s.CreateCondition(ctx, other.ID, &Condition{DiseaseID: "1"})
	require.NoError(t, err)
	_, err = s.CreateCondition(ctx, p.ID, &Condition{Notes: "no disease"})
	require.NoError(t, err)

	got, err := s.ListConditionsForPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Disease)
	assert.Equal(t, "Madhumeha", got[0].Disease.Name)
	assert.Nil(t, got[1].Disease)
	assert.Equal(t, "no disease", got[1].Notes)

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, EventConditionRecorded, last.EventType)

	var data ConditionRecordedData
	require.NoError(t, json.Unmarshal(sink.events[2].EventData, &data))
	assert.Equal(t, "E11.9", data.ICD)
	assert.Equal(t, "TM2004", data.TM2)

	none, err := s.ListConditionsForPatient(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(catalog.Default())
	p, err := s.CreatePatient(ctx, &Patient{Name: "Asha", DOB: "1990-01-01", Gender: "female"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.CreatePatient(ctx, &Patient{Name: "X", DOB: "2000-01-01", Gender: "other"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.CreateCondition(ctx, p.ID, &Condition{DiseaseID: "2"})
		}()
	}
	wg.Wait()

	stats := s.Stats(ctx)
	assert.Equal(t, 51, stats.Patients)
	assert.Equal(t, 50, stats.Conditions)
}

// readBackSink reads the store from inside Emit.
type readBackSink struct {
	store      *MemoryStore
	patients   []int
	conditions []int
}

func (r *readBackSink) Emit(ctx context.Context, e *Event) {
	switch e.EventType {
	case EventPatientRegistered:
		_, meta, _ := r.store.ListPatients(ctx, PatientQuery{Page: pagination.Params{Limit: 10}})
		r.patients = append(r.patients, meta.Total)
	case EventConditionRecorded:
		var data ConditionRecordedData
		_ = json.Unmarshal(e.EventData, &data)
		conds, _ := r.store.ListConditionsForPatient(ctx, data.PatientID)
		r.conditions = append(r.conditions, len(conds))
	}
}

func TestEventsEmittedAfterRecordIsStored(t *testing.T) {
	ctx := context.Background()
	sink := &readBackSink{}
	s := newTestStore(WithEventSink(sink))
	sink.store = s

	p, err := s.CreatePatient(ctx, &Patient{Name: "Asha Devi", DOB: "1990-01-01", Gender: "female"})
	require.NoError(t, err)
	_, err = s.CreateCondition(ctx, p.ID, &Condition{DiseaseID: "1"})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, sink.patients)
	assert.Equal(t, []int{1}, sink.conditions)
}
