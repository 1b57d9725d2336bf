package clinical

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/clock"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

// DefaultPatientLimit is the page size for patient listings.
const DefaultPatientLimit = 10

// Error messages surfaced to API callers
const (
	MsgPatientRequiredFields = "Name, date of birth, and gender are required"
	MsgPatientNotFound       = "Patient not found"
	MsgDiseaseNotFound       = "Disease not found"
)

// DiseaseResolver resolves disease ids to catalog records.
type DiseaseResolver interface {
	Lookup(id string) *catalog.Disease
}

// PatientQuery filters a patient listing.
type PatientQuery struct {
	Search string
	Page   pagination.Params
}

// Stats summarizes store contents.
type Stats struct {
	Patients   int `json:"patients"`
	Conditions int `json:"conditions"`
}

// Store owns patient and condition records.
type Store interface {
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)
	ListPatients(ctx context.Context, q PatientQuery) ([]*Patient, pagination.Meta, error)
	CreateCondition(ctx context.Context, patientID string, c *Condition) (*Condition, error)
	ListConditionsForPatient(ctx context.Context, patientID string) ([]EnrichedCondition, error)
	Stats(ctx context.Context) Stats
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store held entirely in process memory.
// One RWMutex guards both collections.
type MemoryStore struct {
	mu         sync.RWMutex
	patients   []*Patient
	byID       map[string]*Patient
	conditions []*Condition

	diseases    DiseaseResolver
	validate    *validator.Validate
	now         clock.Func
	newID       func() string
	sink        EventSink
	correlation func(context.Context) string
	logger      *zap.Logger
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the timestamp source.
func WithClock(now clock.Func) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemoryStore) { s.newID = gen }
}

// WithEventSink routes domain events to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *MemoryStore) { s.sink = sink }
}

// WithCorrelation sets the function that extracts a correlation id from a request context.
func WithCorrelation(fn func(context.Context) string) Option {
	return func(s *MemoryStore) { s.correlation = fn }
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMemoryStore creates an empty store resolving diseases through diseases.
func NewMemoryStore(diseases DiseaseResolver, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:        make(map[string]*Patient),
		diseases:    diseases,
		validate:    validator.New(),
		now:         clock.Now,
		newID:       func() string { return uuid.New().String() },
		sink:        nopSink{},
		correlation: func(context.Context) string { return "" },
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePatient validates p, assigns its id and timestamps and stores it.
// PatientRegistered is emitted after the write lock is released, so events from
// concurrent creates may reach the sink in a different order than the appends.
func (s *MemoryStore) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	if p == nil {
		return nil, apperr.Validation(MsgPatientRequiredFields)
	}
	if err := s.validate.Struct(p); err != nil {
		return nil, apperr.Validation(MsgPatientRequiredFields)
	}

	rec := p.clone()
	rec.ID = s.newID()
	rec.CreatedAt = s.now().UTC()
	rec.UpdatedAt = rec.CreatedAt

	s.mu.Lock()
	s.patients = append(s.patients, rec)
	s.byID[rec.ID] = rec
	s.mu.Unlock()

	s.logger.Debug("patient created", zap.String("patient_id", rec.ID))

	s.emit(ctx, AggregatePatient, rec.ID, EventPatientRegistered, PatientRegisteredData{
		PatientID:   rec.ID,
		PatientHash: PatientHash(rec.Name, rec.DOB),
		Gender:      rec.Gender,
	})
	return rec.clone(), nil
}

// GetPatient returns the patient with id.
func (s *MemoryStore) GetPatient(_ context.Context, id string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound(MsgPatientNotFound)
	}
	return p.clone(), nil
}

// ListPatients returns the page of patients matching q in insertion order.
// Name and email match case-insensitively; phone matches as a raw substring.
func (s *MemoryStore) ListPatients(_ context.Context, q PatientQuery) ([]*Patient, pagination.Meta, error) {
	term := strings.ToLower(q.Search)

	s.mu.RLock()
	matched := make([]*Patient, 0, len(s.patients))
	for _, p := range s.patients {
		if q.Search != "" && !patientMatches(p, q.Search, term) {
			continue
		}
		matched = append(matched, p.clone())
	}
	s.mu.RUnlock()

	page, meta := pagination.Apply(matched, q.Page)
	return page, meta, nil
}

func patientMatches(p *Patient, raw, lower string) bool {
	return strings.Contains(strings.ToLower(p.Name), lower) ||
		strings.Contains(strings.ToLower(p.Email), lower) ||
		strings.Contains(p.Phone, raw)
}

// CreateCondition records c against patientID. The patient and disease checks
// and the append happen under one write lock. ConditionRecorded is emitted once
// that lock is released and is not part of the atomic step.
func (s *MemoryStore) CreateCondition(ctx context.Context, patientID string, c *Condition) (*Condition, error) {
	if c == nil {
		c = &Condition{}
	}

	rec := c.clone()
	rec.ID = s.newID()
	rec.PatientID = patientID
	rec.CreatedAt = s.now().UTC()
	rec.UpdatedAt = rec.CreatedAt

	s.mu.Lock()
	if _, ok := s.byID[patientID]; !ok {
		s.mu.Unlock()
		return nil, apperr.NotFound(MsgPatientNotFound)
	}
	var disease *catalog.Disease
	if rec.DiseaseID != "" {
		if disease = s.diseases.Lookup(rec.DiseaseID); disease == nil {
			s.mu.Unlock()
			return nil, apperr.NotFound(MsgDiseaseNotFound)
		}
	}
	s.conditions = append(s.conditions, rec)
	s.mu.Unlock()

	s.logger.Debug("condition created",
		zap.String("condition_id", rec.ID),
		zap.String("patient_id", patientID),
	)

	data := ConditionRecordedData{
		ConditionID: rec.ID,
		PatientID:   patientID,
		DiseaseID:   rec.DiseaseID,
	}
	if disease != nil {
		data.ICD = disease.ICD
		data.TM2 = disease.TM2
	}
	s.emit(ctx, AggregateCondition, rec.ID, EventConditionRecorded, data)

	return rec.clone(), nil
}

// ListConditionsForPatient returns the patient's conditions in insertion order,
// each with its disease resolved when possible.
func (s *MemoryStore) ListConditionsForPatient(_ context.Context, patientID string) ([]EnrichedCondition, error) {
	s.mu.RLock()
	out := make([]EnrichedCondition, 0)
	for _, c := range s.conditions {
		if c.PatientID != patientID {
			continue
		}
		out = append(out, EnrichedCondition{Condition: c.clone()})
	}
	s.mu.RUnlock()

	for i := range out {
		if out[i].DiseaseID != "" {
			out[i].Disease = s.diseases.Lookup(out[i].DiseaseID)
		}
	}
	return out, nil
}

// Stats returns the current record counts.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Patients: len(s.patients), Conditions: len(s.conditions)}
}

func (s *MemoryStore) emit(ctx context.Context, aggType, aggID string, eventType EventType, data any) {
	event, err := NewEvent(aggType, aggID, eventType, data, s.now())
	if err != nil {
		s.logger.Error("failed to build event",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
		return
	}
	event.CorrelationID = s.correlation(ctx)
	s.sink.Emit(ctx, event)
}
