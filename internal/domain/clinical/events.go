package clinical

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType represents the type of domain event
type EventType string

const (
	EventPatientRegistered EventType = "PatientRegistered"
	EventConditionRecorded EventType = "ConditionRecorded"
)

// Aggregate types
const (
	AggregatePatient   = "Patient"
	AggregateCondition = "Condition"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventType     EventType       `json:"eventType"`
	EventData     json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

// NewEvent creates a new event
func NewEvent(aggregateType, aggregateID string, eventType EventType, data any, at time.Time) (*Event, error) {
	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventData:     eventData,
		Timestamp:     at.UTC(),
	}, nil
}

// PatientRegisteredData is published when a patient is created.
// Only a hash of the identifying fields leaves the process.
type PatientRegisteredData struct {
	PatientID   string `json:"patientId"`
	PatientHash string `json:"patientHash"`
	Gender      string `json:"gender"`
}

// ConditionRecordedData is published when a condition is added to a patient
type ConditionRecordedData struct {
	ConditionID string `json:"conditionId"`
	PatientID   string `json:"patientId"`
	DiseaseID   string `json:"diseaseId,omitempty"`
	ICD         string `json:"icd,omitempty"`
	TM2         string `json:"tm2,omitempty"`
}

// PatientHash returns the hex SHA-256 of name|dob.
func PatientHash(name, dob string) string {
	sum := sha256.Sum256([]byte(name + "|" + dob))
	return hex.EncodeToString(sum[:])
}

// EventSink receives domain events after the store has committed a change.
// Emit must not block on downstream delivery.
type EventSink interface {
	Emit(ctx context.Context, e *Event)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, *Event) {}
