package mapper

import (
	"fmt"

	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	fhir "github.com/ayushhealth/go-ayush/internal/fhir/r4"
)

// Validation messages for ad-hoc generation
const (
	MsgGenerateRequired    = "Patient data and disease information are required"
	MsgPatientNameRequired = "Patient name is required"
)

// GeneratePatient is the caller-supplied patient of an ad-hoc bundle.
type GeneratePatient struct {
	ID                 string                     `json:"id"`
	Name               string                     `json:"name"`
	DOB                string                     `json:"dob"`
	Gender             string                     `json:"gender"`
	Phone              string                     `json:"phone"`
	Email              string                     `json:"email"`
	Address            *clinical.Address          `json:"address"`
	EmergencyContact   *clinical.EmergencyContact `json:"emergencyContact"`
	MedicalHistory     string                     `json:"medicalHistory"`
	Allergies          string                     `json:"allergies"`
	CurrentMedications string                     `json:"currentMedications"`
}

// GenerateCondition carries the optional onset of an ad-hoc condition.
type GenerateCondition struct {
	OnsetDate string `json:"onsetDate"`
}

// GenerateRequest is the body of an ad-hoc bundle request.
type GenerateRequest struct {
	Patient   *GeneratePatient   `json:"patient"`
	Disease   *catalog.Disease   `json:"disease"`
	Condition *GenerateCondition `json:"condition"`
}

// GenerateBundle builds a Patient plus one Condition from a request payload
// rather than from stored records. The condition note summarizes the
// patient's history, allergies and medications.
func (m *Mapper) GenerateBundle(req *GenerateRequest) (*fhir.Bundle, error) {
	if req == nil || req.Patient == nil || req.Disease == nil {
		return nil, apperr.Validation(MsgGenerateRequired)
	}
	pd := req.Patient
	if pd.Name == "" {
		return nil, apperr.Validation(MsgPatientNameRequired)
	}

	patientID := pd.ID
	if patientID == "" {
		patientID = m.newID()
	}

	patient := buildPatient(patientInput{
		id:               patientID,
		name:             pd.Name,
		gender:           pd.Gender,
		dob:              pd.DOB,
		phone:            pd.Phone,
		email:            pd.Email,
		address:          pd.Address,
		emergencyContact: pd.EmergencyContact,
	})

	now := m.timestamp()
	onset := now
	if req.Condition != nil && req.Condition.OnsetDate != "" {
		onset = req.Condition.OnsetDate
	}

	cond := baseCondition(m.newID(), patientID, pd.Name)
	cond.Code = dualCode(req.Disease)
	cond.OnsetDateTime = onset
	cond.RecordedDate = now
	cond.Note = []fhir.Annotation{{Text: historyNote(pd)}}

	return m.bundle([]fhir.BundleEntry{
		{Resource: patient},
		{Resource: cond},
	}), nil
}

func historyNote(p *GeneratePatient) string {
	return fmt.Sprintf("Patient history: %s. Allergies: %s. Current medications: %s.",
		orDefault(p.MedicalHistory, "Not specified"),
		orDefault(p.Allergies, "None reported"),
		orDefault(p.CurrentMedications, "None reported"),
	)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
