// Package mapper renders clinical records as FHIR R4 Patient, Condition and Bundle resources.
package mapper

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/clock"
	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	fhir "github.com/ayushhealth/go-ayush/internal/fhir/r4"
)

const (
	defaultCountry   = "India"
	unknownCondition = "Unknown condition"
	recorderDisplay  = "AYUSH Healthcare System"
	bundleIDPrefix   = "bundle-"
)

// Mapper builds FHIR resources. The clock and id generator are the only
// sources of non-determinism; fixing both makes output reproducible.
type Mapper struct {
	now   clock.Func
	newID func() string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithClock overrides the time used for timestamps and default onset dates.
func WithClock(now clock.Func) Option {
	return func(m *Mapper) { m.now = now }
}

// WithIDGenerator overrides bundle and ad-hoc resource id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Mapper) { m.newID = gen }
}

// New creates a mapper
func New(opts ...Option) *Mapper {
	m := &Mapper{
		now:   clock.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mapper) timestamp() string {
	return clock.Format(m.now())
}

// MapPatient renders a stored patient.
func (m *Mapper) MapPatient(p *clinical.Patient) *fhir.Patient {
	return buildPatient(patientInput{
		id:               p.ID,
		name:             p.Name,
		gender:           p.Gender,
		dob:              p.DOB,
		phone:            p.Phone,
		email:            p.Email,
		address:          p.Address,
		emergencyContact: p.EmergencyContact,
	})
}

// MapCondition renders a stored condition. disease may be nil, in which case
// the code degrades to free text.
func (m *Mapper) MapCondition(c *clinical.Condition, disease *catalog.Disease, p *clinical.Patient) *fhir.Condition {
	code := &fhir.CodeableConcept{Text: unknownCondition}
	if disease != nil {
		code = dualCode(disease)
	}

	onset := c.OnsetDate
	if onset == "" {
		onset = m.timestamp()
	}

	cond := baseCondition(c.ID, p.ID, p.Name)
	cond.Code = code
	cond.OnsetDateTime = onset
	cond.RecordedDate = clock.Format(c.CreatedAt)
	if c.Notes != "" {
		cond.Note = []fhir.Annotation{{Text: c.Notes}}
	}
	return cond
}

// MapBundle renders a patient followed by each of its conditions, in order.
func (m *Mapper) MapBundle(p *clinical.Patient, conditions []clinical.EnrichedCondition) *fhir.Bundle {
	entries := make([]fhir.BundleEntry, 0, len(conditions)+1)
	entries = append(entries, fhir.BundleEntry{Resource: m.MapPatient(p)})
	for _, c := range conditions {
		entries = append(entries, fhir.BundleEntry{Resource: m.MapCondition(c.Condition, c.Disease, p)})
	}
	return m.bundle(entries)
}

func (m *Mapper) bundle(entries []fhir.BundleEntry) *fhir.Bundle {
	return &fhir.Bundle{
		ResourceType: fhir.ResourceBundle,
		ID:           bundleIDPrefix + m.newID(),
		Type:         fhir.BundleTypeCollection,
		Timestamp:    m.timestamp(),
		Entry:        entries,
	}
}

type patientInput struct {
	id               string
	name             string
	gender           string
	dob              string
	phone            string
	email            string
	address          *clinical.Address
	emergencyContact *clinical.EmergencyContact
}

func buildPatient(in patientInput) *fhir.Patient {
	family, given := splitName(in.name)

	p := &fhir.Patient{
		ResourceType: fhir.ResourcePatient,
		ID:           in.id,
		Meta:         &fhir.Meta{Profile: []string{fhir.ProfilePatient}},
		Identifier: []fhir.Identifier{{
			Use:    "usual",
			System: fhir.SystemAYUSHPatientID,
			Value:  in.id,
		}},
		Active: true,
		Name: []fhir.HumanName{{
			Use:    "official",
			Text:   in.name,
			Family: family,
			Given:  given,
		}},
		Gender:    in.gender,
		BirthDate: in.dob,
	}

	if in.phone != "" {
		p.Telecom = append(p.Telecom, fhir.ContactPoint{System: "phone", Value: in.phone, Use: "mobile"})
	}
	if in.email != "" {
		p.Telecom = append(p.Telecom, fhir.ContactPoint{System: "email", Value: in.email, Use: "home"})
	}

	if a := in.address; a != nil && a.Line != "" {
		country := a.Country
		if country == "" {
			country = defaultCountry
		}
		p.Address = []fhir.Address{{
			Use:        "home",
			Type:       "physical",
			Line:       []string{a.Line},
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    country,
		}}
	}

	if ec := in.emergencyContact; ec != nil && ec.Name != "" {
		p.Contact = []fhir.PatientContact{{
			Relationship: []fhir.CodeableConcept{{
				Coding: []fhir.Coding{{
					System:  fhir.SystemContactRole,
					Code:    "EP",
					Display: "Emergency contact person",
				}},
			}},
			Name:    &fhir.ContactName{Text: ec.Name},
			Telecom: []fhir.ContactPoint{{System: "phone", Value: ec.Phone}},
		}}
	}

	return p
}

// splitName returns the last whitespace-delimited token as the family name
// and the preceding tokens as given names. given is never nil.
func splitName(name string) (family string, given []string) {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return "", []string{}
	}
	given = make([]string, len(tokens)-1)
	copy(given, tokens[:len(tokens)-1])
	return tokens[len(tokens)-1], given
}

// baseCondition carries the fixed status, category and severity codings
// shared by both generation paths.
func baseCondition(id, patientID, patientName string) *fhir.Condition {
	return &fhir.Condition{
		ResourceType: fhir.ResourceCondition,
		ID:           id,
		Meta:         &fhir.Meta{Profile: []string{fhir.ProfileCondition}},
		ClinicalStatus: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhir.SystemConditionClinical,
			Code:    "active",
			Display: "Active",
		}}},
		VerificationStatus: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhir.SystemConditionVerStatus,
			Code:    "confirmed",
			Display: "Confirmed",
		}}},
		Category: []fhir.CodeableConcept{{Coding: []fhir.Coding{{
			System:  fhir.SystemConditionCategory,
			Code:    "problem-list-item",
			Display: "Problem List Item",
		}}}},
		Severity: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhir.SystemSNOMED,
			Code:    "24484000",
			Display: "Severe",
		}}},
		Subject: &fhir.Reference{
			Reference: "Patient/" + patientID,
			Display:   patientName,
		},
		Recorder: &fhir.Reference{Display: recorderDisplay},
	}
}

// dualCode codes a disease under both ICD-11 MMS and NAMASTE.
func dualCode(d *catalog.Disease) *fhir.CodeableConcept {
	return &fhir.CodeableConcept{
		Coding: []fhir.Coding{
			{System: fhir.SystemICD11MMS, Code: d.ICD, Display: d.Name},
			{System: fhir.SystemNAMASTE, Code: d.TM2, Display: d.Name + " (NAMASTE)"},
		},
		Text: d.Name,
	}
}
