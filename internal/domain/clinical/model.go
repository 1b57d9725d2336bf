// Package clinical holds patient and condition records and the in-memory store that owns them.
package clinical

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/clock"
)

// Address is a patient's postal address as supplied by the caller.
type Address struct {
	Line       string `json:"line,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// EmergencyContact is the person to reach on the patient's behalf.
type EmergencyContact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Patient is a registered patient. Unknown caller fields are kept in Extra
// and written back out unchanged.
type Patient struct {
	ID               string
	Name             string `validate:"required"`
	DOB              string `validate:"required"`
	Gender           string `validate:"required"`
	Phone            string
	Email            string
	Address          *Address
	EmergencyContact *EmergencyContact
	Extra            map[string]json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type patientFields struct {
	Name             string            `json:"name"`
	DOB              string            `json:"dob"`
	Gender           string            `json:"gender"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Address          *Address          `json:"address"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

var patientKeys = []string{
	"id", "name", "dob", "gender", "phone", "email",
	"address", "emergencyContact", "createdAt", "updatedAt",
}

// UnmarshalJSON reads the known fields and collects the rest into Extra.
// Server-assigned keys in the payload are discarded.
func (p *Patient) UnmarshalJSON(data []byte) error {
	var f patientFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := extraFields(data, patientKeys)
	if err != nil {
		return err
	}

	*p = Patient{
		Name:             f.Name,
		DOB:              f.DOB,
		Gender:           f.Gender,
		Phone:            f.Phone,
		Email:            f.Email,
		Address:          f.Address,
		EmergencyContact: f.EmergencyContact,
		Extra:            extra,
	}
	return nil
}

// MarshalJSON writes the record with its extra fields merged in.
func (p Patient) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fields())
}

func (p Patient) fields() map[string]any {
	out := make(map[string]any, len(p.Extra)+len(patientKeys))
	for k, v := range p.Extra {
		out[k] = v
	}
	out["id"] = p.ID
	out["name"] = p.Name
	out["dob"] = p.DOB
	out["gender"] = p.Gender
	if p.Phone != "" {
		out["phone"] = p.Phone
	}
	if p.Email != "" {
		out["email"] = p.Email
	}
	if p.Address != nil {
		out["address"] = p.Address
	}
	if p.EmergencyContact != nil {
		out["emergencyContact"] = p.EmergencyContact
	}
	out["createdAt"] = clock.Format(p.CreatedAt)
	out["updatedAt"] = clock.Format(p.UpdatedAt)
	return out
}

func (p *Patient) clone() *Patient {
	c := *p
	if p.Address != nil {
		a := *p.Address
		c.Address = &a
	}
	if p.EmergencyContact != nil {
		e := *p.EmergencyContact
		c.EmergencyContact = &e
	}
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Condition is a diagnosis recorded against a patient.
type Condition struct {
	ID        string
	PatientID string
	DiseaseID string
	OnsetDate string
	Notes     string
	Extra     map[string]json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

type conditionFields struct {
	DiseaseID string `json:"diseaseId"`
	OnsetDate string `json:"onsetDate"`
	Notes     string `json:"notes"`
}

var conditionKeys = []string{
	"id", "patientId", "diseaseId", "onsetDate", "notes", "createdAt", "updatedAt", "disease",
}

// UnmarshalJSON reads the known fields and collects the rest into Extra.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var f conditionFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := extraFields(data, conditionKeys)
	if err != nil {
		return err
	}

	*c = Condition{
		DiseaseID: f.DiseaseID,
		OnsetDate: f.OnsetDate,
		Notes:     f.Notes,
		Extra:     extra,
	}
	return nil
}

// MarshalJSON writes the record with its extra fields merged in.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.fields())
}

func (c Condition) fields() map[string]any {
	out := make(map[string]any, len(c.Extra)+len(conditionKeys))
	for k, v := range c.Extra {
		out[k] = v
	}
	out["id"] = c.ID
	out["patientId"] = c.PatientID
	if c.DiseaseID != "" {
		out["diseaseId"] = c.DiseaseID
	}
	if c.OnsetDate != "" {
		out["onsetDate"] = c.OnsetDate
	}
	if c.Notes != "" {
		out["notes"] = c.Notes
	}
	out["createdAt"] = clock.Format(c.CreatedAt)
	out["updatedAt"] = clock.Format(c.UpdatedAt)
	return out
}

func (c *Condition) clone() *Condition {
	cp := *c
	if c.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// EnrichedCondition is a condition with its resolved disease, if any.
type EnrichedCondition struct {
	*Condition
	Disease *catalog.Disease
}

// MarshalJSON writes the condition fields plus a "disease" object when resolved.
func (e EnrichedCondition) MarshalJSON() ([]byte, error) {
	out := e.Condition.fields()
	if e.Disease != nil {
		out["disease"] = e.Disease
	}
	return json.Marshal(out)
}

// extraFields returns every top-level key of data not listed in known.
func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}
