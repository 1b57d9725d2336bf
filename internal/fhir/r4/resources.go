package r4

// Patient represents a FHIR R4 Patient resource.
type Patient struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Meta         *Meta            `json:"meta,omitempty"`
	Identifier   []Identifier     `json:"identifier,omitempty"`
	Active       bool             `json:"active,omitempty"`
	Name         []HumanName      `json:"name,omitempty"`
	Telecom      []ContactPoint   `json:"telecom,omitempty"`
	Gender       string           `json:"gender,omitempty"` // male | female | other | unknown
	BirthDate    string           `json:"birthDate,omitempty"`
	Address      []Address        `json:"address,omitempty"`
	Contact      []PatientContact `json:"contact,omitempty"`
}

// PatientContact is a contact party for the patient.
type PatientContact struct {
	Relationship []CodeableConcept `json:"relationship,omitempty"`
	Name         *ContactName      `json:"name,omitempty"`
	Telecom      []ContactPoint    `json:"telecom,omitempty"`
}

// GetOfficialName returns the patient's official name, or first available.
func (p *Patient) GetOfficialName() *HumanName {
	for i := range p.Name {
		if p.Name[i].Use == "official" {
			return &p.Name[i]
		}
	}
	if len(p.Name) > 0 {
		return &p.Name[0]
	}
	return nil
}

// GetPhone returns the patient's primary phone number.
func (p *Patient) GetPhone() string {
	for _, t := range p.Telecom {
		if t.System == "phone" {
			return t.Value
		}
	}
	return ""
}

// Condition represents a FHIR R4 Condition resource.
type Condition struct {
	ResourceType       string            `json:"resourceType"`
	ID                 string            `json:"id,omitempty"`
	Meta               *Meta             `json:"meta,omitempty"`
	ClinicalStatus     *CodeableConcept  `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept  `json:"verificationStatus,omitempty"`
	Category           []CodeableConcept `json:"category,omitempty"`
	Severity           *CodeableConcept  `json:"severity,omitempty"`
	Code               *CodeableConcept  `json:"code,omitempty"`
	Subject            *Reference        `json:"subject,omitempty"`
	OnsetDateTime      string            `json:"onsetDateTime,omitempty"`
	RecordedDate       string            `json:"recordedDate,omitempty"`
	Recorder           *Reference        `json:"recorder,omitempty"`
	Note               []Annotation      `json:"note,omitempty"`
}

// CodingFor returns the first coding of the condition code under system.
func (c *Condition) CodingFor(system string) *Coding {
	if c.Code == nil {
		return nil
	}
	for i := range c.Code.Coding {
		if c.Code.Coding[i].System == system {
			return &c.Code.Coding[i]
		}
	}
	return nil
}

// Bundle represents a FHIR R4 Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Total        *int          `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleEntry is a single resource in a Bundle.
type BundleEntry struct {
	FullURL  string `json:"fullUrl,omitempty"`
	Resource any    `json:"resource"`
}
