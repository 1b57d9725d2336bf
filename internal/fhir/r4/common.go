// Package r4 provides the FHIR R4 data structures rendered by the AYUSH API.
package r4

// Meta contains metadata about a resource.
type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

// Identifier represents a FHIR Identifier.
type Identifier struct {
	Use    string `json:"use,omitempty"` // usual | official | temp | secondary | old
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// CodeableConcept represents a concept with text and codings.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Coding represents a code from a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Reference represents a reference to another resource.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Annotation represents a note or comment.
type Annotation struct {
	AuthorString string `json:"authorString,omitempty"`
	Time         string `json:"time,omitempty"`
	Text         string `json:"text"`
}

// HumanName represents a human name. Given is always written, even when empty.
type HumanName struct {
	Use    string   `json:"use,omitempty"` // usual | official | temp | nickname | anonymous | old | maiden
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given"`
}

// ContactName is the text-only name of a contact party.
type ContactName struct {
	Text string `json:"text"`
}

// Address represents a postal address.
type Address struct {
	Use        string   `json:"use,omitempty"`  // home | work | temp | old | billing
	Type       string   `json:"type,omitempty"` // postal | physical | both
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// ContactPoint represents a contact detail.
type ContactPoint struct {
	System string `json:"system,omitempty"` // phone | fax | email | pager | url | sms | other
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"` // home | work | temp | old | mobile
}

// OperationOutcome represents errors and warnings from FHIR operations.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

// OperationOutcomeIssue represents a single issue in an OperationOutcome.
type OperationOutcomeIssue struct {
	Severity    string `json:"severity"` // fatal | error | warning | information
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// NewOperationOutcome creates a new OperationOutcome with the given issues.
func NewOperationOutcome(issues ...OperationOutcomeIssue) *OperationOutcome {
	if issues == nil {
		issues = []OperationOutcomeIssue{}
	}
	return &OperationOutcome{
		ResourceType: ResourceOperationOutcome,
		Issue:        issues,
	}
}

// Resource type names
const (
	ResourcePatient          = "Patient"
	ResourceCondition        = "Condition"
	ResourceBundle           = "Bundle"
	ResourceOperationOutcome = "OperationOutcome"
)

// Code systems and profiles
const (
	SystemSNOMED             = "http://snomed.info/sct"
	SystemICD11MMS           = "http://id.who.int/icd/release/11/mms"
	SystemNAMASTE            = "http://namaste.local/code-system"
	SystemAYUSHPatientID     = "http://ayush.gov.in/patient-id"
	SystemContactRole        = "http://terminology.hl7.org/CodeSystem/v2-0131"
	SystemConditionClinical  = "http://terminology.hl7.org/CodeSystem/condition-clinical"
	SystemConditionVerStatus = "http://terminology.hl7.org/CodeSystem/condition-ver-status"
	SystemConditionCategory  = "http://terminology.hl7.org/CodeSystem/condition-category"

	ProfilePatient   = "http://hl7.org/fhir/StructureDefinition/Patient"
	ProfileCondition = "http://hl7.org/fhir/StructureDefinition/Condition"
)

// BundleTypeCollection is the only bundle type the API emits
const BundleTypeCollection = "collection"
