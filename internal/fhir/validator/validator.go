// Package validator performs shallow structural checks on FHIR resources.
//
// Errors make a resource invalid; warnings are advisory. Validate never fails:
// input that is not a JSON object is checked as if it were an empty one.
package validator

import (
	fhir "github.com/ayushhealth/go-ayush/internal/fhir/r4"
)

// Rule messages
const (
	MsgMissingResourceType = "Missing required field: resourceType"
	MsgMissingID           = "Missing recommended field: id"
	MsgPatientName         = "Patient must have at least one name"
	MsgPatientGender       = "Patient gender is recommended"
	MsgConditionCode       = "Condition must have a code"
	MsgConditionSubject    = "Condition must have a subject reference"
	MsgBundleType          = "Bundle must have a type"
	MsgBundleEntry         = "Bundle should contain at least one entry"
)

// Result is the outcome of validating one resource.
type Result struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	ResourceType any      `json:"resourceType,omitempty"`
	ResourceID   any      `json:"resourceId,omitempty"`
}

// Validate applies every rule for the resource's type. Rules never short-circuit.
func Validate(resource any) Result {
	obj, _ := resource.(map[string]any)

	r := Result{
		Errors:       []string{},
		Warnings:     []string{},
		ResourceType: obj["resourceType"],
		ResourceID:   obj["id"],
	}

	if !present(obj["resourceType"]) {
		r.Errors = append(r.Errors, MsgMissingResourceType)
	}
	if !present(obj["id"]) {
		r.Warnings = append(r.Warnings, MsgMissingID)
	}

	switch obj["resourceType"] {
	case fhir.ResourcePatient:
		if !nonEmpty(obj["name"]) {
			r.Errors = append(r.Errors, MsgPatientName)
		}
		if !present(obj["gender"]) {
			r.Warnings = append(r.Warnings, MsgPatientGender)
		}
	case fhir.ResourceCondition:
		if !present(obj["code"]) {
			r.Errors = append(r.Errors, MsgConditionCode)
		}
		if !present(obj["subject"]) {
			r.Errors = append(r.Errors, MsgConditionSubject)
		}
	case fhir.ResourceBundle:
		if !present(obj["type"]) {
			r.Errors = append(r.Errors, MsgBundleType)
		}
		if !nonEmpty(obj["entry"]) {
			r.Warnings = append(r.Warnings, MsgBundleEntry)
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// OperationOutcome renders the result as a FHIR OperationOutcome.
func (r Result) OperationOutcome() *fhir.OperationOutcome {
	issues := make([]fhir.OperationOutcomeIssue, 0, len(r.Errors)+len(r.Warnings))
	for _, msg := range r.Errors {
		issues = append(issues, fhir.OperationOutcomeIssue{Severity: "error", Code: "required", Diagnostics: msg})
	}
	for _, msg := range r.Warnings {
		issues = append(issues, fhir.OperationOutcomeIssue{Severity: "warning", Code: "informational", Diagnostics: msg})
	}
	if len(issues) == 0 {
		issues = append(issues, fhir.OperationOutcomeIssue{Severity: "information", Code: "informational", Diagnostics: "All OK"})
	}
	return fhir.NewOperationOutcome(issues...)
}

// present reports whether v holds a value other than null, false, 0 or "".
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// nonEmpty is present, additionally rejecting empty arrays.
func nonEmpty(v any) bool {
	if arr, ok := v.([]any); ok {
		return len(arr) > 0
	}
	return present(v)
}
