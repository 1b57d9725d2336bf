package clinical

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushhealth/go-ayush/internal/catalog"
)

func TestPatientJSONKeepsExtraFields(t *testing.T) {
	body := `{"id":"spoofed","createdAt":"1999-01-01","name":"Asha Devi","dob":"1990-01-01",
		"gender":"female","bloodGroup":"O+","tags":["a","b"],"address":{"line":"12 MG Road","city":"Pune"}}`

	var p Patient
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Empty(t, p.ID)
	assert.Equal(t, "Asha Devi", p.Name)
	require.NotNil(t, p.Address)
	assert.Equal(t, "Pune", p.Address.City)
	assert.Contains(t, p.Extra, "bloodGroup")
	assert.NotContains(t, p.Extra, "createdAt")

	p.ID = "p-1"
	p.CreatedAt = fixedNow
	p.UpdatedAt = fixedNow
	out, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "p-1", decoded["id"])
	assert.Equal(t, "O+", decoded["bloodGroup"])
	assert.Equal(t, []any{"a", "b"}, decoded["tags"])
	assert.Equal(t, "2024-03-01T09:30:00.000Z", decoded["createdAt"])
	assert.NotContains(t, decoded, "phone")
}

func TestEnrichedConditionJSON(t *testing.T) {
	d := catalog.Default().Lookup("1")
	c := EnrichedCondition{
		Condition: &Condition{ID: "c-1", PatientID: "p-1", DiseaseID: "1", CreatedAt: fixedNow, UpdatedAt: fixedNow},
		Disease:   d,
	}
	out, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "p-1", decoded["patientId"])
	disease, ok := decoded["disease"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Amlapitta", disease["name"])

	c.Disease = nil
	out, err = json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"disease"`)
}

func TestConditionBodyCannotOverrideReservedKeys(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`{"patientId":"x","diseaseId":"3","severity":"mild"}`), &c))
	assert.Empty(t, c.PatientID)
	assert.Equal(t, "3", c.DiseaseID)
	assert.Contains(t, c.Extra, "severity")
}
