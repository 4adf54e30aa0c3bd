package dispatch

import (
	"encoding/json"

	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// BodyType returns the type code a request body declares: the organisation
// type of an Organization, the qualification of a Practitioner and the role
// code of a PractitionerRole. Other types and unreadable bodies declare
// nothing.
func BodyType(resourceType string, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		Type          []fhir.CodeableConcept `json:"type"`
		Code          []fhir.CodeableConcept `json:"code"`
		Qualification []struct {
			Code fhir.CodeableConcept `json:"code"`
		} `json:"qualification"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	var concepts []fhir.CodeableConcept
	switch resourceType {
	case "Organization":
		concepts = body.Type
	case "PractitionerRole":
		concepts = body.Code
	case "Practitioner":
		for _, q := range body.Qualification {
			concepts = append(concepts, q.Code)
		}
	}
	for i := range concepts {
		if c := concepts[i].FirstCoding(); c != nil && c.Code != "" {
			return c.Code
		}
	}
	return ""
}
