package fhir

import (
	"encoding/json"
	"testing"
)

func TestResourceCapability_AdvertisesLastUpdated(t *testing.T) {
	cs := ResourceCapability("Patient", []string{"read", "create"}, CSSearchParam{Name: "identifier", Type: "token"})
	if cs.Type != "Patient" {
		t.Errorf("expected Patient, got %s", cs.Type)
	}
	if len(cs.Interaction) != 2 || cs.Interaction[1].Code != "create" {
		t.Errorf("unexpected interactions %+v", cs.Interaction)
	}
	if len(cs.SearchParam) != 2 || cs.SearchParam[0].Name != "_lastUpdated" || cs.SearchParam[1].Name != "identifier" {
		t.Errorf("unexpected search params %+v", cs.SearchParam)
	}
}

func TestNewCapabilityStatement_JSON(t *testing.T) {
	stmt := NewCapabilityStatement("http://localhost/api_fhir_r4", []CSResource{
		ResourceCapability("Claim", []string{"read"}),
	})
	raw, err := json.Marshal(stmt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["resourceType"] != "CapabilityStatement" || doc["fhirVersion"] != "4.0.1" {
		t.Errorf("unexpected statement %v", doc)
	}
	rest := doc["rest"].([]any)[0].(map[string]any)
	if rest["mode"] != "server" || len(rest["resource"].([]any)) != 1 {
		t.Errorf("unexpected rest %v", rest)
	}
}
