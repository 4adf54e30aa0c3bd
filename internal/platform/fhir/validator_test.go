package fhir

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateResource_ValidPatient(t *testing.T) {
	v := NewValidator()
	result := v.ValidateResource(json.RawMessage(`{"resourceType":"Patient","id":"1"}`), true)
	if !result.Valid {
		t.Errorf("expected valid, got issues %+v", result.Issues)
	}
}

func TestValidateResource_MissingResourceType(t *testing.T) {
	result := NewValidator().ValidateResource(json.RawMessage(`{"id":"1"}`), false)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Issues[0].Code != IssueTypeRequired {
		t.Errorf("expected required, got %s", result.Issues[0].Code)
	}
}

func TestValidateResource_UnknownResourceType(t *testing.T) {
	result := NewValidator().ValidateResource(json.RawMessage(`{"resourceType":"Observation"}`), false)
	if result.Valid {
		t.Fatal("expected invalid for resource type not exchanged by the adapter")
	}
}

func TestValidateResource_MissingID(t *testing.T) {
	raw := json.RawMessage(`{"resourceType":"Patient"}`)
	if NewValidator().ValidateResource(raw, true).Valid {
		t.Error("expected invalid when id is required")
	}
	if !NewValidator().ValidateResource(raw, false).Valid {
		t.Error("expected valid when id is not required")
	}
}

func TestValidateResource_InvalidJSON(t *testing.T) {
	result := NewValidator().ValidateResource(json.RawMessage(`{`), false)
	if result.Valid || result.Issues[0].Code != IssueTypeStructure {
		t.Errorf("expected structure issue, got %+v", result.Issues)
	}
}

func TestStruct_TagViolations(t *testing.T) {
	claim := &Claim{
		DomainResource: DomainResource{ResourceType: "Claim"},
		Status:         "bogus",
		Created:        "yesterday",
	}
	result := NewValidator().Struct(claim)
	if result.Valid {
		t.Fatal("expected invalid claim")
	}
	paths := map[string]string{}
	for _, issue := range result.Issues {
		paths[issue.Expression[0]] = issue.Code
	}
	if paths["Claim.status"] != IssueTypeValue {
		t.Errorf("expected value issue on Claim.status, got %v", paths)
	}
	if paths["Claim.use"] != IssueTypeRequired {
		t.Errorf("expected required issue on Claim.use, got %v", paths)
	}
	if _, ok := paths["Claim.created"]; !ok {
		t.Errorf("expected issue on Claim.created, got %v", paths)
	}
}

func TestStruct_FHIRDatePrimitives(t *testing.T) {
	tests := []struct {
		birthDate string
		valid     bool
	}{
		{"1990-04-12", true},
		{"1990-04", true},
		{"1990", true},
		{"12/04/1990", false},
		{"1990-04-12T10:00:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.birthDate, func(t *testing.T) {
			p := &Patient{DomainResource: DomainResource{ResourceType: "Patient"}, BirthDate: tt.birthDate}
			if got := NewValidator().Struct(p).Valid; got != tt.valid {
				t.Errorf("valid = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var loc Location
	err := Decode([]byte(`{"resourceType":"Location","name":"Ultha","status":"active"}`), "Location", &loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Name != "Ultha" {
		t.Errorf("expected name Ultha, got %s", loc.Name)
	}
}

func TestDecode_WrongResourceType(t *testing.T) {
	var loc Location
	err := Decode([]byte(`{"resourceType":"Patient"}`), "Location", &loc)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Issues[0].Expression[0] != "resourceType" {
		t.Errorf("unexpected expression %v", se.Issues[0].Expression)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	var loc Location
	var se *SchemaError
	if err := Decode([]byte(`{"resourceType":`), "Location", &loc); !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestPeekResourceType(t *testing.T) {
	if got := PeekResourceType([]byte(`{"resourceType":"Organization"}`)); got != "Organization" {
		t.Errorf("got %q", got)
	}
	if got := PeekResourceType([]byte(`{}`)); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := PeekResourceType([]byte(`nope`)); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
