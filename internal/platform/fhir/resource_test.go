package fhir

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDomainResource_FlattensIntoResource(t *testing.T) {
	p := &Patient{
		DomainResource: DomainResource{ResourceType: "Patient", ID: "p1"},
		Gender:         "female",
		Active:         Bool(true),
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"resourceType":"Patient"`, `"id":"p1"`, `"gender":"female"`, `"active":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "DomainResource") {
		t.Errorf("embedded struct leaked into JSON: %s", s)
	}
}

func TestFindExtension(t *testing.T) {
	list := []Extension{
		{URL: "a", ValueString: "1"},
		{URL: "b", ValueBoolean: Bool(true)},
	}
	if ext := FindExtension(list, "b"); ext == nil || !*ext.ValueBoolean {
		t.Errorf("expected extension b, got %+v", ext)
	}
	if FindExtension(list, "c") != nil {
		t.Error("expected nil for missing extension")
	}
	d := DomainResource{Extension: list}
	if d.ExtensionByURL("a").ValueString != "1" {
		t.Error("ExtensionByURL did not find a")
	}
}

func TestCodeableConcept_FirstCoding(t *testing.T) {
	var nilCC *CodeableConcept
	if nilCC.FirstCoding() != nil {
		t.Error("expected nil for nil concept")
	}
	cc := &CodeableConcept{Coding: []Coding{{Code: "x"}, {Code: "y"}}}
	if cc.FirstCoding().Code != "x" {
		t.Errorf("expected x, got %s", cc.FirstCoding().Code)
	}
}

func TestReference_JSON(t *testing.T) {
	ref := Reference{Reference: "Patient/123", Type: "Patient", Display: "John"}
	data, err := json.Marshal(ref)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Reference
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != ref {
		t.Errorf("got %+v, want %+v", got, ref)
	}
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		wantID   string
		wantErr  bool
	}{
		{"Patient/123", "Patient", "123", false},
		{"http://host/fhir/Patient/123", "Patient", "123", false},
		{"Patient/123/_history/2", "Patient", "123", false},
		{"#abc", "", "", true},
		{"Patient", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rt, id, err := ParseReference(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if rt != tt.wantType || id != tt.wantID {
				t.Errorf("got (%q, %q), want (%q, %q)", rt, id, tt.wantType, tt.wantID)
			}
		})
	}
}

func TestLocalReference(t *testing.T) {
	if LocalReference("x1") != "#x1" {
		t.Error("expected #x1")
	}
	if !IsLocalReference("#x1") || IsLocalReference("Patient/x1") {
		t.Error("IsLocalReference misclassified")
	}
}
