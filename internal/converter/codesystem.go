package converter

import (
	"time"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// CodeSystemConverter publishes the owned mapping tables and the diagnosis
// list as CodeSystem resources. It is forward only.
type CodeSystemConverter struct {
	base *base
}

func (c *CodeSystemConverter) newCodeSystem(id, title, description string) *fhir.CodeSystem {
	return &fhir.CodeSystem{
		DomainResource: fhir.DomainResource{ResourceType: "CodeSystem", ID: id},
		URL:            c.base.t.CodeSystemURL(id),
		Name:           id,
		Title:          title,
		Description:    description,
		Status:         "active",
		Content:        "complete",
		Date:           fhir.FormatDateTime(time.Now().UTC()),
	}
}

// FromTable renders an owned table. Tables bound to an external system
// cannot be published and return nil.
func (c *CodeSystemConverter) FromTable(t *mapping.Table) *fhir.CodeSystem {
	if t == nil || !t.Owned {
		return nil
	}
	cs := c.newCodeSystem(t.ID, t.Title, t.Description)
	cs.URL = t.System
	for _, e := range t.Entries() {
		cs.Concept = append(cs.Concept, fhir.CodeSystemConcept{Code: e.Coding.Code, Display: e.Coding.Display})
	}
	cs.Count = len(cs.Concept)
	return cs
}

// FromDiagnoses renders the ICD list. Inactive versions are skipped.
func (c *CodeSystemConverter) FromDiagnoses(diags []*imis.Diagnosis) *fhir.CodeSystem {
	cs := c.newCodeSystem(DiagnosisSystem, "ICD 10 Level 1 diagnosis", "Diagnoses known to the openIMIS instance.")
	for _, d := range diags {
		if !d.Active() {
			continue
		}
		cs.Concept = append(cs.Concept, fhir.CodeSystemConcept{Code: d.Code, Display: d.Name})
	}
	cs.Count = len(cs.Concept)
	return cs
}
