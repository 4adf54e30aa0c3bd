package fhir

import (
	"encoding/json"
)

// Resource is implemented by every typed R4 resource.
type Resource interface {
	GetResourceType() string
	GetID() string
	SetID(id string)
	Domain() *DomainResource
}

// DomainResource carries the elements shared by all resources. Embedded
// structs flatten into the resource JSON.
type DomainResource struct {
	ResourceType string            `json:"resourceType" validate:"required"`
	ID           string            `json:"id,omitempty"`
	Meta         *Meta             `json:"meta,omitempty"`
	Contained    []json.RawMessage `json:"contained,omitempty"`
	Extension    []Extension       `json:"extension,omitempty" validate:"dive"`
}

func (d *DomainResource) GetResourceType() string { return d.ResourceType }
func (d *DomainResource) GetID() string           { return d.ID }
func (d *DomainResource) SetID(id string)         { d.ID = id }
func (d *DomainResource) Domain() *DomainResource { return d }

// ExtensionByURL returns the first extension with the given url.
func (d *DomainResource) ExtensionByURL(url string) *Extension {
	return FindExtension(d.Extension, url)
}

type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty" validate:"omitempty,fhirdatetime"`
	Profile     []string `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty" validate:"dive"`
	Text   string   `json:"text,omitempty"`
}

// FirstCoding returns the first coding or nil.
func (c *CodeableConcept) FirstCoding() *Coding {
	if c == nil || len(c.Coding) == 0 {
		return nil
	}
	return &c.Coding[0]
}

type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
	Period *Period          `json:"period,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty" validate:"omitempty,oneof=usual official temp nickname anonymous old maiden"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

type Address struct {
	Extension  []Extension `json:"extension,omitempty" validate:"dive"`
	Use        string      `json:"use,omitempty" validate:"omitempty,oneof=home work temp old billing"`
	Type       string      `json:"type,omitempty" validate:"omitempty,oneof=postal physical both"`
	Text       string      `json:"text,omitempty"`
	Line       []string    `json:"line,omitempty"`
	City       string      `json:"city,omitempty"`
	District   string      `json:"district,omitempty"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postalCode,omitempty"`
	Country    string      `json:"country,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty" validate:"omitempty,oneof=phone fax email pager url sms other"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty" validate:"omitempty,oneof=home work temp old mobile"`
	Rank   int    `json:"rank,omitempty"`
}

// Period bounds are FHIR dateTime strings.
type Period struct {
	Start string `json:"start,omitempty" validate:"omitempty,fhirdatetime"`
	End   string `json:"end,omitempty" validate:"omitempty,fhirdatetime"`
}

type Money struct {
	Value    *float64 `json:"value,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

type Quantity struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	Data        string `json:"data,omitempty"`
	URL         string `json:"url,omitempty"`
	Hash        string `json:"hash,omitempty"`
	Title       string `json:"title,omitempty"`
	Creation    string `json:"creation,omitempty" validate:"omitempty,fhirdatetime"`
}

// Extension supports the value[x] types the adapter emits. Complex
// extensions use the nested Extension list instead of a value.
type Extension struct {
	URL                  string           `json:"url" validate:"required"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueCode            string           `json:"valueCode,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueInteger         *int             `json:"valueInteger,omitempty"`
	ValueDecimal         *float64         `json:"valueDecimal,omitempty"`
	ValueDate            string           `json:"valueDate,omitempty" validate:"omitempty,fhirdate"`
	ValueDateTime        string           `json:"valueDateTime,omitempty" validate:"omitempty,fhirdatetime"`
	ValueReference       *Reference       `json:"valueReference,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueMoney           *Money           `json:"valueMoney,omitempty"`
	ValueAddress         *Address         `json:"valueAddress,omitempty"`
	Extension            []Extension      `json:"extension,omitempty" validate:"dive"`
}

// FindExtension returns the first extension in list with the given url.
func FindExtension(list []Extension, url string) *Extension {
	for i := range list {
		if list[i].URL == url {
			return &list[i]
		}
	}
	return nil
}

type UsageContext struct {
	Code                 Coding           `json:"code"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
}

type Narrative struct {
	Status string `json:"status" validate:"required,oneof=generated extensions additional empty"`
	Div    string `json:"div" validate:"required"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Decimal returns a pointer to f.
func Decimal(f float64) *float64 { return &f }
