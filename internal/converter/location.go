package converter

import (
	"context"
	"fmt"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// LocationConverter maps the administrative location tree.
type LocationConverter struct {
	base *base
}

func (c *LocationConverter) Converter() Converter {
	return &typed[*imis.Location, *fhir.Location]{
		name:         "location",
		resourceType: "Location",
		kind:         imis.KindLocation,
		newResource:  func() *fhir.Location { return &fhir.Location{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *LocationConverter) ToFHIR(l *imis.Location, mode ReferenceType) (*fhir.Location, error) {
	b := c.base
	physical := b.t.LocationType.Concept(l.Type)
	if physical == nil {
		return nil, &ConversionError{
			Relation: "type",
			Message:  fmt.Sprintf("Invalid location type %q for location %s", l.Type, l.UUID),
		}
	}
	if l.Name == "" {
		return nil, &ConversionError{Relation: "name", Message: "Location " + l.UUID + " without name"}
	}
	loc := &fhir.Location{
		DomainResource: fhir.DomainResource{ResourceType: "Location", Meta: newMeta(l)},
		Name:           l.Name,
		Mode:           "instance",
		PhysicalType:   physical,
		Type:           []fhir.CodeableConcept{*physical},
	}
	pk(loc, l, mode)
	loc.Identifier = b.identifiers(l)
	if l.Active() {
		loc.Status = "active"
	} else {
		loc.Status = "inactive"
	}
	if l.Parent != nil {
		loc.PartOf = b.reference(l.Parent, "Location", mode, l.Parent.Code)
	}
	return loc, nil
}

func (c *LocationConverter) ToIMIS(ctx context.Context, loc *fhir.Location, auditUserID int) (*imis.Location, error) {
	b := c.base
	var errs Errors
	l := &imis.Location{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&l.Base, loc.Identifier)

	l.Code = IdentifierByCode(loc.Identifier, b.t.Identifier.Code)
	errs.Require(l.Code != "", "Missing location code")
	l.Name = loc.Name
	errs.Require(l.Name != "", "Missing location `name` attribute")

	if k, ok := b.t.LocationType.KeyFromConcept(loc.PhysicalType); ok {
		l.Type = k
	} else if len(loc.Type) > 0 {
		if k, ok := b.t.LocationType.KeyFromConcept(&loc.Type[0]); ok {
			l.Type = k
		}
	}
	errs.Require(l.Type != "", "Missing location type")

	if loc.PartOf != nil {
		parent, _ := b.resolve(ctx, loc.PartOf, "Location", imis.KindLocation).(*imis.Location)
		if errs.Require(parent != nil, "Parent location "+loc.PartOf.Reference+" not found") {
			l.Parent = parent
		}
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return l, nil
}
