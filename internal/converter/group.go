package converter

import (
	"context"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// GroupConverter maps families. The head of the family is always the first
// member.
type GroupConverter struct {
	base *base
}

func (c *GroupConverter) Converter() Converter {
	return &typed[*imis.Family, *fhir.Group]{
		name:         "group",
		resourceType: "Group",
		kind:         imis.KindFamily,
		newResource:  func() *fhir.Group { return &fhir.Group{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *GroupConverter) ToFHIR(f *imis.Family, mode ReferenceType) (*fhir.Group, error) {
	b := c.base
	g := &fhir.Group{
		DomainResource: fhir.DomainResource{ResourceType: "Group", Meta: newMeta(f)},
		Type:           "person",
		Actual:         true,
		Active:         fhir.Bool(f.Active()),
	}
	pk(g, f, mode)
	g.Identifier = b.identifiers(f)

	if f.Head == nil {
		return nil, &ConversionError{Relation: "head", Message: "Family " + f.UUID + " has no head insuree"}
	}
	g.Name = f.Head.LastName

	members := []*imis.Insuree{f.Head}
	for _, m := range f.Members {
		if m != nil && m.UUID != f.Head.UUID {
			members = append(members, m)
		}
	}
	for _, m := range members {
		ref := b.reference(m, "Patient", mode, m.OtherNames+" "+m.LastName)
		if ref == nil {
			continue
		}
		g.Member = append(g.Member, fhir.GroupMember{Entity: *ref, Inactive: fhir.Bool(!m.Active())})
	}
	g.Quantity = fhir.Int(len(g.Member))

	if f.Location != nil || f.Address != "" {
		a := b.address(f.Address, "home", f.Location, mode)
		g.Extension = append(g.Extension, fhir.Extension{URL: b.ext("group-address"), ValueAddress: &a})
	}
	if f.Poverty != nil {
		g.Extension = append(g.Extension, extBool(b.ext("group-poverty-status"), *f.Poverty))
	}
	if cc := b.t.FamilyType.Concept(f.FamilyType); cc != nil {
		g.Extension = append(g.Extension, fhir.Extension{URL: b.ext("group-type"), ValueCodeableConcept: cc})
	}
	if f.ConfirmationNo != "" || f.ConfirmationType != "" {
		conf := fhir.Extension{URL: b.ext("group-confirmation")}
		if f.ConfirmationNo != "" {
			conf.Extension = append(conf.Extension, extString("number", f.ConfirmationNo))
		}
		if cc := b.t.ConfirmationType.Concept(f.ConfirmationType); cc != nil {
			conf.Extension = append(conf.Extension, fhir.Extension{URL: "type", ValueCodeableConcept: cc})
		}
		g.Extension = append(g.Extension, conf)
	}
	return g, nil
}

func (c *GroupConverter) ToIMIS(ctx context.Context, g *fhir.Group, auditUserID int) (*imis.Family, error) {
	b := c.base
	var errs Errors
	f := &imis.Family{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&f.Base, g.Identifier)

	if errs.Require(len(g.Member) > 0, "Missing group head") {
		for i := range g.Member {
			ref := &g.Member[i].Entity
			ins, _ := b.resolve(ctx, ref, "Patient", imis.KindInsuree).(*imis.Insuree)
			if !errs.Require(ins != nil, "Member "+ref.Reference+" not found") {
				continue
			}
			if i == 0 {
				f.Head = ins
			}
			f.Members = append(f.Members, ins)
		}
	}

	if e := g.ExtensionByURL(b.ext("group-address")); e != nil && e.ValueAddress != nil {
		f.Address = e.ValueAddress.Text
		f.Location = b.addressLocation(ctx, *e.ValueAddress)
	}
	if e := g.ExtensionByURL(b.ext("group-poverty-status")); e != nil && e.ValueBoolean != nil {
		f.Poverty = fhir.Bool(*e.ValueBoolean)
	}
	if e := g.ExtensionByURL(b.ext("group-type")); e != nil {
		if k, ok := b.t.FamilyType.KeyFromConcept(e.ValueCodeableConcept); ok {
			f.FamilyType = k
		}
	}
	if e := g.ExtensionByURL(b.ext("group-confirmation")); e != nil {
		if n := fhir.FindExtension(e.Extension, "number"); n != nil {
			f.ConfirmationNo = n.ValueString
		}
		if t := fhir.FindExtension(e.Extension, "type"); t != nil {
			if k, ok := b.t.ConfirmationType.KeyFromConcept(t.ValueCodeableConcept); ok {
				f.ConfirmationType = k
			}
		}
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return f, nil
}
