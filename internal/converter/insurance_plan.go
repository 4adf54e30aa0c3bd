package converter

import (
	"context"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// InsurancePlanConverter maps products.
type InsurancePlanConverter struct {
	base *base
}

func (c *InsurancePlanConverter) Converter() Converter {
	return &typed[*imis.Product, *fhir.InsurancePlan]{
		name:         "insurance_plan",
		resourceType: "InsurancePlan",
		kind:         imis.KindProduct,
		newResource:  func() *fhir.InsurancePlan { return &fhir.InsurancePlan{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *InsurancePlanConverter) ToFHIR(p *imis.Product, mode ReferenceType) (*fhir.InsurancePlan, error) {
	b := c.base
	ip := &fhir.InsurancePlan{
		DomainResource: fhir.DomainResource{ResourceType: "InsurancePlan", Meta: newMeta(p)},
		Name:           p.Name,
		Period:         period(p.DateFrom, p.DateTo),
	}
	if p.Active() {
		ip.Status = "active"
	} else {
		ip.Status = "retired"
	}
	pk(ip, p, mode)
	ip.Identifier = b.identifiers(p)
	if cc := b.t.InsurancePlanType.Concept("medical"); cc != nil {
		ip.Type = []fhir.CodeableConcept{*cc}
	}
	if loc := p.Location; loc != nil {
		if ref := b.reference(loc, "Location", mode, loc.Code); ref != nil {
			ip.CoverageArea = []fhir.Reference{*ref}
		}
	}
	if p.MaxMembers > 0 {
		ip.Extension = append(ip.Extension, fhir.Extension{URL: b.ext("insurance-plan-max-members"), ValueInteger: fhir.Int(p.MaxMembers)})
	}
	if p.InsurancePeriod > 0 {
		ip.Extension = append(ip.Extension, fhir.Extension{URL: b.ext("insurance-plan-period"), ValueInteger: fhir.Int(p.InsurancePeriod)})
	}
	if p.LumpSum > 0 {
		ip.Extension = append(ip.Extension, fhir.Extension{URL: b.ext("insurance-plan-lump-sum"), ValueMoney: b.money(p.LumpSum)})
	}
	return ip, nil
}

func (c *InsurancePlanConverter) ToIMIS(ctx context.Context, ip *fhir.InsurancePlan, auditUserID int) (*imis.Product, error) {
	b := c.base
	var errs Errors
	p := &imis.Product{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&p.Base, ip.Identifier)

	p.Code = IdentifierByCode(ip.Identifier, b.t.Identifier.Code)
	errs.Require(p.Code != "", "Missing product code")
	p.Name = ip.Name
	errs.Require(p.Name != "", "Missing product `name` attribute")
	if ip.Period != nil {
		p.DateFrom = parseDate(ip.Period.Start)
		p.DateTo = parseDate(ip.Period.End)
	}
	if len(ip.CoverageArea) > 0 {
		loc, _ := b.resolve(ctx, &ip.CoverageArea[0], "Location", imis.KindLocation).(*imis.Location)
		if errs.Require(loc != nil, "Location "+ip.CoverageArea[0].Reference+" not found") {
			p.Location = loc
		}
	}
	if e := ip.ExtensionByURL(b.ext("insurance-plan-max-members")); e != nil && e.ValueInteger != nil {
		p.MaxMembers = *e.ValueInteger
	}
	if e := ip.ExtensionByURL(b.ext("insurance-plan-period")); e != nil && e.ValueInteger != nil {
		p.InsurancePeriod = *e.ValueInteger
	}
	if e := ip.ExtensionByURL(b.ext("insurance-plan-lump-sum")); e != nil && e.ValueMoney != nil && e.ValueMoney.Value != nil {
		p.LumpSum = *e.ValueMoney.Value
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return p, nil
}
