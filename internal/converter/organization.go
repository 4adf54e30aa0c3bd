package converter

import (
	"context"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Organization type codes partitioning the Organization endpoint.
const (
	OrgTypeProvider  = "prov"
	OrgTypeBusiness  = "bus"
	OrgTypeInsurance = "ins"
)

func (b *base) orgType(code string) []fhir.CodeableConcept {
	if cc := b.t.OrgType.Concept(code); cc != nil {
		return []fhir.CodeableConcept{*cc}
	}
	return nil
}

// OrganizationType returns the organisation type code declared by o, or "".
func OrganizationType(o *fhir.Organization) string {
	for i := range o.Type {
		if c := o.Type[i].FirstCoding(); c != nil {
			return c.Code
		}
	}
	return ""
}

func orgTelecom(phone, fax, email, website string) []fhir.ContactPoint {
	out := telecom(phone, email)
	if fax != "" {
		out = append(out, fhir.ContactPoint{System: "fax", Value: fax})
	}
	if website != "" {
		out = append(out, fhir.ContactPoint{System: "url", Value: website})
	}
	return out
}

func readFax(points []fhir.ContactPoint) string {
	for _, p := range points {
		if p.System == "fax" {
			return p.Value
		}
	}
	return ""
}

func (b *base) adminContact(name fhir.HumanName) fhir.OrganizationContact {
	return fhir.OrganizationContact{
		Purpose: concept(mapping.SystemContactEntityType, "ADMIN", "Administrative"),
		Name:    &name,
	}
}

// HealthFacilityConverter maps health facilities to Organization/prov.
// Facilities are created through the claim admin Practitioner, so ToIMIS is
// not supported.
type HealthFacilityConverter struct {
	base *base
}

func (c *HealthFacilityConverter) Converter() Converter {
	return &typed[*imis.HealthFacility, *fhir.Organization]{
		name:         "health_facility_organisation",
		resourceType: "Organization",
		kind:         imis.KindHealthFacility,
		newResource:  func() *fhir.Organization { return &fhir.Organization{} },
		toFHIR:       c.ToFHIR,
	}
}

func (c *HealthFacilityConverter) ToFHIR(hf *imis.HealthFacility, mode ReferenceType) (*fhir.Organization, error) {
	b := c.base
	o := &fhir.Organization{
		DomainResource: fhir.DomainResource{ResourceType: "Organization", Meta: newMeta(hf)},
		Active:         fhir.Bool(hf.Active()),
		Name:           hf.Name,
		Type:           b.orgType(OrgTypeProvider),
	}
	pk(o, hf, mode)
	if cc := b.t.HFLegalForm.Concept(hf.LegalForm); cc != nil {
		o.Extension = append(o.Extension, fhir.Extension{URL: b.ext("organization-legal-form"), ValueCodeableConcept: cc})
	}
	if cc := b.t.HFLevel.Concept(hf.Level); cc != nil {
		o.Extension = append(o.Extension, fhir.Extension{URL: b.ext("organization-hf-level"), ValueCodeableConcept: cc})
	}
	o.Identifier = b.identifiers(hf)
	o.Telecom = orgTelecom(hf.Phone, hf.Fax, hf.Email, "")

	// facilities sit on district level
	a := fhir.Address{Type: "physical"}
	if hf.Address != "" {
		a.Line = []string{hf.Address}
	}
	if loc := hf.Location; loc != nil {
		a.District = loc.Name
		if loc.Parent != nil {
			a.State = loc.Parent.Name
		}
		if ref := b.reference(loc, "Location", mode, loc.Code); ref != nil {
			a.Extension = []fhir.Extension{{URL: b.ext("address-location-reference"), ValueReference: ref}}
		}
	}
	o.Address = []fhir.Address{a}

	for _, admin := range hf.ClaimAdmins {
		o.Contact = append(o.Contact, b.adminContact(humanName(admin.LastName, admin.OtherNames)))
	}
	return o, nil
}

// PolicyHolderConverter maps policy holders to Organization/bus.
type PolicyHolderConverter struct {
	base *base
}

func (c *PolicyHolderConverter) Converter() Converter {
	return &typed[*imis.PolicyHolder, *fhir.Organization]{
		name:         "policy_holder_organisation",
		resourceType: "Organization",
		kind:         imis.KindPolicyHolder,
		newResource:  func() *fhir.Organization { return &fhir.Organization{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *PolicyHolderConverter) ToFHIR(ph *imis.PolicyHolder, mode ReferenceType) (*fhir.Organization, error) {
	b := c.base
	o := &fhir.Organization{
		DomainResource: fhir.DomainResource{ResourceType: "Organization", Meta: newMeta(ph)},
		Active:         fhir.Bool(ph.Active()),
		Name:           ph.TradeName,
		Type:           b.orgType(OrgTypeBusiness),
	}
	pk(o, ph, mode)
	if cc := b.t.PHLegalForm.Concept(intKey(ph.LegalForm)); cc != nil {
		o.Extension = append(o.Extension, fhir.Extension{URL: b.ext("organization-ph-legal-form"), ValueCodeableConcept: cc})
	}
	if cc := b.t.PHActivity.Concept(intKey(ph.Activity)); cc != nil {
		o.Extension = append(o.Extension, fhir.Extension{URL: b.ext("organization-ph-activity"), ValueCodeableConcept: cc})
	}
	o.Identifier = b.identifiers(ph)
	o.Telecom = orgTelecom(ph.Phone, ph.Fax, ph.Email, "")
	if ph.Address != "" || ph.Location != nil {
		o.Address = []fhir.Address{b.address(ph.Address, "work", ph.Location, mode)}
	}
	if ph.ContactName != "" {
		o.Contact = []fhir.OrganizationContact{b.adminContact(fhir.HumanName{Text: ph.ContactName})}
	}
	return o, nil
}

func (c *PolicyHolderConverter) ToIMIS(ctx context.Context, o *fhir.Organization, auditUserID int) (*imis.PolicyHolder, error) {
	b := c.base
	var errs Errors
	ph := &imis.PolicyHolder{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&ph.Base, o.Identifier)

	ph.Code = IdentifierByCode(o.Identifier, b.t.Identifier.Code)
	errs.Require(ph.Code != "", "Missing policy holder code")
	ph.TradeName = o.Name
	errs.Require(ph.TradeName != "", "Missing organisation `name` attribute")

	if e := o.ExtensionByURL(b.ext("organization-ph-legal-form")); e != nil {
		if k, ok := b.t.PHLegalForm.KeyFromConcept(e.ValueCodeableConcept); ok {
			ph.LegalForm = parseIntKey(k)
		}
	}
	if e := o.ExtensionByURL(b.ext("organization-ph-activity")); e != nil {
		if k, ok := b.t.PHActivity.KeyFromConcept(e.ValueCodeableConcept); ok {
			ph.Activity = parseIntKey(k)
		}
	}
	ph.Phone, ph.Email = readTelecom(o.Telecom)
	ph.Fax = readFax(o.Telecom)
	if len(o.Address) > 0 {
		ph.Address = o.Address[0].Text
		ph.Location = b.addressLocation(ctx, o.Address[0])
	}
	for _, ct := range o.Contact {
		if ct.Name != nil && ct.Name.Text != "" {
			ph.ContactName = ct.Name.Text
			break
		}
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return ph, nil
}

// InsuranceOrganizationConverter exposes the implementation's own
// organisation as Organization/ins. It is read only.
type InsuranceOrganizationConverter struct {
	base *base
}

func (c *InsuranceOrganizationConverter) Converter() Converter {
	return &typed[*imis.InsuranceOrganization, *fhir.Organization]{
		name:         "insurance_organisation",
		resourceType: "Organization",
		kind:         imis.KindInsuranceOrganization,
		newResource:  func() *fhir.Organization { return &fhir.Organization{} },
		toFHIR:       c.ToFHIR,
	}
}

func (c *InsuranceOrganizationConverter) ToFHIR(io *imis.InsuranceOrganization, mode ReferenceType) (*fhir.Organization, error) {
	b := c.base
	o := &fhir.Organization{
		DomainResource: fhir.DomainResource{ResourceType: "Organization", Meta: newMeta(io)},
		Active:         fhir.Bool(true),
		Name:           io.Name,
		Type:           b.orgType(OrgTypeInsurance),
	}
	pk(o, io, mode)
	o.Identifier = b.identifiers(io)
	o.Telecom = orgTelecom(io.Phone, io.Fax, io.Email, io.Website)
	if io.Address != "" {
		o.Address = []fhir.Address{{Type: "physical", Text: io.Address}}
	}
	return o, nil
}
