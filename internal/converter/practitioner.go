package converter

import (
	"context"
	"time"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Qualification and role codes of the two practitioner kinds.
const (
	QualificationClaimAdmin = "CA"
	QualificationOfficer    = "EO"
)

var qualificationDisplay = map[string]string{
	QualificationClaimAdmin: "Claim Administrator",
	QualificationOfficer:    "Enrolment Officer",
}

func (b *base) qualification(code string) *fhir.CodeableConcept {
	return concept(b.t.CodeSystemURL("practitioner-qualification-type"), code, qualificationDisplay[code])
}

// person is the shared shape of claim admins and enrolment officers.
type person struct {
	code, lastName, otherNames, phone, email string
	dob                                      *time.Time
}

func (b *base) practitioner(rec imis.Record, p person, qualification string, mode ReferenceType) *fhir.Practitioner {
	pr := &fhir.Practitioner{
		DomainResource: fhir.DomainResource{ResourceType: "Practitioner", Meta: newMeta(rec)},
		Active:         fhir.Bool(rec.Meta().Active()),
		Name:           []fhir.HumanName{humanName(p.lastName, p.otherNames)},
		Telecom:        telecom(p.phone, p.email),
		BirthDate:      formatDate(p.dob),
		Qualification:  []fhir.PractitionerQualification{{Code: *b.qualification(qualification)}},
	}
	pk(pr, rec, mode)
	pr.Identifier = b.identifiers(rec)
	return pr
}

func (b *base) readPractitioner(meta *imis.Base, pr *fhir.Practitioner, errs *Errors) person {
	var p person
	b.readIdentifiers(meta, pr.Identifier)
	p.code = IdentifierByCode(pr.Identifier, b.t.Identifier.Code)
	errs.Require(p.code != "", "Missing practitioner code")
	if errs.Require(len(pr.Name) > 0, "Missing practitioner `name` attribute") {
		p.lastName, p.otherNames, _ = readName(pr.Name)
		errs.Require(p.lastName != "", "Missing practitioner family name")
		errs.Require(p.otherNames != "", "Missing practitioner given name")
	}
	p.dob = parseDate(pr.BirthDate)
	p.phone, p.email = readTelecom(pr.Telecom)
	return p
}

// ClaimAdminPractitionerConverter maps claim administrators.
type ClaimAdminPractitionerConverter struct {
	base *base
}

func (c *ClaimAdminPractitionerConverter) Converter() Converter {
	return &typed[*imis.ClaimAdmin, *fhir.Practitioner]{
		name:         "claim_admin_practitioner",
		resourceType: "Practitioner",
		kind:         imis.KindClaimAdmin,
		newResource:  func() *fhir.Practitioner { return &fhir.Practitioner{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *ClaimAdminPractitionerConverter) ToFHIR(ca *imis.ClaimAdmin, mode ReferenceType) (*fhir.Practitioner, error) {
	p := person{ca.Code, ca.LastName, ca.OtherNames, ca.Phone, ca.Email, ca.DOB}
	return c.base.practitioner(ca, p, QualificationClaimAdmin, mode), nil
}

func (c *ClaimAdminPractitionerConverter) ToIMIS(_ context.Context, pr *fhir.Practitioner, auditUserID int) (*imis.ClaimAdmin, error) {
	var errs Errors
	ca := &imis.ClaimAdmin{Base: newRecordBase(auditUserID)}
	p := c.base.readPractitioner(&ca.Base, pr, &errs)
	if err := errs.Check(); err != nil {
		return nil, err
	}
	ca.Code, ca.LastName, ca.OtherNames, ca.Phone, ca.Email, ca.DOB = p.code, p.lastName, p.otherNames, p.phone, p.email, p.dob
	return ca, nil
}

// OfficerPractitionerConverter maps enrolment officers.
type OfficerPractitionerConverter struct {
	base *base
}

func (c *OfficerPractitionerConverter) Converter() Converter {
	return &typed[*imis.Officer, *fhir.Practitioner]{
		name:         "officer_practitioner",
		resourceType: "Practitioner",
		kind:         imis.KindOfficer,
		newResource:  func() *fhir.Practitioner { return &fhir.Practitioner{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *OfficerPractitionerConverter) ToFHIR(o *imis.Officer, mode ReferenceType) (*fhir.Practitioner, error) {
	p := person{o.Code, o.LastName, o.OtherNames, o.Phone, o.Email, o.DOB}
	return c.base.practitioner(o, p, QualificationOfficer, mode), nil
}

func (c *OfficerPractitionerConverter) ToIMIS(_ context.Context, pr *fhir.Practitioner, auditUserID int) (*imis.Officer, error) {
	var errs Errors
	o := &imis.Officer{Base: newRecordBase(auditUserID)}
	p := c.base.readPractitioner(&o.Base, pr, &errs)
	if err := errs.Check(); err != nil {
		return nil, err
	}
	o.Code, o.LastName, o.OtherNames, o.Phone, o.Email, o.DOB = p.code, p.lastName, p.otherNames, p.phone, p.email, p.dob
	return o, nil
}

func (b *base) practitionerRole(rec imis.Record, display, role string, mode ReferenceType) *fhir.PractitionerRole {
	r := &fhir.PractitionerRole{
		DomainResource: fhir.DomainResource{ResourceType: "PractitionerRole", Meta: newMeta(rec)},
		Active:         fhir.Bool(rec.Meta().Active()),
		Practitioner:   b.reference(rec, "Practitioner", mode, display),
		Code:           []fhir.CodeableConcept{*b.qualification(role)},
	}
	pk(r, rec, mode)
	r.Identifier = b.identifiers(rec)
	return r
}

// ClaimAdminPractitionerRoleConverter binds a claim admin to its health
// facility. ToIMIS returns the referenced claim admin with the facility
// replaced.
type ClaimAdminPractitionerRoleConverter struct {
	base *base
}

func (c *ClaimAdminPractitionerRoleConverter) Converter() Converter {
	return &typed[*imis.ClaimAdmin, *fhir.PractitionerRole]{
		name:         "claim_admin_practitioner_role",
		resourceType: "PractitionerRole",
		kind:         imis.KindClaimAdmin,
		newResource:  func() *fhir.PractitionerRole { return &fhir.PractitionerRole{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *ClaimAdminPractitionerRoleConverter) ToFHIR(ca *imis.ClaimAdmin, mode ReferenceType) (*fhir.PractitionerRole, error) {
	b := c.base
	r := b.practitionerRole(ca, ca.OtherNames+" "+ca.LastName, QualificationClaimAdmin, mode)
	if hf := ca.HealthFacility; hf != nil {
		r.Organization = b.reference(hf, "Organization", mode, hf.Code)
		if hf.Location != nil {
			if ref := b.reference(hf.Location, "Location", mode, hf.Location.Code); ref != nil {
				r.Location = []fhir.Reference{*ref}
			}
		}
	}
	r.Telecom = telecom(ca.Phone, ca.Email)
	return r, nil
}

func (c *ClaimAdminPractitionerRoleConverter) ToIMIS(ctx context.Context, r *fhir.PractitionerRole, auditUserID int) (*imis.ClaimAdmin, error) {
	b := c.base
	var errs Errors
	var out imis.ClaimAdmin
	if errs.Require(r.Practitioner != nil, "Missing `practitioner` attribute") {
		ca, _ := b.resolve(ctx, r.Practitioner, "Practitioner", imis.KindClaimAdmin).(*imis.ClaimAdmin)
		if errs.Require(ca != nil, "Practitioner "+r.Practitioner.Reference+" not found") {
			out = *ca
		}
	}
	if errs.Require(r.Organization != nil, "Missing `organization` attribute") {
		hf, _ := b.resolve(ctx, r.Organization, "Organization", imis.KindHealthFacility).(*imis.HealthFacility)
		if errs.Require(hf != nil, "Organization "+r.Organization.Reference+" not found") {
			out.HealthFacility = hf
		}
	}
	if err := errs.Check(); err != nil {
		return nil, err
	}
	out.AuditUserID = auditUserID
	return &out, nil
}

// OfficerPractitionerRoleConverter binds an enrolment officer to its
// location.
type OfficerPractitionerRoleConverter struct {
	base *base
}

func (c *OfficerPractitionerRoleConverter) Converter() Converter {
	return &typed[*imis.Officer, *fhir.PractitionerRole]{
		name:         "officer_practitioner_role",
		resourceType: "PractitionerRole",
		kind:         imis.KindOfficer,
		newResource:  func() *fhir.PractitionerRole { return &fhir.PractitionerRole{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *OfficerPractitionerRoleConverter) ToFHIR(o *imis.Officer, mode ReferenceType) (*fhir.PractitionerRole, error) {
	b := c.base
	r := b.practitionerRole(o, o.OtherNames+" "+o.LastName, QualificationOfficer, mode)
	if loc := o.Location; loc != nil {
		if ref := b.reference(loc, "Location", mode, loc.Code); ref != nil {
			r.Location = []fhir.Reference{*ref}
		}
	}
	r.Telecom = telecom(o.Phone, o.Email)
	return r, nil
}

func (c *OfficerPractitionerRoleConverter) ToIMIS(ctx context.Context, r *fhir.PractitionerRole, auditUserID int) (*imis.Officer, error) {
	b := c.base
	var errs Errors
	var out imis.Officer
	if errs.Require(r.Practitioner != nil, "Missing `practitioner` attribute") {
		o, _ := b.resolve(ctx, r.Practitioner, "Practitioner", imis.KindOfficer).(*imis.Officer)
		if errs.Require(o != nil, "Practitioner "+r.Practitioner.Reference+" not found") {
			out = *o
		}
	}
	if errs.Require(len(r.Location) > 0, "Missing `location` attribute") {
		loc, _ := b.resolve(ctx, &r.Location[0], "Location", imis.KindLocation).(*imis.Location)
		if errs.Require(loc != nil, "Location "+r.Location[0].Reference+" not found") {
			out.Location = loc
		}
	}
	if err := errs.Check(); err != nil {
		return nil, err
	}
	out.AuditUserID = auditUserID
	return &out, nil
}
