package converter

import (
	"context"
	"path"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// PatientConverter maps insurees.
type PatientConverter struct {
	base *base
}

func (c *PatientConverter) Converter() Converter {
	return &typed[*imis.Insuree, *fhir.Patient]{
		name:         "patient",
		resourceType: "Patient",
		kind:         imis.KindInsuree,
		newResource:  func() *fhir.Patient { return &fhir.Patient{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *PatientConverter) ToFHIR(ins *imis.Insuree, mode ReferenceType) (*fhir.Patient, error) {
	b := c.base
	if ins.DOB == nil || ins.DOB.IsZero() {
		return nil, &ConversionError{Relation: "dob", Message: "Cannot construct patient " + ins.UUID + " without date of birth"}
	}
	p := &fhir.Patient{DomainResource: fhir.DomainResource{ResourceType: "Patient", Meta: newMeta(ins)}}
	pk(p, ins, mode)
	p.Active = fhir.Bool(ins.Active())
	p.Name = []fhir.HumanName{humanName(ins.LastName, ins.OtherNames)}

	p.Identifier = b.identifiers(ins)
	if ins.TypeOfID == "" && ins.PassportNumber != "" {
		p.Identifier = append(p.Identifier, b.identifier(b.t.Identifier.Passport, ins.PassportNumber))
	}

	p.BirthDate = formatDate(ins.DOB)
	if code, ok := b.t.Gender.Code(ins.Gender); ok {
		p.Gender = code
	} else {
		p.Gender = "unknown"
	}
	p.MaritalStatus = b.t.Marital.Concept(ins.Marital)
	p.Telecom = telecom(ins.Phone, ins.Email)
	p.Address = c.addresses(ins, mode)
	p.Extension = c.extensions(ins, mode)

	if cc := b.t.Relationship.Concept(intKey(ins.Relationship)); cc != nil {
		p.Contact = []fhir.PatientContact{{Relationship: []fhir.CodeableConcept{*cc}}}
	}
	if ph := ins.Photo; ph != nil && ph.Data != "" {
		p.Photo = []fhir.Attachment{photoAttachment(ph)}
	}
	if hf := ins.HealthFacility; hf != nil {
		if ref := b.reference(hf, "Organization", mode, hf.Code); ref != nil {
			p.GeneralPractitioner = []fhir.Reference{*ref}
		}
	}
	return p, nil
}

func (c *PatientConverter) addresses(ins *imis.Insuree, mode ReferenceType) []fhir.Address {
	b := c.base
	var out []fhir.Address
	if f := ins.Family; f != nil && (f.Location != nil || f.Address != "") {
		out = append(out, b.address(f.Address, "home", f.Location, mode))
	}
	if ins.CurrentVillage != nil || ins.CurrentAddress != "" {
		out = append(out, b.address(ins.CurrentAddress, "temp", ins.CurrentVillage, mode))
	}
	if ins.Geolocation != "" {
		out = append(out, fhir.Address{Use: "temp", Type: "both", Text: ins.Geolocation})
	}
	return out
}

func (c *PatientConverter) extensions(ins *imis.Insuree, mode ReferenceType) []fhir.Extension {
	b := c.base
	out := []fhir.Extension{extBool(b.ext("patient-is-head"), ins.Head)}
	if cc := b.t.Education.Concept(intKey(ins.Education)); cc != nil {
		out = append(out, fhir.Extension{URL: b.ext("patient-education-level"), ValueCodeableConcept: cc})
	}
	if cc := b.t.Profession.Concept(intKey(ins.Profession)); cc != nil {
		out = append(out, fhir.Extension{URL: b.ext("patient-profession"), ValueCodeableConcept: cc})
	}
	out = append(out, extBool(b.ext("patient-card-issued"), ins.CardIssued))
	if f := ins.Family; f != nil {
		if ref := b.reference(f, "Group", mode, ""); ref != nil {
			out = append(out, fhir.Extension{URL: b.ext("patient-group-reference"), ValueReference: ref})
		}
	}
	if ins.TypeOfID != "" {
		ident := fhir.Extension{URL: b.ext("patient-identification")}
		ident.Extension = append(ident.Extension, extString("number", ins.PassportNumber))
		if cc := b.t.IdentificationType.Concept(ins.TypeOfID); cc != nil {
			ident.Extension = append(ident.Extension, fhir.Extension{URL: "type", ValueCodeableConcept: cc})
		}
		out = append(out, ident)
	}
	return out
}

func photoAttachment(ph *imis.Photo) fhir.Attachment {
	a := fhir.Attachment{Data: ph.Data, Title: ph.Filename, Creation: formatDateTime(ph.Date)}
	if ext := strings.TrimPrefix(path.Ext(ph.Filename), "."); ext != "" {
		a.ContentType = "image/" + strings.ToLower(ext)
	}
	return a
}

func (c *PatientConverter) ToIMIS(ctx context.Context, p *fhir.Patient, auditUserID int) (*imis.Insuree, error) {
	b := c.base
	var errs Errors
	ins := &imis.Insuree{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&ins.Base, p.Identifier)

	if errs.Require(len(p.Name) > 0, "Missing patient `name` attribute") {
		ins.LastName, ins.OtherNames, _ = readName(p.Name)
		errs.Require(ins.LastName != "", "Missing patient family name")
		errs.Require(ins.OtherNames != "", "Missing patient given name")
	}

	ins.CHFID = IdentifierByCode(p.Identifier, b.t.Identifier.CHFID)
	errs.Require(ins.CHFID != "", "Missing patient code")
	if v := IdentifierByCode(p.Identifier, b.t.Identifier.Passport); v != "" {
		ins.PassportNumber = v
	}

	if errs.Require(p.BirthDate != "", "Missing patient `birthDate` attribute") {
		ins.DOB = parseDate(p.BirthDate)
		errs.Require(ins.DOB != nil, "Invalid patient `birthDate` attribute")
	}
	if k, ok := b.t.Gender.Key(p.Gender); ok {
		ins.Gender = k
	}
	if k, ok := b.t.Marital.KeyFromConcept(p.MaritalStatus); ok {
		ins.Marital = k
	}
	ins.Phone, ins.Email = readTelecom(p.Telecom)

	for _, a := range p.Address {
		if a.Use != "temp" {
			continue
		}
		switch a.Type {
		case "physical":
			ins.CurrentAddress = a.Text
			ins.CurrentVillage = b.addressLocation(ctx, a)
		case "both":
			ins.Geolocation = a.Text
		}
	}

	if len(p.Photo) > 0 && p.Photo[0].Data != "" {
		ph := p.Photo[0]
		ins.Photo = &imis.Photo{Filename: ph.Title, Data: ph.Data, Date: parseDate(ph.Creation)}
	}

	c.readExtensions(ctx, ins, p, &errs)

	for _, ct := range p.Contact {
		for i := range ct.Relationship {
			if k, ok := b.t.Relationship.KeyFromConcept(&ct.Relationship[i]); ok {
				ins.Relationship = parseIntKey(k)
			}
		}
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return ins, nil
}

func (c *PatientConverter) readExtensions(ctx context.Context, ins *imis.Insuree, p *fhir.Patient, errs *Errors) {
	b := c.base
	for _, e := range p.Extension {
		switch e.URL {
		case b.ext("patient-is-head"):
			ins.Head = e.ValueBoolean != nil && *e.ValueBoolean
		case b.ext("patient-education-level"):
			if k, ok := b.t.Education.KeyFromConcept(e.ValueCodeableConcept); ok {
				ins.Education = parseIntKey(k)
			}
		case b.ext("patient-profession"):
			if k, ok := b.t.Profession.KeyFromConcept(e.ValueCodeableConcept); ok {
				ins.Profession = parseIntKey(k)
			}
		case b.ext("patient-card-issued"):
			ins.CardIssued = e.ValueBoolean != nil && *e.ValueBoolean
		case b.ext("patient-group-reference"):
			if e.ValueReference == nil {
				continue
			}
			fam, _ := b.resolve(ctx, e.ValueReference, "Group", imis.KindFamily).(*imis.Family)
			if errs.Require(fam != nil, "Family "+e.ValueReference.Reference+" not found") {
				ins.Family = fam
			}
		case b.ext("patient-identification"):
			if n := fhir.FindExtension(e.Extension, "number"); n != nil {
				ins.PassportNumber = n.ValueString
			}
			if t := fhir.FindExtension(e.Extension, "type"); t != nil {
				if k, ok := b.t.IdentificationType.KeyFromConcept(t.ValueCodeableConcept); ok {
					ins.TypeOfID = k
				}
			}
		}
	}
}
