package converter

import (
	"context"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Patient category flags of items and services.
const (
	CategoryMale   = 1
	CategoryFemale = 2
	CategoryAdult  = 4
	CategoryChild  = 8
)

// categoryConcepts splits the patient category bit set into a gender and an
// age concept.
func (b *base) categoryConcepts(flags int) (gender, age *fhir.CodeableConcept) {
	gender, age = &fhir.CodeableConcept{}, &fhir.CodeableConcept{}
	if flags&CategoryMale != 0 {
		gender.Coding = append(gender.Coding, fhir.Coding{System: mapping.SystemAdministrativeGender, Code: "male", Display: "Male"})
	}
	if flags&CategoryFemale != 0 {
		gender.Coding = append(gender.Coding, fhir.Coding{System: mapping.SystemAdministrativeGender, Code: "female", Display: "Female"})
	}
	if flags&CategoryAdult != 0 {
		c, _ := b.t.PatientCategory.Coding("adult")
		age.Coding = append(age.Coding, c)
	}
	if flags&CategoryChild != 0 {
		c, _ := b.t.PatientCategory.Coding("child")
		age.Coding = append(age.Coding, c)
	}
	return gender, age
}

func categoryFlags(cc *fhir.CodeableConcept) int {
	if cc == nil {
		return 0
	}
	flags := 0
	for _, c := range cc.Coding {
		switch c.Code {
		case "male":
			flags |= CategoryMale
		case "female":
			flags |= CategoryFemale
		case "adult":
			flags |= CategoryAdult
		case "child":
			flags |= CategoryChild
		}
	}
	return flags
}

func (b *base) priceExtension(price float64) fhir.Extension {
	return fhir.Extension{URL: b.ext("unit-price"), ValueMoney: b.money(price)}
}

func (b *base) readPrice(list []fhir.Extension) float64 {
	if e := fhir.FindExtension(list, b.ext("unit-price")); e != nil && e.ValueMoney != nil && e.ValueMoney.Value != nil {
		return *e.ValueMoney.Value
	}
	return 0
}

func activeStatus(rec imis.Record, active, inactive string) string {
	if rec.Meta().Active() {
		return active
	}
	return inactive
}

// MedicationConverter maps medical items.
type MedicationConverter struct {
	base *base
}

func (c *MedicationConverter) Converter() Converter {
	return &typed[*imis.Item, *fhir.Medication]{
		name:         "medication",
		resourceType: "Medication",
		kind:         imis.KindItem,
		newResource:  func() *fhir.Medication { return &fhir.Medication{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *MedicationConverter) ToFHIR(it *imis.Item, mode ReferenceType) (*fhir.Medication, error) {
	b := c.base
	m := &fhir.Medication{
		DomainResource: fhir.DomainResource{ResourceType: "Medication", Meta: newMeta(it)},
		Code:           &fhir.CodeableConcept{Coding: []fhir.Coding{{System: b.t.IdentifierSystem, Code: it.Code, Display: it.Name}}, Text: it.Name},
		Status:         activeStatus(it, "active", "inactive"),
	}
	if it.Package != "" {
		m.Form = textConcept(it.Package)
	}
	pk(m, it, mode)
	m.Identifier = b.identifiers(it)

	m.Extension = append(m.Extension, b.priceExtension(it.Price))
	if it.Frequency != nil {
		m.Extension = append(m.Extension, fhir.Extension{URL: b.ext("medication-frequency"), ValueInteger: fhir.Int(*it.Frequency)})
	}
	if cc := b.t.ItemType.Concept(it.Type); cc != nil {
		m.Extension = append(m.Extension, fhir.Extension{URL: b.ext("medication-type"), ValueCodeableConcept: cc})
	}
	usage := fhir.Extension{URL: b.ext("medication-usage-context")}
	gender, age := b.categoryConcepts(it.PatientCategory)
	if len(gender.Coding) > 0 {
		usage.Extension = append(usage.Extension, fhir.Extension{URL: "gender", ValueCodeableConcept: gender})
	}
	if len(age.Coding) > 0 {
		usage.Extension = append(usage.Extension, fhir.Extension{URL: "age", ValueCodeableConcept: age})
	}
	if cc := b.t.ItemVenue.Concept(it.CareType); cc != nil {
		usage.Extension = append(usage.Extension, fhir.Extension{URL: "venue", ValueCodeableConcept: cc})
	}
	if len(usage.Extension) > 0 {
		m.Extension = append(m.Extension, usage)
	}
	return m, nil
}

func (c *MedicationConverter) ToIMIS(_ context.Context, m *fhir.Medication, auditUserID int) (*imis.Item, error) {
	b := c.base
	var errs Errors
	it := &imis.Item{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&it.Base, m.Identifier)

	it.Code = IdentifierByCode(m.Identifier, b.t.Identifier.Code)
	errs.Require(it.Code != "", "Missing medication code")
	if m.Code != nil {
		it.Name = m.Code.Text
		if it.Name == "" {
			if cd := m.Code.FirstCoding(); cd != nil {
				it.Name = cd.Display
			}
		}
	}
	errs.Require(it.Name != "", "Missing medication name")
	if m.Form != nil {
		it.Package = m.Form.Text
	}
	it.Price = b.readPrice(m.Extension)
	if e := m.ExtensionByURL(b.ext("medication-frequency")); e != nil && e.ValueInteger != nil {
		it.Frequency = fhir.Int(*e.ValueInteger)
	}
	if e := m.ExtensionByURL(b.ext("medication-type")); e != nil {
		if k, ok := b.t.ItemType.KeyFromConcept(e.ValueCodeableConcept); ok {
			it.Type = k
		}
	}
	if e := m.ExtensionByURL(b.ext("medication-usage-context")); e != nil {
		for _, sub := range e.Extension {
			switch sub.URL {
			case "gender", "age":
				it.PatientCategory |= categoryFlags(sub.ValueCodeableConcept)
			case "venue":
				if k, ok := b.t.ItemVenue.KeyFromConcept(sub.ValueCodeableConcept); ok {
					it.CareType = k
				}
			}
		}
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return it, nil
}

// ActivityDefinitionConverter maps medical services.
type ActivityDefinitionConverter struct {
	base *base
}

func (c *ActivityDefinitionConverter) Converter() Converter {
	return &typed[*imis.Service, *fhir.ActivityDefinition]{
		name:         "activity_definition",
		resourceType: "ActivityDefinition",
		kind:         imis.KindService,
		newResource:  func() *fhir.ActivityDefinition { return &fhir.ActivityDefinition{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *ActivityDefinitionConverter) useContext(code string, cc *fhir.CodeableConcept) fhir.UsageContext {
	coding, _ := c.base.t.UseContext.Coding(code)
	return fhir.UsageContext{Code: coding, ValueCodeableConcept: cc}
}

func (c *ActivityDefinitionConverter) ToFHIR(s *imis.Service, mode ReferenceType) (*fhir.ActivityDefinition, error) {
	b := c.base
	ad := &fhir.ActivityDefinition{
		DomainResource: fhir.DomainResource{ResourceType: "ActivityDefinition", Meta: newMeta(s)},
		Name:           s.Code,
		Title:          s.Name,
		Status:         activeStatus(s, "active", "retired"),
		Kind:           "ServiceRequest",
	}
	if !s.ValidityFrom.IsZero() {
		ad.Date = fhir.FormatDateTime(s.ValidityFrom)
	}
	pk(ad, s, mode)
	ad.Identifier = b.identifiers(s)

	gender, age := b.categoryConcepts(s.PatientCategory)
	if len(gender.Coding) > 0 {
		ad.UseContext = append(ad.UseContext, c.useContext("gender", gender))
	}
	if len(age.Coding) > 0 {
		ad.UseContext = append(ad.UseContext, c.useContext("age", age))
	}
	if cc := b.t.Venue.Concept(s.CareType); cc != nil {
		ad.UseContext = append(ad.UseContext, c.useContext("venue", cc))
	}
	if cc := b.t.Workflow.Concept(s.Category); cc != nil {
		ad.UseContext = append(ad.UseContext, c.useContext("workflow", cc))
	}
	if cc := b.t.ServiceType.Concept(s.Type); cc != nil {
		ad.Topic = []fhir.CodeableConcept{*cc}
	}
	if s.Frequency != nil {
		ad.Timing = &fhir.Timing{Repeat: &fhir.TimingRepeat{Frequency: fhir.Int(1), Period: fhir.Decimal(float64(*s.Frequency)), PeriodUnit: "d"}}
	}
	ad.Extension = append(ad.Extension, b.priceExtension(s.Price))
	if s.Level != "" {
		ad.Extension = append(ad.Extension, extString(b.ext("activity-definition-level"), s.Level))
	}
	return ad, nil
}

func (c *ActivityDefinitionConverter) ToIMIS(_ context.Context, ad *fhir.ActivityDefinition, auditUserID int) (*imis.Service, error) {
	b := c.base
	var errs Errors
	s := &imis.Service{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&s.Base, ad.Identifier)

	s.Code = IdentifierByCode(ad.Identifier, b.t.Identifier.Code)
	if s.Code == "" {
		s.Code = ad.Name
	}
	errs.Require(s.Code != "", "Missing activity definition code")
	s.Name = ad.Title
	errs.Require(s.Name != "", "Missing activity definition `title` attribute")

	for _, uc := range ad.UseContext {
		switch uc.Code.Code {
		case "gender", "age":
			s.PatientCategory |= categoryFlags(uc.ValueCodeableConcept)
		case "venue":
			if k, ok := b.t.Venue.KeyFromConcept(uc.ValueCodeableConcept); ok {
				s.CareType = k
			}
		case "workflow":
			if k, ok := b.t.Workflow.KeyFromConcept(uc.ValueCodeableConcept); ok {
				s.Category = k
			}
		}
	}
	if len(ad.Topic) > 0 {
		if k, ok := b.t.ServiceType.KeyFromConcept(&ad.Topic[0]); ok {
			s.Type = k
		}
	}
	if t := ad.Timing; t != nil && t.Repeat != nil && t.Repeat.Period != nil {
		s.Frequency = fhir.Int(int(*t.Repeat.Period))
	}
	s.Price = b.readPrice(ad.Extension)
	if e := ad.ExtensionByURL(b.ext("activity-definition-level")); e != nil {
		s.Level = e.ValueString
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

// ConditionConverter maps ICD diagnoses.
type ConditionConverter struct {
	base *base
}

func (c *ConditionConverter) Converter() Converter {
	return &typed[*imis.Diagnosis, *fhir.Condition]{
		name:         "condition",
		resourceType: "Condition",
		kind:         imis.KindDiagnosis,
		newResource:  func() *fhir.Condition { return &fhir.Condition{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

// DiagnosisSystem is the id of the code system listing ICD diagnoses.
const DiagnosisSystem = "diagnosis-ICD10-level1"

func (c *ConditionConverter) ToFHIR(d *imis.Diagnosis, mode ReferenceType) (*fhir.Condition, error) {
	b := c.base
	cond := &fhir.Condition{
		DomainResource: fhir.DomainResource{ResourceType: "Condition", Meta: newMeta(d)},
		Code:           concept(b.t.CodeSystemURL(DiagnosisSystem), d.Code, d.Name),
		Subject:        fhir.Reference{Type: "Patient"},
	}
	if !d.ValidityFrom.IsZero() {
		cond.RecordedDate = fhir.FormatDateTime(d.ValidityFrom)
	}
	pk(cond, d, mode)
	cond.Identifier = b.identifiers(d)
	return cond, nil
}

func (c *ConditionConverter) ToIMIS(_ context.Context, cond *fhir.Condition, auditUserID int) (*imis.Diagnosis, error) {
	b := c.base
	var errs Errors
	d := &imis.Diagnosis{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&d.Base, cond.Identifier)
	if cd := cond.Code.FirstCoding(); errs.Require(cd != nil && cd.Code != "", "Missing condition `code` attribute") {
		d.Code = cd.Code
		d.Name = cd.Display
	}
	if err := errs.Check(); err != nil {
		return nil, err
	}
	return d, nil
}
