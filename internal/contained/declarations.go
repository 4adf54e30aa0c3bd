package contained

import (
	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
)

// Declaration lists the contained relations of one primary converter.
type Declaration struct {
	Specs   []Spec
	Reverse []Reverse

	lookup converter.Lookup
}

// Composer returns a composer over the declared relations.
func (d Declaration) Composer(qualified bool) *Composer {
	return &Composer{Specs: d.Specs, Qualified: qualified, Lookup: d.lookup}
}

// Fields returns every reference path the declaration rewrites.
func (d Declaration) Fields() []string {
	var out []string
	for _, s := range d.Specs {
		out = append(out, s.Fields...)
	}
	return out
}

// some keeps the non-nil records among xs.
func some[T any, P interface {
	*T
	imis.Record
}](xs ...P) []imis.Record {
	var out []imis.Record
	for _, x := range xs {
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

// Declarations returns the contained relations keyed by converter name.
// Converters without an entry never embed anything.
func Declarations(reg *converter.Registry) map[string]Declaration {
	patient := Spec{
		Name:      "insuree",
		Converter: reg.Patient.Converter(),
		Fields:    []string{"patient"},
		Extract: func(r imis.Record) []imis.Record {
			return some(r.(*imis.Claim).Insuree)
		},
	}
	enterer := Spec{
		Name:      "claim_admin",
		Converter: reg.ClaimAdminPractitioner.Converter(),
		Fields:    []string{"enterer"},
		Extract: func(r imis.Record) []imis.Record {
			return some(r.(*imis.Claim).Admin)
		},
	}
	items := Spec{
		Name:      "items",
		Converter: reg.Medication.Converter(),
		Fields:    []string{"item.extension.valueReference"},
		Extract: func(r imis.Record) []imis.Record {
			var out []imis.Record
			for _, it := range r.(*imis.Claim).Items {
				if it.ValidityTo == nil {
					out = append(out, some(it.Item)...)
				}
			}
			return out
		},
	}
	services := Spec{
		Name:      "services",
		Converter: reg.ActivityDefinition.Converter(),
		Fields:    []string{"item.extension.valueReference"},
		Extract: func(r imis.Record) []imis.Record {
			var out []imis.Record
			for _, sv := range r.(*imis.Claim).Services {
				if sv.ValidityTo == nil {
					out = append(out, some(sv.Service)...)
				}
			}
			return out
		},
	}
	diagnoses := Spec{
		Name:      "icd",
		Converter: reg.Condition.Converter(),
		Fields:    []string{"diagnosis.diagnosisReference"},
		Extract: func(r imis.Record) []imis.Record {
			cl := r.(*imis.Claim)
			return some(cl.ICD, cl.ICD1, cl.ICD2, cl.ICD3, cl.ICD4)
		},
	}

	policyFamily := Spec{
		Name:      "family",
		Converter: reg.Group.Converter(),
		Fields:    []string{"policyHolder"},
		Extract: func(r imis.Record) []imis.Record {
			return some(r.(*imis.Policy).Family)
		},
	}
	policyProduct := Spec{
		Name:      "product",
		Converter: reg.InsurancePlan.Converter(),
		Fields:    []string{"term.asset.typeReference"},
		Extract: func(r imis.Record) []imis.Record {
			return some(r.(*imis.Policy).Product)
		},
	}

	decls := map[string]Declaration{
		"claim": {
			Specs: []Spec{patient, enterer, items, services, diagnoses},
			Reverse: []Reverse{
				{Converter: reg.Patient.Converter()},
				{Converter: reg.ClaimAdminPractitioner.Converter()},
				{Converter: reg.Medication.Converter()},
				{Converter: reg.ActivityDefinition.Converter()},
				{Converter: reg.Condition.Converter()},
			},
		},
		"coverage": {
			// the product is a class value, not a reference
			Specs: []Spec{policyFamily},
		},
		"contract": {
			Specs: []Spec{policyProduct},
		},
		"patient": {
			Specs: []Spec{{
				Name:      "family",
				Converter: reg.Group.Converter(),
				Fields:    []string{"extension.valueReference"},
				Reload:    true,
				Extract: func(r imis.Record) []imis.Record {
					return some(r.(*imis.Insuree).Family)
				},
			}},
			Reverse: []Reverse{{Converter: reg.Group.Converter()}},
		},
		"group": {
			Specs: []Spec{{
				Name:      "members",
				Converter: reg.Patient.Converter(),
				Fields:    []string{"member.entity"},
				Extract: func(r imis.Record) []imis.Record {
					return some(r.(*imis.Family).Members...)
				},
			}},
		},
		"claim_admin_practitioner_role": {
			Specs: []Spec{
				{
					Name:      "practitioner",
					Converter: reg.ClaimAdminPractitioner.Converter(),
					Fields:    []string{"practitioner"},
					Extract:   func(r imis.Record) []imis.Record { return []imis.Record{r} },
				},
				{
					Name:      "health_facility",
					Converter: reg.HealthFacility.Converter(),
					Fields:    []string{"organization"},
					Extract: func(r imis.Record) []imis.Record {
						return some(r.(*imis.ClaimAdmin).HealthFacility)
					},
				},
			},
		},
		"officer_practitioner_role": {
			Specs: []Spec{
				{
					Name:      "practitioner",
					Converter: reg.OfficerPractitioner.Converter(),
					Fields:    []string{"practitioner"},
					Extract:   func(r imis.Record) []imis.Record { return []imis.Record{r} },
				},
				{
					Name:      "location",
					Converter: reg.Location.Converter(),
					Fields:    []string{"location"},
					Extract: func(r imis.Record) []imis.Record {
						return some(r.(*imis.Officer).Location)
					},
				},
			},
		},
	}
	for name, d := range decls {
		d.lookup = reg.Lookup()
		decls[name] = d
	}
	return decls
}
