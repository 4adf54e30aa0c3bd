package converter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// CoverageConverter maps policies to Coverage. Policy statuses 4 and 8
// share the "cancelled" code; cancelled maps back to 4.
type CoverageConverter struct {
	base *base
}

func (c *CoverageConverter) Converter() Converter {
	return &typed[*imis.Policy, *fhir.Coverage]{
		name:         "coverage",
		resourceType: "Coverage",
		kind:         imis.KindPolicy,
		newResource:  func() *fhir.Coverage { return &fhir.Coverage{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *CoverageConverter) ToFHIR(p *imis.Policy, mode ReferenceType) (*fhir.Coverage, error) {
	b := c.base
	status, ok := b.t.CoverageStatus.Code(strconv.Itoa(p.Status))
	if !ok {
		return nil, &ConversionError{Relation: "status", Message: fmt.Sprintf("Unmapped policy status %d", p.Status)}
	}
	if p.Family == nil {
		return nil, &ConversionError{Relation: "family", Message: "Cannot construct coverage " + p.UUID + " without family"}
	}
	if p.Product == nil {
		return nil, &ConversionError{Relation: "product", Message: "Cannot construct coverage " + p.UUID + " without product"}
	}
	cv := &fhir.Coverage{
		DomainResource: fhir.DomainResource{ResourceType: "Coverage", Meta: newMeta(p)},
		Status:         status,
	}
	pk(cv, p, mode)
	cv.Identifier = b.identifiers(p)
	cv.PolicyHolder = b.reference(p.Family, "Group", mode, "")
	if h := p.Family.Head; h != nil {
		cv.Beneficiary = b.reference(h, "Patient", mode, h.CHFID)
	}
	cv.Period = period(p.StartDate, p.ExpiryDate)
	if ref := b.reference(p, "Contract", mode, ""); ref != nil {
		cv.Contract = []fhir.Reference{*ref}
	}

	product := p.Product
	key, err := ReferenceKey(product, mode)
	if err != nil {
		return nil, err
	}
	cv.Class = []fhir.CoverageClass{{
		Type:  *concept(mapping.SystemCoverageClass, "plan", "Plan"),
		Value: key,
		Name:  product.Code,
	}}

	if d := formatDate(p.EffectiveDate); d != "" {
		cv.Extension = append(cv.Extension, fhir.Extension{URL: b.ext("coverage-effective-date"), ValueDate: d})
	}
	if d := formatDate(p.EnrollDate); d != "" {
		cv.Extension = append(cv.Extension, fhir.Extension{URL: b.ext("coverage-enroll-date"), ValueDate: d})
	}
	cv.Extension = append(cv.Extension, fhir.Extension{URL: b.ext("coverage-value"), ValueMoney: b.money(p.Value)})
	return cv, nil
}

func (c *CoverageConverter) ToIMIS(ctx context.Context, cv *fhir.Coverage, auditUserID int) (*imis.Policy, error) {
	b := c.base
	var errs Errors
	p := &imis.Policy{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&p.Base, cv.Identifier)

	if errs.Require(cv.Status != "", "Missing `status` attribute") {
		if k, ok := b.t.CoverageStatus.Key(cv.Status); ok {
			p.Status, _ = strconv.Atoi(k)
		} else {
			errs.Add("Unknown coverage status %s", cv.Status)
		}
	}

	if errs.Require(cv.Period != nil, "Missing `period` attribute") {
		if errs.Require(cv.Period.Start != "", "Missing `period start` attribute") {
			p.StartDate = parseDate(cv.Period.Start)
			p.EnrollDate = p.StartDate
			p.EffectiveDate = p.StartDate
		}
		if errs.Require(cv.Period.End != "", "Missing `period end` attribute") {
			p.ExpiryDate = parseDate(cv.Period.End)
		}
	}

	if errs.Require(cv.PolicyHolder != nil, "Missing `policy holder` attribute") {
		fam, _ := b.resolve(ctx, cv.PolicyHolder, "Group", imis.KindFamily).(*imis.Family)
		if errs.Require(fam != nil, "Family "+cv.PolicyHolder.Reference+" not found") {
			p.Family = fam
		}
	}

	if errs.Require(len(cv.Class) > 0, "Missing `class` attribute") {
		cls := cv.Class[0]
		ref := &fhir.Reference{Reference: fhir.FormatReference("InsurancePlan", cls.Value)}
		prod, _ := b.resolve(ctx, ref, "InsurancePlan", imis.KindProduct).(*imis.Product)
		if errs.Require(prod != nil, "Product "+cls.Value+" not found") {
			p.Product = prod
		}
	}

	if e := cv.ExtensionByURL(b.ext("coverage-effective-date")); e != nil {
		if d := parseDate(e.ValueDate); d != nil {
			p.EffectiveDate = d
		}
	}
	if e := cv.ExtensionByURL(b.ext("coverage-enroll-date")); e != nil {
		if d := parseDate(e.ValueDate); d != nil {
			p.EnrollDate = d
		}
	}
	if e := cv.ExtensionByURL(b.ext("coverage-value")); e != nil && e.ValueMoney != nil && e.ValueMoney.Value != nil {
		p.Value = *e.ValueMoney.Value
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return p, nil
}
