package converter

import (
	"context"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Supporting info and item category codes.
const (
	InfoGuaranteeID     = "guarantee_id"
	InfoExplanation     = "explanation"
	InfoItemExplanation = "item_explanation"
	InfoAttachment      = "attachment"

	ItemCategoryItem    = "item"
	ItemCategoryService = "service"
)

// ClaimConverter maps claims. The facility is referenced as a Location,
// items and services carry a Medication or ActivityDefinition reference
// extension.
type ClaimConverter struct {
	base *base
}

func (c *ClaimConverter) Converter() Converter {
	return &typed[*imis.Claim, *fhir.Claim]{
		name:         "claim",
		resourceType: "Claim",
		kind:         imis.KindClaim,
		newResource:  func() *fhir.Claim { return &fhir.Claim{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *ClaimConverter) ToFHIR(cl *imis.Claim, mode ReferenceType) (*fhir.Claim, error) {
	b := c.base
	if cl.DateClaimed == nil {
		return nil, &ConversionError{Relation: "date_claimed", Message: "Cannot construct a " + cl.UUID + " claim without date claimed"}
	}
	if cl.HealthFacility == nil {
		return nil, &ConversionError{Relation: "health_facility", Message: "Cannot construct a " + cl.UUID + " claim if HF is None"}
	}
	if cl.Insuree == nil {
		return nil, &ConversionError{Relation: "insuree", Message: "Cannot construct a " + cl.UUID + " claim if Insuree is None"}
	}
	if cl.Admin == nil {
		return nil, &ConversionError{Relation: "admin", Message: "Failed to create FHIR instance for claim " + cl.UUID + ": Claim Admin field not found"}
	}
	if cl.ICD == nil {
		return nil, &ConversionError{Relation: "icd", Message: "ICD code cannot be null"}
	}

	// required elements first
	fc := &fhir.Claim{
		DomainResource: fhir.DomainResource{ResourceType: "Claim", Meta: newMeta(cl)},
		Created:        fhir.FormatDateTime(*cl.DateClaimed),
		Status:         "active",
		Use:            "claim",
	}
	pk(fc, cl, mode)
	fc.Identifier = b.identifiers(cl)

	hf := cl.HealthFacility
	fc.Facility = b.reference(hf, "Location", mode, hf.Code)
	fc.Patient = b.reference(cl.Insuree, "Patient", mode, cl.Insuree.CHFID)
	fc.Enterer = b.reference(cl.Admin, "Practitioner", mode, cl.Admin.Code)
	fc.BillablePeriod = &fhir.Period{Start: formatDate(cl.DateFrom), End: formatDate(cl.DateTo)}

	fc.Diagnosis = c.diagnoses(cl, mode)

	claimed := 0.0
	if cl.Claimed != nil {
		claimed = *cl.Claimed
	}
	fc.Total = b.money(claimed)

	if cl.VisitType != "" {
		fc.Type = b.t.ClaimVisitType.Concept(cl.VisitType)
		if fc.Type == nil {
			fc.Type = &fhir.CodeableConcept{}
		}
		fc.Type.Text = cl.VisitType
	}
	if cc := b.t.ClaimStatus.Concept(intKey(&cl.Status)); cc != nil {
		fc.Extension = append(fc.Extension, fhir.Extension{URL: b.ext("claim-status"), ValueCodeableConcept: cc})
	}

	c.stringInfo(fc, InfoGuaranteeID, cl.GuaranteeID)
	c.stringInfo(fc, InfoExplanation, cl.Explanation)
	for _, it := range cl.Items {
		if it.ValidityTo != nil || it.Item == nil {
			continue
		}
		ref := b.reference(it.Item, "Medication", mode, it.Item.Code)
		c.item(fc, ItemCategoryItem, it.Item.Code, it.QtyProvided, it.PriceAsked, it.Explanation, "Medication", ref)
	}
	for _, sv := range cl.Services {
		if sv.ValidityTo != nil || sv.Service == nil {
			continue
		}
		ref := b.reference(sv.Service, "ActivityDefinition", mode, sv.Service.Code)
		c.item(fc, ItemCategoryService, sv.Service.Code, sv.QtyProvided, sv.PriceAsked, sv.Explanation, "ActivityDefinition", ref)
	}

	fc.Provider = b.reference(cl.Admin, "PractitionerRole", mode, cl.Admin.Code)
	fc.Priority = concept(mapping.SystemProcessPriority, "normal", "Normal")
	fc.Insurance = []fhir.ClaimInsurance{c.insurance(cl, mode)}

	for _, att := range cl.Attachments {
		fc.SupportingInfo = append(fc.SupportingInfo, fhir.ClaimSupportingInfo{
			Sequence:        len(fc.SupportingInfo) + 1,
			Category:        *c.infoCategory(InfoAttachment),
			ValueAttachment: fhirAttachment(att),
		})
	}
	return fc, nil
}

func (c *ClaimConverter) diagnoses(cl *imis.Claim, mode ReferenceType) []fhir.ClaimDiagnosis {
	b := c.base
	var out []fhir.ClaimDiagnosis
	for i, d := range []*imis.Diagnosis{cl.ICD, cl.ICD1, cl.ICD2, cl.ICD3, cl.ICD4} {
		if d == nil {
			continue
		}
		typ := b.t.ClaimDiagnosisType.Concept(intKey(&i))
		cd := fhir.ClaimDiagnosis{
			Sequence:           len(out) + 1,
			DiagnosisReference: b.reference(d, "Condition", mode, d.Name),
		}
		if typ != nil {
			cd.Type = []fhir.CodeableConcept{*typ}
		}
		out = append(out, cd)
	}
	return out
}

func (c *ClaimConverter) infoCategory(code string) *fhir.CodeableConcept {
	cc := c.base.t.ClaimInfoCategory.Concept(code)
	if cc == nil {
		cc = &fhir.CodeableConcept{}
	}
	cc.Text = code
	return cc
}

// stringInfo appends a string supporting info and returns its sequence, or
// 0 when value is empty.
func (c *ClaimConverter) stringInfo(fc *fhir.Claim, code, value string) int {
	if value == "" {
		return 0
	}
	seq := len(fc.SupportingInfo) + 1
	fc.SupportingInfo = append(fc.SupportingInfo, fhir.ClaimSupportingInfo{
		Sequence:    seq,
		Category:    *c.infoCategory(code),
		ValueString: value,
	})
	return seq
}

func (c *ClaimConverter) item(fc *fhir.Claim, category, code string, qty, price float64, explanation, extURL string, ref *fhir.Reference) {
	b := c.base
	cat := b.t.ClaimItemCategory.Concept(category)
	if cat == nil {
		cat = &fhir.CodeableConcept{}
	}
	cat.Text = category
	it := fhir.ClaimItem{
		Sequence:         len(fc.Item) + 1,
		Category:         cat,
		ProductOrService: *textConcept(code),
		Quantity:         &fhir.Quantity{Value: fhir.Decimal(qty)},
		UnitPrice:        b.money(price),
	}
	if seq := c.stringInfo(fc, InfoItemExplanation, explanation); seq > 0 {
		it.InformationSequence = []int{seq}
	}
	if ref != nil {
		it.Extension = []fhir.Extension{{URL: extURL, ValueReference: ref}}
	}
	fc.Item = append(fc.Item, it)
}

// insurance references the insuree's most recent policy.
func (c *ClaimConverter) insurance(cl *imis.Claim, mode ReferenceType) fhir.ClaimInsurance {
	ins := fhir.ClaimInsurance{Sequence: 1, Focal: true, Coverage: fhir.Reference{Type: "Coverage"}}
	if n := len(cl.Insuree.Policies); n > 0 {
		if ref := c.base.reference(cl.Insuree.Policies[n-1], "Coverage", mode, ""); ref != nil {
			ins.Coverage = *ref
		}
	}
	return ins
}

func (c *ClaimConverter) ToIMIS(ctx context.Context, fc *fhir.Claim, auditUserID int) (*imis.Claim, error) {
	b := c.base
	var errs Errors
	cl := &imis.Claim{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&cl.Base, fc.Identifier)

	cl.DateClaimed = parseDate(fc.Created)
	errs.Require(cl.DateClaimed != nil, "Missing the date of creation")

	if fc.Facility != nil {
		cl.HealthFacility, _ = b.resolve(ctx, fc.Facility, "Location", imis.KindHealthFacility).(*imis.HealthFacility)
	}
	errs.Require(cl.HealthFacility != nil, "Missing the facility reference")

	cl.Code = IdentifierByCode(fc.Identifier, b.t.Identifier.Code)
	errs.Require(cl.Code != "", "Missing the claim code")

	if fc.Patient != nil {
		cl.Insuree, _ = b.resolve(ctx, fc.Patient, "Patient", imis.KindInsuree).(*imis.Insuree)
	}
	errs.Require(cl.Insuree != nil, "Missing the patient reference")

	if bp := fc.BillablePeriod; bp != nil {
		cl.DateFrom = parseDate(bp.Start)
		cl.DateTo = parseDate(bp.End)
	}
	errs.Require(cl.DateFrom != nil, "Missing the billable start date")

	c.readDiagnoses(ctx, cl, fc, &errs)

	if fc.Total != nil && fc.Total.Value != nil {
		cl.Claimed = fhir.Decimal(*fc.Total.Value)
	}
	errs.Require(cl.Claimed != nil, "Missing the value for `total` attribute")

	if fc.Enterer != nil {
		cl.Admin, _ = b.resolve(ctx, fc.Enterer, "Practitioner", imis.KindClaimAdmin).(*imis.ClaimAdmin)
	}
	errs.Require(cl.Admin != nil, "Missing the enterer reference")

	if fc.Type != nil {
		if k, ok := b.t.ClaimVisitType.KeyFromConcept(fc.Type); ok {
			cl.VisitType = k
		} else {
			cl.VisitType = fc.Type.Text
		}
	}

	for _, si := range fc.SupportingInfo {
		switch infoCode(&si.Category) {
		case InfoGuaranteeID:
			cl.GuaranteeID = si.ValueString
		case InfoExplanation:
			cl.Explanation = si.ValueString
		}
	}
	c.readLines(cl, fc)

	for _, si := range fc.SupportingInfo {
		if infoCode(&si.Category) != InfoAttachment {
			continue
		}
		att, err := b.claimAttachment(si.ValueAttachment)
		if err != nil {
			return nil, err
		}
		cl.Attachments = append(cl.Attachments, att)
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return cl, nil
}

// infoCode reads a category from its text, falling back to the first coding.
func infoCode(cc *fhir.CodeableConcept) string {
	if cc.Text != "" {
		return cc.Text
	}
	return conceptCode(cc)
}

func (c *ClaimConverter) readDiagnoses(ctx context.Context, cl *imis.Claim, fc *fhir.Claim, errs *Errors) {
	b := c.base
	slots := []**imis.Diagnosis{&cl.ICD, &cl.ICD1, &cl.ICD2, &cl.ICD3, &cl.ICD4}
	mainGiven := false
	for _, d := range fc.Diagnosis {
		if len(d.Type) == 0 || len(d.Type[0].Coding) == 0 || d.DiagnosisReference == nil {
			continue
		}
		codings := d.Type[0].Coding
		key, ok := b.t.ClaimDiagnosisType.Key(codings[len(codings)-1].Code)
		if !ok {
			continue
		}
		idx := int(key[0] - '0')
		if idx == 0 {
			mainGiven = true
		}
		ref := d.DiagnosisReference.Reference
		code := ref[strings.LastIndex(ref, "/")+1:]
		var diag *imis.Diagnosis
		if b.lookup != nil && code != "" {
			rec, err := b.lookup.Find(ctx, imis.KindDiagnosis, code)
			if err == nil {
				diag, _ = rec.(*imis.Diagnosis)
			}
		}
		if errs.Require(diag != nil, "Unknown diagnosis code "+code) {
			*slots[idx] = diag
		}
	}
	if !mainGiven {
		errs.Add("Missing the main diagnosis for claim")
	}
}

func (c *ClaimConverter) readLines(cl *imis.Claim, fc *fhir.Claim) {
	for _, it := range fc.Item {
		if it.Category == nil {
			continue
		}
		line := imis.SubmitLine{Code: it.ProductOrService.Text}
		if line.Code == "" {
			line.Code = conceptCode(&it.ProductOrService)
		}
		if it.Quantity != nil && it.Quantity.Value != nil {
			line.Quantity = fhir.Decimal(*it.Quantity.Value)
		}
		if it.UnitPrice != nil && it.UnitPrice.Value != nil {
			line.Price = fhir.Decimal(*it.UnitPrice.Value)
		}
		switch infoCode(it.Category) {
		case ItemCategoryItem:
			cl.SubmitItems = append(cl.SubmitItems, line)
		case ItemCategoryService:
			cl.SubmitServices = append(cl.SubmitServices, line)
		}
	}
}
