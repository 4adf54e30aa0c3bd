package converter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Contract party and signer codes.
const (
	PartyRoleBeneficiary = "beneficiary"
	SignerOfficer        = "EnrolmentOfficer"
	SignerHeadOfFamily   = "HeadOfFamily"
)

// ContractConverter maps policies to Contract: insurees are offer parties,
// the product is the term asset and the officer and family head sign.
type ContractConverter struct {
	base *base
}

func (c *ContractConverter) Converter() Converter {
	return &typed[*imis.Policy, *fhir.Contract]{
		name:         "contract",
		resourceType: "Contract",
		kind:         imis.KindPolicy,
		newResource:  func() *fhir.Contract { return &fhir.Contract{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *ContractConverter) signerType(code string) fhir.Coding {
	return fhir.Coding{System: c.base.t.CodeSystemURL("contract-signer-type"), Code: code}
}

func (c *ContractConverter) ToFHIR(p *imis.Policy, mode ReferenceType) (*fhir.Contract, error) {
	b := c.base
	status, ok := b.t.ContractStatus.Code(strconv.Itoa(p.Status))
	if !ok {
		return nil, &ConversionError{Relation: "status", Message: fmt.Sprintf("Unmapped policy status %d", p.Status)}
	}
	ct := &fhir.Contract{
		DomainResource: fhir.DomainResource{ResourceType: "Contract", Meta: newMeta(p)},
		Status:         status,
		LegalState:     b.t.PolicyStage.Concept(p.Stage),
	}
	pk(ct, p, mode)
	ct.Identifier = b.identifiers(p)

	var term fhir.ContractTerm
	party := fhir.ContractParty{
		Role: *concept(b.t.CodeSystemURL("contract-resource-party-role"), PartyRoleBeneficiary, "Beneficiary"),
	}
	for _, ins := range p.Insurees {
		if ref := b.reference(ins, "Patient", mode, ins.CHFID); ref != nil {
			party.Reference = append(party.Reference, *ref)
		}
	}
	if len(party.Reference) > 0 {
		term.Offer.Party = []fhir.ContractParty{party}
	}

	asset := fhir.ContractAsset{ValuedItem: []fhir.ContractValuedItem{{Net: b.money(p.Value)}}}
	if p.Product != nil {
		if ref := b.reference(p.Product, "InsurancePlan", mode, p.Product.Code); ref != nil {
			asset.TypeReference = []fhir.Reference{*ref}
		}
	}
	if up := period(p.EffectiveDate, p.ExpiryDate); up != nil {
		asset.UsePeriod = []fhir.Period{*up}
	}
	if pp := period(p.StartDate, p.ExpiryDate); pp != nil {
		asset.Period = []fhir.Period{*pp}
	}
	term.Asset = []fhir.ContractAsset{asset}
	ct.Term = []fhir.ContractTerm{term}

	if o := p.Officer; o != nil {
		if ref := b.reference(o, "Practitioner", mode, o.Code); ref != nil {
			ct.Signer = append(ct.Signer, fhir.ContractSigner{Type: c.signerType(SignerOfficer), Party: *ref})
		}
	}
	if p.Family != nil && p.Family.Head != nil {
		h := p.Family.Head
		if ref := b.reference(h, "Patient", mode, h.CHFID); ref != nil {
			ct.Signer = append(ct.Signer, fhir.ContractSigner{Type: c.signerType(SignerHeadOfFamily), Party: *ref})
		}
	}
	return ct, nil
}

func (c *ContractConverter) ToIMIS(ctx context.Context, ct *fhir.Contract, auditUserID int) (*imis.Policy, error) {
	b := c.base
	var errs Errors
	p := &imis.Policy{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&p.Base, ct.Identifier)

	if errs.Require(ct.Status != "", "Missing `status` attribute") {
		if k, ok := b.t.ContractStatus.Key(ct.Status); ok {
			p.Status, _ = strconv.Atoi(k)
		} else {
			errs.Add("Unknown contract status %s", ct.Status)
		}
	}
	if k, ok := b.t.PolicyStage.KeyFromConcept(ct.LegalState); ok {
		p.Stage = k
	}

	if errs.Require(len(ct.Term) > 0 && len(ct.Term[0].Asset) > 0, "Missing `term` asset attribute") {
		term := ct.Term[0]
		asset := term.Asset[0]
		if errs.Require(len(asset.TypeReference) > 0, "Missing the product reference") {
			prod, _ := b.resolve(ctx, &asset.TypeReference[0], "InsurancePlan", imis.KindProduct).(*imis.Product)
			if errs.Require(prod != nil, "Product "+asset.TypeReference[0].Reference+" not found") {
				p.Product = prod
			}
		}
		if len(asset.Period) > 0 {
			p.StartDate = parseDate(asset.Period[0].Start)
			p.EnrollDate = p.StartDate
			p.ExpiryDate = parseDate(asset.Period[0].End)
		}
		if len(asset.UsePeriod) > 0 {
			p.EffectiveDate = parseDate(asset.UsePeriod[0].Start)
		}
		if len(asset.ValuedItem) > 0 && asset.ValuedItem[0].Net != nil && asset.ValuedItem[0].Net.Value != nil {
			p.Value = *asset.ValuedItem[0].Net.Value
		}
		for _, party := range term.Offer.Party {
			for i := range party.Reference {
				ins, _ := b.resolve(ctx, &party.Reference[i], "Patient", imis.KindInsuree).(*imis.Insuree)
				if errs.Require(ins != nil, "Insuree "+party.Reference[i].Reference+" not found") {
					p.Insurees = append(p.Insurees, ins)
				}
			}
		}
	}

	for i := range ct.Signer {
		s := &ct.Signer[i]
		switch s.Type.Code {
		case SignerOfficer:
			o, _ := b.resolve(ctx, &s.Party, "Practitioner", imis.KindOfficer).(*imis.Officer)
			if errs.Require(o != nil, "Officer "+s.Party.Reference+" not found") {
				p.Officer = o
			}
		case SignerHeadOfFamily:
			h, _ := b.resolve(ctx, &s.Party, "Patient", imis.KindInsuree).(*imis.Insuree)
			if errs.Require(h != nil && h.Family != nil, "Family of "+s.Party.Reference+" not found") {
				p.Family = h.Family
			}
		}
	}
	errs.Require(p.Family != nil, "Missing the head of family signer")

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return p, nil
}
