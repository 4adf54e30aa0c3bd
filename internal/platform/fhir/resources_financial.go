package fhir

// Claim is the R4 Claim resource.
type Claim struct {
	DomainResource
	Identifier     []Identifier          `json:"identifier,omitempty" validate:"dive"`
	Status         string                `json:"status" validate:"required,oneof=active cancelled draft entered-in-error"`
	Type           *CodeableConcept      `json:"type,omitempty"`
	Use            string                `json:"use" validate:"required,oneof=claim preauthorization predetermination"`
	Patient        *Reference            `json:"patient,omitempty"`
	BillablePeriod *Period               `json:"billablePeriod,omitempty"`
	Created        string                `json:"created,omitempty" validate:"omitempty,fhirdatetime"`
	Enterer        *Reference            `json:"enterer,omitempty"`
	Provider       *Reference            `json:"provider,omitempty"`
	Priority       *CodeableConcept      `json:"priority,omitempty"`
	Facility       *Reference            `json:"facility,omitempty"`
	SupportingInfo []ClaimSupportingInfo `json:"supportingInfo,omitempty" validate:"dive"`
	Diagnosis      []ClaimDiagnosis      `json:"diagnosis,omitempty" validate:"dive"`
	Insurance      []ClaimInsurance      `json:"insurance,omitempty" validate:"dive"`
	Item           []ClaimItem           `json:"item,omitempty" validate:"dive"`
	Total          *Money                `json:"total,omitempty"`
}

type ClaimSupportingInfo struct {
	Sequence        int             `json:"sequence" validate:"gte=1"`
	Category        CodeableConcept `json:"category"`
	ValueString     string          `json:"valueString,omitempty"`
	ValueAttachment *Attachment     `json:"valueAttachment,omitempty"`
	ValueReference  *Reference      `json:"valueReference,omitempty"`
}

type ClaimDiagnosis struct {
	Sequence                 int               `json:"sequence" validate:"gte=1"`
	DiagnosisCodeableConcept *CodeableConcept  `json:"diagnosisCodeableConcept,omitempty"`
	DiagnosisReference       *Reference        `json:"diagnosisReference,omitempty"`
	Type                     []CodeableConcept `json:"type,omitempty"`
}

type ClaimInsurance struct {
	Sequence int       `json:"sequence" validate:"gte=1"`
	Focal    bool      `json:"focal"`
	Coverage Reference `json:"coverage"`
}

type ClaimItem struct {
	Extension           []Extension      `json:"extension,omitempty" validate:"dive"`
	Sequence            int              `json:"sequence" validate:"gte=1"`
	InformationSequence []int            `json:"informationSequence,omitempty"`
	Category            *CodeableConcept `json:"category,omitempty"`
	ProductOrService    CodeableConcept  `json:"productOrService"`
	Quantity            *Quantity        `json:"quantity,omitempty"`
	UnitPrice           *Money           `json:"unitPrice,omitempty"`
}

// Coverage is the R4 Coverage resource (policy).
type Coverage struct {
	DomainResource
	Identifier   []Identifier    `json:"identifier,omitempty" validate:"dive"`
	Status       string          `json:"status,omitempty" validate:"omitempty,oneof=active cancelled draft entered-in-error"`
	PolicyHolder *Reference      `json:"policyHolder,omitempty"`
	Beneficiary  *Reference      `json:"beneficiary,omitempty"`
	Period       *Period         `json:"period,omitempty"`
	Payor        []Reference     `json:"payor,omitempty"`
	Class        []CoverageClass `json:"class,omitempty" validate:"dive"`
	Contract     []Reference     `json:"contract,omitempty"`
}

type CoverageClass struct {
	Type  CodeableConcept `json:"type"`
	Value string          `json:"value" validate:"required"`
	Name  string          `json:"name,omitempty"`
}

// Contract is the R4 Contract resource (policy seen as an agreement).
type Contract struct {
	DomainResource
	Identifier []Identifier     `json:"identifier,omitempty" validate:"dive"`
	Status     string           `json:"status,omitempty" validate:"omitempty,oneof=amended appended cancelled disputed entered-in-error executable executed negotiable offered policy rejected renewed revoked resolved terminated"`
	LegalState *CodeableConcept `json:"legalState,omitempty"`
	Term       []ContractTerm   `json:"term,omitempty" validate:"dive"`
	Signer     []ContractSigner `json:"signer,omitempty" validate:"dive"`
}

type ContractTerm struct {
	Offer ContractOffer   `json:"offer"`
	Asset []ContractAsset `json:"asset,omitempty" validate:"dive"`
}

type ContractOffer struct {
	Party []ContractParty `json:"party,omitempty" validate:"dive"`
}

type ContractParty struct {
	Reference []Reference     `json:"reference"`
	Role      CodeableConcept `json:"role"`
}

type ContractAsset struct {
	TypeReference []Reference          `json:"typeReference,omitempty"`
	Period        []Period             `json:"period,omitempty" validate:"dive"`
	UsePeriod     []Period             `json:"usePeriod,omitempty" validate:"dive"`
	ValuedItem    []ContractValuedItem `json:"valuedItem,omitempty"`
}

type ContractValuedItem struct {
	Net *Money `json:"net,omitempty"`
}

type ContractSigner struct {
	Type  Coding    `json:"type"`
	Party Reference `json:"party"`
}

// Invoice is the R4 Invoice resource.
type Invoice struct {
	DomainResource
	Identifier []Identifier      `json:"identifier,omitempty" validate:"dive"`
	Status     string            `json:"status" validate:"required,oneof=draft issued balanced cancelled entered-in-error"`
	Type       *CodeableConcept  `json:"type,omitempty"`
	Date       string            `json:"date,omitempty" validate:"omitempty,fhirdatetime"`
	Recipient  *Reference        `json:"recipient,omitempty"`
	LineItem   []InvoiceLineItem `json:"lineItem,omitempty" validate:"dive"`
	TotalNet   *Money            `json:"totalNet,omitempty"`
	TotalGross *Money            `json:"totalGross,omitempty"`
}

type InvoiceLineItem struct {
	Sequence                  int                     `json:"sequence,omitempty"`
	ChargeItemCodeableConcept *CodeableConcept        `json:"chargeItemCodeableConcept,omitempty"`
	PriceComponent            []InvoicePriceComponent `json:"priceComponent,omitempty" validate:"dive"`
}

type InvoicePriceComponent struct {
	Extension []Extension      `json:"extension,omitempty" validate:"dive"`
	Type      string           `json:"type" validate:"required,oneof=base surcharge deduction discount tax informational"`
	Code      *CodeableConcept `json:"code,omitempty"`
	Factor    *float64         `json:"factor,omitempty"`
	Amount    *Money           `json:"amount,omitempty"`
}

// InsurancePlan is the R4 InsurancePlan resource (product).
type InsurancePlan struct {
	DomainResource
	Identifier   []Identifier      `json:"identifier,omitempty" validate:"dive"`
	Status       string            `json:"status,omitempty" validate:"omitempty,oneof=draft active retired unknown"`
	Type         []CodeableConcept `json:"type,omitempty"`
	Name         string            `json:"name,omitempty"`
	Period       *Period           `json:"period,omitempty"`
	CoverageArea []Reference       `json:"coverageArea,omitempty"`
}
