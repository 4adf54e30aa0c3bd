package mapping

import (
	"strings"
)

// External terminology systems.
const (
	SystemAdministrativeGender = "http://hl7.org/fhir/administrative-gender"
	SystemMaritalStatus        = "http://terminology.hl7.org/CodeSystem/v3-MaritalStatus"
	SystemOrganizationType     = "http://terminology.hl7.org/CodeSystem/organization-type"
	SystemContactEntityType    = "http://terminology.hl7.org/CodeSystem/contactentity-type"
	SystemInsurancePlanType    = "http://terminology.hl7.org/CodeSystem/insurance-plan-type"
	SystemFinancialStatus      = "http://hl7.org/fhir/fm-status"
	SystemContractStatus       = "http://hl7.org/fhir/contract-status"
	SystemContractLegalState   = "http://hl7.org/fhir/contract-legalstate"
	SystemCoverageClass        = "http://terminology.hl7.org/CodeSystem/coverage-class"
	SystemUsageContextType     = "http://terminology.hl7.org/CodeSystem/usage-context-type"
	SystemActCode              = "http://terminology.hl7.org/CodeSystem/v3-ActCode"
	SystemProcessPriority      = "http://terminology.hl7.org/CodeSystem/processpriority"
	SystemV2IdentifierType     = "http://terminology.hl7.org/CodeSystem/v2-0203"
)

// IdentifierCodes are the type codes placed on Identifier.type.coding.
type IdentifierCodes struct {
	UUID     string
	DBID     string
	Code     string
	CHFID    string
	Passport string
}

// Tables groups every code table of one deployment. All tables derive their
// openIMIS owned system URLs from Base.
type Tables struct {
	Base             string
	IdentifierSystem string
	Identifier       IdentifierCodes

	Gender             *Table
	Marital            *Table
	Relationship       *Table
	Education          *Table
	Profession         *Table
	IdentificationType *Table
	FamilyType         *Table
	ConfirmationType   *Table

	LocationType *Table
	HFLevel      *Table
	HFLegalForm  *Table
	OrgType      *Table
	PHLegalForm  *Table
	PHActivity   *Table

	CoverageStatus    *Table
	ContractStatus    *Table
	PolicyStage       *Table
	InsurancePlanType *Table

	ClaimStatus        *Table
	ClaimVisitType     *Table
	ClaimInfoCategory  *Table
	ClaimItemCategory  *Table
	ClaimDiagnosisType *Table

	InvoiceType   *Table
	InvoiceStatus *Table
	ChargeItem    *Table

	ItemType        *Table
	ItemVenue       *Table
	ServiceType     *Table
	UseContext      *Table
	PatientCategory *Table
	Venue           *Table
	Workflow        *Table

	SubscriptionStatus  *Table
	SubscriptionChannel *Table
}

// New builds the tables for the given system base URL. An empty base selects
// DefaultSystemBaseURL.
func New(base string) *Tables {
	if base == "" {
		base = DefaultSystemBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	cs := func(name string) string { return base + "CodeSystem/" + name }

	t := &Tables{
		Base:             base,
		IdentifierSystem: cs("openimis-identifiers"),
		Identifier: IdentifierCodes{
			UUID:     "UUID",
			DBID:     "DB_ID",
			Code:     "Code",
			CHFID:    "Code",
			Passport: "PPN",
		},
	}

	t.Gender = newTable("", SystemAdministrativeGender, false,
		[3]string{"M", "male", "Male"},
		[3]string{"F", "female", "Female"},
		[3]string{"O", "other", "Other"},
	)
	t.Marital = newTable("", SystemMaritalStatus, false,
		[3]string{"M", "M", "Married"},
		[3]string{"S", "S", "Never Married"},
		[3]string{"D", "D", "Divorced"},
		[3]string{"W", "W", "Widowed"},
		[3]string{"N", "UNK", "unknown"},
	)
	t.Relationship = newTable("patient-contact-relationship", cs("patient-contact-relationship"), true,
		[3]string{"1", "1", "Brother/Sister"},
		[3]string{"2", "2", "Father/Mother"},
		[3]string{"3", "3", "Uncle/Aunt"},
		[3]string{"4", "4", "Son/Daughter"},
		[3]string{"5", "5", "Grand parents"},
		[3]string{"6", "6", "Employee"},
		[3]string{"7", "7", "Others"},
		[3]string{"8", "8", "Spouse"},
	).describe("openIMIS Patient Relationship", "Relationship of an insuree to the head of the family.")
	t.Education = newTable("patient-education-level", cs("patient-education-level"), true,
		[3]string{"1", "1", "Nursery"},
		[3]string{"2", "2", "Primary school"},
		[3]string{"3", "3", "Secondary school"},
		[3]string{"4", "4", "University"},
		[3]string{"5", "5", "Postgraduate studies"},
		[3]string{"6", "6", "PHD"},
		[3]string{"7", "7", "Other"},
	).describe("openIMIS Patient Education Level", "Highest education level of an insuree.")
	t.Profession = newTable("patient-profession", cs("patient-profession"), true,
		[3]string{"1", "1", "Housewife"},
		[3]string{"2", "2", "Employee"},
		[3]string{"3", "3", "Self Employee"},
		[3]string{"4", "4", "Other"},
	).describe("openIMIS Patient Profession", "Profession of an insuree.")
	t.IdentificationType = newTable("patient-identification-types", cs("patient-identification-types"), true,
		[3]string{"D", "D", "Driver's License"},
		[3]string{"N", "N", "National ID"},
		[3]string{"P", "P", "Passport"},
		[3]string{"V", "V", "Voter Card"},
	).describe("openIMIS Patient Identification Types",
		"Indicates the type of document the Patient used to identify themselves.")
	t.FamilyType = newTable("group-types", cs("group-types"), true,
		[3]string{"C", "C", "Council"},
		[3]string{"E", "E", "Organization"},
		[3]string{"H", "H", "Household"},
		[3]string{"O", "O", "Other"},
		[3]string{"P", "P", "Priests"},
		[3]string{"S", "S", "Students"},
		[3]string{"T", "T", "Teachers"},
	).describe("openIMIS Group Types", "Indicates the type of the Group.")
	t.ConfirmationType = newTable("group-confirmation-type", cs("group-confirmation-type"), true,
		[3]string{"A", "A", "Administrative letter"},
		[3]string{"B", "B", "Birth certificate"},
		[3]string{"C", "C", "Community confirmation"},
		[3]string{"O", "O", "Other"},
	).describe("openIMIS Group Confirmation Type", "Indicates the confirmation type for the Group.")

	t.LocationType = newTable("location-type", cs("location-type"), true,
		[3]string{"R", "R", "Region"},
		[3]string{"D", "D", "District"},
		[3]string{"W", "W", "Municipality/Ward"},
		[3]string{"V", "V", "Village"},
	).describe("openIMIS Location Type", "Level of an administrative location.")
	t.HFLevel = newTable("organization-hf-level", cs("organization-hf-level"), true,
		[3]string{"D", "D", "Dispensary"},
		[3]string{"C", "C", "Health Centre"},
		[3]string{"H", "H", "Hospital"},
	).describe("openIMIS Health Facility Level", "Level of a health facility.")
	t.HFLegalForm = newTable("organization-legal-form", cs("organization-legal-form"), true,
		[3]string{"C", "C", "Charity"},
		[3]string{"D", "D", "District organization"},
		[3]string{"G", "G", "Government"},
		[3]string{"P", "P", "Private organization"},
	).describe("openIMIS Health Facility Legal Form", "Legal form of a health facility.")
	t.OrgType = newTable("", SystemOrganizationType, false,
		[3]string{"prov", "prov", "Healthcare Provider"},
		[3]string{"bus", "bus", "Non-Healthcare Business or Corporation"},
		[3]string{"ins", "ins", "Insurance Company"},
	)
	t.PHLegalForm = newTable("organization-ph-legal-form", cs("organization-ph-legal-form"), true,
		[3]string{"1", "1", "Personal Company"},
		[3]string{"2", "2", "Limited Risk Company"},
		[3]string{"3", "3", "Association"},
		[3]string{"4", "4", "Government"},
		[3]string{"5", "5", "Union"},
	).describe("openIMIS Policy Holder Legal Form", "Legal form of a policy holder organisation.")
	t.PHActivity = newTable("organization-ph-activity", cs("organization-ph-activity"), true,
		[3]string{"1", "1", "Retail"},
		[3]string{"2", "2", "Industry"},
		[3]string{"3", "3", "Building"},
		[3]string{"4", "4", "Sailing"},
		[3]string{"5", "5", "Services"},
	).describe("openIMIS Policy Holder Activity", "Business activity of a policy holder organisation.")

	// 8 (expired) shares the suspended code, so the reverse lookup of
	// "cancelled" yields 4.
	t.CoverageStatus = newTable("", SystemFinancialStatus, false,
		[3]string{"1", "draft", "Idle"},
		[3]string{"2", "active", "Active"},
		[3]string{"4", "cancelled", "Suspended"},
		[3]string{"8", "cancelled", "Expired"},
	)
	t.ContractStatus = newTable("", SystemContractStatus, false,
		[3]string{"1", "offered", "Offered"},
		[3]string{"2", "policy", "Policy"},
		[3]string{"4", "cancelled", "Cancelled"},
		[3]string{"8", "terminated", "Terminated"},
	)
	t.PolicyStage = newTable("", SystemContractLegalState, false,
		[3]string{"N", "offered", "Offered"},
		[3]string{"R", "renewed", "Renewed"},
	)
	t.InsurancePlanType = newTable("", SystemInsurancePlanType, false,
		[3]string{"medical", "medical", "Medical"},
	)

	t.ClaimStatus = newTable("claim-status", cs("claim-status"), true,
		[3]string{"1", "rejected", "Rejected"},
		[3]string{"2", "entered", "Entered"},
		[3]string{"4", "checked", "Checked"},
		[3]string{"8", "processed", "Processed"},
		[3]string{"16", "valuated", "Valuated"},
	).describe("openIMIS Claim Status", "Processing status of a claim.")
	t.ClaimVisitType = newTable("claim-visit-type", cs("claim-visit-type"), true,
		[3]string{"E", "E", "Emergency"},
		[3]string{"R", "R", "Referrals"},
		[3]string{"O", "O", "Other"},
	).describe("openIMIS Claim Visit Type", "Visit type of a claim.")
	t.ClaimInfoCategory = newTable("claim-supporting-info-category", cs("claim-supporting-info-category"), true,
		[3]string{"guarantee_id", "guarantee_id", "Guarantee Id"},
		[3]string{"explanation", "explanation", "Explanation"},
		[3]string{"item_explanation", "item_explanation", "Item Explanation"},
		[3]string{"attachment", "attachment", "Attachment"},
	).describe("openIMIS Claim Supporting Info Category", "Category of claim supporting information.")
	t.ClaimItemCategory = newTable("", cs("claim-item-category"), false,
		[3]string{"item", "item", "Item"},
		[3]string{"service", "service", "Service"},
	)
	t.ClaimDiagnosisType = newTable("", cs("diagnosis-type"), false,
		[3]string{"0", "ICD_0", "Main diagnosis"},
		[3]string{"1", "ICD_1", "Secondary diagnosis 1"},
		[3]string{"2", "ICD_2", "Secondary diagnosis 2"},
		[3]string{"3", "ICD_3", "Secondary diagnosis 3"},
		[3]string{"4", "ICD_4", "Secondary diagnosis 4"},
	)

	t.InvoiceType = newTable("invoice-type", cs("invoice-type"), true,
		[3]string{"family", "contribution", "Contribution"},
		[3]string{"contract", "contract", "Contract"},
		[3]string{"policyholder", "policyholder", "Policy holder"},
	).describe("openIMIS Invoice Type", "Kind of subject an invoice is issued for.")
	t.InvoiceStatus = newTable("", "http://hl7.org/fhir/invoice-status", false,
		[3]string{"0", "draft", "Draft"},
		[3]string{"1", "issued", "Validated"},
		[3]string{"2", "balanced", "Paid"},
		[3]string{"3", "cancelled", "Cancelled"},
		[3]string{"4", "entered-in-error", "Deleted"},
		[3]string{"5", "issued", "Suspended"},
	)
	t.ChargeItem = newTable("invoice-charge-item", cs("invoice-charge-item"), true,
		[3]string{"policy", "policy", "Policy"},
		[3]string{"contractcontributionplandetails", "contribution", "Contribution"},
	).describe("openIMIS Invoice Charge Item", "Kind of record charged by an invoice line.")

	t.ItemType = newTable("medication-item-type", cs("medication-item-type"), true,
		[3]string{"D", "D", "Drug"},
		[3]string{"M", "M", "Medical_Consumable"},
	).describe("openIMIS Medication Item Type", "Type of a medical item.")
	t.ItemVenue = newTable("", SystemActCode, false,
		[3]string{"O", "AMB", "ambulatory"},
		[3]string{"I", "IMP", "IMP"},
		[3]string{"B", "B", "both"},
	)
	t.ServiceType = newTable("activity-definition-service-type", cs("activity-definition-service-type"), true,
		[3]string{"P", "P", "Preventive"},
		[3]string{"C", "C", "Curative"},
	).describe("openIMIS Service Type", "Type of a medical service.")
	t.UseContext = newTable("", SystemUsageContextType, false,
		[3]string{"gender", "gender", "Gender"},
		[3]string{"age", "age", "Age Range"},
		[3]string{"venue", "venue", "Clinical Venue"},
		[3]string{"workflow", "workflow", "Workflow Setting"},
	)
	t.PatientCategory = newTable("usage-context-age-type", cs("usage-context-age-type"), true,
		[3]string{"adult", "adult", "Adult"},
		[3]string{"child", "child", "Child"},
	).describe("openIMIS Usage Context Age Type", "Age category a service or item applies to.")
	t.Venue = newTable("", SystemActCode, false,
		[3]string{"O", "AMB", "ambulatory"},
		[3]string{"I", "IMP", "IMP"},
	)
	t.Workflow = newTable("activity-definition-usage-context-workflow-type",
		cs("activity-definition-usage-context-workflow-type"), true,
		[3]string{"S", "S", "Surgery"},
		[3]string{"C", "C", "Consultations"},
		[3]string{"D", "D", "Delivery"},
		[3]string{"A", "A", "Antenatal"},
		[3]string{"O", "O", "Other"},
	).describe("openIMIS Activity Definition Workflow Type", "Category of a medical service.")

	t.SubscriptionStatus = newTable("", "http://hl7.org/fhir/subscription-status", false,
		[3]string{"0", "off", "Off"},
		[3]string{"1", "active", "Active"},
	)
	t.SubscriptionChannel = newTable("", "http://hl7.org/fhir/subscription-channel-type", false,
		[3]string{"rest_hook", "rest-hook", "Rest Hook"},
	)
	return t
}

// Default is built from DefaultSystemBaseURL.
var Default = New(DefaultSystemBaseURL)

// StructureDefinition returns the URL of an openIMIS extension or profile.
func (t *Tables) StructureDefinition(name string) string {
	return t.Base + "StructureDefinition/" + name
}

// CodeSystemURL returns the URL of an openIMIS code system.
func (t *Tables) CodeSystemURL(name string) string {
	return t.Base + "CodeSystem/" + name
}

// Owned lists the tables published as openIMIS CodeSystems.
func (t *Tables) Owned() []*Table {
	all := []*Table{
		t.Relationship, t.Education, t.Profession, t.IdentificationType, t.FamilyType,
		t.ConfirmationType, t.LocationType, t.HFLevel, t.HFLegalForm, t.PHLegalForm,
		t.PHActivity, t.ClaimStatus, t.ClaimVisitType, t.ClaimInfoCategory, t.InvoiceType,
		t.ChargeItem, t.ItemType, t.ServiceType, t.PatientCategory, t.Workflow,
	}
	out := all[:0]
	for _, tb := range all {
		if tb.Owned {
			out = append(out, tb)
		}
	}
	return out
}

// Lookup finds an owned table by its CodeSystem id.
func (t *Tables) Lookup(id string) (*Table, bool) {
	for _, tb := range t.Owned() {
		if tb.ID == id {
			return tb, true
		}
	}
	return nil, false
}
