package imis

import "time"

// Location is an administrative area: region, district, municipality/ward or
// village. Parent links upwards in that order.
type Location struct {
	Base
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Parent *Location `json:"parent,omitempty"`
}

func (*Location) Kind() Kind             { return KindLocation }
func (l *Location) BusinessCode() string { return l.Code }

// HealthFacility maps to tblHF.
type HealthFacility struct {
	Base
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	LegalForm   string        `json:"legal_form"`
	Level       string        `json:"level"`
	CareType    string        `json:"care_type"`
	Address     string        `json:"address"`
	Phone       string        `json:"phone"`
	Fax         string        `json:"fax"`
	Email       string        `json:"email"`
	Location    *Location     `json:"location,omitempty"`
	ClaimAdmins []*ClaimAdmin `json:"claim_admins,omitempty"`
}

func (*HealthFacility) Kind() Kind             { return KindHealthFacility }
func (h *HealthFacility) BusinessCode() string { return h.Code }

// ClaimAdmin is the facility user who enters claims.
type ClaimAdmin struct {
	Base
	Code           string          `json:"code"`
	LastName       string          `json:"last_name"`
	OtherNames     string          `json:"other_names"`
	DOB            *time.Time      `json:"dob,omitempty"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	HealthFacility *HealthFacility `json:"health_facility,omitempty"`
}

func (*ClaimAdmin) Kind() Kind             { return KindClaimAdmin }
func (c *ClaimAdmin) BusinessCode() string { return c.Code }

// Officer is an enrolment officer.
type Officer struct {
	Base
	Code       string     `json:"code"`
	LastName   string     `json:"last_name"`
	OtherNames string     `json:"other_names"`
	DOB        *time.Time `json:"dob,omitempty"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	Location   *Location  `json:"location,omitempty"`
}

func (*Officer) Kind() Kind             { return KindOfficer }
func (o *Officer) BusinessCode() string { return o.Code }

// Photo is the insuree picture. Data is base64 encoded.
type Photo struct {
	Filename string     `json:"filename"`
	Folder   string     `json:"folder"`
	Date     *time.Time `json:"date,omitempty"`
	Data     string     `json:"data"`
}

// Insuree maps to tblInsuree. The CHF id plays the role of the business code.
type Insuree struct {
	Base
	CHFID          string          `json:"chf_id"`
	LastName       string          `json:"last_name"`
	OtherNames     string          `json:"other_names"`
	DOB            *time.Time      `json:"dob,omitempty"`
	Gender         string          `json:"gender"`
	Marital        string          `json:"marital"`
	Head           bool            `json:"head"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	CurrentAddress string          `json:"current_address"`
	Geolocation    string          `json:"geolocation"`
	CurrentVillage *Location       `json:"current_village,omitempty"`
	CardIssued     bool            `json:"card_issued"`
	Education      *int            `json:"education,omitempty"`
	Profession     *int            `json:"profession,omitempty"`
	Relationship   *int            `json:"relationship,omitempty"`
	TypeOfID       string          `json:"type_of_id"`
	PassportNumber string          `json:"passport"`
	HealthFacility *HealthFacility `json:"health_facility,omitempty"`
	Family         *Family         `json:"family,omitempty"`
	Photo          *Photo          `json:"photo,omitempty"`
	Policies       []*Policy       `json:"policies,omitempty"`
}

func (*Insuree) Kind() Kind             { return KindInsuree }
func (i *Insuree) BusinessCode() string { return i.CHFID }

// Family groups insurees under a head. A Family nested inside an Insuree is a
// snapshot and carries no Head or Members.
type Family struct {
	Base
	Head             *Insuree   `json:"head,omitempty"`
	Members          []*Insuree `json:"members,omitempty"`
	Location         *Location  `json:"location,omitempty"`
	Address          string     `json:"address"`
	Poverty          *bool      `json:"poverty,omitempty"`
	FamilyType       string     `json:"family_type"`
	ConfirmationType string     `json:"confirmation_type"`
	ConfirmationNo   string     `json:"confirmation_no"`
}

func (*Family) Kind() Kind { return KindFamily }

// Policy maps to tblPolicy. Insurees lists the covered members.
type Policy struct {
	Base
	Stage         string     `json:"stage"`
	Status        int        `json:"status"`
	Value         float64    `json:"value"`
	EnrollDate    *time.Time `json:"enroll_date,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Family        *Family    `json:"family,omitempty"`
	Product       *Product   `json:"product,omitempty"`
	Officer       *Officer   `json:"officer,omitempty"`
	Insurees      []*Insuree `json:"insurees,omitempty"`
}

func (*Policy) Kind() Kind { return KindPolicy }

// Product is an insurance product (FHIR InsurancePlan).
type Product struct {
	Base
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	DateFrom        *time.Time `json:"date_from,omitempty"`
	DateTo          *time.Time `json:"date_to,omitempty"`
	Location        *Location  `json:"location,omitempty"`
	MaxMembers      int        `json:"max_members"`
	LumpSum         float64    `json:"lump_sum"`
	InsurancePeriod int        `json:"insurance_period"`
}

func (*Product) Kind() Kind             { return KindProduct }
func (p *Product) BusinessCode() string { return p.Code }

// Item is a medical item or consumable (FHIR Medication).
type Item struct {
	Base
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Package         string  `json:"package"`
	Price           float64 `json:"price"`
	CareType        string  `json:"care_type"`
	PatientCategory int     `json:"patient_category"`
	Frequency       *int    `json:"frequency,omitempty"`
}

func (*Item) Kind() Kind             { return KindItem }
func (i *Item) BusinessCode() string { return i.Code }

// Service is a medical service (FHIR ActivityDefinition).
type Service struct {
	Base
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Level           string  `json:"level"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	CareType        string  `json:"care_type"`
	PatientCategory int     `json:"patient_category"`
	Frequency       *int    `json:"frequency,omitempty"`
}

func (*Service) Kind() Kind             { return KindService }
func (s *Service) BusinessCode() string { return s.Code }

// Diagnosis is an ICD code (FHIR Condition).
type Diagnosis struct {
	Base
	Code string `json:"code"`
	Name string `json:"name"`
}

func (*Diagnosis) Kind() Kind             { return KindDiagnosis }
func (d *Diagnosis) BusinessCode() string { return d.Code }

// ClaimItem is one item line of a claim.
type ClaimItem struct {
	Item        *Item      `json:"item,omitempty"`
	QtyProvided float64    `json:"qty_provided"`
	PriceAsked  float64    `json:"price_asked"`
	Explanation string     `json:"explanation"`
	ValidityTo  *time.Time `json:"validity_to,omitempty"`
}

// ClaimService is one service line of a claim.
type ClaimService struct {
	Service     *Service   `json:"service,omitempty"`
	QtyProvided float64    `json:"qty_provided"`
	PriceAsked  float64    `json:"price_asked"`
	Explanation string     `json:"explanation"`
	ValidityTo  *time.Time `json:"validity_to,omitempty"`
}

// ClaimAttachment is a document submitted with a claim. Document holds the
// base64 content.
type ClaimAttachment struct {
	Title    string     `json:"title"`
	Filename string     `json:"filename"`
	Mime     string     `json:"mime"`
	Document string     `json:"document"`
	Date     *time.Time `json:"date,omitempty"`
}

// SubmitLine is an item or service line read from an inbound claim, before
// the claim submission service resolves the code.
type SubmitLine struct {
	Code     string   `json:"code"`
	Quantity *float64 `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// Claim maps to tblClaim.
type Claim struct {
	Base
	Code           string             `json:"code"`
	DateClaimed    *time.Time         `json:"date_claimed,omitempty"`
	DateFrom       *time.Time         `json:"date_from,omitempty"`
	DateTo         *time.Time         `json:"date_to,omitempty"`
	Status         int                `json:"status"`
	Insuree        *Insuree           `json:"insuree,omitempty"`
	HealthFacility *HealthFacility    `json:"health_facility,omitempty"`
	Admin          *ClaimAdmin        `json:"admin,omitempty"`
	ICD            *Diagnosis         `json:"icd,omitempty"`
	ICD1           *Diagnosis         `json:"icd_1,omitempty"`
	ICD2           *Diagnosis         `json:"icd_2,omitempty"`
	ICD3           *Diagnosis         `json:"icd_3,omitempty"`
	ICD4           *Diagnosis         `json:"icd_4,omitempty"`
	Claimed        *float64           `json:"claimed,omitempty"`
	Approved       *float64           `json:"approved,omitempty"`
	VisitType      string             `json:"visit_type"`
	GuaranteeID    string             `json:"guarantee_id"`
	Explanation    string             `json:"explanation"`
	Items          []*ClaimItem       `json:"items,omitempty"`
	Services       []*ClaimService    `json:"services,omitempty"`
	Attachments    []*ClaimAttachment `json:"attachments,omitempty"`
	SubmitItems    []SubmitLine       `json:"submit_items,omitempty"`
	SubmitServices []SubmitLine       `json:"submit_services,omitempty"`
}

func (*Claim) Kind() Kind             { return KindClaim }
func (c *Claim) BusinessCode() string { return c.Code }

// Party is a lightweight handle on a record of any kind, used where the
// domain stores a generic foreign key (invoice third party).
type Party struct {
	Base
	PartyKind Kind   `json:"kind"`
	Code      string `json:"code"`
}

func (p *Party) Kind() Kind { return p.PartyKind }

// BusinessCode returns the code of the referenced record; empty when the
// referenced kind has none.
func (p *Party) BusinessCode() string { return p.Code }

// InvoiceLineItem is one charge of an invoice. LineType is the model name of
// the charged record (policy, contractcontributionplandetails).
type InvoiceLineItem struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	LineType    string   `json:"line_type"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	Discount    *float64 `json:"discount,omitempty"`
	Deduction   *float64 `json:"deduction,omitempty"`
	TaxRate     *float64 `json:"tax_rate,omitempty"`
}

// Invoice maps to the invoice module table. SubjectType is the model name of
// the invoiced subject (family, contract, policyholder).
type Invoice struct {
	Base
	Code         string             `json:"code"`
	SubjectType  string             `json:"subject_type"`
	ThirdParty   *Party             `json:"thirdparty,omitempty"`
	DateInvoice  *time.Time         `json:"date_invoice,omitempty"`
	AmountNet    float64            `json:"amount_net"`
	AmountTotal  float64            `json:"amount_total"`
	CurrencyCode string             `json:"currency_code"`
	Status       int                `json:"status"`
	LineItems    []*InvoiceLineItem `json:"line_items,omitempty"`
}

func (*Invoice) Kind() Kind             { return KindInvoice }
func (i *Invoice) BusinessCode() string { return i.Code }

// PolicyHolder is a company or association paying contributions for
// insurees (FHIR Organization of type bus).
type PolicyHolder struct {
	Base
	Code        string    `json:"code"`
	TradeName   string    `json:"trade_name"`
	LegalForm   *int      `json:"legal_form,omitempty"`
	Activity    *int      `json:"activity_code,omitempty"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Fax         string    `json:"fax"`
	Email       string    `json:"email"`
	ContactName string    `json:"contact_name"`
	Location    *Location `json:"locations,omitempty"`
}

func (*PolicyHolder) Kind() Kind             { return KindPolicyHolder }
func (p *PolicyHolder) BusinessCode() string { return p.Code }

// InsuranceOrganizationCode is the fixed identifier under which the
// implementation's own organisation is addressed.
const InsuranceOrganizationCode = "openIMIS-Implementation"

// InsuranceOrganization describes the scheme operator itself (FHIR
// Organization of type ins). There is exactly one per deployment.
type InsuranceOrganization struct {
	Base
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Fax     string `json:"fax"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

func (*InsuranceOrganization) Kind() Kind           { return KindInsuranceOrganization }
func (*InsuranceOrganization) BusinessCode() string { return InsuranceOrganizationCode }

// Feedback is a feedback prompt sent to an enrolment officer after a claim
// (FHIR CommunicationRequest).
type Feedback struct {
	Base
	Claim          *Claim     `json:"claim,omitempty"`
	Officer        *Officer   `json:"officer,omitempty"`
	PromptDate     *time.Time `json:"feedback_prompt_date,omitempty"`
	CareRendered   *bool      `json:"care_rendered,omitempty"`
	PaymentAsked   *bool      `json:"payment_asked,omitempty"`
	DrugPrescribed *bool      `json:"drug_prescribed,omitempty"`
	DrugReceived   *bool      `json:"drug_received,omitempty"`
	Assessment     *int       `json:"asessment,omitempty"`
}

func (*Feedback) Kind() Kind { return KindFeedback }

// Subscription is a rest-hook registration. Criteria always contains
// resource_type; any other key must equal the notified resource's value.
type Subscription struct {
	Base
	Status   int            `json:"status"`
	Channel  string         `json:"channel"`
	Endpoint string         `json:"endpoint"`
	Headers  []string       `json:"headers,omitempty"`
	Criteria map[string]any `json:"criteria"`
	Expiring *time.Time     `json:"expiring,omitempty"`
	Error    string         `json:"error"`
}

func (*Subscription) Kind() Kind { return KindSubscription }

const (
	SubscriptionStatusOff    = 0
	SubscriptionStatusActive = 1
)
