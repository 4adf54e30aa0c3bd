package imis

import "time"

// Kind names a domain record type. It is also the discriminator column of
// the record store.
type Kind string

const (
	KindLocation              Kind = "location"
	KindHealthFacility        Kind = "health_facility"
	KindClaimAdmin            Kind = "claim_admin"
	KindOfficer               Kind = "officer"
	KindInsuree               Kind = "insuree"
	KindFamily                Kind = "family"
	KindPolicy                Kind = "policy"
	KindProduct               Kind = "product"
	KindClaim                 Kind = "claim"
	KindItem                  Kind = "item"
	KindService               Kind = "service"
	KindDiagnosis             Kind = "diagnosis"
	KindInvoice               Kind = "invoice"
	KindPolicyHolder          Kind = "policy_holder"
	KindInsuranceOrganization Kind = "insurance_organization"
	KindFeedback              Kind = "feedback"
	KindSubscription          Kind = "subscription"
)

// LastUpdatedField returns the timestamp attribute that _lastUpdated filters
// on. Versioned records (validity_from/validity_to) use validity_from, the
// newer modules track date_updated.
func (k Kind) LastUpdatedField() string {
	switch k {
	case KindPolicyHolder, KindInsuranceOrganization, KindSubscription, KindInvoice:
		return "date_updated"
	default:
		return "validity_from"
	}
}

// Base holds the attributes every record carries.
type Base struct {
	ID           int        `json:"id"`
	UUID         string     `json:"uuid"`
	ValidityFrom time.Time  `json:"validity_from"`
	ValidityTo   *time.Time `json:"validity_to,omitempty"`
	DateUpdated  time.Time  `json:"date_updated"`
	AuditUserID  int        `json:"audit_user_id"`
}

// Meta gives access to the shared attributes through the Record interface.
func (b *Base) Meta() *Base { return b }

// Active reports whether the record is the current version.
func (b *Base) Active() bool { return b.ValidityTo == nil }

// Record is implemented by every domain record.
type Record interface {
	Meta() *Base
	Kind() Kind
}

// Coded is implemented by records that carry a short business code (or a
// functional equivalent such as the insuree CHF id).
type Coded interface {
	Record
	BusinessCode() string
}

// CodeOf returns the business code of r and whether r has one.
func CodeOf(r Record) (string, bool) {
	c, ok := r.(Coded)
	if !ok {
		return "", false
	}
	return c.BusinessCode(), true
}

// New returns an empty record of the given kind, or nil for an unknown kind.
func New(k Kind) Record {
	switch k {
	case KindLocation:
		return &Location{}
	case KindHealthFacility:
		return &HealthFacility{}
	case KindClaimAdmin:
		return &ClaimAdmin{}
	case KindOfficer:
		return &Officer{}
	case KindInsuree:
		return &Insuree{}
	case KindFamily:
		return &Family{}
	case KindPolicy:
		return &Policy{}
	case KindProduct:
		return &Product{}
	case KindClaim:
		return &Claim{}
	case KindItem:
		return &Item{}
	case KindService:
		return &Service{}
	case KindDiagnosis:
		return &Diagnosis{}
	case KindInvoice:
		return &Invoice{}
	case KindPolicyHolder:
		return &PolicyHolder{}
	case KindInsuranceOrganization:
		return &InsuranceOrganization{}
	case KindFeedback:
		return &Feedback{}
	case KindSubscription:
		return &Subscription{}
	}
	return nil
}
