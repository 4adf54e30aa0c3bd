// Package converter translates openIMIS records into FHIR R4 resources and
// inbound FHIR payloads back into records. Converters are stateless apart
// from their read-only Settings and never write to storage: inbound
// references are resolved through a Lookup.
package converter

import (
	"context"
	"fmt"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Lookup resolves an identifier of any supported shape (uuid, database id,
// business code) to a stored record.
type Lookup interface {
	Find(ctx context.Context, kind imis.Kind, identifier string) (imis.Record, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, kind imis.Kind, identifier string) (imis.Record, error)

func (f LookupFunc) Find(ctx context.Context, kind imis.Kind, identifier string) (imis.Record, error) {
	return f(ctx, kind, identifier)
}

// Converter is the type-erased view of a resource converter used by the
// dispatcher, the contained composer and the HTTP layer.
type Converter interface {
	// Name distinguishes converters that share a resource type.
	Name() string
	ResourceType() string
	Kind() imis.Kind
	ToFHIR(rec imis.Record, mode ReferenceType) (fhir.Resource, error)
	ToIMIS(ctx context.Context, raw []byte, auditUserID int) (imis.Record, error)
}

// typed wires a pair of strongly typed conversion functions into Converter.
type typed[R imis.Record, F fhir.Resource] struct {
	name         string
	resourceType string
	kind         imis.Kind
	newResource  func() F
	toFHIR       func(R, ReferenceType) (F, error)
	toIMIS       func(context.Context, F, int) (R, error)
}

func (t *typed[R, F]) Name() string         { return t.name }
func (t *typed[R, F]) ResourceType() string { return t.resourceType }
func (t *typed[R, F]) Kind() imis.Kind      { return t.kind }

func (t *typed[R, F]) ToFHIR(rec imis.Record, mode ReferenceType) (fhir.Resource, error) {
	r, ok := rec.(R)
	if !ok {
		return nil, fmt.Errorf("%s converter cannot handle %s records", t.name, rec.Kind())
	}
	return t.toFHIR(r, mode)
}

func (t *typed[R, F]) ToIMIS(ctx context.Context, raw []byte, auditUserID int) (imis.Record, error) {
	if t.toIMIS == nil {
		return nil, ErrNotImplemented
	}
	res := t.newResource()
	if err := fhir.Decode(raw, t.resourceType, res); err != nil {
		return nil, err
	}
	return t.toIMIS(ctx, res, auditUserID)
}

// Registry holds one instance of every converter.
type Registry struct {
	Patient                    *PatientConverter
	Group                      *GroupConverter
	Location                   *LocationConverter
	HealthFacility             *HealthFacilityConverter
	PolicyHolder               *PolicyHolderConverter
	InsuranceOrganization      *InsuranceOrganizationConverter
	ClaimAdminPractitioner     *ClaimAdminPractitionerConverter
	OfficerPractitioner        *OfficerPractitionerConverter
	ClaimAdminPractitionerRole *ClaimAdminPractitionerRoleConverter
	OfficerPractitionerRole    *OfficerPractitionerRoleConverter
	Claim                      *ClaimConverter
	Coverage                   *CoverageConverter
	Contract                   *ContractConverter
	Invoice                    *InvoiceConverter
	InsurancePlan              *InsurancePlanConverter
	Medication                 *MedicationConverter
	ActivityDefinition         *ActivityDefinitionConverter
	Condition                  *ConditionConverter
	CommunicationRequest       *CommunicationRequestConverter
	Subscription               *SubscriptionConverter
	CodeSystem                 *CodeSystemConverter

	lookup Lookup
}

// NewRegistry builds every converter around s and lookup.
func NewRegistry(s *Settings, lookup Lookup) *Registry {
	b := &base{s: s, t: s.Tables, lookup: lookup}
	return &Registry{
		Patient:                    &PatientConverter{base: b},
		Group:                      &GroupConverter{base: b},
		Location:                   &LocationConverter{base: b},
		HealthFacility:             &HealthFacilityConverter{base: b},
		PolicyHolder:               &PolicyHolderConverter{base: b},
		InsuranceOrganization:      &InsuranceOrganizationConverter{base: b},
		ClaimAdminPractitioner:     &ClaimAdminPractitionerConverter{base: b},
		OfficerPractitioner:        &OfficerPractitionerConverter{base: b},
		ClaimAdminPractitionerRole: &ClaimAdminPractitionerRoleConverter{base: b},
		OfficerPractitionerRole:    &OfficerPractitionerRoleConverter{base: b},
		Claim:                      &ClaimConverter{base: b},
		Coverage:                   &CoverageConverter{base: b},
		Contract:                   &ContractConverter{base: b},
		Invoice:                    &InvoiceConverter{base: b},
		InsurancePlan:              &InsurancePlanConverter{base: b},
		Medication:                 &MedicationConverter{base: b},
		ActivityDefinition:         &ActivityDefinitionConverter{base: b},
		Condition:                  &ConditionConverter{base: b},
		CommunicationRequest:       &CommunicationRequestConverter{base: b},
		Subscription:               &SubscriptionConverter{base: b},
		CodeSystem:                 &CodeSystemConverter{base: b},
		lookup:                     lookup,
	}
}

// Lookup returns the read-only finder the converters resolve references
// with. It is nil for registries built without one.
func (r *Registry) Lookup() Lookup { return r.lookup }

// All returns the type-erased converters in a stable order.
func (r *Registry) All() []Converter {
	return []Converter{
		r.Patient.Converter(),
		r.Group.Converter(),
		r.Location.Converter(),
		r.HealthFacility.Converter(),
		r.PolicyHolder.Converter(),
		r.InsuranceOrganization.Converter(),
		r.ClaimAdminPractitioner.Converter(),
		r.OfficerPractitioner.Converter(),
		r.ClaimAdminPractitionerRole.Converter(),
		r.OfficerPractitionerRole.Converter(),
		r.Claim.Converter(),
		r.Coverage.Converter(),
		r.Contract.Converter(),
		r.Invoice.Converter(),
		r.InsurancePlan.Converter(),
		r.Medication.Converter(),
		r.ActivityDefinition.Converter(),
		r.Condition.Converter(),
		r.CommunicationRequest.Converter(),
		r.Subscription.Converter(),
	}
}

// ByName finds a converter by Name.
func (r *Registry) ByName(name string) (Converter, bool) {
	for _, c := range r.All() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
