package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/store"
	"github.com/openimis/imis-fhir/internal/subscription"
)

// Build returns one dispatcher per served FHIR resource type. Types backed
// by a single record kind get a dispatcher with one always eligible entry.
func Build(reg *converter.Registry, repo store.Repository, logger zerolog.Logger) map[string]*Dispatcher {
	out := map[string]*Dispatcher{}
	add := func(resourceType string, entries ...Entry) {
		out[resourceType] = New(resourceType, repo, logger.With().Str("resource_type", resourceType).Logger(), entries...)
	}
	single := func(c converter.Converter) {
		add(c.ResourceType(), Entry{Name: c.Name(), Eligible: Always, Converter: c})
	}
	typed := func(code string, c converter.Converter) Entry {
		return Entry{Name: c.Name(), Eligible: TypePredicate(code), Converter: c}
	}

	add("Organization",
		typed(converter.OrgTypeProvider, reg.HealthFacility.Converter()),
		typed(converter.OrgTypeBusiness, reg.PolicyHolder.Converter()),
		typed(converter.OrgTypeInsurance, reg.InsuranceOrganization.Converter()),
	)
	add("Practitioner",
		typed(converter.QualificationClaimAdmin, reg.ClaimAdminPractitioner.Converter()),
		typed(converter.QualificationOfficer, reg.OfficerPractitioner.Converter()),
	)
	add("PractitionerRole",
		typed(converter.QualificationClaimAdmin, reg.ClaimAdminPractitionerRole.Converter()),
		typed(converter.QualificationOfficer, reg.OfficerPractitionerRole.Converter()),
	)
	for _, c := range []converter.Converter{
		reg.Patient.Converter(),
		reg.Group.Converter(),
		reg.Location.Converter(),
		reg.Claim.Converter(),
		reg.Coverage.Converter(),
		reg.Contract.Converter(),
		reg.Invoice.Converter(),
		reg.InsurancePlan.Converter(),
		reg.Medication.Converter(),
		reg.ActivityDefinition.Converter(),
		reg.Condition.Converter(),
		reg.CommunicationRequest.Converter(),
	} {
		single(c)
	}
	subscriptions := reg.Subscription.Converter()
	add(subscriptions.ResourceType(), Entry{
		Name:      subscriptions.Name(),
		Eligible:  Always,
		Converter: subscriptions,
		Check: func(rec imis.Record) error {
			return subscription.Validate(rec.(*imis.Subscription))
		},
	})
	return out
}
