package converter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

func TestInsurancePlanRoundTrip(t *testing.T) {
	_, district, _, _ := fixtureLocations()
	prod := &imis.Product{
		Base:            recBase(90, "5f0e4d77-0000-4000-8000-000000000090"),
		Code:            "BASIC",
		Name:            "Basic cover",
		DateFrom:        date(2023, 1, 1),
		DateTo:          date(2025, 12, 31),
		Location:        district,
		MaxMembers:      6,
		LumpSum:         2500,
		InsurancePeriod: 12,
	}
	reg := newTestRegistry(fakeLookup{}.add(district))

	ip, err := reg.InsurancePlan.ToFHIR(prod, ReferenceUUID)
	require.NoError(t, err)
	assert.Equal(t, "active", ip.Status)
	assert.Equal(t, "BASIC", IdentifierByCode(ip.Identifier, "Code"))
	require.Len(t, ip.CoverageArea, 1)
	assert.Equal(t, "Location/"+district.UUID, ip.CoverageArea[0].Reference)
	assert.Len(t, ip.Extension, 3)

	back, err := reg.InsurancePlan.ToIMIS(context.Background(), ip, 5)
	require.NoError(t, err)
	assert.Equal(t, prod.UUID, back.UUID)
	assert.Equal(t, "BASIC", back.Code)
	assert.Equal(t, "Basic cover", back.Name)
	assert.Same(t, district, back.Location)
	assert.Equal(t, 6, back.MaxMembers)
	assert.Equal(t, 12, back.InsurancePeriod)
	assert.Equal(t, 2500.0, back.LumpSum)
	require.NotNil(t, back.DateTo)
	assert.True(t, back.DateTo.Equal(*prod.DateTo))
	assert.Equal(t, 5, back.AuditUserID)
}

func TestInsurancePlanToIMIS_Errors(t *testing.T) {
	ip := &fhir.InsurancePlan{CoverageArea: []fhir.Reference{{Reference: "Location/R1D9"}}}
	_, err := newTestRegistry(fakeLookup{}).InsurancePlan.ToIMIS(context.Background(), ip, 1)

	var rpe *RequestProcessError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{
		"Missing product code",
		"Missing product `name` attribute",
		"Location Location/R1D9 not found",
	}, rpe.Messages)
}
