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

func newPolicyFixture(status int) (*imis.Policy, *imis.Family, *imis.Product) {
	head, _ := newPatientFixture()
	fam := head.Family
	fam.Head = head
	prod := &imis.Product{Base: recBase(90, "5f0e4d77-0000-4000-8000-000000000090"), Code: "BASIC", Name: "Basic cover"}
	pol := &imis.Policy{
		Base:       recBase(100, "2b6c8d99-0000-4000-8000-000000000100"),
		Stage:      "N",
		Status:     status,
		Value:      1000,
		EnrollDate: date(2023, 1, 5),
		StartDate:  date(2023, 1, 10),
		ExpiryDate: date(2024, 1, 9),
		Family:     fam,
		Product:    prod,
	}
	return pol, fam, prod
}

func TestCoverageStatus(t *testing.T) {
	tests := []struct {
		imis     int
		fhir     string
		readBack int
	}{
		{1, "draft", 1},
		{2, "active", 2},
		{4, "cancelled", 4},
		{8, "cancelled", 4},
	}
	for _, tt := range tests {
		t.Run(tt.fhir, func(t *testing.T) {
			pol, fam, prod := newPolicyFixture(tt.imis)
			reg := newTestRegistry(fakeLookup{}.add(fam, prod))

			cv, err := reg.Coverage.ToFHIR(pol, ReferenceUUID)
			require.NoError(t, err)
			assert.Equal(t, tt.fhir, cv.Status)

			back, err := reg.Coverage.ToIMIS(context.Background(), cv, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.readBack, back.Status)
		})
	}
}

func TestCoverageToFHIR(t *testing.T) {
	pol, fam, prod := newPolicyFixture(2)
	cv, err := newTestRegistry(nil).Coverage.ToFHIR(pol, ReferenceCode)
	require.NoError(t, err)

	// families have no code, CODE mode falls back to the uuid
	assert.Equal(t, "Group/"+fam.UUID, cv.PolicyHolder.Reference)
	assert.Equal(t, "Patient/070707070", cv.Beneficiary.Reference)
	require.Len(t, cv.Class, 1)
	assert.Equal(t, prod.Code, cv.Class[0].Value)
	assert.Equal(t, "2023-01-10", cv.Period.Start)
	assert.Equal(t, "2024-01-09", cv.Period.End)
}

func TestCoverageToFHIR_UnmappedStatus(t *testing.T) {
	pol, _, _ := newPolicyFixture(16)
	_, err := newTestRegistry(nil).Coverage.ToFHIR(pol, ReferenceUUID)
	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "status", ce.Relation)
}

func TestCoverageToIMIS_Errors(t *testing.T) {
	cv := &fhir.Coverage{
		Status:       "unknown-status",
		Period:       &fhir.Period{Start: "2023-01-01"},
		PolicyHolder: &fhir.Reference{Reference: "Group/missing"},
		Class:        []fhir.CoverageClass{{Value: "NOPE"}},
	}
	_, err := newTestRegistry(fakeLookup{}).Coverage.ToIMIS(context.Background(), cv, 1)

	var rpe *RequestProcessError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{
		"Unknown coverage status unknown-status",
		"Missing `period end` attribute",
		"Family Group/missing not found",
		"Product NOPE not found",
	}, rpe.Messages)
}
