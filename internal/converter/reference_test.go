package converter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

func TestParseReferenceType(t *testing.T) {
	tests := []struct {
		in      string
		want    ReferenceType
		wantErr bool
	}{
		{"", ReferenceUUID, false},
		{"uuid", ReferenceUUID, false},
		{"UUID_reference", ReferenceUUID, false},
		{"db_id", ReferenceDBID, false},
		{"id", ReferenceDBID, false},
		{"code_reference", ReferenceCode, false},
		{"name", "", true},
	}
	for _, tt := range tests {
		got, err := ParseReferenceType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuildReference(t *testing.T) {
	_, _, _, village := fixtureLocations()

	for mode, want := range map[ReferenceType]string{
		ReferenceUUID: "Location/" + village.UUID,
		ReferenceDBID: "Location/4",
		ReferenceCode: "Location/R1D1M1V1",
	} {
		ref, err := BuildReference(village, "Location", mode, village.Name)
		require.NoError(t, err)
		assert.Equal(t, want, ref.Reference)
		assert.Equal(t, "Location", ref.Type)
		assert.Equal(t, "Village", ref.Display)
	}
}

func TestReferenceKey_CodePolicies(t *testing.T) {
	fam := &imis.Family{Base: recBase(1, "f-uuid")}
	key, err := ReferenceKey(fam, ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, "f-uuid", key)

	sub := &imis.Subscription{Base: recBase(2, "s-uuid")}
	_, err = ReferenceKey(sub, ReferenceCode)
	var ure *UnsupportedReferenceTypeError
	require.True(t, errors.As(err, &ure))
	assert.Equal(t, imis.KindSubscription, ure.Kind)
}

func TestResolveReference(t *testing.T) {
	key, err := ResolveReference(&fhir.Reference{Reference: "Patient/070707070"}, "Patient", true)
	require.NoError(t, err)
	assert.Equal(t, "070707070", key)

	key, err = ResolveReference(&fhir.Reference{Reference: "Location/abc"}, "Patient", false)
	require.NoError(t, err)
	assert.Equal(t, "abc", key)

	_, err = ResolveReference(&fhir.Reference{Reference: "Location/abc"}, "Patient", true)
	assert.Error(t, err)

	_, err = ResolveReference(nil, "Patient", false)
	assert.Error(t, err)
}
