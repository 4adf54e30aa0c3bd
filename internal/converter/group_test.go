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

func newGroupFixture() (*imis.Family, *imis.Insuree, *imis.Insuree) {
	head, fam := newPatientFixture()
	child := &imis.Insuree{Base: recBase(21, "0d2b8c11-0000-4000-8000-000000000021"), CHFID: "070707071", LastName: "Doe", OtherNames: "Tim", DOB: date(2015, 6, 1), Gender: "M", Family: fam}
	fam.Head = head
	fam.Members = []*imis.Insuree{child, head}
	fam.Poverty = fhir.Bool(true)
	fam.FamilyType = "H"
	fam.ConfirmationNo = "CNF-7"
	fam.ConfirmationType = "B"
	return fam, head, child
}

func TestGroupToFHIR_HeadFirst(t *testing.T) {
	fam, head, child := newGroupFixture()

	g, err := newTestRegistry(nil).Group.ToFHIR(fam, ReferenceUUID)
	require.NoError(t, err)
	assert.Equal(t, "Doe", g.Name)
	require.Len(t, g.Member, 2)
	assert.Equal(t, "Patient/"+head.UUID, g.Member[0].Entity.Reference)
	assert.Equal(t, "Patient/"+child.UUID, g.Member[1].Entity.Reference)
	assert.Equal(t, 2, *g.Quantity)
}

func TestGroupToFHIR_NoHead(t *testing.T) {
	fam, _, _ := newGroupFixture()
	fam.Head = nil

	_, err := newTestRegistry(nil).Group.ToFHIR(fam, ReferenceUUID)
	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "head", ce.Relation)
}

func TestGroupRoundTrip(t *testing.T) {
	fam, head, child := newGroupFixture()
	village := fam.Location
	reg := newTestRegistry(fakeLookup{}.add(head, child, village))

	g, err := reg.Group.ToFHIR(fam, ReferenceUUID)
	require.NoError(t, err)
	back, err := reg.Group.ToIMIS(context.Background(), g, 2)
	require.NoError(t, err)

	assert.Equal(t, fam.UUID, back.UUID)
	assert.Same(t, head, back.Head)
	require.Len(t, back.Members, 2)
	assert.Same(t, child, back.Members[1])
	assert.Same(t, village, back.Location)
	assert.Equal(t, "Main street 1", back.Address)
	require.NotNil(t, back.Poverty)
	assert.True(t, *back.Poverty)
	assert.Equal(t, "H", back.FamilyType)
	assert.Equal(t, "CNF-7", back.ConfirmationNo)
	assert.Equal(t, "B", back.ConfirmationType)
}

func TestGroupToIMIS_Errors(t *testing.T) {
	reg := newTestRegistry(fakeLookup{})

	_, err := reg.Group.ToIMIS(context.Background(), &fhir.Group{}, 1)
	var rpe *RequestProcessError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{"Missing group head"}, rpe.Messages)

	g := &fhir.Group{Member: []fhir.GroupMember{{Entity: fhir.Reference{Reference: "Patient/070707099"}}}}
	_, err = reg.Group.ToIMIS(context.Background(), g, 1)
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{"Member Patient/070707099 not found"}, rpe.Messages)
}
