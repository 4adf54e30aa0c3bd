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

func TestClaimToFHIR_MissingHealthFacility(t *testing.T) {
	f := newClaimFixture()
	f.claim.HealthFacility = nil

	_, err := newTestRegistry(nil).Claim.ToFHIR(f.claim, ReferenceUUID)
	require.Error(t, err)

	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "health_facility", ce.Relation)
	assert.Contains(t, ce.Message, "HF is None")

	var rpe *RequestProcessError
	assert.True(t, errors.As(err, &rpe), "conversion errors surface as request errors")
}

func TestClaimToFHIR_RequiredRelationsInOrder(t *testing.T) {
	f := newClaimFixture()
	f.claim.Insuree = nil
	f.claim.Admin = nil
	f.claim.ICD = nil

	_, err := newTestRegistry(nil).Claim.ToFHIR(f.claim, ReferenceUUID)
	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "insuree", ce.Relation)
}

func TestClaimToFHIR_ReferenceModes(t *testing.T) {
	f := newClaimFixture()
	conv := newTestRegistry(nil).Claim

	tests := []struct {
		mode     ReferenceType
		facility string
		patient  string
		enterer  string
	}{
		{ReferenceUUID, "Location/" + f.hf.UUID, "Patient/" + f.insuree.UUID, "Practitioner/" + f.admin.UUID},
		{ReferenceDBID, "Location/10", "Patient/20", "Practitioner/30"},
		{ReferenceCode, "Location/HF01", "Patient/070707070", "Practitioner/CA01"},
	}
	var totals []float64
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			fc, err := conv.ToFHIR(f.claim, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.facility, fc.Facility.Reference)
			assert.Equal(t, tt.patient, fc.Patient.Reference)
			assert.Equal(t, tt.enterer, fc.Enterer.Reference)
			assert.Equal(t, "2023-03-10T00:00:00", fc.Created)
			assert.Len(t, fc.Diagnosis, 1)
			totals = append(totals, *fc.Total.Value)
		})
	}
	assert.Equal(t, []float64{420, 420, 420}, totals)
}

func TestClaimToFHIR_Lines(t *testing.T) {
	f := newClaimFixture()
	fc, err := newTestRegistry(nil).Claim.ToFHIR(f.claim, ReferenceCode)
	require.NoError(t, err)

	require.Len(t, fc.Item, 2)
	item := fc.Item[0]
	assert.Equal(t, "item", item.Category.Text)
	assert.Equal(t, "0001", item.ProductOrService.Text)
	require.Len(t, item.Extension, 1)
	assert.Equal(t, "Medication", item.Extension[0].URL)
	assert.Equal(t, "Medication/0001", item.Extension[0].ValueReference.Reference)
	require.Len(t, item.InformationSequence, 1)

	seq := item.InformationSequence[0]
	info := fc.SupportingInfo[seq-1]
	assert.Equal(t, InfoItemExplanation, info.Category.Text)
	assert.Equal(t, "twice a day", info.ValueString)

	assert.Equal(t, "service", fc.Item[1].Category.Text)
	assert.Equal(t, "ActivityDefinition/A1", fc.Item[1].Extension[0].ValueReference.Reference)
	assert.Equal(t, "ICD_0", fc.Diagnosis[0].Type[0].Coding[0].Code)
}

func TestClaimItem_UnmappedCategory(t *testing.T) {
	fc := &fhir.Claim{}
	newTestRegistry(nil).Claim.item(fc, "bundle", "B1", 1, 5, "", "Medication", nil)

	require.Len(t, fc.Item, 1)
	require.NotNil(t, fc.Item[0].Category)
	assert.Equal(t, "bundle", fc.Item[0].Category.Text)
	assert.Empty(t, fc.Item[0].Category.Coding)
}

func TestClaimToIMIS_AggregatesErrors(t *testing.T) {
	_, err := newTestRegistry(fakeLookup{}).Claim.ToIMIS(context.Background(), &fhir.Claim{Status: "active", Use: "claim"}, 1)

	var rpe *RequestProcessError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{
		"Missing the date of creation",
		"Missing the facility reference",
		"Missing the claim code",
		"Missing the patient reference",
		"Missing the billable start date",
		"Missing the main diagnosis for claim",
		"Missing the value for `total` attribute",
		"Missing the enterer reference",
	}, rpe.Messages)
}

func TestClaimToIMIS_UnknownDiagnosis(t *testing.T) {
	f := newClaimFixture()
	reg := newTestRegistry(nil)
	fc, err := reg.Claim.ToFHIR(f.claim, ReferenceUUID)
	require.NoError(t, err)

	lookup := fakeLookup{}.add(f.hf, f.insuree, f.admin)
	_, err = newTestRegistry(lookup).Claim.ToIMIS(context.Background(), fc, 1)
	var rpe *RequestProcessError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{"Unknown diagnosis code " + f.icd.UUID}, rpe.Messages)
}

func TestClaimRoundTrip(t *testing.T) {
	f := newClaimFixture()
	reg := newTestRegistry(f.lookup())

	fc, err := reg.Claim.ToFHIR(f.claim, ReferenceUUID)
	require.NoError(t, err)

	cl, err := reg.Claim.ToIMIS(context.Background(), fc, 7)
	require.NoError(t, err)

	assert.Equal(t, "CLM-1", cl.Code)
	assert.Equal(t, f.claim.UUID, cl.UUID)
	assert.Equal(t, 7, cl.AuditUserID)
	assert.Same(t, f.hf, cl.HealthFacility)
	assert.Same(t, f.insuree, cl.Insuree)
	assert.Same(t, f.admin, cl.Admin)
	assert.Same(t, f.icd, cl.ICD)
	assert.Equal(t, 420.0, *cl.Claimed)
	assert.Equal(t, "O", cl.VisitType)
	assert.Equal(t, "first visit", cl.Explanation)
	assert.True(t, cl.DateFrom.Equal(*f.claim.DateFrom))

	require.Len(t, cl.SubmitItems, 1)
	assert.Equal(t, "0001", cl.SubmitItems[0].Code)
	assert.Equal(t, 2.0, *cl.SubmitItems[0].Quantity)
	require.Len(t, cl.SubmitServices, 1)
	assert.Equal(t, "A1", cl.SubmitServices[0].Code)
}

func TestClaimToIMIS_Attachments(t *testing.T) {
	f := newClaimFixture()
	f.claim.Attachments = []*imis.ClaimAttachment{{Title: "scan", Filename: "scan.png", Mime: "image/png", Document: "aGVsbG8="}}
	reg := newTestRegistry(f.lookup())

	fc, err := reg.Claim.ToFHIR(f.claim, ReferenceUUID)
	require.NoError(t, err)
	last := fc.SupportingInfo[len(fc.SupportingInfo)-1]
	require.NotNil(t, last.ValueAttachment)
	assert.Equal(t, AttachmentHash("aGVsbG8="), last.ValueAttachment.Hash)

	cl, err := reg.Claim.ToIMIS(context.Background(), fc, 1)
	require.NoError(t, err)
	require.Len(t, cl.Attachments, 1)
	assert.Equal(t, "scan.png", cl.Attachments[0].Filename)

	t.Run("mime not allowed", func(t *testing.T) {
		last.ValueAttachment.ContentType = "application/x-msdownload"
		fc.SupportingInfo[len(fc.SupportingInfo)-1] = last
		_, err := reg.Claim.ToIMIS(context.Background(), fc, 1)
		var ae *AttachmentError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "Mime type application/x-msdownload not allowed", ae.Message)
	})

	t.Run("hash mismatch", func(t *testing.T) {
		last.ValueAttachment.ContentType = "IMAGE/PNG"
		last.ValueAttachment.Hash = "deadbeef"
		fc.SupportingInfo[len(fc.SupportingInfo)-1] = last
		_, err := reg.Claim.ToIMIS(context.Background(), fc, 1)
		var ae *AttachmentError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "Hash for data file is incorrect", ae.Message)
	})
}
