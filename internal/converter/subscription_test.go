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

func TestSubscriptionRoundTrip(t *testing.T) {
	s := &imis.Subscription{
		Base:     recBase(1, "0f0e0d0c-0000-4000-8000-000000000001"),
		Status:   imis.SubscriptionStatusActive,
		Channel:  "rest_hook",
		Endpoint: "https://hooks.example.org/imis",
		Headers:  []string{"Authorization: Bearer x"},
		Criteria: map[string]any{"resource_type": "patient", "gender": "F"},
		Expiring: date(2030, 1, 1),
	}
	reg := newTestRegistry(nil)

	sub, err := reg.Subscription.ToFHIR(s, ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, s.UUID, sub.ID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "rest-hook", sub.Channel.Type)
	assert.JSONEq(t, `{"resource_type":"patient","gender":"F"}`, sub.Criteria)

	got, err := reg.Subscription.ToIMIS(context.Background(), sub, 1)
	require.NoError(t, err)
	assert.Equal(t, s.Criteria, got.Criteria)
	assert.Equal(t, "rest_hook", got.Channel)
	assert.Equal(t, s.Endpoint, got.Endpoint)
	assert.True(t, got.Expiring.Equal(*s.Expiring))
}

func TestSubscriptionToIMIS_Errors(t *testing.T) {
	sub := &fhir.Subscription{Status: "error", Channel: fhir.SubscriptionChannel{Type: "email"}}
	_, err := newTestRegistry(nil).Subscription.ToIMIS(context.Background(), sub, 1)

	var rpe *RequestProcessError
	require.True(t, errors.As(err, &rpe))
	assert.Equal(t, []string{
		"Unknown subscription status error",
		"Channel type not supported: email",
		"Missing `channel endpoint` attribute",
		"Missing `criteria` attribute",
	}, rpe.Messages)
}

func TestParseCriteria(t *testing.T) {
	got, err := ParseCriteria("Invoice?status=issued")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"resource_type": "invoice", "status": "issued"}, got)

	got, err = ParseCriteria(`{"resource_type": "Patient"}`)
	require.NoError(t, err)
	assert.Equal(t, "patient", got[CriteriaResourceType])

	_, err = ParseCriteria(`{"resource_type":`)
	assert.Error(t, err)
}

func TestCodeSystemFromTable(t *testing.T) {
	reg := newTestRegistry(nil)
	tables := DefaultSettings().Tables

	cs := reg.CodeSystem.FromTable(tables.ClaimVisitType)
	require.NotNil(t, cs)
	assert.Equal(t, "claim-visit-type", cs.ID)
	assert.Equal(t, "complete", cs.Content)
	assert.Equal(t, 3, cs.Count)
	assert.Equal(t, tables.ClaimVisitType.System, cs.URL)

	assert.Nil(t, reg.CodeSystem.FromTable(tables.Gender), "external systems are not published")
}

func TestCodeSystemFromDiagnoses(t *testing.T) {
	retired := recBase(2, "b")
	retired.ValidityTo = date(2022, 1, 1)
	cs := newTestRegistry(nil).CodeSystem.FromDiagnoses([]*imis.Diagnosis{
		{Base: recBase(1, "a"), Code: "A00", Name: "Cholera"},
		{Base: retired, Code: "A01", Name: "Typhoid"},
	})
	assert.Equal(t, DiagnosisSystem, cs.ID)
	require.Equal(t, 1, cs.Count)
	assert.Equal(t, "A00", cs.Concept[0].Code)
}
