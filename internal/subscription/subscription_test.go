package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/store"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sub(uuid string, criteria map[string]any, expiring time.Time) *imis.Subscription {
	return &imis.Subscription{
		Base:     imis.Base{UUID: uuid, ValidityFrom: now.AddDate(0, -1, 0)},
		Status:   imis.SubscriptionStatusActive,
		Channel:  "rest_hook",
		Endpoint: "https://example.org/hook",
		Criteria: criteria,
		Expiring: &expiring,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sub("a", map[string]any{"resource_type": "patient"}, now)))
	assert.NoError(t, Validate(sub("a", map[string]any{"resource_type": "invoice"}, now)))

	err := Validate(sub("a", map[string]any{"resource_type": "claim"}, now))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Resource type not allowed: claim", ve.Message)

	assert.EqualError(t, Validate(sub("a", map[string]any{}, now)), "Resource type not allowed: ")
}

func TestMatch(t *testing.T) {
	later := now.Add(24 * time.Hour)
	all := sub("all", map[string]any{"resource_type": "patient"}, later)
	male := sub("male", map[string]any{"resource_type": "patient", "gender": "M"}, later)
	female := sub("female", map[string]any{"resource_type": "patient", "gender": "F"}, later)
	byFamily := sub("family", map[string]any{"resource_type": "patient", "family__uuid": "fam-1"}, later)
	expired := sub("expired", map[string]any{"resource_type": "patient"}, now.Add(-time.Hour))
	off := sub("off", map[string]any{"resource_type": "patient"}, later)
	off.Status = imis.SubscriptionStatusOff
	invoices := sub("invoices", map[string]any{"resource_type": "invoice"}, later)
	noEnd := sub("no-end", map[string]any{"resource_type": "patient"}, later)
	noEnd.Expiring = nil

	resource := map[string]any{
		"gender": "M",
		"family": map[string]any{"uuid": "fam-1"},
	}
	got := Match([]*imis.Subscription{all, male, female, byFamily, expired, off, invoices, noEnd}, "patient", resource, now)

	var ids []string
	for _, s := range got {
		ids = append(ids, s.UUID)
	}
	assert.Equal(t, []string{"all", "male", "family"}, ids)
}

func TestMatchLooseScalars(t *testing.T) {
	s := sub("s", map[string]any{"resource_type": "invoice", "status": "2"}, now.Add(time.Hour))
	assert.Len(t, Match([]*imis.Subscription{s}, "invoice", map[string]any{"status": float64(2)}, now), 1)
	assert.Empty(t, Match([]*imis.Subscription{s}, "invoice", map[string]any{"status": float64(3)}, now))
}

func TestFilterMatching(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.Save(ctx, sub("0b1c2d3e-0000-4000-8000-000000000001", map[string]any{"resource_type": "patient", "chf_id": "070707070"}, now.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, sub("0b1c2d3e-0000-4000-8000-000000000002", map[string]any{"resource_type": "patient", "chf_id": "999"}, now.Add(time.Hour))))

	f := &Filter{Store: repo, Now: func() time.Time { return now }}
	ins := &imis.Insuree{Base: imis.Base{UUID: "ins-1"}, CHFID: "070707070", Gender: "M"}

	got, err := f.Matching(ctx, ins)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0b1c2d3e-0000-4000-8000-000000000001", got[0].UUID)

	got, err = f.Matching(ctx, &imis.Claim{Code: "C1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
