// Package subscription validates subscriptions and selects the ones a
// changed record should be announced to. Delivery happens elsewhere.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/store"
)

// AllowedResourceTypes are the criteria resource types a subscription may
// watch.
var AllowedResourceTypes = []string{"patient", "invoice"}

var kindResourceTypes = map[imis.Kind]string{
	imis.KindInsuree: "patient",
	imis.KindInvoice: "invoice",
}

// ResourceTypeOf returns the criteria resource type of kind, or "" when
// subscriptions cannot watch it.
func ResourceTypeOf(kind imis.Kind) string {
	return kindResourceTypes[kind]
}

// ValidationError rejects a subscription.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the criteria resource type of sub.
func Validate(sub *imis.Subscription) error {
	rt, _ := sub.Criteria[converter.CriteriaResourceType].(string)
	for _, a := range AllowedResourceTypes {
		if rt == a {
			return nil
		}
	}
	return &ValidationError{Message: "Resource type not allowed: " + rt}
}

// Match returns the active, unexpired subscriptions in subs watching
// resourceType whose remaining criteria all equal the values of resource.
// Criteria keys may walk nested objects with "__", e.g. "family__uuid".
func Match(subs []*imis.Subscription, resourceType string, resource map[string]any, now time.Time) []*imis.Subscription {
	var out []*imis.Subscription
	for _, s := range subs {
		if s.Status != imis.SubscriptionStatusActive || !s.Active() {
			continue
		}
		if s.Expiring == nil || !s.Expiring.After(now) {
			continue
		}
		if rt, _ := s.Criteria[converter.CriteriaResourceType].(string); rt != resourceType {
			continue
		}
		if matches(s.Criteria, resource) {
			out = append(out, s)
		}
	}
	return out
}

func matches(criteria, resource map[string]any) bool {
	for k, want := range criteria {
		if k == converter.CriteriaResourceType {
			continue
		}
		got, ok := lookup(resource, strings.Split(k, "__"))
		if !ok || !equal(got, want) {
			return false
		}
	}
	return true
}

func lookup(v any, path []string) (any, bool) {
	for _, p := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[p]; !ok {
			return nil, false
		}
	}
	return v, true
}

// equal compares JSON scalars loosely so that "2" matches 2.
func equal(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Filter selects the subscriptions of a store.
type Filter struct {
	Store store.Repository
	Now   func() time.Time
}

// Matching returns the subscriptions to notify about rec. Records of kinds
// no subscription can watch match nothing.
func (f *Filter) Matching(ctx context.Context, rec imis.Record) ([]*imis.Subscription, error) {
	rt := ResourceTypeOf(rec.Kind())
	if rt == "" {
		return nil, nil
	}
	recs, _, err := f.Store.List(ctx, store.Filter{Kinds: []imis.Kind{imis.KindSubscription}}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	subs := make([]*imis.Subscription, 0, len(recs))
	for _, r := range recs {
		if s, ok := r.(*imis.Subscription); ok {
			subs = append(subs, s)
		}
	}
	raw, err := json.Marshal(imis.Flatten(rec))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Kind(), err)
	}
	var resource map[string]any
	if err := json.Unmarshal(raw, &resource); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rec.Kind(), err)
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return Match(subs, rt, resource, now()), nil
}
