package converter

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// CriteriaResourceType is the criteria key naming the watched resource.
const CriteriaResourceType = "resource_type"

// SubscriptionConverter maps rest-hook subscriptions.
type SubscriptionConverter struct {
	base *base
}

func (c *SubscriptionConverter) Converter() Converter {
	return &typed[*imis.Subscription, *fhir.Subscription]{
		name:         "subscription",
		resourceType: "Subscription",
		kind:         imis.KindSubscription,
		newResource:  func() *fhir.Subscription { return &fhir.Subscription{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func (c *SubscriptionConverter) ToFHIR(s *imis.Subscription, mode ReferenceType) (*fhir.Subscription, error) {
	b := c.base
	status, ok := b.t.SubscriptionStatus.Code(strconv.Itoa(s.Status))
	if !ok {
		return nil, &ConversionError{Relation: "status", Message: "Unmapped subscription status " + strconv.Itoa(s.Status)}
	}
	channel, ok := b.t.SubscriptionChannel.Code(s.Channel)
	if !ok {
		return nil, &ConversionError{Relation: "channel", Message: "Unmapped subscription channel " + s.Channel}
	}
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return nil, &ConversionError{Relation: "criteria", Message: err.Error()}
	}
	sub := &fhir.Subscription{
		DomainResource: fhir.DomainResource{ResourceType: "Subscription", Meta: newMeta(s)},
		Status:         status,
		End:            formatDateTime(s.Expiring),
		Criteria:       string(criteria),
		Error:          s.Error,
		Channel: fhir.SubscriptionChannel{
			Type:     channel,
			Endpoint: s.Endpoint,
			Payload:  "application/fhir+json",
			Header:   s.Headers,
		},
	}
	pk(sub, s, mode)
	return sub, nil
}

func (c *SubscriptionConverter) ToIMIS(_ context.Context, sub *fhir.Subscription, auditUserID int) (*imis.Subscription, error) {
	b := c.base
	var errs Errors
	s := &imis.Subscription{Base: newRecordBase(auditUserID), Endpoint: sub.Channel.Endpoint, Headers: sub.Channel.Header}
	if sub.ID != "" {
		s.UUID = sub.ID
	}

	if errs.Require(sub.Status != "", "Missing `status` attribute") {
		switch sub.Status {
		case "requested":
			s.Status = imis.SubscriptionStatusActive
		default:
			if k, ok := b.t.SubscriptionStatus.Key(sub.Status); ok {
				s.Status, _ = strconv.Atoi(k)
			} else {
				errs.Add("Unknown subscription status %s", sub.Status)
			}
		}
	}
	if errs.Require(sub.Channel.Type != "", "Missing `channel type` attribute") {
		if k, ok := b.t.SubscriptionChannel.Key(sub.Channel.Type); ok {
			s.Channel = k
		} else {
			errs.Add("Channel type not supported: %s", sub.Channel.Type)
		}
	}
	errs.Require(s.Endpoint != "", "Missing `channel endpoint` attribute")
	if errs.Require(sub.Criteria != "", "Missing `criteria` attribute") {
		criteria, err := ParseCriteria(sub.Criteria)
		if err != nil {
			errs.Add("Invalid `criteria` attribute: %v", err)
		}
		s.Criteria = criteria
	}
	if sub.End != "" {
		s.Expiring = parseDate(sub.End)
		errs.Require(s.Expiring != nil, "Invalid `end` attribute")
	}
	s.Error = sub.Error

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseCriteria accepts either a JSON object or the FHIR search form
// "Patient?gender=male". The resource type is stored lower-cased under
// CriteriaResourceType.
func ParseCriteria(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		out := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		if rt, ok := out[CriteriaResourceType].(string); ok {
			out[CriteriaResourceType] = strings.ToLower(rt)
		}
		return out, nil
	}
	rt, query, _ := strings.Cut(raw, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	out := map[string]any{CriteriaResourceType: strings.ToLower(rt)}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = values.Get(k)
	}
	return out, nil
}
