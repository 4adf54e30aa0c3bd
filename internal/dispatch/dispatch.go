// Package dispatch routes requests for a FHIR resource type that several
// openIMIS record kinds are served through (Organization, Practitioner,
// PractitionerRole) to the converter eligible for the request.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/retriever"
	"github.com/openimis/imis-fhir/internal/store"
)

// ImplementationIdentifier addresses the insurance organisation running
// this openIMIS instance.
const ImplementationIdentifier = imis.InsuranceOrganizationCode

var (
	// ErrNoEligibleSerializer means no entry accepts the request. It is a
	// client error: the request names a type nothing serves.
	ErrNoEligibleSerializer = errors.New("failed to match serializer eligible for given request")
	// ErrAmbiguousIdentifier means an identifier matched records served by
	// more than one entry.
	ErrAmbiguousIdentifier = errors.New("ambiguous retrieve result, object found for multiple serializers")
)

// ConfigurationError reports overlapping eligibility predicates.
type ConfigurationError struct {
	ResourceType string
	Entries      []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ambiguous request for %s, more than one serializer is eligible: %s",
		e.ResourceType, strings.Join(e.Entries, ", "))
}

// Request is the part of an HTTP request eligibility depends on.
type Request struct {
	Method string
	// ResourceTypeParam is the resourceType query parameter.
	ResourceTypeParam string
	// BodyType is the type code declared by the request body.
	BodyType string
}

// Entry binds a converter to the requests it serves.
type Entry struct {
	Name      string
	Eligible  func(Request) bool
	Converter converter.Converter
	// Check, when set, vets an inbound record before it is saved.
	Check func(imis.Record) error
}

func (e Entry) check(rec imis.Record) error {
	if e.Check == nil {
		return nil
	}
	return e.Check(rec)
}

// Always is the predicate of entries that serve every request.
func Always(Request) bool { return true }

// TypePredicate accepts GET when the resourceType parameter is code or
// absent, POST when the body declares code, PUT when the body declares code
// or nothing. Other methods are always accepted.
func TypePredicate(code string) func(Request) bool {
	return func(r Request) bool {
		switch r.Method {
		case http.MethodGet:
			return r.ResourceTypeParam == "" || r.ResourceTypeParam == code
		case http.MethodPost:
			return r.BodyType == code
		case http.MethodPut:
			return r.BodyType == "" || r.BodyType == code
		}
		return true
	}
}

// Hit is a record and the converter that shapes it.
type Hit struct {
	Record    imis.Record
	Converter converter.Converter
	// ReferenceType is the identifier shape that found the record.
	ReferenceType converter.ReferenceType
}

// Dispatcher serves one FHIR resource type.
type Dispatcher struct {
	ResourceType string
	Entries      []Entry
	Store        store.Repository
	Logger       zerolog.Logger
}

// New builds a dispatcher. Entries are evaluated in order.
func New(resourceType string, repo store.Repository, logger zerolog.Logger, entries ...Entry) *Dispatcher {
	return &Dispatcher{ResourceType: resourceType, Entries: entries, Store: repo, Logger: logger}
}

// Eligible returns the entries accepting req.
func (d *Dispatcher) Eligible(req Request) []Entry {
	var out []Entry
	for _, e := range d.Entries {
		if e.Eligible == nil || e.Eligible(req) {
			out = append(out, e)
		}
	}
	return out
}

// Single returns the only entry accepting req.
func (d *Dispatcher) Single(req Request) (Entry, error) {
	eligible := d.Eligible(req)
	switch len(eligible) {
	case 0:
		return Entry{}, ErrNoEligibleSerializer
	case 1:
		return eligible[0], nil
	}
	names := make([]string, len(eligible))
	for i, e := range eligible {
		names[i] = e.Name
	}
	err := &ConfigurationError{ResourceType: d.ResourceType, Entries: names}
	d.Logger.Error().Err(err).Str("method", req.Method).Msg("serializer configuration violated")
	return Entry{}, err
}

// List merges the records of every eligible entry, pages through the union
// and hands each record back to the entry serving its kind. f supplies the
// shared filters; its Kinds are replaced.
func (d *Dispatcher) List(ctx context.Context, req Request, f store.Filter, limit, offset int) ([]Hit, int, error) {
	eligible := d.Eligible(req)
	if len(eligible) == 0 {
		return nil, 0, ErrNoEligibleSerializer
	}
	byKind := make(map[imis.Kind]Entry, len(eligible))
	f.Kinds = nil
	for _, e := range eligible {
		k := e.Converter.Kind()
		if _, dup := byKind[k]; dup {
			continue
		}
		byKind[k] = e
		f.Kinds = append(f.Kinds, k)
	}
	recs, total, err := d.Store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", d.ResourceType, err)
	}
	hits := make([]Hit, 0, len(recs))
	for _, rec := range recs {
		e, ok := byKind[rec.Kind()]
		if !ok {
			d.Logger.Error().Str("kind", string(rec.Kind())).Str("resource_type", d.ResourceType).
				Msg("record could not be matched with any eligible serializer")
			continue
		}
		hits = append(hits, Hit{Record: rec, Converter: e.Converter})
	}
	return hits, total, nil
}

// Retrieve looks identifier up in every eligible entry. Exactly one entry
// may find it.
func (d *Dispatcher) Retrieve(ctx context.Context, req Request, identifier string) (Hit, error) {
	eligible := d.Eligible(req)
	if len(eligible) == 0 {
		return Hit{}, ErrNoEligibleSerializer
	}
	if identifier == ImplementationIdentifier {
		return d.implementation(ctx, eligible)
	}
	var found []Hit
	for _, e := range eligible {
		kind := e.Converter.Kind()
		rec, rt, err := retriever.ChainFor(kind).Retrieve(ctx, d.Store, kind, identifier)
		if errors.Is(err, retriever.ErrNotFound) {
			continue
		}
		if err != nil {
			return Hit{}, err
		}
		found = append(found, Hit{Record: rec, Converter: e.Converter, ReferenceType: rt})
	}
	switch len(found) {
	case 0:
		return Hit{}, retriever.ErrNotFound
	case 1:
		return found[0], nil
	}
	return Hit{}, ErrAmbiguousIdentifier
}

func (d *Dispatcher) implementation(ctx context.Context, eligible []Entry) (Hit, error) {
	for _, e := range eligible {
		if e.Converter.Kind() != imis.KindInsuranceOrganization {
			continue
		}
		recs, _, err := d.Store.List(ctx, store.Filter{Kinds: []imis.Kind{imis.KindInsuranceOrganization}}, 1, 0)
		if err != nil {
			return Hit{}, err
		}
		if len(recs) == 0 {
			return Hit{}, retriever.ErrNotFound
		}
		return Hit{Record: recs[0], Converter: e.Converter, ReferenceType: converter.ReferenceCode}, nil
	}
	return Hit{}, retriever.ErrNotFound
}

// Create converts raw with the single eligible entry and saves the result.
func (d *Dispatcher) Create(ctx context.Context, req Request, raw []byte, auditUserID int) (Hit, error) {
	e, err := d.Single(req)
	if err != nil {
		return Hit{}, err
	}
	rec, err := e.Converter.ToIMIS(ctx, raw, auditUserID)
	if err != nil {
		return Hit{}, err
	}
	if err := e.check(rec); err != nil {
		return Hit{}, err
	}
	if err := d.Store.Save(ctx, rec); err != nil {
		return Hit{}, fmt.Errorf("save %s: %w", e.Name, err)
	}
	return Hit{Record: rec, Converter: e.Converter}, nil
}

// Update replaces the record addressed by identifier. Several entries may
// be eligible, as a PUT body need not declare a type, but only one of them
// may hold the record. The stored record keeps its uuid and database id.
func (d *Dispatcher) Update(ctx context.Context, req Request, identifier string, raw []byte, auditUserID int) (Hit, error) {
	current, err := d.Retrieve(ctx, req, identifier)
	if err != nil {
		return Hit{}, err
	}
	rec, err := current.Converter.ToIMIS(ctx, raw, auditUserID)
	if err != nil {
		return Hit{}, err
	}
	if e, ok := d.entryFor(current.Converter); ok {
		if err := e.check(rec); err != nil {
			return Hit{}, err
		}
	}
	meta, cur := rec.Meta(), current.Record.Meta()
	meta.UUID = cur.UUID
	meta.ID = cur.ID
	if err := d.Store.Save(ctx, rec); err != nil {
		return Hit{}, fmt.Errorf("save %s: %w", current.Converter.Name(), err)
	}
	return Hit{Record: rec, Converter: current.Converter, ReferenceType: current.ReferenceType}, nil
}

func (d *Dispatcher) entryFor(c converter.Converter) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Converter.Name() == c.Name() {
			return e, true
		}
	}
	return Entry{}, false
}

// Delete closes the validity of the record addressed by identifier.
func (d *Dispatcher) Delete(ctx context.Context, req Request, identifier string) error {
	hit, err := d.Retrieve(ctx, req, identifier)
	if err != nil {
		return err
	}
	return d.Store.Delete(ctx, hit.Record.Kind(), hit.Record.Meta().UUID)
}
