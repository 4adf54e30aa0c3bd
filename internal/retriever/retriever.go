// Package retriever resolves path identifiers of any supported shape to
// stored records by trying a chain of lookup strategies.
package retriever

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/store"
)

// ErrNotFound is returned when no strategy of a chain found the record.
var ErrNotFound = errors.New("resource not found")

// Finder fetches one record by a lookup field.
type Finder interface {
	Get(ctx context.Context, kind imis.Kind, field store.Field, value string) (imis.Record, error)
}

// Retriever is one lookup strategy: the identifier shapes it accepts, the
// field it searches and the reference type a hit implies.
type Retriever struct {
	Field         store.Field
	ReferenceType converter.ReferenceType
	Valid         func(string) bool
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isDBID(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

var (
	UUID = Retriever{Field: store.FieldUUID, ReferenceType: converter.ReferenceUUID, Valid: isUUID}
	DBID = Retriever{Field: store.FieldID, ReferenceType: converter.ReferenceDBID, Valid: isDBID}
	Code = Retriever{Field: store.FieldCode, ReferenceType: converter.ReferenceCode, Valid: func(s string) bool { return s != "" }}
	// CHF accepts insuree numbers, at most 12 characters.
	CHF = Retriever{Field: store.FieldCode, ReferenceType: converter.ReferenceCode, Valid: func(s string) bool { return s != "" && len(s) <= 12 }}
)

// Chain is an ordered list of strategies.
type Chain []Retriever

// Retrieve tries every strategy accepting value, in order. A miss moves on
// to the next strategy, any other error aborts.
func (c Chain) Retrieve(ctx context.Context, f Finder, kind imis.Kind, value string) (imis.Record, converter.ReferenceType, error) {
	log := zerolog.Ctx(ctx)
	for _, r := range c {
		if !r.Valid(value) {
			continue
		}
		rec, err := f.Get(ctx, kind, r.Field, value)
		if errors.Is(err, store.ErrNotFound) {
			log.Debug().Str("kind", string(kind)).Str("field", string(r.Field)).Str("identifier", value).Msg("retriever miss")
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return rec, r.ReferenceType, nil
	}
	return nil, "", ErrNotFound
}

var (
	defaultChain = Chain{UUID, DBID, Code}
	uncodedChain = Chain{UUID, DBID}
)

// ChainFor returns the strategies used for kind.
func ChainFor(kind imis.Kind) Chain {
	switch kind {
	case imis.KindInsuree:
		return Chain{UUID, CHF}
	case imis.KindFamily, imis.KindPolicy, imis.KindFeedback, imis.KindSubscription:
		return uncodedChain
	}
	return defaultChain
}

// Lookup adapts a Finder to converter.Lookup using the per-kind chains.
type Lookup struct {
	Finder Finder
}

func (l Lookup) Find(ctx context.Context, kind imis.Kind, identifier string) (imis.Record, error) {
	rec, _, err := ChainFor(kind).Retrieve(ctx, l.Finder, kind, identifier)
	return rec, err
}

var _ converter.Lookup = Lookup{}
