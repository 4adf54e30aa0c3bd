// Package store persists openIMIS records. Records are kept as JSON
// documents keyed by kind, database id, uuid and business code.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// ErrNotFound is returned when no active record matches.
var ErrNotFound = errors.New("record not found")

// Field names the attribute a record is fetched by.
type Field string

const (
	FieldUUID Field = "uuid"
	FieldID   Field = "id"
	FieldCode Field = "code"
)

// Filter selects records for List. Records of several kinds are returned in
// the order Kinds lists them, then by database id.
type Filter struct {
	Kinds       []imis.Kind
	LastUpdated *fhir.DateFilter
	// IncludeInactive also returns versions with a validity_to.
	IncludeInactive bool
}

// Repository is the persistence port of the adapter.
type Repository interface {
	Get(ctx context.Context, kind imis.Kind, field Field, value string) (imis.Record, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]imis.Record, int, error)
	// Save inserts or replaces the record with the same kind and uuid. A
	// missing uuid or database id is assigned.
	Save(ctx context.Context, rec imis.Record) error
	// Delete closes the validity of the active record with the given uuid.
	Delete(ctx context.Context, kind imis.Kind, uuid string) error
}

func encode(rec imis.Record) ([]byte, error) {
	return json.Marshal(imis.Flatten(rec))
}

func decode(kind imis.Kind, payload []byte) (imis.Record, error) {
	rec := imis.New(kind)
	if rec == nil {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return rec, nil
}

func codeOf(rec imis.Record) string {
	code, _ := imis.CodeOf(rec)
	return code
}

func kindIndex(kinds []imis.Kind, k imis.Kind) int {
	for i, kk := range kinds {
		if kk == k {
			return i
		}
	}
	return len(kinds)
}

// ParseField maps a retriever field name to a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(s)); f {
	case FieldUUID, FieldID, FieldCode:
		return f, nil
	}
	return "", fmt.Errorf("unknown lookup field %q", s)
}
