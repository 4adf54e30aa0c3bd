// Package mapping holds the static code tables that translate openIMIS
// enumerations into FHIR codings and back. Tables are built once by New and
// never mutated afterwards, so they are safe to share between requests.
package mapping

import (
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// DefaultSystemBaseURL is the implementation guide prefix used for every
// openIMIS owned StructureDefinition and CodeSystem URL.
const DefaultSystemBaseURL = "https://openimis.github.io/openimis_fhir_r4_ig/"

// Entry is one row of a table: the openIMIS value and its FHIR coding.
type Entry struct {
	Key    string
	Coding fhir.Coding
}

// Table is an ordered, read-only code table.
type Table struct {
	// ID is the CodeSystem id when the table is owned by openIMIS.
	ID          string
	Title       string
	Description string
	System      string
	// Owned tables are published through the CodeSystem endpoint.
	Owned bool

	entries []Entry
	byKey   map[string]fhir.Coding
	byCode  map[string]string
}

func newTable(id, system string, owned bool, rows ...[3]string) *Table {
	t := &Table{
		ID:     id,
		System: system,
		Owned:  owned,
		byKey:  make(map[string]fhir.Coding, len(rows)),
		byCode: make(map[string]string, len(rows)),
	}
	for _, r := range rows {
		c := fhir.Coding{System: system, Code: r[1], Display: r[2]}
		t.entries = append(t.entries, Entry{Key: r[0], Coding: c})
		t.byKey[r[0]] = c
		// first key wins for many-to-one tables
		if _, ok := t.byCode[r[1]]; !ok {
			t.byCode[r[1]] = r[0]
		}
	}
	return t
}

func (t *Table) describe(title, description string) *Table {
	t.Title = title
	t.Description = description
	return t
}

// Coding returns the FHIR coding for an openIMIS value.
func (t *Table) Coding(key string) (fhir.Coding, bool) {
	c, ok := t.byKey[key]
	return c, ok
}

// Concept wraps Coding in a CodeableConcept; nil when the key is unmapped.
func (t *Table) Concept(key string) *fhir.CodeableConcept {
	c, ok := t.byKey[key]
	if !ok {
		return nil
	}
	return &fhir.CodeableConcept{Coding: []fhir.Coding{c}}
}

// Code returns only the FHIR code for key.
func (t *Table) Code(key string) (string, bool) {
	c, ok := t.byKey[key]
	return c.Code, ok
}

// Key is the reverse lookup: FHIR code to openIMIS value.
func (t *Table) Key(code string) (string, bool) {
	k, ok := t.byCode[code]
	return k, ok
}

// KeyFromConcept scans the codings of cc for one in this table's system and
// maps it back. Codings without a system are accepted as well.
func (t *Table) KeyFromConcept(cc *fhir.CodeableConcept) (string, bool) {
	if cc == nil {
		return "", false
	}
	for _, c := range cc.Coding {
		if c.System != "" && c.System != t.System {
			continue
		}
		if k, ok := t.byCode[c.Code]; ok {
			return k, true
		}
	}
	return "", false
}

// Entries returns the rows in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.entries) }
