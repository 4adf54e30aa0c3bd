package converter

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/mapping"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// base carries what every converter shares.
type base struct {
	s      *Settings
	t      *mapping.Tables
	lookup Lookup
}

func (b *base) ext(name string) string { return b.t.StructureDefinition(name) }

// identifier builds an Identifier typed with an openIMIS identifier code.
func (b *base) identifier(typeCode, value string) fhir.Identifier {
	return fhir.Identifier{
		Use: "usual",
		Type: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System: b.t.IdentifierSystem,
			Code:   typeCode,
		}}},
		Value: value,
	}
}

// identifiers returns the uuid, database id and (when present) business
// code identifiers of rec.
func (b *base) identifiers(rec imis.Record) []fhir.Identifier {
	meta := rec.Meta()
	var out []fhir.Identifier
	if meta.UUID != "" {
		out = append(out, b.identifier(b.t.Identifier.UUID, meta.UUID))
	}
	if meta.ID != 0 {
		out = append(out, b.identifier(b.t.Identifier.DBID, strconv.Itoa(meta.ID)))
	}
	if code, ok := imis.CodeOf(rec); ok && code != "" {
		out = append(out, b.identifier(b.t.Identifier.Code, code))
	}
	return out
}

// readIdentifiers copies the uuid and database id identifiers into meta.
func (b *base) readIdentifiers(meta *imis.Base, ids []fhir.Identifier) {
	if v := IdentifierByCode(ids, b.t.Identifier.UUID); v != "" {
		meta.UUID = v
	}
	if v := IdentifierByCode(ids, b.t.Identifier.DBID); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			meta.ID = id
		}
	}
}

// IdentifierByCode returns the value of the first identifier whose type has
// a coding with typeCode, or "".
func IdentifierByCode(ids []fhir.Identifier, typeCode string) string {
	for _, id := range ids {
		if id.Type == nil {
			continue
		}
		for _, c := range id.Type.Coding {
			if c.Code == typeCode {
				return id.Value
			}
		}
	}
	return ""
}

// pk sets the resource id according to mode. Kinds without a CODE
// attribute fall back to the uuid.
func pk(res fhir.Resource, rec imis.Record, mode ReferenceType) {
	key, err := ReferenceKey(rec, mode)
	if err != nil {
		key = rec.Meta().UUID
	}
	res.SetID(key)
}

func newMeta(rec imis.Record) *fhir.Meta {
	meta := rec.Meta()
	t := meta.DateUpdated
	if rec.Kind().LastUpdatedField() == "validity_from" || t.IsZero() {
		t = meta.ValidityFrom
	}
	if t.IsZero() {
		return nil
	}
	return &fhir.Meta{LastUpdated: fhir.FormatDateTime(t)}
}

// newRecordBase initialises the bookkeeping of a record built from FHIR.
func newRecordBase(auditUserID int) imis.Base {
	now := time.Now().UTC()
	return imis.Base{ValidityFrom: now, DateUpdated: now, AuditUserID: auditUserID}
}

// reference builds a reference or logs and returns nil when rec cannot be
// addressed in mode.
func (b *base) reference(rec imis.Record, resourceType string, mode ReferenceType, display string) *fhir.Reference {
	ref, err := BuildReference(rec, resourceType, mode, display)
	if err != nil {
		return nil
	}
	return ref
}

// resolve looks up the record a reference points to. Failures are logged
// at debug level and reported as nil so the caller can register a
// validation message.
func (b *base) resolve(ctx context.Context, ref *fhir.Reference, resourceType string, kind imis.Kind) imis.Record {
	if ref == nil || b.lookup == nil {
		return nil
	}
	key, err := ResolveReference(ref, resourceType, false)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("resource_type", resourceType).Msg("unresolvable reference")
		return nil
	}
	rec, err := b.lookup.Find(ctx, kind, key)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("reference", ref.Reference).Msg("referenced record not found")
		return nil
	}
	return rec
}

func (b *base) money(v float64) *fhir.Money {
	return &fhir.Money{Value: fhir.Decimal(v), Currency: b.s.Currency}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return fhir.FormatDate(*t)
}

func formatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return fhir.FormatDateTime(*t)
}

// parseDate returns nil for empty or unparsable values.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := fhir.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func period(from, to *time.Time) *fhir.Period {
	if from == nil && to == nil {
		return nil
	}
	return &fhir.Period{Start: formatDate(from), End: formatDate(to)}
}

func concept(system, code, display string) *fhir.CodeableConcept {
	return &fhir.CodeableConcept{Coding: []fhir.Coding{{System: system, Code: code, Display: display}}}
}

func textConcept(text string) *fhir.CodeableConcept {
	return &fhir.CodeableConcept{Text: text}
}

// humanName renders the openIMIS last name / other names pair.
func humanName(last, other string) fhir.HumanName {
	n := fhir.HumanName{Use: "usual", Family: last}
	if other != "" {
		n.Given = []string{other}
	}
	return n
}

// readName picks the usual name (or the first one) and splits it into last
// name and other names.
func readName(names []fhir.HumanName) (last, other string, ok bool) {
	if len(names) == 0 {
		return "", "", false
	}
	chosen := names[0]
	for _, n := range names {
		if n.Use == "usual" {
			chosen = n
			break
		}
	}
	return chosen.Family, strings.Join(chosen.Given, " "), true
}

func telecom(phone, email string) []fhir.ContactPoint {
	var out []fhir.ContactPoint
	if phone != "" {
		out = append(out, fhir.ContactPoint{System: "phone", Value: phone})
	}
	if email != "" {
		out = append(out, fhir.ContactPoint{System: "email", Value: email})
	}
	return out
}

func readTelecom(points []fhir.ContactPoint) (phone, email string) {
	for _, p := range points {
		switch p.System {
		case "phone":
			if phone == "" {
				phone = p.Value
			}
		case "email":
			if email == "" {
				email = p.Value
			}
		}
	}
	return phone, email
}

// ancestor walks up n parents; nil when the chain is shorter.
func ancestor(l *imis.Location, n int) *imis.Location {
	for i := 0; i < n && l != nil; i++ {
		l = l.Parent
	}
	return l
}

// address builds a physical address anchored at a village. State and
// district come from the village's region and district ancestors, the
// municipality rides in an extension next to a reference to the village.
func (b *base) address(text, use string, village *imis.Location, mode ReferenceType) fhir.Address {
	a := fhir.Address{Use: use, Type: "physical", Text: text}
	if village == nil {
		return a
	}
	a.City = village.Name
	if d := ancestor(village, 2); d != nil {
		a.District = d.Name
	}
	if r := ancestor(village, 3); r != nil {
		a.State = r.Name
	}
	if m := village.Parent; m != nil {
		a.Extension = append(a.Extension, fhir.Extension{URL: b.ext("address-municipality"), ValueString: m.Name})
	}
	if ref := b.reference(village, "Location", mode, village.Code); ref != nil {
		a.Extension = append(a.Extension, fhir.Extension{URL: b.ext("address-location-reference"), ValueReference: ref})
	}
	return a
}

// addressLocation returns the village referenced by an address.
func (b *base) addressLocation(ctx context.Context, a fhir.Address) *imis.Location {
	ext := fhir.FindExtension(a.Extension, b.ext("address-location-reference"))
	if ext == nil {
		return nil
	}
	loc, _ := b.resolve(ctx, ext.ValueReference, "Location", imis.KindLocation).(*imis.Location)
	return loc
}

func extString(url, v string) fhir.Extension { return fhir.Extension{URL: url, ValueString: v} }

func extBool(url string, v bool) fhir.Extension {
	return fhir.Extension{URL: url, ValueBoolean: fhir.Bool(v)}
}

// conceptCode returns the first coding code of cc, or "".
func conceptCode(cc *fhir.CodeableConcept) string {
	if c := cc.FirstCoding(); c != nil {
		return c.Code
	}
	return ""
}

func intKey(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func parseIntKey(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
