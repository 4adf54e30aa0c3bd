// Package contained embeds related records as contained resources of a
// primary resource and rewrites the primary's references to point at them.
// The reverse direction turns contained resources of an inbound payload back
// into records before the primary is converted.
package contained

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/openimis/imis-fhir/internal/converter"
	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Spec declares one kind of related record embedded in a primary resource.
type Spec struct {
	// Name labels the relation in logs and errors.
	Name      string
	Extract   func(imis.Record) []imis.Record
	Converter converter.Converter
	// Mode is the reference type used inside the contained resource itself.
	Mode converter.ReferenceType
	// Fields are dotted JSON paths in the primary resource holding
	// references to records of this relation. Arrays are traversed.
	Fields []string
	// Reload marks extracted records as stored snapshots. The composer
	// loads the full record by uuid before converting it.
	Reload bool
}

// Tagged is a contained resource and the record it was produced from.
type Tagged struct {
	Resource fhir.Resource
	Record   imis.Record
}

// Composer converts the related records of a primary record.
type Composer struct {
	Specs []Spec
	// Qualified emits contained ids as "<Type>/<id>".
	Qualified bool
	// Lookup reloads the records of Reload specs. Without it snapshots are
	// converted as they are.
	Lookup converter.Lookup
}

// Convert produces one resource per extracted record. Each resource id is
// the UUID of the record it came from, whatever Mode is.
func (c *Composer) Convert(ctx context.Context, rec imis.Record) ([]Tagged, error) {
	var out []Tagged
	seen := map[string]bool{}
	for _, s := range c.Specs {
		for _, r := range s.Extract(rec) {
			if r == nil {
				continue
			}
			key := s.Converter.ResourceType() + "/" + r.Meta().UUID
			if seen[key] {
				continue
			}
			seen[key] = true
			if s.Reload && c.Lookup != nil {
				full, err := c.Lookup.Find(ctx, r.Kind(), r.Meta().UUID)
				if err != nil {
					return nil, errors.Wrapf(err, "contained %s %s", s.Name, r.Meta().UUID)
				}
				r = full
			}
			res, err := s.Converter.ToFHIR(r, mode(s.Mode))
			if err != nil {
				return nil, errors.Wrapf(err, "contained %s", s.Name)
			}
			res.SetID(r.Meta().UUID)
			out = append(out, Tagged{Resource: res, Record: r})
		}
	}
	return out, nil
}

// LocalID is the id a contained resource carries inside its container.
func LocalID(resourceType, id string, qualified bool) string {
	if qualified {
		return fhir.FormatReference(resourceType, id)
	}
	return id
}

// ToDictList marshals resources into generic JSON objects, qualifying their
// ids when asked.
func ToDictList(resources []Tagged, qualified bool) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(resources))
	for _, t := range resources {
		m, err := toMap(t.Resource)
		if err != nil {
			return nil, err
		}
		m["id"] = LocalID(t.Resource.GetResourceType(), t.Resource.GetID(), qualified)
		out = append(out, m)
	}
	return out, nil
}

// Compose converts primary with mode, embeds the related resources and
// rewrites the declared reference fields to local references. Every
// identifier shape of a contained record (uuid, database id, code) is
// recognised so the rewrite works whatever mode the primary used.
func (c *Composer) Compose(ctx context.Context, primary converter.Converter, rec imis.Record, mode converter.ReferenceType) (map[string]any, error) {
	res, err := primary.ToFHIR(rec, mode)
	if err != nil {
		return nil, err
	}
	doc, err := toMap(res)
	if err != nil {
		return nil, err
	}
	tagged, err := c.Convert(ctx, rec)
	if err != nil {
		return nil, err
	}
	if len(tagged) == 0 {
		return doc, nil
	}
	list, err := ToDictList(tagged, c.Qualified)
	if err != nil {
		return nil, err
	}
	items := make([]any, len(list))
	for i, m := range list {
		items[i] = m
	}
	doc["contained"] = items

	ids := map[string]string{}
	for _, t := range tagged {
		rt := t.Resource.GetResourceType()
		local := LocalID(rt, t.Resource.GetID(), c.Qualified)
		for _, m := range []converter.ReferenceType{converter.ReferenceUUID, converter.ReferenceDBID, converter.ReferenceCode} {
			if key, err := converter.ReferenceKey(t.Record, m); err == nil {
				ids[fhir.FormatReference(rt, key)] = local
			}
		}
	}
	var fields []string
	for _, s := range c.Specs {
		fields = append(fields, s.Fields...)
	}
	Rewrite(doc, fields, ids)
	return doc, nil
}

// Rewrite replaces references found under fields with "#<local id>" when
// ids knows them. It returns the number of rewritten references.
func Rewrite(doc map[string]any, fields []string, ids map[string]string) int {
	n := 0
	for _, f := range fields {
		walk(doc, strings.Split(f, "."), func(ref map[string]any) {
			s, _ := ref["reference"].(string)
			if local, ok := ids[s]; ok {
				ref["reference"] = fhir.LocalReference(local)
				n++
			}
		})
	}
	return n
}

// Delocalize turns "#<local id>" references back into "<Type>/<id>" using
// the contained resources of doc. Unknown local references are left alone.
func Delocalize(doc map[string]any, fields []string) int {
	items, _ := doc["contained"].([]any)
	targets := map[string]string{}
	for _, it := range items {
		m, _ := it.(map[string]any)
		id, _ := m["id"].(string)
		rt, _ := m["resourceType"].(string)
		if id == "" || rt == "" {
			continue
		}
		if _, bare, err := fhir.ParseReference(id); err == nil {
			targets[fhir.LocalReference(id)] = fhir.FormatReference(rt, bare)
		} else {
			targets[fhir.LocalReference(id)] = fhir.FormatReference(rt, id)
		}
	}
	n := 0
	for _, f := range fields {
		walk(doc, strings.Split(f, "."), func(ref map[string]any) {
			s, _ := ref["reference"].(string)
			if t, ok := targets[s]; ok {
				ref["reference"] = t
				n++
			}
		})
	}
	return n
}

func walk(v any, path []string, fn func(map[string]any)) {
	switch x := v.(type) {
	case []any:
		for _, e := range x {
			walk(e, path, fn)
		}
	case map[string]any:
		if len(path) == 0 {
			if _, ok := x["reference"]; ok {
				fn(x)
			}
			return
		}
		if next, ok := x[path[0]]; ok {
			walk(next, path[1:], fn)
		}
	}
}

// Reverse turns contained resources of one type into records.
type Reverse struct {
	Converter converter.Converter
	Mode      converter.ReferenceType
}

// Convert processes every contained resource whose resourceType matches.
// Any failure fails the whole batch.
func (r Reverse) Convert(ctx context.Context, contained []json.RawMessage, auditUserID int) ([]imis.Record, error) {
	log := zerolog.Ctx(ctx)
	want := r.Converter.ResourceType()
	var out []imis.Record
	for _, raw := range contained {
		rt := fhir.PeekResourceType(raw)
		if rt != want {
			continue
		}
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, errors.Wrapf(err, "contained %s", rt)
		}
		id := head.ID
		if _, bare, err := fhir.ParseReference(id); err == nil {
			id = bare
		}
		if id == "" {
			log.Error().Str("resource_type", rt).Msg("contained resource without id")
			return nil, errors.Errorf("contained %s has no id", rt)
		}
		rec, err := r.Converter.ToIMIS(ctx, raw, auditUserID)
		if err != nil {
			log.Error().Err(err).Str("resource_type", rt).Str("id", id).Msg("contained resource conversion failed")
			return nil, errors.Wrapf(err, "contained %s/%s", rt, id)
		}
		if mode(r.Mode) == converter.ReferenceUUID {
			rec.Meta().UUID = id
		}
		out = append(out, rec)
	}
	return out, nil
}

func mode(m converter.ReferenceType) converter.ReferenceType {
	if m == "" {
		return converter.ReferenceUUID
	}
	return m
}

func toMap(res fhir.Resource) (map[string]any, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, errors.Wrap(err, "marshal resource")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal resource")
	}
	return m, nil
}
