package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openimis/imis-fhir/internal/imis"
)

// Memory is an in-process Repository. Records are stored encoded, so callers
// never share pointers with the store.
type Memory struct {
	mu     sync.RWMutex
	nextID int
	rows   []memRow
	now    func() time.Time
}

type memRow struct {
	kind    imis.Kind
	id      int
	uuid    string
	code    string
	payload []byte
	rec     imis.Record
}

func NewMemory() *Memory {
	return &Memory{now: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) Get(_ context.Context, kind imis.Kind, field Field, value string) (imis.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.kind != kind || !r.rec.Meta().Active() {
			continue
		}
		var hit bool
		switch field {
		case FieldUUID:
			hit = strings.EqualFold(r.uuid, value)
		case FieldID:
			hit = strconv.Itoa(r.id) == value
		case FieldCode:
			hit = r.code != "" && r.code == value
		}
		if hit {
			return decode(kind, r.payload)
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) List(_ context.Context, f Filter, limit, offset int) ([]imis.Record, int, error) {
	m.mu.RLock()
	var hits []memRow
	for _, r := range m.rows {
		if kindIndex(f.Kinds, r.kind) == len(f.Kinds) {
			continue
		}
		meta := r.rec.Meta()
		if !f.IncludeInactive && !meta.Active() {
			continue
		}
		if f.LastUpdated != nil {
			t := meta.ValidityFrom
			if r.kind.LastUpdatedField() == "date_updated" {
				t = meta.DateUpdated
			}
			if !f.LastUpdated.Match(t) {
				continue
			}
		}
		hits = append(hits, r)
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		ki, kj := kindIndex(f.Kinds, hits[i].kind), kindIndex(f.Kinds, hits[j].kind)
		if ki != kj {
			return ki < kj
		}
		return hits[i].id < hits[j].id
	})

	total := len(hits)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]imis.Record, 0, end-offset)
	for _, r := range hits[offset:end] {
		rec, err := decode(r.kind, r.payload)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func (m *Memory) Save(_ context.Context, rec imis.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta := rec.Meta()
	if meta.UUID == "" {
		meta.UUID = uuid.NewString()
	}
	if meta.ID == 0 {
		m.nextID++
		meta.ID = m.nextID
	} else if meta.ID > m.nextID {
		m.nextID = meta.ID
	}
	if meta.DateUpdated.IsZero() {
		meta.DateUpdated = m.now()
	}
	if meta.ValidityFrom.IsZero() {
		meta.ValidityFrom = meta.DateUpdated
	}
	payload, err := encode(rec)
	if err != nil {
		return err
	}
	stored, err := decode(rec.Kind(), payload)
	if err != nil {
		return err
	}
	row := memRow{kind: rec.Kind(), id: meta.ID, uuid: meta.UUID, code: codeOf(rec), payload: payload, rec: stored}
	for i, r := range m.rows {
		if r.kind == row.kind && strings.EqualFold(r.uuid, row.uuid) {
			m.rows[i] = row
			return nil
		}
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *Memory) Delete(ctx context.Context, kind imis.Kind, id string) error {
	rec, err := m.Get(ctx, kind, FieldUUID, id)
	if err != nil {
		return err
	}
	now := m.now()
	rec.Meta().ValidityTo = &now
	rec.Meta().DateUpdated = now
	return m.Save(ctx, rec)
}
