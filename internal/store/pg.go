package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openimis/imis-fhir/internal/imis"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PG stores records in the imis_record table.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (r *PG) conn() queryable { return r.pool }

func (r *PG) Get(ctx context.Context, kind imis.Kind, field Field, value string) (imis.Record, error) {
	var arg interface{} = value
	column := "uuid"
	switch field {
	case FieldUUID:
		value = strings.ToLower(value)
		arg = value
	case FieldID:
		id, err := strconv.Atoi(value)
		if err != nil {
			return nil, ErrNotFound
		}
		column, arg = "id", id
	case FieldCode:
		column = "code"
	default:
		return nil, fmt.Errorf("unknown lookup field %q", field)
	}

	var payload []byte
	err := r.conn().QueryRow(ctx,
		`SELECT payload FROM imis_record
		 WHERE kind = $1 AND `+column+` = $2 AND validity_to IS NULL
		 ORDER BY date_updated DESC LIMIT 1`, string(kind), arg).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", kind, field, err)
	}
	return decode(kind, payload)
}

// where renders the filter. Each kind filters _lastUpdated on its own column.
func (f Filter) where() (string, []interface{}) {
	var (
		groups []string
		args   []interface{}
		idx    = 1
	)
	for _, k := range f.Kinds {
		clause := fmt.Sprintf("kind = $%d", idx)
		args = append(args, string(k))
		idx++
		if f.LastUpdated != nil {
			c, a, next := f.LastUpdated.SQLClause(k.LastUpdatedField(), idx)
			clause += " AND " + c
			args = append(args, a...)
			idx = next
		}
		groups = append(groups, "("+clause+")")
	}
	if len(groups) == 0 {
		groups = []string{"FALSE"}
	}
	where := "(" + strings.Join(groups, " OR ") + ")"
	if !f.IncludeInactive {
		where += " AND validity_to IS NULL"
	}
	return where, args
}

func (r *PG) List(ctx context.Context, f Filter, limit, offset int) ([]imis.Record, int, error) {
	where, args := f.where()

	var total int
	if err := r.conn().QueryRow(ctx, `SELECT COUNT(*) FROM imis_record WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	// kinds sort in the order the filter lists them
	order := "CASE kind"
	for i, k := range f.Kinds {
		order += fmt.Sprintf(" WHEN '%s' THEN %d", strings.ReplaceAll(string(k), "'", ""), i)
	}
	order += fmt.Sprintf(" ELSE %d END, id", len(f.Kinds))

	n := len(args)
	query := fmt.Sprintf(`SELECT kind, payload FROM imis_record WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, order, n+1, n+2)
	if limit <= 0 {
		limit = total
	}
	rows, err := r.conn().Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []imis.Record
	for rows.Next() {
		var (
			kind    string
			payload []byte
		)
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, 0, err
		}
		rec, err := decode(imis.Kind(kind), payload)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *PG) Save(ctx context.Context, rec imis.Record) error {
	meta := rec.Meta()
	if meta.UUID == "" {
		meta.UUID = uuid.NewString()
	}
	meta.UUID = strings.ToLower(meta.UUID)
	now := time.Now().UTC()
	if meta.DateUpdated.IsZero() {
		meta.DateUpdated = now
	}
	if meta.ValidityFrom.IsZero() {
		meta.ValidityFrom = meta.DateUpdated
	}
	if meta.ID == 0 {
		if err := r.conn().QueryRow(ctx, `SELECT nextval('imis_record_id_seq')`).Scan(&meta.ID); err != nil {
			return fmt.Errorf("allocate record id: %w", err)
		}
	}
	payload, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", rec.Kind(), err)
	}

	var code *string
	if c := codeOf(rec); c != "" {
		code = &c
	}
	_, err = r.conn().Exec(ctx, `
		INSERT INTO imis_record (kind, id, uuid, code, payload, validity_from, validity_to, date_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (kind, uuid) DO UPDATE SET
			id = EXCLUDED.id, code = EXCLUDED.code, payload = EXCLUDED.payload,
			validity_from = EXCLUDED.validity_from, validity_to = EXCLUDED.validity_to,
			date_updated = EXCLUDED.date_updated`,
		string(rec.Kind()), meta.ID, meta.UUID, code, payload,
		meta.ValidityFrom, meta.ValidityTo, meta.DateUpdated,
	)
	if err != nil {
		return fmt.Errorf("save %s record: %w", rec.Kind(), err)
	}
	return nil
}

func (r *PG) Delete(ctx context.Context, kind imis.Kind, id string) error {
	rec, err := r.Get(ctx, kind, FieldUUID, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.Meta().ValidityTo = &now
	rec.Meta().DateUpdated = now
	return r.Save(ctx, rec)
}
