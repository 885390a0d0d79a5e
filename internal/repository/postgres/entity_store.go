package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"conferencecentral/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Serialization failure and deadlock.
var conflictCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
}

func mapError(err error) error {
	var perr *pq.Error
	if errors.As(err, &perr) && conflictCodes[perr.Code] {
		return fmt.Errorf("%w: %s", domain.ErrTxConflict, perr.Message)
	}
	return err
}

type entityStore struct {
	DB          *sql.DB
	maxAttempts int
}

// NewEntityStore returns an EntityStore over the entities table. Entity
// bodies live in a JSONB column; transactions run at REPEATABLE READ and
// commit with version checks.
func NewEntityStore(db *sql.DB, maxAttempts int) domain.EntityStore {
	return &entityStore{DB: db, maxAttempts: maxAttempts}
}

const selectEntity = `SELECT kind, id, parent_kind, parent_id, version, data FROM entities`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.Record, error) {
	var rec domain.Record
	var data []byte
	if err := row.Scan(&rec.Key.Kind, &rec.Key.ID, &rec.Key.ParentKind, &rec.Key.ParentID, &rec.Version, &data); err != nil {
		return domain.Record{}, err
	}
	rec.Data = data
	return rec, nil
}

func (s *entityStore) Get(ctx context.Context, key domain.Key, dst any) error {
	query := `SELECT data FROM entities WHERE kind = $1 AND id = $2 AND parent_kind = $3 AND parent_id = $4`
	var data []byte
	err := s.DB.QueryRowContext(ctx, query, key.Kind, key.ID, key.ParentKind, key.ParentID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

func (s *entityStore) GetMulti(ctx context.Context, keys []domain.Key) ([]domain.Record, error) {
	if len(keys) == 0 {
		return []domain.Record{}, nil
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ID)
	}
	rows, err := s.DB.QueryContext(ctx, selectEntity+` WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[domain.Key]domain.Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		found[rec.Key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Record, 0, len(keys))
	for _, k := range keys {
		if rec, ok := found[k]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *entityStore) Put(ctx context.Context, key domain.Key, src any) error {
	if key.Kind == "" || key.ID == "" {
		return domain.ErrInvalidKey
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	query := `
		INSERT INTO entities (kind, id, parent_kind, parent_id, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, id) DO UPDATE
		SET parent_kind = EXCLUDED.parent_kind, parent_id = EXCLUDED.parent_id, data = EXCLUDED.data,
			version = entities.version + 1, updated_at = NOW()
	`
	_, err = s.DB.ExecContext(ctx, query, key.Kind, key.ID, key.ParentKind, key.ParentID, data)
	return err
}

func (s *entityStore) Delete(ctx context.Context, key domain.Key) error {
	query := `DELETE FROM entities WHERE kind = $1 AND id = $2 AND parent_kind = $3 AND parent_id = $4`
	_, err := s.DB.ExecContext(ctx, query, key.Kind, key.ID, key.ParentKind, key.ParentID)
	return err
}

func (s *entityStore) AllocateID(_ context.Context, kind string, parent *domain.Key) (domain.Key, error) {
	if kind == "" {
		return domain.Key{}, fmt.Errorf("%w: kind is required", domain.ErrInvalidInput)
	}
	if parent != nil {
		return domain.NewChildKey(*parent, kind, uuid.NewString()), nil
	}
	return domain.NewKey(kind, uuid.NewString()), nil
}

// buildQuery narrows q to kind, ancestor and filters in SQL. Rows come back in
// insertion order; the exact comparison rules, ordering and limit are applied
// afterwards by Query.ApplyInProcess.
func buildQuery(q domain.Query) (string, []any) {
	var sb strings.Builder
	sb.WriteString(selectEntity)
	args := []any{q.Kind}
	sb.WriteString(` WHERE kind = $1`)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.Ancestor != nil {
		fmt.Fprintf(&sb, ` AND parent_kind = %s AND parent_id = %s`, next(q.Ancestor.Kind), next(q.Ancestor.ID))
	}
	for _, f := range q.Filters {
		prop := next(f.Property)
		numeric := false
		var value any
		switch v := f.Value.(type) {
		case int:
			numeric, value = true, int64(v)
		case int64:
			numeric, value = true, v
		case float64:
			numeric, value = true, v
		default:
			value = fmt.Sprint(v)
		}
		param := next(value)
		switch {
		case f.Repeated && numeric:
			fmt.Fprintf(&sb, ` AND EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof(data->%s) = 'array' THEN data->%s ELSE '[]'::jsonb END) AS el(v) WHERE (CASE WHEN jsonb_typeof(el.v) = 'number' THEN (el.v #>> '{}')::numeric END) %s %s)`,
				prop, prop, f.Op.Symbol(), param)
		case f.Repeated:
			fmt.Fprintf(&sb, ` AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(CASE WHEN jsonb_typeof(data->%s) = 'array' THEN data->%s ELSE '[]'::jsonb END) AS el(v) WHERE el.v %s %s)`,
				prop, prop, f.Op.Symbol(), param)
		case numeric:
			fmt.Fprintf(&sb, ` AND (CASE WHEN jsonb_typeof(data->%s) = 'number' THEN (data->>%s)::numeric END) %s %s`,
				prop, prop, f.Op.Symbol(), param)
		default:
			fmt.Fprintf(&sb, ` AND data->>%s %s %s`, prop, f.Op.Symbol(), param)
		}
	}
	sb.WriteString(` ORDER BY seq`)
	return sb.String(), args
}

func (s *entityStore) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildQuery(q)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.ApplyInProcess(recs)
}

func (s *entityStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return domain.RetryOnTxConflict(ctx, s.maxAttempts, func(ctx context.Context) error {
		sqlTx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		tx := &transaction{
			tx:     sqlTx,
			reads:  make(map[storeID]int64),
			writes: make(map[storeID]pendingWrite),
		}
		if err := fn(ctx, tx); err != nil {
			_ = sqlTx.Rollback()
			return err
		}
		if err := tx.flush(ctx); err != nil {
			_ = sqlTx.Rollback()
			return mapError(err)
		}
		return mapError(sqlTx.Commit())
	})
}

type storeID struct {
	kind string
	id   string
}

type pendingWrite struct {
	key  domain.Key
	data []byte
}

// transaction buffers writes and remembers the version of every entity it
// read (0 when absent). flush turns each write into a conditional statement
// on that version.
type transaction struct {
	tx     *sql.Tx
	reads  map[storeID]int64
	writes map[storeID]pendingWrite
	order  []storeID
}

func (t *transaction) load(ctx context.Context, key domain.Key) (domain.Record, bool, error) {
	id := storeID{kind: key.Kind, id: key.ID}
	rec, err := scanRecord(t.tx.QueryRowContext(ctx, selectEntity+` WHERE kind = $1 AND id = $2`, key.Kind, key.ID))
	if err != nil {
		if err == sql.ErrNoRows {
			if _, seen := t.reads[id]; !seen {
				t.reads[id] = 0
			}
			return domain.Record{}, false, nil
		}
		return domain.Record{}, false, mapError(err)
	}
	if _, seen := t.reads[id]; !seen {
		t.reads[id] = rec.Version
	}
	return rec, rec.Key == key, nil
}

func (t *transaction) Get(ctx context.Context, key domain.Key, dst any) error {
	id := storeID{kind: key.Kind, id: key.ID}
	if w, ok := t.writes[id]; ok && w.key == key {
		return json.Unmarshal(w.data, dst)
	}
	rec, ok, err := t.load(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(rec.Data, dst)
}

func (t *transaction) Put(ctx context.Context, key domain.Key, src any) error {
	if key.Kind == "" || key.ID == "" {
		return domain.ErrInvalidKey
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	id := storeID{kind: key.Kind, id: key.ID}
	if _, seen := t.reads[id]; !seen {
		if _, _, err := t.load(ctx, key); err != nil {
			return err
		}
	}
	if _, ok := t.writes[id]; !ok {
		t.order = append(t.order, id)
	}
	t.writes[id] = pendingWrite{key: key, data: data}
	return nil
}

func (t *transaction) flush(ctx context.Context) error {
	for _, id := range t.order {
		w := t.writes[id]
		version := t.reads[id]
		var (
			res sql.Result
			err error
		)
		if version == 0 {
			res, err = t.tx.ExecContext(ctx, `
				INSERT INTO entities (kind, id, parent_kind, parent_id, data)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (kind, id) DO NOTHING
			`, w.key.Kind, w.key.ID, w.key.ParentKind, w.key.ParentID, w.data)
		} else {
			res, err = t.tx.ExecContext(ctx, `
				UPDATE entities
				SET parent_kind = $3, parent_id = $4, data = $5, version = version + 1, updated_at = NOW()
				WHERE kind = $1 AND id = $2 AND version = $6
			`, w.key.Kind, w.key.ID, w.key.ParentKind, w.key.ParentID, w.data, version)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrTxConflict
		}
	}
	return nil
}
