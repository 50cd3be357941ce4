package fedstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/example/marketplace-service/internal/apub"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Таблицы коллекций.
var kindTables = map[apub.Kind]string{
	apub.KindActor:    "ap_actors",
	apub.KindObject:   "ap_objects",
	apub.KindActivity: "ap_activities",
}

// Postgres — реализация Store поверх pgx.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

var _ Store = (*Postgres)(nil)

// EnsureSchema — создать таблицы коллекций, если отсутствуют.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range kindTables {
		_, err := pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id text PRIMARY KEY,
  type text NOT NULL,
  data jsonb NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);`, table))
		if err != nil {
			return fmt.Errorf("ensure %s: %w", table, err)
		}
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, kind apub.Kind, id string) (Record, error) {
	rec := Record{ID: id}
	err := p.Pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT type, data, created_at, updated_at FROM %s WHERE id = $1`, kindTables[kind]),
		id,
	).Scan(&rec.Type, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, domain.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s %s: %v: %w", kind, id, err, domain.ErrBackend)
	}
	return rec, nil
}

func (p *Postgres) Put(ctx context.Context, kind apub.Kind, rec Record) error {
	_, err := p.Pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, type, data) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, data = EXCLUDED.data, updated_at = now()`,
			kindTables[kind]),
		rec.ID, rec.Type, rec.Data)
	if err != nil {
		return fmt.Errorf("put %s %s: %v: %w", kind, rec.ID, err, domain.ErrBackend)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, kind apub.Kind, q Query) ([]Record, error) {
	where := "TRUE"
	var args []any
	n := 0
	next := func(v any) string {
		args = append(args, v)
		n++
		return fmt.Sprintf("$%d", n)
	}

	if q.Type != "" {
		where += " AND type = " + next(q.Type)
	}
	for _, k := range sortedKeys(q.Fields) {
		where += fmt.Sprintf(" AND data->>'%s' = %s", k, next(q.Fields[k]))
	}
	if len(q.AnyOf) > 0 {
		or := ""
		for _, k := range sortedKeys(q.AnyOf) {
			if or != "" {
				or += " OR "
			}
			or += fmt.Sprintf("data->>'%s' = %s", k, next(q.AnyOf[k]))
		}
		where += " AND (" + or + ")"
	}

	sql := fmt.Sprintf(`SELECT id, type, data, created_at, updated_at FROM %s
        WHERE %s ORDER BY data->>'published' DESC`, kindTables[kind], where)
	if q.Limit > 0 {
		sql += " LIMIT " + next(q.Limit)
	}
	if q.Offset > 0 {
		sql += " OFFSET " + next(q.Offset)
	}

	rows, err := p.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %v: %w", kind, err, domain.ErrBackend)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("find %s: scan: %v: %w", kind, err, domain.ErrBackend)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: rows: %v: %w", kind, err, domain.ErrBackend)
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
