package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marina/pkg/platform/sentinel"
)

// PostgresStore keeps every kind in a single entities table with the fields
// held in a jsonb column. Pagination is keyset on id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store. The schema is created by
// Migrate.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, kind Kind, props Props) (int64, error) {
	raw, err := json.Marshal(props)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", kind, err)
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO entities (kind, props) VALUES ($1, $2) RETURNING id`,
		string(kind), raw,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", kind, err)
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, kind Kind, id int64) (Entity, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT props FROM entities WHERE kind = $1 AND id = $2`,
		string(kind), id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entity{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
		}
		return Entity{}, fmt.Errorf("select %s %d: %w", kind, id, err)
	}
	props, err := decodeProps(raw)
	if err != nil {
		return Entity{}, fmt.Errorf("decode %s %d: %w", kind, id, err)
	}
	return Entity{Kind: kind, ID: id, Props: props}, nil
}

// Update overwrites props without comparing against the previous version.
func (s *PostgresStore) Update(ctx context.Context, kind Kind, id int64, props Props) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE entities SET props = $3 WHERE kind = $1 AND id = $2`,
		string(kind), id, raw,
	)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, kind Kind, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM entities WHERE kind = $1 AND id = $2`, string(kind), id); err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) (Page, error) {
	after, err := decodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	sql := `SELECT id, props FROM entities WHERE kind = $1 AND id > $2`
	args := []any{string(q.Kind), after}
	if q.Filter != nil {
		sql += ` AND props ->> $3 = $4`
		args = append(args, q.Filter.Field, q.Filter.Value)
	}
	sql += ` ORDER BY id`
	if q.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, q.Limit+1)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", q.Kind, err)
	}
	defer rows.Close()

	page := Page{Entities: []Entity{}}
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return Page{}, fmt.Errorf("scan %s: %w", q.Kind, err)
		}
		if q.Limit > 0 && len(page.Entities) == q.Limit {
			page.Next = encodeCursor(page.Entities[len(page.Entities)-1].ID)
			break
		}
		props, err := decodeProps(raw)
		if err != nil {
			return Page{}, fmt.Errorf("decode %s %d: %w", q.Kind, id, err)
		}
		page.Entities = append(page.Entities, Entity{Kind: q.Kind, ID: id, Props: props})
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("query %s: %w", q.Kind, err)
	}
	return page, nil
}

func (s *PostgresStore) Count(ctx context.Context, kind Kind, filter *Filter) (int, error) {
	sql := `SELECT count(*) FROM entities WHERE kind = $1`
	args := []any{string(kind)}
	if filter != nil {
		sql += ` AND props ->> $2 = $3`
		args = append(args, filter.Field, filter.Value)
	}
	var n int
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

func decodeProps(raw []byte) (Props, error) {
	var props Props
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, err
	}
	return normalize(props), nil
}
