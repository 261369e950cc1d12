package entity

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "postgres" database/sql driver used for schema setup.
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id    BIGSERIAL PRIMARY KEY,
	kind  TEXT      NOT NULL,
	props JSONB     NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS entities_kind_id_idx ON entities (kind, id);
CREATE INDEX IF NOT EXISTS entities_props_idx ON entities USING GIN (props jsonb_path_ops);
`

// Migrate creates the entities table and its indexes. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate entities schema: %w", err)
	}
	return nil
}

// MigrateURL opens a short-lived database/sql connection and runs Migrate.
func MigrateURL(ctx context.Context, url string) error {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	return Migrate(ctx, db)
}
