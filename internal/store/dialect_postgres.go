package store

import (
	"fmt"
	"strings"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) NowExpr() string  { return "NOW()" }
func (d *PostgresDialect) JSONType() string { return "JSONB" }
func (d *PostgresDialect) BoolType() string { return "BOOLEAN" }

const pgDocumentTablesSQL = `
CREATE TABLE IF NOT EXISTS roles (
    id          UUID PRIMARY KEY,
    definition  JSONB NOT NULL,
    is_default  BOOLEAN NOT NULL DEFAULT false,
    is_admin    BOOLEAN NOT NULL DEFAULT false,
    deleted     BOOLEAN NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ DEFAULT NOW(),
    updated_at  TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS forms (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    path        TEXT NOT NULL UNIQUE,
    definition  JSONB NOT NULL,
    deleted     BOOLEAN NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ DEFAULT NOW(),
    updated_at  TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submissions (
    id          UUID PRIMARY KEY,
    form_id     UUID NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
    owner       TEXT,
    definition  JSONB NOT NULL,
    deleted     BOOLEAN NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ DEFAULT NOW(),
    updated_at  TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_id) WHERE deleted = false;

CREATE TABLE IF NOT EXISTS actions (
    id          UUID PRIMARY KEY,
    seq         BIGINT GENERATED ALWAYS AS IDENTITY,
    form_id     UUID NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    priority    INT NOT NULL DEFAULT 0,
    definition  JSONB NOT NULL,
    deleted     BOOLEAN NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ DEFAULT NOW(),
    updated_at  TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_actions_form ON actions(form_id) WHERE deleted = false;

CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles         JSONB NOT NULL DEFAULT '[]',
    active        BOOLEAN NOT NULL DEFAULT true,
    created_at    TIMESTAMPTZ DEFAULT NOW(),
    updated_at    TIMESTAMPTZ DEFAULT NOW()
);
`

func (d *PostgresDialect) DocumentTablesSQL() string {
	return pgDocumentTablesSQL
}

func (d *PostgresDialect) InsertionOrderColumn() string { return "seq" }

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	// With pgx/stdlib, the underlying error message includes the PG code
	errStr := err.Error()
	if strings.Contains(errStr, "23505") || strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}
