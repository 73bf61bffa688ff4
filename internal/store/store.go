package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	_ "modernc.org/sqlite"             // Register sqlite as database/sql driver

	"formhub-backend/internal/config"
	"formhub-backend/internal/model"
)

var ErrNotFound = errors.New("not found")
var ErrUniqueViolation = errors.New("unique constraint violation")

// ErrStore wraps lookup failures that are not an absent document: dead
// connections, query errors, undecodable definitions. Callers map it to a
// 500-class response instead of blaming the client.
var ErrStore = errors.New("store failure")

// RoleQuery selects a role by id, flag, or title. Zero-value fields are not
// matched.
type RoleQuery struct {
	ID      string
	Title   string
	Default bool
	Admin   bool
}

// DocumentStore is the lookup abstraction the authorization and action cores
// consume. All methods return ErrNotFound (possibly wrapped) when the
// document does not exist; any other error is a store failure.
type DocumentStore interface {
	FindForm(ctx context.Context, id string) (*model.Form, error)
	FindSubmission(ctx context.Context, formID, id string) (*model.Submission, error)
	FindRole(ctx context.Context, q RoleQuery) (*model.Role, error)
	FindActions(ctx context.Context, formID string) ([]*model.Action, error)
}

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store wraps a database connection and dialect. It implements DocumentStore
// (documents.go) plus the write operations the CRUD layer and actions use.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
	driver  string
}

// New creates a Store from config.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	dialect := NewDialect(driver)
	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "postgres" {
		if cfg.PoolSize > 0 {
			db.SetMaxOpenConns(cfg.PoolSize)
		}
	} else if driver == "sqlite" {
		// SQLite: single writer, WAL mode for concurrent reads
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{DB: db, Dialect: dialect, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
