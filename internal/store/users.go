package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// User is a login account. Roles holds role document ids.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
	Active       bool     `json:"active"`
}

// FindUserByEmail loads a user by email. Active is not filtered here; the
// login handler decides what a disabled account may do.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, email, password_hash, roles, active FROM users WHERE email = %s",
		pb.Add(email))
	return s.scanUser(s.DB.QueryRowContext(ctx, query, pb.Params()...))
}

// FindUser loads a user by id.
func (s *Store) FindUser(ctx context.Context, id string) (*User, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, email, password_hash, roles, active FROM users WHERE id = %s",
		pb.Add(id))
	return s.scanUser(s.DB.QueryRowContext(ctx, query, pb.Params()...))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var rolesJSON []byte
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &rolesJSON, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if err := json.Unmarshal(rolesJSON, &u.Roles); err != nil {
		return nil, fmt.Errorf("decode user roles: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, roles []string) (*User, error) {
	if roles == nil {
		roles = []string{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return nil, fmt.Errorf("encode roles: %w", err)
	}

	u := &User{ID: uuid.New().String(), Email: email, PasswordHash: passwordHash, Roles: roles, Active: true}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"INSERT INTO users (id, email, password_hash, roles) VALUES (%s, %s, %s, %s)",
		pb.Add(u.ID), pb.Add(email), pb.Add(passwordHash), pb.Add(string(rolesJSON)))
	if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
		return nil, s.Dialect.MapError(err)
	}
	return u, nil
}

// UpdateUserRoles replaces a user's role set. Used by the role assignment
// action.
func (s *Store) UpdateUserRoles(ctx context.Context, id string, roles []string) error {
	if roles == nil {
		roles = []string{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE users SET roles = %s, updated_at = %s WHERE id = %s",
		pb.Add(string(rolesJSON)), s.Dialect.NowExpr(), pb.Add(id))
	res, err := s.DB.ExecContext(ctx, query, pb.Params()...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
