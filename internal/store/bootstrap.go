package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"formhub-backend/internal/model"
)

// Bootstrap creates the document tables and seeds the well-known roles and
// the initial admin user. Idempotent: existing tables and documents are left
// alone.
func (s *Store) Bootstrap(ctx context.Context) error {
	// One statement per Exec: the pgx stdlib driver rejects multi-statement
	// strings over the extended protocol.
	for _, stmt := range strings.Split(s.Dialect.DocumentTablesSQL(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create document tables: %w", err)
		}
	}

	if err := s.seedRoles(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	if err := s.seedAdminUser(ctx); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	return nil
}

// seedRoles ensures the three well-known roles exist. Exactly one role
// carries the default flag and one the admin flag.
func (s *Store) seedRoles(ctx context.Context) error {
	seeds := []model.Role{
		{Title: "Administrator", Description: "Full access to all forms and submissions", Admin: true},
		{Title: "Authenticated", Description: "Granted to every logged-in caller"},
		{Title: "Anonymous", Description: "Granted to unauthenticated callers", Default: true},
	}

	for _, seed := range seeds {
		_, err := s.FindRole(ctx, RoleQuery{Title: seed.Title})
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		role := seed
		if err := s.SaveRole(ctx, &role); err != nil {
			return err
		}
		log.Printf("Seeded role %s (%s)", role.Title, role.ID)
	}
	return nil
}

// seedAdminUser creates admin@localhost with the admin role on first start.
// The default password is logged once; change it after first login.
func (s *Store) seedAdminUser(ctx context.Context) error {
	_, err := s.FindUserByEmail(ctx, "admin@localhost")
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	adminRole, err := s.FindRole(ctx, RoleQuery{Admin: true})
	if err != nil {
		return fmt.Errorf("admin role lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user, err := s.CreateUser(ctx, "admin@localhost", string(hash), []string{adminRole.ID})
	if err != nil {
		return err
	}
	log.Printf("Seeded admin user %s (default password 'admin' — change it)", user.Email)
	return nil
}
