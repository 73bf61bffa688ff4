package access

import (
	"context"
	"errors"
	"fmt"

	"formhub-backend/internal/store"
)

// ErrRoleResolution wraps store failures during default/admin role lookup.
// Absence of a default or admin role is not an error; it yields an empty id.
var ErrRoleResolution = errors.New("role resolution failed")

// RoleDirectory resolves the well-known default and admin roles and looks
// roles up by query. Backed by the document store, usually through a
// request cache.
type RoleDirectory struct {
	store store.DocumentStore
}

func NewRoleDirectory(s store.DocumentStore) *RoleDirectory {
	return &RoleDirectory{store: s}
}

// Default returns the id of the role carrying the default flag, or "" when
// no such role exists.
func (d *RoleDirectory) Default(ctx context.Context) (string, error) {
	return d.flaggedRole(ctx, store.RoleQuery{Default: true})
}

// Admin returns the id of the role carrying the admin flag, or "" when no
// such role exists.
func (d *RoleDirectory) Admin(ctx context.Context) (string, error) {
	return d.flaggedRole(ctx, store.RoleQuery{Admin: true})
}

func (d *RoleDirectory) flaggedRole(ctx context.Context, q store.RoleQuery) (string, error) {
	role, err := d.store.FindRole(ctx, q)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRoleResolution, err)
	}
	return role.ID, nil
}
