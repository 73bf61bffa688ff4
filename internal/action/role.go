package action

import (
	"context"
	"errors"
	"fmt"

	"formhub-backend/internal/model"
	"formhub-backend/internal/store"
)

// RoleAccountStore is the slice of the store the role assignment action
// needs: role lookup plus user role mutation.
type RoleAccountStore interface {
	FindRole(ctx context.Context, q store.RoleQuery) (*model.Role, error)
	FindUser(ctx context.Context, id string) (*store.User, error)
	UpdateUserRoles(ctx context.Context, id string, roles []string) error
}

// RoleAssignment adds or removes a role after a submission is created or
// updated.
//
// Settings:
//
//	role         role id or title (required)
//	type         "add" (default) or "remove"
//	association  "new" targets the submission's roles; "existing" targets
//	             the calling user's account roles
type RoleAssignment struct {
	store  RoleAccountStore
	writer SubmissionWriter
}

func NewRoleAssignment(s RoleAccountStore, w SubmissionWriter) *RoleAssignment {
	return &RoleAssignment{store: s, writer: w}
}

func (r *RoleAssignment) Resolve(ctx context.Context, a *model.Action, handler, method string, ectx *ExecutionContext) error {
	if handler != model.HandlerAfter {
		return nil
	}

	roleSetting, _ := a.Settings["role"].(string)
	if roleSetting == "" {
		return fmt.Errorf("%w: role assignment action %s has no role setting", ErrBadConfig, a.ID)
	}

	role, err := r.lookupRole(ctx, roleSetting)
	if err != nil {
		return err
	}

	op, _ := a.Settings["type"].(string)
	if op == "" {
		op = "add"
	}
	if op != "add" && op != "remove" {
		return fmt.Errorf("%w: role assignment type %q", ErrBadConfig, op)
	}

	association, _ := a.Settings["association"].(string)
	if association == "existing" {
		return r.mutateUserRoles(ctx, role.ID, op, ectx)
	}
	return r.mutateSubmissionRoles(ctx, role.ID, op, ectx)
}

func (r *RoleAssignment) lookupRole(ctx context.Context, setting string) (*model.Role, error) {
	role, err := r.store.FindRole(ctx, store.RoleQuery{ID: setting})
	if errors.Is(err, store.ErrNotFound) {
		role, err = r.store.FindRole(ctx, store.RoleQuery{Title: setting})
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: role %q does not exist", ErrBadConfig, setting)
	}
	if err != nil {
		return nil, fmt.Errorf("look up role %q: %w", setting, err)
	}
	return role, nil
}

func (r *RoleAssignment) mutateSubmissionRoles(ctx context.Context, roleID, op string, ectx *ExecutionContext) error {
	if ectx.Submission == nil {
		return fmt.Errorf("%w: role assignment needs a submission in scope", ErrBadConfig)
	}
	ectx.Submission.Roles = applyRole(ectx.Submission.Roles, roleID, op)
	if ectx.Submission.ID == "" {
		// Not yet persisted; the pending save will carry the new roles.
		return nil
	}
	if err := r.writer.SaveSubmission(ctx, ectx.Submission); err != nil {
		return fmt.Errorf("persist submission roles: %w", err)
	}
	return nil
}

func (r *RoleAssignment) mutateUserRoles(ctx context.Context, roleID, op string, ectx *ExecutionContext) error {
	if ectx.Identity.Anonymous() {
		return fmt.Errorf("%w: role assignment to existing user requires an authenticated caller", ErrBadConfig)
	}
	user, err := r.store.FindUser(ctx, ectx.Identity.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", ectx.Identity.UserID, err)
	}
	return r.store.UpdateUserRoles(ctx, user.ID, applyRole(user.Roles, roleID, op))
}

func applyRole(roles []string, roleID, op string) []string {
	if op == "remove" {
		out := roles[:0]
		for _, r := range roles {
			if r != roleID {
				out = append(out, r)
			}
		}
		return out
	}
	for _, r := range roles {
		if r == roleID {
			return roles
		}
	}
	return append(roles, roleID)
}
