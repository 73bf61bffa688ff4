package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"formhub-backend/internal/model"
)

// FindForm loads a non-deleted form by id.
func (s *Store) FindForm(ctx context.Context, id string) (*model.Form, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM forms WHERE id = %s AND deleted = %s",
		pb.Add(id), pb.Add(false))

	var rowID string
	var def []byte
	err := s.DB.QueryRowContext(ctx, query, pb.Params()...).Scan(&rowID, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find form %s: %w", ErrStore, id, err)
	}

	var form model.Form
	if err := json.Unmarshal(def, &form); err != nil {
		return nil, fmt.Errorf("%w: decode form %s: %w", ErrStore, id, err)
	}
	form.ID = rowID
	return &form, nil
}

// FindFormByPath loads a non-deleted form by its URL path segment.
func (s *Store) FindFormByPath(ctx context.Context, path string) (*model.Form, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM forms WHERE path = %s AND deleted = %s",
		pb.Add(path), pb.Add(false))

	var rowID string
	var def []byte
	err := s.DB.QueryRowContext(ctx, query, pb.Params()...).Scan(&rowID, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find form by path %s: %w", ErrStore, path, err)
	}

	var form model.Form
	if err := json.Unmarshal(def, &form); err != nil {
		return nil, fmt.Errorf("%w: decode form %s: %w", ErrStore, rowID, err)
	}
	form.ID = rowID
	return &form, nil
}

// ListForms returns all non-deleted forms ordered by creation time.
func (s *Store) ListForms(ctx context.Context) ([]*model.Form, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM forms WHERE deleted = %s ORDER BY created_at",
		pb.Add(false))

	rows, err := s.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("%w: list forms: %w", ErrStore, err)
	}
	defer rows.Close()

	var forms []*model.Form
	for rows.Next() {
		var rowID string
		var def []byte
		if err := rows.Scan(&rowID, &def); err != nil {
			return nil, fmt.Errorf("%w: scan form row: %w", ErrStore, err)
		}
		var form model.Form
		if err := json.Unmarshal(def, &form); err != nil {
			return nil, fmt.Errorf("%w: decode form %s: %w", ErrStore, rowID, err)
		}
		form.ID = rowID
		forms = append(forms, &form)
	}
	return forms, rows.Err()
}

// SaveForm inserts the form when it has no id yet, otherwise updates it.
func (s *Store) SaveForm(ctx context.Context, form *model.Form) error {
	now := time.Now().UTC()
	form.Modified = now

	if form.ID == "" {
		form.ID = uuid.New().String()
		form.Created = now
		def, err := json.Marshal(form)
		if err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
		pb := s.Dialect.NewParamBuilder()
		query := fmt.Sprintf(
			"INSERT INTO forms (id, name, path, definition) VALUES (%s, %s, %s, %s)",
			pb.Add(form.ID), pb.Add(form.Name), pb.Add(form.Path), pb.Add(string(def)))
		if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
			return s.Dialect.MapError(err)
		}
		return nil
	}

	def, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE forms SET name = %s, path = %s, definition = %s, updated_at = %s WHERE id = %s",
		pb.Add(form.Name), pb.Add(form.Path), pb.Add(string(def)), s.Dialect.NowExpr(), pb.Add(form.ID))
	if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
		return s.Dialect.MapError(err)
	}
	return nil
}

// DeleteForm soft-deletes a form.
func (s *Store) DeleteForm(ctx context.Context, id string) error {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE forms SET deleted = %s, updated_at = %s WHERE id = %s",
		pb.Add(true), s.Dialect.NowExpr(), pb.Add(id))
	_, err := s.DB.ExecContext(ctx, query, pb.Params()...)
	return err
}

// FindSubmission loads a non-deleted submission scoped to its form.
func (s *Store) FindSubmission(ctx context.Context, formID, id string) (*model.Submission, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM submissions WHERE id = %s AND form_id = %s AND deleted = %s",
		pb.Add(id), pb.Add(formID), pb.Add(false))

	var rowID string
	var def []byte
	err := s.DB.QueryRowContext(ctx, query, pb.Params()...).Scan(&rowID, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find submission %s: %w", ErrStore, id, err)
	}

	var sub model.Submission
	if err := json.Unmarshal(def, &sub); err != nil {
		return nil, fmt.Errorf("%w: decode submission %s: %w", ErrStore, id, err)
	}
	sub.ID = rowID
	return &sub, nil
}

// ListSubmissions returns non-deleted submissions for a form. A non-empty
// owner narrows the result to that owner's rows (row-level owner filter for
// the *_own index grant).
func (s *Store) ListSubmissions(ctx context.Context, formID, owner string) ([]*model.Submission, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM submissions WHERE form_id = %s AND deleted = %s",
		pb.Add(formID), pb.Add(false))
	if owner != "" {
		query += fmt.Sprintf(" AND owner = %s", pb.Add(owner))
	}
	query += " ORDER BY created_at"

	rows, err := s.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("%w: list submissions: %w", ErrStore, err)
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		var rowID string
		var def []byte
		if err := rows.Scan(&rowID, &def); err != nil {
			return nil, fmt.Errorf("%w: scan submission row: %w", ErrStore, err)
		}
		var sub model.Submission
		if err := json.Unmarshal(def, &sub); err != nil {
			return nil, fmt.Errorf("%w: decode submission %s: %w", ErrStore, rowID, err)
		}
		sub.ID = rowID
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// SaveSubmission inserts the submission when it has no id yet, otherwise
// updates it.
func (s *Store) SaveSubmission(ctx context.Context, sub *model.Submission) error {
	now := time.Now().UTC()
	sub.Modified = now

	if sub.ID == "" {
		sub.ID = uuid.New().String()
		sub.Created = now
		def, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("encode submission: %w", err)
		}
		pb := s.Dialect.NewParamBuilder()
		query := fmt.Sprintf(
			"INSERT INTO submissions (id, form_id, owner, definition) VALUES (%s, %s, %s, %s)",
			pb.Add(sub.ID), pb.Add(sub.FormID), pb.Add(sub.Owner), pb.Add(string(def)))
		if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
			return s.Dialect.MapError(err)
		}
		return nil
	}

	def, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE submissions SET owner = %s, definition = %s, updated_at = %s WHERE id = %s",
		pb.Add(sub.Owner), pb.Add(string(def)), s.Dialect.NowExpr(), pb.Add(sub.ID))
	if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
		return s.Dialect.MapError(err)
	}
	return nil
}

// DeleteSubmission soft-deletes a submission.
func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE submissions SET deleted = %s, updated_at = %s WHERE id = %s",
		pb.Add(true), s.Dialect.NowExpr(), pb.Add(id))
	_, err := s.DB.ExecContext(ctx, query, pb.Params()...)
	return err
}

// FindRole loads a single non-deleted role matching the query.
func (s *Store) FindRole(ctx context.Context, q RoleQuery) (*model.Role, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT id, definition FROM roles WHERE deleted = %s", pb.Add(false))
	switch {
	case q.ID != "":
		query += fmt.Sprintf(" AND id = %s", pb.Add(q.ID))
	case q.Default:
		query += fmt.Sprintf(" AND is_default = %s", pb.Add(true))
	case q.Admin:
		query += fmt.Sprintf(" AND is_admin = %s", pb.Add(true))
	case q.Title != "":
		query += fmt.Sprintf(" AND definition ->> 'title' = %s", pb.Add(q.Title))
	default:
		return nil, fmt.Errorf("empty role query")
	}

	var rowID string
	var def []byte
	err := s.DB.QueryRowContext(ctx, query, pb.Params()...).Scan(&rowID, &def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find role: %w", ErrStore, err)
	}

	var role model.Role
	if err := json.Unmarshal(def, &role); err != nil {
		return nil, fmt.Errorf("%w: decode role %s: %w", ErrStore, rowID, err)
	}
	role.ID = rowID
	return &role, nil
}

// ListRoles returns all non-deleted roles.
func (s *Store) ListRoles(ctx context.Context) ([]*model.Role, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM roles WHERE deleted = %s ORDER BY created_at",
		pb.Add(false))

	rows, err := s.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %w", ErrStore, err)
	}
	defer rows.Close()

	var roles []*model.Role
	for rows.Next() {
		var rowID string
		var def []byte
		if err := rows.Scan(&rowID, &def); err != nil {
			return nil, fmt.Errorf("%w: scan role row: %w", ErrStore, err)
		}
		var role model.Role
		if err := json.Unmarshal(def, &role); err != nil {
			return nil, fmt.Errorf("%w: decode role %s: %w", ErrStore, rowID, err)
		}
		role.ID = rowID
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

// SaveRole inserts the role when it has no id yet, otherwise updates it.
func (s *Store) SaveRole(ctx context.Context, role *model.Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
		def, err := json.Marshal(role)
		if err != nil {
			return fmt.Errorf("encode role: %w", err)
		}
		pb := s.Dialect.NewParamBuilder()
		query := fmt.Sprintf(
			"INSERT INTO roles (id, definition, is_default, is_admin) VALUES (%s, %s, %s, %s)",
			pb.Add(role.ID), pb.Add(string(def)), pb.Add(role.Default), pb.Add(role.Admin))
		if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
			return s.Dialect.MapError(err)
		}
		return nil
	}

	def, err := json.Marshal(role)
	if err != nil {
		return fmt.Errorf("encode role: %w", err)
	}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE roles SET definition = %s, is_default = %s, is_admin = %s, updated_at = %s WHERE id = %s",
		pb.Add(string(def)), pb.Add(role.Default), pb.Add(role.Admin), s.Dialect.NowExpr(), pb.Add(role.ID))
	if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
		return s.Dialect.MapError(err)
	}
	return nil
}

// FindActions returns all non-deleted action documents for a form, priority
// descending. Equal priorities keep insertion order, which is the tie-break
// the pipeline relies on; the timestamp alone is too coarse to guarantee it.
func (s *Store) FindActions(ctx context.Context, formID string) ([]*model.Action, error) {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"SELECT id, definition FROM actions WHERE form_id = %s AND deleted = %s ORDER BY priority DESC, %s",
		pb.Add(formID), pb.Add(false), s.Dialect.InsertionOrderColumn())

	rows, err := s.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("%w: find actions for form %s: %w", ErrStore, formID, err)
	}
	defer rows.Close()

	var actions []*model.Action
	for rows.Next() {
		var rowID string
		var def []byte
		if err := rows.Scan(&rowID, &def); err != nil {
			return nil, fmt.Errorf("%w: scan action row: %w", ErrStore, err)
		}
		var action model.Action
		if err := json.Unmarshal(def, &action); err != nil {
			return nil, fmt.Errorf("%w: decode action %s: %w", ErrStore, rowID, err)
		}
		action.ID = rowID
		actions = append(actions, &action)
	}
	return actions, rows.Err()
}

// SaveAction inserts the action when it has no id yet, otherwise updates it.
func (s *Store) SaveAction(ctx context.Context, action *model.Action) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
		def, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("encode action: %w", err)
		}
		pb := s.Dialect.NewParamBuilder()
		query := fmt.Sprintf(
			"INSERT INTO actions (id, form_id, name, priority, definition) VALUES (%s, %s, %s, %s, %s)",
			pb.Add(action.ID), pb.Add(action.FormID), pb.Add(action.Name),
			pb.Add(action.Priority), pb.Add(string(def)))
		if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
			return s.Dialect.MapError(err)
		}
		return nil
	}

	def, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE actions SET name = %s, priority = %s, definition = %s, updated_at = %s WHERE id = %s",
		pb.Add(action.Name), pb.Add(action.Priority), pb.Add(string(def)),
		s.Dialect.NowExpr(), pb.Add(action.ID))
	if _, err := s.DB.ExecContext(ctx, query, pb.Params()...); err != nil {
		return s.Dialect.MapError(err)
	}
	return nil
}

// DeleteAction soft-deletes an action.
func (s *Store) DeleteAction(ctx context.Context, id string) error {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"UPDATE actions SET deleted = %s, updated_at = %s WHERE id = %s",
		pb.Add(true), s.Dialect.NowExpr(), pb.Add(id))
	_, err := s.DB.ExecContext(ctx, query, pb.Params()...)
	return err
}
