package action

import (
	"context"
	"errors"
	"testing"

	"formhub-backend/internal/model"
	"formhub-backend/internal/store"
)

// fakeRoleStore backs RoleAssignment tests with one role and one user.
type fakeRoleStore struct {
	role *model.Role
	user *store.User

	updatedUser  string
	updatedRoles []string
}

func (f *fakeRoleStore) FindRole(ctx context.Context, q store.RoleQuery) (*model.Role, error) {
	if f.role == nil {
		return nil, store.ErrNotFound
	}
	if q.ID != "" && q.ID == f.role.ID {
		return f.role, nil
	}
	if q.Title != "" && q.Title == f.role.Title {
		return f.role, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRoleStore) FindUser(ctx context.Context, id string) (*store.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, store.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeRoleStore) UpdateUserRoles(ctx context.Context, id string, roles []string) error {
	f.updatedUser = id
	f.updatedRoles = roles
	return nil
}

func TestRoleAssignmentAddsSubmissionRole(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	w := &fakeWriter{}
	unit := NewRoleAssignment(rs, w)
	ectx := &ExecutionContext{
		Identity:   model.CallerIdentity{UserID: "u1"},
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1", FormID: "form-1"},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{"role": "role-member"}}

	if err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodCreate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ectx.Submission.Roles) != 1 || ectx.Submission.Roles[0] != "role-member" {
		t.Errorf("unexpected submission roles: %v", ectx.Submission.Roles)
	}
	if len(w.saved) != 1 {
		t.Errorf("expected the persisted submission to be re-saved, got %d saves", len(w.saved))
	}
}

func TestRoleAssignmentLooksUpByTitle(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	unit := NewRoleAssignment(rs, &fakeWriter{})
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1"},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{"role": "Member"}}

	if err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodCreate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ectx.Submission.Roles) != 1 || ectx.Submission.Roles[0] != "role-member" {
		t.Errorf("expected title lookup to resolve the id, got %v", ectx.Submission.Roles)
	}
}

func TestRoleAssignmentAddIsIdempotent(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	unit := NewRoleAssignment(rs, &fakeWriter{})
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1", Roles: []string{"role-member"}},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{"role": "role-member"}}

	if err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodUpdate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ectx.Submission.Roles) != 1 {
		t.Errorf("expected no duplicate role, got %v", ectx.Submission.Roles)
	}
}

func TestRoleAssignmentRemove(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	unit := NewRoleAssignment(rs, &fakeWriter{})
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1", Roles: []string{"role-other", "role-member"}},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{
		"role": "role-member",
		"type": "remove",
	}}

	if err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodUpdate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ectx.Submission.Roles) != 1 || ectx.Submission.Roles[0] != "role-other" {
		t.Errorf("unexpected roles after remove: %v", ectx.Submission.Roles)
	}
}

func TestRoleAssignmentExistingUser(t *testing.T) {
	rs := &fakeRoleStore{
		role: &model.Role{ID: "role-member", Title: "Member"},
		user: &store.User{ID: "u1", Roles: []string{"role-anon"}},
	}
	unit := NewRoleAssignment(rs, &fakeWriter{})
	ectx := &ExecutionContext{
		Identity:   model.CallerIdentity{UserID: "u1", Roles: []string{"role-anon"}},
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1"},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{
		"role":        "role-member",
		"association": "existing",
	}}

	if err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodCreate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rs.updatedUser != "u1" {
		t.Fatalf("expected user u1 updated, got %q", rs.updatedUser)
	}
	want := []string{"role-anon", "role-member"}
	if len(rs.updatedRoles) != 2 || rs.updatedRoles[0] != want[0] || rs.updatedRoles[1] != want[1] {
		t.Errorf("unexpected user roles: %v", rs.updatedRoles)
	}
	if len(ectx.Submission.Roles) != 0 {
		t.Error("existing association must not touch the submission")
	}
}

func TestRoleAssignmentBadConfig(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	unit := NewRoleAssignment(rs, &fakeWriter{})
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1"},
	}

	cases := []map[string]any{
		{},                     // no role
		{"role": "NoSuchRole"}, // unknown role
		{"role": "role-member", "type": "toggle"},          // bad op
		{"role": "role-member", "association": "existing"}, // anonymous caller
	}
	for i, settings := range cases {
		a := &model.Action{ID: "a", Name: "role", Settings: settings}
		err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodCreate, ectx)
		if !errors.Is(err, ErrBadConfig) {
			t.Errorf("case %d: expected ErrBadConfig, got %v", i, err)
		}
	}
}

func TestRoleAssignmentSkipsBeforePhase(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	unit := NewRoleAssignment(rs, &fakeWriter{})
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{ID: "sub-1"},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{"role": "role-member"}}

	if err := unit.Resolve(context.Background(), a, model.HandlerBefore, model.MethodCreate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ectx.Submission.Roles) != 0 {
		t.Error("before phase must be a no-op")
	}
}

func TestRoleAssignmentUnpersistedSubmissionDefersSave(t *testing.T) {
	rs := &fakeRoleStore{role: &model.Role{ID: "role-member", Title: "Member"}}
	w := &fakeWriter{}
	unit := NewRoleAssignment(rs, w)
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{FormID: "form-1"},
	}
	a := &model.Action{ID: "a", Name: "role", Settings: map[string]any{"role": "role-member"}}

	if err := unit.Resolve(context.Background(), a, model.HandlerAfter, model.MethodCreate, ectx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ectx.Submission.Roles) != 1 {
		t.Fatalf("expected the role on the in-memory submission, got %v", ectx.Submission.Roles)
	}
	if len(w.saved) != 0 {
		t.Error("an unpersisted submission must not be saved by the role action")
	}
}
