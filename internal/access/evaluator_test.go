package access

import (
	"net/http"
	"testing"

	"formhub-backend/internal/model"
)

func snapshotWith(entityType string, owner string, perms map[string][]string) *AccessSnapshot {
	snap := newSnapshot()
	snap.DefaultRole = "role-anon"
	snap.AdminRole = "role-admin"
	ea := EntityAccess{Owner: owner, Perms: perms}
	if ea.Perms == nil {
		ea.Perms = map[string][]string{}
	}
	switch entityType {
	case EntityForm:
		snap.Form = ea
	case EntitySubmission:
		snap.Submission = ea
	}
	return snap
}

func TestDecideAdminBypassesEverything(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "someone-else", nil)
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-admin"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodDelete,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if !d.Allowed {
		t.Fatal("expected admin to be allowed")
	}
	if !d.IsAdmin {
		t.Error("expected IsAdmin")
	}
	if !d.SkipOwnerFilter {
		t.Error("expected SkipOwnerFilter for admin")
	}
}

func TestDecideAdminOverrideHook(t *testing.T) {
	e := &Evaluator{AdminOverride: func(c model.CallerIdentity) bool {
		return c.UserID == "installer"
	}}
	snap := snapshotWith(EntitySubmission, "", nil)

	d := e.Decide(model.CallerIdentity{UserID: "installer"}, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if !d.Allowed || !d.IsAdmin {
		t.Fatalf("expected override admin decision, got %+v", d)
	}
}

func TestDecideNilEntityDenies(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermReadAll: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{Method: http.MethodGet})
	if d.Allowed {
		t.Fatal("expected deny with no entity in scope")
	}
}

func TestDecideUnknownMethodDenies(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "u1", map[string][]string{
		model.PermReadAll: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{
		Method: "PATCH",
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if d.Allowed {
		t.Fatal("expected deny for unmapped method")
	}
}

func TestDecideOwnerReadsOwnDocument(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "u1", map[string][]string{
		model.PermReadOwn: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if !d.Allowed {
		t.Fatal("expected owner with read_own to be allowed")
	}
	if d.SkipOwnerFilter {
		t.Error("read_own must not lift the owner filter")
	}
}

func TestDecideNonOwnerDeniedOnOwnGrant(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "someone-else", map[string][]string{
		model.PermReadOwn: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if d.Allowed {
		t.Fatal("expected non-owner to be denied under read_own")
	}
}

func TestDecideAllGrantIgnoresOwnership(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "someone-else", map[string][]string{
		model.PermUpdateAll: {"role-editor"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-editor"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodPut,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if !d.Allowed {
		t.Fatal("expected update_all to allow a non-owner")
	}
	if !d.SkipOwnerFilter {
		t.Error("expected update_all to lift the owner filter")
	}
	if d.AssignOwner {
		t.Error("AssignOwner must stay false without an owner in the payload")
	}
}

func TestDecideAllGrantAllowsOwnerReassignment(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermCreateAll: {"role-editor"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-editor"}}

	d := e.Decide(identity, snap, Request{
		Method:         http.MethodPost,
		Entity:         &Entity{Type: EntitySubmission, ID: ""},
		OwnerInPayload: true,
	})
	if !d.Allowed {
		t.Fatal("expected create_all to allow")
	}
	if !d.AssignOwner {
		t.Error("expected AssignOwner when the payload names an owner under create_all")
	}
}

func TestDecideMethodCaseInsensitive(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermCreateAll: {"role-editor"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-editor"}}

	d := e.Decide(identity, snap, Request{
		Method:         "post",
		Entity:         &Entity{Type: EntitySubmission, ID: ""},
		OwnerInPayload: true,
	})
	if !d.Allowed {
		t.Fatal("expected a lowercase method to map like its uppercase form")
	}
	if !d.AssignOwner {
		t.Error("expected AssignOwner regardless of method casing")
	}
}

func TestDecideOwnGrantNeverAssignsOwner(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermCreateOwn: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{
		Method:         http.MethodPost,
		Entity:         &Entity{Type: EntitySubmission, ID: ""},
		OwnerInPayload: true,
	})
	if !d.Allowed {
		t.Fatal("expected create_own to allow")
	}
	if d.AssignOwner {
		t.Error("create_own must not honor a caller-specified owner")
	}
}

func TestDecideCreateOwnAllowsAnonymousWithDefaultRole(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermCreateOwn: {"role-anon"},
	})

	d := e.Decide(model.CallerIdentity{}, snap, Request{
		Method: http.MethodPost,
		Entity: &Entity{Type: EntitySubmission, ID: ""},
	})
	if !d.Allowed {
		t.Fatal("expected anonymous caller with default-role create_own grant to be allowed")
	}
	if d.SkipOwnerFilter || d.AssignOwner || d.IsAdmin {
		t.Errorf("expected all flags false, got %+v", d)
	}
}

func TestDecideAnonymousWithoutGrantDenied(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermCreateOwn: {"role-user"},
	})

	d := e.Decide(model.CallerIdentity{}, snap, Request{
		Method: http.MethodPost,
		Entity: &Entity{Type: EntitySubmission, ID: ""},
	})
	if d.Allowed {
		t.Fatal("default role holds no grant here, expected deny")
	}
}

func TestDecideIndexTentativeGrantKeepsOwnerFilter(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermReadOwn: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: ""},
	})
	if !d.Allowed {
		t.Fatal("expected tentative index grant under read_own")
	}
	if d.SkipOwnerFilter {
		t.Error("index grant under read_own must keep the owner filter on")
	}
}

func TestDecideIndexAllGrantLiftsOwnerFilter(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermReadAll: {"role-viewer"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-viewer"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: ""},
	})
	if !d.Allowed || !d.SkipOwnerFilter {
		t.Fatalf("expected unfiltered index grant under read_all, got %+v", d)
	}
}

func TestDecideRoleIntersection(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "", map[string][]string{
		model.PermReadAll: {"role-a", "role-b"},
	})

	allowed := e.Decide(model.CallerIdentity{UserID: "u1", Roles: []string{"role-x", "role-b"}}, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if !allowed.Allowed {
		t.Fatal("expected overlap on role-b to allow")
	}

	denied := e.Decide(model.CallerIdentity{UserID: "u2", Roles: []string{"role-x", "role-y"}}, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: EntitySubmission, ID: "sub-1"},
	})
	if denied.Allowed {
		t.Fatal("expected disjoint role sets to deny")
	}
}

func TestDecideUnknownEntityTypeGrantsNothing(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "u1", map[string][]string{
		model.PermReadAll: {"role-user"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user"}}

	d := e.Decide(identity, snap, Request{
		Method: http.MethodGet,
		Entity: &Entity{Type: "workspace", ID: "w-1"},
	})
	if d.Allowed {
		t.Fatal("expected unknown entity type to deny")
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	e := NewEvaluator()
	snap := snapshotWith(EntitySubmission, "u1", map[string][]string{
		model.PermReadOwn:   {"role-user"},
		model.PermUpdateAll: {"role-editor"},
	})
	identity := model.CallerIdentity{UserID: "u1", Roles: []string{"role-user", "role-editor"}}
	req := Request{
		Method:         http.MethodPut,
		Entity:         &Entity{Type: EntitySubmission, ID: "sub-1"},
		OwnerInPayload: true,
	}

	first := e.Decide(identity, snap, req)
	for i := 0; i < 5; i++ {
		if got := e.Decide(identity, snap, req); got != first {
			t.Fatalf("decision changed on repeat: %+v vs %+v", got, first)
		}
	}
}
