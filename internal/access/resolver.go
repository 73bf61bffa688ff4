package access

import (
	"context"
	"fmt"

	"formhub-backend/internal/instrument"
	"formhub-backend/internal/store"
)

// ResolveRequest identifies the documents one authorization decision is
// scoped to. SubmissionID is optional; FormID may be empty for operations
// that are not form-scoped.
type ResolveRequest struct {
	FormID       string
	SubmissionID string
}

// Resolver builds an AccessSnapshot for one request. Side-effect free and
// idempotent given a stable store; safe to call more than once per request
// because lookups go through the request cache.
type Resolver struct {
	store store.DocumentStore
	roles *RoleDirectory
}

func NewResolver(s store.DocumentStore, roles *RoleDirectory) *Resolver {
	return &Resolver{store: s, roles: roles}
}

// Resolve loads the form's access rules, the submission's owner (when a
// submission is in scope), and the well-known role ids into a fresh snapshot.
// A request without a form id yields a neutral snapshot: no entity-scoped
// grants, but the default/admin roles are still resolved so downstream
// checks work.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*AccessSnapshot, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "access", "resolver", "access.resolve")
	defer span.End()
	span.SetEntity(EntityForm, req.FormID)

	snap := newSnapshot()

	var err error
	snap.DefaultRole, err = r.roles.Default(ctx)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	snap.AdminRole, err = r.roles.Admin(ctx)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}

	if req.FormID == "" {
		span.SetStatus("ok")
		return snap, nil
	}

	form, err := r.store.FindForm(ctx, req.FormID)
	if err != nil {
		span.SetStatus("error")
		return nil, fmt.Errorf("resolve form %s: %w", req.FormID, err)
	}

	snap.Form.Owner = form.Owner
	for _, entry := range form.Access {
		snap.Form.Perms[entry.Type] = append(snap.Form.Perms[entry.Type], entry.Roles...)
	}
	for _, entry := range form.SubmissionAccess {
		snap.Submission.Perms[entry.Type] = append(snap.Submission.Perms[entry.Type], entry.Roles...)
	}

	// The submission contributes only its owner. Its own access array is
	// resource-scoped and handled by the resource-access filter, not by the
	// role-based evaluator.
	if req.SubmissionID != "" {
		sub, err := r.store.FindSubmission(ctx, req.FormID, req.SubmissionID)
		if err != nil {
			span.SetStatus("error")
			return nil, fmt.Errorf("resolve submission %s: %w", req.SubmissionID, err)
		}
		snap.Submission.Owner = sub.Owner
	}

	span.SetStatus("ok")
	return snap, nil
}
