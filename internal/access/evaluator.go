package access

import (
	"log"
	"net/http"
	"strings"

	"formhub-backend/internal/model"
)

// Entity identifies the resource a decision is about. ID is empty for
// index-style requests (no concrete document yet).
type Entity struct {
	Type string // EntityForm or EntitySubmission
	ID   string
}

// Request carries the inputs of one permission decision. OwnerInPayload is
// true when the caller's body already names an owner; only *_all grants may
// let that stand.
type Request struct {
	Method         string
	Entity         *Entity
	OwnerInPayload bool
}

// Decision is the evaluator's output. Allowed is the verdict; the remaining
// flags steer downstream collaborators (owner stamping, row-level owner
// filtering).
type Decision struct {
	Allowed         bool
	IsAdmin         bool
	AssignOwner     bool
	SkipOwnerFilter bool
}

// methodPerms maps an HTTP method to its ordered permission-type pair:
// the unconditional variant first, the ownership-bound variant second.
var methodPerms = map[string][2]string{
	http.MethodPost:   {model.PermCreateAll, model.PermCreateOwn},
	http.MethodGet:    {model.PermReadAll, model.PermReadOwn},
	http.MethodPut:    {model.PermUpdateAll, model.PermUpdateOwn},
	http.MethodDelete: {model.PermDeleteAll, model.PermDeleteOwn},
}

// Evaluator is the pure permission decision function. It does no I/O and
// keeps no state: identical inputs always yield identical decisions.
// AdminOverride, when set, may force admin treatment for a caller regardless
// of role membership (e.g. installation owner tokens).
type Evaluator struct {
	AdminOverride func(model.CallerIdentity) bool
}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Decide applies the role- and ownership-based rules to one request.
//
// Admin callers bypass everything. Otherwise each permission type mapped
// from the HTTP method is checked against the caller's effective roles:
//
//   - create_own grants unconditionally (the document does not exist yet, so
//     there is no owner to compare — this is the anonymous self-registration
//     path).
//   - other *_own types grant only when the caller owns the document, or for
//     index requests (empty entity id) where the grant is tentative and the
//     row-level owner filter narrows the result set afterwards.
//   - *_all types grant unconditionally, lift the owner filter, and allow a
//     caller-specified owner on create/update.
func (e *Evaluator) Decide(identity model.CallerIdentity, snap *AccessSnapshot, req Request) Decision {
	var d Decision

	method := strings.ToUpper(req.Method)
	roles := effectiveRoles(identity, snap)

	if e.isAdmin(identity, roles, snap) {
		return Decision{Allowed: true, IsAdmin: true, SkipOwnerFilter: true}
	}

	// No scoped resource: deny. Collection-level operations that are open by
	// policy are the caller layer's call, not this engine's.
	if req.Entity == nil {
		return d
	}

	perms, ok := methodPerms[method]
	if !ok {
		log.Printf("ERROR: no permission mapping for method %q, denying", req.Method)
		return d
	}

	entity := snap.Entity(req.Entity.Type)

	// Ownership pre-check. Does not return early: the *_own/*_all iteration
	// below still has to set AssignOwner and SkipOwnerFilter.
	if !identity.Anonymous() && entity.Owner == identity.UserID {
		d.Allowed = true
	}

	for _, permType := range perms {
		granted := entity.Perms[permType]
		if len(granted) == 0 {
			continue
		}
		for _, role := range roles {
			if !containsRole(granted, role) {
				continue
			}
			switch {
			case permType == model.PermCreateOwn:
				d.Allowed = true

			case strings.HasSuffix(permType, "_own"):
				if !identity.Anonymous() && entity.Owner == identity.UserID {
					d.Allowed = true
				} else if req.Entity.ID == "" {
					// Index request: grant here, narrow later. The owner
					// filter stays on (SkipOwnerFilter remains false).
					d.Allowed = true
				}

			default: // *_all
				d.Allowed = true
				d.SkipOwnerFilter = true
				if req.OwnerInPayload && (method == http.MethodPost || method == http.MethodPut) {
					d.AssignOwner = true
				}
			}
		}
	}

	return d
}

func (e *Evaluator) isAdmin(identity model.CallerIdentity, roles []string, snap *AccessSnapshot) bool {
	if e.AdminOverride != nil && e.AdminOverride(identity) {
		return true
	}
	return snap.AdminRole != "" && containsRole(roles, snap.AdminRole)
}

// effectiveRoles returns the caller's roles, or the default role for callers
// with none. An empty default role yields an empty set, which matches
// nothing.
func effectiveRoles(identity model.CallerIdentity, snap *AccessSnapshot) []string {
	if len(identity.Roles) > 0 {
		return identity.Roles
	}
	if snap.DefaultRole == "" {
		return nil
	}
	return []string{snap.DefaultRole}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
