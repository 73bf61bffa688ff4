package access

// Entity names an access snapshot can be evaluated against.
const (
	EntityForm       = "form"
	EntitySubmission = "submission"
)

// EntityAccess is the flattened, request-scoped view of one entity's access
// rules: owner plus permission type -> role ids.
type EntityAccess struct {
	Owner string
	Perms map[string][]string
}

// AccessSnapshot is the resolved view of all access rules relevant to one
// authorization decision. Built fresh per request, never mutated after
// construction, never persisted. DefaultRole or AdminRole may be empty when
// the installation has no role carrying that flag; an empty id never matches.
type AccessSnapshot struct {
	Form        EntityAccess
	Submission  EntityAccess
	DefaultRole string
	AdminRole   string
}

// Entity returns the access view for the named entity type. Unknown types
// yield an empty view, which grants nothing.
func (s *AccessSnapshot) Entity(entityType string) EntityAccess {
	switch entityType {
	case EntityForm:
		return s.Form
	case EntitySubmission:
		return s.Submission
	default:
		return EntityAccess{}
	}
}

func newSnapshot() *AccessSnapshot {
	return &AccessSnapshot{
		Form:       EntityAccess{Perms: make(map[string][]string)},
		Submission: EntityAccess{Perms: make(map[string][]string)},
	}
}
