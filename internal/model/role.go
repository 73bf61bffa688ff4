package model

// Role is a named permission group assigned to callers. Exactly one role per
// installation should carry the Default flag and one the Admin flag; that
// uniqueness is enforced at role CRUD time, not here.
type Role struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
	Admin       bool   `json:"admin"`
	Deleted     bool   `json:"deleted,omitempty"`
}
