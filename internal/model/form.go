package model

import "time"

// Permission types attached to a form's access and submissionAccess arrays.
const (
	PermCreateAll = "create_all"
	PermReadAll   = "read_all"
	PermUpdateAll = "update_all"
	PermDeleteAll = "delete_all"
	PermCreateOwn = "create_own"
	PermReadOwn   = "read_own"
	PermUpdateOwn = "update_own"
	PermDeleteOwn = "delete_own"
)

// PermissionEntry grants a permission type to a set of roles.
type PermissionEntry struct {
	Type  string   `json:"type"`
	Roles []string `json:"roles"`
}

// Form is a schema document. Components are opaque to this backend; they are
// stored and returned as-is.
type Form struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Name             string            `json:"name"`
	Path             string            `json:"path"`
	Owner            string            `json:"owner,omitempty"`
	Access           []PermissionEntry `json:"access,omitempty"`
	SubmissionAccess []PermissionEntry `json:"submissionAccess,omitempty"`
	Components       []map[string]any  `json:"components,omitempty"`
	Created          time.Time         `json:"created,omitempty"`
	Modified         time.Time         `json:"modified,omitempty"`
	Deleted          bool              `json:"deleted,omitempty"`
}
