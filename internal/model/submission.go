package model

import "time"

// Resource-scoped permission types attached to individual submissions.
// Orthogonal to the role-based form permissions: these name other entities
// (users, resources) that may act on this one submission.
const (
	ResourcePermRead  = "read"
	ResourcePermWrite = "write"
	ResourcePermAdmin = "admin"
)

// ResourcePermissionEntry grants a resource-scoped permission to a set of
// entity ids. Consumed by the row-level resource-access filter, not by the
// role-based permission evaluator.
type ResourcePermissionEntry struct {
	Type      string   `json:"type"`
	Resources []string `json:"resources"`
}

// Submission is one filled-out instance of a form.
type Submission struct {
	ID       string                    `json:"id"`
	FormID   string                    `json:"form"`
	Owner    string                    `json:"owner,omitempty"`
	Data     map[string]any            `json:"data"`
	Access   []ResourcePermissionEntry `json:"access,omitempty"`
	Roles    []string                  `json:"roles,omitempty"`
	Created  time.Time                 `json:"created,omitempty"`
	Modified time.Time                 `json:"modified,omitempty"`
	Deleted  bool                      `json:"deleted,omitempty"`
}
