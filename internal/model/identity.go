package model

// CallerIdentity represents the authenticated caller, set by auth middleware.
// Anonymous callers have an empty UserID and no roles; the access resolver
// substitutes the installation's default role downstream.
type CallerIdentity struct {
	UserID string   `json:"id"`
	Roles  []string `json:"roles"`
}

// Anonymous reports whether the caller is unauthenticated.
func (c CallerIdentity) Anonymous() bool {
	return c.UserID == ""
}
