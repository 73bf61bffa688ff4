package model

// Lifecycle phases an action can hook.
const (
	HandlerBefore = "before"
	HandlerAfter  = "after"
)

// Operations an action can hook.
const (
	MethodCreate = "create"
	MethodRead   = "read"
	MethodUpdate = "update"
	MethodDelete = "delete"
	MethodIndex  = "index"
)

// Condition gates a single action invocation. Custom takes precedence over
// the declarative field comparison when both are present.
type Condition struct {
	Field  string `json:"field,omitempty"`
	Eq     string `json:"eq,omitempty"` // "equals" or "notEqual"
	Value  any    `json:"value,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// Action is a configured unit of server-side behavior attached to a form.
// Actions for one form run in Priority descending order, ties broken by
// creation order. Immutable once loaded for a request.
type Action struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Title     string         `json:"title"`
	FormID    string         `json:"form"`
	Priority  int            `json:"priority"`
	Handler   []string       `json:"handler"`
	Method    []string       `json:"method"`
	Settings  map[string]any `json:"settings,omitempty"`
	Condition *Condition     `json:"condition,omitempty"`
	Deleted   bool           `json:"deleted,omitempty"`
}

// RunsOn reports whether the action is configured for the given lifecycle
// phase and operation. An empty handler or method argument acts as a
// wildcard.
func (a *Action) RunsOn(handler, method string) bool {
	if handler != "" && !contains(a.Handler, handler) {
		return false
	}
	if method != "" && !contains(a.Method, method) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
