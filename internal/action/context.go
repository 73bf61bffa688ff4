package action

import "formhub-backend/internal/model"

// ExecutionContext is the mutable state threaded by pointer through one
// pipeline run. Actions read and write it in place so that later actions and
// the CRUD layer observe earlier actions' effects.
//
// Fields actions may write: Submission (persisted state after a save),
// Payload (mutations visible to the CRUD layer on before-handlers), and
// Result (merged into the response on after-handlers).
type ExecutionContext struct {
	Identity   model.CallerIdentity
	Form       *model.Form
	Submission *model.Submission
	Payload    map[string]any
	Result     map[string]any

	// Owner-handling flags from the permission decision.
	AssignOwner     bool
	SkipOwnerFilter bool

	// Persisted is set once an action has written the submission, so the
	// CRUD layer does not save it a second time.
	Persisted bool
}

// Data returns the submission data conditions and actions operate on: the
// loaded submission's data when present, otherwise the request payload.
func (e *ExecutionContext) Data() map[string]any {
	if e.Submission != nil && e.Submission.Data != nil {
		return e.Submission.Data
	}
	if data, ok := e.Payload["data"].(map[string]any); ok {
		return data
	}
	return e.Payload
}

// SetResult records a key on the response side channel, allocating it on
// first use.
func (e *ExecutionContext) SetResult(key string, value any) {
	if e.Result == nil {
		e.Result = make(map[string]any)
	}
	e.Result[key] = value
}
