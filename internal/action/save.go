package action

import (
	"context"
	"fmt"

	"formhub-backend/internal/model"
)

// SubmissionWriter persists submissions. Implemented by the SQL store.
type SubmissionWriter interface {
	SaveSubmission(ctx context.Context, sub *model.Submission) error
}

// SaveSubmission persists the request's submission during the before phase,
// so that lower-priority actions (role assignment, webhooks) observe the
// persisted id. With a "resource" setting it additionally copies mapped
// fields into a submission of another form.
//
// Settings:
//
//	resource  target form id (optional)
//	fields    map of target field -> source field for the resource copy
//	property  data field on the original submission that receives the
//	          created resource id
type SaveSubmission struct {
	writer SubmissionWriter
}

func NewSaveSubmission(w SubmissionWriter) *SaveSubmission {
	return &SaveSubmission{writer: w}
}

func (s *SaveSubmission) Resolve(ctx context.Context, a *model.Action, handler, method string, ectx *ExecutionContext) error {
	if handler != model.HandlerBefore {
		return nil
	}
	if method != model.MethodCreate && method != model.MethodUpdate {
		return nil
	}
	if ectx.Submission == nil {
		// Form-scoped requests dispatch the same pipeline but carry no
		// submission; there is nothing for this unit to persist.
		return nil
	}

	if resource, _ := a.Settings["resource"].(string); resource != "" {
		if err := s.saveToResource(ctx, a, resource, ectx); err != nil {
			return err
		}
	}

	if err := s.writer.SaveSubmission(ctx, ectx.Submission); err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	ectx.Persisted = true
	ectx.SetResult("submission", ectx.Submission.ID)
	return nil
}

// saveToResource copies mapped data fields into a new submission of the
// target form, then links the created id back into the original data.
func (s *SaveSubmission) saveToResource(ctx context.Context, a *model.Action, resource string, ectx *ExecutionContext) error {
	data := make(map[string]any)
	if fields, ok := a.Settings["fields"].(map[string]any); ok && len(fields) > 0 {
		for target, source := range fields {
			src, _ := source.(string)
			if src == "" {
				continue
			}
			if v, ok := ectx.Submission.Data[src]; ok {
				data[target] = v
			}
		}
	} else {
		for k, v := range ectx.Submission.Data {
			data[k] = v
		}
	}

	copy := &model.Submission{
		FormID: resource,
		Owner:  ectx.Submission.Owner,
		Data:   data,
	}
	if err := s.writer.SaveSubmission(ctx, copy); err != nil {
		return fmt.Errorf("save to resource %s: %w", resource, err)
	}

	if property, _ := a.Settings["property"].(string); property != "" {
		if ectx.Submission.Data == nil {
			ectx.Submission.Data = make(map[string]any)
		}
		ectx.Submission.Data[property] = copy.ID
	}
	return nil
}
