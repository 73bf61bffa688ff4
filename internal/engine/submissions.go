package engine

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"formhub-backend/internal/access"
	"formhub-backend/internal/action"
	"formhub-backend/internal/model"
)

type submissionBody struct {
	Data   map[string]any                  `json:"data"`
	Owner  string                          `json:"owner"`
	Access []model.ResourcePermissionEntry `json:"access"`
}

// ListSubmissions handles GET /form/:formID/submission. Callers holding only
// a *_own grant get a tentatively allowed decision; the owner filter below
// narrows the rows to their own.
func (e *Engine) ListSubmissions(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	_, decision, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntitySubmission, ID: ""}, false)
	if err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}

	identity := identityOf(c)
	owner := ""
	if !decision.SkipOwnerFilter {
		if identity.Anonymous() {
			// An ownership-bound grant with no owner to match yields nothing.
			return c.JSON(fiber.Map{"data": []*model.Submission{}})
		}
		owner = identity.UserID
	}

	ectx := &action.ExecutionContext{Identity: identity, Form: form}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodIndex, ectx); err != nil {
		return mapError(err)
	}

	subs, err := e.store.ListSubmissions(c.UserContext(), formID, owner)
	if err != nil {
		return StoreUnavailableError(fmt.Sprintf("list submissions: %v", err))
	}
	if subs == nil {
		subs = []*model.Submission{}
	}

	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodIndex, ectx); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": subs})
}

// CreateSubmission handles POST /form/:formID/submission.
func (e *Engine) CreateSubmission(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	var body submissionBody
	if err := c.BodyParser(&body); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	_, decision, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntitySubmission, ID: ""}, body.Owner != "")
	if err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}

	identity := identityOf(c)
	sub := &model.Submission{
		FormID: formID,
		Data:   body.Data,
		Access: body.Access,
	}
	if sub.Data == nil {
		sub.Data = map[string]any{}
	}
	// Only *_all grants (and admins) may hand ownership to someone else;
	// everyone else gets stamped as the owner of what they create.
	if (decision.AssignOwner || decision.IsAdmin) && body.Owner != "" {
		sub.Owner = body.Owner
	} else {
		sub.Owner = identity.UserID
	}

	ectx := &action.ExecutionContext{
		Identity:    identity,
		Form:        form,
		Submission:  sub,
		Payload:     map[string]any{"data": body.Data},
		AssignOwner: decision.AssignOwner,
	}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodCreate, ectx); err != nil {
		return mapError(err)
	}

	if !ectx.Persisted {
		if err := e.store.SaveSubmission(c.UserContext(), sub); err != nil {
			return StoreUnavailableError(fmt.Sprintf("save submission: %v", err))
		}
	}

	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodCreate, ectx); err != nil {
		return mapError(err)
	}
	return c.Status(201).JSON(responseWith(sub, ectx))
}

// GetSubmission handles GET /form/:formID/submission/:submissionID.
func (e *Engine) GetSubmission(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)
	submissionID := c.Params("submissionID")

	if _, _, err := s.authorize(c, e, formID, submissionID,
		&access.Entity{Type: access.EntitySubmission, ID: submissionID}, false); err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}
	sub, err := s.cache.FindSubmission(c.UserContext(), formID, submissionID)
	if err != nil {
		return mapError(err)
	}

	ectx := &action.ExecutionContext{Identity: identityOf(c), Form: form, Submission: sub}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodRead, ectx); err != nil {
		return mapError(err)
	}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodRead, ectx); err != nil {
		return mapError(err)
	}
	return c.JSON(responseWith(sub, ectx))
}

// UpdateSubmission handles PUT /form/:formID/submission/:submissionID.
func (e *Engine) UpdateSubmission(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)
	submissionID := c.Params("submissionID")

	var body submissionBody
	if err := c.BodyParser(&body); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	_, decision, err := s.authorize(c, e, formID, submissionID,
		&access.Entity{Type: access.EntitySubmission, ID: submissionID}, body.Owner != "")
	if err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}
	sub, err := s.cache.FindSubmission(c.UserContext(), formID, submissionID)
	if err != nil {
		return mapError(err)
	}

	if body.Data != nil {
		sub.Data = body.Data
	}
	if body.Access != nil {
		sub.Access = body.Access
	}
	if (decision.AssignOwner || decision.IsAdmin) && body.Owner != "" {
		sub.Owner = body.Owner
	}

	ectx := &action.ExecutionContext{
		Identity:    identityOf(c),
		Form:        form,
		Submission:  sub,
		Payload:     map[string]any{"data": body.Data},
		AssignOwner: decision.AssignOwner,
	}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodUpdate, ectx); err != nil {
		return mapError(err)
	}

	if !ectx.Persisted {
		if err := e.store.SaveSubmission(c.UserContext(), sub); err != nil {
			return StoreUnavailableError(fmt.Sprintf("save submission: %v", err))
		}
	}
	// After-phase cache reads must not observe the pre-write document.
	s.cache.Invalidate(formID, submissionID)

	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodUpdate, ectx); err != nil {
		return mapError(err)
	}
	return c.JSON(responseWith(sub, ectx))
}

// DeleteSubmission handles DELETE /form/:formID/submission/:submissionID.
func (e *Engine) DeleteSubmission(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)
	submissionID := c.Params("submissionID")

	if _, _, err := s.authorize(c, e, formID, submissionID,
		&access.Entity{Type: access.EntitySubmission, ID: submissionID}, false); err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}
	sub, err := s.cache.FindSubmission(c.UserContext(), formID, submissionID)
	if err != nil {
		return mapError(err)
	}

	ectx := &action.ExecutionContext{Identity: identityOf(c), Form: form, Submission: sub}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodDelete, ectx); err != nil {
		return mapError(err)
	}

	if err := e.store.DeleteSubmission(c.UserContext(), submissionID); err != nil {
		return StoreUnavailableError(fmt.Sprintf("delete submission: %v", err))
	}
	s.cache.Invalidate(formID, submissionID)

	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodDelete, ectx); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": submissionID}})
}

// responseWith merges any action side-channel results into the standard
// data envelope.
func responseWith(sub *model.Submission, ectx *action.ExecutionContext) fiber.Map {
	resp := fiber.Map{"data": sub}
	if len(ectx.Result) > 0 {
		resp["actions"] = ectx.Result
	}
	return resp
}
