package engine

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"formhub-backend/internal/access"
	"formhub-backend/internal/action"
	"formhub-backend/internal/model"
)

// ListForms handles GET /form. A collection request with no form context has
// no entity-scoped rules, so only admins pass the decision engine.
func (e *Engine) ListForms(c *fiber.Ctx) error {
	s := e.scope()
	if _, _, err := s.authorize(c, e, "", "", nil, false); err != nil {
		return err
	}

	forms, err := e.store.ListForms(c.UserContext())
	if err != nil {
		return StoreUnavailableError(fmt.Sprintf("list forms: %v", err))
	}
	if forms == nil {
		forms = []*model.Form{}
	}
	return c.JSON(fiber.Map{"data": forms})
}

// CreateForm handles POST /form.
func (e *Engine) CreateForm(c *fiber.Ctx) error {
	s := e.scope()

	var form model.Form
	if err := c.BodyParser(&form); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	if form.Name == "" || form.Path == "" {
		return ValidationError("Form name and path are required")
	}
	form.ID = ""

	_, decision, err := s.authorize(c, e, "", "",
		&access.Entity{Type: access.EntityForm}, form.Owner != "")
	if err != nil {
		return err
	}
	if !decision.AssignOwner {
		form.Owner = identityOf(c).UserID
	}

	if err := e.store.SaveForm(c.UserContext(), &form); err != nil {
		return StoreUnavailableError(fmt.Sprintf("save form: %v", err))
	}
	return c.Status(201).JSON(fiber.Map{"data": form})
}

// GetForm handles GET /form/:formID.
func (e *Engine) GetForm(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	if _, _, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, false); err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}

	ectx := &action.ExecutionContext{Identity: identityOf(c), Form: form}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodRead, ectx); err != nil {
		return mapError(err)
	}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodRead, ectx); err != nil {
		return mapError(err)
	}

	return c.JSON(fiber.Map{"data": form})
}

// UpdateForm handles PUT /form/:formID.
func (e *Engine) UpdateForm(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	var body model.Form
	if err := c.BodyParser(&body); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	_, decision, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, body.Owner != "")
	if err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}

	// Apply the update onto the stored document. Owner changes stick only
	// for *_all grants and admins.
	body.ID = form.ID
	body.Created = form.Created
	if !decision.AssignOwner && !decision.IsAdmin {
		body.Owner = form.Owner
	}
	if body.Name == "" {
		body.Name = form.Name
	}
	if body.Path == "" {
		body.Path = form.Path
	}

	ectx := &action.ExecutionContext{Identity: identityOf(c), Form: &body}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodUpdate, ectx); err != nil {
		return mapError(err)
	}

	if err := e.store.SaveForm(c.UserContext(), &body); err != nil {
		return StoreUnavailableError(fmt.Sprintf("save form: %v", err))
	}

	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodUpdate, ectx); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": body})
}

// DeleteForm handles DELETE /form/:formID.
func (e *Engine) DeleteForm(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	if _, _, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, false); err != nil {
		return err
	}

	form, err := s.cache.FindForm(c.UserContext(), formID)
	if err != nil {
		return mapError(err)
	}

	ectx := &action.ExecutionContext{Identity: identityOf(c), Form: form}
	if err := s.pipeline.Execute(c.UserContext(), model.HandlerBefore, model.MethodDelete, ectx); err != nil {
		return mapError(err)
	}

	if err := e.store.DeleteForm(c.UserContext(), formID); err != nil {
		return StoreUnavailableError(fmt.Sprintf("delete form: %v", err))
	}

	if err := s.pipeline.Execute(c.UserContext(), model.HandlerAfter, model.MethodDelete, ectx); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": formID}})
}
